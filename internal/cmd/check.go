package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xdg/cmdgate/internal/audit"
	"github.com/xdg/cmdgate/internal/gateway"
	"github.com/xdg/cmdgate/internal/policy"
	"github.com/xdg/cmdgate/internal/term"
	"github.com/xdg/cmdgate/internal/tools"
)

var (
	checkTool     string
	checkCategory string
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] -- COMMAND [ARG...]",
	Short: "Test a command against the configured policy",
	Long: `Run the request validation and command policy offline, exactly as
POST /execute would, without executing anything.

With --tool, the arguments are KEY=VALUE pairs for the named tool, and the
rendered tool command is checked instead:

  cmdgate check -- ls -la /tmp
  cmdgate check --tool ping -- target=example.com c=2

Exits 0 when the command would be allowed and 2 when it would be refused.`,
	Args: cobra.ArbitraryArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkTool, "tool", "", "check a registered tool invocation")
	checkCmd.Flags().StringVar(&checkCategory, "category", "", "tool category (defaults to the tool's own)")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg := tools.NewRegistry()
	validator, toolValidator, err := buildPolicies(cfg, reg)
	if err != nil {
		return err
	}
	if checkTool != "" {
		validator = toolValidator
	}

	command, argv, err := checkTarget(reg, args)
	if err != nil {
		return deny(err)
	}

	line := audit.CommandLine(command, argv)
	if err := validator.Validate(command, argv); err != nil {
		return deny(err)
	}
	term.Printf("allowed (%s): %s\n", validator.Mode(), line)
	return nil
}

// checkTarget resolves the arguments into the command the gateway would run.
func checkTarget(reg *tools.Registry, args []string) (string, []string, error) {
	if checkTool == "" {
		if len(args) == 0 {
			return "", nil, errors.New("command is required")
		}
		req := gateway.CommandRequest{Command: args[0], Args: args[1:]}
		if err := req.Validate(); err != nil {
			return "", nil, err
		}
		return req.Command, req.Args, nil
	}

	spec, err := reg.GetSpec(checkTool)
	if err != nil {
		return "", nil, err
	}
	req := tools.Request{Name: spec.Name, Category: checkCategory, Args: tools.Args{}}
	if req.Category == "" {
		req.Category = string(spec.Category)
	}
	for _, kv := range args {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return "", nil, fmt.Errorf("invalid tool argument %q: expected KEY=VALUE", kv)
		}
		req.Args[k] = v
	}
	inv, err := reg.Build(req)
	if err != nil {
		return "", nil, err
	}
	return inv.Command, inv.Args, nil
}

// deny prints the refusal and returns ExitDenied.
func deny(err error) error {
	if r, ok := policy.IsRejection(err); ok && r.Pattern != "" {
		term.Printf("denied: %s (rule %q)\n", r.Reason, r.Pattern)
	} else if ok {
		term.Printf("denied: %s\n", r.Reason)
	} else {
		term.Printf("denied: %v\n", err)
	}
	return NewExitCodeError(ExitDenied)
}
