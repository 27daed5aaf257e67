// Package cmd implements the CLI commands for cmdgate.
package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/xdg/cmdgate/internal/clog"
	"github.com/xdg/cmdgate/internal/config"
	"github.com/xdg/cmdgate/internal/term"
	"github.com/xdg/cmdgate/internal/version"
)

// Global flags.
var (
	configPath string
	debugFlag  bool
	silentFlag bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cmdgate",
	Short: "Authenticated HTTP gateway for running host commands",
	Long: `cmdgate exposes a narrow HTTP API for running commands and a catalog of
registered tools on this host.

Every request is authenticated (API key or bearer token), admitted by a
concurrency and memory governor, checked against an allowlist or blocklist
policy, and executed without a shell under a hard timeout. All decisions are
written to an audit log.`,
	Version:           version.String(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupOutput,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "config file (default "+config.Path()+")")
	pf.BoolVar(&debugFlag, "debug", false, "enable debug logging")
	pf.BoolVar(&silentFlag, "silent", false, "suppress normal output")
}

// Execute runs the root command and returns any error. Errors other than
// ExitCodeError are printed to stderr.
func Execute() error {
	err := rootCmd.Execute()
	var exitErr *ExitCodeError
	if err != nil && !errors.As(err, &exitErr) {
		term.Error("%v", err)
	}
	return err
}

func setupOutput(cmd *cobra.Command, args []string) error {
	term.SetSilent(silentFlag)
	if debugFlag {
		clog.SetLevel(clog.LevelDebug)
	}
	return nil
}

// loadConfig loads the file named by --config, or the default path.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
