package cmd

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xdg/cmdgate/internal/term"
	"github.com/xdg/cmdgate/internal/tools"
)

var toolsCategory string

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List registered tools",
	Long: `List the tools that can be run through POST /tools/{name}.

Use --category to show a single category, or 'cmdgate tools show NAME' for
a tool's argument schema.`,
	Args: cobra.NoArgs,
	RunE: runTools,
}

var toolsShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show a tool's arguments",
	Args:  cobra.ExactArgs(1),
	RunE:  runToolsShow,
}

func init() {
	toolsCmd.Flags().StringVar(&toolsCategory, "category", "", "only list tools in this category")
	toolsCmd.AddCommand(toolsShowCmd)
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	var filter tools.Category
	if toolsCategory != "" {
		c, err := tools.ParseCategory(toolsCategory)
		if err != nil {
			return err
		}
		filter = c
	}

	var rows [][]string
	for _, s := range tools.NewRegistry().Specs() {
		if filter != "" && s.Category != filter {
			continue
		}
		rows = append(rows, []string{s.Name, string(s.Category), s.Executable, s.Description})
	}
	if len(rows) == 0 {
		term.Println("No tools registered.")
		return nil
	}
	term.Table([]string{"name", "category", "executable", "description"}, rows)
	return nil
}

func runToolsShow(cmd *cobra.Command, args []string) error {
	spec, err := tools.NewRegistry().GetSpec(args[0])
	if err != nil {
		return err
	}

	term.Printf("%s (%s): %s\n", spec.Name, spec.Category, spec.Description)
	invocation := spec.Executable
	if len(spec.Subcommand) > 0 {
		invocation += " " + strings.Join(spec.Subcommand, " ")
	}
	term.Printf("Runs: %s\nTimeout: %s\n", invocation, spec.Timeout)
	if len(spec.Args) == 0 {
		term.Println("Arguments: none")
		return nil
	}

	rows := make([][]string, 0, len(spec.Args))
	for _, a := range spec.Args {
		rows = append(rows, []string{a.Name, string(a.Type), argUsage(a), a.Default, a.Help})
	}
	term.Println()
	term.Table([]string{"arg", "type", "usage", "default", "help"}, rows)
	return nil
}

// argUsage describes how an argument is rendered on the command line.
func argUsage(a tools.ArgSpec) string {
	var parts []string
	if a.Positional {
		parts = append(parts, "positional")
	} else {
		parts = append(parts, a.Flag())
	}
	if a.Required {
		parts = append(parts, "required")
	}
	if a.Max > 0 {
		parts = append(parts, "max="+strconv.Itoa(a.Max))
	}
	return strings.Join(parts, ",")
}
