package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/relalg/internal/graph"
)

// GraphOptions holds flags for the graph command.
type GraphOptions struct {
	*RootOptions
	Expr    string
	Mermaid bool
}

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "graph [expressions-file|-]",
		Short: "Export expressions as a DOT or Mermaid diagram",
		Long: `Export the operator trees of an expression list as a Graphviz DOT
digraph, or with --mermaid as a Mermaid flowchart in a markdown block.

Relation leaves are filled boxes; bindings link to the expressions that
read them.

Examples:
  relalg graph query.yaml | dot -Tsvg > query.svg
  relalg graph --mermaid query.yaml`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Expr, "expr", "e", "", "expressions as inline YAML")
	cmd.Flags().BoolVar(&opts.Mermaid, "mermaid", false, "emit a Mermaid flowchart instead of DOT")

	return cmd
}

func runGraph(opts *GraphOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	list, err := readExpressions(cmd, args, opts.Expr)
	if err != nil {
		return report(f, ExitCommandError, "invalid expressions", err)
	}

	out := graph.DOT(list)
	if opts.Mermaid {
		out = graph.Mermaid(list)
	}
	if f.Format == "json" {
		return f.Success(map[string]string{"graph": out})
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}
