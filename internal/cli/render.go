package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/relalg/internal/render"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Expr string
	Mode string // overrides render_mode from the config
}

// RenderResult is the JSON payload of the render command.
type RenderResult struct {
	Mode        string   `json:"mode"`
	Expressions []string `json:"expressions"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render [expressions-file|-]",
		Short: "Print expressions in algebra notation",
		Long: `Print an expression list in Unicode, ASCII, LaTeX or HTML notation.

Each expression is printed on its own line and terminated by ";".
Bindings are printed as "name ≔ expression".

Examples:
  relalg render query.yaml
  relalg render --mode latex query.yaml
  relalg render -e '{select: {where: {eq: [id, {const: 1}]}, from: people}}'`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Expr, "expr", "e", "", "expressions as inline YAML")
	cmd.Flags().StringVarP(&opts.Mode, "mode", "m", "", "notation (unicode|ascii|latex|html); defaults to render_mode")

	return cmd
}

func runRender(opts *RenderOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	mode := opts.settings().Mode()
	if opts.Mode != "" {
		parsed, err := render.ParseMode(opts.Mode)
		if err != nil {
			return report(f, ExitCommandError, "invalid mode", err)
		}
		mode = parsed
	}

	list, err := readExpressions(cmd, args, opts.Expr)
	if err != nil {
		return report(f, ExitCommandError, "invalid expressions", err)
	}

	if f.Format == "json" {
		result := RenderResult{Mode: mode.String(), Expressions: make([]string, len(list))}
		for i, expr := range list {
			result.Expressions[i] = render.Format(expr, mode)
		}
		return f.Success(result)
	}

	_, err = cmd.OutOrStdout().Write([]byte(render.FormatList(list, mode)))
	return err
}
