package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/engine"
	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/queryir"
	"github.com/roach88/relalg/internal/querysql"
	"github.com/roach88/relalg/internal/schema"
	"github.com/roach88/relalg/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Expr    string
	Save    bool // keep bound results in the database
	Explain bool // print the compiled SQL instead of running it
}

// SQLStatement is one compiled expression.
type SQLStatement struct {
	Binding string `json:"binding,omitempty"`
	SQL     string `json:"sql"`
	Params  []any  `json:"params,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [expressions-file|-]",
		Short: "Evaluate expressions inside the SQLite store",
		Long: `Evaluate an expression list as SQL against the relations in the store.

The result is the same tuple set the in-memory engine produces. Bound
results are stored for later expressions and removed afterwards; with
--save they are kept. A binding may replace a stored relation only with
--save.

Examples:
  relalg query --database ./relalg.db query.yaml
  relalg query -e '{union: [people, staff]}'
  relalg query --explain query.yaml`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Expr, "expr", "e", "", "expressions as inline YAML")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "keep bound results in the database")
	cmd.Flags().BoolVar(&opts.Explain, "explain", false, "print the compiled SQL instead of running it")

	return cmd
}

func runQuery(opts *QueryOptions, args []string, cmd *cobra.Command) error {
	ctx := ctxOf(cmd)
	f := opts.formatter(cmd)
	cfg := opts.settings()

	list, err := readExpressions(cmd, args, opts.Expr)
	if err != nil {
		return report(f, ExitCommandError, "invalid expressions", err)
	}

	st, err := openStore(cfg.Database)
	if err != nil {
		return report(f, ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Explain {
		return explain(ctx, f, st, list)
	}

	stored, err := st.Relations(ctx)
	if err != nil {
		return report(f, ExitCommandError, "failed to read database", &LoadError{Code: ErrCodeStoreFailed, Message: err.Error()})
	}
	var temporary []ir.Name
	defer func() {
		for _, name := range temporary {
			if err := st.DeleteRelation(ctx, name); err != nil {
				opts.logger().Warn("failed to remove binding", "name", name.String(), "error", err)
			}
		}
	}()

	var last *data.SimpleRelation
	for i, expr := range list {
		rel, err := st.Query(ctx, expr.Op)
		if err != nil {
			return report(f, ExitFailure, fmt.Sprintf("expression %d failed", i), err)
		}
		last = rel
		if !expr.IsNamed() {
			continue
		}

		if !opts.Save {
			if slices.Contains(stored, expr.Name) {
				return report(f, ExitCommandError, "cannot bind",
					&LoadError{Code: ErrCodeDuplicateName, Message: fmt.Sprintf("binding %q would replace a stored relation; use --save", expr.Name)})
			}
			if !slices.Contains(temporary, expr.Name) {
				temporary = append(temporary, expr.Name)
			}
		}
		last = rel.WithSchema(schema.Rename(rel.Schema(), expr.Name))
		if err := st.SaveRelation(ctx, last); err != nil {
			return report(f, ExitCommandError, "failed to store binding", &LoadError{Code: ErrCodeStoreFailed, Message: err.Error()})
		}
		opts.logger().Debug("binding stored", "name", expr.Name.String(), "rows", last.Len())
	}

	return f.Relation(last, "")
}

// explain compiles every expression without running it. Bindings are
// compiled against their inferred schemas.
func explain(ctx context.Context, f *OutputFormatter, st *store.Store, list queryir.ExpressionList) error {
	sch, err := st.Schema(ctx)
	if err != nil {
		return report(f, ExitCommandError, "failed to read database", &LoadError{Code: ErrCodeStoreFailed, Message: err.Error()})
	}

	statements := make([]SQLStatement, 0, len(list))
	for i, expr := range list {
		sql, params, err := querysql.NewSQLCompiler(sch).Compile(expr.Op)
		if err != nil {
			return report(f, ExitFailure, fmt.Sprintf("expression %d failed", i), err)
		}
		stmt := SQLStatement{SQL: sql, Params: params}
		if expr.IsNamed() {
			stmt.Binding = expr.Name.String()
			if sch, err = bindSchema(sch, expr); err != nil {
				return report(f, ExitFailure, fmt.Sprintf("expression %d failed", i), err)
			}
		}
		statements = append(statements, stmt)
	}

	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: statements})
	}
	for _, stmt := range statements {
		if stmt.Binding != "" {
			fmt.Fprintf(f.Writer, "-- %s\n", stmt.Binding)
		}
		fmt.Fprintf(f.Writer, "%s;\n", stmt.SQL)
		if len(stmt.Params) > 0 {
			fmt.Fprintf(f.Writer, "-- params: %v\n", stmt.Params)
		}
	}
	return nil
}

// bindSchema returns sch with expr's inferred result schema bound under
// its name, replacing any relation of that name.
func bindSchema(sch *schema.SimpleSchema, expr queryir.Expression) (*schema.SimpleSchema, error) {
	rs, err := engine.Infer(expr.Op, sch)
	if err != nil {
		return nil, err
	}
	relations := []schema.RelationSchema{schema.Rename(rs, expr.Name)}
	for _, r := range sch.Relations() {
		if r.Name() != expr.Name {
			relations = append(relations, r)
		}
	}
	return schema.NewSchema(relations...)
}
