package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/relalg/internal/config"
	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/engine"
	"github.com/roach88/relalg/internal/queryir"
	"github.com/roach88/relalg/internal/schema"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	DataOptions

	Expr     string // inline expressions instead of a file
	UseStore bool   // resolve undeclared relations from the store
	All      bool   // print every result, not just the last
	MaxRows  int    // per-operator tuple limit (0 = unlimited)
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval [expressions-file|-]",
		Short: "Evaluate expressions in memory",
		Long: `Evaluate an expression list with the in-memory engine.

Base relations come from the CUE schema (--schema, with its facts), from
data files (--data name=path; CSV, JSON, JSONL or Avro), and with --store
from the SQLite database. Bindings (bind: name) are visible to later
expressions in the list. The result of the last expression is printed.

Examples:
  relalg eval --schema people.cue query.yaml
  relalg eval --schema people.cue --data people=people.csv query.yaml
  relalg eval --store -e '{project: {attributes: [name], from: people}}'
  relalg eval --schema people.cue --all --format json query.yaml`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Expr, "expr", "e", "", "expressions as inline YAML")
	cmd.Flags().BoolVar(&opts.UseStore, "store", false, "read undeclared relations from the database")
	cmd.Flags().BoolVar(&opts.All, "all", false, "print the result of every expression")
	cmd.Flags().IntVar(&opts.MaxRows, "max-rows", 0, "fail when an operator produces more tuples (0 = unlimited)")
	addDataFlags(cmd, &opts.DataOptions, true)

	return cmd
}

func runEval(opts *EvalOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	cfg := opts.settings()
	logger := opts.logger()

	list, err := readExpressions(cmd, args, opts.Expr)
	if err != nil {
		return report(f, ExitCommandError, "invalid expressions", err)
	}

	provider, closeFn, err := buildProvider(cmd, cfg, &opts.DataOptions, opts.UseStore)
	if err != nil {
		return report(f, ExitCommandError, "failed to load relations", err)
	}
	defer closeFn()

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = engine.UUIDv7Generator{}
	}
	evalOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithRunIDGenerator(runIDs),
		engine.WithRegexCacheSize(cfg.RegexCacheSize),
	}
	if opts.MaxRows > 0 {
		evalOpts = append(evalOpts, engine.WithMaxRows(opts.MaxRows))
	}

	logger.Debug("evaluating", "expressions", len(list))
	res, err := engine.New(provider, evalOpts...).EvaluateList(list)
	if err != nil {
		return report(f, ExitFailure, "evaluation failed", err)
	}

	if opts.All {
		return outputAll(f, list, res)
	}
	return f.Relation(res.Last(), res.RunID)
}

// outputAll prints every result in list order, labelled by binding name
// or position.
func outputAll(f *OutputFormatter, list queryir.ExpressionList, res *engine.ListResult) error {
	if f.Format == "json" {
		views := make([]RelationView, len(res.Results))
		for i, rel := range res.Results {
			views[i] = NewRelationView(rel)
		}
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: views, RunID: res.RunID})
	}

	for i, rel := range res.Results {
		if i > 0 {
			fmt.Fprintln(f.Writer)
		}
		label := fmt.Sprintf("$%d", i)
		if list[i].IsNamed() {
			label = list[i].Name.String()
		}
		fmt.Fprintf(f.Writer, "%s:\n", label)
		if err := f.Relation(rel, res.RunID); err != nil {
			return err
		}
	}
	return nil
}

// buildProvider collects the base relations: the CUE schema with its
// facts, then data files (replacing facts of the same relation), then,
// when useStore is set, the store for names still unresolved.
//
// The returned function releases the store.
func buildProvider(cmd *cobra.Command, cfg *config.Config, d *DataOptions, useStore bool) (engine.Provider, func(), error) {
	noop := func() {}

	catalog := data.NewCatalog()
	var declared schema.Schema
	if cfg.Schema != "" {
		loaded, err := LoadSchema(cfg.Schema)
		if err != nil {
			return nil, noop, err
		}
		catalog = loaded.Catalog
		declared = loaded.Schema
	}

	loaderOpts, err := d.loaderOptions()
	if err != nil {
		return nil, noop, &LoadError{Code: ErrCodeDataFailed, Message: err.Error()}
	}
	for _, spec := range d.Files {
		name, path, err := parseDataSpec(spec)
		if err != nil {
			return nil, noop, &LoadError{Code: ErrCodeDataFailed, Message: err.Error()}
		}
		var rs schema.RelationSchema
		if declared != nil {
			if found, ok := declared.Relation(name); ok {
				rs = found
			}
		}
		rel, err := loadDataFile(name, resolveDataPath(path, cfg.DataDir), rs, loaderOpts)
		if err != nil {
			return nil, noop, &LoadError{Code: ErrCodeDataFailed, Message: err.Error()}
		}
		catalog.Put(name, rel)
	}

	if !useStore {
		return catalog, noop, nil
	}
	st, err := openStore(cfg.Database)
	if err != nil {
		return nil, noop, err
	}
	closeFn := func() { _ = st.Close() }
	return chainProvider(catalog, st.Provider(ctxOf(cmd))), closeFn, nil
}
