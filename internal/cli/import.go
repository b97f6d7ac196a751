package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/schema"
	"github.com/roach88/relalg/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	DataOptions
}

// ImportResult describes an imported relation.
type ImportResult struct {
	Relation string          `json:"relation"`
	Source   string          `json:"source"`
	Tuples   int             `json:"tuples"`
	Header   []AttributeView `json:"attributes"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <relation> <file>",
		Short: "Load a CSV, JSON, JSONL or Avro file into the store",
		Long: `Ingest a data file as a stored relation, replacing any relation of the
same name.

The relation's header comes from the CUE schema (--schema) when it declares
the relation, otherwise from the header already in the store. Avro files
need neither: their header is read from the file.

Examples:
  relalg import --schema schema.cue people people.csv
  relalg import visits visits.avro`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], args[1], cmd)
		},
	}

	addDataFlags(cmd, &opts.DataOptions, false)

	return cmd
}

func runImport(opts *ImportOptions, relation, path string, cmd *cobra.Command) error {
	ctx := ctxOf(cmd)
	formatter := opts.formatter(cmd)
	cfg := opts.settings()

	name, err := ir.ParseName(relation)
	if err != nil {
		return report(formatter, ExitCommandError, "invalid relation name", err)
	}
	lopts, err := opts.loaderOptions()
	if err != nil {
		return report(formatter, ExitCommandError, "invalid data options", &LoadError{Code: ErrCodeDataFailed, Message: err.Error()})
	}

	st, err := openStore(cfg.Database)
	if err != nil {
		return report(formatter, ExitCommandError, "cannot open store", err)
	}
	defer st.Close()

	rs, err := importSchema(cmd, cfg.Schema, st, name)
	if err != nil {
		return report(formatter, ExitCommandError, "cannot determine relation header", err)
	}

	path = resolveDataPath(path, cfg.DataDir)
	formatter.VerboseLog("Importing %s from %s", name, path)
	rel, err := loadDataFile(name, path, rs, lopts)
	if err != nil {
		return report(formatter, ExitFailure, "import failed", &LoadError{Code: ErrCodeDataFailed, Message: err.Error()})
	}
	if err := st.SaveRelation(ctx, rel); err != nil {
		return report(formatter, ExitCommandError, "saving relation", err)
	}
	opts.logger().Info("relation imported", "relation", name.String(), "tuples", rel.Len(), "source", path)

	result := ImportResult{
		Relation: name.String(),
		Source:   path,
		Tuples:   rel.Len(),
		Header:   attributeViews(rel.Schema()),
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Imported %d tuple(s) into %s\n", result.Tuples, result.Relation)
	return nil
}

// importSchema picks the header for name: the CUE schema first, then the
// stored header. A nil result defers to the file itself.
func importSchema(cmd *cobra.Command, schemaPath string, st *store.Store, name ir.Name) (schema.RelationSchema, error) {
	if schemaPath != "" {
		loaded, err := LoadSchema(schemaPath)
		if err != nil {
			return nil, err
		}
		if rs, ok := loaded.Schema.Relation(name); ok {
			return rs, nil
		}
	}

	rs, err := st.RelationSchema(ctxOf(cmd), name)
	switch {
	case err == nil:
		return rs, nil
	case ir.IsRelationDoesNotExist(err):
		return nil, nil
	default:
		return nil, err
	}
}
