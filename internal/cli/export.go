package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/loader"
)

// ExportResult describes an exported relation.
type ExportResult struct {
	Relation string `json:"relation"`
	Output   string `json:"output"`
	Tuples   int    `json:"tuples"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <relation> <file.avro>",
		Short: "Write a stored relation as an Avro container file",
		Long: `Write a stored relation to an Avro object container file. The Avro
record schema carries the relation header, so the file can be imported
again without a CUE schema.

Example:
  relalg export people people.avro`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runExport(opts *RootOptions, relation, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	cfg := opts.settings()

	name, err := ir.ParseName(relation)
	if err != nil {
		return report(formatter, ExitCommandError, "invalid relation name", err)
	}

	st, err := openStore(cfg.Database)
	if err != nil {
		return report(formatter, ExitCommandError, "cannot open store", err)
	}
	defer st.Close()

	rel, err := st.LoadRelation(ctxOf(cmd), name)
	if err != nil {
		return report(formatter, ExitFailure, "cannot load relation", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return report(formatter, ExitCommandError, "cannot create output", &LoadError{Code: ErrCodeWriteFailed, Message: err.Error()})
	}
	if err := loader.WriteAvro(f, rel); err != nil {
		f.Close()
		return report(formatter, ExitCommandError, "writing avro", &LoadError{Code: ErrCodeWriteFailed, Message: err.Error()})
	}
	if err := f.Close(); err != nil {
		return report(formatter, ExitCommandError, "writing avro", &LoadError{Code: ErrCodeWriteFailed, Message: err.Error()})
	}

	result := ExportResult{Relation: name.String(), Output: path, Tuples: rel.Len()}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Exported %d tuple(s) from %s to %s\n", result.Tuples, result.Relation, result.Output)
	return nil
}
