package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/relalg/internal/data"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
	DryRun bool   // compile without writing the database
}

// CompiledRelation summarizes one relation written by compile.
type CompiledRelation struct {
	RelationView
	Digest string `json:"digest"`
}

// CompilationResult holds the compiled relations.
type CompilationResult struct {
	Relations []CompiledRelation `json:"relations"`
	Database  string             `json:"database,omitempty"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	RelationCount int
	TupleCount    int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <schema>",
		Short: "Compile a CUE schema and its facts into the store",
		Long: `Compile CUE relation declarations and facts and save every declared
relation in the SQLite store, replacing relations of the same name.

With --output the compiled relations are also written as JSON.

Examples:
  relalg compile --database ./relalg.db schema.cue
  relalg compile --dry-run -o relations.json ./schemas`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "compile without writing the database")

	return cmd
}

func runCompile(opts *CompileOptions, schemaPath string, cmd *cobra.Command) error {
	ctx := ctxOf(cmd)
	formatter := opts.formatter(cmd)
	cfg := opts.settings()

	loaded, err := LoadSchema(schemaPath)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Error(), nil)
		}
		return outputCompileError(formatter, ErrCodeGeneric, err.Error(), nil)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, schemaPath)

	result := &CompilationResult{}
	var relations []data.Relation
	for _, name := range loaded.Catalog.Names() {
		rel, _ := loaded.Catalog.Get(name)
		formatter.VerboseLog("Compiling relation: %s", name)
		relations = append(relations, rel)
		result.Relations = append(result.Relations, CompiledRelation{
			RelationView: NewRelationView(rel),
			Digest:       digestOf(rel),
		})
	}

	if !opts.DryRun {
		st, err := openStore(cfg.Database)
		if err != nil {
			return outputCompileError(formatter, ErrCodeStoreFailed, err.Error(), nil)
		}
		defer st.Close()
		for _, rel := range relations {
			if err := st.SaveRelation(ctx, rel); err != nil {
				return outputCompileError(formatter, ErrCodeStoreFailed,
					fmt.Sprintf("saving %s: %v", rel.Schema().Name(), err), nil)
			}
		}
		result.Database = cfg.Database
	}

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeRelationsToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, calculateStats(result), opts.Output)
}

// digestOf returns the content digest of rel.
func digestOf(rel data.Relation) string {
	materialized, err := data.Materialize(rel)
	if err != nil {
		return ""
	}
	return materialized.Digest()
}

// calculateStats computes summary statistics from compilation result.
func calculateStats(result *CompilationResult) CompilationStats {
	stats := CompilationStats{RelationCount: len(result.Relations)}
	for _, rel := range result.Relations {
		stats.TupleCount += len(rel.Rows)
	}
	return stats
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, stats CompilationStats, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	// Human-readable text output
	fmt.Fprintf(formatter.Writer, "✓ Compiled %d relation(s), %d tuple(s)\n\n",
		stats.RelationCount, stats.TupleCount)

	for _, rel := range result.Relations {
		suffix := "tuples"
		if len(rel.Rows) == 1 {
			suffix = "tuple"
		}
		fmt.Fprintf(formatter.Writer, "  %s: %d attribute(s), %d %s\n",
			rel.Name, len(rel.Attributes), len(rel.Rows), suffix)
	}
	fmt.Fprintln(formatter.Writer)

	if result.Database != "" {
		fmt.Fprintf(formatter.Writer, "Saved to %s\n", result.Database)
	}
	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote relations to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// writeRelationsToFile writes the compilation result as indented JSON.
func writeRelationsToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling relations: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
