package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/engine"
	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/loader"
	"github.com/roach88/relalg/internal/queryir"
	"github.com/roach88/relalg/internal/schema"
	"github.com/roach88/relalg/internal/store"
)

// DataOptions holds flags for reading relation data files.
type DataOptions struct {
	Files     []string // name=path pairs
	NoHeader  bool
	Delimiter string
	Normalize bool
}

// addDataFlags registers the ingestion flags. files adds the repeatable
// --data flag for commands that take several files.
func addDataFlags(cmd *cobra.Command, d *DataOptions, files bool) {
	if files {
		cmd.Flags().StringArrayVarP(&d.Files, "data", "d", nil, "relation data file as name=path (repeatable)")
	}
	cmd.Flags().BoolVar(&d.NoHeader, "no-header", false, "CSV files have no header row; columns are positional")
	cmd.Flags().StringVar(&d.Delimiter, "delimiter", ",", "CSV field delimiter")
	cmd.Flags().BoolVar(&d.Normalize, "normalize", false, "NFC-normalize string and char cells")
}

func (d *DataOptions) loaderOptions() (loader.Options, error) {
	opts := loader.DefaultOptions()
	opts.Header = !d.NoHeader
	opts.NormalizeText = d.Normalize
	if d.Delimiter != "" {
		r, size := utf8.DecodeRuneInString(d.Delimiter)
		if size != len(d.Delimiter) {
			return opts, fmt.Errorf("delimiter must be a single character, got %q", d.Delimiter)
		}
		opts.Comma = r
	}
	return opts, nil
}

// parseDataSpec splits a name=path pair.
func parseDataSpec(spec string) (ir.Name, string, error) {
	name, path, ok := strings.Cut(spec, "=")
	if !ok || path == "" {
		return "", "", fmt.Errorf("invalid data spec %q: want name=path", spec)
	}
	n, err := ir.ParseName(name)
	if err != nil {
		return "", "", fmt.Errorf("invalid data spec %q: %w", spec, err)
	}
	return n, path, nil
}

// resolveDataPath resolves path against dataDir unless it is absolute.
func resolveDataPath(path, dataDir string) string {
	if dataDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dataDir, path)
}

// loadDataFile ingests path as relation name. rs may be nil for Avro
// files, whose header carries the schema.
func loadDataFile(name ir.Name, path string, rs schema.RelationSchema, opts loader.Options) (*data.SimpleRelation, error) {
	if rs == nil {
		if strings.ToLower(filepath.Ext(path)) != ".avro" {
			return nil, fmt.Errorf("relation %q is not declared: declare it in the schema or load an Avro file", name)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("cannot open %s: %w", path, err)
		}
		inferred, err := loader.InferAvroSchema(name, f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		rs = inferred
	}

	rel, err := loader.Load(path, rs, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if rel.Schema().Name() != name {
		rel = rel.WithSchema(schema.Rename(rel.Schema(), name))
	}
	return rel, nil
}

// readExpressions decodes the expression list given inline, in the file
// named by args[0], or on stdin when that name is "-". The decoded list
// is checked for structural defects.
func readExpressions(cmd *cobra.Command, args []string, inline string) (queryir.ExpressionList, error) {
	var (
		src []byte
		err error
	)
	switch {
	case inline != "" && len(args) > 0:
		return nil, &LoadError{Code: ErrCodeGeneric, Message: "give either an expression file or --expr, not both"}
	case inline != "":
		src = []byte(inline)
	case len(args) == 0:
		return nil, &LoadError{Code: ErrCodeGeneric, Message: "an expression file or --expr is required"}
	case args[0] == "-":
		src, err = io.ReadAll(cmd.InOrStdin())
	default:
		src, err = os.ReadFile(args[0])
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("cannot read expressions: %v", err)}
	}

	list, err := queryir.DecodeList(src)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDecodeFailed, Message: err.Error()}
	}
	if len(list) == 0 {
		return nil, &LoadError{Code: ErrCodeDecodeFailed, Message: "no expressions given"}
	}
	if res := queryir.ValidateList(list); !res.Valid {
		return nil, &LoadError{Code: ErrCodeDecodeFailed, Message: strings.Join(res.Problems, "; ")}
	}
	return list, nil
}

// openStore opens the SQLite store.
func openStore(path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeStoreFailed, Message: err.Error()}
	}
	return st, nil
}

// chainProvider resolves names from each provider in turn. Only
// RelationDoesNotExist falls through to the next one.
func chainProvider(providers ...engine.Provider) engine.Provider {
	return engine.ProviderFunc(func(name ir.Name) (data.Relation, error) {
		for _, p := range providers {
			rel, err := p.Resolve(name)
			if err == nil {
				return rel, nil
			}
			if !ir.IsRelationDoesNotExist(err) {
				return nil, err
			}
		}
		return nil, ir.NewRelationDoesNotExistError(name)
	})
}

// codeOf returns the CLI error code of err.
func codeOf(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	if kind, ok := ir.KindOf(err); ok {
		return ErrorCodeForKind(kind)
	}
	if engine.IsRowLimitError(err) {
		return ErrCodeRowLimit
	}
	return ErrCodeGeneric
}

// report writes err in the configured format and returns an ExitError
// carrying exitCode and the error code.
func report(f *OutputFormatter, exitCode int, message string, err error) error {
	code := codeOf(err)
	_ = f.Error(code, fmt.Sprintf("%s: %v", message, err), nil)
	return WrapExitError(exitCode, code+": "+message, err)
}

// ctxOf returns the command context or a background context.
func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
