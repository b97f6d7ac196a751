package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/relalg/internal/compiler"
	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/schema"
)

// LoadResult contains the relations declared by a CUE schema source.
type LoadResult struct {
	Schema    *schema.SimpleSchema
	Catalog   *data.Catalog // declared relations holding their facts
	CUEValue  cue.Value     // The raw CUE value for additional processing
	FileCount int           // Number of CUE files found
}

// LoadError represents an error that occurred while loading a schema.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
	Line    int       // line from validation when Pos is unknown
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// BuildSchemaValue loads the CUE source at path without compiling it.
// A directory is loaded as one package instance; a file on its own.
func BuildSchemaValue(path string) (cue.Value, int, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema not found: %s", path)}
	}
	if err != nil {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema: %v", err)}
	}

	var (
		args     []string
		cfg      *load.Config
		cueFiles []string
	)
	if info.IsDir() {
		cueFiles, err = FindCUEFiles(path)
		if err != nil {
			return cue.Value{}, 0, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(cueFiles) == 0 {
			return cue.Value{}, 0, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
		args, cfg = []string{"."}, &load.Config{Dir: path}
	} else {
		cueFiles = []string{path}
		args, cfg = []string{filepath.Base(path)}, &load.Config{Dir: filepath.Dir(path)}
	}

	instances := load.Instances(args, cfg)
	if len(instances) == 0 {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return value, len(cueFiles), nil
}

// LoadSchema loads, validates and compiles the CUE schema at path.
// Validation failures are reported as a LoadError carrying the first
// validation code.
func LoadSchema(path string) (*LoadResult, error) {
	value, count, err := BuildSchemaValue(path)
	if err != nil {
		return nil, err
	}

	if errs := compiler.Validate(value); len(errs) > 0 {
		first := errs[0]
		return nil, &LoadError{
			Code:    first.Code,
			Message: fmt.Sprintf("%s: %s", first.Field, first.Message),
			Line:    first.Line,
		}
	}

	sch, err := compiler.CompileSchema(value)
	if err != nil {
		return nil, convertCompileError(err, "relations")
	}
	catalog, err := compiler.CompileFacts(value, sch)
	if err != nil {
		return nil, convertCompileError(err, "facts")
	}

	return &LoadResult{
		Schema:    sch,
		Catalog:   catalog,
		CUEValue:  value,
		FileCount: count,
	}, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	if kind, ok := ir.KindOf(err); ok {
		return &LoadError{Code: ErrorCodeForKind(kind), Message: fmt.Sprintf("%s: %v", context, err)}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeNoFiles      = "E003" // No CUE files found
	ErrCodeLoadFailed   = "E004" // CUE load failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeBuildFailed  = "E006" // CUE build failed
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeDecodeFailed = "E008" // Expression file could not be decoded
	ErrCodeStoreFailed  = "E009" // Store open/read/write error
	ErrCodeDataFailed   = "E010" // Data file could not be ingested

	// Evaluation errors, one per ir.Kind
	ErrCodeInvalidName            = "E201"
	ErrCodeRelationDoesNotExist   = "E202"
	ErrCodeAttributeDoesNotExist  = "E203"
	ErrCodeAttributeIndexInvalid  = "E204"
	ErrCodeIncompatibleTypes      = "E205"
	ErrCodeInvalidValue           = "E206"
	ErrCodeNullaryFactsNotAllowed = "E207"
	ErrCodeDuplicateName          = "E208"
	ErrCodeRowLimit               = "E209"
)

// ErrorCodeForKind maps an evaluation error kind to its CLI code.
func ErrorCodeForKind(kind ir.Kind) string {
	switch kind {
	case ir.KindInvalidName:
		return ErrCodeInvalidName
	case ir.KindRelationDoesNotExist:
		return ErrCodeRelationDoesNotExist
	case ir.KindAttributeDoesNotExist:
		return ErrCodeAttributeDoesNotExist
	case ir.KindAttributeIndexInvalid:
		return ErrCodeAttributeIndexInvalid
	case ir.KindIncompatibleTypes:
		return ErrCodeIncompatibleTypes
	case ir.KindInvalidValue:
		return ErrCodeInvalidValue
	case ir.KindNullaryFactsNotAllowed:
		return ErrCodeNullaryFactsNotAllowed
	case ir.KindDuplicateName:
		return ErrCodeDuplicateName
	default:
		return ErrCodeGeneric
	}
}

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return compiler.ErrInvalidSource
	case field == "relations":
		return compiler.ErrNoRelations
	case strings.HasPrefix(field, "facts"):
		return compiler.ErrInvalidFactValue
	case strings.HasPrefix(field, "relations"):
		return compiler.ErrInvalidDomain
	default:
		return ErrCodeGeneric
	}
}
