package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/relalg/internal/compiler"
	"github.com/roach88/relalg/internal/engine"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Query string // expressions file to type-check against the schema
	Expr  string
}

// InferredSchema is the result header of one checked expression.
type InferredSchema struct {
	Expression int             `json:"expression"`
	Binding    string          `json:"binding,omitempty"`
	Attributes []AttributeView `json:"attributes"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool                       `json:"valid"`
	Errors  []compiler.ValidationError `json:"errors,omitempty"`
	Results []InferredSchema           `json:"results,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "check <schema>",
		Aliases: []string{"validate"},
		Short:   "Validate a CUE schema and type-check expressions",
		Long: `Validate CUE relation declarations and facts without evaluating anything.

All declaration errors are reported, not just the first. With --query or
--expr the expressions are type-checked against the declared relations and
the schema of every result is printed.

Examples:
  relalg check schema.cue
  relalg check ./schemas --query query.yaml
  relalg check schema.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "expressions file to type-check")
	cmd.Flags().StringVarP(&opts.Expr, "expr", "e", "", "expressions as inline YAML to type-check")

	return cmd
}

func runCheck(opts *CheckOptions, schemaPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	value, count, err := BuildSchemaValue(schemaPath)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", count, schemaPath)

	if errs := compiler.Validate(value); len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	result := ValidationResult{Valid: true}
	if opts.Query != "" || opts.Expr != "" {
		var args []string
		if opts.Query != "" {
			args = []string{opts.Query}
		}
		list, err := readExpressions(cmd, args, opts.Expr)
		if err != nil {
			return report(formatter, ExitCommandError, "invalid expressions", err)
		}

		sch, err := compiler.CompileSchema(value)
		if err != nil {
			return report(formatter, ExitCommandError, "invalid schema", convertCompileError(err, "relations"))
		}
		schemas, err := engine.InferList(list, sch)
		if err != nil {
			return report(formatter, ExitFailure, "type check failed", err)
		}
		for i, rs := range schemas {
			formatter.VerboseLog("Checked expression %d", i)
			result.Results = append(result.Results, InferredSchema{
				Expression: i,
				Binding:    list[i].Name.String(),
				Attributes: attributeViews(rs),
			})
		}
	}

	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ Schema valid")
	for _, r := range result.Results {
		cols := make([]string, len(r.Attributes))
		for i, a := range r.Attributes {
			cols[i] = a.Name + ":" + a.Domain
		}
		label := fmt.Sprintf("$%d", r.Expression)
		if r.Binding != "" {
			label = r.Binding
		}
		fmt.Fprintf(formatter.Writer, "  %s(%s)\n", label, strings.Join(cols, ", "))
	}
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Unreadable sources are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// ValidateSchema validates the schema at path.
// This is a helper function for external callers.
func ValidateSchema(path string) ([]compiler.ValidationError, error) {
	value, _, err := BuildSchemaValue(path)
	if err != nil {
		return nil, err
	}
	return compiler.Validate(value), nil
}
