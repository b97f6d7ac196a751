package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/schema"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Evaluation or validation failure (query rejected, scenarios failed, etc.)
	ExitCommandError = 2 // Command error (invalid paths, unreadable files, etc.)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`           // "ok" or "error"
	Data   any       `json:"data,omitempty"`   // success payload
	Error  *CLIError `json:"error,omitempty"`  // error details
	RunID  string    `json:"run_id,omitempty"` // evaluation log correlation
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E202", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// AttributeView is the JSON form of one attribute.
type AttributeView struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// RelationView is the printable form of a relation. Cells use ir.Text;
// rows keep the relation's iteration order.
type RelationView struct {
	Name       string          `json:"name,omitempty"`
	Attributes []AttributeView `json:"attributes"`
	Rows       [][]string      `json:"rows"`
}

// NewRelationView converts rel for output.
func NewRelationView(rel data.Relation) RelationView {
	rs := rel.Schema()
	view := RelationView{
		Name:       rs.Name().String(),
		Attributes: attributeViews(rs),
		Rows:       make([][]string, 0, rel.Len()),
	}
	for t := range rel.Tuples() {
		cells := make([]string, t.Len())
		for i, v := range t.Values() {
			cells[i] = ir.Text(v)
		}
		view.Rows = append(view.Rows, cells)
	}
	return view
}

func attributeViews(rs schema.RelationSchema) []AttributeView {
	attrs := make([]AttributeView, rs.Arity())
	for i, a := range rs.Attributes() {
		attrs[i] = AttributeView{Name: a.Name().String(), Domain: a.Domain().String()}
	}
	return attrs
}

// header returns the column titles: the attribute name, or its position
// when anonymous.
func (v RelationView) header() []string {
	cols := make([]string, len(v.Attributes))
	for i, a := range v.Attributes {
		if a.Name == "" {
			cols[i] = fmt.Sprintf("#%d", i)
			continue
		}
		cols[i] = a.Name
	}
	return cols
}

// Relation outputs a relation in the configured format: a CLIResponse in
// json, a bordered table in table, tab-separated lines in text.
func (f *OutputFormatter) Relation(rel data.Relation, runID string) error {
	view := NewRelationView(rel)
	switch f.Format {
	case "json":
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   view,
			RunID:  runID,
		})
	case "table":
		return renderTable(f.Writer, view)
	default:
		return renderText(f.Writer, view)
	}
}

func renderTable(w io.Writer, view RelationView) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	cols := view.header()
	headerRow := make(table.Row, len(cols))
	for i, col := range cols {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, cells := range view.Rows {
		row := make(table.Row, len(cells))
		for i, c := range cells {
			row[i] = c
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d tuples)\n", len(view.Rows))
	return nil
}

func renderText(w io.Writer, view RelationView) error {
	_, _ = fmt.Fprintln(w, strings.Join(view.header(), "\t"))
	for _, cells := range view.Rows {
		_, _ = fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_, _ = fmt.Fprintf(w, "(%d tuples)\n", len(view.Rows))
	return nil
}
