package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/relalg/internal/ir"
)

// ExpressionError reports which entry of an ExpressionList failed.
//
// Entries evaluated before Index keep their results and bindings in the
// ListResult returned alongside the error.
type ExpressionError struct {
	// Index is the position of the failed expression in the list.
	Index int

	// Name is the binding name of the failed expression, if any.
	Name ir.Name

	// Err is the underlying failure, usually an *ir.Error.
	Err error
}

// Error implements the error interface.
func (e *ExpressionError) Error() string {
	if !e.Name.IsZero() {
		return fmt.Sprintf("expression %d (%s): %v", e.Index, e.Name, e.Err)
	}
	return fmt.Sprintf("expression %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying failure so ir.IsX predicates see through.
func (e *ExpressionError) Unwrap() error {
	return e.Err
}

// IsIncompatible reports whether err is a schema conflict: a domain or
// arity mismatch (KindIncompatibleTypes) or a rename collision
// (KindDuplicateName).
func IsIncompatible(err error) bool {
	return ir.IsIncompatibleTypes(err) || ir.IsDuplicateName(err)
}

// AsExpressionError extracts the *ExpressionError from err's chain.
func AsExpressionError(err error) (*ExpressionError, bool) {
	var ee *ExpressionError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}
