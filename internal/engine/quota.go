package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/relalg/internal/queryir"
)

// rowQuota bounds the size of every intermediate result of one run.
//
// Products and joins can grow multiplicatively; the quota turns a runaway
// evaluation into a typed error instead of an out-of-memory crash.
// A zero limit disables the check.
type rowQuota struct {
	maxRows int // Maximum tuples per operator result (0 = unlimited)
}

// Check validates an operator's result size against the limit.
//
// Returns *RowLimitError if the quota is exceeded.
func (q rowQuota) Check(op queryir.Kind, rows int) error {
	if q.maxRows > 0 && rows > q.maxRows {
		return &RowLimitError{Op: op, Rows: rows, MaxRows: q.maxRows}
	}
	return nil
}

// RowLimitError is returned when an operator produces more tuples than the
// evaluator's configured limit (WithMaxRows).
//
// Like every evaluation failure it aborts the enclosing evaluation call.
type RowLimitError struct {
	Op      queryir.Kind // Operator that exceeded the quota
	Rows    int          // Tuples produced
	MaxRows int          // Configured limit
}

// Error implements the error interface.
func (e *RowLimitError) Error() string {
	return fmt.Sprintf("ROW_LIMIT_EXCEEDED: %s produced %d rows (max %d)", e.Op, e.Rows, e.MaxRows)
}

// IsRowLimitError returns true if the error is a RowLimitError.
// Uses errors.As to handle wrapped errors.
func IsRowLimitError(err error) bool {
	var re *RowLimitError
	return errors.As(err, &re)
}
