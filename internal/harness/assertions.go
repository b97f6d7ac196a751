package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/ir"
)

// maxDescribedRows bounds the tuples listed in a failure message.
const maxDescribedRows = 20

// AssertionError is returned when an expectation or assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Query    string // Query the assertion is about
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s (query %s)\n", e.Type, e.Query)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	return buf.String()
}

// describeOutcome renders a result or failure for messages. Tuples are
// listed in value order.
func describeOutcome(rel *data.SimpleRelation, err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	if rel == nil {
		return "no result"
	}

	rows := data.SortedRows(rel)
	parts := make([]string, 0, min(len(rows), maxDescribedRows))
	for i, row := range rows {
		if i == maxDescribedRows {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, formatRow(row))
	}
	return fmt.Sprintf("%d tuples {%s}", len(rows), strings.Join(parts, ", "))
}

func formatRow(row []ir.Value) string {
	vals := make([]string, len(row))
	for i, v := range row {
		vals[i] = v.String()
	}
	return "(" + strings.Join(vals, ", ") + ")"
}

// assertErrorKind checks that the query failed with the given kind.
func assertErrorKind(query string, o *Outcome, kind ir.Kind) error {
	actual, ok := ir.KindOf(o.Err)
	if ok && actual == kind {
		return nil
	}
	return &AssertionError{
		Type:     AssertErrorKind,
		Query:    query,
		Expected: fmt.Sprintf("failure of kind %s", kind),
		Actual:   describeOutcome(o.Relation, o.Err),
	}
}

// succeeded returns the outcome of a query that must have evaluated.
func succeeded(result *Result, query, assertionType string) (*Outcome, error) {
	o, ok := result.Outcome(query)
	if !ok {
		return nil, fmt.Errorf("%s: unknown query %q", assertionType, query)
	}
	if o.Failed() {
		return nil, &AssertionError{
			Type:     assertionType,
			Query:    query,
			Expected: "a result",
			Actual:   describeOutcome(nil, o.Err),
		}
	}
	return o, nil
}

// assertResultEqual checks that two queries produce the same tuple set.
func assertResultEqual(result *Result, a Assertion) error {
	lhs, err := succeeded(result, a.Queries[0], a.Type)
	if err != nil {
		return err
	}
	rhs, err := succeeded(result, a.Queries[1], a.Type)
	if err != nil {
		return err
	}
	if data.SetEqual(lhs.Relation, rhs.Relation) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Query:    a.Queries[0],
		Expected: fmt.Sprintf("same tuples as %s: %s", a.Queries[1], describeOutcome(rhs.Relation, nil)),
		Actual:   describeOutcome(lhs.Relation, nil),
	}
}

// assertResultSubset checks that every tuple of the first query is in the
// second.
func assertResultSubset(result *Result, a Assertion) error {
	lhs, err := succeeded(result, a.Queries[0], a.Type)
	if err != nil {
		return err
	}
	rhs, err := succeeded(result, a.Queries[1], a.Type)
	if err != nil {
		return err
	}
	if data.SubsetOf(lhs.Relation, rhs.Relation) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Query:    a.Queries[0],
		Expected: fmt.Sprintf("subset of %s: %s", a.Queries[1], describeOutcome(rhs.Relation, nil)),
		Actual:   describeOutcome(lhs.Relation, nil),
	}
}

// assertResultCount checks the exact cardinality of a result.
func assertResultCount(result *Result, a Assertion) error {
	o, err := succeeded(result, a.Query, a.Type)
	if err != nil {
		return err
	}
	if o.Relation.Len() == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Query:    a.Query,
		Expected: fmt.Sprintf("%d tuples", a.Count),
		Actual:   describeOutcome(o.Relation, nil),
	}
}

// assertResultContains checks that a result holds the given row.
func assertResultContains(result *Result, a Assertion) error {
	o, err := succeeded(result, a.Query, a.Type)
	if err != nil {
		return err
	}
	values, err := convertRow(o.Relation.Schema(), a.Row)
	if err != nil {
		return fmt.Errorf("%s: row: %w", a.Type, err)
	}
	if o.Relation.Contains(values...) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Query:    a.Query,
		Expected: "contains " + formatRow(values),
		Actual:   describeOutcome(o.Relation, nil),
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertResultEqual:
			err = assertResultEqual(result, assertion)
		case AssertResultSubset:
			err = assertResultSubset(result, assertion)
		case AssertResultCount:
			err = assertResultCount(result, assertion)
		case AssertResultContains:
			err = assertResultContains(result, assertion)
		case AssertErrorKind:
			o, ok := result.Outcome(assertion.Query)
			if !ok {
				err = fmt.Errorf("assertion[%d]: unknown query %q", i, assertion.Query)
			} else {
				err = assertErrorKind(assertion.Query, o, ir.Kind(assertion.Kind))
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
