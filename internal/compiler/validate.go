package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/relalg/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrInvalidSource = "E100" // CUE value has errors

	// Relation declaration errors (E101-E105)
	ErrNoRelations       = "E101" // no relations declared
	ErrNullaryRelation   = "E102" // relation declares no attributes
	ErrInvalidName       = "E103" // relation or attribute name is not a valid Name
	ErrInvalidDomain     = "E104" // attribute type is not a domain
	ErrDuplicateName     = "E105" // two attributes normalize to the same name
	ErrUndeclaredFacts   = "E106" // facts for a relation that is not declared
	ErrFactArity         = "E107" // fact tuple has the wrong number of values
	ErrInvalidFactValue  = "E108" // fact value does not belong to the attribute domain
	ErrMalformedFactList = "E109" // facts are not a list of lists
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a schema source against declaration rules.
// Returns all errors found (does not fail-fast), in source order.
func Validate(v cue.Value) []ValidationError {
	if err := v.Err(); err != nil {
		return []ValidationError{fromError(ErrInvalidSource, "cue", formatCUEError(err))}
	}

	var errs []ValidationError
	declared := make(map[string][]string) // relation -> domain names, in order

	relationsVal := v.LookupPath(cue.ParsePath("relations"))
	iter, err := relationsVal.Fields()
	if !relationsVal.Exists() || err != nil {
		errs = append(errs, ValidationError{
			Field:   "relations",
			Message: "at least one relation must be declared",
			Code:    ErrNoRelations,
		})
	} else {
		count := 0
		for iter.Next() {
			count++
			errs = append(errs, validateRelation(iter.Label(), iter.Value(), declared)...)
		}
		if count == 0 {
			errs = append(errs, ValidationError{
				Field:   "relations",
				Message: "at least one relation must be declared",
				Code:    ErrNoRelations,
				Line:    relationsVal.Pos().Line(),
			})
		}
	}

	factsVal := v.LookupPath(cue.ParsePath("facts"))
	if factsVal.Exists() {
		errs = append(errs, validateFacts(factsVal, declared)...)
	}
	return errs
}

func validateRelation(label string, v cue.Value, declared map[string][]string) []ValidationError {
	var errs []ValidationError
	field := "relations." + label

	// E103: relation name
	if !ir.IsValidName(label) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("invalid relation name %q", label),
			Code:    ErrInvalidName,
			Line:    v.Pos().Line(),
		})
	}

	iter, err := v.Fields()
	if err != nil {
		return append(errs, fromError(ErrInvalidDomain, field, err))
	}

	var domains []string
	seen := make(map[ir.Name]bool)
	for iter.Next() {
		attrField := field + "." + iter.Label()
		line := iter.Value().Pos().Line()

		name, err := ir.ParseName(iter.Label())
		switch {
		case err != nil:
			errs = append(errs, ValidationError{
				Field:   attrField,
				Message: fmt.Sprintf("invalid attribute name %q", iter.Label()),
				Code:    ErrInvalidName,
				Line:    line,
			})
		case seen[name]:
			// E105: labels differ in CUE but normalize to one name
			errs = append(errs, ValidationError{
				Field:   attrField,
				Message: fmt.Sprintf("duplicate attribute name %q", name),
				Code:    ErrDuplicateName,
				Line:    line,
			})
		default:
			seen[name] = true
		}

		d, err := extractDomain(iter.Value(), attrField)
		if err != nil {
			errs = append(errs, fromError(ErrInvalidDomain, attrField, err))
			domains = append(domains, "")
			continue
		}
		domains = append(domains, d.String())
	}

	// E102: nullary relations hold no facts
	if len(domains) == 0 {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: "relation must declare at least one attribute",
			Code:    ErrNullaryRelation,
			Line:    v.Pos().Line(),
		})
	}
	declared[label] = domains
	return errs
}

func validateFacts(v cue.Value, declared map[string][]string) []ValidationError {
	var errs []ValidationError

	iter, err := v.Fields()
	if err != nil {
		return []ValidationError{fromError(ErrMalformedFactList, "facts", err)}
	}
	for iter.Next() {
		field := "facts." + iter.Label()
		domains, ok := declared[iter.Label()]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("relation %q is not declared", iter.Label()),
				Code:    ErrUndeclaredFacts,
				Line:    iter.Value().Pos().Line(),
			})
			continue
		}

		rows, err := iter.Value().List()
		if err != nil {
			errs = append(errs, fromError(ErrMalformedFactList, field, err))
			continue
		}
		for i := 0; rows.Next(); i++ {
			rowField := fmt.Sprintf("%s[%d]", field, i)
			cells, err := rows.Value().List()
			if err != nil {
				errs = append(errs, fromError(ErrMalformedFactList, rowField, err))
				continue
			}
			n := 0
			for ; cells.Next(); n++ {
				if n >= len(domains) || domains[n] == "" {
					continue
				}
				d, _ := ir.ParseDomain(domains[n])
				if _, err := extractValue(cells.Value(), d); err != nil {
					errs = append(errs, ValidationError{
						Field:   fmt.Sprintf("%s[%d]", rowField, n),
						Message: err.Error(),
						Code:    ErrInvalidFactValue,
						Line:    cells.Value().Pos().Line(),
					})
				}
			}
			if n != len(domains) {
				errs = append(errs, ValidationError{
					Field:   rowField,
					Message: fmt.Sprintf("expected %d values, got %d", len(domains), n),
					Code:    ErrFactArity,
					Line:    rows.Value().Pos().Line(),
				})
			}
		}
	}
	return errs
}

// fromError converts a compile error to a ValidationError, keeping the
// source line when the error carries a position.
func fromError(code, field string, err error) ValidationError {
	if ce, ok := err.(*CompileError); ok {
		return ValidationError{Field: ce.Field, Message: ce.Message, Code: code, Line: ce.Pos.Line()}
	}
	return ValidationError{Field: field, Message: err.Error(), Code: code}
}
