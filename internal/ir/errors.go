package ir

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes relational algebra errors.
type Kind string

const (
	// KindInvalidName indicates an identifier failed validation.
	KindInvalidName Kind = "INVALID_NAME"

	// KindRelationDoesNotExist indicates a relation name could not be resolved.
	KindRelationDoesNotExist Kind = "RELATION_DOES_NOT_EXIST"

	// KindAttributeDoesNotExist indicates an attribute name is absent from
	// (or ambiguous within) a relation schema.
	KindAttributeDoesNotExist Kind = "ATTRIBUTE_DOES_NOT_EXIST"

	// KindAttributeIndexInvalid indicates a positional attribute reference
	// is out of range.
	KindAttributeIndexInvalid Kind = "ATTRIBUTE_INDEX_INVALID"

	// KindIncompatibleTypes indicates a domain or arity mismatch in a
	// comparison, set operation, or tuple.
	KindIncompatibleTypes Kind = "INCOMPATIBLE_TYPES"

	// KindInvalidValue indicates a literal does not conform to its domain.
	KindInvalidValue Kind = "INVALID_VALUE"

	// KindNullaryFactsNotAllowed indicates a schema or projection would have
	// zero attributes.
	KindNullaryFactsNotAllowed Kind = "NULLARY_FACTS_NOT_ALLOWED"

	// KindDuplicateName indicates two attributes or relations share a name
	// where names must be unique.
	KindDuplicateName Kind = "DUPLICATE_NAME"
)

// Error is the typed failure reported by schema construction, IR
// construction, and evaluation.
//
// The offending name, index, value, or domain pair is carried in
// structured fields so hosts can surface it verbatim.
type Error struct {
	// Kind identifies the error category.
	Kind Kind

	// Name is the offending relation or attribute name, if any.
	Name string

	// Index is the offending attribute position. Valid only if HasIndex.
	Index int

	// HasIndex reports whether Index is meaningful.
	HasIndex bool

	// Arity is the arity the index was checked against, if any.
	Arity int

	// Expected and Actual are the domains involved in a type mismatch.
	Expected Domain
	Actual   Domain

	// Value is the offending literal text, if any.
	Value string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var details []string
	if e.Name != "" {
		details = append(details, fmt.Sprintf("name=%s", e.Name))
	}
	if e.HasIndex {
		details = append(details, fmt.Sprintf("index=%d", e.Index))
	}
	switch {
	case e.Expected.IsValid() && e.Actual.IsValid():
		details = append(details, fmt.Sprintf("expected=%s, actual=%s", e.Expected, e.Actual))
	case e.Expected.IsValid():
		details = append(details, fmt.Sprintf("expected=%s", e.Expected))
	}
	if e.Value != "" {
		details = append(details, fmt.Sprintf("value=%q", e.Value))
	}
	if len(details) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, strings.Join(details, ", "))
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func isKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsInvalidName returns true if err is an invalid-name error.
// Uses errors.As to handle wrapped errors.
func IsInvalidName(err error) bool { return isKind(err, KindInvalidName) }

// IsRelationDoesNotExist returns true if err reports an unknown relation.
func IsRelationDoesNotExist(err error) bool { return isKind(err, KindRelationDoesNotExist) }

// IsAttributeDoesNotExist returns true if err reports an unknown attribute name.
func IsAttributeDoesNotExist(err error) bool { return isKind(err, KindAttributeDoesNotExist) }

// IsAttributeIndexInvalid returns true if err reports an out-of-range index.
func IsAttributeIndexInvalid(err error) bool { return isKind(err, KindAttributeIndexInvalid) }

// IsIncompatibleTypes returns true if err reports a domain or arity mismatch.
func IsIncompatibleTypes(err error) bool { return isKind(err, KindIncompatibleTypes) }

// IsInvalidValue returns true if err reports a non-conforming literal.
func IsInvalidValue(err error) bool { return isKind(err, KindInvalidValue) }

// IsNullaryFactsNotAllowed returns true if err reports a zero-attribute shape.
func IsNullaryFactsNotAllowed(err error) bool { return isKind(err, KindNullaryFactsNotAllowed) }

// IsDuplicateName returns true if err reports a name collision.
func IsDuplicateName(err error) bool { return isKind(err, KindDuplicateName) }

// NewInvalidNameError creates an Error for an identifier that fails validation.
func NewInvalidNameError(s string) *Error {
	return &Error{
		Kind:    KindInvalidName,
		Message: "invalid identifier",
		Value:   s,
	}
}

// NewRelationDoesNotExistError creates an Error for an unresolvable relation.
func NewRelationDoesNotExistError(name Name) *Error {
	return &Error{
		Kind:    KindRelationDoesNotExist,
		Message: "relation does not exist",
		Name:    name.String(),
	}
}

// NewAttributeDoesNotExistError creates an Error for an unknown attribute name.
func NewAttributeDoesNotExistError(name Name) *Error {
	return &Error{
		Kind:    KindAttributeDoesNotExist,
		Message: "attribute does not exist",
		Name:    name.String(),
	}
}

// NewAmbiguousAttributeError creates an Error for a name that appears more
// than once in a derived schema.
func NewAmbiguousAttributeError(name Name) *Error {
	return &Error{
		Kind:    KindAttributeDoesNotExist,
		Message: "attribute name is ambiguous",
		Name:    name.String(),
	}
}

// NewAttributeIndexInvalidError creates an Error for an out-of-range index.
func NewAttributeIndexInvalidError(index, arity int) *Error {
	return &Error{
		Kind:     KindAttributeIndexInvalid,
		Message:  fmt.Sprintf("attribute index out of range for arity %d", arity),
		Index:    index,
		HasIndex: true,
		Arity:    arity,
	}
}

// NewIncompatibleTypesError creates an Error for a domain mismatch.
func NewIncompatibleTypesError(expected, actual Domain) *Error {
	return &Error{
		Kind:     KindIncompatibleTypes,
		Message:  "domains are not compatible",
		Expected: expected,
		Actual:   actual,
	}
}

// NewPositionTypesError creates an Error for a domain mismatch at a
// specific attribute position.
func NewPositionTypesError(index int, expected, actual Domain) *Error {
	e := NewIncompatibleTypesError(expected, actual)
	e.Index = index
	e.HasIndex = true
	return e
}

// NewArityMismatchError creates an Error for operands of differing arity.
// Arity mismatches are reported under KindIncompatibleTypes.
func NewArityMismatchError(lhs, rhs int) *Error {
	return &Error{
		Kind:    KindIncompatibleTypes,
		Message: fmt.Sprintf("arity mismatch (%d vs %d)", lhs, rhs),
		Arity:   lhs,
	}
}

// NewInvalidValueError creates an Error for a literal that does not conform
// to domain d.
func NewInvalidValueError(d Domain, text string) *Error {
	return &Error{
		Kind:     KindInvalidValue,
		Message:  fmt.Sprintf("value is not a valid %s", d),
		Expected: d,
		Value:    text,
	}
}

// NewNullaryFactsError creates an Error for a zero-attribute shape.
func NewNullaryFactsError(name Name) *Error {
	return &Error{
		Kind:    KindNullaryFactsNotAllowed,
		Message: "relations must have at least one attribute",
		Name:    name.String(),
	}
}

// NewDuplicateNameError creates an Error for a name collision.
func NewDuplicateNameError(name Name) *Error {
	return &Error{
		Kind:    KindDuplicateName,
		Message: "name is not unique",
		Name:    name.String(),
	}
}
