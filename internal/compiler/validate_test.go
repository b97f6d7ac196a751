package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Relation Declaration Validation Tests
// =============================================================================

func TestValidateValid(t *testing.T) {
	v := compile(t, `
		relations: people: { id: "integer", name: "string" }
		facts: people: [[1, "Ann"]]
	`)

	errs := Validate(v)
	assert.Empty(t, errs, "valid source should have no errors")
}

func TestValidateNoRelations(t *testing.T) {
	errs := Validate(compile(t, `facts: {}`))

	assert.Len(t, errs, 1)
	assert.Equal(t, ErrNoRelations, errs[0].Code)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	v := compile(t, `
		relations: {
			people: { id: "integer", name: "text" }
			empty: {}
			"bad-name": { a: int }
		}
		facts: {
			people: [["x", "Ann"], [1]]
			ghosts: [[1]]
		}
	`)

	errs := Validate(v)
	codes := make([]string, len(errs))
	for i, e := range errs {
		codes[i] = e.Code
	}

	assert.Contains(t, codes, ErrInvalidDomain)
	assert.Contains(t, codes, ErrNullaryRelation)
	assert.Contains(t, codes, ErrInvalidName)
	assert.Contains(t, codes, ErrInvalidFactValue)
	assert.Contains(t, codes, ErrFactArity)
	assert.Contains(t, codes, ErrUndeclaredFacts)
}

func TestValidateFactErrorFields(t *testing.T) {
	v := compile(t, `
		relations: people: { id: "integer", name: "string" }
		facts: people: [[1, "Ann"], ["two", "Bob"], [3]]
	`)

	errs := Validate(v)
	assert.Equal(t, []ValidationError{
		{Field: "facts.people[1][0]", Message: errs[0].Message, Code: ErrInvalidFactValue, Line: errs[0].Line},
		{Field: "facts.people[2]", Message: "expected 2 values, got 1", Code: ErrFactArity, Line: errs[1].Line},
	}, errs)
	assert.Greater(t, errs[0].Line, 0)
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Field: "relations.r", Message: "boom", Code: ErrNullaryRelation, Line: 3}
	assert.Equal(t, "[E102] line 3: relations.r: boom", e.Error())

	e.Line = 0
	assert.Equal(t, "[E102] relations.r: boom", e.Error())
}
