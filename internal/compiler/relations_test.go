package compiler

import (
	"errors"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/schema"
)

func compile(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src, cue.Filename("test.cue"))
	require.NoError(t, v.Err())
	return v
}

func TestCompileRelationBasic(t *testing.T) {
	v := compile(t, `
		relations: people: {
			id:   "integer"
			name: "string"
		}
	`)

	rs, err := CompileRelation(v.LookupPath(cue.ParsePath("relations.people")))
	require.NoError(t, err)

	assert.Equal(t, ir.Name("people"), rs.Name())
	assert.Equal(t, []ir.Name{"id", "name"}, schema.Names(rs))
	assert.Equal(t, []ir.Domain{ir.DomainInteger, ir.DomainString}, schema.Domains(rs))
}

func TestCompileRelationCUETypes(t *testing.T) {
	v := compile(t, `
		relations: readings: {
			sensor: int
			value:  float
			label:  string
			ok:     bool
			raw:    bytes
			unit:   "char"
		}
	`)

	rs, err := CompileRelation(v.LookupPath(cue.ParsePath("relations.readings")))
	require.NoError(t, err)
	assert.Equal(t, []ir.Domain{
		ir.DomainInteger, ir.DomainFloat, ir.DomainString,
		ir.DomainBoolean, ir.DomainBinary, ir.DomainChar,
	}, schema.Domains(rs))
}

func TestCompileRelationErrors(t *testing.T) {
	testCases := []struct {
		name  string
		src   string
		field string
	}{
		{"unknown domain", `relations: r: { a: "decimal" }`, "relations.r.a"},
		{"non-string literal", `relations: r: { a: 12 }`, "relations.r.a"},
		{"invalid attribute name", `relations: r: { "1a": "integer" }`, "relations.r."},
		{"nullary", `relations: r: {}`, "relations.r"},
		{"struct attribute", `relations: r: { a: { b: int } }`, "relations.r.a"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := compile(t, tc.src)
			_, err := CompileRelation(v.LookupPath(cue.ParsePath("relations.r")))
			require.Error(t, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce), "want *CompileError, got %T", err)
			assert.True(t, strings.HasPrefix(ce.Field, tc.field), "field %q", ce.Field)
		})
	}
}

func TestCompileErrorHasPosition(t *testing.T) {
	v := compile(t, "relations: r: {\n\ta: \"decimal\"\n}\n")

	_, err := CompileRelation(v.LookupPath(cue.ParsePath("relations.r")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test.cue:2:")
}

func TestCompileSchema(t *testing.T) {
	v := compile(t, `
		relations: {
			people: { id: "integer", name: "string" }
			visits: { id: "integer", place: "string" }
		}
	`)

	sch, err := CompileSchema(v)
	require.NoError(t, err)
	assert.Equal(t, 2, sch.Len())

	rs, ok := sch.Relation("visits")
	require.True(t, ok)
	assert.Equal(t, []ir.Name{"id", "place"}, schema.Names(rs))
}

func TestCompileSchemaEmpty(t *testing.T) {
	sch, err := CompileSchema(compile(t, `other: 1`))
	require.NoError(t, err)
	assert.Equal(t, 0, sch.Len())
}

func TestCompileFacts(t *testing.T) {
	v := compile(t, `
		relations: {
			people: { id: "integer", name: "string" }
			visits: { id: "integer", place: "string" }
			flags:  { code: "byte", big: "unsigned", ratio: float, bits: "binary" }
		}
		facts: {
			people: [[1, "Ann"], [2, "Bob"], [1, "Ann"]]
			flags:  [["0x0f", 18446744073709551615, 0.5, "x'00ff'"]]
		}
	`)

	sch, err := CompileSchema(v)
	require.NoError(t, err)
	catalog, err := CompileFacts(v, sch)
	require.NoError(t, err)

	people, err := catalog.Resolve("people")
	require.NoError(t, err)
	assert.Equal(t, 2, people.Len(), "duplicate facts collapse")

	visits, err := catalog.Resolve("visits")
	require.NoError(t, err)
	assert.Equal(t, 0, visits.Len(), "declared relations without facts are empty")

	flags, err := catalog.Resolve("flags")
	require.NoError(t, err)
	for tuple := range flags.Tuples() {
		assert.Equal(t, []ir.Value{
			ir.Byte(0x0f), ir.UnsignedInteger(18446744073709551615), ir.Float(0.5), ir.Binary{0x00, 0xff},
		}, tuple.Values())
	}
}

func TestCompileFactsErrors(t *testing.T) {
	testCases := []struct {
		name  string
		facts string
		field string
	}{
		{"undeclared", `facts: ghosts: [[1]]`, "facts.ghosts"},
		{"wrong domain", `facts: people: [["one", "Ann"]]`, "facts.people[0][0]"},
		{"too many values", `facts: people: [[1, "Ann", true]]`, "facts.people[0]"},
		{"too few values", `facts: people: [[1]]`, "facts.people[0]"},
		{"fractional integer", `facts: people: [[1.5, "Ann"]]`, "facts.people[0][0]"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := compile(t, `relations: people: { id: "integer", name: "string" }`+"\n"+tc.facts)
			sch, err := CompileSchema(v)
			require.NoError(t, err)

			_, err = CompileFacts(v, sch)
			require.Error(t, err)
			var ce *CompileError
			require.True(t, errors.As(err, &ce), "want *CompileError, got %T", err)
			assert.Equal(t, tc.field, ce.Field)
		})
	}
}
