package testutil

import (
	"bytes"
	"log/slog"

	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/schema"
)

// PeopleSchema returns people(id:integer, name:string).
func PeopleSchema() *schema.SimpleRelationSchema {
	return schema.MustRelationSchema("people",
		schema.Attr("id", ir.DomainInteger),
		schema.Attr("name", ir.DomainString),
	)
}

// VisitsSchema returns visits(id:integer, place:string).
func VisitsSchema() *schema.SimpleRelationSchema {
	return schema.MustRelationSchema("visits",
		schema.Attr("id", ir.DomainInteger),
		schema.Attr("place", ir.DomainString),
	)
}

// People returns {(1, "Ann"), (2, "Bob")}.
func People() *data.SimpleRelation {
	return data.MustFromRows(PeopleSchema(),
		[]ir.Value{ir.Integer(1), ir.String("Ann")},
		[]ir.Value{ir.Integer(2), ir.String("Bob")},
	)
}

// Visits returns {(1, "Paris"), (2, "Rome")}.
func Visits() *data.SimpleRelation {
	return data.MustFromRows(VisitsSchema(),
		[]ir.Value{ir.Integer(1), ir.String("Paris")},
		[]ir.Value{ir.Integer(2), ir.String("Rome")},
	)
}

// Catalog returns a catalog holding People and Visits.
func Catalog() *data.Catalog {
	return data.NewCatalog(People(), Visits())
}

// Row is shorthand for a value slice.
func Row(values ...ir.Value) []ir.Value {
	return values
}

// NewBufferLogger returns a JSON logger writing every level to the
// returned buffer, for asserting on log output.
func NewBufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), &buf
}
