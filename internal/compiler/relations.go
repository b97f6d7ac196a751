package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/schema"
)

// CompileRelation parses a CUE struct into a relation schema.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the relation struct itself; its label is the
// relation name and its fields, in declaration order, are the attributes:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`relations: people: { id: "integer", name: "string" }`)
//	rs, err := CompileRelation(v.LookupPath(cue.ParsePath("relations.people")))
//
// An attribute is either a domain name ("integer", "string", ...) or a CUE
// type (int, float, string, bool, bytes).
func CompileRelation(v cue.Value) (*schema.SimpleRelationSchema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	label := labelOf(v)
	name, err := ir.ParseName(label)
	if err != nil {
		return nil, &CompileError{
			Field:   "relations." + label,
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var attrs []schema.AttributeSchema
	for iter.Next() {
		field := fmt.Sprintf("relations.%s.%s", name, iter.Label())
		attrName, err := ir.ParseName(iter.Label())
		if err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: iter.Value().Pos()}
		}
		d, err := extractDomain(iter.Value(), field)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, schema.Attr(attrName, d))
	}

	rs, err := schema.NewRelationSchema(name, attrs...)
	if err != nil {
		return nil, &CompileError{
			Field:   "relations." + name.String(),
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}
	return rs, nil
}

// CompileSchema compiles every relation under the top-level "relations"
// field of v. A missing field yields an empty schema.
func CompileSchema(v cue.Value) (*schema.SimpleSchema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	sch, err := schema.NewSchema()
	if err != nil {
		return nil, err
	}

	relationsVal := v.LookupPath(cue.ParsePath("relations"))
	if !relationsVal.Exists() {
		return sch, nil
	}

	iter, err := relationsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		rs, err := CompileRelation(iter.Value())
		if err != nil {
			return nil, err
		}
		if err := sch.Add(rs); err != nil {
			return nil, &CompileError{Field: "relations." + iter.Label(), Message: err.Error(), Pos: iter.Value().Pos()}
		}
	}
	return sch, nil
}

// CompileFacts compiles inline tuples under the top-level "facts" field:
//
//	facts: people: [[1, "Ann"], [2, "Bob"]]
//
// Every fact relation must be declared in sch. Declared relations without
// facts are returned empty, so the catalog always covers the whole schema.
func CompileFacts(v cue.Value, sch schema.Schema) (*data.Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	relations := make(map[ir.Name]*data.SimpleRelation)
	catalog := data.NewCatalog()
	for _, rs := range sch.Relations() {
		rel := data.NewRelation(rs)
		relations[rs.Name()] = rel
		catalog.Put(rs.Name(), rel)
	}

	factsVal := v.LookupPath(cue.ParsePath("facts"))
	if !factsVal.Exists() {
		return catalog, nil
	}

	iter, err := factsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		field := "facts." + iter.Label()
		rel, ok := relations[ir.NameUnchecked(iter.Label())]
		if !ok {
			return nil, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("relation %q is not declared", iter.Label()),
				Pos:     iter.Value().Pos(),
			}
		}
		if err := compileTuples(iter.Value(), rel, field); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

func compileTuples(v cue.Value, rel *data.SimpleRelation, field string) error {
	rows, err := v.List()
	if err != nil {
		return formatCUEError(err)
	}

	rs := rel.Schema()
	for i := 0; rows.Next(); i++ {
		rowField := fmt.Sprintf("%s[%d]", field, i)
		cells, err := rows.Value().List()
		if err != nil {
			return formatCUEError(err)
		}

		var values []ir.Value
		for j := 0; cells.Next(); j++ {
			if j >= rs.Arity() {
				return &CompileError{
					Field:   rowField,
					Message: fmt.Sprintf("too many values for %s", schema.Format(rs)),
					Pos:     cells.Value().Pos(),
				}
			}
			val, err := extractValue(cells.Value(), rs.Attribute(j).Domain())
			if err != nil {
				return &CompileError{
					Field:   fmt.Sprintf("%s[%d]", rowField, j),
					Message: err.Error(),
					Pos:     cells.Value().Pos(),
				}
			}
			values = append(values, val)
		}
		if _, err := rel.Insert(values...); err != nil {
			return &CompileError{Field: rowField, Message: err.Error(), Pos: rows.Value().Pos()}
		}
	}
	return nil
}

// extractDomain converts an attribute declaration to a domain.
func extractDomain(v cue.Value, field string) (ir.Domain, error) {
	if v.IsConcrete() {
		s, err := v.String()
		if err != nil {
			return ir.DomainUnknown, &CompileError{
				Field:   field,
				Message: "attribute type must be a domain name or a CUE type",
				Pos:     v.Pos(),
			}
		}
		d, err := ir.ParseDomain(s)
		if err != nil {
			return ir.DomainUnknown, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		return d, nil
	}

	switch v.IncompleteKind() {
	case cue.IntKind:
		return ir.DomainInteger, nil
	case cue.FloatKind, cue.NumberKind:
		return ir.DomainFloat, nil
	case cue.StringKind:
		return ir.DomainString, nil
	case cue.BoolKind:
		return ir.DomainBoolean, nil
	case cue.BytesKind:
		return ir.DomainBinary, nil
	default:
		return ir.DomainUnknown, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// extractValue converts a concrete CUE value to a value of domain d.
// Strings are parsed with ir.ParseValue, so "x'00ff'" is a binary value and
// "λ" a char.
func extractValue(v cue.Value, d ir.Domain) (ir.Value, error) {
	switch v.Kind() {
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, err
		}
		return ir.Convert(d, b)
	case cue.IntKind:
		if n, err := v.Int64(); err == nil {
			return ir.Convert(d, n)
		}
		n, err := v.Uint64()
		if err != nil {
			return nil, err
		}
		return ir.Convert(d, n)
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return ir.Convert(d, f)
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, err
		}
		return ir.Convert(d, s)
	case cue.BytesKind:
		b, err := v.Bytes()
		if err != nil {
			return nil, err
		}
		return ir.Convert(d, b)
	default:
		return nil, ir.NewInvalidValueError(d, fmt.Sprint(v))
	}
}

func labelOf(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	return sels[len(sels)-1].String()
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
