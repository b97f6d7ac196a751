package loader

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/linkedin/goavro/v2"

	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/schema"
)

// schemaMetaKey is the OCF metadata entry WriteAvro uses to record the
// exact relation schema. Avro has no unsigned, byte or char types, so the
// entry is what makes a written file load back losslessly.
const schemaMetaKey = "relalg.schema"

type metaAttribute struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

type avroField struct {
	Name string `json:"name"`
	Type any    `json:"type"`
}

type avroRecord struct {
	Type   string      `json:"type"`
	Name   string      `json:"name"`
	Fields []avroField `json:"fields"`
}

// InferAvroSchema reads the header of an Avro object container file and
// returns the relation schema of its records.
//
// Files written by WriteAvro carry their schema in metadata. For other
// files, field types map as: boolean to boolean, int and long to integer,
// float and double to float, string to string, bytes and fixed to binary.
// A union with null maps to its non-null branch.
func InferAvroSchema(name ir.Name, r io.Reader) (*schema.SimpleRelationSchema, error) {
	ocfr, err := goavro.NewOCFReader(r)
	if err != nil {
		return nil, fmt.Errorf("cannot read Avro file: %w", err)
	}
	return avroRelationSchema(name, ocfr)
}

func avroRelationSchema(name ir.Name, ocfr *goavro.OCFReader) (*schema.SimpleRelationSchema, error) {
	if raw, ok := ocfr.MetaData()[schemaMetaKey]; ok {
		var attrs []metaAttribute
		if err := json.Unmarshal(raw, &attrs); err != nil {
			return nil, fmt.Errorf("invalid %s metadata: %w", schemaMetaKey, err)
		}
		out := make([]schema.AttributeSchema, len(attrs))
		for i, a := range attrs {
			d, err := ir.ParseDomain(a.Domain)
			if err != nil {
				return nil, fmt.Errorf("invalid %s metadata: %w", schemaMetaKey, err)
			}
			if a.Name == "" {
				out[i] = schema.Anonymous(d)
				continue
			}
			n, err := ir.ParseName(a.Name)
			if err != nil {
				return nil, err
			}
			out[i] = schema.Attr(n, d)
		}
		// Derived results may carry anonymous attributes.
		return schema.Derived(name, out...), nil
	}

	var rec avroRecord
	if err := json.Unmarshal([]byte(ocfr.Codec().Schema()), &rec); err != nil {
		return nil, fmt.Errorf("cannot parse Avro schema: %w", err)
	}
	if rec.Type != "record" {
		return nil, fmt.Errorf("avro schema must be a record, got %q", rec.Type)
	}
	attrs := make([]schema.AttributeSchema, len(rec.Fields))
	for i, f := range rec.Fields {
		d, err := avroDomain(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		n, err := ir.ParseName(f.Name)
		if err != nil {
			return nil, err
		}
		attrs[i] = schema.Attr(n, d)
	}
	return schema.NewRelationSchema(name, attrs...)
}

func avroDomain(t any) (ir.Domain, error) {
	switch v := t.(type) {
	case string:
		switch v {
		case "boolean":
			return ir.DomainBoolean, nil
		case "int", "long":
			return ir.DomainInteger, nil
		case "float", "double":
			return ir.DomainFloat, nil
		case "string":
			return ir.DomainString, nil
		case "bytes", "fixed":
			return ir.DomainBinary, nil
		}
		return ir.DomainUnknown, fmt.Errorf("unsupported avro type %q", v)
	case map[string]any:
		return avroDomain(v["type"])
	case []any:
		var branch any
		for _, b := range v {
			if b == "null" {
				continue
			}
			if branch != nil {
				return ir.DomainUnknown, fmt.Errorf("unsupported avro union %v", v)
			}
			branch = b
		}
		return avroDomain(branch)
	default:
		return ir.DomainUnknown, fmt.Errorf("unsupported avro type %v", t)
	}
}

// LoadAvro reads the records of an Avro object container file into a
// relation with schema rs. Fields match attributes by name when every
// attribute is named and present; otherwise they match by position.
func LoadAvro(r io.Reader, rs schema.RelationSchema, opts Options) (*data.SimpleRelation, error) {
	ocfr, err := goavro.NewOCFReader(r)
	if err != nil {
		return nil, fmt.Errorf("cannot read Avro file: %w", err)
	}

	var rec avroRecord
	if err := json.Unmarshal([]byte(ocfr.Codec().Schema()), &rec); err != nil {
		return nil, fmt.Errorf("cannot parse Avro schema: %w", err)
	}
	if len(rec.Fields) != rs.Arity() {
		return nil, ir.NewArityMismatchError(rs.Arity(), len(rec.Fields))
	}
	fields := avroFieldOrder(rec.Fields, rs)

	rel := data.NewRelation(rs)
	for n := 0; ocfr.Scan(); n++ {
		datum, err := ocfr.Read()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", n, err)
		}
		record, ok := datum.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d: unexpected Avro datum %T", n, datum)
		}
		values := make([]ir.Value, rs.Arity())
		for i, field := range fields {
			v, err := convertRaw(rs, i, unwrapUnion(record[field]), opts)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", n, err)
			}
			values[i] = v
		}
		if _, err := rel.Insert(values...); err != nil {
			return nil, fmt.Errorf("record %d: %w", n, err)
		}
	}
	if err := ocfr.Err(); err != nil {
		return nil, fmt.Errorf("error reading Avro file: %w", err)
	}
	return rel, nil
}

// avroFieldOrder returns the Avro field name feeding each attribute.
func avroFieldOrder(fields []avroField, rs schema.RelationSchema) []string {
	present := make(map[string]bool, len(fields))
	for _, f := range fields {
		present[f.Name] = true
	}
	byName := make([]string, rs.Arity())
	for i := range byName {
		n := rs.Attribute(i).Name()
		if n.IsZero() || !present[n.String()] {
			byName = nil
			break
		}
		byName[i] = n.String()
	}
	if byName != nil {
		return byName
	}
	byPos := make([]string, len(fields))
	for i, f := range fields {
		byPos[i] = f.Name
	}
	return byPos
}

// unwrapUnion strips goavro's {"type": value} wrapping of union values.
func unwrapUnion(v any) any {
	if m, ok := v.(map[string]any); ok && len(m) == 1 {
		for _, inner := range m {
			return inner
		}
	}
	return v
}

// WriteAvro writes rel as an Avro object container file.
//
// Field names are positional (c0, c1, ...) since attribute names may be
// anonymous or outside Avro's name grammar; the exact relation schema is
// recorded in file metadata. Unsigned integers are written as decimal
// strings, bytes as int, and chars as one-rune strings.
func WriteAvro(w io.Writer, rel data.Relation) error {
	rs := rel.Schema()
	rec := avroRecord{Type: "record", Name: "tuple", Fields: make([]avroField, rs.Arity())}
	meta := make([]metaAttribute, rs.Arity())
	for i := range rs.Arity() {
		attr := rs.Attribute(i)
		rec.Fields[i] = avroField{Name: fmt.Sprintf("c%d", i), Type: avroType(attr.Domain())}
		meta[i] = metaAttribute{Name: attr.Name().String(), Domain: attr.Domain().String()}
	}
	schemaJSON, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	ocfw, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:        w,
		Schema:   string(schemaJSON),
		MetaData: map[string][]byte{schemaMetaKey: metaJSON},
	})
	if err != nil {
		return fmt.Errorf("cannot create Avro writer: %w", err)
	}

	var batch []any
	for t := range rel.Tuples() {
		record := make(map[string]any, t.Len())
		for i := range t.Len() {
			record[fmt.Sprintf("c%d", i)] = avroNative(t.Value(i))
		}
		batch = append(batch, record)
	}
	if len(batch) == 0 {
		return nil
	}
	if err := ocfw.Append(batch); err != nil {
		return fmt.Errorf("cannot write Avro records: %w", err)
	}
	return nil
}

func avroType(d ir.Domain) string {
	switch d {
	case ir.DomainBoolean:
		return "boolean"
	case ir.DomainByte:
		return "int"
	case ir.DomainInteger:
		return "long"
	case ir.DomainFloat:
		return "double"
	case ir.DomainBinary:
		return "bytes"
	default:
		return "string"
	}
}

func avroNative(v ir.Value) any {
	switch val := v.(type) {
	case ir.Byte:
		return int32(val)
	case ir.UnsignedInteger:
		return ir.Text(val)
	default:
		return ir.Native(v)
	}
}
