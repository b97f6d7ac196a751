// Package loader ingests relations from CSV, JSON, JSON Lines and Avro
// object container files.
//
// Every loader takes the target relation schema up front and converts each
// cell with ir.Convert, so a loaded relation always conforms to its schema.
// Unparseable cells fail with an ir.Error of kind KindInvalidValue carrying
// the attribute index; the wrapping error names the line or record.
package loader

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/schema"
)

// Options controls parsing.
type Options struct {
	// Header means the first CSV record names the attributes. Columns are
	// matched to the schema by name and may appear in any order. Without a
	// header, columns are positional.
	Header bool

	// Comma is the CSV field delimiter. Zero means ','.
	Comma rune

	// TrimSpace trims leading and trailing white space from CSV cells.
	TrimSpace bool

	// NormalizeText applies Unicode NFC normalization to string and char
	// cells, matching the normalization ir.ParseName applies to names.
	NormalizeText bool
}

// DefaultOptions returns Options with a CSV header and trimmed cells.
func DefaultOptions() Options {
	return Options{Header: true, TrimSpace: true}
}

// Load reads a file and returns a relation with schema rs. The format
// follows the file extension.
func Load(filename string, rs schema.RelationSchema, opts Options) (*data.SimpleRelation, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", filename, err)
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(filename))
	var rel *data.SimpleRelation
	switch ext {
	case ".csv":
		rel, err = LoadCSV(f, rs, opts)
	case ".json":
		rel, err = LoadJSON(f, rs, opts)
	case ".jsonl":
		rel, err = LoadJSONL(f, rs, opts)
	case ".avro":
		rel, err = LoadAvro(f, rs, opts)
	default:
		return nil, fmt.Errorf("unsupported file format %q (supported: .csv, .json, .jsonl, .avro)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return rel, nil
}

// LoadCSV reads CSV records into a relation with schema rs.
func LoadCSV(r io.Reader, rs schema.RelationSchema, opts Options) (*data.SimpleRelation, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = opts.TrimSpace
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}

	// positions[i] is the CSV column feeding attribute i.
	positions := make([]int, rs.Arity())
	for i := range positions {
		positions[i] = i
	}
	if opts.Header {
		header, err := reader.Read()
		if err != nil {
			return nil, fmt.Errorf("cannot read CSV header: %w", err)
		}
		if positions, err = matchHeader(header, rs); err != nil {
			return nil, err
		}
	} else {
		reader.FieldsPerRecord = rs.Arity()
	}

	rel := data.NewRelation(rs)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV row: %w", err)
		}
		line, _ := reader.FieldPos(0)

		values := make([]ir.Value, rs.Arity())
		for i, col := range positions {
			if col >= len(record) {
				return nil, fmt.Errorf("line %d: %w", line, ir.NewArityMismatchError(rs.Arity(), len(record)))
			}
			cell := record[col]
			if opts.TrimSpace {
				cell = strings.TrimSpace(cell)
			}
			v, err := convertRaw(rs, i, cell, opts)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			values[i] = v
		}
		if _, err := rel.Insert(values...); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return rel, nil
}

// matchHeader maps every attribute of rs to its CSV column.
// Unknown or duplicate header names and missing attributes are errors.
func matchHeader(header []string, rs schema.RelationSchema) ([]int, error) {
	positions := make([]int, rs.Arity())
	for i := range positions {
		positions[i] = -1
	}
	for col, h := range header {
		name, err := ir.ParseName(strings.TrimSpace(h))
		if err != nil {
			return nil, fmt.Errorf("CSV header column %d: %w", col, err)
		}
		idx, err := rs.IndexOf(name)
		if err != nil {
			return nil, fmt.Errorf("CSV header: %w", err)
		}
		if positions[idx] >= 0 {
			return nil, fmt.Errorf("CSV header: %w", ir.NewDuplicateNameError(name))
		}
		positions[idx] = col
	}
	for i, p := range positions {
		if p < 0 {
			return nil, fmt.Errorf("CSV header: missing attribute %q", rs.Attribute(i).Name())
		}
	}
	return positions, nil
}

// LoadJSON reads a JSON array into a relation with schema rs. Elements are
// either objects keyed by attribute name or arrays of positional values.
func LoadJSON(r io.Reader, rs schema.RelationSchema, opts Options) (*data.SimpleRelation, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var records []any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("cannot parse JSON: %w (expected array of objects or arrays)", err)
	}

	rel := data.NewRelation(rs)
	for i, rec := range records {
		if err := insertRecord(rel, rec, opts); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return rel, nil
}

// LoadJSONL reads one JSON object or array per line. Blank lines are
// skipped.
func LoadJSONL(r io.Reader, rs schema.RelationSchema, opts Options) (*data.SimpleRelation, error) {
	rel := data.NewRelation(rs)
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(line))
		dec.UseNumber()
		var rec any
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("invalid JSON on line %d: %w", lineNum, err)
		}
		if err := insertRecord(rel, rec, opts); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading JSON lines: %w", err)
	}
	return rel, nil
}

func insertRecord(rel *data.SimpleRelation, rec any, opts Options) error {
	rs := rel.Schema()
	values := make([]ir.Value, rs.Arity())

	switch val := rec.(type) {
	case map[string]any:
		if len(val) != rs.Arity() {
			return ir.NewArityMismatchError(rs.Arity(), len(val))
		}
		for key := range val {
			name, err := ir.ParseName(key)
			if err != nil {
				return err
			}
			if _, err := rs.IndexOf(name); err != nil {
				return err
			}
		}
		for i := range values {
			raw, ok := val[rs.Attribute(i).Name().String()]
			if !ok {
				return ir.NewAttributeDoesNotExistError(rs.Attribute(i).Name())
			}
			v, err := convertRaw(rs, i, raw, opts)
			if err != nil {
				return err
			}
			values[i] = v
		}
	case []any:
		if len(val) != rs.Arity() {
			return ir.NewArityMismatchError(rs.Arity(), len(val))
		}
		for i, raw := range val {
			v, err := convertRaw(rs, i, raw, opts)
			if err != nil {
				return err
			}
			values[i] = v
		}
	default:
		return fmt.Errorf("unexpected JSON record type %T", rec)
	}

	_, err := rel.Insert(values...)
	return err
}

// convertRaw converts a decoded cell to attribute i's domain. Nested JSON
// values and nulls are rejected.
func convertRaw(rs schema.RelationSchema, i int, raw any, opts Options) (ir.Value, error) {
	attr := rs.Attribute(i)
	if s, ok := raw.(string); ok && opts.NormalizeText {
		if d := attr.Domain(); d == ir.DomainString || d == ir.DomainChar {
			raw = norm.NFC.String(s)
		}
	}
	switch raw.(type) {
	case map[string]any, []any:
		b, _ := json.Marshal(raw)
		return nil, annotate(ir.NewInvalidValueError(attr.Domain(), string(b)), rs, i)
	}

	v, err := ir.Convert(attr.Domain(), raw)
	if err != nil {
		var e *ir.Error
		if errors.As(err, &e) {
			return nil, annotate(e, rs, i)
		}
		return nil, err
	}
	return v, nil
}

// annotate records the attribute position and name on a value error.
func annotate(e *ir.Error, rs schema.RelationSchema, i int) *ir.Error {
	e.Index = i
	e.HasIndex = true
	e.Name = rs.Attribute(i).Name().String()
	return e
}
