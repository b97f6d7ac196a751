package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/querysql"
	"github.com/roach88/relalg/internal/schema"
)

// encodeTuple converts a tuple to SQL arguments in column order.
func encodeTuple(values []ir.Value) ([]any, error) {
	args := make([]any, len(values))
	for i, v := range values {
		raw, err := querysql.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("encode column %d: %w", i, err)
		}
		args[i] = raw
	}
	return args, nil
}

// scanTuple reads one row of rs.Arity() columns and decodes every column
// to its schema domain.
func scanTuple(rows *sql.Rows, rs schema.RelationSchema) ([]ir.Value, error) {
	raw := make([]any, rs.Arity())
	ptrs := make([]any, len(raw))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	values := make([]ir.Value, len(raw))
	for i, r := range raw {
		v, err := querysql.Decode(rs.Attribute(i).Domain(), r)
		if err != nil {
			return nil, fmt.Errorf("decode column %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}

// createTableSQL returns the DDL of the data table for rs.
//
// seq keeps insertion order; the UNIQUE constraint over every column
// enforces set semantics.
func createTableSQL(rs schema.RelationSchema) string {
	cols := make([]string, rs.Arity())
	defs := make([]string, 0, rs.Arity()+2)
	defs = append(defs, "seq INTEGER PRIMARY KEY")
	for i := range cols {
		cols[i] = querysql.ColumnName(i)
		defs = append(defs, fmt.Sprintf("%s %s NOT NULL", cols[i], querysql.ColumnType(rs.Attribute(i).Domain())))
	}
	defs = append(defs, "UNIQUE ("+strings.Join(cols, ", ")+")")
	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", querysql.TableName(rs.Name()), strings.Join(defs, ",\n\t"))
}

// insertSQL returns the parameterized insert statement for rs.
// ON CONFLICT DO NOTHING collapses duplicate tuples.
func insertSQL(rs schema.RelationSchema) string {
	cols := make([]string, rs.Arity())
	marks := make([]string, rs.Arity())
	for i := range cols {
		cols[i] = querysql.ColumnName(i)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		querysql.TableName(rs.Name()), strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// attributeRow is one row of relalg_attributes.
type attributeRow struct {
	Position int
	Name     string
	Domain   string
}

// marshalAttributes converts a header to metadata rows. Anonymous
// attributes are stored with an empty name.
func marshalAttributes(rs schema.RelationSchema) []attributeRow {
	rows := make([]attributeRow, rs.Arity())
	for i, a := range rs.Attributes() {
		rows[i] = attributeRow{Position: i, Name: a.Name().String(), Domain: a.Domain().String()}
	}
	return rows
}

// unmarshalAttributes rebuilds a header from metadata rows ordered by
// position.
func unmarshalAttributes(name ir.Name, rows []attributeRow) (*schema.SimpleRelationSchema, error) {
	attrs := make([]schema.AttributeSchema, len(rows))
	for i, row := range rows {
		if row.Position != i {
			return nil, fmt.Errorf("relation %s: attribute position %d missing", name, i)
		}
		d, err := ir.ParseDomain(row.Domain)
		if err != nil {
			return nil, fmt.Errorf("relation %s: %w", name, err)
		}
		if row.Name == "" {
			attrs[i] = schema.Anonymous(d)
			continue
		}
		n, err := ir.ParseName(row.Name)
		if err != nil {
			return nil, fmt.Errorf("relation %s: %w", name, err)
		}
		attrs[i] = schema.Attr(n, d)
	}
	if len(attrs) == 0 {
		return nil, ir.NewNullaryFactsError(name)
	}
	return schema.Derived(name, attrs...), nil
}
