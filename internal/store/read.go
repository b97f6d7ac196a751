package store

import (
	"context"
	"fmt"

	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/engine"
	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/querysql"
	"github.com/roach88/relalg/internal/schema"
)

// Relations returns the names of all stored relations.
// Ordered deterministically: ORDER BY name COLLATE BINARY.
//
// Returns an empty slice (not nil) for an empty store.
func (s *Store) Relations(ctx context.Context) ([]ir.Name, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM relalg_relations
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query relations: %w", err)
	}
	defer rows.Close()

	names := []ir.Name{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		names = append(names, ir.NameUnchecked(name))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relations: %w", err)
	}
	return names, nil
}

// RelationSchema returns the stored header of name.
// Fails with KindRelationDoesNotExist for unknown names.
func (s *Store) RelationSchema(ctx context.Context, name ir.Name) (*schema.SimpleRelationSchema, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, name, domain FROM relalg_attributes
		WHERE relation = ?
		ORDER BY position ASC
	`, name.String())
	if err != nil {
		return nil, fmt.Errorf("query attributes: %w", err)
	}
	defer rows.Close()

	var attrs []attributeRow
	for rows.Next() {
		var a attributeRow
		if err := rows.Scan(&a.Position, &a.Name, &a.Domain); err != nil {
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		attrs = append(attrs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attributes: %w", err)
	}
	if len(attrs) == 0 {
		return nil, ir.NewRelationDoesNotExistError(name)
	}
	return unmarshalAttributes(name, attrs)
}

// Schema returns the headers of all stored relations.
func (s *Store) Schema(ctx context.Context) (*schema.SimpleSchema, error) {
	names, err := s.Relations(ctx)
	if err != nil {
		return nil, err
	}
	out, err := schema.NewSchema()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		rs, err := s.RelationSchema(ctx, name)
		if err != nil {
			return nil, err
		}
		if err := out.Add(rs); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// LoadRelation reads a stored relation in insertion order.
//
// Fails with KindRelationDoesNotExist for unknown names, and with an error
// when the recomputed content digest differs from the one recorded by
// SaveRelation.
func (s *Store) LoadRelation(ctx context.Context, name ir.Name) (*data.SimpleRelation, error) {
	rs, err := s.RelationSchema(ctx, name)
	if err != nil {
		return nil, err
	}

	var digest string
	if err := s.db.QueryRowContext(ctx,
		`SELECT digest FROM relalg_relations WHERE name = ?`, name.String(),
	).Scan(&digest); err != nil {
		return nil, fmt.Errorf("load relation %s: %w", name, err)
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY seq ASC", columns(rs.Arity()), querysql.TableName(name))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load relation %s: %w", name, err)
	}
	defer rows.Close()

	rel := data.NewRelation(rs)
	for rows.Next() {
		values, err := scanTuple(rows, rs)
		if err != nil {
			return nil, fmt.Errorf("load relation %s: %w", name, err)
		}
		if _, err := rel.Insert(values...); err != nil {
			return nil, fmt.Errorf("load relation %s: %w", name, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load relation %s: %w", name, err)
	}

	if got := rel.Digest(); got != digest {
		return nil, fmt.Errorf("load relation %s: digest mismatch: stored %s, computed %s", name, digest, got)
	}
	return rel, nil
}

// Resolve implements engine.Provider with a background context.
func (s *Store) Resolve(name ir.Name) (data.Relation, error) {
	return s.LoadRelation(context.Background(), name)
}

// Provider returns an engine.Provider loading relations under ctx.
func (s *Store) Provider(ctx context.Context) engine.Provider {
	return engine.ProviderFunc(func(name ir.Name) (data.Relation, error) {
		return s.LoadRelation(ctx, name)
	})
}

func columns(arity int) string {
	out := ""
	for i := 0; i < arity; i++ {
		if i > 0 {
			out += ", "
		}
		out += querysql.ColumnName(i)
	}
	return out
}
