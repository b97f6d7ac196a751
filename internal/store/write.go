package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/querysql"
)

// SaveRelation stores rel under rel.Schema().Name(), replacing any relation
// of the same name. The header, tuples and content digest are written in
// one transaction.
//
// Duplicate tuples collapse (ON CONFLICT DO NOTHING); tuple order is kept.
func (s *Store) SaveRelation(ctx context.Context, rel data.Relation) error {
	sr, err := data.Materialize(rel)
	if err != nil {
		return fmt.Errorf("save relation: %w", err)
	}
	rs := sr.Schema()
	if rs.Arity() == 0 {
		return ir.NewNullaryFactsError(rs.Name())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save relation %s: begin: %w", rs.Name(), err)
	}
	defer tx.Rollback()

	if err := dropRelation(ctx, tx, rs.Name()); err != nil {
		return fmt.Errorf("save relation %s: %w", rs.Name(), err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO relalg_relations (name, arity, digest)
		VALUES (?, ?, ?)
	`, rs.Name().String(), rs.Arity(), sr.Digest()); err != nil {
		return fmt.Errorf("save relation %s: %w", rs.Name(), err)
	}
	for _, a := range marshalAttributes(rs) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO relalg_attributes (relation, position, name, domain)
			VALUES (?, ?, ?, ?)
		`, rs.Name().String(), a.Position, a.Name, a.Domain); err != nil {
			return fmt.Errorf("save relation %s: attribute %d: %w", rs.Name(), a.Position, err)
		}
	}

	if _, err := tx.ExecContext(ctx, createTableSQL(rs)); err != nil {
		return fmt.Errorf("save relation %s: create table: %w", rs.Name(), err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(rs))
	if err != nil {
		return fmt.Errorf("save relation %s: prepare: %w", rs.Name(), err)
	}
	defer stmt.Close()

	for i := 0; i < sr.Len(); i++ {
		args, err := encodeTuple(sr.TupleAt(i))
		if err != nil {
			return fmt.Errorf("save relation %s: tuple %d: %w", rs.Name(), i, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("save relation %s: tuple %d: %w", rs.Name(), i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save relation %s: commit: %w", rs.Name(), err)
	}
	return nil
}

// DeleteRelation removes a stored relation.
// Fails with KindRelationDoesNotExist for unknown names.
func (s *Store) DeleteRelation(ctx context.Context, name ir.Name) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete relation %s: begin: %w", name, err)
	}
	defer tx.Rollback()

	exists, err := relationExists(ctx, tx, name)
	if err != nil {
		return fmt.Errorf("delete relation %s: %w", name, err)
	}
	if !exists {
		return ir.NewRelationDoesNotExistError(name)
	}
	if err := dropRelation(ctx, tx, name); err != nil {
		return fmt.Errorf("delete relation %s: %w", name, err)
	}
	return tx.Commit()
}

// dropRelation removes metadata (attributes cascade) and the data table.
func dropRelation(ctx context.Context, tx *sql.Tx, name ir.Name) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM relalg_relations WHERE name = ?`, name.String()); err != nil {
		return fmt.Errorf("delete metadata: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+querysql.TableName(name)); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func relationExists(ctx context.Context, q queryer, name ir.Name) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM relalg_relations WHERE name = ?`, name.String()).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
