package store

import (
	"context"
	"fmt"

	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/engine"
	"github.com/roach88/relalg/internal/queryir"
	"github.com/roach88/relalg/internal/querysql"
)

// Query evaluates op inside SQLite.
//
// The tree is compiled by querysql against the stored schema, so type
// errors are the same ir.Error values the in-memory engine reports. The
// result is ordered by every column (an Order root's keys first).
func (s *Store) Query(ctx context.Context, op queryir.RelationalOp) (*data.SimpleRelation, error) {
	sch, err := s.Schema(ctx)
	if err != nil {
		return nil, err
	}
	rs, err := engine.Infer(op, sch)
	if err != nil {
		return nil, err
	}

	query, params, err := querysql.NewSQLCompiler(sch).Compile(op)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	rel := data.NewRelation(rs)
	for rows.Next() {
		values, err := scanTuple(rows, rs)
		if err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
		if _, err := rel.Insert(values...); err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return rel, nil
}
