package engine

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/queryir"
	"github.com/roach88/relalg/internal/schema"
)

// run holds the state of one evaluation call.
//
// A run is created per Evaluate/EvaluateList call and never shared, so
// its fields need no locking. The Evaluator's regex cache is the only
// shared state it touches.
type run struct {
	ev    *Evaluator
	scope *scope
	id    string
	steps int // Operators evaluated so far, for log correlation
}

// eval evaluates op bottom-up and returns a fresh relation.
//
// Operand relations are never mutated; every operator builds a new
// SimpleRelation. The first error aborts the run.
func (r *run) eval(op queryir.RelationalOp) (*data.SimpleRelation, error) {
	var (
		result *data.SimpleRelation
		err    error
	)

	switch node := op.(type) {
	case *queryir.Relation:
		result, err = r.evalRelation(node)
	case *queryir.SetOperation:
		result, err = r.evalSetOperation(node)
	case *queryir.Selection:
		result, err = r.evalSelection(node)
	case *queryir.Projection:
		result, err = r.evalProjection(node)
	case *queryir.Rename:
		result, err = r.evalRename(node)
	case *queryir.Order:
		result, err = r.evalOrder(node)
	case *queryir.Group:
		result, err = r.evalGroup(node)
	case *queryir.Join:
		result, err = r.evalJoin(node)
	case nil:
		return nil, fmt.Errorf("nil operator")
	default:
		return nil, fmt.Errorf("unsupported operator type: %T", op)
	}
	if err != nil {
		return nil, err
	}

	r.steps++
	if err := r.ev.quota.Check(op.Kind(), result.Len()); err != nil {
		return nil, err
	}
	r.ev.logger.Debug("operator evaluated",
		"op", op.Kind().String(),
		"rows", result.Len(),
		"step", r.steps,
		"run_id", r.id,
	)
	return result, nil
}

func (r *run) evalRelation(node *queryir.Relation) (*data.SimpleRelation, error) {
	rel, err := r.scope.Resolve(node.Name())
	if err != nil {
		return nil, err
	}
	out, err := data.Materialize(rel)
	if err != nil {
		return nil, fmt.Errorf("relation %s: %w", node.Name(), err)
	}
	if out.Schema().Name() != node.Name() {
		out = out.WithSchema(schema.Rename(out.Schema(), node.Name()))
	}
	return out, nil
}

func (r *run) evalSetOperation(node *queryir.SetOperation) (*data.SimpleRelation, error) {
	lhs, rhs, err := r.evalPair(node.LHS(), node.RHS())
	if err != nil {
		return nil, err
	}
	rs, err := setOperationSchema(node.Operator(), lhs.Schema(), rhs.Schema())
	if err != nil {
		return nil, err
	}

	out := data.NewRelation(rs)
	switch node.Operator() {
	case queryir.SetUnion:
		addAll(out, lhs)
		addAll(out, rhs)
	case queryir.SetIntersection:
		addWhere(out, lhs, func(k string) bool { return rhs.ContainsKey(k) })
	case queryir.SetDifference:
		addWhere(out, lhs, func(k string) bool { return !rhs.ContainsKey(k) })
	case queryir.SetSymmetricDifference:
		addWhere(out, lhs, func(k string) bool { return !rhs.ContainsKey(k) })
		addWhere(out, rhs, func(k string) bool { return !lhs.ContainsKey(k) })
	case queryir.SetCartesianProduct:
		for i := 0; i < lhs.Len(); i++ {
			for j := 0; j < rhs.Len(); j++ {
				out.Add(concat(lhs.TupleAt(i), rhs.TupleAt(j)))
			}
		}
	default:
		return nil, fmt.Errorf("unknown set operator %s", node.Operator())
	}
	return out, nil
}

func (r *run) evalSelection(node *queryir.Selection) (*data.SimpleRelation, error) {
	rhs, err := r.eval(node.RHS())
	if err != nil {
		return nil, err
	}
	pred, err := bindTerm(node.Criteria(), rhs.Schema(), r.ev.regex)
	if err != nil {
		return nil, err
	}

	out := data.NewRelation(rhs.Schema())
	for i := 0; i < rhs.Len(); i++ {
		t := rhs.TupleAt(i)
		ok, err := pred(t)
		if err != nil {
			return nil, err
		}
		if ok {
			out.Add(t)
		}
	}
	return out, nil
}

func (r *run) evalProjection(node *queryir.Projection) (*data.SimpleRelation, error) {
	rhs, err := r.eval(node.RHS())
	if err != nil {
		return nil, err
	}
	plan, err := planProjection(rhs.Schema(), node.Attributes())
	if err != nil {
		return nil, err
	}

	out := data.NewRelation(plan.schema)
	for i := 0; i < rhs.Len(); i++ {
		t := rhs.TupleAt(i)
		row := make(data.SimpleTuple, len(plan.columns))
		for c, col := range plan.columns {
			if col.constant != nil {
				row[c] = col.constant
			} else {
				row[c] = t[col.index]
			}
		}
		out.Add(row)
	}
	return out, nil
}

func (r *run) evalRename(node *queryir.Rename) (*data.SimpleRelation, error) {
	rhs, err := r.eval(node.RHS())
	if err != nil {
		return nil, err
	}
	rs, err := renameSchema(rhs.Schema(), node.Renames())
	if err != nil {
		return nil, err
	}
	return rhs.WithSchema(rs), nil
}

func (r *run) evalOrder(node *queryir.Order) (*data.SimpleRelation, error) {
	rhs, err := r.eval(node.RHS())
	if err != nil {
		return nil, err
	}
	keys, err := resolveAttributes(rhs.Schema(), node.Attributes())
	if err != nil {
		return nil, err
	}

	tuples := make([]data.SimpleTuple, rhs.Len())
	for i := range tuples {
		tuples[i] = rhs.TupleAt(i)
	}
	slices.SortStableFunc(tuples, func(a, b data.SimpleTuple) int {
		for _, k := range keys {
			// Operands conform to one schema, so domains always match.
			if c := ir.MustCompare(a[k], b[k]); c != 0 {
				return c
			}
		}
		return 0
	})

	out := data.NewRelation(rhs.Schema())
	for _, t := range tuples {
		out.Add(t)
	}
	return out, nil
}

func (r *run) evalGroup(node *queryir.Group) (*data.SimpleRelation, error) {
	rhs, err := r.eval(node.RHS())
	if err != nil {
		return nil, err
	}
	keys, err := resolveAttributes(rhs.Schema(), node.Attributes())
	if err != nil {
		return nil, err
	}

	out := data.NewRelation(groupSchema(rhs.Schema(), keys))
	for i := 0; i < rhs.Len(); i++ {
		out.Add(pick(rhs.TupleAt(i), keys))
	}
	return out, nil
}

func (r *run) evalPair(l, rr queryir.RelationalOp) (*data.SimpleRelation, *data.SimpleRelation, error) {
	lhs, err := r.eval(l)
	if err != nil {
		return nil, nil, err
	}
	rhs, err := r.eval(rr)
	if err != nil {
		return nil, nil, err
	}
	return lhs, rhs, nil
}

func addAll(out, in *data.SimpleRelation) {
	for i := 0; i < in.Len(); i++ {
		out.Add(in.TupleAt(i))
	}
}

func addWhere(out, in *data.SimpleRelation, keep func(key string) bool) {
	for i := 0; i < in.Len(); i++ {
		t := in.TupleAt(i)
		if keep(t.Key()) {
			out.Add(t)
		}
	}
}

func concat(a, b data.SimpleTuple) data.SimpleTuple {
	return slices.Concat(a, b)
}

func pick(t data.SimpleTuple, positions []int) data.SimpleTuple {
	out := make(data.SimpleTuple, len(positions))
	for i, p := range positions {
		out[i] = t[p]
	}
	return out
}

func logAttrs(runID string, index int, name ir.Name, rows int) []any {
	attrs := []any{slog.String("run_id", runID), slog.Int("index", index), slog.Int("rows", rows)}
	if !name.IsZero() {
		attrs = append(attrs, slog.String("name", name.String()))
	}
	return attrs
}
