package engine

import (
	"fmt"

	"github.com/roach88/relalg/internal/pattern"
	"github.com/roach88/relalg/internal/queryir"
	"github.com/roach88/relalg/internal/schema"
)

// Infer computes the result schema of op without touching data.
//
// Infer applies the same schema rules as evaluation: relation resolution,
// union compatibility, projection and rename schemas, join key pairing,
// and term binding (including compilation of constant patterns). A tree
// that infers cleanly can still fail at evaluation only on data-dependent
// conditions.
//
// Infer is a pure function with no side effects.
func Infer(op queryir.RelationalOp, sch schema.Schema) (schema.RelationSchema, error) {
	return newInferrer(sch).infer(op)
}

// InferList infers the result schema of every expression in order, with
// earlier bindings visible to later expressions.
// On failure the error is an *ExpressionError.
func InferList(list queryir.ExpressionList, sch schema.Schema) ([]schema.RelationSchema, error) {
	inf := newInferrer(sch)
	out := make([]schema.RelationSchema, 0, len(list))
	for i, expr := range list {
		rs, err := inf.infer(expr.Op)
		if err != nil {
			return out, &ExpressionError{Index: i, Name: expr.Name, Err: err}
		}
		if expr.IsNamed() {
			rs = schema.Rename(rs, expr.Name)
			inf.scope.bind(expr.Name, rs)
		}
		out = append(out, rs)
	}
	return out, nil
}

type inferrer struct {
	scope *schemaScope
	regex *pattern.Cache
}

func newInferrer(sch schema.Schema) *inferrer {
	return &inferrer{
		scope: newSchemaScope(sch),
		regex: pattern.NewCache(0),
	}
}

func (f *inferrer) infer(op queryir.RelationalOp) (schema.RelationSchema, error) {
	switch node := op.(type) {
	case *queryir.Relation:
		rs, err := f.scope.resolve(node.Name())
		if err != nil {
			return nil, err
		}
		if rs.Name() != node.Name() {
			rs = schema.Rename(rs, node.Name())
		}
		return rs, nil

	case *queryir.SetOperation:
		lhs, rhs, err := f.inferPair(node.LHS(), node.RHS())
		if err != nil {
			return nil, err
		}
		return setOperationSchema(node.Operator(), lhs, rhs)

	case *queryir.Selection:
		rs, err := f.infer(node.RHS())
		if err != nil {
			return nil, err
		}
		if _, err := bindTerm(node.Criteria(), rs, f.regex); err != nil {
			return nil, err
		}
		return rs, nil

	case *queryir.Projection:
		rs, err := f.infer(node.RHS())
		if err != nil {
			return nil, err
		}
		plan, err := planProjection(rs, node.Attributes())
		if err != nil {
			return nil, err
		}
		return plan.schema, nil

	case *queryir.Rename:
		rs, err := f.infer(node.RHS())
		if err != nil {
			return nil, err
		}
		return renameSchema(rs, node.Renames())

	case *queryir.Order:
		rs, err := f.infer(node.RHS())
		if err != nil {
			return nil, err
		}
		if _, err := resolveAttributes(rs, node.Attributes()); err != nil {
			return nil, err
		}
		return rs, nil

	case *queryir.Group:
		rs, err := f.infer(node.RHS())
		if err != nil {
			return nil, err
		}
		keys, err := resolveAttributes(rs, node.Attributes())
		if err != nil {
			return nil, err
		}
		return groupSchema(rs, keys), nil

	case *queryir.Join:
		lhs, rhs, err := f.inferPair(node.LHS(), node.RHS())
		if err != nil {
			return nil, err
		}
		if node.IsNatural() {
			plan, err := planNaturalJoin(lhs, rhs)
			if err != nil {
				return nil, err
			}
			return plan.schema, nil
		}
		rs := concatSchema(lhs, rhs)
		if _, err := bindTerm(node.Criteria(), rs, f.regex); err != nil {
			return nil, err
		}
		return rs, nil

	case nil:
		return nil, fmt.Errorf("nil operator")
	default:
		return nil, fmt.Errorf("unsupported operator type: %T", op)
	}
}

func (f *inferrer) inferPair(l, r queryir.RelationalOp) (schema.RelationSchema, schema.RelationSchema, error) {
	lhs, err := f.infer(l)
	if err != nil {
		return nil, nil, err
	}
	rhs, err := f.infer(r)
	if err != nil {
		return nil, nil, err
	}
	return lhs, rhs, nil
}
