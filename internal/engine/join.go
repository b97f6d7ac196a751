package engine

import (
	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/pattern"
	"github.com/roach88/relalg/internal/queryir"
	"github.com/roach88/relalg/internal/schema"
)

func (r *run) evalJoin(node *queryir.Join) (*data.SimpleRelation, error) {
	lhs, rhs, err := r.evalPair(node.LHS(), node.RHS())
	if err != nil {
		return nil, err
	}
	if node.IsNatural() {
		return naturalJoin(lhs, rhs)
	}
	return thetaJoin(lhs, rhs, node.Criteria(), r.ev.regex)
}

// naturalJoin hash-joins on the canonical key of the shared attributes.
// Output order is lhs-major, rhs insertion order within each lhs tuple.
func naturalJoin(lhs, rhs *data.SimpleRelation) (*data.SimpleRelation, error) {
	plan, err := planNaturalJoin(lhs.Schema(), rhs.Schema())
	if err != nil {
		return nil, err
	}

	buckets := buildBuckets(rhs, plan.rhsKeys)
	out := data.NewRelation(plan.schema)
	for i := 0; i < lhs.Len(); i++ {
		lt := lhs.TupleAt(i)
		for _, j := range buckets[keyOf(lt, plan.lhsKeys)] {
			rt := rhs.TupleAt(j)
			row := make(data.SimpleTuple, 0, len(lt)+len(plan.rhsKeep))
			row = append(row, lt...)
			for _, k := range plan.rhsKeep {
				row = append(row, rt[k])
			}
			out.Add(row)
		}
	}
	return out, nil
}

// thetaJoin evaluates criteria over the concatenated lhs‖rhs schema.
//
// Equal atoms between an lhs and an rhs attribute become hash keys; the
// remaining conjuncts are checked per matched pair. Without any such atom
// the join is a nested loop over the full criteria.
func thetaJoin(lhs, rhs *data.SimpleRelation, criteria queryir.Term, regex *pattern.Cache) (*data.SimpleRelation, error) {
	rs := concatSchema(lhs.Schema(), rhs.Schema())
	// Bind the whole criteria first so type errors surface regardless of
	// the execution strategy.
	full, err := bindTerm(criteria, rs, regex)
	if err != nil {
		return nil, err
	}

	lhsKeys, rhsKeys, residual, err := splitEquiKeys(criteria, rs, lhs.Schema().Arity())
	if err != nil {
		return nil, err
	}

	out := data.NewRelation(rs)
	if len(lhsKeys) == 0 {
		for i := 0; i < lhs.Len(); i++ {
			for j := 0; j < rhs.Len(); j++ {
				row := concat(lhs.TupleAt(i), rhs.TupleAt(j))
				ok, err := full(row)
				if err != nil {
					return nil, err
				}
				if ok {
					out.Add(row)
				}
			}
		}
		return out, nil
	}

	check := func([]ir.Value) (bool, error) { return true, nil }
	if residual != nil {
		if check, err = bindTerm(residual, rs, regex); err != nil {
			return nil, err
		}
	}

	buckets := buildBuckets(rhs, rhsKeys)
	for i := 0; i < lhs.Len(); i++ {
		lt := lhs.TupleAt(i)
		for _, j := range buckets[keyOf(lt, lhsKeys)] {
			row := concat(lt, rhs.TupleAt(j))
			ok, err := check(row)
			if err != nil {
				return nil, err
			}
			if ok {
				out.Add(row)
			}
		}
	}
	return out, nil
}

// splitEquiKeys extracts hashable key pairs from the top-level conjuncts of
// criteria: Equal atoms comparing an lhs attribute with an rhs attribute.
// Rhs positions are returned relative to the rhs operand. Every other
// conjunct is folded into residual (nil when none remain).
func splitEquiKeys(criteria queryir.Term, rs schema.RelationSchema, lhsArity int) (lhsKeys, rhsKeys []int, residual queryir.Term, err error) {
	var rest []queryir.Term
	for _, c := range queryir.Conjuncts(criteria) {
		atom, ok := c.(queryir.AtomTerm)
		ref, isRef := atom.RHS.AsAttribute()
		if !ok || atom.Op != queryir.Equal || !isRef {
			rest = append(rest, c)
			continue
		}
		a, err := resolveAttribute(rs, atom.LHS)
		if err != nil {
			return nil, nil, nil, err
		}
		b, err := resolveAttribute(rs, ref)
		if err != nil {
			return nil, nil, nil, err
		}
		switch {
		case a < lhsArity && b >= lhsArity:
			lhsKeys = append(lhsKeys, a)
			rhsKeys = append(rhsKeys, b-lhsArity)
		case b < lhsArity && a >= lhsArity:
			lhsKeys = append(lhsKeys, b)
			rhsKeys = append(rhsKeys, a-lhsArity)
		default:
			rest = append(rest, c)
		}
	}
	if len(rest) > 0 {
		residual = queryir.And(rest...)
	}
	return lhsKeys, rhsKeys, residual, nil
}

// buildBuckets indexes rhs tuple positions by the canonical key of the
// given columns, preserving insertion order within each bucket.
func buildBuckets(rel *data.SimpleRelation, keys []int) map[string][]int {
	buckets := make(map[string][]int)
	for j := 0; j < rel.Len(); j++ {
		k := keyOf(rel.TupleAt(j), keys)
		buckets[k] = append(buckets[k], j)
	}
	return buckets
}

func keyOf(t data.SimpleTuple, positions []int) string {
	buf := make([]byte, 0, 16*len(positions))
	for _, p := range positions {
		buf = ir.AppendCanonical(buf, t[p])
	}
	return string(buf)
}
