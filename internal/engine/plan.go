package engine

import (
	"fmt"
	"slices"

	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/pattern"
	"github.com/roach88/relalg/internal/queryir"
	"github.com/roach88/relalg/internal/schema"
)

// Schema rules shared by evaluation and Infer.
//
// Every function here is data-independent: given operand schemas it either
// produces the result schema (plus the resolved positions evaluation needs)
// or fails with the typed ir.Error evaluation would fail with.

// resolveAttribute resolves a to a position in rs.
// Fails with KindAttributeIndexInvalid or KindAttributeDoesNotExist.
func resolveAttribute(rs schema.RelationSchema, a queryir.Attribute) (int, error) {
	if i, ok := a.AsIndex(); ok {
		if i >= rs.Arity() {
			return 0, ir.NewAttributeIndexInvalidError(i, rs.Arity())
		}
		return i, nil
	}
	name, _ := a.AsName()
	return rs.IndexOf(name)
}

func resolveAttributes(rs schema.RelationSchema, attrs []queryir.Attribute) ([]int, error) {
	out := make([]int, len(attrs))
	for i, a := range attrs {
		idx, err := resolveAttribute(rs, a)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

// setOperationSchema checks operand compatibility and returns the result
// schema: the lhs schema, or the concatenation for CartesianProduct.
func setOperationSchema(op queryir.SetOperator, lhs, rhs schema.RelationSchema) (schema.RelationSchema, error) {
	if !op.RequiresCompatibility() {
		return concatSchema(lhs, rhs), nil
	}
	if err := schema.UnionCompatible(lhs, rhs); err != nil {
		return nil, err
	}
	return lhs, nil
}

// concatSchema returns lhs attributes followed by rhs attributes.
// Name collisions are permitted.
func concatSchema(lhs, rhs schema.RelationSchema) *schema.SimpleRelationSchema {
	attrs := slices.Concat(lhs.Attributes(), rhs.Attributes())
	return schema.Derived(lhs.Name(), attrs...)
}

// column is one output position of a projection: an operand position, or
// a constant when constant is non-nil.
type column struct {
	index    int
	constant ir.Value
}

type projectionPlan struct {
	schema  schema.RelationSchema
	columns []column
}

// planProjection resolves projected attributes against rs. Constant
// columns become anonymous attributes of the constant's domain.
func planProjection(rs schema.RelationSchema, attrs []queryir.ProjectedAttribute) (*projectionPlan, error) {
	if len(attrs) == 0 {
		return nil, ir.NewNullaryFactsError(rs.Name())
	}
	plan := &projectionPlan{columns: make([]column, len(attrs))}
	out := make([]schema.AttributeSchema, len(attrs))
	for i, p := range attrs {
		if v, ok := p.AsConstant(); ok {
			plan.columns[i] = column{constant: v}
			out[i] = schema.Anonymous(v.Domain())
			continue
		}
		a, _ := p.AsAttribute()
		idx, err := resolveAttribute(rs, a)
		if err != nil {
			return nil, err
		}
		plan.columns[i] = column{index: idx}
		out[i] = rs.Attribute(idx)
	}
	plan.schema = schema.Derived(rs.Name(), out...)
	return plan, nil
}

// renameSchema applies rename pairs to rs.
//
// Fails with KindDuplicateName when two pairs address the same attribute
// or when a target name collides with any other attribute of the result,
// renamed or not. Duplicates among untouched attributes (e.g. after a
// product) are left for a later rename or projection to resolve.
func renameSchema(rs schema.RelationSchema, pairs []queryir.RenamePair) (schema.RelationSchema, error) {
	attrs := slices.Clone(rs.Attributes())
	renamed := make([]bool, len(attrs))
	for _, p := range pairs {
		idx, err := resolveAttribute(rs, p.From)
		if err != nil {
			return nil, err
		}
		if renamed[idx] {
			return nil, ir.NewDuplicateNameError(ir.NameUnchecked(p.From.String()))
		}
		renamed[idx] = true
		attrs[idx] = schema.Attr(p.To, attrs[idx].Domain())
	}

	counts := make(map[ir.Name]int, len(attrs))
	for _, a := range attrs {
		if !a.Name().IsZero() {
			counts[a.Name()]++
		}
	}
	for i, a := range attrs {
		if renamed[i] && counts[a.Name()] > 1 {
			return nil, ir.NewDuplicateNameError(a.Name())
		}
	}
	return schema.Derived(rs.Name(), attrs...), nil
}

// groupSchema returns the schema of the distinct key tuples.
func groupSchema(rs schema.RelationSchema, keys []int) schema.RelationSchema {
	attrs := make([]schema.AttributeSchema, len(keys))
	for i, k := range keys {
		attrs[i] = rs.Attribute(k)
	}
	return schema.Derived(rs.Name(), attrs...)
}

// joinPlan describes a natural join: matching key positions on both sides
// and the rhs positions that survive into the result.
type joinPlan struct {
	schema  schema.RelationSchema
	lhsKeys []int
	rhsKeys []int
	rhsKeep []int
}

// planNaturalJoin pairs equal-named attributes of lhs and rhs.
//
// Shared attributes must have equal domains (KindIncompatibleTypes) and be
// unambiguous on both sides (KindAttributeDoesNotExist). The result keeps
// lhs attributes followed by the rhs attributes that are not shared. With
// no shared names the plan degrades to a cartesian product.
func planNaturalJoin(lhs, rhs schema.RelationSchema) (*joinPlan, error) {
	lhsCount := nameCounts(lhs)
	rhsCount := nameCounts(rhs)

	plan := &joinPlan{}
	shared := make([]bool, rhs.Arity())
	for i := 0; i < lhs.Arity(); i++ {
		name := lhs.Attribute(i).Name()
		if name.IsZero() || rhsCount[name] == 0 {
			continue
		}
		if lhsCount[name] > 1 || rhsCount[name] > 1 {
			return nil, ir.NewAmbiguousAttributeError(name)
		}
		j, err := rhs.IndexOf(name)
		if err != nil {
			return nil, err
		}
		ld, rd := lhs.Attribute(i).Domain(), rhs.Attribute(j).Domain()
		if ld != rd {
			e := ir.NewIncompatibleTypesError(ld, rd)
			e.Name = name.String()
			return nil, e
		}
		plan.lhsKeys = append(plan.lhsKeys, i)
		plan.rhsKeys = append(plan.rhsKeys, j)
		shared[j] = true
	}

	attrs := slices.Clone(lhs.Attributes())
	for j := 0; j < rhs.Arity(); j++ {
		if shared[j] {
			continue
		}
		plan.rhsKeep = append(plan.rhsKeep, j)
		attrs = append(attrs, rhs.Attribute(j))
	}
	plan.schema = schema.Derived(lhs.Name(), attrs...)
	return plan, nil
}

func nameCounts(rs schema.RelationSchema) map[ir.Name]int {
	counts := make(map[ir.Name]int, rs.Arity())
	for _, n := range schema.Names(rs) {
		if !n.IsZero() {
			counts[n]++
		}
	}
	return counts
}

// predicate evaluates a bound term against one tuple's values.
type predicate func(values []ir.Value) (bool, error)

// bindTerm resolves every attribute of t against rs and type-checks it.
//
// After binding, a predicate can fail only on an attribute-valued pattern
// that is not valid RE2 syntax.
func bindTerm(t queryir.Term, rs schema.RelationSchema, regex *pattern.Cache) (predicate, error) {
	switch term := t.(type) {
	case queryir.ConstantTerm:
		b, ok := term.Value.(ir.Boolean)
		if !ok {
			actual := ir.DomainUnknown
			if term.Value != nil {
				actual = term.Value.Domain()
			}
			return nil, ir.NewIncompatibleTypesError(ir.DomainBoolean, actual)
		}
		return func([]ir.Value) (bool, error) { return bool(b), nil }, nil

	case queryir.ExistsTerm:
		if _, err := resolveAttribute(rs, term.Attribute); err != nil {
			return nil, err
		}
		return func([]ir.Value) (bool, error) { return true, nil }, nil

	case queryir.AtomTerm:
		return bindAtom(term, rs, regex)

	case queryir.NegateTerm:
		inner, err := bindTerm(term.Term, rs, regex)
		if err != nil {
			return nil, err
		}
		return func(values []ir.Value) (bool, error) {
			ok, err := inner(values)
			return !ok, err
		}, nil

	case queryir.AndTerm:
		lhs, rhs, err := bindPair(term.LHS, term.RHS, rs, regex)
		if err != nil {
			return nil, err
		}
		return func(values []ir.Value) (bool, error) {
			ok, err := lhs(values)
			if err != nil || !ok {
				return false, err
			}
			return rhs(values)
		}, nil

	case queryir.OrTerm:
		lhs, rhs, err := bindPair(term.LHS, term.RHS, rs, regex)
		if err != nil {
			return nil, err
		}
		return func(values []ir.Value) (bool, error) {
			ok, err := lhs(values)
			if err != nil || ok {
				return ok, err
			}
			return rhs(values)
		}, nil

	default:
		return nil, fmt.Errorf("unsupported term type: %T", t)
	}
}

func bindPair(l, r queryir.Term, rs schema.RelationSchema, regex *pattern.Cache) (predicate, predicate, error) {
	lhs, err := bindTerm(l, rs, regex)
	if err != nil {
		return nil, nil, err
	}
	rhs, err := bindTerm(r, rs, regex)
	if err != nil {
		return nil, nil, err
	}
	return lhs, rhs, nil
}

func bindAtom(term queryir.AtomTerm, rs schema.RelationSchema, regex *pattern.Cache) (predicate, error) {
	if !term.Op.IsValid() {
		return nil, fmt.Errorf("unknown comparison operator %s", term.Op)
	}

	li, err := resolveAttribute(rs, term.LHS)
	if err != nil {
		return nil, err
	}
	ld := rs.Attribute(li).Domain()

	constant, isConstant := term.RHS.AsConstant()
	ri := -1
	var rd ir.Domain
	if isConstant {
		rd = constant.Domain()
	} else {
		a, _ := term.RHS.AsAttribute()
		if ri, err = resolveAttribute(rs, a); err != nil {
			return nil, err
		}
		rd = rs.Attribute(ri).Domain()
	}
	rhs := func(values []ir.Value) ir.Value {
		if isConstant {
			return constant
		}
		return values[ri]
	}

	if term.Op.IsPattern() {
		for _, d := range []ir.Domain{ld, rd} {
			if d != ir.DomainString {
				e := ir.NewIncompatibleTypesError(ir.DomainString, d)
				e.Name = term.LHS.String()
				return nil, e
			}
		}
		want := term.Op == queryir.StringMatch
		if isConstant {
			re, err := regex.Compile(stringOf(constant))
			if err != nil {
				return nil, err
			}
			return func(values []ir.Value) (bool, error) {
				return re.MatchString(stringOf(values[li])) == want, nil
			}, nil
		}
		return func(values []ir.Value) (bool, error) {
			re, err := regex.Compile(stringOf(values[ri]))
			if err != nil {
				return false, err
			}
			return re.MatchString(stringOf(values[li])) == want, nil
		}, nil
	}

	if ld != rd {
		e := ir.NewIncompatibleTypesError(ld, rd)
		e.Name = term.LHS.String()
		return nil, e
	}
	op := term.Op
	return func(values []ir.Value) (bool, error) {
		c, err := ir.Compare(values[li], rhs(values))
		if err != nil {
			return false, err
		}
		return op.Apply(c), nil
	}, nil
}

func stringOf(v ir.Value) string {
	s, _ := v.(ir.String)
	return string(s)
}
