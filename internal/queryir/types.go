package queryir

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/relalg/internal/ir"
)

// RelationalOp is a node of the relational algebra operator tree.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the engine, the SQL compiler, and renderers.
type RelationalOp interface {
	// Kind identifies the operator variant.
	Kind() Kind

	relationalOp() // Marker method - seals interface to this package
}

// Kind identifies a RelationalOp variant.
type Kind uint8

const (
	KindRelation Kind = iota + 1
	KindSetOperation
	KindSelection
	KindProjection
	KindRename
	KindOrder
	KindGroup
	KindJoin
)

var kindNames = map[Kind]string{
	KindRelation:     "relation",
	KindSetOperation: "set_operation",
	KindSelection:    "selection",
	KindProjection:   "projection",
	KindRename:       "rename",
	KindOrder:        "order",
	KindGroup:        "group",
	KindJoin:         "join",
}

// String returns the lowercase variant name.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Relation is a leaf reference to a named relation.
//
// Semantics: resolved by the data provider (or an earlier binding in an
// ExpressionList); fails with RelationDoesNotExist if absent.
type Relation struct {
	name ir.Name
}

// NewRelation creates a relation reference.
// Panics if name is empty.
func NewRelation(name ir.Name) *Relation {
	if name.IsZero() {
		panic("queryir: empty relation name")
	}
	return &Relation{name: name}
}

// Name returns the referenced relation name.
func (r *Relation) Name() ir.Name { return r.name }

// SetOperator selects the set algebra applied by a SetOperation.
type SetOperator uint8

const (
	SetUnion SetOperator = iota + 1
	SetIntersection
	SetDifference
	SetSymmetricDifference
	SetCartesianProduct
)

var setOperatorKeys = map[SetOperator]string{
	SetUnion:               "union",
	SetIntersection:        "intersect",
	SetDifference:          "difference",
	SetSymmetricDifference: "symdiff",
	SetCartesianProduct:    "product",
}

// String returns the codec key of the operator ("union", "product", ...).
func (op SetOperator) String() string {
	if s, ok := setOperatorKeys[op]; ok {
		return s
	}
	return fmt.Sprintf("setop(%d)", uint8(op))
}

// SetOperators returns every set operator in declaration order.
func SetOperators() []SetOperator {
	return []SetOperator{SetUnion, SetIntersection, SetDifference, SetSymmetricDifference, SetCartesianProduct}
}

// RequiresCompatibility reports whether operands must be union-compatible.
// Only CartesianProduct accepts arbitrary operand schemas.
func (op SetOperator) RequiresCompatibility() bool {
	return op != SetCartesianProduct
}

// SetOperation combines two operands with set algebra.
//
// Semantics:
//   - Union, Intersection, Difference, SymmetricDifference: operands must be
//     union-compatible (same arity, pairwise equal domains by position);
//     result schema is the lhs schema
//   - CartesianProduct: every lhs tuple concatenated with every rhs tuple;
//     result schema is lhs attributes followed by rhs attributes
type SetOperation struct {
	lhs RelationalOp
	op  SetOperator
	rhs RelationalOp
}

// NewSetOperation creates a set operation node.
// Panics on nil operands or an unknown operator.
func NewSetOperation(lhs RelationalOp, op SetOperator, rhs RelationalOp) *SetOperation {
	mustOperand(lhs)
	mustOperand(rhs)
	if _, ok := setOperatorKeys[op]; !ok {
		panic(fmt.Sprintf("queryir: unknown set operator %d", op))
	}
	return &SetOperation{lhs: lhs, op: op, rhs: rhs}
}

// Union creates lhs ∪ rhs.
func Union(lhs, rhs RelationalOp) *SetOperation { return NewSetOperation(lhs, SetUnion, rhs) }

// Intersection creates lhs ∩ rhs.
func Intersection(lhs, rhs RelationalOp) *SetOperation {
	return NewSetOperation(lhs, SetIntersection, rhs)
}

// Difference creates lhs ∖ rhs.
func Difference(lhs, rhs RelationalOp) *SetOperation {
	return NewSetOperation(lhs, SetDifference, rhs)
}

// SymmetricDifference creates (lhs ∖ rhs) ∪ (rhs ∖ lhs).
func SymmetricDifference(lhs, rhs RelationalOp) *SetOperation {
	return NewSetOperation(lhs, SetSymmetricDifference, rhs)
}

// CartesianProduct creates lhs ⨯ rhs.
func CartesianProduct(lhs, rhs RelationalOp) *SetOperation {
	return NewSetOperation(lhs, SetCartesianProduct, rhs)
}

// LHS returns the left operand.
func (s *SetOperation) LHS() RelationalOp { return s.lhs }

// Operator returns the set operator.
func (s *SetOperation) Operator() SetOperator { return s.op }

// RHS returns the right operand.
func (s *SetOperation) RHS() RelationalOp { return s.rhs }

// Selection keeps the tuples of its operand that satisfy a Term.
type Selection struct {
	criteria Term
	rhs      RelationalOp
}

// NewSelection creates σ[criteria](rhs).
// Panics on nil criteria or operand.
func NewSelection(criteria Term, rhs RelationalOp) *Selection {
	if criteria == nil {
		panic("queryir: selection requires criteria")
	}
	mustOperand(rhs)
	return &Selection{criteria: criteria, rhs: rhs}
}

// SelectAll creates a selection whose criteria is always true.
func SelectAll(rhs RelationalOp) *Selection {
	return NewSelection(True(), rhs)
}

// Criteria returns the filter term.
func (s *Selection) Criteria() Term { return s.criteria }

// RHS returns the operand.
func (s *Selection) RHS() RelationalOp { return s.rhs }

// IsAll reports whether the criteria is the literal true.
func (s *Selection) IsAll() bool {
	c, ok := s.criteria.(ConstantTerm)
	if !ok {
		return false
	}
	b, ok := c.Value.(ir.Boolean)
	return ok && bool(b)
}

// Projection maps each tuple to the listed attributes and constants,
// collapsing duplicates (set semantics).
type Projection struct {
	attributes []ProjectedAttribute
	rhs        RelationalOp
}

// NewProjection creates π[attributes](rhs).
// Panics if attributes is empty or rhs is nil; a projection onto zero
// attributes would produce nullary facts.
func NewProjection(attributes []ProjectedAttribute, rhs RelationalOp) *Projection {
	if len(attributes) == 0 {
		panic("queryir: projection requires at least one attribute")
	}
	mustOperand(rhs)
	return &Projection{attributes: slices.Clone(attributes), rhs: rhs}
}

// Attributes returns a copy of the projected attributes.
func (p *Projection) Attributes() []ProjectedAttribute { return slices.Clone(p.attributes) }

// RHS returns the operand.
func (p *Projection) RHS() RelationalOp { return p.rhs }

// RenamePair renames one attribute.
type RenamePair struct {
	From Attribute
	To   ir.Name
}

// Rename replaces attribute names; tuple values are unchanged.
//
// Pairs are kept in deterministic order (positional references ascending,
// then names) so rendering and compilation are stable.
type Rename struct {
	renames []RenamePair
	rhs     RelationalOp
}

// NewRename creates ρ[renames](rhs) from a map of source attribute to new
// name.
// Panics if renames is empty or rhs is nil. Fails with DuplicateName if two
// targets are equal. Collisions with un-renamed attributes depend on the
// operand schema and are checked at evaluation.
func NewRename(renames map[Attribute]ir.Name, rhs RelationalOp) (*Rename, error) {
	keys := slices.SortedFunc(maps.Keys(renames), CompareAttributes)
	pairs := make([]RenamePair, len(keys))
	for i, k := range keys {
		pairs[i] = RenamePair{From: k, To: renames[k]}
	}
	return NewRenamePairs(pairs, rhs)
}

// NewRenamePairs creates a rename from an explicit pair list.
// Fails with DuplicateName if a source attribute or a target name repeats.
func NewRenamePairs(pairs []RenamePair, rhs RelationalOp) (*Rename, error) {
	if len(pairs) == 0 {
		panic("queryir: rename requires at least one attribute")
	}
	mustOperand(rhs)

	sources := make(map[Attribute]struct{}, len(pairs))
	targets := make(map[ir.Name]struct{}, len(pairs))
	for _, p := range pairs {
		if p.To.IsZero() {
			return nil, ir.NewInvalidNameError("")
		}
		if _, dup := sources[p.From]; dup {
			return nil, ir.NewDuplicateNameError(ir.NameUnchecked(p.From.String()))
		}
		if _, dup := targets[p.To]; dup {
			return nil, ir.NewDuplicateNameError(p.To)
		}
		sources[p.From] = struct{}{}
		targets[p.To] = struct{}{}
	}

	sorted := slices.Clone(pairs)
	slices.SortFunc(sorted, func(a, b RenamePair) int { return CompareAttributes(a.From, b.From) })
	return &Rename{renames: sorted, rhs: rhs}, nil
}

// MustRename is like NewRename but panics on error.
// Use only in tests or with literal renames.
func MustRename(renames map[Attribute]ir.Name, rhs RelationalOp) *Rename {
	r, err := NewRename(renames, rhs)
	if err != nil {
		panic(err)
	}
	return r
}

// Renames returns a copy of the rename pairs.
func (r *Rename) Renames() []RenamePair { return slices.Clone(r.renames) }

// RHS returns the operand.
func (r *Rename) RHS() RelationalOp { return r.rhs }

// Order sequences the tuples of its operand by the listed attributes,
// ascending, first attribute primary. Ties keep their input order.
type Order struct {
	attributes []Attribute
	rhs        RelationalOp
}

// NewOrder creates τ[attributes](rhs).
// Panics if attributes is empty or rhs is nil.
func NewOrder(attributes []Attribute, rhs RelationalOp) *Order {
	if len(attributes) == 0 {
		panic("queryir: order requires at least one attribute")
	}
	mustOperand(rhs)
	return &Order{attributes: slices.Clone(attributes), rhs: rhs}
}

// Attributes returns a copy of the ordering attributes.
func (o *Order) Attributes() []Attribute { return slices.Clone(o.attributes) }

// RHS returns the operand.
func (o *Order) RHS() RelationalOp { return o.rhs }

// Group partitions the tuples of its operand by the listed attributes.
// With no aggregation operators in the IR, its result is the set of
// distinct key tuples.
type Group struct {
	attributes []Attribute
	rhs        RelationalOp
}

// NewGroup creates γ[attributes](rhs).
// Panics if attributes is empty or rhs is nil.
func NewGroup(attributes []Attribute, rhs RelationalOp) *Group {
	if len(attributes) == 0 {
		panic("queryir: group requires at least one attribute")
	}
	mustOperand(rhs)
	return &Group{attributes: slices.Clone(attributes), rhs: rhs}
}

// Attributes returns a copy of the grouping attributes.
func (g *Group) Attributes() []Attribute { return slices.Clone(g.attributes) }

// RHS returns the operand.
func (g *Group) RHS() RelationalOp { return g.rhs }

// Join combines two operands.
//
// Semantics:
//   - Natural (nil criteria): equal-named attributes are the join keys; the
//     result keeps one copy of each shared attribute. No shared names
//     degrades to a cartesian product.
//   - Theta: criteria is evaluated over the concatenated lhs‖rhs schema;
//     index references at or beyond the lhs arity address rhs columns.
type Join struct {
	lhs      RelationalOp
	criteria Term
	rhs      RelationalOp
}

// NaturalJoin creates lhs ⨝ rhs.
func NaturalJoin(lhs, rhs RelationalOp) *Join {
	mustOperand(lhs)
	mustOperand(rhs)
	return &Join{lhs: lhs, rhs: rhs}
}

// ThetaJoin creates lhs ⨝[criteria] rhs.
// Panics on nil criteria.
func ThetaJoin(lhs RelationalOp, criteria Term, rhs RelationalOp) *Join {
	if criteria == nil {
		panic("queryir: theta join requires criteria")
	}
	j := NaturalJoin(lhs, rhs)
	j.criteria = criteria
	return j
}

// LHS returns the left operand.
func (j *Join) LHS() RelationalOp { return j.lhs }

// RHS returns the right operand.
func (j *Join) RHS() RelationalOp { return j.rhs }

// Criteria returns the theta criteria, or nil for a natural join.
func (j *Join) Criteria() Term { return j.criteria }

// IsNatural reports whether j is a natural join.
func (j *Join) IsNatural() bool { return j.criteria == nil }

// IsTheta reports whether j is a theta join.
func (j *Join) IsTheta() bool { return j.criteria != nil }

// IsEquiJoin reports whether j is a theta join whose criteria consists
// only of top-level conjuncts that are Equal atoms.
func (j *Join) IsEquiJoin() bool {
	if j.criteria == nil {
		return false
	}
	for _, c := range Conjuncts(j.criteria) {
		if !IsEquality(c) {
			return false
		}
	}
	return true
}

func (*Relation) Kind() Kind     { return KindRelation }
func (*SetOperation) Kind() Kind { return KindSetOperation }
func (*Selection) Kind() Kind    { return KindSelection }
func (*Projection) Kind() Kind   { return KindProjection }
func (*Rename) Kind() Kind       { return KindRename }
func (*Order) Kind() Kind        { return KindOrder }
func (*Group) Kind() Kind        { return KindGroup }
func (*Join) Kind() Kind         { return KindJoin }

func (*Relation) relationalOp()     {}
func (*SetOperation) relationalOp() {}
func (*Selection) relationalOp()    {}
func (*Projection) relationalOp()   {}
func (*Rename) relationalOp()       {}
func (*Order) relationalOp()        {}
func (*Group) relationalOp()        {}
func (*Join) relationalOp()         {}

func mustOperand(op RelationalOp) {
	if op == nil {
		panic("queryir: nil operand")
	}
}

// AsRelation narrows op to a *Relation.
func AsRelation(op RelationalOp) (*Relation, bool) {
	v, ok := op.(*Relation)
	return v, ok
}

// AsSetOperation narrows op to a *SetOperation.
func AsSetOperation(op RelationalOp) (*SetOperation, bool) {
	v, ok := op.(*SetOperation)
	return v, ok
}

// AsSelection narrows op to a *Selection.
func AsSelection(op RelationalOp) (*Selection, bool) {
	v, ok := op.(*Selection)
	return v, ok
}

// AsProjection narrows op to a *Projection.
func AsProjection(op RelationalOp) (*Projection, bool) {
	v, ok := op.(*Projection)
	return v, ok
}

// AsRename narrows op to a *Rename.
func AsRename(op RelationalOp) (*Rename, bool) {
	v, ok := op.(*Rename)
	return v, ok
}

// AsOrder narrows op to an *Order.
func AsOrder(op RelationalOp) (*Order, bool) {
	v, ok := op.(*Order)
	return v, ok
}

// AsGroup narrows op to a *Group.
func AsGroup(op RelationalOp) (*Group, bool) {
	v, ok := op.(*Group)
	return v, ok
}

// AsJoin narrows op to a *Join.
func AsJoin(op RelationalOp) (*Join, bool) {
	v, ok := op.(*Join)
	return v, ok
}

// Children returns the operands of op in left-to-right order.
func Children(op RelationalOp) []RelationalOp {
	switch node := op.(type) {
	case *SetOperation:
		return []RelationalOp{node.lhs, node.rhs}
	case *Selection:
		return []RelationalOp{node.rhs}
	case *Projection:
		return []RelationalOp{node.rhs}
	case *Rename:
		return []RelationalOp{node.rhs}
	case *Order:
		return []RelationalOp{node.rhs}
	case *Group:
		return []RelationalOp{node.rhs}
	case *Join:
		return []RelationalOp{node.lhs, node.rhs}
	default:
		return nil
	}
}

// Walk visits op and its descendants in pre-order. Returning false from
// fn skips the node's children.
func Walk(op RelationalOp, fn func(RelationalOp) bool) {
	if op == nil || !fn(op) {
		return
	}
	for _, child := range Children(op) {
		Walk(child, fn)
	}
}

// Relations returns the distinct relation names referenced by op, in
// first-seen pre-order.
func Relations(op RelationalOp) []ir.Name {
	var out []ir.Name
	seen := make(map[ir.Name]struct{})
	Walk(op, func(node RelationalOp) bool {
		if r, ok := node.(*Relation); ok {
			if _, dup := seen[r.name]; !dup {
				seen[r.name] = struct{}{}
				out = append(out, r.name)
			}
		}
		return true
	})
	return out
}
