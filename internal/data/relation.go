package data

import (
	"iter"
	"maps"
	"slices"

	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/schema"
)

// Tuple is a fixed-length, positionally-indexed sequence of values.
type Tuple interface {
	// Len returns the number of values.
	Len() int

	// Value returns the value at position i.
	// Callers must check 0 <= i < Len().
	Value(i int) ir.Value

	// Values returns the values in positional order.
	// Callers must not mutate the returned slice.
	Values() []ir.Value
}

// Relation is a finite set of tuples conforming to a schema.
type Relation interface {
	// Schema returns the attribute header every tuple conforms to.
	Schema() schema.RelationSchema

	// Len returns the number of tuples.
	Len() int

	// Tuples returns a restartable sequence over the tuple set.
	Tuples() iter.Seq[Tuple]
}

// SimpleTuple is the slice implementation of Tuple.
type SimpleTuple []ir.Value

func (t SimpleTuple) Len() int             { return len(t) }
func (t SimpleTuple) Value(i int) ir.Value { return t[i] }
func (t SimpleTuple) Values() []ir.Value   { return t }

// Key returns the canonical identity of the tuple.
func (t SimpleTuple) Key() string {
	return ir.TupleKey(t)
}

// SimpleRelation is a materialized, insertion-ordered tuple set.
//
// INVARIANTS:
//   - every tuple has Arity() values whose domains match the schema
//   - no two tuples have the same ir.TupleKey
type SimpleRelation struct {
	schema schema.RelationSchema
	tuples []SimpleTuple
	index  map[string]int
}

// NewRelation creates an empty relation with the given schema.
func NewRelation(rs schema.RelationSchema) *SimpleRelation {
	return &SimpleRelation{
		schema: rs,
		index:  make(map[string]int),
	}
}

// FromRows creates a relation and inserts every row.
// Fails on the first non-conforming row.
func FromRows(rs schema.RelationSchema, rows ...[]ir.Value) (*SimpleRelation, error) {
	r := NewRelation(rs)
	for _, row := range rows {
		if _, err := r.Insert(row...); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustFromRows is like FromRows but panics on error.
// Use only in tests.
func MustFromRows(rs schema.RelationSchema, rows ...[]ir.Value) *SimpleRelation {
	r, err := FromRows(rs, rows...)
	if err != nil {
		panic(err)
	}
	return r
}

// Schema returns the relation schema.
func (r *SimpleRelation) Schema() schema.RelationSchema { return r.schema }

// Len returns the number of tuples.
func (r *SimpleRelation) Len() int { return len(r.tuples) }

// Tuples iterates tuples in insertion order.
func (r *SimpleRelation) Tuples() iter.Seq[Tuple] {
	return func(yield func(Tuple) bool) {
		for _, t := range r.tuples {
			if !yield(t) {
				return
			}
		}
	}
}

// TupleAt returns the i-th tuple in insertion order.
func (r *SimpleRelation) TupleAt(i int) SimpleTuple { return r.tuples[i] }

// Rows returns the tuples as value slices in insertion order.
func (r *SimpleRelation) Rows() [][]ir.Value {
	out := make([][]ir.Value, len(r.tuples))
	for i, t := range r.tuples {
		out[i] = slices.Clone(t)
	}
	return out
}

// Insert validates and adds a tuple.
// Returns false without error if an equal tuple is already present.
// Fails with KindIncompatibleTypes on arity mismatch and KindInvalidValue
// when a value's domain differs from its attribute's.
func (r *SimpleRelation) Insert(values ...ir.Value) (bool, error) {
	if err := Conforms(r.schema, values); err != nil {
		return false, err
	}
	return r.insertUnchecked(slices.Clone(values)), nil
}

// MustInsert is like Insert but panics on error.
func (r *SimpleRelation) MustInsert(values ...ir.Value) bool {
	added, err := r.Insert(values...)
	if err != nil {
		panic(err)
	}
	return added
}

// Add inserts a tuple the caller has already validated.
// Used by the engine, where result tuples conform by construction.
func (r *SimpleRelation) Add(t SimpleTuple) bool {
	return r.insertUnchecked(t)
}

func (r *SimpleRelation) insertUnchecked(t SimpleTuple) bool {
	k := t.Key()
	if _, exists := r.index[k]; exists {
		return false
	}
	r.index[k] = len(r.tuples)
	r.tuples = append(r.tuples, t)
	return true
}

// Contains reports whether a tuple equal to values is present.
func (r *SimpleRelation) Contains(values ...ir.Value) bool {
	_, ok := r.index[ir.TupleKey(values)]
	return ok
}

// ContainsKey reports whether a tuple with canonical key k is present.
func (r *SimpleRelation) ContainsKey(k string) bool {
	_, ok := r.index[k]
	return ok
}

// Keys returns the canonical tuple keys in insertion order.
func (r *SimpleRelation) Keys() []string {
	out := make([]string, len(r.tuples))
	for i, t := range r.tuples {
		out[i] = t.Key()
	}
	return out
}

// Digest returns the content digest of the relation (see ir.RelationDigest).
func (r *SimpleRelation) Digest() string {
	return ir.RelationDigest(schema.Domains(r.schema), r.Keys())
}

// Clone returns an independent copy of r. Inserting into the copy never
// affects r.
func (r *SimpleRelation) Clone() *SimpleRelation {
	return r.WithSchema(r.schema)
}

// WithSchema returns a copy of r under a different, positionally identical
// schema. Tuple values are shared; the tuple set is not.
func (r *SimpleRelation) WithSchema(rs schema.RelationSchema) *SimpleRelation {
	return &SimpleRelation{
		schema: rs,
		tuples: slices.Clone(r.tuples),
		index:  maps.Clone(r.index),
	}
}

// Conforms checks a value sequence against a relation schema.
func Conforms(rs schema.RelationSchema, values []ir.Value) error {
	if len(values) != rs.Arity() {
		return ir.NewArityMismatchError(rs.Arity(), len(values))
	}
	for i, v := range values {
		want := rs.Attribute(i).Domain()
		if v == nil || v.Domain() != want {
			text := "null"
			if v != nil {
				text = v.String()
			}
			e := ir.NewInvalidValueError(want, text)
			e.Index = i
			e.HasIndex = true
			e.Name = rs.Attribute(i).Name().String()
			return e
		}
	}
	return nil
}

// Materialize copies any Relation into a new SimpleRelation, validating
// every tuple and collapsing duplicates. A SimpleRelation is already valid
// and is cloned without revalidation.
func Materialize(rel Relation) (*SimpleRelation, error) {
	if sr, ok := rel.(*SimpleRelation); ok {
		return sr.Clone(), nil
	}
	out := NewRelation(rel.Schema())
	for t := range rel.Tuples() {
		if _, err := out.Insert(t.Values()...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SetEqual reports whether two relations contain the same tuple set,
// ignoring order and attribute names.
func SetEqual(a, b Relation) bool {
	if a.Len() != b.Len() {
		return false
	}
	keys := make(map[string]struct{}, a.Len())
	for t := range a.Tuples() {
		keys[ir.TupleKey(t.Values())] = struct{}{}
	}
	for t := range b.Tuples() {
		if _, ok := keys[ir.TupleKey(t.Values())]; !ok {
			return false
		}
	}
	return true
}

// SubsetOf reports whether every tuple of a is in b.
func SubsetOf(a, b Relation) bool {
	keys := make(map[string]struct{}, b.Len())
	for t := range b.Tuples() {
		keys[ir.TupleKey(t.Values())] = struct{}{}
	}
	for t := range a.Tuples() {
		if _, ok := keys[ir.TupleKey(t.Values())]; !ok {
			return false
		}
	}
	return true
}

// SortedRows returns the tuples of rel ordered by value, comparing
// positions left to right. Snapshots and tables use it for stable output.
func SortedRows(rel Relation) [][]ir.Value {
	rows := make([][]ir.Value, 0, rel.Len())
	for t := range rel.Tuples() {
		rows = append(rows, slices.Clone(t.Values()))
	}
	slices.SortFunc(rows, func(a, b []ir.Value) int {
		for i := range a {
			if c := ir.MustCompare(a[i], b[i]); c != 0 {
				return c
			}
		}
		return 0
	})
	return rows
}
