package schema

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/relalg/internal/ir"
)

// AttributeSchema is a named, typed column.
// An empty Name denotes an anonymous attribute (constant projections).
type AttributeSchema interface {
	Name() ir.Name
	Domain() ir.Domain
}

// RelationSchema is the ordered attribute header of a relation.
type RelationSchema interface {
	// Name returns the relation name, or the empty name for derived results.
	Name() ir.Name

	// Arity returns the number of attributes.
	Arity() int

	// Attribute returns the attribute at position i.
	// Callers must check 0 <= i < Arity().
	Attribute(i int) AttributeSchema

	// Attributes returns the attributes in positional order.
	Attributes() []AttributeSchema

	// IndexOf resolves an attribute name to its position.
	// Fails with KindAttributeDoesNotExist if the name is absent or
	// appears more than once.
	IndexOf(name ir.Name) (int, error)
}

// Schema is a collection of uniquely-named relation schemas.
type Schema interface {
	// Relation looks up a relation schema by name.
	Relation(name ir.Name) (RelationSchema, bool)

	// Relations returns every relation schema sorted by name.
	Relations() []RelationSchema
}

// SimpleAttributeSchema is the value implementation of AttributeSchema.
type SimpleAttributeSchema struct {
	name   ir.Name
	domain ir.Domain
}

// Attr creates an attribute schema.
func Attr(name ir.Name, domain ir.Domain) SimpleAttributeSchema {
	return SimpleAttributeSchema{name: name, domain: domain}
}

// Anonymous creates an unnamed attribute schema of the given domain.
func Anonymous(domain ir.Domain) SimpleAttributeSchema {
	return SimpleAttributeSchema{domain: domain}
}

// Name returns the attribute name (empty if anonymous).
func (a SimpleAttributeSchema) Name() ir.Name { return a.name }

// Domain returns the attribute domain.
func (a SimpleAttributeSchema) Domain() ir.Domain { return a.domain }

// String renders the attribute as "name:domain".
func (a SimpleAttributeSchema) String() string {
	if a.name.IsZero() {
		return "_:" + a.domain.String()
	}
	return a.name.String() + ":" + a.domain.String()
}

// SimpleRelationSchema is the in-memory implementation of RelationSchema.
//
// INVARIANTS (declared schemas, built with NewRelationSchema):
//   - at least one attribute
//   - attribute names are non-empty and pairwise distinct
//
// Derived schemas (built with Derived) relax the name invariant: the
// product of two relations may repeat a name, and constant projections
// are anonymous. Such names cannot be addressed by name, only by index.
type SimpleRelationSchema struct {
	name    ir.Name
	attrs   []AttributeSchema
	indexOf map[ir.Name]int // -1 marks an ambiguous name
}

// NewRelationSchema creates a declared relation schema.
// Fails with KindNullaryFactsNotAllowed for zero attributes, KindInvalidName
// for anonymous attributes, and KindDuplicateName for repeated names.
func NewRelationSchema(name ir.Name, attrs ...AttributeSchema) (*SimpleRelationSchema, error) {
	if len(attrs) == 0 {
		return nil, ir.NewNullaryFactsError(name)
	}
	for i, a := range attrs {
		if a.Name().IsZero() {
			return nil, &ir.Error{
				Kind:     ir.KindInvalidName,
				Message:  "declared attributes must be named",
				Name:     name.String(),
				Index:    i,
				HasIndex: true,
			}
		}
		if !a.Domain().IsValid() {
			return nil, ir.NewInvalidValueError(a.Domain(), a.Name().String())
		}
	}
	s := Derived(name, attrs...)
	for n, idx := range s.indexOf {
		if idx < 0 {
			return nil, ir.NewDuplicateNameError(n)
		}
	}
	return s, nil
}

// MustRelationSchema is like NewRelationSchema but panics on error.
// Use only in tests or with literal schemas.
func MustRelationSchema(name ir.Name, attrs ...AttributeSchema) *SimpleRelationSchema {
	s, err := NewRelationSchema(name, attrs...)
	if err != nil {
		panic(err)
	}
	return s
}

// Derived creates a schema for an intermediate result. Duplicate and
// anonymous names are permitted.
func Derived(name ir.Name, attrs ...AttributeSchema) *SimpleRelationSchema {
	s := &SimpleRelationSchema{
		name:    name,
		attrs:   slices.Clone(attrs),
		indexOf: make(map[ir.Name]int, len(attrs)),
	}
	for i, a := range attrs {
		n := a.Name()
		if n.IsZero() {
			continue
		}
		if _, seen := s.indexOf[n]; seen {
			s.indexOf[n] = -1
			continue
		}
		s.indexOf[n] = i
	}
	return s
}

// Name returns the relation name.
func (s *SimpleRelationSchema) Name() ir.Name { return s.name }

// Arity returns the number of attributes.
func (s *SimpleRelationSchema) Arity() int { return len(s.attrs) }

// Attribute returns the attribute at position i.
func (s *SimpleRelationSchema) Attribute(i int) AttributeSchema { return s.attrs[i] }

// Attributes returns a copy of the attribute list.
func (s *SimpleRelationSchema) Attributes() []AttributeSchema { return slices.Clone(s.attrs) }

// IndexOf resolves name to its position.
func (s *SimpleRelationSchema) IndexOf(name ir.Name) (int, error) {
	idx, ok := s.indexOf[name]
	if !ok {
		return 0, ir.NewAttributeDoesNotExistError(name)
	}
	if idx < 0 {
		return 0, ir.NewAmbiguousAttributeError(name)
	}
	return idx, nil
}

// String renders the schema as "name(a:integer, b:string)".
func (s *SimpleRelationSchema) String() string {
	return Format(s)
}

// Format renders any RelationSchema as "name(a:integer, b:string)".
func Format(rs RelationSchema) string {
	parts := make([]string, rs.Arity())
	for i := range parts {
		parts[i] = Attr(rs.Attribute(i).Name(), rs.Attribute(i).Domain()).String()
	}
	return fmt.Sprintf("%s(%s)", rs.Name(), strings.Join(parts, ", "))
}

// Domains returns the positional domains of rs.
func Domains(rs RelationSchema) []ir.Domain {
	out := make([]ir.Domain, rs.Arity())
	for i := range out {
		out[i] = rs.Attribute(i).Domain()
	}
	return out
}

// Names returns the positional attribute names of rs.
func Names(rs RelationSchema) []ir.Name {
	out := make([]ir.Name, rs.Arity())
	for i := range out {
		out[i] = rs.Attribute(i).Name()
	}
	return out
}

// Rename returns a derived copy of rs with a new relation name.
func Rename(rs RelationSchema, name ir.Name) *SimpleRelationSchema {
	return Derived(name, rs.Attributes()...)
}

// UnionCompatible checks that two schemas have the same arity and pairwise
// equal domains by position. Attribute names are not compared.
// Fails with KindIncompatibleTypes naming the first mismatch.
func UnionCompatible(lhs, rhs RelationSchema) error {
	if lhs.Arity() != rhs.Arity() {
		return ir.NewArityMismatchError(lhs.Arity(), rhs.Arity())
	}
	for i := 0; i < lhs.Arity(); i++ {
		l, r := lhs.Attribute(i).Domain(), rhs.Attribute(i).Domain()
		if l != r {
			return ir.NewPositionTypesError(i, l, r)
		}
	}
	return nil
}

// Equal reports whether two schemas have the same names and domains in
// the same order. Relation names are not compared.
func Equal(a, b RelationSchema) bool {
	return slices.Equal(Names(a), Names(b)) && slices.Equal(Domains(a), Domains(b))
}

// SimpleSchema is the in-memory implementation of Schema.
type SimpleSchema struct {
	relations map[ir.Name]RelationSchema
}

// NewSchema creates a schema from relation schemas.
// Fails with KindDuplicateName if two relations share a name.
func NewSchema(relations ...RelationSchema) (*SimpleSchema, error) {
	s := &SimpleSchema{relations: make(map[ir.Name]RelationSchema, len(relations))}
	for _, r := range relations {
		if err := s.Add(r); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add inserts a relation schema.
// Fails with KindDuplicateName if the name is taken and KindInvalidName if
// the relation is anonymous.
func (s *SimpleSchema) Add(r RelationSchema) error {
	if r.Name().IsZero() {
		return ir.NewInvalidNameError("")
	}
	if _, exists := s.relations[r.Name()]; exists {
		return ir.NewDuplicateNameError(r.Name())
	}
	s.relations[r.Name()] = r
	return nil
}

// Relation looks up a relation schema by name.
func (s *SimpleSchema) Relation(name ir.Name) (RelationSchema, bool) {
	r, ok := s.relations[name]
	return r, ok
}

// Relations returns the relation schemas sorted by name.
func (s *SimpleSchema) Relations() []RelationSchema {
	names := slices.Sorted(maps.Keys(s.relations))
	out := make([]RelationSchema, len(names))
	for i, n := range names {
		out[i] = s.relations[n]
	}
	return out
}

// Len returns the number of relation schemas.
func (s *SimpleSchema) Len() int {
	return len(s.relations)
}
