package engine

import (
	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/schema"
)

// Provider resolves relation names to data.
//
// data.Catalog and store.Store both satisfy Provider. Implementations
// must fail with an ir.Error of kind KindRelationDoesNotExist for unknown
// names.
type Provider interface {
	Resolve(name ir.Name) (data.Relation, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(name ir.Name) (data.Relation, error)

// Resolve calls f(name).
func (f ProviderFunc) Resolve(name ir.Name) (data.Relation, error) {
	return f(name)
}

// scope overlays expression-list bindings on a Provider.
//
// Lookup order: bindings first (most recent wins), then the provider.
// Bindings therefore shadow provider relations of the same name for every
// later expression in the list.
type scope struct {
	parent   Provider
	bindings map[ir.Name]*data.SimpleRelation
}

func newScope(parent Provider) *scope {
	return &scope{
		parent:   parent,
		bindings: make(map[ir.Name]*data.SimpleRelation),
	}
}

// Resolve implements Provider.
func (s *scope) Resolve(name ir.Name) (data.Relation, error) {
	if rel, ok := s.bindings[name]; ok {
		return rel, nil
	}
	if s.parent == nil {
		return nil, ir.NewRelationDoesNotExistError(name)
	}
	return s.parent.Resolve(name)
}

// bind records rel under name, replacing any earlier binding.
func (s *scope) bind(name ir.Name, rel *data.SimpleRelation) {
	s.bindings[name] = rel
}

// schemaScope is the static counterpart of scope used by inference.
type schemaScope struct {
	parent   schema.Schema
	bindings map[ir.Name]schema.RelationSchema
}

func newSchemaScope(parent schema.Schema) *schemaScope {
	return &schemaScope{
		parent:   parent,
		bindings: make(map[ir.Name]schema.RelationSchema),
	}
}

func (s *schemaScope) resolve(name ir.Name) (schema.RelationSchema, error) {
	if rs, ok := s.bindings[name]; ok {
		return rs, nil
	}
	if s.parent != nil {
		if rs, ok := s.parent.Relation(name); ok {
			return rs, nil
		}
	}
	return nil, ir.NewRelationDoesNotExistError(name)
}

func (s *schemaScope) bind(name ir.Name, rs schema.RelationSchema) {
	s.bindings[name] = rs
}
