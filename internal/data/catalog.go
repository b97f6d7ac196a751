package data

import (
	"maps"
	"slices"

	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/schema"
)

// Catalog is an in-memory name → relation map.
// It satisfies the engine's data provider contract.
type Catalog struct {
	relations map[ir.Name]Relation
}

// NewCatalog creates a catalog holding the given relations, keyed by their
// schema names.
func NewCatalog(relations ...Relation) *Catalog {
	c := &Catalog{relations: make(map[ir.Name]Relation, len(relations))}
	for _, r := range relations {
		c.Put(r.Schema().Name(), r)
	}
	return c
}

// Put binds name to rel, replacing any previous binding.
func (c *Catalog) Put(name ir.Name, rel Relation) {
	c.relations[name] = rel
}

// Get returns the relation bound to name.
func (c *Catalog) Get(name ir.Name) (Relation, bool) {
	r, ok := c.relations[name]
	return r, ok
}

// Resolve implements the data provider contract.
// Fails with KindRelationDoesNotExist for unbound names.
func (c *Catalog) Resolve(name ir.Name) (Relation, error) {
	r, ok := c.relations[name]
	if !ok {
		return nil, ir.NewRelationDoesNotExistError(name)
	}
	return r, nil
}

// Names returns the bound names in sorted order.
func (c *Catalog) Names() []ir.Name {
	return slices.Sorted(maps.Keys(c.relations))
}

// Schema returns the schema of every bound relation, renamed to its
// binding name.
func (c *Catalog) Schema() (*schema.SimpleSchema, error) {
	s, _ := schema.NewSchema()
	for _, name := range c.Names() {
		if err := s.Add(schema.Rename(c.relations[name].Schema(), name)); err != nil {
			return nil, err
		}
	}
	return s, nil
}
