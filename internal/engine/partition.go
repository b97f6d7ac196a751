package engine

import (
	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/queryir"
)

// Group is one partition of a relation: the shared key values and the
// member tuples carrying them.
type Group struct {
	// Key holds the grouping attribute values, in grouping order.
	Key []ir.Value

	// Members holds the tuples of the partition under the operand schema,
	// in operand order.
	Members *data.SimpleRelation
}

// Partition splits rel into groups of tuples with equal values on attrs.
//
// Groups appear in first-seen order. The Group operator's result is the
// set of Key tuples; Partition exposes the members as well for hosts that
// aggregate outside the IR.
func Partition(rel data.Relation, attrs []queryir.Attribute) ([]Group, error) {
	src, err := data.Materialize(rel)
	if err != nil {
		return nil, err
	}
	keys, err := resolveAttributes(src.Schema(), attrs)
	if err != nil {
		return nil, err
	}

	var groups []Group
	index := make(map[string]int)
	for i := 0; i < src.Len(); i++ {
		t := src.TupleAt(i)
		key := pick(t, keys)
		k := key.Key()
		g, ok := index[k]
		if !ok {
			g = len(groups)
			index[k] = g
			groups = append(groups, Group{Key: key, Members: data.NewRelation(src.Schema())})
		}
		groups[g].Members.Add(t)
	}
	return groups, nil
}
