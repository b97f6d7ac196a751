package queryir

import (
	"fmt"
	"strconv"

	"github.com/roach88/relalg/internal/ir"
)

// Attribute references a column either by position or by name.
//
// Attribute is comparable and may be used as a map key. Backends resolve
// it once per evaluation against the operand schema into a fixed index.
type Attribute struct {
	index int
	name  ir.Name
}

// Index creates a positional attribute reference.
// Panics if i is negative.
func Index(i int) Attribute {
	if i < 0 {
		panic(fmt.Sprintf("queryir: negative attribute index %d", i))
	}
	return Attribute{index: i}
}

// Named creates a by-name attribute reference.
// Panics if n is the empty name.
func Named(n ir.Name) Attribute {
	if n.IsZero() {
		panic("queryir: empty attribute name")
	}
	return Attribute{name: n}
}

// IsIndex reports whether a is a positional reference.
func (a Attribute) IsIndex() bool { return a.name.IsZero() }

// IsName reports whether a is a by-name reference.
func (a Attribute) IsName() bool { return !a.name.IsZero() }

// AsIndex returns the position if a is a positional reference.
func (a Attribute) AsIndex() (int, bool) { return a.index, a.IsIndex() }

// AsName returns the name if a is a by-name reference.
func (a Attribute) AsName() (ir.Name, bool) { return a.name, a.IsName() }

// String renders the reference as its index or name.
func (a Attribute) String() string {
	if a.IsName() {
		return a.name.String()
	}
	return strconv.Itoa(a.index)
}

// CompareAttributes orders positional references before named ones,
// positions ascending and names by value.
func CompareAttributes(a, b Attribute) int {
	switch {
	case a.IsIndex() && b.IsIndex():
		return a.index - b.index
	case a.IsIndex():
		return -1
	case b.IsIndex():
		return 1
	default:
		return ir.CompareNames(a.name, b.name)
	}
}

// ProjectedAttribute is an Attribute or a literal Value.
// It is used for projection columns and the right operand of atoms.
type ProjectedAttribute struct {
	attr     Attribute
	constant ir.Value
}

// Ref wraps an attribute reference.
func Ref(a Attribute) ProjectedAttribute {
	return ProjectedAttribute{attr: a}
}

// Lit wraps a literal value.
// Panics if v is nil.
func Lit(v ir.Value) ProjectedAttribute {
	if v == nil {
		panic("queryir: nil literal")
	}
	return ProjectedAttribute{constant: v}
}

// IsConstant reports whether p is a literal.
func (p ProjectedAttribute) IsConstant() bool { return p.constant != nil }

// AsConstant returns the literal if p is one.
func (p ProjectedAttribute) AsConstant() (ir.Value, bool) { return p.constant, p.constant != nil }

// AsAttribute returns the attribute reference if p is one.
func (p ProjectedAttribute) AsAttribute() (Attribute, bool) { return p.attr, p.constant == nil }

// String renders the reference, or the literal's display form.
func (p ProjectedAttribute) String() string {
	if p.constant != nil {
		return p.constant.String()
	}
	return p.attr.String()
}

// Refs wraps attributes as projected attributes.
func Refs(attrs ...Attribute) []ProjectedAttribute {
	out := make([]ProjectedAttribute, len(attrs))
	for i, a := range attrs {
		out[i] = Ref(a)
	}
	return out
}

// Names creates by-name references.
// Panics if any name is empty.
func Names(names ...ir.Name) []Attribute {
	out := make([]Attribute, len(names))
	for i, n := range names {
		out[i] = Named(n)
	}
	return out
}
