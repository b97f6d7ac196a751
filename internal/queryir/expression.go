package queryir

import "github.com/roach88/relalg/internal/ir"

// Expression pairs an optional binding name with an operator tree.
//
// An unnamed expression is a bare query. A named expression binds its
// result under Name so later expressions in the same ExpressionList can
// reference it as a Relation.
type Expression struct {
	Name ir.Name // Zero value = unnamed
	Op   RelationalOp
}

// Query creates an unnamed expression.
func Query(op RelationalOp) Expression {
	mustOperand(op)
	return Expression{Op: op}
}

// Bind creates a named expression.
// Panics if name is empty.
func Bind(name ir.Name, op RelationalOp) Expression {
	if name.IsZero() {
		panic("queryir: empty binding name")
	}
	mustOperand(op)
	return Expression{Name: name, Op: op}
}

// IsNamed reports whether the expression binds a name.
func (e Expression) IsNamed() bool {
	return !e.Name.IsZero()
}

// ExpressionList is an ordered sequence of expressions evaluated strictly
// in order; earlier bindings are visible to later expressions.
type ExpressionList []Expression

// Bindings returns the binding names in order, skipping unnamed
// expressions.
func (l ExpressionList) Bindings() []ir.Name {
	var out []ir.Name
	for _, e := range l {
		if e.IsNamed() {
			out = append(out, e.Name)
		}
	}
	return out
}

// FreeRelations returns the relation names referenced by the list that
// are not bound by an earlier expression, in first-seen order. These are
// the names the data provider must resolve.
func (l ExpressionList) FreeRelations() []ir.Name {
	bound := make(map[ir.Name]struct{})
	seen := make(map[ir.Name]struct{})
	var out []ir.Name
	for _, e := range l {
		for _, name := range Relations(e.Op) {
			if _, ok := bound[name]; ok {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
		if e.IsNamed() {
			bound[e.Name] = struct{}{}
		}
	}
	return out
}
