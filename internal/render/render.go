package render

import (
	"fmt"
	"strings"

	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/queryir"
)

// Format renders a single expression. A named expression renders as
// "name ≔ op" (in the mode's assignment symbol); no terminator is added.
func Format(expr queryir.Expression, mode Mode) string {
	p := newPrinter(mode)
	p.expression(expr)
	return p.String()
}

// FormatList renders every expression followed by ";\n".
func FormatList(list queryir.ExpressionList, mode Mode) string {
	p := newPrinter(mode)
	for _, expr := range list {
		p.expression(expr)
		p.WriteString(";\n")
	}
	return p.String()
}

// FormatOp renders an operator tree.
func FormatOp(op queryir.RelationalOp, mode Mode) string {
	p := newPrinter(mode)
	p.op(op)
	return p.String()
}

// FormatTerm renders a selection or join criteria term.
func FormatTerm(t queryir.Term, mode Mode) string {
	p := newPrinter(mode)
	p.term(t)
	return p.String()
}

type printer struct {
	strings.Builder
	sym *symbols
}

func newPrinter(mode Mode) *printer {
	sym, ok := tables[mode]
	if !ok {
		sym = tables[UnicodeText]
	}
	return &printer{sym: sym}
}

func (p *printer) expression(expr queryir.Expression) {
	if expr.IsNamed() {
		p.name(expr.Name)
		p.WriteString(p.sym.assign)
	}
	p.op(expr.Op)
}

func (p *printer) op(op queryir.RelationalOp) {
	switch node := op.(type) {
	case *queryir.Relation:
		p.name(node.Name())

	case *queryir.SetOperation:
		p.binary(node.LHS(), p.sym.setOps[node.Operator()], node.RHS())

	case *queryir.Selection:
		p.unary(p.sym.selection, func() { p.term(node.Criteria()) }, node.RHS())

	case *queryir.Projection:
		p.unary(p.sym.projection, func() {
			for i, a := range node.Attributes() {
				p.separator(i)
				p.projected(a)
			}
		}, node.RHS())

	case *queryir.Rename:
		p.unary(p.sym.rename, func() {
			for i, r := range node.Renames() {
				p.separator(i)
				p.name(r.To)
			}
		}, node.RHS())

	case *queryir.Order:
		p.unary(p.sym.order, func() { p.attributes(node.Attributes()) }, node.RHS())

	case *queryir.Group:
		p.unary(p.sym.group, func() { p.attributes(node.Attributes()) }, node.RHS())

	case *queryir.Join:
		if node.IsNatural() {
			p.binary(node.LHS(), p.sym.join, node.RHS())
			return
		}
		p.operand(node.LHS())
		p.WriteString(" " + p.sym.join + p.sym.paramOpen)
		p.term(node.Criteria())
		p.WriteString(p.sym.paramClose + " ")
		p.operand(node.RHS())

	default:
		fmt.Fprintf(p, "<%T>", op)
	}
}

func (p *printer) unary(symbol string, params func(), rhs queryir.RelationalOp) {
	p.WriteString(symbol + p.sym.paramOpen)
	params()
	p.WriteString(p.sym.paramClose)
	p.operand(rhs)
}

func (p *printer) binary(lhs queryir.RelationalOp, symbol string, rhs queryir.RelationalOp) {
	p.operand(lhs)
	p.WriteString(" " + symbol + " ")
	p.operand(rhs)
}

// operand renders op, wrapped in the mode's delimiters unless it is a bare
// relation.
func (p *printer) operand(op queryir.RelationalOp) {
	if _, ok := op.(*queryir.Relation); ok {
		p.op(op)
		return
	}
	p.WriteString(p.sym.open)
	p.op(op)
	p.WriteString(p.sym.close)
}

func (p *printer) term(t queryir.Term) {
	switch node := t.(type) {
	case queryir.ConstantTerm:
		p.value(node.Value)
	case queryir.ExistsTerm:
		p.WriteString(p.sym.exists)
		p.attribute(node.Attribute)
	case queryir.AtomTerm:
		p.attribute(node.LHS)
		p.WriteString(p.sym.compare[node.Op])
		p.projected(node.RHS)
	case queryir.NegateTerm:
		p.WriteString(p.sym.not)
		switch node.Term.(type) {
		case queryir.ConstantTerm, queryir.ExistsTerm, queryir.NegateTerm:
			p.term(node.Term)
		default:
			p.WriteString(p.sym.open)
			p.term(node.Term)
			p.WriteString(p.sym.close)
		}
	case queryir.AndTerm:
		p.subterm(node.LHS, isAnd)
		p.WriteString(p.sym.and)
		p.subterm(node.RHS, isAnd)
	case queryir.OrTerm:
		p.subterm(node.LHS, isOr)
		p.WriteString(p.sym.or)
		p.subterm(node.RHS, isOr)
	default:
		fmt.Fprintf(p, "<%T>", t)
	}
}

// subterm renders t, wrapping connectives in the mode's delimiters unless
// same reports that t associates with its parent (a ∧ b ∧ c).
func (p *printer) subterm(t queryir.Term, same func(queryir.Term) bool) {
	if !(isAnd(t) || isOr(t)) || same(t) {
		p.term(t)
		return
	}
	p.WriteString(p.sym.open)
	p.term(t)
	p.WriteString(p.sym.close)
}

func isAnd(t queryir.Term) bool {
	_, ok := t.(queryir.AndTerm)
	return ok
}

func isOr(t queryir.Term) bool {
	_, ok := t.(queryir.OrTerm)
	return ok
}

func (p *printer) attributes(attrs []queryir.Attribute) {
	for i, a := range attrs {
		p.separator(i)
		p.attribute(a)
	}
}

func (p *printer) attribute(a queryir.Attribute) {
	if n, ok := a.AsName(); ok {
		p.name(n)
		return
	}
	idx, _ := a.AsIndex()
	fmt.Fprintf(p, "%d", idx)
}

func (p *printer) projected(a queryir.ProjectedAttribute) {
	if v, ok := a.AsConstant(); ok {
		p.value(v)
		return
	}
	attr, _ := a.AsAttribute()
	p.attribute(attr)
}

func (p *printer) value(v ir.Value) {
	p.WriteString(p.sym.escape(v.String()))
}

func (p *printer) name(n ir.Name) {
	p.WriteString(p.sym.escape(n.String()))
}

func (p *printer) separator(i int) {
	if i > 0 {
		p.WriteString(", ")
	}
}
