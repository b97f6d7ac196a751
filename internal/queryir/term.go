package queryir

import (
	"fmt"

	"github.com/roach88/relalg/internal/ir"
)

// Term is a boolean condition over one tuple's attributes.
//
// This is a sealed interface - only types in this package implement it.
// Terms are used as Selection and theta-Join criteria.
//
// Term types:
//   - ConstantTerm: a literal; only Boolean literals are meaningful
//   - ExistsTerm: the attribute resolves against the tuple's schema
//   - AtomTerm: <attribute> <op> <attribute-or-literal>
//   - NegateTerm: logical NOT
//   - AndTerm, OrTerm: short-circuiting conjunction and disjunction
type Term interface {
	termNode() // Marker method - seals interface to this package
}

// ConstantTerm is a literal condition.
//
// Semantics: Boolean(true) is true, Boolean(false) is false, and any other
// domain is a usage error (IncompatibleTypes) reported at evaluation.
type ConstantTerm struct {
	Value ir.Value
}

// ExistsTerm is true iff Attribute resolves against the tuple's schema.
// Resolution failures are reported as errors, not as false.
type ExistsTerm struct {
	Attribute Attribute
}

// AtomTerm compares an attribute to another attribute or a literal.
//
// Semantics:
//
//	<lhs> <op> <rhs>
//
// Both sides must resolve to the same domain. Ordering operators use the
// natural order of the domain (ir.Compare). StringMatch and StringNotMatch
// require String operands; RHS is a regular expression (RE2 syntax)
// searched for anywhere in LHS.
type AtomTerm struct {
	LHS Attribute
	Op  ComparisonOperator
	RHS ProjectedAttribute
}

// NegateTerm is the logical complement of Term.
type NegateTerm struct {
	Term Term
}

// AndTerm is true iff both operands are true. RHS is not evaluated when
// LHS is false.
type AndTerm struct {
	LHS Term
	RHS Term
}

// OrTerm is true iff either operand is true. RHS is not evaluated when LHS
// is true.
type OrTerm struct {
	LHS Term
	RHS Term
}

func (ConstantTerm) termNode() {}
func (ExistsTerm) termNode()   {}
func (AtomTerm) termNode()     {}
func (NegateTerm) termNode()   {}
func (AndTerm) termNode()      {}
func (OrTerm) termNode()       {}

// ComparisonOperator is the relation tested by an AtomTerm.
type ComparisonOperator uint8

const (
	Equal ComparisonOperator = iota + 1
	NotEqual
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
	StringMatch
	StringNotMatch
)

var comparisonKeys = map[ComparisonOperator]string{
	Equal:              "eq",
	NotEqual:           "ne",
	LessThan:           "lt",
	LessThanOrEqual:    "le",
	GreaterThan:        "gt",
	GreaterThanOrEqual: "ge",
	StringMatch:        "match",
	StringNotMatch:     "not_match",
}

// ComparisonOperators returns every operator in declaration order.
func ComparisonOperators() []ComparisonOperator {
	return []ComparisonOperator{
		Equal, NotEqual, LessThan, LessThanOrEqual,
		GreaterThan, GreaterThanOrEqual, StringMatch, StringNotMatch,
	}
}

// String returns the codec key of the operator ("eq", "lt", ...).
func (op ComparisonOperator) String() string {
	if s, ok := comparisonKeys[op]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// IsValid reports whether op is a known operator.
func (op ComparisonOperator) IsValid() bool {
	_, ok := comparisonKeys[op]
	return ok
}

// IsPattern reports whether op is StringMatch or StringNotMatch.
func (op ComparisonOperator) IsPattern() bool {
	return op == StringMatch || op == StringNotMatch
}

// Negate returns the logical complement of op:
// Equal↔NotEqual, LessThan↔GreaterThanOrEqual, GreaterThan↔LessThanOrEqual,
// StringMatch↔StringNotMatch.
func (op ComparisonOperator) Negate() ComparisonOperator {
	switch op {
	case Equal:
		return NotEqual
	case NotEqual:
		return Equal
	case LessThan:
		return GreaterThanOrEqual
	case GreaterThanOrEqual:
		return LessThan
	case GreaterThan:
		return LessThanOrEqual
	case LessThanOrEqual:
		return GreaterThan
	case StringMatch:
		return StringNotMatch
	case StringNotMatch:
		return StringMatch
	default:
		return op
	}
}

// Apply interprets a three-way comparison result under op.
// Pattern operators are not ordering relations and always return false.
func (op ComparisonOperator) Apply(c int) bool {
	switch op {
	case Equal:
		return c == 0
	case NotEqual:
		return c != 0
	case LessThan:
		return c < 0
	case LessThanOrEqual:
		return c <= 0
	case GreaterThan:
		return c > 0
	case GreaterThanOrEqual:
		return c >= 0
	default:
		return false
	}
}

// ParseComparisonOperator parses a codec key ("eq", "not_match", ...).
func ParseComparisonOperator(s string) (ComparisonOperator, error) {
	for op, key := range comparisonKeys {
		if key == s {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown comparison operator %q", s)
}

// True is the always-true criteria.
func True() Term { return ConstantTerm{Value: ir.Boolean(true)} }

// False is the always-false criteria.
func False() Term { return ConstantTerm{Value: ir.Boolean(false)} }

// Const creates a constant term.
func Const(v ir.Value) Term { return ConstantTerm{Value: v} }

// Exists creates an existence test.
func Exists(a Attribute) Term { return ExistsTerm{Attribute: a} }

// Atom creates a comparison term.
func Atom(lhs Attribute, op ComparisonOperator, rhs ProjectedAttribute) Term {
	return AtomTerm{LHS: lhs, Op: op, RHS: rhs}
}

// Eq is shorthand for Atom(lhs, Equal, rhs).
func Eq(lhs Attribute, rhs ProjectedAttribute) Term { return Atom(lhs, Equal, rhs) }

// Ne is shorthand for Atom(lhs, NotEqual, rhs).
func Ne(lhs Attribute, rhs ProjectedAttribute) Term { return Atom(lhs, NotEqual, rhs) }

// Lt is shorthand for Atom(lhs, LessThan, rhs).
func Lt(lhs Attribute, rhs ProjectedAttribute) Term { return Atom(lhs, LessThan, rhs) }

// Le is shorthand for Atom(lhs, LessThanOrEqual, rhs).
func Le(lhs Attribute, rhs ProjectedAttribute) Term { return Atom(lhs, LessThanOrEqual, rhs) }

// Gt is shorthand for Atom(lhs, GreaterThan, rhs).
func Gt(lhs Attribute, rhs ProjectedAttribute) Term { return Atom(lhs, GreaterThan, rhs) }

// Ge is shorthand for Atom(lhs, GreaterThanOrEqual, rhs).
func Ge(lhs Attribute, rhs ProjectedAttribute) Term { return Atom(lhs, GreaterThanOrEqual, rhs) }

// Match is shorthand for Atom(lhs, StringMatch, rhs).
func Match(lhs Attribute, rhs ProjectedAttribute) Term { return Atom(lhs, StringMatch, rhs) }

// NotMatch is shorthand for Atom(lhs, StringNotMatch, rhs).
func NotMatch(lhs Attribute, rhs ProjectedAttribute) Term { return Atom(lhs, StringNotMatch, rhs) }

// Not returns the complement of t, pushing negation into atoms and
// boolean constants and removing double negation. Other terms are wrapped
// in a NegateTerm.
func Not(t Term) Term {
	switch term := t.(type) {
	case AtomTerm:
		term.Op = term.Op.Negate()
		return term
	case NegateTerm:
		return term.Term
	case ConstantTerm:
		if b, ok := term.Value.(ir.Boolean); ok {
			return ConstantTerm{Value: !b}
		}
	}
	return NegateTerm{Term: t}
}

// And folds terms left-to-right into nested AndTerms.
// Panics if no terms are given.
func And(terms ...Term) Term {
	return fold(terms, func(l, r Term) Term { return AndTerm{LHS: l, RHS: r} })
}

// Or folds terms left-to-right into nested OrTerms.
// Panics if no terms are given.
func Or(terms ...Term) Term {
	return fold(terms, func(l, r Term) Term { return OrTerm{LHS: l, RHS: r} })
}

func fold(terms []Term, join func(l, r Term) Term) Term {
	if len(terms) == 0 {
		panic("queryir: empty term list")
	}
	acc := terms[0]
	for _, t := range terms[1:] {
		acc = join(acc, t)
	}
	return acc
}

// Conjuncts flattens nested AndTerms into their top-level operands in
// left-to-right order. A non-And term is its own single conjunct.
func Conjuncts(t Term) []Term {
	and, ok := t.(AndTerm)
	if !ok {
		return []Term{t}
	}
	return append(Conjuncts(and.LHS), Conjuncts(and.RHS)...)
}

// IsEquality reports whether t is an AtomTerm with the Equal operator.
func IsEquality(t Term) bool {
	atom, ok := t.(AtomTerm)
	return ok && atom.Op == Equal
}

// TermAttributes returns every attribute referenced by t, in depth-first
// order, including attribute-valued RHS operands.
func TermAttributes(t Term) []Attribute {
	var out []Attribute
	var walk func(Term)
	walk = func(t Term) {
		switch term := t.(type) {
		case ExistsTerm:
			out = append(out, term.Attribute)
		case AtomTerm:
			out = append(out, term.LHS)
			if a, ok := term.RHS.AsAttribute(); ok {
				out = append(out, a)
			}
		case NegateTerm:
			walk(term.Term)
		case AndTerm:
			walk(term.LHS)
			walk(term.RHS)
		case OrTerm:
			walk(term.LHS)
			walk(term.RHS)
		}
	}
	walk(t)
	return out
}
