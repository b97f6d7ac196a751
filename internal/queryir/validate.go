package queryir

import (
	"fmt"

	"github.com/roach88/relalg/internal/ir"
)

// ValidationResult contains the structural problems found in an
// expression tree.
//
// Structural validation catches trees that no evaluation could succeed on
// regardless of data: nil operands or terms (possible when nodes are built
// as zero-value literals instead of through constructors), invalid names,
// unknown operators, and non-Boolean constant criteria.
//
// Schema-dependent checks (unknown attributes, domain mismatches) are
// performed by engine.Infer and by evaluation.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems lists one message per defect, prefixed with the path of the
	// offending node (e.g. "$.lhs.criteria").
	Problems []string
}

// Validate checks an operator tree for structural defects.
//
// Validate is a pure function with no side effects.
func Validate(op RelationalOp) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateOp("$", op)
	return v.result()
}

// ValidateList checks every expression of a list, including binding names.
func ValidateList(list ExpressionList) ValidationResult {
	v := &validator{problems: []string{}}
	for i, e := range list {
		path := fmt.Sprintf("$[%d]", i)
		if e.IsNamed() && !ir.IsValidName(e.Name.String()) {
			v.addProblem(path, "invalid binding name %q", e.Name)
		}
		v.validateOp(path, e.Op)
	}
	return v.result()
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) result() ValidationResult {
	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// addProblem appends a problem message.
func (v *validator) addProblem(path, format string, args ...any) {
	v.problems = append(v.problems, path+": "+fmt.Sprintf(format, args...))
}

// validateOp recursively validates an operator node.
func (v *validator) validateOp(path string, op RelationalOp) {
	if op == nil {
		v.addProblem(path, "nil operator")
		return
	}

	switch node := op.(type) {
	case *Relation:
		v.validateName(path, node.name)
	case *SetOperation:
		if _, ok := setOperatorKeys[node.op]; !ok {
			v.addProblem(path, "unknown set operator %d", node.op)
		}
		v.validateOp(path+".lhs", node.lhs)
		v.validateOp(path+".rhs", node.rhs)
	case *Selection:
		v.validateTerm(path+".criteria", node.criteria)
		v.validateOp(path+".rhs", node.rhs)
	case *Projection:
		if len(node.attributes) == 0 {
			v.addProblem(path, "projection without attributes")
		}
		for i, a := range node.attributes {
			if c, ok := a.AsConstant(); ok {
				if !c.Domain().IsValid() {
					v.addProblem(fmt.Sprintf("%s.attributes[%d]", path, i), "invalid literal")
				}
				continue
			}
			v.validateAttribute(fmt.Sprintf("%s.attributes[%d]", path, i), a.attr)
		}
		v.validateOp(path+".rhs", node.rhs)
	case *Rename:
		if len(node.renames) == 0 {
			v.addProblem(path, "rename without attributes")
		}
		for i, p := range node.renames {
			v.validateAttribute(fmt.Sprintf("%s.renames[%d]", path, i), p.From)
			v.validateName(fmt.Sprintf("%s.renames[%d]", path, i), p.To)
		}
		v.validateOp(path+".rhs", node.rhs)
	case *Order:
		v.validateAttributes(path, "order", node.attributes)
		v.validateOp(path+".rhs", node.rhs)
	case *Group:
		v.validateAttributes(path, "group", node.attributes)
		v.validateOp(path+".rhs", node.rhs)
	case *Join:
		if node.criteria != nil {
			v.validateTerm(path+".criteria", node.criteria)
		}
		v.validateOp(path+".lhs", node.lhs)
		v.validateOp(path+".rhs", node.rhs)
	default:
		v.addProblem(path, "unknown operator type %T", op)
	}
}

func (v *validator) validateAttributes(path, what string, attrs []Attribute) {
	if len(attrs) == 0 {
		v.addProblem(path, "%s without attributes", what)
	}
	for i, a := range attrs {
		v.validateAttribute(fmt.Sprintf("%s.attributes[%d]", path, i), a)
	}
}

func (v *validator) validateAttribute(path string, a Attribute) {
	if a.IsName() {
		v.validateName(path, a.name)
		return
	}
	if a.index < 0 {
		v.addProblem(path, "negative attribute index %d", a.index)
	}
}

func (v *validator) validateName(path string, n ir.Name) {
	if !ir.IsValidName(n.String()) {
		v.addProblem(path, "invalid name %q", n)
	}
}

// validateTerm recursively validates a term node.
func (v *validator) validateTerm(path string, t Term) {
	if t == nil {
		v.addProblem(path, "nil term")
		return
	}

	switch term := t.(type) {
	case ConstantTerm:
		if term.Value == nil {
			v.addProblem(path, "nil constant")
		} else if term.Value.Domain() != ir.DomainBoolean {
			v.addProblem(path, "constant criteria must be boolean, got %s", term.Value.Domain())
		}
	case ExistsTerm:
		v.validateAttribute(path, term.Attribute)
	case AtomTerm:
		if !term.Op.IsValid() {
			v.addProblem(path, "unknown comparison operator %d", term.Op)
		}
		v.validateAttribute(path+".lhs", term.LHS)
		if c, ok := term.RHS.AsConstant(); ok {
			if term.Op.IsPattern() && c.Domain() != ir.DomainString {
				v.addProblem(path+".rhs", "pattern must be a string, got %s", c.Domain())
			}
		} else {
			v.validateAttribute(path+".rhs", term.RHS.attr)
		}
	case NegateTerm:
		v.validateTerm(path+".not", term.Term)
	case AndTerm:
		v.validateTerm(path+".lhs", term.LHS)
		v.validateTerm(path+".rhs", term.RHS)
	case OrTerm:
		v.validateTerm(path+".lhs", term.LHS)
		v.validateTerm(path+".rhs", term.RHS)
	default:
		v.addProblem(path, "unknown term type %T", t)
	}
}
