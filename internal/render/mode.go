package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/roach88/relalg/internal/queryir"
)

// Mode selects the notation an expression is rendered in.
type Mode uint8

const (
	// UnicodeText uses the mathematical symbols (σ, π, ∪, ⨝, ...).
	UnicodeText Mode = iota

	// AsciiText spells operators as words (select, union, join, ...).
	AsciiText

	// Latex emits math-mode LaTeX (\sigma_{...}, \cup, \bowtie, ...).
	Latex

	// Html emits HTML entities with parameters as subscripts.
	Html
)

var modeNames = map[Mode]string{
	UnicodeText: "unicode",
	AsciiText:   "ascii",
	Latex:       "latex",
	Html:        "html",
}

// Modes returns every rendering mode in declaration order.
func Modes() []Mode {
	return []Mode{UnicodeText, AsciiText, Latex, Html}
}

// String returns the lowercase mode name used in configuration.
func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ParseMode parses a mode name as printed by String.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown render mode %q (want unicode, ascii, latex, or html)", s)
}

// symbols is the per-mode strategy table. Every mode-specific decision the
// printer makes is a lookup here.
type symbols struct {
	setOps  map[queryir.SetOperator]string
	compare map[queryir.ComparisonOperator]string

	selection, projection, rename, order, group, join string

	// Parameters of unary operators and theta joins.
	paramOpen, paramClose string

	// Grouping of composite operands and terms.
	open, close string

	and, or, not, exists, assign string

	// escape is applied to names and rendered literals.
	escape func(string) string
}

var tables = map[Mode]*symbols{
	UnicodeText: {
		setOps: map[queryir.SetOperator]string{
			queryir.SetUnion:               "∪",
			queryir.SetIntersection:        "∩",
			queryir.SetDifference:          "∖",
			queryir.SetSymmetricDifference: "△",
			queryir.SetCartesianProduct:    "⨯",
		},
		compare: map[queryir.ComparisonOperator]string{
			queryir.Equal:              "=",
			queryir.NotEqual:           "≠",
			queryir.LessThan:           "<",
			queryir.LessThanOrEqual:    "≤",
			queryir.GreaterThan:        ">",
			queryir.GreaterThanOrEqual: "≥",
			queryir.StringMatch:        "~",
			queryir.StringNotMatch:     "≁",
		},
		selection: "σ", projection: "π", rename: "ρ", order: "τ", group: "γ", join: "⨝",
		paramOpen: "[", paramClose: "]",
		open: "(", close: ")",
		and: " ∧ ", or: " ∨ ", not: "¬", exists: "?", assign: " ≔ ",
		escape: identity,
	},
	AsciiText: {
		setOps: map[queryir.SetOperator]string{
			queryir.SetUnion:               "union",
			queryir.SetIntersection:        "intersect",
			queryir.SetDifference:          "difference",
			queryir.SetSymmetricDifference: "symdiff",
			queryir.SetCartesianProduct:    "product",
		},
		compare: map[queryir.ComparisonOperator]string{
			queryir.Equal:              "=",
			queryir.NotEqual:           "!=",
			queryir.LessThan:           "<",
			queryir.LessThanOrEqual:    "<=",
			queryir.GreaterThan:        ">",
			queryir.GreaterThanOrEqual: ">=",
			queryir.StringMatch:        "~",
			queryir.StringNotMatch:     "!~",
		},
		selection: "select", projection: "project", rename: "rename", order: "order", group: "group", join: "join",
		paramOpen: "[", paramClose: "]",
		open: "(", close: ")",
		and: " and ", or: " or ", not: "not ", exists: "?", assign: " := ",
		escape: identity,
	},
	Latex: {
		setOps: map[queryir.SetOperator]string{
			queryir.SetUnion:               `\cup`,
			queryir.SetIntersection:        `\cap`,
			queryir.SetDifference:          `\setminus`,
			queryir.SetSymmetricDifference: `\triangle`,
			queryir.SetCartesianProduct:    `\times`,
		},
		compare: map[queryir.ComparisonOperator]string{
			queryir.Equal:              "=",
			queryir.NotEqual:           `\neq `,
			queryir.LessThan:           "<",
			queryir.LessThanOrEqual:    `\leq `,
			queryir.GreaterThan:        ">",
			queryir.GreaterThanOrEqual: `\geq `,
			queryir.StringMatch:        `\sim `,
			queryir.StringNotMatch:     `\nsim `,
		},
		selection: `\sigma`, projection: `\pi`, rename: `\rho`, order: `\tau`, group: `\gamma`, join: `\bowtie`,
		paramOpen: "_{", paramClose: "}",
		open: `\left(`, close: `\right)`,
		and: ` \land `, or: ` \lor `, not: `\lnot `, exists: "?", assign: ` \coloneqq `,
		escape: escapeLatex,
	},
	Html: {
		setOps: map[queryir.SetOperator]string{
			queryir.SetUnion:               "&cup;",
			queryir.SetIntersection:        "&cap;",
			queryir.SetDifference:          "&setminus;",
			queryir.SetSymmetricDifference: "&#x25B3;",
			queryir.SetCartesianProduct:    "&times;",
		},
		compare: map[queryir.ComparisonOperator]string{
			queryir.Equal:              "=",
			queryir.NotEqual:           "&ne;",
			queryir.LessThan:           "&lt;",
			queryir.LessThanOrEqual:    "&le;",
			queryir.GreaterThan:        "&gt;",
			queryir.GreaterThanOrEqual: "&ge;",
			queryir.StringMatch:        "&sim;",
			queryir.StringNotMatch:     "&#x2241;",
		},
		selection: "&sigma;", projection: "&pi;", rename: "&rho;", order: "&tau;", group: "&gamma;", join: "&#x2A1D;",
		paramOpen: "<sub>", paramClose: "</sub>",
		open: "(", close: ")",
		and: " &and; ", or: " &or; ", not: "&not;", exists: "?", assign: " &#x2254; ",
		escape: html.EscapeString,
	},
}

func identity(s string) string { return s }

var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`_`, `\_`,
	`^`, `\^{}`,
	`#`, `\#`,
	`$`, `\$`,
	`%`, `\%`,
	`&`, `\&`,
	`~`, `\~{}`,
)

func escapeLatex(s string) string {
	return latexEscaper.Replace(s)
}

// Symbol returns the operator symbol of op's root in mode: the set
// operator for set operations, the relation name for relations.
func Symbol(op queryir.RelationalOp, mode Mode) string {
	sym, ok := tables[mode]
	if !ok {
		sym = tables[UnicodeText]
	}
	switch node := op.(type) {
	case *queryir.Relation:
		return sym.escape(node.Name().String())
	case *queryir.SetOperation:
		return sym.setOps[node.Operator()]
	case *queryir.Selection:
		return sym.selection
	case *queryir.Projection:
		return sym.projection
	case *queryir.Rename:
		return sym.rename
	case *queryir.Order:
		return sym.order
	case *queryir.Group:
		return sym.group
	case *queryir.Join:
		return sym.join
	default:
		return ""
	}
}
