package render

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/queryir"
)

func rel(name string) *queryir.Relation {
	return queryir.NewRelation(ir.MustName(name))
}

func TestFormatTermUnicode(t *testing.T) {
	a, b, c := queryir.Named("a"), queryir.Named("b"), queryir.Named("c")

	testCases := []struct {
		name string
		term queryir.Term
		want string
	}{
		{"equal", queryir.Eq(queryir.Index(0), queryir.Ref(queryir.Index(1))), "0=1"},
		{"not equal literal", queryir.Ne(a, queryir.Lit(ir.Integer(1))), "a≠1"},
		{"less than", queryir.Lt(a, queryir.Ref(b)), "a<b"},
		{"string match", queryir.Match(queryir.Index(0), queryir.Lit(ir.String("foo*"))), `0~"foo*"`},
		{"string not match", queryir.NotMatch(queryir.Index(0), queryir.Lit(ir.String("foo*"))), `0≁"foo*"`},
		{"nested and", queryir.AndTerm{LHS: queryir.Exists(a), RHS: queryir.And(queryir.Exists(b), queryir.Exists(c))}, "?a ∧ ?b ∧ ?c"},
		{"or inside and", queryir.And(queryir.Exists(a), queryir.Or(queryir.Exists(b), queryir.Exists(c))), "?a ∧ (?b ∨ ?c)"},
		{"negated atom", queryir.NegateTerm{Term: queryir.Eq(a, queryir.Ref(b))}, "¬(a=b)"},
		{"negated exists", queryir.NegateTerm{Term: queryir.Exists(a)}, "¬?a"},
		{"constant", queryir.True(), "true"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatTerm(tc.term, UnicodeText))
		})
	}
}

func TestFormatOpUnicode(t *testing.T) {
	testCases := []struct {
		name string
		op   queryir.RelationalOp
		want string
	}{
		{"relation", rel("relation"), "relation"},
		{"union", queryir.Union(rel("left"), rel("right")), "left ∪ right"},
		{"symmetric difference", queryir.SymmetricDifference(rel("left"), rel("right")), "left △ right"},
		{"selection", queryir.NewSelection(queryir.Eq(queryir.Index(0), queryir.Ref(queryir.Index(1))), rel("relation")), "σ[0=1]relation"},
		{
			"projection",
			queryir.NewProjection(queryir.Refs(queryir.Index(2), queryir.Named("a"), queryir.Index(0)), rel("relation")),
			"π[2, a, 0]relation",
		},
		{"rename", queryir.MustRename(map[queryir.Attribute]ir.Name{queryir.Index(0): "a"}, rel("relation")), "ρ[a]relation"},
		{"natural join", queryir.NaturalJoin(rel("left"), rel("right")), "left ⨝ right"},
		{
			"theta join",
			queryir.ThetaJoin(rel("left"), queryir.Eq(queryir.Index(0), queryir.Ref(queryir.Index(1))), rel("right")),
			"left ⨝[0=1] right",
		},
		{
			"composite operand",
			queryir.NewSelection(queryir.Exists(queryir.Named("a")), queryir.Union(rel("left"), rel("right"))),
			"σ[?a](left ∪ right)",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatOp(tc.op, UnicodeText))
		})
	}
}

func TestFormatExpression(t *testing.T) {
	union := queryir.Union(rel("left"), rel("right"))

	assert.Equal(t, "left ∪ right;\n", FormatList(queryir.ExpressionList{queryir.Query(union)}, UnicodeText))
	assert.Equal(t, "A ≔ left ∪ right;\n", FormatList(queryir.ExpressionList{queryir.Bind("A", union)}, UnicodeText))
	assert.Equal(t, "A := left union right", Format(queryir.Bind("A", union), AsciiText))
}

func TestFormatEscapesLiterals(t *testing.T) {
	term := queryir.Eq(queryir.Named("tag"), queryir.Lit(ir.String("<b>&_")))

	assert.Equal(t, `tag=&#34;&lt;b&gt;&amp;_&#34;`, FormatTerm(term, Html))
	assert.Equal(t, `tag="<b>\&\_"`, FormatTerm(term, Latex))
}

func TestFormatIsDeterministic(t *testing.T) {
	op := queryir.MustRename(map[queryir.Attribute]ir.Name{
		queryir.Named("z"): "a",
		queryir.Index(1):   "b",
		queryir.Named("m"): "c",
	}, rel("r"))

	first := FormatOp(op, UnicodeText)
	for range 20 {
		assert.Equal(t, first, FormatOp(op, UnicodeText))
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes() {
		parsed, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}

	m, err := ParseMode("LaTeX")
	require.NoError(t, err)
	assert.Equal(t, Latex, m)

	_, err = ParseMode("braille")
	assert.Error(t, err)
}

func goldenList() queryir.ExpressionList {
	return queryir.ExpressionList{
		queryir.Bind("paris", queryir.NewSelection(
			queryir.And(
				queryir.Eq(queryir.Named("place"), queryir.Lit(ir.String("Paris"))),
				queryir.NegateTerm{Term: queryir.Or(
					queryir.Exists(queryir.Named("id")),
					queryir.Ge(queryir.Index(0), queryir.Lit(ir.Integer(3))),
				)},
			),
			rel("visits"),
		)),
		queryir.Bind("named_visits", queryir.NaturalJoin(
			rel("people"),
			queryir.NewProjection(queryir.Refs(queryir.Named("id"), queryir.Named("place")), rel("paris")),
		)),
		queryir.Query(queryir.NewOrder(
			queryir.Names("name"),
			queryir.MustRename(map[queryir.Attribute]ir.Name{queryir.Index(0): "p_id"},
				queryir.Union(rel("people"), rel("staff"))),
		)),
		queryir.Query(queryir.ThetaJoin(
			rel("people"),
			queryir.Or(
				queryir.Eq(queryir.Index(0), queryir.Ref(queryir.Index(2))),
				queryir.NotMatch(queryir.Named("name"), queryir.Lit(ir.String("^B"))),
			),
			queryir.NewGroup(queryir.Names("place"), rel("visits")),
		)),
	}
}

func TestFormatListGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, m := range Modes() {
		t.Run(m.String(), func(t *testing.T) {
			g.Assert(t, "list_"+m.String(), []byte(FormatList(goldenList(), m)))
		})
	}
}

func TestSymbol(t *testing.T) {
	assert.Equal(t, "∖", Symbol(queryir.Difference(rel("a"), rel("b")), UnicodeText))
	assert.Equal(t, "product", Symbol(queryir.CartesianProduct(rel("a"), rel("b")), AsciiText))
	assert.Equal(t, `\bowtie`, Symbol(queryir.NaturalJoin(rel("a"), rel("b")), Latex))
	assert.Equal(t, "my\\_rel", Symbol(rel("my_rel"), Latex))
}
