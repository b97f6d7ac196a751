package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relalg/internal/ir"
)

func TestComparisonOperatorNegateIsInvolution(t *testing.T) {
	for _, op := range ComparisonOperators() {
		assert.Equal(t, op, op.Negate().Negate(), op.String())
		assert.NotEqual(t, op, op.Negate(), op.String())
	}
}

func TestComparisonOperatorApply(t *testing.T) {
	testCases := []struct {
		op   ComparisonOperator
		want [3]bool // results for c = -1, 0, 1
	}{
		{Equal, [3]bool{false, true, false}},
		{NotEqual, [3]bool{true, false, true}},
		{LessThan, [3]bool{true, false, false}},
		{LessThanOrEqual, [3]bool{true, true, false}},
		{GreaterThan, [3]bool{false, false, true}},
		{GreaterThanOrEqual, [3]bool{false, true, true}},
		{StringMatch, [3]bool{false, false, false}},
	}

	for _, tc := range testCases {
		t.Run(tc.op.String(), func(t *testing.T) {
			for i, c := range []int{-1, 0, 1} {
				assert.Equal(t, tc.want[i], tc.op.Apply(c), "c=%d", c)
				if !tc.op.IsPattern() {
					// Negation is an exact complement for ordering operators.
					assert.Equal(t, !tc.want[i], tc.op.Negate().Apply(c), "negated c=%d", c)
				}
			}
		})
	}
}

func TestParseComparisonOperator(t *testing.T) {
	for _, op := range ComparisonOperators() {
		got, err := ParseComparisonOperator(op.String())
		require.NoError(t, err)
		assert.Equal(t, op, got)
	}

	_, err := ParseComparisonOperator("like")
	assert.Error(t, err)
}

func TestNot(t *testing.T) {
	atom := Lt(Named("age"), Lit(ir.Integer(18)))

	t.Run("pushes into atoms", func(t *testing.T) {
		assert.Equal(t, Ge(Named("age"), Lit(ir.Integer(18))), Not(atom))
	})

	t.Run("flips boolean constants", func(t *testing.T) {
		assert.Equal(t, False(), Not(True()))
		assert.Equal(t, True(), Not(False()))
	})

	t.Run("removes double negation", func(t *testing.T) {
		inner := Exists(Index(0))
		assert.Equal(t, inner, Not(Not(inner)))
	})

	t.Run("wraps compound terms", func(t *testing.T) {
		and := And(atom, Exists(Index(0)))
		assert.Equal(t, NegateTerm{Term: and}, Not(and))
	})

	t.Run("wraps non-boolean constants", func(t *testing.T) {
		c := Const(ir.Integer(1))
		assert.Equal(t, NegateTerm{Term: c}, Not(c))
	})
}

func TestAndOrFoldLeft(t *testing.T) {
	a, b, c := Exists(Index(0)), Exists(Index(1)), Exists(Index(2))

	assert.Equal(t, a, And(a))
	assert.Equal(t, AndTerm{LHS: AndTerm{LHS: a, RHS: b}, RHS: c}, And(a, b, c))
	assert.Equal(t, OrTerm{LHS: OrTerm{LHS: a, RHS: b}, RHS: c}, Or(a, b, c))
	assert.Panics(t, func() { And() })
	assert.Panics(t, func() { Or() })
}

func TestConjuncts(t *testing.T) {
	a, b, c := Exists(Index(0)), Exists(Index(1)), Exists(Index(2))

	assert.Equal(t, []Term{a, b, c}, Conjuncts(And(a, b, c)))
	assert.Equal(t, []Term{a, b, c}, Conjuncts(AndTerm{LHS: a, RHS: AndTerm{LHS: b, RHS: c}}))
	assert.Equal(t, []Term{Or(a, b)}, Conjuncts(Or(a, b)))
}

func TestTermAttributes(t *testing.T) {
	term := And(
		Eq(Named("id"), Ref(Index(3))),
		Not(Or(Exists(Named("name")), Match(Named("name"), Lit(ir.String("^A"))))),
	)

	assert.Equal(t, []Attribute{
		Named("id"), Index(3), Named("name"), Named("name"),
	}, TermAttributes(term))
}
