package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/queryir"
	"github.com/roach88/relalg/internal/schema"
	"github.com/roach88/relalg/internal/testutil"
)

func TestNaturalJoinWithoutSharedNamesIsProduct(t *testing.T) {
	ev := newEvaluator()
	renamed := queryir.MustRename(map[queryir.Attribute]ir.Name{queryir.Named("id"): "vid"}, rel("visits"))

	join := mustEval(t, ev, queryir.NaturalJoin(rel("people"), renamed))
	product := mustEval(t, ev, queryir.CartesianProduct(rel("people"), renamed))

	assert.Equal(t, 4, join.Len())
	assert.True(t, data.SetEqual(product, join))
	assert.Equal(t, []ir.Name{"id", "name", "vid", "place"}, schema.Names(join.Schema()))
}

func TestNaturalJoinOnAllNamesIsIntersection(t *testing.T) {
	ev := newEvaluator(data.MustFromRows(
		schema.MustRelationSchema("more", schema.Attr("id", ir.DomainInteger), schema.Attr("name", ir.DomainString)),
		[]ir.Value{ir.Integer(2), ir.String("Bob")},
		[]ir.Value{ir.Integer(3), ir.String("Cy")},
	))

	join := mustEval(t, ev, queryir.NaturalJoin(rel("people"), rel("more")))
	assert.Equal(t, [][]ir.Value{{ir.Integer(2), ir.String("Bob")}}, join.Rows())
}

func TestNaturalJoinErrors(t *testing.T) {
	idAsString := data.MustFromRows(
		schema.MustRelationSchema("tags", schema.Attr("id", ir.DomainString)),
		[]ir.Value{ir.String("1")},
	)
	ev := newEvaluator(idAsString)

	t.Run("shared name with different domains", func(t *testing.T) {
		_, err := ev.Evaluate(queryir.NaturalJoin(rel("people"), rel("tags")))
		require.Error(t, err)

		var irErr *ir.Error
		require.ErrorAs(t, err, &irErr)
		assert.Equal(t, ir.KindIncompatibleTypes, irErr.Kind)
		assert.Equal(t, "id", irErr.Name)
	})

	t.Run("ambiguous shared name", func(t *testing.T) {
		product := queryir.CartesianProduct(rel("people"), rel("visits"))
		_, err := ev.Evaluate(queryir.NaturalJoin(product, rel("visits")))
		require.Error(t, err)
		assert.True(t, ir.IsAttributeDoesNotExist(err))
		assert.Contains(t, err.Error(), "ambiguous")
	})
}

func TestThetaJoin(t *testing.T) {
	ev := newEvaluator()
	peopleID, visitsID, place := queryir.Index(0), queryir.Index(2), queryir.Index(3)

	testCases := []struct {
		name     string
		criteria queryir.Term
		want     [][]ir.Value
	}{
		{
			"equi join",
			queryir.Eq(peopleID, queryir.Ref(visitsID)),
			[][]ir.Value{
				{ir.Integer(1), ir.String("Ann"), ir.Integer(1), ir.String("Paris")},
				{ir.Integer(2), ir.String("Bob"), ir.Integer(2), ir.String("Rome")},
			},
		},
		{
			"key written rhs first",
			queryir.Eq(visitsID, queryir.Ref(peopleID)),
			[][]ir.Value{
				{ir.Integer(1), ir.String("Ann"), ir.Integer(1), ir.String("Paris")},
				{ir.Integer(2), ir.String("Bob"), ir.Integer(2), ir.String("Rome")},
			},
		},
		{
			"equi join with residual",
			queryir.And(queryir.Eq(peopleID, queryir.Ref(visitsID)), queryir.Match(place, queryir.Lit(ir.String("^R")))),
			[][]ir.Value{
				{ir.Integer(2), ir.String("Bob"), ir.Integer(2), ir.String("Rome")},
			},
		},
		{
			"inequality",
			queryir.Lt(peopleID, queryir.Ref(visitsID)),
			[][]ir.Value{
				{ir.Integer(1), ir.String("Ann"), ir.Integer(2), ir.String("Rome")},
			},
		},
		{
			"literal only",
			queryir.Eq(queryir.Named("name"), queryir.Lit(ir.String("Ann"))),
			[][]ir.Value{
				{ir.Integer(1), ir.String("Ann"), ir.Integer(1), ir.String("Paris")},
				{ir.Integer(1), ir.String("Ann"), ir.Integer(2), ir.String("Rome")},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := mustEval(t, ev, queryir.ThetaJoin(rel("people"), tc.criteria, rel("visits")))
			assert.Equal(t, tc.want, out.Rows())
			assert.Equal(t, []ir.Name{"id", "name", "id", "place"}, schema.Names(out.Schema()))
		})
	}
}

// A disjunction is never split into hash keys, so it takes the nested-loop
// path; both paths must agree.
func TestThetaJoinStrategiesAgree(t *testing.T) {
	ev := newEvaluator()
	equi := queryir.Eq(queryir.Index(0), queryir.Ref(queryir.Index(2)))

	hashed := mustEval(t, ev, queryir.ThetaJoin(rel("people"), equi, rel("visits")))
	looped := mustEval(t, ev, queryir.ThetaJoin(rel("people"), queryir.Or(equi, queryir.False()), rel("visits")))

	assert.True(t, data.SetEqual(hashed, looped))
	assert.Equal(t, hashed.Rows(), looped.Rows())
}

func TestThetaJoinSameSideEqualityIsResidual(t *testing.T) {
	lhs, rhs, residual, err := splitEquiKeys(
		queryir.And(
			queryir.Eq(queryir.Index(0), queryir.Ref(queryir.Index(1))),
			queryir.Eq(queryir.Index(0), queryir.Ref(queryir.Index(2))),
		),
		schema.Derived("people",
			schema.Attr("id", ir.DomainInteger),
			schema.Attr("other", ir.DomainInteger),
			schema.Attr("id", ir.DomainInteger),
			schema.Attr("place", ir.DomainString),
		),
		2,
	)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, lhs)
	assert.Equal(t, []int{0}, rhs)
	assert.Equal(t, queryir.Eq(queryir.Index(0), queryir.Ref(queryir.Index(1))), residual)
}

func TestThetaJoinBindsCriteriaOnEmptyInputs(t *testing.T) {
	empty := data.NewRelation(schema.MustRelationSchema("empty", schema.Attr("x", ir.DomainFloat)))
	ev := newEvaluator(empty)

	_, err := ev.Evaluate(queryir.ThetaJoin(
		rel("empty"),
		queryir.Eq(queryir.Index(0), queryir.Ref(queryir.Index(1))),
		rel("people"),
	))
	require.Error(t, err)
	assert.True(t, ir.IsIncompatibleTypes(err))
}

func TestJoinDoesNotDependOnProviderOrder(t *testing.T) {
	reversed := data.MustFromRows(testutil.VisitsSchema(),
		[]ir.Value{ir.Integer(2), ir.String("Rome")},
		[]ir.Value{ir.Integer(1), ir.String("Paris")},
	)
	catalog := data.NewCatalog(testutil.People(), reversed)
	ev := New(catalog, WithRunIDGenerator(testutil.NewFixedRunIDGenerator("")))

	a := mustEval(t, ev, queryir.NaturalJoin(rel("people"), rel("visits")))
	b := mustEval(t, newEvaluator(), queryir.NaturalJoin(rel("people"), rel("visits")))
	assert.True(t, data.SetEqual(a, b))
	// Output follows lhs order.
	assert.Equal(t, a.Rows(), b.Rows())
}
