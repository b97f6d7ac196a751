package engine

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/queryir"
	"github.com/roach88/relalg/internal/schema"
	"github.com/roach88/relalg/internal/testutil"
)

func TestEvaluateListBindingsShadowProvider(t *testing.T) {
	ev := newEvaluator()
	list := queryir.ExpressionList{
		queryir.Bind("people", queryir.NewSelection(
			queryir.Eq(queryir.Named("id"), queryir.Lit(ir.Integer(1))), rel("people"),
		)),
		queryir.Query(queryir.NaturalJoin(rel("people"), rel("visits"))),
	}

	result, err := ev.EvaluateList(list)
	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "run", result.RunID)
	assert.Equal(t, 1, result.Bindings["people"].Len())
	assert.Equal(t, [][]ir.Value{
		{ir.Integer(1), ir.String("Ann"), ir.String("Paris")},
	}, result.Last().Rows())
}

func TestEvaluateListRebinding(t *testing.T) {
	ev := newEvaluator()
	list := queryir.ExpressionList{
		queryir.Bind("a", rel("people")),
		queryir.Bind("a", queryir.NewProjection(queryir.Refs(queryir.Named("name")), rel("a"))),
		queryir.Query(rel("a")),
	}

	result, err := ev.EvaluateList(list)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Last().Schema().Arity())
	assert.Equal(t, ir.Name("a"), result.Last().Schema().Name())
	assert.Len(t, result.Bindings, 1)
}

func TestEvaluateListStopsAtFirstFailure(t *testing.T) {
	ev := newEvaluator()
	list := queryir.ExpressionList{
		queryir.Bind("names", queryir.NewProjection(queryir.Refs(queryir.Named("name")), rel("people"))),
		queryir.Bind("broken", rel("nowhere")),
		queryir.Query(rel("people")),
	}

	result, err := ev.EvaluateList(list)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Len(t, result.Results, 1)
	assert.Contains(t, result.Bindings, ir.Name("names"))

	exprErr, ok := AsExpressionError(err)
	require.True(t, ok)
	assert.Equal(t, 1, exprErr.Index)
	assert.Equal(t, ir.Name("broken"), exprErr.Name)
	assert.True(t, ir.IsRelationDoesNotExist(err))
	assert.Contains(t, err.Error(), "expression 1 (broken)")
}

func TestEvaluateListEmpty(t *testing.T) {
	result, err := newEvaluator().EvaluateList(nil)
	require.NoError(t, err)
	assert.Nil(t, result.Last())
	assert.Empty(t, result.Bindings)
}

func TestEvaluateExpressionRenamesResult(t *testing.T) {
	ev := newEvaluator()

	named, err := ev.EvaluateExpression(queryir.Bind("everyone", rel("people")))
	require.NoError(t, err)
	assert.Equal(t, ir.Name("everyone"), named.Schema().Name())

	anon, err := ev.EvaluateExpression(queryir.Query(rel("people")))
	require.NoError(t, err)
	assert.Equal(t, ir.Name("people"), anon.Schema().Name())
}

func TestEvaluatorLogging(t *testing.T) {
	logger, buf := testutil.NewBufferLogger()
	ev := New(testutil.Catalog(),
		WithLogger(logger),
		WithRunIDGenerator(NewFixedGenerator("run-1")),
	)

	_, err := ev.EvaluateList(queryir.ExpressionList{
		queryir.Bind("ann", queryir.NewSelection(
			queryir.Eq(queryir.Named("name"), queryir.Lit(ir.String("Ann"))), rel("people"),
		)),
		queryir.Bind("ann", rel("ann")),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"operator evaluated"`)
	assert.Contains(t, out, `"op":"selection"`)
	assert.Contains(t, out, `"msg":"expression evaluated"`)
	assert.Contains(t, out, `"msg":"binding replaced"`)
	assert.Contains(t, out, `"run_id":"run-1"`)
	assert.NotContains(t, out, `"level":"WARN"`)
}

func TestEvaluatorLogsFailure(t *testing.T) {
	logger, buf := testutil.NewBufferLogger()
	ev := New(testutil.Catalog(), WithLogger(logger), WithRunIDGenerator(NewFixedGenerator("run-2")))

	_, err := ev.EvaluateList(queryir.ExpressionList{queryir.Query(rel("nowhere"))})
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"msg":"expression failed"`)
	assert.Contains(t, buf.String(), "RELATION_DOES_NOT_EXIST")
}

func TestWithMaxRows(t *testing.T) {
	catalog := testutil.Catalog()
	ev := New(catalog, WithLogger(slog.New(slog.DiscardHandler)), WithMaxRows(3))

	_, err := ev.Evaluate(queryir.CartesianProduct(rel("people"), rel("visits")))
	require.Error(t, err)
	assert.True(t, IsRowLimitError(err))

	var limitErr *RowLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, queryir.KindSetOperation, limitErr.Op)
	assert.Equal(t, 4, limitErr.Rows)
	assert.Contains(t, err.Error(), "ROW_LIMIT_EXCEEDED")

	out, err := ev.Evaluate(queryir.NaturalJoin(rel("people"), rel("visits")))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
}

func TestProviderFunc(t *testing.T) {
	calls := 0
	provider := ProviderFunc(func(name ir.Name) (data.Relation, error) {
		calls++
		if name == "people" {
			return testutil.People(), nil
		}
		return nil, ir.NewRelationDoesNotExistError(name)
	})
	ev := New(provider, WithLogger(slog.New(slog.DiscardHandler)))

	out, err := ev.Evaluate(queryir.Union(rel("people"), rel("people")))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
	assert.Equal(t, 2, calls)

	_, err = ev.Evaluate(rel("visits"))
	assert.True(t, ir.IsRelationDoesNotExist(err))
}

func TestIsIncompatible(t *testing.T) {
	assert.True(t, IsIncompatible(ir.NewIncompatibleTypesError(ir.DomainInteger, ir.DomainString)))
	assert.True(t, IsIncompatible(&ExpressionError{Err: ir.NewDuplicateNameError("a")}))
	assert.False(t, IsIncompatible(ir.NewRelationDoesNotExistError("a")))
	assert.False(t, IsIncompatible(nil))
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.PanicsWithValue(t, "FixedGenerator: all run IDs exhausted", func() { gen.Generate() })
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestPartition(t *testing.T) {
	trips := data.MustFromRows(testutil.VisitsSchema(),
		[]ir.Value{ir.Integer(1), ir.String("Rome")},
		[]ir.Value{ir.Integer(2), ir.String("Paris")},
		[]ir.Value{ir.Integer(3), ir.String("Rome")},
	)

	groups, err := Partition(trips, []queryir.Attribute{queryir.Named("place")})
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, []ir.Value{ir.String("Rome")}, groups[0].Key)
	assert.Equal(t, [][]ir.Value{
		{ir.Integer(1), ir.String("Rome")},
		{ir.Integer(3), ir.String("Rome")},
	}, groups[0].Members.Rows())
	assert.Equal(t, []ir.Value{ir.String("Paris")}, groups[1].Key)
	assert.True(t, schema.Equal(trips.Schema(), groups[1].Members.Schema()))

	_, err = Partition(trips, []queryir.Attribute{queryir.Index(9)})
	assert.True(t, ir.IsAttributeIndexInvalid(err))
}
