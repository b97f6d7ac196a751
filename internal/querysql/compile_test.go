package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/queryir"
	"github.com/roach88/relalg/internal/schema"
	"github.com/roach88/relalg/internal/testutil"
)

func rel(name string) *queryir.Relation {
	return queryir.NewRelation(ir.MustName(name))
}

func newCompiler(t *testing.T) *SQLCompiler {
	t.Helper()
	sch, err := schema.NewSchema(testutil.PeopleSchema(), testutil.VisitsSchema())
	require.NoError(t, err)
	return NewSQLCompiler(sch)
}

const peopleSQL = `SELECT c0, c1 FROM "rel_people"`

func TestCompile_Relation(t *testing.T) {
	sql, params, err := newCompiler(t).Compile(rel("people"))
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT * FROM (`+peopleSQL+`) AS q ORDER BY c0 ASC COLLATE BINARY, c1 ASC COLLATE BINARY`,
		sql)
	assert.Empty(t, params)
}

func TestCompile_SelectionIsParameterized(t *testing.T) {
	op := queryir.NewSelection(
		queryir.Eq(queryir.Named("name"), queryir.Lit(ir.String("Ann"))),
		rel("people"),
	)

	sql, params, err := newCompiler(t).Compile(op)
	require.NoError(t, err)

	assert.Contains(t, sql, `SELECT * FROM (`+peopleSQL+`) AS s WHERE c1 = ?`)
	assert.Contains(t, sql, "ORDER BY") // MANDATORY
	assert.Contains(t, sql, "COLLATE BINARY")

	// Verify parameterized query (no interpolation)
	assert.NotContains(t, sql, "Ann")
	assert.Equal(t, []any{"Ann"}, params)
}

func TestCompile_Terms(t *testing.T) {
	id, name := queryir.Named("id"), queryir.Named("name")

	testCases := []struct {
		name   string
		term   queryir.Term
		where  string
		params []any
	}{
		{"true", queryir.True(), "1", nil},
		{"false", queryir.False(), "0", nil},
		{"exists", queryir.Exists(id), "1", nil},
		{"not equal", queryir.Ne(id, queryir.Lit(ir.Integer(2))), "c0 <> ?", []any{int64(2)}},
		{"attribute rhs", queryir.Le(queryir.Index(0), queryir.Ref(queryir.Index(0))), "c0 <= c0", nil},
		{"match", queryir.Match(name, queryir.Lit(ir.String("^A"))), "c1 REGEXP ?", []any{"^A"}},
		{"not match", queryir.NotMatch(name, queryir.Lit(ir.String("^A"))), "NOT (c1 REGEXP ?)", []any{"^A"}},
		{"negation", queryir.NegateTerm{Term: queryir.Exists(id)}, "NOT (1)", nil},
		{
			"connectives",
			queryir.Or(
				queryir.And(queryir.Gt(id, queryir.Lit(ir.Integer(1))), queryir.Lt(id, queryir.Lit(ir.Integer(5)))),
				queryir.Eq(name, queryir.Lit(ir.String("Bob"))),
			),
			"((c0 > ? AND c0 < ?) OR c1 = ?)",
			[]any{int64(1), int64(5), "Bob"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sql, params, err := newCompiler(t).Compile(queryir.NewSelection(tc.term, rel("people")))
			require.NoError(t, err)
			assert.Contains(t, sql, "WHERE "+tc.where+") AS q")
			assert.Equal(t, tc.params, params)
		})
	}
}

func TestCompile_SetOperations(t *testing.T) {
	testCases := []struct {
		name string
		op   queryir.RelationalOp
		want string
	}{
		{"union", queryir.Union(rel("people"), rel("people")), "UNION"},
		{"intersection", queryir.Intersection(rel("people"), rel("people")), "INTERSECT"},
		{"difference", queryir.Difference(rel("people"), rel("people")), "EXCEPT"},
		{"product", queryir.CartesianProduct(rel("people"), rel("visits")), "CROSS JOIN"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sql, _, err := newCompiler(t).Compile(tc.op)
			require.NoError(t, err)
			assert.Contains(t, sql, tc.want)
		})
	}
}

func TestCompile_ProductColumns(t *testing.T) {
	sql, _, err := newCompiler(t).Compile(queryir.CartesianProduct(rel("people"), rel("visits")))
	require.NoError(t, err)

	assert.Contains(t, sql, "SELECT l.c0 AS c0, l.c1 AS c1, r.c0 AS c2, r.c1 AS c3 FROM")
	assert.Contains(t, sql, "c3 ASC COLLATE BINARY")
}

func TestCompile_SymmetricDifferenceParams(t *testing.T) {
	lhs := queryir.NewSelection(queryir.Eq(queryir.Named("id"), queryir.Lit(ir.Integer(1))), rel("people"))
	rhs := queryir.NewSelection(queryir.Eq(queryir.Named("id"), queryir.Lit(ir.Integer(2))), rel("people"))

	sql, params, err := newCompiler(t).Compile(queryir.SymmetricDifference(lhs, rhs))
	require.NoError(t, err)

	assert.Contains(t, sql, "EXCEPT")
	assert.Contains(t, sql, "UNION")
	// Placeholders follow text order: lhs, rhs, rhs, lhs.
	assert.Equal(t, []any{int64(1), int64(2), int64(2), int64(1)}, params)
}

func TestCompile_ProjectionConstantsPrecedeSubquery(t *testing.T) {
	op := queryir.NewProjection(
		[]queryir.ProjectedAttribute{queryir.Lit(ir.Float(1.5)), queryir.Ref(queryir.Named("name"))},
		queryir.NewSelection(queryir.Eq(queryir.Named("id"), queryir.Lit(ir.Integer(2))), rel("people")),
	)

	sql, params, err := newCompiler(t).Compile(op)
	require.NoError(t, err)

	assert.Contains(t, sql, "SELECT DISTINCT ? AS c0, c1 AS c1 FROM (")
	require.Len(t, params, 2)
	assert.Equal(t, floatKey(1.5), params[0])
	assert.Equal(t, int64(2), params[1])
}

func TestCompile_OrderKeysLeadOrderBy(t *testing.T) {
	op := queryir.NewOrder(queryir.Names("name"), rel("people"))

	sql, _, err := newCompiler(t).Compile(op)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT * FROM (`+peopleSQL+`) AS q ORDER BY c1 ASC COLLATE BINARY, c0 ASC COLLATE BINARY`,
		sql)
}

func TestCompile_OrderBelowRootDoesNotLeak(t *testing.T) {
	op := queryir.NewSelection(queryir.True(), queryir.NewOrder(queryir.Names("name"), rel("people")))

	sql, _, err := newCompiler(t).Compile(op)
	require.NoError(t, err)
	assert.Contains(t, sql, "ORDER BY c0 ASC COLLATE BINARY, c1 ASC COLLATE BINARY")
}

func TestCompile_RenameKeepsSQL(t *testing.T) {
	op := queryir.MustRename(map[queryir.Attribute]ir.Name{queryir.Named("name"): "who"}, rel("people"))
	renamed, _, err := newCompiler(t).Compile(queryir.NewSelection(
		queryir.Eq(queryir.Named("who"), queryir.Lit(ir.String("Bob"))), op))
	require.NoError(t, err)

	assert.Contains(t, renamed, "WHERE c1 = ?")
}

func TestCompile_Group(t *testing.T) {
	sql, _, err := newCompiler(t).Compile(queryir.NewGroup(queryir.Names("place"), rel("visits")))
	require.NoError(t, err)
	assert.Contains(t, sql, `SELECT DISTINCT c1 AS c0 FROM (SELECT c0, c1 FROM "rel_visits") AS g`)
}

func TestCompile_Joins(t *testing.T) {
	testCases := []struct {
		name string
		op   queryir.RelationalOp
		want string
	}{
		{
			"natural",
			queryir.NaturalJoin(rel("people"), rel("visits")),
			"SELECT l.c0 AS c0, l.c1 AS c1, r.c1 AS c2 FROM (" + peopleSQL + `) AS l JOIN (SELECT c0, c1 FROM "rel_visits") AS r ON l.c0 = r.c0`,
		},
		{
			"natural without shared names",
			queryir.NaturalJoin(rel("people"),
				queryir.MustRename(map[queryir.Attribute]ir.Name{queryir.Index(0): "vid"}, rel("visits"))),
			"AS l CROSS JOIN (",
		},
		{
			"theta",
			queryir.ThetaJoin(rel("people"), queryir.Lt(queryir.Index(0), queryir.Ref(queryir.Index(2))), rel("visits")),
			"r.c1 AS c3 FROM (" + peopleSQL + `) AS l JOIN (SELECT c0, c1 FROM "rel_visits") AS r ON l.c0 < r.c0`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sql, _, err := newCompiler(t).Compile(tc.op)
			require.NoError(t, err)
			assert.Contains(t, sql, tc.want)
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		op    queryir.RelationalOp
		check func(error) bool
	}{
		{"missing relation", rel("nope"), ir.IsRelationDoesNotExist},
		{"missing attribute", queryir.NewSelection(queryir.Exists(queryir.Named("zip")), rel("people")), ir.IsAttributeDoesNotExist},
		{"bad index", queryir.NewOrder([]queryir.Attribute{queryir.Index(9)}, rel("people")), ir.IsAttributeIndexInvalid},
		{"union incompatible", queryir.Union(rel("people"), queryir.NewGroup(queryir.Names("id"), rel("people"))), ir.IsIncompatibleTypes},
		{"domain mismatch", queryir.NewSelection(queryir.Eq(queryir.Named("id"), queryir.Lit(ir.String("1"))), rel("people")), ir.IsIncompatibleTypes},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := newCompiler(t).Compile(tc.op)
			require.Error(t, err)
			assert.True(t, tc.check(err), "unexpected error: %v", err)
		})
	}

	_, _, err := newCompiler(t).Compile(nil)
	assert.Error(t, err)
}
