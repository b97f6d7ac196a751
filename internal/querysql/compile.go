package querysql

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/relalg/internal/engine"
	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/queryir"
	"github.com/roach88/relalg/internal/schema"
)

// SQLCompiler compiles relational algebra trees to parameterized SQL for
// SQLite.
//
// Every relation is stored in its own table (TableName) with one column
// per attribute position (ColumnName), values in their Encode form. Each
// compiled operator is a SELECT producing columns c0..cN, so operators
// compose as subqueries.
//
// CRITICAL: ALL queries end in ORDER BY over every column for deterministic
// results.
// CRITICAL: All literal values are parameterized (never interpolated).
// CRITICAL: StringMatch requires the REGEXP function registered by store.
type SQLCompiler struct {
	schema schema.Schema
}

// NewSQLCompiler creates a compiler resolving relations against sch.
func NewSQLCompiler(sch schema.Schema) *SQLCompiler {
	return &SQLCompiler{schema: sch}
}

// fragment is a compiled subtree.
type fragment struct {
	sql    string
	params []any
	schema schema.RelationSchema
	order  []int // Ordering keys when the subtree root is an Order
}

// Compile converts op to parameterized SQL.
// Returns (sql, params, error) tuple.
//
// The tree is type-checked with engine.Infer first, so Compile fails with
// the same typed ir.Error the in-memory evaluator would report.
//
// MANDATORY: The query ends in ORDER BY: an Order root's keys first, then
// every column as tiebreaker.
func (c *SQLCompiler) Compile(op queryir.RelationalOp) (string, []any, error) {
	if op == nil {
		return "", nil, fmt.Errorf("cannot compile nil operator")
	}
	if _, err := engine.Infer(op, c.schema); err != nil {
		return "", nil, err
	}

	f, err := c.compile(op)
	if err != nil {
		return "", nil, err
	}

	keys := stableOrderKey(f.order, f.schema.Arity())
	sql := fmt.Sprintf("SELECT * FROM (%s) AS q ORDER BY %s", f.sql, strings.Join(keys, ", "))
	return sql, f.params, nil
}

// stableOrderKey lists order first, then every remaining column.
// COLLATE BINARY keeps text ordering bytewise, matching ir.Compare.
func stableOrderKey(order []int, arity int) []string {
	seen := make(map[int]bool, arity)
	keys := make([]string, 0, arity)
	add := func(i int) {
		if !seen[i] {
			seen[i] = true
			keys = append(keys, ColumnName(i)+" ASC COLLATE BINARY")
		}
	}
	for _, i := range order {
		add(i)
	}
	for i := 0; i < arity; i++ {
		add(i)
	}
	return keys
}

func (c *SQLCompiler) compile(op queryir.RelationalOp) (*fragment, error) {
	rs, err := engine.Infer(op, c.schema)
	if err != nil {
		return nil, err
	}

	switch node := op.(type) {
	case *queryir.Relation:
		return &fragment{
			sql:    fmt.Sprintf("SELECT %s FROM %s", columnList("", rs.Arity()), TableName(node.Name())),
			schema: rs,
		}, nil

	case *queryir.SetOperation:
		return c.compileSetOperation(node, rs)

	case *queryir.Selection:
		rhs, err := c.compile(node.RHS())
		if err != nil {
			return nil, err
		}
		where, params, err := compileTerm(node.Criteria(), rhs.schema, columnRef(""))
		if err != nil {
			return nil, fmt.Errorf("compile selection: %w", err)
		}
		return &fragment{
			sql:    fmt.Sprintf("SELECT * FROM (%s) AS s WHERE %s", rhs.sql, where),
			params: append(rhs.params, params...),
			schema: rs,
		}, nil

	case *queryir.Projection:
		return c.compileProjection(node, rs)

	case *queryir.Rename:
		// Names live only in the schema; columns are positional.
		rhs, err := c.compile(node.RHS())
		if err != nil {
			return nil, err
		}
		return &fragment{sql: rhs.sql, params: rhs.params, schema: rs, order: rhs.order}, nil

	case *queryir.Order:
		rhs, err := c.compile(node.RHS())
		if err != nil {
			return nil, err
		}
		keys, err := resolveAll(rhs.schema, node.Attributes())
		if err != nil {
			return nil, err
		}
		return &fragment{sql: rhs.sql, params: rhs.params, schema: rs, order: keys}, nil

	case *queryir.Group:
		rhs, err := c.compile(node.RHS())
		if err != nil {
			return nil, err
		}
		keys, err := resolveAll(rhs.schema, node.Attributes())
		if err != nil {
			return nil, err
		}
		items := make([]string, len(keys))
		for i, k := range keys {
			items[i] = ColumnName(k) + " AS " + ColumnName(i)
		}
		return &fragment{
			sql:    fmt.Sprintf("SELECT DISTINCT %s FROM (%s) AS g", strings.Join(items, ", "), rhs.sql),
			params: rhs.params,
			schema: rs,
		}, nil

	case *queryir.Join:
		return c.compileJoin(node, rs)

	default:
		return nil, fmt.Errorf("unsupported operator type: %T", op)
	}
}

var setOperatorSQL = map[queryir.SetOperator]string{
	queryir.SetUnion:        "UNION",
	queryir.SetIntersection: "INTERSECT",
	queryir.SetDifference:   "EXCEPT",
}

func (c *SQLCompiler) compileSetOperation(node *queryir.SetOperation, rs schema.RelationSchema) (*fragment, error) {
	lhs, err := c.compile(node.LHS())
	if err != nil {
		return nil, err
	}
	rhs, err := c.compile(node.RHS())
	if err != nil {
		return nil, err
	}

	switch node.Operator() {
	case queryir.SetCartesianProduct:
		items := make([]string, 0, rs.Arity())
		for i := 0; i < lhs.schema.Arity(); i++ {
			items = append(items, "l."+ColumnName(i)+" AS "+ColumnName(i))
		}
		for j := 0; j < rhs.schema.Arity(); j++ {
			items = append(items, "r."+ColumnName(j)+" AS "+ColumnName(lhs.schema.Arity()+j))
		}
		return &fragment{
			sql:    fmt.Sprintf("SELECT %s FROM (%s) AS l CROSS JOIN (%s) AS r", strings.Join(items, ", "), lhs.sql, rhs.sql),
			params: concatParams(lhs.params, rhs.params),
			schema: rs,
		}, nil

	case queryir.SetSymmetricDifference:
		sql := fmt.Sprintf(
			"SELECT * FROM (SELECT * FROM (%[1]s) EXCEPT SELECT * FROM (%[2]s)) UNION SELECT * FROM (SELECT * FROM (%[2]s) EXCEPT SELECT * FROM (%[1]s))",
			lhs.sql, rhs.sql,
		)
		return &fragment{
			sql:    sql,
			params: concatParams(lhs.params, rhs.params, rhs.params, lhs.params),
			schema: rs,
		}, nil

	default:
		keyword, ok := setOperatorSQL[node.Operator()]
		if !ok {
			return nil, fmt.Errorf("unsupported set operator: %s", node.Operator())
		}
		return &fragment{
			sql:    fmt.Sprintf("SELECT * FROM (%s) %s SELECT * FROM (%s)", lhs.sql, keyword, rhs.sql),
			params: concatParams(lhs.params, rhs.params),
			schema: rs,
		}, nil
	}
}

func (c *SQLCompiler) compileProjection(node *queryir.Projection, rs schema.RelationSchema) (*fragment, error) {
	rhs, err := c.compile(node.RHS())
	if err != nil {
		return nil, err
	}

	var params []any
	items := make([]string, 0, rs.Arity())
	for i, a := range node.Attributes() {
		if v, ok := a.AsConstant(); ok {
			p, err := Encode(v)
			if err != nil {
				return nil, fmt.Errorf("convert value: %w", err)
			}
			params = append(params, p)
			items = append(items, "? AS "+ColumnName(i))
			continue
		}
		attr, _ := a.AsAttribute()
		idx, err := resolve(rhs.schema, attr)
		if err != nil {
			return nil, err
		}
		items = append(items, ColumnName(idx)+" AS "+ColumnName(i))
	}

	// Item placeholders precede the subquery's placeholders in the text.
	return &fragment{
		sql:    fmt.Sprintf("SELECT DISTINCT %s FROM (%s) AS p", strings.Join(items, ", "), rhs.sql),
		params: concatParams(params, rhs.params),
		schema: rs,
	}, nil
}

func (c *SQLCompiler) compileJoin(node *queryir.Join, rs schema.RelationSchema) (*fragment, error) {
	lhs, err := c.compile(node.LHS())
	if err != nil {
		return nil, err
	}
	rhs, err := c.compile(node.RHS())
	if err != nil {
		return nil, err
	}
	la := lhs.schema.Arity()

	var (
		items  []string
		on     []string
		params []any
	)
	for i := 0; i < la; i++ {
		items = append(items, "l."+ColumnName(i)+" AS "+ColumnName(i))
	}

	if node.IsNatural() {
		for j := 0; j < rhs.schema.Arity(); j++ {
			name := rhs.schema.Attribute(j).Name()
			if name.IsZero() {
				items = append(items, "r."+ColumnName(j)+" AS "+ColumnName(len(items)))
				continue
			}
			if i, err := lhs.schema.IndexOf(name); err == nil {
				on = append(on, "l."+ColumnName(i)+" = r."+ColumnName(j))
				continue
			}
			items = append(items, "r."+ColumnName(j)+" AS "+ColumnName(len(items)))
		}
	} else {
		for j := 0; j < rhs.schema.Arity(); j++ {
			items = append(items, "r."+ColumnName(j)+" AS "+ColumnName(la+j))
		}
		combined := schema.Derived(lhs.schema.Name(), slices.Concat(lhs.schema.Attributes(), rhs.schema.Attributes())...)
		cond, condParams, err := compileTerm(node.Criteria(), combined, func(p int) string {
			if p < la {
				return "l." + ColumnName(p)
			}
			return "r." + ColumnName(p-la)
		})
		if err != nil {
			return nil, fmt.Errorf("compile join ON: %w", err)
		}
		on = append(on, cond)
		params = condParams
	}

	join := "CROSS JOIN"
	var onClause string
	if len(on) > 0 {
		join = "JOIN"
		onClause = " ON " + strings.Join(on, " AND ")
	}
	return &fragment{
		sql: fmt.Sprintf("SELECT %s FROM (%s) AS l %s (%s) AS r%s",
			strings.Join(items, ", "), lhs.sql, join, rhs.sql, onClause),
		params: concatParams(lhs.params, rhs.params, params),
		schema: rs,
	}, nil
}

// compileTerm compiles a Term to an SQL boolean expression over columns
// named by col.
// CRITICAL: Values NEVER interpolated - always use ? placeholders.
func compileTerm(t queryir.Term, rs schema.RelationSchema, col func(int) string) (string, []any, error) {
	switch term := t.(type) {
	case queryir.ConstantTerm:
		b, ok := term.Value.(ir.Boolean)
		if !ok {
			return "", nil, ir.NewIncompatibleTypesError(ir.DomainBoolean, term.Value.Domain())
		}
		if b {
			return "1", nil, nil
		}
		return "0", nil, nil

	case queryir.ExistsTerm:
		if _, err := resolve(rs, term.Attribute); err != nil {
			return "", nil, err
		}
		return "1", nil, nil

	case queryir.AtomTerm:
		lhs, err := resolve(rs, term.LHS)
		if err != nil {
			return "", nil, err
		}
		var (
			rhs    string
			params []any
		)
		if v, ok := term.RHS.AsConstant(); ok {
			p, err := Encode(v)
			if err != nil {
				return "", nil, fmt.Errorf("convert value: %w", err)
			}
			rhs, params = "?", []any{p}
		} else {
			attr, _ := term.RHS.AsAttribute()
			idx, err := resolve(rs, attr)
			if err != nil {
				return "", nil, err
			}
			rhs = col(idx)
		}
		return compileAtom(col(lhs), term.Op, rhs), params, nil

	case queryir.NegateTerm:
		inner, params, err := compileTerm(term.Term, rs, col)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + inner + ")", params, nil

	case queryir.AndTerm:
		return compileConnective(term.LHS, "AND", term.RHS, rs, col)

	case queryir.OrTerm:
		return compileConnective(term.LHS, "OR", term.RHS, rs, col)

	default:
		return "", nil, fmt.Errorf("unsupported term type: %T", t)
	}
}

var comparisonSQL = map[queryir.ComparisonOperator]string{
	queryir.Equal:              "=",
	queryir.NotEqual:           "<>",
	queryir.LessThan:           "<",
	queryir.LessThanOrEqual:    "<=",
	queryir.GreaterThan:        ">",
	queryir.GreaterThanOrEqual: ">=",
}

func compileAtom(lhs string, op queryir.ComparisonOperator, rhs string) string {
	switch op {
	case queryir.StringMatch:
		return lhs + " REGEXP " + rhs
	case queryir.StringNotMatch:
		return "NOT (" + lhs + " REGEXP " + rhs + ")"
	default:
		return lhs + " " + comparisonSQL[op] + " " + rhs
	}
}

func compileConnective(l queryir.Term, keyword string, r queryir.Term, rs schema.RelationSchema, col func(int) string) (string, []any, error) {
	lhs, lp, err := compileTerm(l, rs, col)
	if err != nil {
		return "", nil, err
	}
	rhs, rp, err := compileTerm(r, rs, col)
	if err != nil {
		return "", nil, err
	}
	return "(" + lhs + " " + keyword + " " + rhs + ")", concatParams(lp, rp), nil
}

func resolve(rs schema.RelationSchema, a queryir.Attribute) (int, error) {
	if n, ok := a.AsName(); ok {
		return rs.IndexOf(n)
	}
	idx, _ := a.AsIndex()
	if idx < 0 || idx >= rs.Arity() {
		return 0, ir.NewAttributeIndexInvalidError(idx, rs.Arity())
	}
	return idx, nil
}

func resolveAll(rs schema.RelationSchema, attrs []queryir.Attribute) ([]int, error) {
	out := make([]int, len(attrs))
	for i, a := range attrs {
		idx, err := resolve(rs, a)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

func columnRef(alias string) func(int) string {
	return func(i int) string {
		if alias == "" {
			return ColumnName(i)
		}
		return alias + "." + ColumnName(i)
	}
}

func columnList(alias string, arity int) string {
	ref := columnRef(alias)
	cols := make([]string, arity)
	for i := range cols {
		cols[i] = ref(i)
	}
	return strings.Join(cols, ", ")
}

func concatParams(parts ...[]any) []any {
	var out []any
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
