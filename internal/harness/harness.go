package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/relalg/internal/compiler"
	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/engine"
	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/schema"
	"github.com/roach88/relalg/internal/store"
	"github.com/roach88/relalg/internal/testutil"
)

// Harness is the scenario execution engine.
// It evaluates queries with a fixed run id and, for pushdown scenarios,
// replays them against a fresh SQLite store.
type Harness struct {
	catalog *data.Catalog
	engine  *engine.Evaluator
	logger  *slog.Logger
}

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger routes engine and harness logs to logger.
// By default logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// Run executes a scenario and returns the result.
//
// An error is returned only when the scenario cannot be set up (bad schema
// file, facts that do not conform). Query failures, unmet expectations and
// failed assertions are reported in Result.Errors.
//
// Execution flow:
// 1. Build the base catalog from the CUE schema file and inline relations
// 2. Evaluate each query list with the engine
// 3. With pushdown, evaluate it again in SQLite and compare
// 4. Check expect clauses
// 5. Evaluate assertions
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	catalog, err := buildCatalog(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to build relations: %w", err)
	}

	h := &Harness{
		catalog: catalog,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	runID := scenario.RunID
	if runID == "" {
		runID = "scenario-" + scenario.Name
	}
	h.engine = engine.New(catalog,
		engine.WithLogger(h.logger),
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(runID)),
	)

	ctx := context.Background()
	result := NewResult()
	for i := range scenario.Queries {
		step := &scenario.Queries[i]
		outcome := h.evaluate(step)
		result.AddOutcome(outcome)

		if scenario.Pushdown {
			if err := h.pushdown(ctx, step, outcome); err != nil {
				result.AddError(err.Error())
			}
		}

		for _, msg := range checkExpect(step, outcome) {
			result.AddError(msg)
		}

		h.logger.Info("query evaluated",
			"scenario", scenario.Name,
			"query", step.Name,
			"failed", outcome.Failed(),
		)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

func (h *Harness) evaluate(step *QueryStep) *Outcome {
	outcome := &Outcome{Query: step.Name}
	res, err := h.engine.EvaluateList(step.List())
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Relation = res.Last()
	return outcome
}

// pushdown evaluates the query list inside a fresh in-memory store holding
// the base relations, and checks it agrees with the engine outcome.
//
// Bound results are saved back into the store under their binding name so
// later expressions read them the way the engine's scope does.
func (h *Harness) pushdown(ctx context.Context, step *QueryStep, outcome *Outcome) error {
	st, err := store.Open(":memory:")
	if err != nil {
		return fmt.Errorf("query %q: failed to create in-memory store: %w", step.Name, err)
	}
	defer st.Close()

	for _, name := range h.catalog.Names() {
		rel, _ := h.catalog.Get(name)
		if err := st.SaveRelation(ctx, rel); err != nil {
			return fmt.Errorf("query %q: failed to store %s: %w", step.Name, name, err)
		}
	}

	var last *data.SimpleRelation
	var qerr error
	for _, expr := range step.List() {
		last, qerr = st.Query(ctx, expr.Op)
		if qerr != nil {
			break
		}
		if expr.IsNamed() {
			bound := last.WithSchema(schema.Rename(last.Schema(), expr.Name))
			if err := st.SaveRelation(ctx, bound); err != nil {
				return fmt.Errorf("query %q: failed to store binding %s: %w", step.Name, expr.Name, err)
			}
		}
	}

	if qerr != nil || outcome.Failed() {
		engineKind, _ := ir.KindOf(outcome.Err)
		storeKind, _ := ir.KindOf(qerr)
		if qerr == nil || !outcome.Failed() || engineKind != storeKind {
			return &AssertionError{
				Type:     "pushdown",
				Query:    step.Name,
				Expected: describeOutcome(outcome.Relation, outcome.Err),
				Actual:   describeOutcome(last, qerr),
			}
		}
		return nil
	}

	outcome.Pushdown = last
	if !data.SetEqual(outcome.Relation, last) ||
		!slices.Equal(schema.Names(outcome.Relation.Schema()), schema.Names(last.Schema())) {
		return &AssertionError{
			Type:     "pushdown",
			Query:    step.Name,
			Expected: describeOutcome(outcome.Relation, nil),
			Actual:   describeOutcome(last, nil),
		}
	}
	return nil
}

// buildCatalog collects the base relations of a scenario.
func buildCatalog(s *Scenario) (*data.Catalog, error) {
	catalog := data.NewCatalog()

	if s.Schema != "" {
		src, err := os.ReadFile(s.Schema)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema: %w", err)
		}
		v := cuecontext.New().CompileBytes(src, cue.Filename(s.Schema))
		if err := v.Err(); err != nil {
			return nil, fmt.Errorf("failed to compile schema: %w", err)
		}
		sch, err := compiler.CompileSchema(v)
		if err != nil {
			return nil, err
		}
		if catalog, err = compiler.CompileFacts(v, sch); err != nil {
			return nil, err
		}
	}

	names := make([]string, 0, len(s.Relations))
	for name := range s.Relations {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		rel, err := buildRelation(name, s.Relations[name])
		if err != nil {
			return nil, fmt.Errorf("relations.%s: %w", name, err)
		}
		if _, exists := catalog.Get(rel.Schema().Name()); exists {
			return nil, fmt.Errorf("relations.%s: %w", name, ir.NewDuplicateNameError(rel.Schema().Name()))
		}
		catalog.Put(rel.Schema().Name(), rel)
	}

	return catalog, nil
}

func buildRelation(name string, decl RelationDecl) (*data.SimpleRelation, error) {
	relName, err := ir.ParseName(name)
	if err != nil {
		return nil, err
	}

	attrs := make([]schema.AttributeSchema, len(decl.Attributes))
	anonymous := false
	for i, a := range decl.Attributes {
		d, err := ir.ParseDomain(a.Domain)
		if err != nil {
			return nil, fmt.Errorf("attributes[%d]: %w", i, err)
		}
		if a.Name == "" {
			attrs[i] = schema.Anonymous(d)
			anonymous = true
			continue
		}
		n, err := ir.ParseName(a.Name)
		if err != nil {
			return nil, fmt.Errorf("attributes[%d]: %w", i, err)
		}
		attrs[i] = schema.Attr(n, d)
	}

	var rs schema.RelationSchema
	if anonymous {
		rs = schema.Derived(relName, attrs...)
	} else if rs, err = schema.NewRelationSchema(relName, attrs...); err != nil {
		return nil, err
	}

	rel := data.NewRelation(rs)
	for i, fact := range decl.Facts {
		values, err := convertRow(rs, fact)
		if err != nil {
			return nil, fmt.Errorf("facts[%d]: %w", i, err)
		}
		if _, err := rel.Insert(values...); err != nil {
			return nil, fmt.Errorf("facts[%d]: %w", i, err)
		}
	}
	return rel, nil
}

// convertRow converts YAML-parsed values to the domains of rs.
func convertRow(rs schema.RelationSchema, row []any) ([]ir.Value, error) {
	if len(row) != rs.Arity() {
		return nil, ir.NewArityMismatchError(rs.Arity(), len(row))
	}
	values := make([]ir.Value, len(row))
	for i, raw := range row {
		v, err := ir.Convert(rs.Attribute(i).Domain(), raw)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}

// checkExpect compares an outcome with the step's expect clause. Without
// a clause nothing is checked, not even success.
func checkExpect(step *QueryStep, outcome *Outcome) []string {
	e := step.Expect
	if e == nil {
		return nil
	}

	if e.Error != "" {
		if err := assertErrorKind(step.Name, outcome, ir.Kind(e.Error)); err != nil {
			return []string{err.Error()}
		}
		return nil
	}
	if outcome.Failed() {
		return []string{fmt.Sprintf("query %q failed: %v", step.Name, outcome.Err)}
	}

	var errs []string
	rel := outcome.Relation
	if e.Attributes != nil {
		actual := make([]string, 0, rel.Schema().Arity())
		for _, n := range schema.Names(rel.Schema()) {
			actual = append(actual, n.String())
		}
		if !slices.Equal(e.Attributes, actual) {
			errs = append(errs, (&AssertionError{
				Type:     "expect.attributes",
				Query:    step.Name,
				Expected: fmt.Sprintf("%q", e.Attributes),
				Actual:   fmt.Sprintf("%q", actual),
			}).Error())
		}
	}
	if e.Rows != nil {
		want, err := relationFromRows(rel.Schema(), e.Rows)
		if err != nil {
			errs = append(errs, fmt.Sprintf("query %q: expect.rows: %v", step.Name, err))
		} else if !data.SetEqual(want, rel) {
			errs = append(errs, (&AssertionError{
				Type:     "expect.rows",
				Query:    step.Name,
				Expected: describeOutcome(want, nil),
				Actual:   describeOutcome(rel, nil),
			}).Error())
		}
	}
	return errs
}

func relationFromRows(rs schema.RelationSchema, rows [][]any) (*data.SimpleRelation, error) {
	rel := data.NewRelation(rs)
	for i, row := range rows {
		values, err := convertRow(rs, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rel.MustInsert(values...)
	}
	return rel, nil
}
