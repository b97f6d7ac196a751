package engine

import (
	"log/slog"

	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/pattern"
	"github.com/roach88/relalg/internal/queryir"
	"github.com/roach88/relalg/internal/schema"
)

// Evaluator evaluates expression trees against a Provider.
//
// Thread-safety model:
//   - Evaluate, EvaluateExpression, EvaluateList: safe from any goroutine
//   - Each call runs synchronously in the caller's goroutine
//   - The regex cache is the only shared mutable state (mutex-guarded)
//
// INVARIANTS:
//   - Provider relations are never mutated
//   - A failed call returns no partial relation
//   - Results are deterministic for a given provider state
type Evaluator struct {
	provider Provider
	logger   *slog.Logger
	runIDs   RunIDGenerator
	regex    *pattern.Cache
	quota    rowQuota
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger for operator and expression events.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// WithRunIDGenerator sets the generator of per-call run IDs.
// Default: UUIDv7Generator. Use FixedGenerator for deterministic logs.
func WithRunIDGenerator(gen RunIDGenerator) Option {
	return func(e *Evaluator) {
		e.runIDs = gen
	}
}

// WithRegexCacheSize sets how many compiled StringMatch patterns are kept.
// Default: pattern.DefaultCacheSize. Zero disables caching.
func WithRegexCacheSize(n int) Option {
	return func(e *Evaluator) {
		e.regex = pattern.NewCache(n)
	}
}

// WithMaxRows bounds the tuple count of every intermediate result.
// Default: 0 (unlimited). Exceeding the limit fails with *RowLimitError.
func WithMaxRows(n int) Option {
	return func(e *Evaluator) {
		e.quota = rowQuota{maxRows: n}
	}
}

// New creates an Evaluator reading relations from provider.
func New(provider Provider, opts ...Option) *Evaluator {
	e := &Evaluator{
		provider: provider,
		logger:   slog.Default(),
		runIDs:   UUIDv7Generator{},
		regex:    pattern.NewCache(pattern.DefaultCacheSize),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) newRun() *run {
	return &run{
		ev:    e,
		scope: newScope(e.provider),
		id:    e.runIDs.Generate(),
	}
}

// Evaluate evaluates a single operator tree.
//
// Returns the typed ir.Error of the first failing operator; partial results
// are never returned.
func (e *Evaluator) Evaluate(op queryir.RelationalOp) (*data.SimpleRelation, error) {
	return e.newRun().eval(op)
}

// EvaluateExpression evaluates one expression. A named expression's result
// schema carries the binding name.
func (e *Evaluator) EvaluateExpression(expr queryir.Expression) (*data.SimpleRelation, error) {
	r := e.newRun()
	return r.evalExpression(expr)
}

func (r *run) evalExpression(expr queryir.Expression) (*data.SimpleRelation, error) {
	rel, err := r.eval(expr.Op)
	if err != nil {
		return nil, err
	}
	if expr.IsNamed() {
		rel = rel.WithSchema(schema.Rename(rel.Schema(), expr.Name))
	}
	return rel, nil
}

// ListResult holds the outcome of EvaluateList.
//
// On failure it holds every expression evaluated before the failing one.
type ListResult struct {
	// RunID correlates the log lines of this evaluation.
	RunID string

	// Results holds one relation per successfully evaluated expression,
	// in list order.
	Results []*data.SimpleRelation

	// Bindings maps each binding name to its (latest) result.
	Bindings map[ir.Name]*data.SimpleRelation
}

// Last returns the result of the last evaluated expression, or nil.
func (l *ListResult) Last() *data.SimpleRelation {
	if len(l.Results) == 0 {
		return nil
	}
	return l.Results[len(l.Results)-1]
}

// EvaluateList evaluates expressions strictly in order.
//
// A named expression binds its result; later expressions resolve that name
// to the binding before consulting the Provider. Evaluation stops at the
// first failure, returning the partial ListResult together with an
// *ExpressionError identifying the failed entry.
func (e *Evaluator) EvaluateList(list queryir.ExpressionList) (*ListResult, error) {
	r := e.newRun()
	result := &ListResult{
		RunID:    r.id,
		Bindings: make(map[ir.Name]*data.SimpleRelation),
	}

	for i, expr := range list {
		rel, err := r.evalExpression(expr)
		if err != nil {
			e.logger.Warn("expression failed", append(logAttrs(r.id, i, expr.Name, 0), slog.Any("error", err))...)
			return result, &ExpressionError{Index: i, Name: expr.Name, Err: err}
		}
		result.Results = append(result.Results, rel)
		if expr.IsNamed() {
			if _, shadowed := result.Bindings[expr.Name]; shadowed {
				e.logger.Debug("binding replaced", "name", expr.Name.String(), "run_id", r.id)
			}
			r.scope.bind(expr.Name, rel)
			result.Bindings[expr.Name] = rel
		}
		e.logger.Info("expression evaluated", logAttrs(r.id, i, expr.Name, rel.Len())...)
	}
	return result, nil
}
