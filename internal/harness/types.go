package harness

import (
	"github.com/roach88/relalg/internal/data"
)

// Outcome is the evaluation result of one scenario query.
type Outcome struct {
	// Query is the query name from the scenario.
	Query string `json:"query" yaml:"query"`

	// Relation is the engine result. Nil when the query failed.
	Relation *data.SimpleRelation `json:"-" yaml:"-"`

	// Pushdown is the SQLite result. Nil unless pushdown is enabled and
	// the query succeeded there.
	Pushdown *data.SimpleRelation `json:"-" yaml:"-"`

	// Err is the engine failure, if any.
	Err error `json:"-" yaml:"-"`
}

// Failed reports whether the engine rejected the query.
func (o *Outcome) Failed() bool {
	return o.Err != nil
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success.
	// True if every expect clause and assertion holds.
	Pass bool `json:"pass"`

	// Outcomes holds one entry per query, in scenario order.
	Outcomes []*Outcome `json:"outcomes"`

	// Errors contains failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Outcomes: []*Outcome{},
		Errors:   []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddOutcome records a query outcome.
func (r *Result) AddOutcome(o *Outcome) {
	r.Outcomes = append(r.Outcomes, o)
}

// Outcome returns the outcome of the named query.
func (r *Result) Outcome(query string) (*Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Query == query {
			return o, true
		}
	}
	return nil, false
}
