package harness

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/render"
)

// Snapshot captures the results of a scenario execution.
// Tuples are sorted by value so the serialized form is deterministic.
type Snapshot struct {
	Scenario string          `json:"scenario"`
	Queries  []QuerySnapshot `json:"queries"`
}

// QuerySnapshot is the snapshot of one query.
//
// Expressions holds the query rendered in Unicode notation, one line per
// expression. Cells use ir.Text.
type QuerySnapshot struct {
	Name        string     `json:"name"`
	Expressions []string   `json:"expressions"`
	Attributes  []string   `json:"attributes,omitempty"`
	Domains     []string   `json:"domains,omitempty"`
	Rows        [][]string `json:"rows,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// NewSnapshot builds the snapshot of a scenario result.
func NewSnapshot(scenario *Scenario, result *Result) *Snapshot {
	snap := &Snapshot{Scenario: scenario.Name}
	for i, o := range result.Outcomes {
		qs := QuerySnapshot{Name: o.Query}
		if i < len(scenario.Queries) {
			text := render.FormatList(scenario.Queries[i].List(), render.UnicodeText)
			qs.Expressions = strings.Split(strings.TrimSuffix(text, "\n"), "\n")
		}
		if o.Failed() {
			if kind, ok := ir.KindOf(o.Err); ok {
				qs.Error = string(kind)
			} else {
				qs.Error = o.Err.Error()
			}
		} else {
			rs := o.Relation.Schema()
			for i := range rs.Arity() {
				qs.Attributes = append(qs.Attributes, rs.Attribute(i).Name().String())
				qs.Domains = append(qs.Domains, rs.Attribute(i).Domain().String())
			}
			for _, row := range data.SortedRows(o.Relation) {
				cells := make([]string, len(row))
				for j, v := range row {
					cells[j] = ir.Text(v)
				}
				qs.Rows = append(qs.Rows, cells)
			}
		}
		snap.Queries = append(snap.Queries, qs)
	}
	return snap
}

// Marshal serializes the snapshot as indented JSON without HTML escaping.
func (s *Snapshot) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the snapshot of an existing result against the
// scenario's golden file, without re-running it.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	out, err := NewSnapshot(scenario, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, out)

	return nil
}
