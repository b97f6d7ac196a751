package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/queryir"
)

// Scenario defines a conformance test scenario.
// Scenarios declare base relations, evaluate queries against them, and
// assert on the results.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is an optional CUE file declaring relations and facts.
	// Relative paths are resolved against the scenario file location.
	Schema string `yaml:"schema,omitempty"`

	// Pushdown also evaluates every query in SQLite and requires the
	// result to match the engine's.
	Pushdown bool `yaml:"pushdown,omitempty"`

	// Relations declares base relations inline.
	// Keys are relation names.
	Relations map[string]RelationDecl `yaml:"relations,omitempty"`

	// Queries are evaluated in order against the base relations.
	Queries []QueryStep `yaml:"queries"`

	// Assertions relate query results to each other.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// RunID is an optional fixed run id for log correlation.
	// Defaults to "scenario-<name>".
	RunID string `yaml:"run_id,omitempty"`
}

// RelationDecl declares one base relation.
type RelationDecl struct {
	// Attributes are the relation's header, in positional order.
	Attributes []AttributeDecl `yaml:"attributes"`

	// Facts are the relation's tuples. Each value is converted to its
	// attribute's domain with ir.Convert.
	Facts [][]any `yaml:"facts,omitempty"`
}

// AttributeDecl declares one attribute. An empty name is anonymous.
type AttributeDecl struct {
	Name   string `yaml:"name,omitempty"`
	Domain string `yaml:"domain"`
}

// QueryStep is one query document and its expected result.
type QueryStep struct {
	// Name identifies the query in assertions and snapshots.
	Name string `yaml:"name"`

	// Expr is a queryir document: a single operator or an expression
	// list. The result of a list is its last expression.
	Expr yaml.Node `yaml:"expr"`

	// Expect specifies the expected result.
	// If nil, the query only has to evaluate.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	list queryir.ExpressionList
}

// List returns the decoded expression list.
// Valid only for scenarios returned by LoadScenario or ParseScenario.
func (q *QueryStep) List() queryir.ExpressionList {
	return q.list
}

// ExpectClause specifies an expected query result.
type ExpectClause struct {
	// Attributes are the expected attribute names, in order.
	// An empty string matches an anonymous attribute.
	Attributes []string `yaml:"attributes,omitempty"`

	// Rows is the expected set of tuples. Order and duplicates are
	// ignored. Nil skips the check; an empty list expects no tuples.
	Rows [][]any `yaml:"rows,omitempty"`

	// Error is the expected ir.Kind of the failure, e.g.
	// INCOMPATIBLE_TYPES. Mutually exclusive with Attributes and Rows.
	Error string `yaml:"error,omitempty"`
}

// Assertion relates query results.
type Assertion struct {
	// Type specifies the assertion type:
	// - "result_equal": Queries[0] and Queries[1] produce equal sets
	// - "result_subset": Queries[0] is a subset of Queries[1]
	// - "result_count": Query produces exactly Count tuples
	// - "result_contains": Query's result contains Row
	// - "error_kind": Query fails with Kind
	Type string `yaml:"type"`

	// Query is the query name (used by result_count, result_contains,
	// error_kind).
	Query string `yaml:"query,omitempty"`

	// Queries are the compared query names (used by result_equal,
	// result_subset).
	Queries []string `yaml:"queries,omitempty"`

	// Count is the expected cardinality (used by result_count).
	Count int `yaml:"count,omitempty"`

	// Row is the expected tuple (used by result_contains).
	Row []any `yaml:"row,omitempty"`

	// Kind is the expected ir.Kind (used by error_kind).
	Kind string `yaml:"kind,omitempty"`
}

// Assertion type constants.
const (
	AssertResultEqual    = "result_equal"
	AssertResultSubset   = "result_subset"
	AssertResultCount    = "result_count"
	AssertResultContains = "result_contains"
	AssertErrorKind      = "error_kind"
)

var knownKinds = []ir.Kind{
	ir.KindInvalidName,
	ir.KindRelationDoesNotExist,
	ir.KindAttributeDoesNotExist,
	ir.KindAttributeIndexInvalid,
	ir.KindIncompatibleTypes,
	ir.KindInvalidValue,
	ir.KindNullaryFactsNotAllowed,
	ir.KindDuplicateName,
}

// LoadScenario reads and parses a scenario YAML file.
// The schema path is resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the schema path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, basePath)
}

// ParseScenario parses a scenario document.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the schema path BEFORE validation
	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && basePath != "" {
		scenario.Schema = filepath.Join(basePath, scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid, and
// decodes every query document.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Schema == "" && len(s.Relations) == 0 {
		return fmt.Errorf("schema or relations is required")
	}

	if len(s.Queries) == 0 {
		return fmt.Errorf("queries list is required and must be non-empty")
	}

	if s.Schema != "" {
		if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
			return fmt.Errorf("schema file not found: %s", s.Schema)
		}
	}

	for name, rel := range s.Relations {
		if len(rel.Attributes) == 0 {
			return fmt.Errorf("relations.%s: attributes is required", name)
		}
	}

	names := make(map[string]bool, len(s.Queries))
	for i := range s.Queries {
		q := &s.Queries[i]
		if q.Name == "" {
			return fmt.Errorf("queries[%d]: name is required", i)
		}
		if names[q.Name] {
			return fmt.Errorf("queries[%d]: duplicate query name %q", i, q.Name)
		}
		names[q.Name] = true

		if q.Expr.Kind == 0 {
			return fmt.Errorf("queries[%d]: expr is required", i)
		}
		list, err := queryir.DecodeListNode(&q.Expr)
		if err != nil {
			return fmt.Errorf("queries[%d].expr: %w", i, err)
		}
		if len(list) == 0 {
			return fmt.Errorf("queries[%d].expr: empty expression list", i)
		}
		q.list = list

		if e := q.Expect; e != nil && e.Error != "" {
			if e.Rows != nil || e.Attributes != nil {
				return fmt.Errorf("queries[%d].expect: error excludes attributes and rows", i)
			}
			if !slices.Contains(knownKinds, ir.Kind(e.Error)) {
				return fmt.Errorf("queries[%d].expect: unknown error kind %q", i, e.Error)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, names); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, queries map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	var refs []string
	switch a.Type {
	case AssertResultEqual, AssertResultSubset:
		if len(a.Queries) != 2 {
			return fmt.Errorf("assertions[%d]: queries must name exactly two queries for %s", index, a.Type)
		}
		refs = a.Queries
	case AssertResultCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for result_count", index)
		}
		refs = []string{a.Query}
	case AssertResultContains:
		if len(a.Row) == 0 {
			return fmt.Errorf("assertions[%d]: row is required for result_contains", index)
		}
		refs = []string{a.Query}
	case AssertErrorKind:
		if !slices.Contains(knownKinds, ir.Kind(a.Kind)) {
			return fmt.Errorf("assertions[%d]: unknown error kind %q", index, a.Kind)
		}
		refs = []string{a.Query}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	for _, q := range refs {
		if q == "" {
			return fmt.Errorf("assertions[%d]: query is required for %s", index, a.Type)
		}
		if !queries[q] {
			return fmt.Errorf("assertions[%d]: unknown query %q", index, q)
		}
	}

	return nil
}
