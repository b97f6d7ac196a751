// Package harness runs relational algebra scenarios as executable
// conformance tests.
//
// A scenario declares base relations and their facts, evaluates query
// documents with the in-memory engine, and checks the results. With
// pushdown enabled every query also runs inside SQLite through the store,
// and the two results must agree.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: people_visits
//	description: "What this scenario validates"
//	schema: schema.cue              # optional CUE declarations and facts
//	pushdown: true                  # also run every query in SQLite
//	relations:                      # inline declarations
//	  people:
//	    attributes:
//	      - {name: id, domain: integer}
//	      - {name: name, domain: string}
//	    facts:
//	      - [1, Ann]
//	queries:
//	  - name: ann_visits
//	    expr:                       # queryir document
//	      join:
//	        - select: {where: {eq: [id, {const: 1}]}, from: people}
//	        - visits
//	    expect:
//	      attributes: [id, name, place]
//	      rows: [[1, Ann, Paris]]
//	assertions:
//	  - type: result_count
//	    query: ann_visits
//	    count: 1
//
// # Assertion Types
//
//   - result_equal: two queries produce the same set of tuples
//   - result_subset: every tuple of the first query is in the second
//   - result_count: a query produces exactly Count tuples
//   - result_contains: a query's result contains Row
//   - error_kind: a query fails with the given ir.Kind
//
// # Deterministic Testing
//
// Evaluation runs with a fixed run id and a discarded logger, and each
// scenario gets a fresh in-memory SQLite database. Snapshots sort tuples by
// value, so golden files are identical across runs.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/people_visits.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
