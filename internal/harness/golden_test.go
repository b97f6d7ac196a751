package harness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoldenScenarios(t *testing.T) {
	testCases := []struct {
		name string
		path string
	}{
		{"people and visits", "testdata/scenarios/people_visits.yaml"},
		{"inventory from CUE", "testdata/scenarios/inventory.yaml"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			scenario, err := LoadScenario(tc.path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors:\n%s", strings.Join(result.Errors, "\n"))
		})
	}
}

func TestSnapshotIsDeterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/people_visits.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := NewSnapshot(scenario, first).Marshal()
	require.NoError(t, err)
	b, err := NewSnapshot(scenario, second).Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestSnapshotContents(t *testing.T) {
	s := parse(t, `
name: snap
description: "Snapshot shape"
`+peopleRelations+`
queries:
  - name: names
    expr: {project: {attributes: [name], from: people}}
  - name: missing
    expr: nobody
`)
	result, err := Run(s)
	require.NoError(t, err)

	snap := NewSnapshot(s, result)
	require.Len(t, snap.Queries, 2)

	names := snap.Queries[0]
	assert.Equal(t, []string{"π[name]people;"}, names.Expressions)
	assert.Equal(t, []string{"name"}, names.Attributes)
	assert.Equal(t, []string{"string"}, names.Domains)
	assert.Equal(t, [][]string{{"Ann"}, {"Bob"}}, names.Rows)
	assert.Empty(t, names.Error)

	missing := snap.Queries[1]
	assert.Equal(t, "RELATION_DOES_NOT_EXIST", missing.Error)
	assert.Nil(t, missing.Rows)

	out, err := snap.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"scenario": "snap"`)
	assert.True(t, strings.HasSuffix(string(out), "}\n"))
}
