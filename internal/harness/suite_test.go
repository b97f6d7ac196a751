package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindScenarios(t *testing.T) {
	paths, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("testdata/scenarios", "inventory.yaml"),
		filepath.Join("testdata/scenarios", "people_visits.yaml"),
	}, paths)

	single, err := FindScenarios("testdata/scenarios/inventory.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"testdata/scenarios/inventory.yaml"}, single)
}

func TestFindScenariosMissingPath(t *testing.T) {
	_, err := FindScenarios("testdata/nowhere")
	require.Error(t, err)

	var notFound *ScenarioNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "testdata/nowhere", notFound.Path)
}

func TestRunSuite(t *testing.T) {
	result, err := RunSuite("testdata/scenarios")
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalScenarios)
	assert.Equal(t, 2, result.Passed, "failures: %+v", result.Failures)
	assert.True(t, result.Pass())
}

func TestRunSuiteReportsFailures(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	}
	write("a_pass.yaml", minimalScenario)
	write("b_fail.yml", `
name: failing
description: "Count is wrong"
`+peopleRelations+`
queries:
  - name: q
    expr: people
assertions:
  - {type: result_count, query: q, count: 5}
`)
	write("c_broken.yaml", "name: broken\n")
	write("notes.txt", "not a scenario")

	result, err := RunSuite(dir)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalScenarios)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 2, result.Failed)
	assert.False(t, result.Pass())

	require.Len(t, result.Failures, 2)
	assert.Equal(t, "failing", result.Failures[0].Scenario)
	assert.Contains(t, result.Failures[0].Error, "result_count")
	assert.Contains(t, result.Failures[1].Error, "failed to load scenario")
}
