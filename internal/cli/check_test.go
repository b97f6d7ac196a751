package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckValidSchema(t *testing.T) {
	out, err := execute(t, "check", peopleSchema(t))
	require.NoError(t, err)
	assert.Equal(t, "✓ Schema valid\n", out)
}

func TestCheckViaValidateAlias(t *testing.T) {
	out, err := execute(t, "validate", peopleSchema(t))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Schema valid")
}

func TestCheckInfersExpressionSchemas(t *testing.T) {
	expr := `[{bind: ann, query: {select: {where: {eq: [name, {const: Ann}]}, from: people}}}, {query: {join: [ann, visits]}}]`

	out, err := execute(t, "check", peopleSchema(t), "-e", expr)
	require.NoError(t, err)
	assert.Contains(t, out, "  ann(id:integer, name:string)\n")
	assert.Contains(t, out, "  $1(id:integer, name:string, place:string)\n")
}

func TestCheckInfersExpressionSchemasJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "check", peopleSchema(t),
		"-e", "{project: {attributes: [name], from: people}}")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Results, 1)
	assert.Equal(t, []AttributeView{{Name: "name", Domain: "string"}}, resp.Data.Results[0].Attributes)
}

func TestCheckTypeErrorFails(t *testing.T) {
	out, err := execute(t, "check", peopleSchema(t), "-e", "{union: [people, {project: {attributes: [id], from: people}}]}")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeIncompatibleTypes+"]")
}

func TestCheckReportsAllErrors(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.cue", `relations: {
	r: { a: "decimal" }
	s: { b: "integer" }
}
facts: {
	s: [["x"]]
	t: [[1]]
}
`)

	out, err := execute(t, "check", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E104: relations.r.a")
	assert.Contains(t, out, "E108: facts.s[0][0]")
	assert.Contains(t, out, "E106: facts.t")
}

func TestCheckReportsAllErrorsJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.cue", `relations: r: { a: "decimal", "1b": "integer" }`)

	out, err := execute(t, "--format", "json", "check", path)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	assert.Len(t, resp.Data.Errors, 2)
	require.NotNil(t, resp.Error)
	assert.Equal(t, resp.Data.Errors[0].Code, resp.Error.Code)
}

func TestCheckMissingPath(t *testing.T) {
	out, err := execute(t, "check", "no/such/schema.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeNotFound+"]")
}

func TestValidateSchema(t *testing.T) {
	errs, err := ValidateSchema(peopleSchema(t))
	require.NoError(t, err)
	assert.Empty(t, errs)

	_, err = ValidateSchema("no/such/schema.cue")
	assert.Error(t, err)
}
