package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderModes(t *testing.T) {
	expr := "[{bind: a, query: {union: [left, right]}}, {query: {select: {where: {eq: [0, {const: 1}]}, from: a}}}]"

	testCases := []struct {
		mode string
		want string
	}{
		{"unicode", "a ≔ left ∪ right;\nσ[0=1]a;\n"},
		{"ascii", "a := left union right;\nselect[0=1]a;\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.mode, func(t *testing.T) {
			out, err := execute(t, "render", "--mode", tc.mode, "-e", expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestRenderLatexAndHTML(t *testing.T) {
	out, err := execute(t, "render", "-m", "latex", "-e", "{join: [my_rel, other]}")
	require.NoError(t, err)
	assert.Contains(t, out, `\bowtie`)
	assert.Contains(t, out, `my\_rel`)

	out, err = execute(t, "render", "-m", "html", "-e", "{select: {where: {eq: [tag, {const: '<b>'}]}, from: r}}")
	require.NoError(t, err)
	assert.Contains(t, out, "&lt;b&gt;")
}

func TestRenderFromStdin(t *testing.T) {
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetIn(strings.NewReader("{union: [a, b]}"))
	cmd.SetArgs([]string{"render", "-"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "a ∪ b;\n", out.String())
}

func TestRenderJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "render", "-e", "[{query: a}, {bind: b, query: {difference: [a, c]}}]")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   RenderResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "unicode", resp.Data.Mode)
	assert.Equal(t, []string{"a", "b ≔ a ∖ c"}, resp.Data.Expressions)
}

func TestRenderInvalidMode(t *testing.T) {
	_, err := execute(t, "render", "--mode", "braille", "-e", "a")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRenderRejectsBothSources(t *testing.T) {
	_, err := execute(t, "render", "-e", "a", "query.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGraphDOT(t *testing.T) {
	out, err := execute(t, "graph", "-e", "{join: [people, {select: {where: {exists: id}, from: visits}}]}")
	require.NoError(t, err)
	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, "people")
	assert.Contains(t, out, "visits")
	assert.Contains(t, out, "σ")
}

func TestGraphMermaid(t *testing.T) {
	out, err := execute(t, "graph", "--mermaid", "-e", "{union: [a, b]}")
	require.NoError(t, err)
	assert.Contains(t, out, "```mermaid\n")
	assert.Contains(t, out, "flowchart")
}

func TestGraphJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "graph", "-e", "a")
	require.NoError(t, err)

	var resp struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Contains(t, resp.Data["graph"], "digraph")
}
