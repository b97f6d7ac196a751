package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// tempDB returns a database path in a fresh temporary directory.
func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "relalg.db")
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "relalg", cmd.Use)
	assert.Contains(t, cmd.Long, "relational algebra")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"eval", "query", "render", "graph", "check", "compile", "import", "export", "show", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestValidateAlias(t *testing.T) {
	cmd := NewRootCommand()
	subCmd, _, err := cmd.Find([]string{"validate"})
	require.NoError(t, err)
	assert.Equal(t, "check", subCmd.Name())
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "render-mode", "database", "schema", "data-dir", "regex-cache-size"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestCommandFlags(t *testing.T) {
	testCases := []struct {
		command string
		flags   []string
	}{
		{"eval", []string{"expr", "store", "all", "max-rows", "data", "no-header", "delimiter", "normalize"}},
		{"query", []string{"expr", "save", "explain"}},
		{"render", []string{"expr", "mode"}},
		{"graph", []string{"expr", "mermaid"}},
		{"check", []string{"query", "expr"}},
		{"compile", []string{"output", "dry-run"}},
		{"import", []string{"no-header", "delimiter", "normalize"}},
		{"test", []string{"update", "filter", "golden-dir"}},
	}

	for _, tc := range testCases {
		t.Run(tc.command, func(t *testing.T) {
			sub, _, err := NewRootCommand().Find([]string{tc.command})
			require.NoError(t, err)
			for _, name := range tc.flags {
				assert.NotNil(t, sub.Flags().Lookup(name), "--%s", name)
			}
		})
	}
}

func TestFormatValidation(t *testing.T) {
	// Test valid formats
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.True(t, isValidFormat("table"))

	// Test invalid formats
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	_, err := execute(t, "--format", "invalid", "render", "-e", "people")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestInvalidConfigurationIsCommandError(t *testing.T) {
	_, err := execute(t, "--render-mode", "braille", "render", "-e", "people")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRenderModeFromConfiguration(t *testing.T) {
	out, err := execute(t, "--render-mode", "ascii", "render", "-e", "{union: [a, b]}")
	require.NoError(t, err)
	assert.Equal(t, "a union b;\n", out)
}
