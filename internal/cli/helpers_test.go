package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const peopleCUE = `relations: {
	people: { id: "integer", name: "string" }
	visits: { id: "integer", place: "string" }
}

facts: {
	people: [[1, "Ann"], [2, "Bob"]]
	visits: [[1, "Paris"], [2, "Rome"]]
}
`

// writeFile writes content to name inside dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// peopleSchema writes the people/visits schema to a temp dir.
func peopleSchema(t *testing.T) string {
	t.Helper()
	return writeFile(t, t.TempDir(), "people.cue", peopleCUE)
}

// compiledDB returns a database holding people and visits.
func compiledDB(t *testing.T) string {
	t.Helper()
	db := tempDB(t)
	_, err := execute(t, "--database", db, "compile", peopleSchema(t))
	require.NoError(t, err)
	return db
}
