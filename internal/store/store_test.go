package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"relalg_relations", "relalg_attributes"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpen_RejectsNewerSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := s.db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	s.Close()

	if _, err := Open(path); err == nil {
		t.Error("expected error for newer schema version, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestDB_ReturnsUnderlyingConnection(t *testing.T) {
	s := createTestStore(t)

	db := s.DB()
	if db == nil {
		t.Fatal("DB() returned nil")
	}
	if err := db.Ping(); err != nil {
		t.Errorf("DB() connection not usable: %v", err)
	}
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	testCases := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
		{"user_version", "1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := s.verifyPragma(tc.name, tc.expected); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestRegexpFunction(t *testing.T) {
	s := createTestStore(t)

	testCases := []struct {
		value   string
		pattern string
		want    bool
	}{
		{"Paris", "^P", true},
		{"Paris", "ri", true}, // unanchored search
		{"Rome", "^P", false},
		{"", "^$", true},
	}

	for _, tc := range testCases {
		var got bool
		err := s.db.QueryRow("SELECT ? REGEXP ?", tc.value, tc.pattern).Scan(&got)
		if err != nil {
			t.Fatalf("REGEXP(%q, %q) failed: %v", tc.value, tc.pattern, err)
		}
		if got != tc.want {
			t.Errorf("%q REGEXP %q = %v, want %v", tc.value, tc.pattern, got, tc.want)
		}
	}

	var got bool
	if err := s.db.QueryRow("SELECT 'a' REGEXP '['").Scan(&got); err == nil {
		t.Error("expected error for invalid pattern, got nil")
	}

	// Connections share one bounded cache; invalid patterns are never kept.
	if !patterns.Cached("^P") {
		t.Error("expected ^P to be cached after use")
	}
	if patterns.Cached("[") {
		t.Error("invalid pattern must not be cached")
	}
}
