package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/relalg/internal/data"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// saveAll stores every relation or fails the test.
func saveAll(t *testing.T, s *Store, rels ...data.Relation) {
	t.Helper()
	for _, rel := range rels {
		if err := s.SaveRelation(context.Background(), rel); err != nil {
			t.Fatalf("SaveRelation(%s) failed: %v", rel.Schema().Name(), err)
		}
	}
}
