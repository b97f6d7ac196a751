package store

import (
	"context"
	"testing"

	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/schema"
	"github.com/roach88/relalg/internal/testutil"
)

func TestSaveRelation_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	saveAll(t, s, testutil.People())

	var arity int
	var digest string
	err := s.db.QueryRow(`SELECT arity, digest FROM relalg_relations WHERE name = 'people'`).Scan(&arity, &digest)
	if err != nil {
		t.Fatalf("query metadata: %v", err)
	}
	if arity != 2 {
		t.Errorf("arity = %d, want 2", arity)
	}
	if digest != testutil.People().Digest() {
		t.Errorf("digest = %s, want %s", digest, testutil.People().Digest())
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "rel_people"`).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 2 {
		t.Errorf("row count = %d, want 2", count)
	}
}

func TestSaveRelation_Replaces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	saveAll(t, s, testutil.People())

	// Same name, different header.
	rs := schema.MustRelationSchema("people", schema.Attr("email", ir.DomainString))
	saveAll(t, s, data.MustFromRows(rs, testutil.Row(ir.String("ann@example.com"))))

	got, err := s.LoadRelation(ctx, "people")
	if err != nil {
		t.Fatalf("LoadRelation() failed: %v", err)
	}
	if got.Schema().Arity() != 1 || got.Len() != 1 {
		t.Errorf("got arity %d with %d tuples, want 1 and 1", got.Schema().Arity(), got.Len())
	}
}

func TestSaveRelation_EmptyRelation(t *testing.T) {
	s := createTestStore(t)

	saveAll(t, s, data.NewRelation(testutil.VisitsSchema()))

	got, err := s.LoadRelation(context.Background(), "visits")
	if err != nil {
		t.Fatalf("LoadRelation() failed: %v", err)
	}
	if got.Len() != 0 {
		t.Errorf("Len() = %d, want 0", got.Len())
	}
}

func TestDeleteRelation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	saveAll(t, s, testutil.People())

	if err := s.DeleteRelation(ctx, "people"); err != nil {
		t.Fatalf("DeleteRelation() failed: %v", err)
	}

	_, err := s.LoadRelation(ctx, "people")
	if !ir.IsRelationDoesNotExist(err) {
		t.Errorf("LoadRelation() after delete: got %v, want RelationDoesNotExist", err)
	}

	var attrs int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM relalg_attributes`).Scan(&attrs); err != nil {
		t.Fatalf("count attributes: %v", err)
	}
	if attrs != 0 {
		t.Errorf("attribute rows = %d, want 0 (cascade)", attrs)
	}

	if err := s.DeleteRelation(ctx, "people"); !ir.IsRelationDoesNotExist(err) {
		t.Errorf("second DeleteRelation(): got %v, want RelationDoesNotExist", err)
	}
}
