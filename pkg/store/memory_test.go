package store

import (
	"context"
	"errors"
	"testing"

	"github.com/Sternrassler/tracking-scanner/pkg/tracking"
)

func TestMemoryStore_InsertBatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	batch := tracking.Batch{
		{ID: "EW005251410US", Summary: "delivered", Details: "a"},
		{ID: "EW005251411US", Summary: "in transit", Details: "b"},
	}

	n, err := s.InsertBatch(ctx, batch)
	if err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	if n != 2 {
		t.Errorf("inserted = %d, want 2", n)
	}

	count, _ := s.Count(ctx)
	if count != 2 {
		t.Errorf("Count = %d, want 2", count)
	}
}

func TestMemoryStore_IgnoresConflicts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.InsertBatch(ctx, tracking.Batch{
		{ID: "A", Summary: "first", Details: "1"},
	}); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	// One conflicting id plus two new ids
	n, err := s.InsertBatch(ctx, tracking.Batch{
		{ID: "A", Summary: "second", Details: "2"},
		{ID: "B", Summary: "b", Details: ""},
		{ID: "C", Summary: "c", Details: ""},
	})
	if err != nil {
		t.Fatalf("InsertBatch with conflict failed: %v", err)
	}
	if n != 2 {
		t.Errorf("inserted = %d, want 2", n)
	}

	r, ok, _ := s.Get(ctx, "A")
	if !ok {
		t.Fatal("record A missing")
	}
	if r.Summary != "first" {
		t.Errorf("A.Summary = %q, want first write to win", r.Summary)
	}

	count, _ := s.Count(ctx)
	if count != 3 {
		t.Errorf("Count = %d, want 3", count)
	}
}

func TestMemoryStore_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	batch := tracking.Batch{
		{ID: "A", Summary: "a"},
		{ID: "B", Summary: "b"},
	}

	if _, err := s.InsertBatch(ctx, batch); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	n, err := s.InsertBatch(ctx, batch)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if n != 0 {
		t.Errorf("second insert inserted %d rows, want 0", n)
	}
	if len(s.All()) != 2 {
		t.Errorf("All() has %d records, want 2", len(s.All()))
	}
}

func TestMemoryStore_DuplicateWithinBatch(t *testing.T) {
	s := NewMemoryStore()

	n, err := s.InsertBatch(context.Background(), tracking.Batch{
		{ID: "A", Summary: "first"},
		{ID: "A", Summary: "second"},
	})
	if err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	if n != 1 {
		t.Errorf("inserted = %d, want 1", n)
	}

	r, _, _ := s.Get(context.Background(), "A")
	if r.Summary != "first" {
		t.Errorf("Summary = %q, want first", r.Summary)
	}
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryStore()
	_, err := s.InsertBatch(ctx, tracking.Batch{{ID: "A", Summary: "a"}})
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}

	count, _ := s.Count(context.Background())
	if count != 0 {
		t.Errorf("Count = %d, want 0 after failed batch", count)
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()

	_, ok, err := s.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("Get reported a missing record as found")
	}
}
