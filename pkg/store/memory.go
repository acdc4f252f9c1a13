package store

import (
	"context"
	"sync"

	"github.com/Sternrassler/tracking-scanner/pkg/tracking"
)

// MemoryStore is an in-process Store with the same semantics as the
// persistent backends. Its content is lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]tracking.Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]tracking.Record),
	}
}

// EnsureSchema implements Store.
func (s *MemoryStore) EnsureSchema(context.Context) error {
	return nil
}

// InsertBatch implements Store.
func (s *MemoryStore) InsertBatch(ctx context.Context, batch tracking.Batch) (int, error) {
	if err := ctx.Err(); err != nil {
		observeBatch(BackendMemory, len(batch), 0, err)
		return 0, &StorageError{Backend: BackendMemory, Op: "insert batch", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, r := range batch {
		if _, exists := s.records[r.ID]; exists {
			continue
		}
		s.records[r.ID] = r
		inserted++
	}

	observeBatch(BackendMemory, len(batch), inserted, nil)
	return inserted, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (tracking.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	return r, ok, nil
}

// Count implements Store.
func (s *MemoryStore) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.records)), nil
}

// All returns a snapshot of every stored record.
func (s *MemoryStore) All() []tracking.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]tracking.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out
}

// Close implements Store. The records stay readable.
func (s *MemoryStore) Close() error {
	return nil
}
