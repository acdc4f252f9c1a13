// Package store persists tracking records with ignore-on-conflict
// semantics: the first write of an identifier wins and later writes of the
// same identifier are skipped without error.
//
// Every backend applies a batch as one all-or-nothing unit. A batch fails
// only on a storage-layer problem, never on a key conflict.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/tracking-scanner/pkg/tracking"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for store writes.
var (
	storeBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_store_batches_total",
		Help: "Total batches written by backend and result",
	}, []string{"backend", "result"})

	storeRowsInsertedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_store_rows_inserted_total",
		Help: "Total rows inserted by backend",
	}, []string{"backend"})

	storeRowsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_store_rows_skipped_total",
		Help: "Total rows skipped because the id already existed, by backend",
	}, []string{"backend"})
)

// Backend names.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// ErrStorage is matched by every StorageError.
var ErrStorage = errors.New("storage error")

// StorageError reports a failed store operation. A failed InsertBatch has
// been rolled back entirely.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("%s store: %s: %v", e.Backend, e.Op, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrStorage) match.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// Store is a keyed table of tracking records.
type Store interface {
	// EnsureSchema prepares the backend; called once before any write.
	EnsureSchema(ctx context.Context) error

	// InsertBatch writes batch in one transaction, skipping ids that
	// already exist. It returns the number of rows actually inserted.
	InsertBatch(ctx context.Context, batch tracking.Batch) (int, error)

	// Get returns the stored record for id.
	Get(ctx context.Context, id string) (tracking.Record, bool, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)

	// Close releases resources owned by the store.
	Close() error
}

// observeBatch records the outcome of one InsertBatch call.
func observeBatch(backend string, total, inserted int, err error) {
	if err != nil {
		storeBatchesTotal.WithLabelValues(backend, "error").Inc()
		return
	}
	storeBatchesTotal.WithLabelValues(backend, "ok").Inc()
	storeRowsInsertedTotal.WithLabelValues(backend).Add(float64(inserted))
	storeRowsSkippedTotal.WithLabelValues(backend).Add(float64(total - inserted))
}
