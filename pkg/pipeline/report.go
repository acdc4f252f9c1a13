package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Report summarizes a finished run.
type Report struct {
	Partitions       int           `json:"partitions"`
	Identifiers      int64         `json:"identifiers"`
	ChunksQueried    int64         `json:"chunks_queried"`
	ChunkFailures    int64         `json:"chunk_failures"`
	RecordsReceived  int64         `json:"records_received"`
	RecordsRetained  int64         `json:"records_retained"`
	BatchesPersisted int64         `json:"batches_persisted"`
	RowsInserted     int64         `json:"rows_inserted"`
	StorageFailures  int64         `json:"storage_failures"`
	Elapsed          time.Duration `json:"elapsed"`
}

// MarshalZerologObject lets a Report be logged with Object().
func (r *Report) MarshalZerologObject(e *zerolog.Event) {
	e.Int("partitions", r.Partitions).
		Int64("identifiers", r.Identifiers).
		Int64("chunks_queried", r.ChunksQueried).
		Int64("chunk_failures", r.ChunkFailures).
		Int64("records_received", r.RecordsReceived).
		Int64("records_retained", r.RecordsRetained).
		Int64("batches_persisted", r.BatchesPersisted).
		Int64("rows_inserted", r.RowsInserted).
		Int64("storage_failures", r.StorageFailures).
		Dur("elapsed", r.Elapsed)
}

// counters are updated concurrently by producers and the consumer.
type counters struct {
	chunksQueried    atomic.Int64
	chunkFailures    atomic.Int64
	recordsReceived  atomic.Int64
	recordsRetained  atomic.Int64
	batchesPersisted atomic.Int64
	rowsInserted     atomic.Int64
	storageFailures  atomic.Int64
}

func (c *counters) report(partitions int, identifiers int64, elapsed time.Duration) *Report {
	return &Report{
		Partitions:       partitions,
		Identifiers:      identifiers,
		ChunksQueried:    c.chunksQueried.Load(),
		ChunkFailures:    c.chunkFailures.Load(),
		RecordsReceived:  c.recordsReceived.Load(),
		RecordsRetained:  c.recordsRetained.Load(),
		BatchesPersisted: c.batchesPersisted.Load(),
		RowsInserted:     c.rowsInserted.Load(),
		StorageFailures:  c.storageFailures.Load(),
		Elapsed:          elapsed,
	}
}
