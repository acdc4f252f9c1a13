package pipeline

import (
	"context"

	"github.com/Sternrassler/tracking-scanner/pkg/queue"
	"github.com/Sternrassler/tracking-scanner/pkg/tracking"
)

// consume writes batches until the queue's sentinel. With
// AbortOnStorageError the first storage failure cancels the producers and
// every later batch is discarded; that failure is returned.
func (o *Orchestrator) consume(ctx context.Context, q *queue.Queue[tracking.Batch], cancelProducers context.CancelFunc, stats *counters) error {
	var abortErr error
	discarded := 0

	for {
		batch, ok := q.Pop()
		if !ok {
			break
		}
		queueDepth.Set(float64(q.Len()))

		if abortErr != nil {
			discarded++
			continue
		}

		inserted, err := o.store.InsertBatch(ctx, batch)
		if err != nil {
			stats.storageFailures.Add(1)
			o.logger.Error().
				Err(err).
				Int("batch_size", len(batch)).
				Str("first_id", batch[0].ID).
				Msg("Batch rolled back")

			if o.config.AbortOnStorageError {
				abortErr = err
				cancelProducers()
				o.logger.Warn().Msg("Aborting run after storage failure")
			}
			continue
		}

		stats.batchesPersisted.Add(1)
		stats.rowsInserted.Add(int64(inserted))
		o.logger.Debug().
			Int("batch_size", len(batch)).
			Int("inserted", inserted).
			Msg("Batch persisted")
	}

	if discarded > 0 {
		o.logger.Warn().
			Int("discarded_batches", discarded).
			Msg("Discarded batches after abort")
	}
	return abortErr
}
