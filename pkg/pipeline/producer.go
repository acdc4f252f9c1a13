package pipeline

import (
	"context"
	"errors"

	"github.com/Sternrassler/tracking-scanner/pkg/client"
	"github.com/Sternrassler/tracking-scanner/pkg/filter"
	"github.com/Sternrassler/tracking-scanner/pkg/partition"
	"github.com/Sternrassler/tracking-scanner/pkg/queue"
	"github.com/Sternrassler/tracking-scanner/pkg/template"
	"github.com/Sternrassler/tracking-scanner/pkg/tracking"
)

// producer owns one partition, its chunk buffer and its Tracker.
type producer struct {
	id        int
	part      partition.Partition
	tmpl      template.Template
	chunkSize int
	tracker   Tracker
	predicate filter.Predicate
	queue     *queue.Queue[tracking.Batch]
	stats     *counters
	orch      *Orchestrator
}

// run walks the partition in increasing index order and submits a chunk
// whenever it fills or the partition is exhausted.
func (p *producer) run(ctx context.Context) {
	logger := p.orch.logger.With().
		Int("worker_id", p.id).
		Stringer("partition", p.part).
		Logger()

	if p.part.Empty() {
		logger.Debug().Msg("Worker has an empty partition")
		return
	}

	chunksProcessed := 0
	chunk := make([]string, 0, p.chunkSize)
	for id := range p.tmpl.Range(p.part.Start, p.part.End) {
		if ctx.Err() != nil {
			logger.Debug().
				Int("chunks_processed", chunksProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		}

		chunk = append(chunk, id)
		if len(chunk) < p.chunkSize {
			continue
		}
		p.process(ctx, chunk)
		chunksProcessed++
		chunk = make([]string, 0, p.chunkSize)
	}

	if len(chunk) > 0 && ctx.Err() == nil {
		p.process(ctx, chunk)
		chunksProcessed++
	}

	logger.Debug().
		Int("chunks_processed", chunksProcessed).
		Msg("Worker completed")
}

// process queries one chunk, filters the result and hands the surviving
// records to the consumer. A failed chunk is logged and dropped.
func (p *producer) process(ctx context.Context, chunk []string) {
	p.stats.chunksQueried.Add(1)

	batch, err := p.tracker.Track(ctx, chunk)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.stats.chunkFailures.Add(1)
		chunksTotal.WithLabelValues("failed").Inc()

		event := p.orch.logger.Warn().
			Err(err).
			Int("worker_id", p.id).
			Str("first_id", chunk[0]).
			Int("chunk_size", len(chunk))
		var remoteErr *client.RemoteResponseError
		if errors.As(err, &remoteErr) {
			event = event.Str("error_class", string(remoteErr.ErrorClass))
		}
		event.Msg("Chunk query failed, continuing with next chunk")
		return
	}
	chunksTotal.WithLabelValues("ok").Inc()

	kept := filter.Apply(p.predicate, batch)

	p.stats.recordsReceived.Add(int64(len(batch)))
	p.stats.recordsRetained.Add(int64(len(kept)))
	recordsTotal.WithLabelValues("retained").Add(float64(len(kept)))
	recordsTotal.WithLabelValues("filtered").Add(float64(len(batch) - len(kept)))

	if len(kept) == 0 {
		return
	}

	if err := p.queue.Push(kept); err != nil {
		// Only possible if the queue was stopped early, which Run never does.
		p.orch.logger.Error().
			Err(err).
			Int("worker_id", p.id).
			Int("batch_size", len(kept)).
			Msg("Dropping batch")
		return
	}
	queueDepth.Set(float64(p.queue.Len()))
}
