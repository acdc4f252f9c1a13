package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/tracking-scanner/pkg/filter"
	"github.com/Sternrassler/tracking-scanner/pkg/logging"
	"github.com/Sternrassler/tracking-scanner/pkg/partition"
	"github.com/Sternrassler/tracking-scanner/pkg/queue"
	"github.com/Sternrassler/tracking-scanner/pkg/store"
	"github.com/Sternrassler/tracking-scanner/pkg/template"
	"github.com/Sternrassler/tracking-scanner/pkg/tracking"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidConfig is returned by New for unusable settings.
	ErrInvalidConfig = errors.New("invalid pipeline configuration")

	// ErrAlreadyRun is returned when Run is called more than once.
	ErrAlreadyRun = errors.New("orchestrator already run")
)

// Tracker turns a chunk of identifiers into records. *client.Client
// implements it.
type Tracker interface {
	Track(ctx context.Context, ids []string) (tracking.Batch, error)
}

// TrackerFactory creates the Tracker of one producer. Trackers that
// implement io.Closer are closed when their producer finishes.
type TrackerFactory func() (Tracker, error)

// Config holds run settings.
type Config struct {
	// Template is the identifier template, e.g. "EW00525141.US".
	Template string

	// Workers is the number of producers and partitions.
	Workers int

	// ChunkSize is the maximum number of identifiers per query.
	ChunkSize int

	// AbortOnStorageError stops the run at the first failed batch instead
	// of continuing with the next one.
	AbortOnStorageError bool
}

// DefaultConfig returns defaults for template.
func DefaultConfig(tmpl string) Config {
	return Config{
		Template:  tmpl,
		Workers:   4,
		ChunkSize: 10,
	}
}

// Orchestrator runs one scan. It owns the store and closes it when the run
// ends.
type Orchestrator struct {
	config    Config
	factory   TrackerFactory
	predicate filter.Predicate
	store     store.Store
	started   atomic.Bool
	state     atomic.Int32
	logger    zerolog.Logger
}

// New creates an orchestrator. A nil predicate accepts every record.
func New(cfg Config, factory TrackerFactory, predicate filter.Predicate, st store.Store) (*Orchestrator, error) {
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("%w: workers must be >= 1 (got %d)", ErrInvalidConfig, cfg.Workers)
	}
	if cfg.ChunkSize < 1 {
		return nil, fmt.Errorf("%w: chunk_size must be >= 1 (got %d)", ErrInvalidConfig, cfg.ChunkSize)
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: tracker factory is required", ErrInvalidConfig)
	}
	if st == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if predicate == nil {
		predicate = filter.AcceptAll
	}

	return &Orchestrator{
		config:    cfg,
		factory:   factory,
		predicate: predicate,
		store:     st,
		logger:    logging.NewLogger("pipeline"),
	}, nil
}

// State returns the current lifecycle phase.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
	o.logger.Debug().Stringer("state", s).Msg("State changed")
}

// Run executes the scan and always closes the store before returning.
//
// A malformed template fails with a *template.ConfigurationError before
// any partitioning or query. Failed chunks and, unless AbortOnStorageError
// is set, failed batches are counted in the report and do not fail the run.
// Cancelling ctx stops the queries; batches fetched before that are still
// persisted and Run returns ctx.Err() with the report.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	if !o.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRun
	}
	start := time.Now()
	stats := &counters{}

	producers, q, err := o.init(ctx, stats)
	if err != nil {
		o.finish(nil)
		return nil, err
	}

	identifiers := int64(0)
	for _, p := range producers {
		identifiers += p.part.Len()
	}

	o.logger.Info().
		Str("template", o.config.Template).
		Int64("identifiers", identifiers).
		Int("workers", len(producers)).
		Int("chunk_size", o.config.ChunkSize).
		Msg("Starting scan")

	// RUNNING
	o.setState(StateRunning)
	prodCtx, cancelProducers := context.WithCancel(ctx)
	defer cancelProducers()

	// Cancelling ctx stops the producers only; batches already queued are
	// still written before the sentinel.
	consumerCtx := context.WithoutCancel(ctx)
	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- o.consume(consumerCtx, q, cancelProducers, stats)
	}()

	var wg sync.WaitGroup
	for _, p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.run(prodCtx)
		}()
	}

	// DRAINING: the sentinel goes in only after every producer returned.
	wg.Wait()
	o.setState(StateDraining)
	if err := q.Stop(); err != nil {
		o.logger.Error().Err(err).Msg("Queue stopped twice")
	}
	runErr := <-consumerDone

	// DONE
	o.finish(producers)

	elapsed := time.Since(start)
	runDuration.Set(elapsed.Seconds())
	report := stats.report(len(producers), identifiers, elapsed)

	o.logger.Info().
		Object("report", report).
		Msg("Scan complete")

	if runErr == nil {
		runErr = ctx.Err()
	}
	return report, runErr
}

// init performs the INIT phase: template, partitions, trackers, schema and
// queue.
func (o *Orchestrator) init(ctx context.Context, stats *counters) ([]*producer, *queue.Queue[tracking.Batch], error) {
	tmpl, err := template.Parse(o.config.Template)
	if err != nil {
		o.logger.Error().Err(err).Msg("Invalid identifier template")
		return nil, nil, err
	}

	parts, err := partition.Split(tmpl.Size(), o.config.Workers)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	q := queue.New[tracking.Batch]()

	producers := make([]*producer, 0, len(parts))
	for i, part := range parts {
		tr, err := o.factory()
		if err != nil {
			closeTrackers(producers)
			return nil, nil, fmt.Errorf("create tracker for worker %d: %w", i, err)
		}
		producers = append(producers, &producer{
			id:        i,
			part:      part,
			tmpl:      tmpl,
			chunkSize: o.config.ChunkSize,
			tracker:   tr,
			predicate: o.predicate,
			queue:     q,
			stats:     stats,
			orch:      o,
		})
	}

	if err := o.store.EnsureSchema(ctx); err != nil {
		closeTrackers(producers)
		return nil, nil, err
	}

	return producers, q, nil
}

// finish closes trackers and the store and enters DONE.
func (o *Orchestrator) finish(producers []*producer) {
	closeTrackers(producers)
	if err := o.store.Close(); err != nil {
		o.logger.Warn().Err(err).Msg("Failed to close store")
	}
	o.setState(StateDone)
}

func closeTrackers(producers []*producer) {
	for _, p := range producers {
		if c, ok := p.tracker.(io.Closer); ok {
			_ = c.Close()
		}
	}
}
