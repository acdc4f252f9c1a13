// Package metrics exposes the Prometheus registry of the scanner.
// All metrics are defined in their respective packages (client, cache,
// store, pipeline) and registered via promauto.
//
// This package serves them over HTTP and documents the catalogue.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Registry is the default Prometheus registry used by the scanner.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects everything registered in Registry.
var Gatherer = prometheus.DefaultGatherer

// Path is where the metrics endpoint is mounted.
const Path = "/metrics"

// Handler returns the Prometheus exposition handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Server exposes Handler on its own listener for the lifetime of a run.
type Server struct {
	srv    *http.Server
	logger zerolog.Logger
}

// NewServer creates a metrics server for addr (e.g. ":9090").
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle(Path, Handler())

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start listens on the configured address and serves in the background.
// It returns the bound address, which differs from the configured one for
// port 0.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return "", err
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Metrics endpoint listening")
	return ln.Addr().String(), nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Metrics Documentation
//
// Query Metrics (pkg/client):
//   - tracking_queries_total{status} (Counter): Chunk queries by status (ok, cached, error)
//   - tracking_query_duration_seconds (Histogram): Remote query duration
//   - tracking_query_errors_total{class} (Counter): Failed queries by class (client, server, network, parse, service)
//
// Cache Metrics (pkg/cache):
//   - tracking_cache_hits_total (Counter): Chunk responses served from Redis
//   - tracking_cache_misses_total (Counter): Cache misses
//   - tracking_cache_errors_total{operation} (Counter): Cache operation errors
//
// Store Metrics (pkg/store):
//   - tracking_store_batches_total{backend, result} (Counter): Batch transactions by result (ok, error)
//   - tracking_store_rows_inserted_total{backend} (Counter): Rows inserted
//   - tracking_store_rows_skipped_total{backend} (Counter): Rows skipped on id conflict
//
// Pipeline Metrics (pkg/pipeline):
//   - tracking_queue_depth (Gauge): Batches waiting for the consumer
//   - tracking_chunks_total{result} (Counter): Chunks processed (ok, failed)
//   - tracking_records_total{outcome} (Counter): Records received (retained, filtered)
//   - tracking_run_duration_seconds (Gauge): Duration of the last completed run
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(tracking_cache_hits_total[5m])) /
//   (sum(rate(tracking_cache_hits_total[5m])) + sum(rate(tracking_cache_misses_total[5m])))
//
//   # Chunk Failure Ratio
//   rate(tracking_chunks_total{result="failed"}[5m]) / rate(tracking_chunks_total[5m])
//
//   # P95 Query Latency
//   histogram_quantile(0.95, rate(tracking_query_duration_seconds_bucket[5m]))
//
//   # Filter Selectivity
//   rate(tracking_records_total{outcome="retained"}[5m]) / rate(tracking_records_total[5m])
