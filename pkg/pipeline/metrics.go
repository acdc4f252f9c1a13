package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for pipeline runs.
var (
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracking_queue_depth",
		Help: "Batches waiting in the handoff queue",
	})

	chunksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_chunks_total",
		Help: "Chunks processed by producers by result (ok, failed)",
	}, []string{"result"})

	recordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_records_total",
		Help: "Records received from the tracking service by outcome (retained, filtered)",
	}, []string{"outcome"})

	runDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracking_run_duration_seconds",
		Help: "Wall-clock duration of the last completed run",
	})
)
