package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks chunk responses served from Redis
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracking_cache_hits_total",
			Help: "Total number of tracking response cache hits",
		},
	)

	// CacheMisses tracks chunk lookups that found nothing usable
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracking_cache_misses_total",
			Help: "Total number of tracking response cache misses",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracking_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
