// Package cache stores raw tracking service responses in Redis, keyed by
// the exact chunk of identifiers that produced them.
//
// A rerun over an identifier range that was scanned recently is answered
// from Redis instead of the tracking service. Only responses that parsed
// cleanly are cached, so a cache hit never hides a remote failure.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{IDs: []string{"EW005251410US", "EW005251411US"}}
//	data, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// query the tracking service, then:
//		_ = manager.Set(ctx, key, body, 24*time.Hour)
//	}
//
// # Metrics
//
//   - tracking_cache_hits_total - Cache hits
//   - tracking_cache_misses_total - Cache misses
//   - tracking_cache_errors_total{operation} - Cache operation errors
package cache
