package cache

import (
	"slices"
	"time"
)

// Entry is a cached tracking service response.
type Entry struct {
	// IDs are the identifiers the response answers, in request order.
	IDs []string `json:"ids"`

	// Data is the raw response body.
	Data []byte `json:"data"`

	// CachedAt is when the response was stored.
	CachedAt time.Time `json:"cached_at"`
}

// Matches reports whether the entry answers exactly the identifiers of key.
func (e *Entry) Matches(key Key) bool {
	return slices.Equal(e.IDs, key.IDs)
}

// Age returns how long ago the entry was cached.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CachedAt)
}
