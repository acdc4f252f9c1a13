// Package filter decides which tracking records are worth persisting.
package filter

import (
	"strings"

	"github.com/Sternrassler/tracking-scanner/pkg/tracking"
)

// Predicate decides whether a record is retained.
type Predicate interface {
	Decide(r tracking.Record) bool
}

// Func adapts an ordinary function to Predicate.
type Func func(r tracking.Record) bool

// Decide implements Predicate.
func (f Func) Decide(r tracking.Record) bool {
	return f(r)
}

// AcceptAll retains every record.
var AcceptAll Predicate = Func(func(tracking.Record) bool { return true })

// DetailsFilter retains records whose details contain every Include token
// and none of the Exclude tokens. Matching is case-sensitive.
type DetailsFilter struct {
	Include []string
	Exclude []string
}

// Decide implements Predicate.
func (f DetailsFilter) Decide(r tracking.Record) bool {
	for _, tok := range f.Include {
		if !strings.Contains(r.Details, tok) {
			return false
		}
	}
	for _, tok := range f.Exclude {
		if strings.Contains(r.Details, tok) {
			return false
		}
	}
	return true
}

// All retains a record only if every predicate does. No predicates retains
// everything.
func All(preds ...Predicate) Predicate {
	return Func(func(r tracking.Record) bool {
		for _, p := range preds {
			if !p.Decide(r) {
				return false
			}
		}
		return true
	})
}

// Any retains a record if at least one predicate does.
func Any(preds ...Predicate) Predicate {
	return Func(func(r tracking.Record) bool {
		for _, p := range preds {
			if p.Decide(r) {
				return true
			}
		}
		return false
	})
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return Func(func(r tracking.Record) bool {
		return !p.Decide(r)
	})
}

// Apply returns the records of b that p retains, preserving order.
func Apply(p Predicate, b tracking.Batch) tracking.Batch {
	kept := make(tracking.Batch, 0, len(b))
	for _, r := range b {
		if p.Decide(r) {
			kept = append(kept, r)
		}
	}
	return kept
}
