// Package tracking holds the records produced by tracking queries.
package tracking

// Record is the structured result for one identifier the tracking service
// recognized.
type Record struct {
	// ID is the requested tracking number.
	ID string `json:"id"`

	// Summary is the service's one-line status summary.
	Summary string `json:"summary"`

	// Details are the detail lines joined by "\n", in received order.
	Details string `json:"details"`
}

// Batch is the ordered list of records produced from one chunk of
// identifiers.
type Batch []Record

// IDs returns the identifiers of the batch, in order.
func (b Batch) IDs() []string {
	ids := make([]string, len(b))
	for i, r := range b {
		ids[i] = r.ID
	}
	return ids
}
