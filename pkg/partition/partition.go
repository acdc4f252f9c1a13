// Package partition divides an index space into contiguous work ranges,
// one per worker.
package partition

import (
	"fmt"
)

// Partition is the half-open index range [Start, End).
type Partition struct {
	Start int64
	End   int64
}

// Len returns the number of indices in the partition.
func (p Partition) Len() int64 {
	return p.End - p.Start
}

// Empty reports whether the partition holds no indices.
func (p Partition) Empty() bool {
	return p.End <= p.Start
}

// String implements fmt.Stringer.
func (p Partition) String() string {
	return fmt.Sprintf("[%d, %d)", p.Start, p.End)
}

// Split divides [0, n) into workers contiguous partitions. Every partition
// but the last holds floor(n/workers) indices; the last one absorbs the
// remainder. When workers exceeds n the leading partitions are empty.
func Split(n int64, workers int) ([]Partition, error) {
	if workers < 1 {
		return nil, fmt.Errorf("worker count must be >= 1 (got %d)", workers)
	}
	if n < 0 {
		return nil, fmt.Errorf("space size must be >= 0 (got %d)", n)
	}

	w := int64(workers)
	size := n / w

	parts := make([]Partition, workers)
	for i := int64(0); i < w; i++ {
		parts[i] = Partition{Start: i * size, End: (i + 1) * size}
	}
	parts[w-1].End = n

	return parts, nil
}
