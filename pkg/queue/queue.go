// Package queue provides the unbounded multi-producer, single-consumer
// handoff queue between tracking producers and the store writer.
//
// Producers Push without ever blocking. The consumer Pops until it reaches
// the stop sentinel, which the owner enqueues exactly once with Stop after
// every producer has returned:
//
//	q := queue.New[tracking.Batch]()
//	// producers: q.Push(batch)
//	// owner, after joining producers: q.Stop()
//	for {
//		batch, ok := q.Pop()
//		if !ok {
//			break
//		}
//		...
//	}
package queue

import (
	"errors"
	"sync"
)

// ErrStopped is returned by Push and Stop once the sentinel is enqueued.
var ErrStopped = errors.New("queue stopped")

type item[T any] struct {
	value T
	stop  bool
}

// Queue is an unbounded FIFO terminated by a stop sentinel.
type Queue[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []item[T]
	stopped bool
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues v. It never blocks on queue depth.
func (q *Queue[T]) Push(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return ErrStopped
	}
	q.items = append(q.items, item[T]{value: v})
	q.cond.Signal()
	return nil
}

// Stop enqueues the sentinel. Items pushed before Stop are still delivered.
func (q *Queue[T]) Stop() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return ErrStopped
	}
	q.stopped = true
	q.items = append(q.items, item[T]{stop: true})
	q.cond.Broadcast()
	return nil
}

// Pop blocks until an item is available. It returns false once the
// sentinel is reached; the sentinel stays at the head so later calls return
// false as well.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		q.cond.Wait()
	}

	head := q.items[0]
	if head.stop {
		var zero T
		return zero, false
	}

	q.items[0] = item[T]{}
	q.items = q.items[1:]
	return head.value, true
}

// Len returns the number of pending items, excluding the sentinel.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	if q.stopped {
		n--
	}
	return n
}
