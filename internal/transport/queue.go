package transport

import (
	"context"
	"sync"
	"time"
)

// fifo is an unbounded multi-producer, single-consumer queue. Pushes
// never block; the consumer polls with a bounded wait so it can observe
// shutdown promptly. Relative push order across producers is preserved
// as one global order.
type fifo[T any] struct {
	mu    sync.Mutex
	items []T
	ready chan struct{}
}

func newFIFO[T any]() *fifo[T] {
	return &fifo[T]{ready: make(chan struct{}, 1)}
}

func (q *fifo[T]) push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// pop returns the next item, waiting up to timeout for one to arrive.
// It returns early with ok=false when ctx is cancelled.
func (q *fifo[T]) pop(ctx context.Context, timeout time.Duration) (T, bool) {
	var zero T

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			v := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return v, true
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
			// An item arrived; retake the lock and claim it.
		case <-timer.C:
			return zero, false
		case <-ctx.Done():
			return zero, false
		}
	}
}

func (q *fifo[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
