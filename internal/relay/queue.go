// Package relay implements the bounded queue that hands frames from the capture
// goroutine to the transformer.
package relay

import (
	"fmt"
	"sync"
	"sync/atomic"

	"firestige.xyz/ttlmangle/internal/core"
)

// Queue is a bounded FIFO with exactly one producer and one consumer.
//
// The producer calls Enqueue and finally CloseProducer; the consumer calls Dequeue
// and may call Shutdown to tear its side down. Ownership of an item passes to the
// consumer when Enqueue returns nil.
type Queue[T any] struct {
	items chan T
	done  chan struct{} // closed by Shutdown

	producerClosed atomic.Bool
	closeOnce      sync.Once
	shutdownOnce   sync.Once
}

// New creates a queue holding at most capacity items.
func New[T any](capacity int) (*Queue[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: relay capacity must be positive, got %d", core.ErrConfigInvalid, capacity)
	}
	return &Queue[T]{
		items: make(chan T, capacity),
		done:  make(chan struct{}),
	}, nil
}

// Enqueue appends item, suspending while the queue is full. It returns
// core.ErrQueueClosed, dropping item, once the consumer has shut down or the
// producer side has been closed.
func (q *Queue[T]) Enqueue(item T) error {
	if q.producerClosed.Load() {
		return core.ErrQueueClosed
	}

	// A shut-down consumer wins over free capacity.
	select {
	case <-q.done:
		return core.ErrQueueClosed
	default:
	}

	select {
	case q.items <- item:
		return nil
	case <-q.done:
		return core.ErrQueueClosed
	}
}

// Dequeue removes the oldest item, suspending while the queue is empty. ok is false
// once the producer side is closed and every buffered item has been delivered, or
// once the consumer itself has shut down.
func (q *Queue[T]) Dequeue() (item T, ok bool) {
	select {
	case <-q.done:
		return item, false
	default:
	}

	select {
	case item, ok = <-q.items:
		return item, ok
	case <-q.done:
		return item, false
	}
}

// CloseProducer marks the end of the stream. Buffered items remain available to
// Dequeue. Only the producer may call it.
func (q *Queue[T]) CloseProducer() {
	q.closeOnce.Do(func() {
		q.producerClosed.Store(true)
		close(q.items)
	})
}

// Shutdown tears the consumer side down: blocked and future Enqueue calls fail.
func (q *Queue[T]) Shutdown() {
	q.shutdownOnce.Do(func() {
		close(q.done)
	})
}

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return cap(q.items)
}
