// Package memory provides the bounded in-process command queue.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/articles-api/internal/worker"
)

// ErrClosed is returned by Enqueue and Dequeue once the queue has been closed.
var ErrClosed = worker.ErrQueueClosed

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch        chan worker.Job
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		ch:   make(chan worker.Job, capacity),
		done: make(chan struct{}),
	}
}

// Enqueue pushes a job into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, job worker.Job) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case <-q.done:
		return ErrClosed
	case q.ch <- job:
		return nil
	}
}

// Dequeue pops the next job, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (worker.Job, error) {
	select {
	case <-ctx.Done():
		return worker.Job{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case <-q.done:
		return worker.Job{}, ErrClosed
	case job := <-q.ch:
		return job, nil
	}
}

// Len reports the number of jobs waiting.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops the queue. Jobs still buffered are abandoned; their submitters
// observe their own context ending.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}
