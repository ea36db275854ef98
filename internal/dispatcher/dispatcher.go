// Package dispatcher manages the fixed worker pool over the command queue.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/articles-api/internal/article"
	"github.com/JakeFAU/articles-api/internal/worker"
)

// Queue accepts jobs for the worker pool.
type Queue interface {
	Enqueue(ctx context.Context, job worker.Job) error
}

// Dispatcher fans out queued commands to a pool of workers.
type Dispatcher struct {
	queue   Queue
	workers []*worker.Worker
}

// New creates a Dispatcher.
func New(queue Queue, workers []*worker.Worker) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		workers: workers,
	}
}

// Size reports the number of workers in the pool.
func (d *Dispatcher) Size() int {
	return len(d.workers)
}

// Run starts all workers and blocks until the context finishes.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
}

// Submit enqueues cmd and waits for its result. When ctx ends first the
// result is discarded; the worker still runs the command to completion.
func (d *Dispatcher) Submit(ctx context.Context, cmd article.Command) (article.Result, error) {
	reply := make(chan article.Result, 1)
	job := worker.Job{Command: cmd, Reply: reply, Enqueued: time.Now()}
	if err := d.Enqueue(ctx, job); err != nil {
		return article.Result{}, err
	}
	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return article.Result{}, fmt.Errorf("request canceled: %w", ctx.Err())
	}
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, job worker.Job) error {
	if err := d.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}
