// Package queue holds batch jobs between submission and the worker pool.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/chartmeta/internal/domain/model"
	"github.com/okian/chartmeta/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. It fails with ErrQueueFull or ErrQueueClosed
	// instead of blocking.
	Enqueue(ctx context.Context, job model.Job) error

	// Dequeue returns a channel receiving jobs until the queue is closed
	// and drained, or ctx is done.
	Dequeue(ctx context.Context) <-chan model.Job

	Len() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan model.Job
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan model.Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, job model.Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return ErrQueueClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		return fmt.Errorf("enqueue %s: %w", job.Key(), err)
	}

	select {
	case q.jobs <- job:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.jobs))
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return fmt.Errorf("enqueue %s: %w", job.Key(), ErrQueueFull)
	}
}

func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan model.Job {
	out := make(chan model.Job)
	go func() {
		defer close(out)
		for {
			select {
			case job, ok := <-q.jobs:
				if !ok {
					return
				}
				select {
				case out <- job:
					metrics.RecordQueueDequeue()
					metrics.UpdateQueueSize(len(q.jobs))
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the number of pending jobs.
func (q *InMemoryQueue) Len() int {
	return len(q.jobs)
}

// Close stops accepting jobs. Pending jobs remain available to Dequeue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
