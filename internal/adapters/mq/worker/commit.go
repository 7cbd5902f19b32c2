package worker

import (
	"context"
	"sync"

	"github.com/okian/chartmeta/internal/domain/model"
	"github.com/okian/chartmeta/internal/domain/scoring"
	"github.com/okian/chartmeta/internal/domain/types"
)

// Outcome is the result of one job. Err is set when the job aborted; the
// Result is then empty.
type Outcome struct {
	Job    model.Job
	Result scoring.Result
	Err    error
}

// Sink receives rows.
type Sink interface {
	Append(ctx context.Context, rows ...types.Row) error
}

// Committer receives every outcome exactly once.
type Committer interface {
	Commit(ctx context.Context, o Outcome) error
}

// CommitFunc adapts a function to Committer.
type CommitFunc func(ctx context.Context, o Outcome) error

func (f CommitFunc) Commit(ctx context.Context, o Outcome) error { return f(ctx, o) }

// SinkCommitter appends each successful row as soon as it arrives.
type SinkCommitter struct {
	Sink Sink
}

func (c SinkCommitter) Commit(ctx context.Context, o Outcome) error {
	if o.Err != nil {
		return nil
	}
	return c.Sink.Append(ctx, o.Result.Row)
}

// OrderedCommitter appends rows in Job.Seq order starting at zero, holding
// back outcomes that finish early. Failed jobs release their slot without
// writing.
type OrderedCommitter struct {
	sink Sink

	mu      sync.Mutex
	next    int
	pending map[int]Outcome
}

// NewOrderedCommitter writes to sink in sequence order.
func NewOrderedCommitter(sink Sink) *OrderedCommitter {
	return &OrderedCommitter{sink: sink, pending: make(map[int]Outcome)}
}

func (c *OrderedCommitter) Commit(ctx context.Context, o Outcome) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending[o.Job.Seq] = o
	var rows []types.Row
	for {
		ready, ok := c.pending[c.next]
		if !ok {
			break
		}
		delete(c.pending, c.next)
		c.next++
		if ready.Err == nil {
			rows = append(rows, ready.Result.Row)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return c.sink.Append(ctx, rows...)
}

// Pending returns how many outcomes are waiting for an earlier sequence.
func (c *OrderedCommitter) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
