package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/chartmeta/internal/adapters/chartfs"
	"github.com/okian/chartmeta/internal/domain/chart"
	"github.com/okian/chartmeta/internal/domain/model"
	"github.com/okian/chartmeta/internal/domain/scoring"
	"github.com/okian/chartmeta/pkg/logger"
	"github.com/okian/chartmeta/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Loader opens the chart a job refers to.
type Loader interface {
	Open(ctx context.Context, song, diff string) (io.ReadCloser, error)
}

// Scorer runs the chart pipeline.
type Scorer interface {
	Score(ctx context.Context, in scoring.Input) (scoring.Result, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Job
}

// Worker processes jobs until its queue closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue drains.
	Run(ctx context.Context)
	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	loader    Loader
	scorer    Scorer
	committer Committer
	name      string
	active    *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, loader Loader, scorer Scorer, committer Committer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		loader:    loader,
		scorer:    scorer,
		committer: committer,
		name:      "worker",
		active:    new(atomic.Int64),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, job model.Job) {
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	start := time.Now()
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	log := logger.ForChart(w.logger, logger.Chart{
		Job: job.ID, Song: job.Song, Diff: job.Diff, Level: job.Level, Fever: job.Fever,
	})
	res, err := w.score(ctx, job)
	out := Outcome{Job: job, Result: res, Err: err}
	if err != nil {
		kind := ErrorKind(err)
		metrics.RecordWorkerError()
		metrics.RecordChartError(kind)
		metrics.RecordErrorByComponent("worker", kind)
		log.Error(ctx, "job failed", logger.String("kind", kind), logger.Error(err))
	} else {
		log.Info(ctx, "job scored",
			logger.Float64("base", res.Row.Meta.Base),
			logger.Int64("notes", res.Stats.Notes),
			logger.Rat("weight", res.Stats.TotalWeight))
	}

	if err := w.committer.Commit(ctx, out); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "commit")
		log.Error(ctx, "commit failed", logger.Error(err))
	}
}

func (w *InMemoryWorker) score(ctx context.Context, job model.Job) (scoring.Result, error) {
	rc, err := w.loader.Open(ctx, job.Song, job.Diff)
	if err != nil {
		return scoring.Result{}, err
	}
	defer rc.Close()

	start := time.Now()
	res, err := w.scorer.Score(ctx, scoring.Input{
		Name:  job.Song,
		Diff:  job.Diff,
		Chart: rc,
		Level: job.Level,
		Fever: job.Fever,
	})
	metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		return scoring.Result{}, err
	}

	metrics.RecordChartScored()
	metrics.RecordChartNotes(res.Stats.Notes)
	metrics.RecordLinesSkipped(res.Skipped)
	return res, nil
}

// ErrorKind names the failure class of err for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, chartfs.ErrChartNotFound):
		return "chart_not_found"
	case errors.Is(err, chartfs.ErrInvalidName):
		return "invalid_name"
	case errors.Is(err, chartfs.ErrChartTooLarge):
		return "chart_too_large"
	case errors.Is(err, chart.ErrMissingTempoSlot):
		return "missing_tempo_slot"
	case errors.Is(err, chart.ErrMalformedList):
		return "malformed_list"
	case errors.Is(err, chart.ErrRead):
		return "read_error"
	case errors.Is(err, scoring.ErrNoNotes):
		return "no_notes"
	case errors.Is(err, scoring.ErrNoTempo):
		return "no_tempo"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, scoring.ErrCanceled):
		return "canceled"
	default:
		return "internal"
	}
}

// Pool manages multiple workers sharing one queue and committer.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a worker pool. A count below one uses one worker per CPU.
func NewPool(count int, queue Queue, loader Loader, scorer Scorer, committer Committer, opts ...Option) *Pool {
	if count < 1 {
		count = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, count),
		queue:   queue,
	}
	active := new(atomic.Int64)
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(queue, loader, scorer, committer, wopts...)
		p.workers[i].active = active
	}
	p.logger = p.workers[0].logger

	metrics.UpdateWorkerCount(count)
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Wait blocks until every worker has returned, which happens once the
// queue is closed and drained, or ctx is done.
func (p *Pool) Wait(ctx context.Context) error {
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Shutdown closes the queue when it supports it and stops all workers.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var errs []error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
