// Package service wires the chart pipeline, the job queue, the worker pool
// and the result sinks, and implements the dependencies of the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/chartmeta/internal/adapters/chartfs"
	"github.com/okian/chartmeta/internal/adapters/http/api"
	"github.com/okian/chartmeta/internal/adapters/mq/queue"
	"github.com/okian/chartmeta/internal/adapters/mq/worker"
	"github.com/okian/chartmeta/internal/adapters/repository"
	"github.com/okian/chartmeta/internal/domain/dedupe"
	"github.com/okian/chartmeta/internal/domain/model"
	"github.com/okian/chartmeta/internal/domain/scoring"
	"github.com/okian/chartmeta/internal/domain/types"
	"github.com/okian/chartmeta/pkg/logger"
	"github.com/okian/chartmeta/pkg/metrics"
)

// Service implements api.Dependencies and the batch command.
type Service struct {
	mu sync.RWMutex

	loader  *chartfs.DirLoader
	scorer  *scoring.ChartScorer
	sink    *repository.Multi
	lister  repository.Lister
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	pool    *worker.Pool

	chartDir      string
	outputCSV     string
	sqlitePath    string
	workerCount   int
	queueSize     int
	dedupeSize    int
	maxChartBytes int64

	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

var _ api.Dependencies = (*Service)(nil)

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		chartDir:      "musicscore",
		outputCSV:     "data.csv",
		workerCount:   runtime.NumCPU(),
		queueSize:     1024,
		dedupeSize:    4096,
		maxChartBytes: 8 << 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the sinks and starts the worker pool serving SubmitSong.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting chartmeta service...")

	sinks, err := s.openSinks(ctx)
	if err != nil {
		return err
	}
	s.sink = repository.NewMulti(sinks...)
	s.lister, _ = s.sink.Lister()

	s.loader = chartfs.NewDirLoader(s.chartDir, chartfs.WithMaxBytes(s.maxChartBytes))
	s.scorer = scoring.NewChartScorer(scoring.WithDiscardHook(s.discarded))
	s.deduper = dedupe.NewWindowDeduper(dedupe.WithWindow(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))

	// The pool outlives the ctx passed to Start; Stop cancels it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool = worker.NewPool(s.workerCount, s.queue, s.loader, s.scorer, worker.SinkCommitter{Sink: s.sink})
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "chartmeta service started",
		logger.String("chart_dir", s.chartDir),
		logger.String("sinks", s.sink.Name()),
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
	)
	return nil
}

func (s *Service) openSinks(ctx context.Context) ([]repository.Sink, error) {
	csv, err := repository.NewCSVStore(s.outputCSV)
	if err != nil {
		return nil, fmt.Errorf("open csv sink: %w", err)
	}
	sinks := []repository.Sink{csv}
	if s.sqlitePath != "" {
		db, err := repository.NewSQLiteStore(ctx, s.sqlitePath)
		if err != nil {
			_ = csv.Close()
			return nil, fmt.Errorf("open sqlite sink: %w", err)
		}
		sinks = append(sinks, db)
	}
	return append(sinks, repository.NewMemoryStore(ctx)), nil
}

// Stop closes the queue, stops the workers and then closes the sinks.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping chartmeta service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.cancel()
	if err := s.sink.Close(); err != nil {
		errs = append(errs, err)
	}

	s.started = false
	s.logger.Info(ctx, "chartmeta service stopped")
	return errors.Join(errs...)
}

func (s *Service) discarded(raw model.RawEvent, reason string) {
	metrics.RecordEventDiscarded()
	s.logger.Debug(context.Background(), "discarded raw event",
		logger.String("event", raw.String()),
		logger.String("reason", reason))
}

// Jobs expands levels into the jobs of one song batch: every difficulty
// with fever off, then every difficulty again with fever on, in
// chartfs.Difficulties order. Seq numbers the jobs from zero.
func Jobs(batchID, song string, levels map[string]int) []model.Job {
	jobs := make([]model.Job, 0, 2*len(levels))
	for _, fever := range []bool{false, true} {
		for _, diff := range chartfs.Difficulties {
			level, ok := levels[diff]
			if !ok {
				continue
			}
			seq := len(jobs)
			jobs = append(jobs, model.Job{
				ID:    batchID + "-" + strconv.Itoa(seq),
				Song:  song,
				Diff:  diff,
				Level: level,
				Fever: fever,
				Seq:   seq,
			})
		}
	}
	return jobs
}

// checkSong rejects song names the loader would refuse.
func (s *Service) checkSong(song string) error {
	_, err := s.loader.Path(song, chartfs.Difficulties[0])
	return err
}

// SubmitSong enqueues the jobs of one song batch for the worker pool. Jobs
// whose key is still in the dedupe window are skipped.
func (s *Service) SubmitSong(ctx context.Context, song string, levels map[string]int) (api.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return api.Submission{}, ErrNotStarted
	}
	if len(levels) == 0 {
		return api.Submission{}, ErrNoLevels
	}
	if err := s.checkSong(song); err != nil {
		return api.Submission{}, err
	}

	sub := api.Submission{BatchID: uuid.NewString()}
	for _, job := range Jobs(sub.BatchID, song, levels) {
		key := job.Key()
		if s.deduper.SeenAndRecord(ctx, key) {
			sub.Duplicates++
			metrics.RecordJobDuplicate()
			logger.ForChart(s.logger, logger.Chart{
				Song: job.Song, Diff: job.Diff, Level: job.Level, Fever: job.Fever,
			}).Debug(ctx, "duplicate job skipped")
			continue
		}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			s.deduper.Forget(ctx, key)
			return sub, fmt.Errorf("enqueue %s: %w", key, err)
		}
		sub.Accepted++
	}

	logger.ForBatch(s.logger, sub.BatchID, song).Info(ctx, "song submitted",
		logger.Int("accepted", sub.Accepted),
		logger.Int("duplicates", sub.Duplicates))
	return sub, nil
}

// BatchReport summarizes a RunBatch call.
type BatchReport struct {
	ID      string
	Written int
	Failed  []worker.Outcome
}

// RunBatch scores every job of one song batch on a dedicated pool and
// appends the rows in job order, waiting for all of them. A failing job
// is reported and skipped; the others are still written.
func (s *Service) RunBatch(ctx context.Context, song string, levels map[string]int) (BatchReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return BatchReport{}, ErrNotStarted
	}
	if len(levels) == 0 {
		return BatchReport{}, ErrNoLevels
	}
	if err := s.checkSong(song); err != nil {
		return BatchReport{}, err
	}

	report := BatchReport{ID: uuid.NewString()}
	jobs := Jobs(report.ID, song, levels)

	q := queue.NewInMemoryQueue(queue.WithCapacity(len(jobs)))
	for _, job := range jobs {
		if err := q.Enqueue(ctx, job); err != nil {
			return report, fmt.Errorf("enqueue %s: %w", job.Key(), err)
		}
	}
	_ = q.Close()

	var mu sync.Mutex
	ordered := worker.NewOrderedCommitter(s.sink)
	commit := worker.CommitFunc(func(ctx context.Context, o worker.Outcome) error {
		mu.Lock()
		if o.Err != nil {
			report.Failed = append(report.Failed, o)
		} else {
			report.Written++
		}
		mu.Unlock()
		return ordered.Commit(ctx, o)
	})

	pool := worker.NewPool(min(s.workerCount, len(jobs)), q, s.loader, s.scorer, commit,
		worker.WithLogger(s.logger.Named("batch")))
	pool.Start(ctx)
	if err := pool.Wait(ctx); err != nil {
		return report, err
	}

	logger.ForBatch(s.logger, report.ID, song).Info(ctx, "batch finished",
		logger.Int("written", report.Written),
		logger.Int("failed", len(report.Failed)))
	return report, nil
}

// Score runs the pipeline on an inline chart.
func (s *Service) Score(ctx context.Context, in scoring.Input) (scoring.Result, error) {
	s.mu.RLock()
	scorer := s.scorer
	s.mu.RUnlock()
	if scorer == nil {
		scorer = scoring.NewChartScorer()
	}

	res, err := scorer.Score(ctx, in)
	if err != nil {
		metrics.RecordChartError(worker.ErrorKind(err))
		return res, err
	}
	metrics.RecordChartScored()
	metrics.RecordChartNotes(res.Stats.Notes)
	metrics.RecordLinesSkipped(res.Skipped)
	return res, nil
}

// Results lists stored rows.
func (s *Service) Results(ctx context.Context, f repository.Filter) ([]types.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started || s.lister == nil {
		return nil, ErrNotStarted
	}
	return s.lister.List(ctx, f)
}

// QueueLen returns the number of jobs waiting for a worker.
func (s *Service) QueueLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.queue == nil {
		return 0
	}
	return s.queue.Len()
}
