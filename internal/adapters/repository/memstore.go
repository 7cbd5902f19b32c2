package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/chartmeta/internal/domain/types"
	"github.com/okian/chartmeta/pkg/metrics"
)

const defaultMetricsUpdateInterval = 5 * time.Second

// MemoryStore keeps rows in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   []types.Row
	closed bool

	metricsUpdateInterval time.Duration
	stopChan              chan struct{}
	wg                    sync.WaitGroup
}

// NewMemoryStore constructs a memory store and starts its metrics updater,
// which runs until ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Append(_ context.Context, rows ...types.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.rows = append(s.rows, rows...)
	return nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]types.Row, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Row, 0, len(s.rows))
	for _, r := range s.rows {
		if !f.match(r) {
			continue
		}
		out = append(out, r)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Close stops the metrics updater. Further appends fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateResultsTotal(s.Count(ctx))
			}
		}
	}()
}
