// Package scoring computes note counts, total weights and the single-pass
// score simulation over a chart timeline.
package scoring

import (
	"context"
	"fmt"
	"io"

	"github.com/okian/chartmeta/internal/domain/chart"
	"github.com/okian/chartmeta/internal/domain/timeline"
	"github.com/okian/chartmeta/internal/domain/types"
)

// Option applies a configuration option to the ChartScorer.
type Option func(*ChartScorer)

// WithDiscardHook observes raw events dropped while building timelines.
func WithDiscardHook(fn timeline.DiscardFunc) Option {
	return func(s *ChartScorer) {
		if fn != nil {
			s.discard = fn
		}
	}
}

// Input is one (chart, level, fever) computation.
type Input struct {
	Name  string
	Diff  string
	Chart io.Reader
	Level int
	Fever bool
}

// Result contains the output row and the chart statistics it was derived from.
type Result struct {
	Row     types.Row
	Stats   Stats
	Skipped int // malformed chart lines
}

// Scorer computes a score breakdown from a chart.
type Scorer interface {
	// Score runs the full pipeline for in, honoring ctx for cancellation.
	Score(ctx context.Context, in Input) (Result, error)
}

// ChartScorer implements Scorer with the reader, synthesizer and simulator.
// It holds no per-call state and is safe for concurrent use.
type ChartScorer struct {
	discard timeline.DiscardFunc
}

// NewChartScorer creates a new chart scorer with configuration options.
func NewChartScorer(opts ...Option) *ChartScorer {
	s := &ChartScorer{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads and synthesizes a chart into a timeline.
func (s *ChartScorer) Load(r io.Reader) (*timeline.Timeline, *chart.Source, error) {
	src, err := chart.Read(r)
	if err != nil {
		return nil, nil, err
	}
	raws, err := chart.Expand(src)
	if err != nil {
		return nil, nil, err
	}
	var opts []timeline.Option
	if s.discard != nil {
		opts = append(opts, timeline.WithDiscardHook(s.discard))
	}
	tl, err := timeline.Build(raws, src, opts...)
	if err != nil {
		return nil, nil, err
	}
	return tl, src, nil
}

// Score computes the score breakdown for the given input.
func (s *ChartScorer) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrCanceled, err)
	}

	tl, src, err := s.Load(in.Chart)
	if err != nil {
		return Result{}, fmt.Errorf("load %s/%s: %w", in.Name, in.Diff, err)
	}

	meta, err := Simulate(tl, in.Level, in.Fever)
	if err != nil {
		return Result{}, fmt.Errorf("simulate %s/%s: %w", in.Name, in.Diff, err)
	}

	return Result{
		Row: types.Row{
			Name:      in.Name,
			Diff:      in.Diff,
			Level:     in.Level,
			FeverMode: in.Fever,
			Meta:      meta,
		},
		Stats:   Compute(tl),
		Skipped: src.Skipped,
	}, nil
}
