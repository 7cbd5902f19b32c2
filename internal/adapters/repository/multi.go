package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/chartmeta/internal/domain/types"
	"github.com/okian/chartmeta/pkg/metrics"
)

// Multi fans rows out to several sinks in order.
type Multi struct {
	sinks []Sink
}

// NewMulti combines sinks; nil entries are ignored.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *Multi) Name() string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}

// Append writes rows to every sink. A failing sink does not stop the
// others; all failures are returned joined.
func (m *Multi) Append(ctx context.Context, rows ...types.Row) error {
	var errs []error
	for _, s := range m.sinks {
		start := time.Now()
		if err := s.Append(ctx, rows...); err != nil {
			metrics.RecordErrorByComponent("repository", s.Name())
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		metrics.RecordSinkLatency(float64(time.Since(start).Microseconds()) / 1000)
		metrics.RecordRowsWritten(s.Name(), len(rows))
	}
	return errors.Join(errs...)
}

// Lister returns the first sink that can be listed, if any.
func (m *Multi) Lister() (Lister, bool) {
	for _, s := range m.sinks {
		if l, ok := s.(Lister); ok {
			return l, true
		}
	}
	return nil, false
}

func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
