package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// SQLiteOption applies a configuration option to the SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithRunID tags every row written by the store with id.
func WithRunID(id string) SQLiteOption {
	return func(s *SQLiteStore) {
		if id != "" {
			s.runID = id
		}
	}
}
