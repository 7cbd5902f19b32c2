package service

import "github.com/okian/chartmeta/pkg/logger"

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithChartDir sets the directory holding <song>/<diff> chart files.
func WithChartDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.chartDir = dir
		}
	}
}

// WithOutputCSV sets the CSV file rows are appended to.
func WithOutputCSV(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.outputCSV = path
		}
	}
}

// WithSQLitePath enables the SQLite sink. Empty disables it.
func WithSQLitePath(path string) Option {
	return func(s *Service) {
		s.sqlitePath = path
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many job keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxChartBytes caps the size of chart files.
func WithMaxChartBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxChartBytes = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
