// Package config defines the chartmeta configuration and its loading.
package config

import (
	"fmt"
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ChartDir holds one directory per song with one file per difficulty.
	ChartDir string `koanf:"chart_dir"`

	// OutputCSV is the file result rows are appended to.
	OutputCSV string `koanf:"output_csv"`

	// SQLitePath enables the SQLite sink when set.
	SQLitePath string `koanf:"sqlite_path"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory job queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize sets how many job keys are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxChartBytes caps the size of a chart file or request body.
	MaxChartBytes int64 `koanf:"max_chart_bytes"`

	// AllowedOrigins lists CORS origins for the HTTP API.
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		Addr:           ":9080",
		ChartDir:       "musicscore",
		OutputCSV:      "data.csv",
		WorkerCount:    runtime.NumCPU(),
		QueueSize:      1024,
		DedupeSize:     4096,
		MaxChartBytes:  8 << 20,
		AllowedOrigins: []string{"*"},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ChartDir == "":
		return fmt.Errorf("%w: chart_dir must not be empty", ErrInvalidConfig)
	case c.OutputCSV == "":
		return fmt.Errorf("%w: output_csv must not be empty", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.MaxChartBytes < 1:
		return fmt.Errorf("%w: max_chart_bytes must be positive", ErrInvalidConfig)
	}
	return nil
}
