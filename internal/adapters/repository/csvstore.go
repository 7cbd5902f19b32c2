package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/okian/chartmeta/internal/domain/types"
)

// CSVStore appends rows to a CSV file with CRLF line endings. The header is
// written only when the file is empty on open, so repeated runs accumulate
// rows.
type CSVStore struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *csv.Writer
}

// NewCSVStore opens (or creates) path for appending.
func NewCSVStore(path string) (*CSVStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec // output path is operator supplied
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	s := &CSVStore{path: path, file: f, w: csv.NewWriter(f)}
	s.w.UseCRLF = true
	if info.Size() == 0 {
		if err := s.write(types.Header); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *CSVStore) Name() string { return "csv" }

func (s *CSVStore) Append(_ context.Context, rows ...types.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return ErrClosed
	}
	for _, r := range rows {
		if err := s.w.Write(r.Record()); err != nil {
			return fmt.Errorf("write %s: %w", s.path, err)
		}
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", s.path, err)
	}
	return nil
}

func (s *CSVStore) write(rec []string) error {
	if err := s.w.Write(rec); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *CSVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	s.w.Flush()
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", s.path, err)
	}
	return nil
}
