// Package chartfs opens chart files laid out as <root>/<song>/<diff>.
package chartfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const defaultMaxBytes = 8 << 20

// Difficulties in the order a song batch visits them.
var Difficulties = []string{"easy", "normal", "hard", "expert", "master"}

// Loader opens chart files under a root directory.
type Loader interface {
	Open(ctx context.Context, song, diff string) (io.ReadCloser, error)
}

// Option applies a configuration option to the DirLoader.
type Option func(*DirLoader)

// WithMaxBytes caps the size of a chart file. Values <= 0 are ignored.
func WithMaxBytes(n int64) Option {
	return func(l *DirLoader) {
		if n > 0 {
			l.maxBytes = n
		}
	}
}

// DirLoader implements Loader over the local filesystem.
type DirLoader struct {
	root     string
	maxBytes int64
}

// NewDirLoader creates a loader rooted at root.
func NewDirLoader(root string, opts ...Option) *DirLoader {
	l := &DirLoader{root: root, maxBytes: defaultMaxBytes}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the file a (song, diff) pair resolves to.
func (l *DirLoader) Path(song, diff string) (string, error) {
	for _, part := range []string{song, diff} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return "", fmt.Errorf("%q: %w", part, ErrInvalidName)
		}
	}
	return filepath.Join(l.root, song, diff), nil
}

// Open returns the chart for (song, diff). A missing file yields
// ErrChartNotFound.
func (l *DirLoader) Open(ctx context.Context, song, diff string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.Path(song, diff)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) //nolint:gosec // path components are validated above
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrChartNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%s is a directory: %w", path, ErrChartNotFound)
	}
	if info.Size() > l.maxBytes {
		_ = f.Close()
		return nil, fmt.Errorf("%s (%d bytes): %w", path, info.Size(), ErrChartTooLarge)
	}
	return f, nil
}
