// Package repository stores score rows: an append-only CSV file, an
// optional SQLite database and an in-memory store backing the HTTP API.
package repository

import (
	"context"

	"github.com/okian/chartmeta/internal/domain/types"
)

// Sink receives score rows. Append is safe for concurrent use; rows of a
// single call are written contiguously.
type Sink interface {
	Append(ctx context.Context, rows ...types.Row) error
	Name() string
	Close() error
}

// Filter narrows a listing. Zero values match everything; Limit 0 means
// no limit.
type Filter struct {
	Song  string
	Diff  string
	Limit int
}

// Lister reads back stored rows in insertion order.
type Lister interface {
	List(ctx context.Context, f Filter) ([]types.Row, error)
	Count(ctx context.Context) int
}

// Store is a Sink that can also be listed.
type Store interface {
	Sink
	Lister
}

func (f Filter) match(r types.Row) bool {
	return (f.Song == "" || f.Song == r.Name) && (f.Diff == "" || f.Diff == r.Diff)
}

func (f Filter) validate() error {
	if f.Limit < 0 {
		return ErrInvalidLimit
	}
	return nil
}
