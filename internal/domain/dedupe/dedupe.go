// Package dedupe tracks job keys so a batch never scores the same
// (song, diff, level, fever) twice within a window.
package dedupe

import (
	"context"
	"sync"
)

const defaultWindow = 4096

// Deduper records seen job keys.
type Deduper interface {
	// SeenAndRecord reports whether key was already recorded and records it
	// if not. The check and the record happen atomically.
	SeenAndRecord(ctx context.Context, key string) bool

	// Forget removes key so a failed job can be submitted again.
	Forget(ctx context.Context, key string)

	Size() int
}

// entry is a node of the insertion-ordered list, oldest at tail.
type entry struct {
	key        string
	prev, next *entry
}

// windowDeduper keeps the most recent window keys and evicts the oldest.
// A window <= 0 keeps every key.
type windowDeduper struct {
	mu     sync.Mutex
	seen   map[string]*entry
	head   *entry
	tail   *entry
	window int
}

// NewWindowDeduper creates a deduper with configuration options.
func NewWindowDeduper(opts ...Option) Deduper {
	d := &windowDeduper{window: defaultWindow}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*entry)
	return d
}

func (d *windowDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.window > 0 && len(d.seen) >= d.window {
		d.unlink(d.tail)
	}

	e := &entry{key: key, next: d.head}
	if d.head != nil {
		d.head.prev = e
	}
	d.head = e
	if d.tail == nil {
		d.tail = e
	}
	d.seen[key] = e
	return false
}

func (d *windowDeduper) Forget(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.seen[key]; ok {
		d.unlink(e)
	}
}

func (d *windowDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// unlink removes e from the list and the index. Caller holds d.mu.
func (d *windowDeduper) unlink(e *entry) {
	if e == nil {
		return
	}
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		d.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		d.tail = e.prev
	}
	delete(d.seen, e.key)
}
