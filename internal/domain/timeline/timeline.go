// Package timeline consolidates raw chart events into semantic notes and
// controls and holds them in their scoring order.
package timeline

import (
	"math/big"
	"sort"
	"strings"

	"github.com/okian/chartmeta/internal/domain/model"
)

// Timeline is an immutable, ordered sequence of events.
type Timeline struct {
	events []model.Event
}

// New orders a copy of events into timeline order.
//
// Order: position, then controls before notes, then notes by left and right
// lane. Remaining ties keep their input order.
func New(events []model.Event) *Timeline {
	sorted := make([]model.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})
	return &Timeline{events: sorted}
}

func less(a, b model.Event) bool {
	if c := a.Pos.Cmp(b.Pos); c != 0 {
		return c < 0
	}
	ac, bc := a.IsControl(), b.IsControl()
	switch {
	case ac != bc:
		return ac
	case ac:
		return false
	case a.Left != b.Left:
		return a.Left < b.Left
	}
	return a.Right < b.Right
}

// Len returns the number of events.
func (t *Timeline) Len() int { return len(t.events) }

// At returns the i-th event.
func (t *Timeline) At(i int) model.Event { return t.events[i] }

// Events returns a copy of the ordered events.
func (t *Timeline) Events() []model.Event {
	out := make([]model.Event, len(t.events))
	copy(out, t.events)
	return out
}

// End returns the time of the last event, or nil for an empty timeline.
func (t *Timeline) End() *big.Rat {
	if len(t.events) == 0 {
		return nil
	}
	return t.events[len(t.events)-1].Pos.Time()
}

// String renders one event per line.
func (t *Timeline) String() string {
	var b strings.Builder
	for _, e := range t.events {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}
