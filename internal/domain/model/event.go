// Package model contains the chart domain types shared by the parsing,
// synthesis and scoring stages.
package model

import (
	"fmt"
	"math/big"
	"strings"
)

// Raw channel numbers found in note-list lines.
const (
	ChannelBPM   = 0
	ChannelTap   = 1
	ChannelLong  = 3
	ChannelFlick = 5
)

// NoChain marks a raw event that carries no long-note chain id.
const NoChain = -1

// MaxChains is the number of long-note chains that can be open at once.
const MaxChains = 2

// RawEvent is one expanded sub-event of a packed note-list line.
type RawEvent struct {
	Pos   Position
	Lane  int
	Width int
	Type  int // channel
	Prop  int
	Chain int // NoChain unless Type == ChannelLong
}

// Right returns the rightmost lane covered by the event.
func (r RawEvent) Right() int { return r.Lane + r.Width - 1 }

func (r RawEvent) String() string {
	if r.Type == ChannelLong {
		return fmt.Sprintf("raw(%s lane=%d width=%d type=%d prop=%d chain=%d)", r.Pos, r.Lane, r.Width, r.Type, r.Prop, r.Chain)
	}
	return fmt.Sprintf("raw(%s lane=%d width=%d type=%d prop=%d)", r.Pos, r.Lane, r.Width, r.Type, r.Prop)
}

// Kind tags the variant held by an Event.
type Kind uint8

// Event variants.
const (
	KindTap Kind = iota + 1
	KindLongStart
	KindLongMid
	KindLongEnd
	KindSkill
	KindFever
	KindBPM
)

var kindNames = map[Kind]string{
	KindTap:       "tap",
	KindLongStart: "longstart",
	KindLongMid:   "longmid",
	KindLongEnd:   "longend",
	KindSkill:     "skill",
	KindFever:     "fever",
	KindBPM:       "bpm",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsControl reports whether the kind is a control marker rather than a note.
func (k Kind) IsControl() bool {
	return k == KindSkill || k == KindFever || k == KindBPM
}

// IsLong reports whether the kind belongs to a long-note chain.
func (k Kind) IsLong() bool {
	return k == KindLongStart || k == KindLongMid || k == KindLongEnd
}

// Event is a semantic timeline element. Lane span, Critical, Flick and Chain
// are meaningful for notes only; BPM is set for KindBPM only.
type Event struct {
	Kind     Kind
	Pos      Position
	Left     int
	Right    int
	Critical bool
	Flick    bool
	Chain    int
	BPM      int
}

// IsControl reports whether the event is a control marker.
func (e Event) IsControl() bool { return e.Kind.IsControl() }

// Weight is the scoring weight of a concrete note.
//
//	long mid:      1/10, 2/10 critical
//	flick:         1,    3 critical
//	anything else: 1,    2 critical
func (e Event) Weight() *big.Rat {
	switch {
	case e.Kind == KindLongMid:
		if e.Critical {
			return big.NewRat(2, 10)
		}
		return big.NewRat(1, 10)
	case e.Flick:
		if e.Critical {
			return big.NewRat(3, 1)
		}
		return big.NewRat(1, 1)
	case e.Critical:
		return big.NewRat(2, 1)
	}
	return big.NewRat(1, 1)
}

func (e Event) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s(%s", e.Kind, e.Pos)
	switch {
	case e.Kind == KindBPM:
		fmt.Fprintf(&b, ", bpm=%d", e.BPM)
	case e.Kind.IsControl():
	default:
		fmt.Fprintf(&b, ", [%d,%d]", e.Left, e.Right)
		if e.Kind.IsLong() {
			fmt.Fprintf(&b, ", chain=%d", e.Chain)
		}
		if e.Flick {
			b.WriteString(", flick")
		}
		if e.Critical {
			b.WriteString(", crit")
		}
	}
	b.WriteString(")")
	return b.String()
}
