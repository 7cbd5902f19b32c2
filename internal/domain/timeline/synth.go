package timeline

import (
	"fmt"

	"github.com/okian/chartmeta/internal/domain/model"
)

// Raw props with special meaning.
const (
	propCritical = 2
	propSkill    = 4
	propFever    = 2

	propLongStart = 1
	propLongEnd   = 2
	propLongMid   = 3

	feverLane = 15
)

// TempoTable resolves a tempo slot to its BPM.
type TempoTable interface {
	Tempo(slot int) (int, error)
}

// DiscardFunc receives raw events dropped as invalid note combinations.
type DiscardFunc func(raw model.RawEvent, reason string)

// Option applies a configuration option to Build.
type Option func(*synthesizer)

// WithDiscardHook registers fn to observe dropped combinations.
func WithDiscardHook(fn DiscardFunc) Option {
	return func(s *synthesizer) {
		if fn != nil {
			s.discard = fn
		}
	}
}

// chainState is the open/critical state of one long-note chain.
type chainState struct {
	open     bool
	critical bool
}

type synthesizer struct {
	tempos  TempoTable
	events  []model.Event
	chains  [model.MaxChains]chainState
	discard DiscardFunc
}

// Build consolidates raws, which must already be in (position, lane, type)
// order, into a Timeline. Flick and long markers that land on the previous
// note's position and left lane rewrite that note instead of adding one.
// The only error is an undefined tempo slot.
func Build(raws []model.RawEvent, tempos TempoTable, opts ...Option) (*Timeline, error) {
	s := &synthesizer{
		tempos:  tempos,
		events:  make([]model.Event, 0, len(raws)),
		discard: func(model.RawEvent, string) {},
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, raw := range raws {
		if err := s.step(raw); err != nil {
			return nil, err
		}
	}
	return New(s.events), nil
}

func (s *synthesizer) step(raw model.RawEvent) error {
	if s.continues(raw) {
		s.merge(raw)
		return nil
	}
	return s.add(raw)
}

// continues reports whether raw is a continuation marker for the last note.
func (s *synthesizer) continues(raw model.RawEvent) bool {
	if raw.Type != model.ChannelFlick && raw.Type != model.ChannelLong {
		return false
	}
	if len(s.events) == 0 {
		return false
	}
	last := s.events[len(s.events)-1]
	return !last.IsControl() && last.Pos.Equal(raw.Pos) && last.Left == raw.Lane
}

func (s *synthesizer) merge(raw model.RawEvent) {
	last := &s.events[len(s.events)-1]
	if raw.Type == model.ChannelFlick {
		last.Flick = true
		return
	}

	if !validChain(raw.Chain) {
		s.drop(raw, "chain id out of range")
		return
	}
	chain := &s.chains[raw.Chain]
	note := longNote(raw)

	switch raw.Prop {
	case propLongStart:
		note.Kind = model.KindLongStart
		note.Critical = last.Critical
		*chain = chainState{open: true, critical: note.Critical}
	case propLongEnd:
		if !chain.open {
			s.drop(raw, "long end without open chain")
			return
		}
		note.Kind = model.KindLongEnd
		note.Critical = last.Critical || chain.critical
		*chain = chainState{}
	case propLongMid:
		if !chain.open {
			s.drop(raw, "long mid without open chain")
			return
		}
		note.Kind = model.KindLongMid
		note.Critical = chain.critical
	default:
		s.drop(raw, fmt.Sprintf("long marker prop %d", raw.Prop))
		return
	}
	*last = note
}

func (s *synthesizer) add(raw model.RawEvent) error {
	switch raw.Type {
	case model.ChannelTap:
		switch {
		case raw.Prop == propSkill:
			s.events = append(s.events, model.Event{Kind: model.KindSkill, Pos: raw.Pos})
		case raw.Lane == feverLane && raw.Prop == propFever:
			s.events = append(s.events, model.Event{Kind: model.KindFever, Pos: raw.Pos})
		case raw.Lane == feverLane:
			s.discard(raw, "fever lane marker")
		default:
			s.events = append(s.events, model.Event{
				Kind:     model.KindTap,
				Pos:      raw.Pos,
				Left:     raw.Lane,
				Right:    raw.Right(),
				Critical: raw.Prop == propCritical,
			})
		}
	case model.ChannelFlick:
		s.events = append(s.events, model.Event{
			Kind:  model.KindTap,
			Pos:   raw.Pos,
			Left:  raw.Lane,
			Right: raw.Right(),
			Flick: true,
		})
	case model.ChannelLong:
		s.addLong(raw)
	case model.ChannelBPM:
		bpm, err := s.tempos.Tempo(raw.Width)
		if err != nil {
			return fmt.Errorf("bpm marker at %s: %w", raw.Pos, err)
		}
		s.events = append(s.events, model.Event{Kind: model.KindBPM, Pos: raw.Pos, BPM: bpm})
	default:
		s.discard(raw, fmt.Sprintf("unknown channel %d", raw.Type))
	}
	return nil
}

func (s *synthesizer) addLong(raw model.RawEvent) {
	if !validChain(raw.Chain) {
		s.discard(raw, "chain id out of range")
		return
	}
	chain := &s.chains[raw.Chain]
	note := longNote(raw)

	switch raw.Prop {
	case propLongStart:
		note.Kind = model.KindLongStart
		*chain = chainState{open: true}
	case propLongEnd:
		if !chain.open {
			s.discard(raw, "long end without open chain")
			return
		}
		note.Kind = model.KindLongEnd
		note.Critical = chain.critical
		*chain = chainState{}
	case propLongMid:
		if !chain.open {
			s.discard(raw, "long mid without open chain")
			return
		}
		note.Kind = model.KindLongMid
		note.Critical = chain.critical
	default:
		s.discard(raw, fmt.Sprintf("long marker prop %d", raw.Prop))
		return
	}
	s.events = append(s.events, note)
}

// drop discards the last event together with the marker that tried to
// continue it.
func (s *synthesizer) drop(raw model.RawEvent, reason string) {
	s.events = s.events[:len(s.events)-1]
	s.discard(raw, reason)
}

func longNote(raw model.RawEvent) model.Event {
	return model.Event{
		Pos:   raw.Pos,
		Left:  raw.Lane,
		Right: raw.Right(),
		Chain: raw.Chain,
	}
}

func validChain(chain int) bool {
	return chain >= 0 && chain < model.MaxChains
}
