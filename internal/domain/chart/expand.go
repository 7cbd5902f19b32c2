package chart

import (
	"fmt"
	"sort"

	"github.com/okian/chartmeta/internal/domain/model"
)

// Expand turns every line's packed list into individual raw events and
// orders them by (position, lane, type). Flick markers other than props
// 1, 3 and 4 are dropped. Read never yields a malformed list; a Source
// assembled by hand with one fails with ErrMalformedList.
func Expand(src *Source) ([]model.RawEvent, error) {
	var raws []model.RawEvent
	for _, line := range src.Lines {
		evs, err := expandLine(line)
		if err != nil {
			return nil, err
		}
		raws = append(raws, evs...)
	}

	sort.SliceStable(raws, func(i, j int) bool {
		a, b := raws[i], raws[j]
		if c := a.Pos.Cmp(b.Pos); c != 0 {
			return c < 0
		}
		if a.Lane != b.Lane {
			return a.Lane < b.Lane
		}
		return a.Type < b.Type
	})
	return raws, nil
}

func expandLine(line Line) ([]model.RawEvent, error) {
	if len(line.List)%2 != 0 {
		return nil, fmt.Errorf("measure %03d channel %d row %x: odd length %d: %w",
			line.Measure, line.Channel, line.Row, len(line.List), ErrMalformedList)
	}

	den := len(line.List) / 2
	var out []model.RawEvent
	for i := 0; i < den; i++ {
		prop, ok1 := hexDigit(line.List[2*i])
		width, ok2 := hexDigit(line.List[2*i+1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("measure %03d channel %d row %x: pair %q: %w",
				line.Measure, line.Channel, line.Row, line.List[2*i:2*i+2], ErrMalformedList)
		}
		if prop == 0 && width == 0 {
			continue
		}
		if line.Channel == model.ChannelFlick && !keptFlickProp(prop) {
			continue
		}

		ev := model.RawEvent{
			Pos:   model.NewPosition(line.Measure, int64(i), int64(den)),
			Lane:  line.Row,
			Width: width,
			Type:  line.Channel,
			Prop:  prop,
			Chain: model.NoChain,
		}
		if line.Channel == model.ChannelLong {
			ev.Chain = line.Chain
		}
		out = append(out, ev)
	}
	return out, nil
}

func keptFlickProp(prop int) bool {
	return prop == 1 || prop == 3 || prop == 4
}

func hexDigit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}
