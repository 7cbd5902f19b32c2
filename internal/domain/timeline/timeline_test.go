package timeline_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okian/chartmeta/internal/domain/chart"
	"github.com/okian/chartmeta/internal/domain/model"
	"github.com/okian/chartmeta/internal/domain/timeline"
	. "github.com/smartystreets/goconvey/convey"
)

var errNoSlot = errors.New("no slot")

type tempoMap map[int]int

func (m tempoMap) Tempo(slot int) (int, error) {
	bpm, ok := m[slot]
	if !ok {
		return 0, errNoSlot
	}
	return bpm, nil
}

func raw(measure int, num, den int64, lane, width, typ, prop, chain int) model.RawEvent {
	return model.RawEvent{
		Pos:   model.NewPosition(measure, num, den),
		Lane:  lane,
		Width: width,
		Type:  typ,
		Prop:  prop,
		Chain: chain,
	}
}

func kinds(tl *timeline.Timeline) []model.Kind {
	out := make([]model.Kind, tl.Len())
	for i := range out {
		out[i] = tl.At(i).Kind
	}
	return out
}

func TestBuildLongChains(t *testing.T) {
	Convey("Given a non-critical start, a mid and a critical end on chain 0", t, func() {
		raws := []model.RawEvent{
			raw(0, 0, 1, 3, 2, model.ChannelTap, 1, model.NoChain),
			raw(0, 0, 1, 3, 2, model.ChannelLong, 1, 0),
			raw(0, 1, 2, 3, 2, model.ChannelTap, 1, model.NoChain),
			raw(0, 1, 2, 3, 2, model.ChannelLong, 3, 0),
			raw(1, 0, 1, 3, 2, model.ChannelTap, 2, model.NoChain),
			raw(1, 0, 1, 3, 2, model.ChannelLong, 2, 0),
		}
		tl, err := timeline.Build(raws, tempoMap{})
		So(err, ShouldBeNil)

		Convey("Then exactly one three-event chain is produced", func() {
			So(kinds(tl), ShouldResemble, []model.Kind{model.KindLongStart, model.KindLongMid, model.KindLongEnd})
			for i := 0; i < tl.Len(); i++ {
				So(tl.At(i).Chain, ShouldEqual, 0)
				So(tl.At(i).Left, ShouldEqual, 3)
				So(tl.At(i).Right, ShouldEqual, 4)
			}
		})

		Convey("Then the end turns critical without touching the start", func() {
			So(tl.At(0).Critical, ShouldBeFalse)
			So(tl.At(1).Critical, ShouldBeFalse)
			So(tl.At(2).Critical, ShouldBeTrue)
		})
	})

	Convey("Given a critical start followed by plain mid and end taps", t, func() {
		raws := []model.RawEvent{
			raw(0, 0, 1, 5, 1, model.ChannelTap, 2, model.NoChain),
			raw(0, 0, 1, 5, 1, model.ChannelLong, 1, 1),
			raw(0, 1, 4, 5, 1, model.ChannelTap, 1, model.NoChain),
			raw(0, 1, 4, 5, 1, model.ChannelLong, 3, 1),
			raw(0, 1, 2, 5, 1, model.ChannelTap, 1, model.NoChain),
			raw(0, 1, 2, 5, 1, model.ChannelLong, 2, 1),
		}
		tl, err := timeline.Build(raws, tempoMap{})
		So(err, ShouldBeNil)

		Convey("Then the chain flag overrides the mid and is OR'd into the end", func() {
			So(kinds(tl), ShouldResemble, []model.Kind{model.KindLongStart, model.KindLongMid, model.KindLongEnd})
			So(tl.At(0).Critical, ShouldBeTrue)
			So(tl.At(1).Critical, ShouldBeTrue)
			So(tl.At(2).Critical, ShouldBeTrue)
		})
	})

	Convey("Given bare long markers without matching taps", t, func() {
		raws := []model.RawEvent{
			raw(0, 0, 1, 0, 2, model.ChannelLong, 1, 0),
			raw(0, 1, 2, 0, 2, model.ChannelLong, 3, 0),
			raw(1, 0, 1, 0, 2, model.ChannelLong, 2, 0),
		}
		tl, err := timeline.Build(raws, tempoMap{})
		So(err, ShouldBeNil)

		Convey("Then they are appended as a chain", func() {
			So(kinds(tl), ShouldResemble, []model.Kind{model.KindLongStart, model.KindLongMid, model.KindLongEnd})
		})
	})

	Convey("Given a mid and an end on a chain that was never opened", t, func() {
		var dropped []string
		raws := []model.RawEvent{
			raw(0, 0, 1, 0, 2, model.ChannelLong, 3, 1),
			raw(0, 1, 2, 4, 2, model.ChannelTap, 1, model.NoChain),
			raw(0, 1, 2, 4, 2, model.ChannelLong, 2, 1),
			raw(1, 0, 1, 6, 2, model.ChannelTap, 1, model.NoChain),
		}
		tl, err := timeline.Build(raws, tempoMap{}, timeline.WithDiscardHook(func(_ model.RawEvent, reason string) {
			dropped = append(dropped, reason)
		}))
		So(err, ShouldBeNil)

		Convey("Then both combinations are discarded", func() {
			So(kinds(tl), ShouldResemble, []model.Kind{model.KindTap})
			So(tl.At(0).Left, ShouldEqual, 6)
			So(dropped, ShouldHaveLength, 2)
		})
	})

	Convey("Given a tap continued by a long marker with an unknown prop", t, func() {
		raws := []model.RawEvent{
			raw(0, 0, 1, 2, 2, model.ChannelTap, 1, model.NoChain),
			raw(0, 0, 1, 2, 2, model.ChannelLong, 5, 0),
		}
		tl, err := timeline.Build(raws, tempoMap{})
		So(err, ShouldBeNil)

		Convey("Then the tap is discarded with the marker", func() {
			So(tl.Len(), ShouldEqual, 0)
		})
	})
}

func TestBuildTapsAndControls(t *testing.T) {
	Convey("Given taps, flicks and controls", t, func() {
		raws := []model.RawEvent{
			raw(0, 0, 1, 2, 3, model.ChannelTap, 2, model.NoChain),
			raw(0, 0, 1, 2, 3, model.ChannelFlick, 1, model.NoChain),
			raw(0, 0, 1, 6, 1, model.ChannelTap, 4, model.NoChain),
			raw(0, 1, 2, 9, 2, model.ChannelFlick, 3, model.NoChain),
			raw(0, 1, 2, 15, 1, model.ChannelTap, 2, model.NoChain),
			raw(0, 3, 4, 15, 1, model.ChannelTap, 1, model.NoChain),
			raw(1, 0, 1, 0, 1, model.ChannelBPM, 0, model.NoChain),
		}
		tl, err := timeline.Build(raws, tempoMap{1: 150})
		So(err, ShouldBeNil)

		Convey("Then every raw maps to its semantic variant", func() {
			So(kinds(tl), ShouldResemble, []model.Kind{
				model.KindSkill, model.KindTap,
				model.KindFever, model.KindTap,
				model.KindBPM,
			})
		})

		Convey("Then a flick marker on the same lane flags the tap", func() {
			tap := tl.At(1)
			So(tap.Flick, ShouldBeTrue)
			So(tap.Critical, ShouldBeTrue)
			So(tap.Left, ShouldEqual, 2)
			So(tap.Right, ShouldEqual, 4)
		})

		Convey("Then a lone flick marker becomes a flick tap", func() {
			So(tl.At(3).Flick, ShouldBeTrue)
			So(tl.At(3).Critical, ShouldBeFalse)
		})

		Convey("Then bpm markers resolve their slot", func() {
			So(tl.At(4).BPM, ShouldEqual, 150)
		})
	})

	Convey("Given a bpm marker naming an undefined slot", t, func() {
		raws := []model.RawEvent{raw(0, 0, 1, 0, 3, model.ChannelBPM, 0, model.NoChain)}

		Convey("Then building fails", func() {
			_, err := timeline.Build(raws, tempoMap{1: 120})
			So(errors.Is(err, errNoSlot), ShouldBeTrue)
		})
	})
}

func TestTimelineOrder(t *testing.T) {
	Convey("Given simultaneous controls and notes inserted out of order", t, func() {
		pos := model.NewPosition(2, 1, 4)
		events := []model.Event{
			{Kind: model.KindTap, Pos: pos, Left: 7, Right: 8},
			{Kind: model.KindSkill, Pos: pos},
			{Kind: model.KindTap, Pos: pos, Left: 1, Right: 3},
			{Kind: model.KindFever, Pos: pos},
			{Kind: model.KindBPM, Pos: pos, BPM: 120},
			{Kind: model.KindTap, Pos: pos, Left: 1, Right: 1},
			{Kind: model.KindSkill, Pos: model.NewPosition(2, 0, 1)},
		}
		tl := timeline.New(events)

		Convey("Then controls precede notes and same-class controls keep insertion order", func() {
			So(kinds(tl), ShouldResemble, []model.Kind{
				model.KindSkill,
				model.KindSkill, model.KindFever, model.KindBPM,
				model.KindTap, model.KindTap, model.KindTap,
			})
		})

		Convey("Then notes are ordered by left then right lane", func() {
			So(tl.At(4).Right, ShouldEqual, 1)
			So(tl.At(5).Right, ShouldEqual, 3)
			So(tl.At(6).Left, ShouldEqual, 7)
		})

		Convey("Then reordering is repeatable", func() {
			So(timeline.New(events).String(), ShouldEqual, tl.String())
		})
	})
}

func TestBuildDeterminism(t *testing.T) {
	Convey("Given the same chart text parsed twice", t, func() {
		text := "#BPM01: 140\n#00008: 01\n#00011: 12002200\n#00012: 00120012\n#000300:13000000\n#001300:2300\n#00051: 3100\n#0001f: 0002\n#0001f: 0400\n"
		build := func() string {
			src, err := chart.ReadString(text)
			So(err, ShouldBeNil)
			raws, err := chart.Expand(src)
			So(err, ShouldBeNil)
			tl, err := timeline.Build(raws, src)
			So(err, ShouldBeNil)
			return tl.String()
		}

		Convey("Then both timelines render identically", func() {
			first := build()
			So(first, ShouldNotBeEmpty)
			for i := 0; i < 5; i++ {
				So(build(), ShouldEqual, first)
			}
		})
	})

	Convey("Given many simultaneous controls", t, func() {
		var raws []model.RawEvent
		for lane := 0; lane < 15; lane++ {
			raws = append(raws, raw(0, 0, 1, lane, 1, model.ChannelTap, 4, model.NoChain))
		}
		raws = append(raws, raw(0, 0, 1, 15, 1, model.ChannelTap, 2, model.NoChain))

		Convey("Then ordering is consistent and nothing is lost", func() {
			tl, err := timeline.Build(raws, tempoMap{})
			So(err, ShouldBeNil)
			So(tl.Len(), ShouldEqual, 16)
			So(tl.At(15).Kind, ShouldEqual, model.KindFever)
			So(fmt.Sprint(tl.End()), ShouldEqual, "0/1")
		})
	})
}
