package chart_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/okian/chartmeta/internal/domain/chart"
	"github.com/okian/chartmeta/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const sample = `#TITLE: sample
#BPM01: 120
#BPM02: 180

#00202: 0001
#00112: 0000
#0011f: 1002
#00130: 00
#001301:1300002300
#00152: 1103
#00108: 01
garbage line
`

func TestRead(t *testing.T) {
	Convey("Given chart text with every record shape", t, func() {
		src, err := chart.ReadString(sample)
		So(err, ShouldBeNil)

		Convey("Then tempo slots are bound", func() {
			So(src.Tempos, ShouldResemble, map[int]int{1: 120, 2: 180})
			bpm, err := src.Tempo(2)
			So(err, ShouldBeNil)
			So(bpm, ShouldEqual, 180)
		})

		Convey("Then an unbound slot is a lookup failure", func() {
			_, err := src.Tempo(7)
			So(errors.Is(err, chart.ErrMissingTempoSlot), ShouldBeTrue)
		})

		Convey("Then lines are stably ordered by measure", func() {
			measures := make([]int, len(src.Lines))
			for i, l := range src.Lines {
				measures[i] = l.Measure
			}
			So(measures, ShouldResemble, []int{1, 1, 1, 1, 1, 2})
			So(src.Lines[0].Row, ShouldEqual, 2)
			So(src.Lines[1].Row, ShouldEqual, 15)
			So(src.Lines[5].Channel, ShouldEqual, 0)
		})

		Convey("Then chain ids are kept for long-note lines", func() {
			var long chart.Line
			for _, l := range src.Lines {
				if l.Channel == model.ChannelLong {
					long = l
				}
			}
			So(long.Chain, ShouldEqual, 1)
			So(long.List, ShouldEqual, "1300002300")
		})

		Convey("Then malformed records are counted, not returned", func() {
			// "#TITLE" and the chainless channel-3 line
			So(src.Skipped, ShouldEqual, 2)
		})
	})

	Convey("Given chart text with a byte-order mark and CRLF endings", t, func() {
		src, err := chart.ReadString("\ufeff#BPM01: 90\r\n#00011: 0101\r\n")
		So(err, ShouldBeNil)

		Convey("Then the first line is still recognized", func() {
			So(src.Tempos[1], ShouldEqual, 90)
			So(src.Lines, ShouldHaveLength, 1)
			So(src.Lines[0].List, ShouldEqual, "0101")
		})
	})

	Convey("Given a chain id outside 0 and 1", t, func() {
		src, err := chart.ReadString("#001302:1300\n")
		So(err, ShouldBeNil)

		Convey("Then the line is skipped", func() {
			So(src.Lines, ShouldBeEmpty)
			So(src.Skipped, ShouldEqual, 1)
		})
	})
}

func TestExpand(t *testing.T) {
	Convey("Given parsed chart lines", t, func() {
		src, err := chart.ReadString(sample)
		So(err, ShouldBeNil)
		raws, err := chart.Expand(src)
		So(err, ShouldBeNil)

		Convey("Then zero pairs are skipped and offsets use the list subdivision", func() {
			// 0001 -> 1, 1002 -> 2, 1300002300 -> 2, 1103 -> 1 (prop 0 flick dropped), 01 -> 1
			So(raws, ShouldHaveLength, 7)
		})

		Convey("Then events are ordered by position, lane and type", func() {
			for i := 1; i < len(raws); i++ {
				a, b := raws[i-1], raws[i]
				c := a.Pos.Cmp(b.Pos)
				So(c <= 0, ShouldBeTrue)
				if c == 0 {
					So(a.Lane < b.Lane || (a.Lane == b.Lane && a.Type <= b.Type), ShouldBeTrue)
				}
			}
			So(raws[0].Type, ShouldEqual, model.ChannelLong)
			So(raws[1].Type, ShouldEqual, model.ChannelFlick)
			So(raws[2].Type, ShouldEqual, model.ChannelBPM)
			So(raws[2].Lane, ShouldEqual, 8)
		})

		Convey("Then prop and width come from the two digits of each pair", func() {
			var long []model.RawEvent
			for _, r := range raws {
				if r.Type == model.ChannelLong {
					long = append(long, r)
				}
			}
			So(long, ShouldHaveLength, 2)
			So(long[0].Prop, ShouldEqual, 1)
			So(long[0].Width, ShouldEqual, 3)
			So(long[0].Chain, ShouldEqual, 1)
			So(long[0].Pos.Beat.Cmp(big.NewRat(0, 1)), ShouldEqual, 0)
			So(long[1].Prop, ShouldEqual, 2)
			So(long[1].Pos.Beat.Cmp(big.NewRat(3, 5)), ShouldEqual, 0)
		})

		Convey("Then non-long events carry no chain", func() {
			for _, r := range raws {
				if r.Type != model.ChannelLong {
					So(r.Chain, ShouldEqual, model.NoChain)
				}
			}
		})
	})

	Convey("Given flick markers with every prop", t, func() {
		src, err := chart.ReadString("#00050: 01112131415161\n")
		So(err, ShouldBeNil)
		raws, err := chart.Expand(src)
		So(err, ShouldBeNil)

		Convey("Then only props 1, 3 and 4 survive", func() {
			props := []int{}
			for _, r := range raws {
				props = append(props, r.Prop)
			}
			So(props, ShouldResemble, []int{1, 3, 4})
		})
	})

	Convey("Given a packed list of odd length", t, func() {
		src, err := chart.ReadString("#00010: 011\n#00012: 11\n")
		So(err, ShouldBeNil)

		Convey("Then the line is skipped and the rest of the chart survives", func() {
			So(src.Skipped, ShouldEqual, 1)
			raws, err := chart.Expand(src)
			So(err, ShouldBeNil)
			So(raws, ShouldHaveLength, 1)
			So(raws[0].Lane, ShouldEqual, 2)
		})
	})

	Convey("Given packed lists with a non-hex digit", t, func() {
		src, err := chart.ReadString("#00010: 0g\n#000301:1z\n")
		So(err, ShouldBeNil)

		Convey("Then both lines are skipped", func() {
			So(src.Skipped, ShouldEqual, 2)
			So(src.Lines, ShouldBeEmpty)
		})
	})

	Convey("Given a hand-built source with a malformed list", t, func() {
		src := &chart.Source{Lines: []chart.Line{{Measure: 0, Channel: 1, Row: 0, Chain: model.NoChain, List: "011"}}}

		Convey("Then expansion fails", func() {
			_, err := chart.Expand(src)
			So(errors.Is(err, chart.ErrMalformedList), ShouldBeTrue)
		})
	})
}
