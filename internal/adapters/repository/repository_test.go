package repository_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/chartmeta/internal/adapters/repository"
	"github.com/okian/chartmeta/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func row(name, diff string, level int, fever bool, base float64) types.Row {
	return types.Row{
		Name:      name,
		Diff:      diff,
		Level:     level,
		FeverMode: fever,
		Meta: types.ScoreMeta{
			Base:   base,
			Fever:  0.08,
			Skill:  [types.SkillSlots]float64{0.5, 0, 0, 0, 0, 0.25},
			Skills: 0.75,
		},
	}
}

func TestCSVStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new CSV file", t, func() {
		path := filepath.Join(t.TempDir(), "data.csv")
		s, err := repository.NewCSVStore(path)
		So(err, ShouldBeNil)

		Convey("When rows are appended", func() {
			So(s.Append(ctx, row("song", "easy", 5, false, 1)), ShouldBeNil)
			So(s.Append(ctx, row("song", "easy", 5, true, 1.04)), ShouldBeNil)
			So(s.Close(), ShouldBeNil)

			Convey("Then the header is followed by the rows", func() {
				data, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual,
					"name,diff,level,fever,base,skill 1,skill 2,skill 3,skill 4,skill 5,skill 6,skills\r\n"+
						"song,easy,5,0.08,1.0,0.5,0.0,0.0,0.0,0.0,0.25,0.75\r\n"+
						"song,easy,5,0.08,1.04,0.5,0.0,0.0,0.0,0.0,0.25,0.75\r\n")
			})
		})

		Convey("When the file is reopened", func() {
			So(s.Append(ctx, row("a", "hard", 20, false, 1)), ShouldBeNil)
			So(s.Close(), ShouldBeNil)

			again, err := repository.NewCSVStore(path)
			So(err, ShouldBeNil)
			So(again.Append(ctx, row("b", "hard", 20, false, 1)), ShouldBeNil)
			So(again.Close(), ShouldBeNil)

			Convey("Then the header is not repeated", func() {
				data, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(string(data), ShouldStartWith, "name,diff")
				So(string(data), ShouldContainSubstring, "\r\nb,hard")
				So(countOf(string(data), "name,diff"), ShouldEqual, 1)
			})
		})

		Convey("When appending after close", func() {
			So(s.Close(), ShouldBeNil)
			So(s.Close(), ShouldBeNil)

			Convey("Then the store refuses", func() {
				So(errors.Is(s.Append(ctx, row("a", "easy", 1, false, 1)), repository.ErrClosed), ShouldBeTrue)
			})
		})

		Convey("When many goroutines append", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = s.Append(ctx, row("song", "master", 30, false, 1), row("song", "master", 30, true, 1))
				}()
			}
			wg.Wait()
			So(s.Close(), ShouldBeNil)

			Convey("Then no line is interleaved", func() {
				data, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(countOf(string(data), "\r\n"), ShouldEqual, 41)
				So(countOf(string(data), "song,master,30,"), ShouldEqual, 40)
			})
		})
	})

	Convey("Given an unwritable location", t, func() {
		_, err := repository.NewCSVStore(filepath.Join(t.TempDir(), "missing", "data.csv"))

		Convey("Then opening fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func countOf(s, sub string) int {
	n := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			n++
		}
	}
	return n
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given an in-memory SQLite store", t, func() {
		s, err := repository.NewSQLiteStore(ctx, ":memory:", repository.WithRunID("run-1"))
		So(err, ShouldBeNil)
		defer s.Close()

		So(s.Append(ctx,
			row("alpha", "easy", 5, false, 1),
			row("alpha", "easy", 5, true, 1.04),
			row("beta", "hard", 22, false, 0.9),
		), ShouldBeNil)

		Convey("Then rows round-trip in insertion order", func() {
			rows, err := s.List(ctx, repository.Filter{})
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 3)
			So(rows[1], ShouldResemble, row("alpha", "easy", 5, true, 1.04))
			So(s.Count(ctx), ShouldEqual, 3)
			So(s.RunID(), ShouldEqual, "run-1")
		})

		Convey("Then filters and limits apply", func() {
			rows, err := s.List(ctx, repository.Filter{Song: "alpha", Limit: 1})
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].FeverMode, ShouldBeFalse)

			rows, err = s.List(ctx, repository.Filter{Diff: "hard"})
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].Name, ShouldEqual, "beta")
		})

		Convey("Then a negative limit is rejected", func() {
			_, err := s.List(ctx, repository.Filter{Limit: -1})
			So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
		})

		Convey("Then a closed store refuses work", func() {
			So(s.Close(), ShouldBeNil)
			So(errors.Is(s.Append(ctx, row("x", "easy", 1, false, 1)), repository.ErrClosed), ShouldBeTrue)
			_, err := s.List(ctx, repository.Filter{})
			So(errors.Is(err, repository.ErrClosed), ShouldBeTrue)
			So(s.Count(ctx), ShouldEqual, 0)
		})
	})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a memory store", t, func() {
		s := repository.NewMemoryStore(ctx, repository.WithMetricsUpdateInterval(10*time.Millisecond))
		defer s.Close()

		So(s.Append(ctx, row("a", "easy", 1, false, 1), row("b", "easy", 2, false, 1), row("a", "hard", 3, true, 1)), ShouldBeNil)

		Convey("Then listing filters by song and diff", func() {
			rows, err := s.List(ctx, repository.Filter{Song: "a"})
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
			So(rows[1].Diff, ShouldEqual, "hard")

			rows, err = s.List(ctx, repository.Filter{Diff: "easy", Limit: 1})
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].Name, ShouldEqual, "a")
			So(s.Count(ctx), ShouldEqual, 3)
		})

		Convey("Then the metrics updater keeps running until close", func() {
			time.Sleep(30 * time.Millisecond)
			So(s.Close(), ShouldBeNil)
			So(errors.Is(s.Append(ctx, row("c", "easy", 1, false, 1)), repository.ErrClosed), ShouldBeTrue)
		})
	})
}

type failingSink struct{ closed bool }

func (f *failingSink) Append(context.Context, ...types.Row) error { return errors.New("disk full") }
func (f *failingSink) Name() string                             { return "failing" }
func (f *failingSink) Close() error                             { f.closed = true; return nil }

func TestMulti(t *testing.T) {
	ctx := context.Background()

	Convey("Given a fan-out over a failing and a memory sink", t, func() {
		mem := repository.NewMemoryStore(ctx)
		bad := &failingSink{}
		m := repository.NewMulti(bad, nil, mem)

		Convey("When appending", func() {
			err := m.Append(ctx, row("a", "easy", 1, false, 1))

			Convey("Then the healthy sink still receives the row", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "failing: disk full")
				So(mem.Count(ctx), ShouldEqual, 1)
			})
		})

		Convey("Then the memory sink is the lister", func() {
			l, ok := m.Lister()
			So(ok, ShouldBeTrue)
			So(l == repository.Lister(mem), ShouldBeTrue)
			So(m.Name(), ShouldEqual, "failing+memory")
		})

		Convey("Then closing closes every sink", func() {
			So(m.Close(), ShouldBeNil)
			So(bad.closed, ShouldBeTrue)
		})
	})
}
