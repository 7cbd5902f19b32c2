package queue_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/chartmeta/internal/adapters/mq/queue"
	"github.com/okian/chartmeta/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func job(i int) model.Job {
	return model.Job{ID: fmt.Sprint(i), Song: "song", Diff: "easy", Level: i}
}

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given a queue with capacity two", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		Convey("When it is filled", func() {
			So(q.Enqueue(ctx, job(1)), ShouldBeNil)
			So(q.Enqueue(ctx, job(2)), ShouldBeNil)
			err := q.Enqueue(ctx, job(3))

			Convey("Then the next job is rejected as full", func() {
				So(errors.Is(err, queue.ErrQueueFull), ShouldBeTrue)
				So(q.Len(), ShouldEqual, 2)
			})
		})

		Convey("When jobs are dequeued", func() {
			So(q.Enqueue(ctx, job(1)), ShouldBeNil)
			So(q.Enqueue(ctx, job(2)), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			var got []int
			for j := range q.Dequeue(ctx) {
				got = append(got, j.Level)
			}

			Convey("Then they arrive in order and the channel closes", func() {
				So(got, ShouldResemble, []int{1, 2})
				So(q.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the queue is closed", func() {
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueue fails", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(errors.Is(q.Enqueue(ctx, job(1)), queue.ErrQueueClosed), ShouldBeTrue)
			})
		})

		Convey("When the caller's context is already done", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			Convey("Then enqueue reports the cancellation", func() {
				So(errors.Is(q.Enqueue(cctx, job(1)), context.Canceled), ShouldBeTrue)
			})
		})

		Convey("When the consumer context is canceled", func() {
			cctx, cancel := context.WithCancel(ctx)
			ch := q.Dequeue(cctx)
			cancel()

			Convey("Then the dequeue channel closes", func() {
				select {
				case _, ok := <-ch:
					So(ok, ShouldBeFalse)
				case <-time.After(time.Second):
					So("dequeue channel still open", ShouldBeEmpty)
				}
			})
		})
	})

	Convey("Given several consumers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		for i := 0; i < 100; i++ {
			So(q.Enqueue(ctx, job(i)), ShouldBeNil)
		}
		So(q.Close(), ShouldBeNil)

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			seen = map[int]bool{}
		)
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range q.Dequeue(ctx) {
					mu.Lock()
					seen[j.Level] = true
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Convey("Then every job is delivered exactly once", func() {
			So(len(seen), ShouldEqual, 100)
		})
	})
}
