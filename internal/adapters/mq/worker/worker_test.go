package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/bazaar/internal/adapters/mq/queue"
	"github.com/okian/bazaar/internal/adapters/mq/worker"
	"github.com/okian/bazaar/internal/domain/auction"
	"github.com/okian/bazaar/internal/domain/classify"
	"github.com/okian/bazaar/internal/domain/model"
	logging "github.com/okian/bazaar/pkg/logger"
)

func newState() *auction.State {
	players := []model.Player{
		{ID: 1, Name: "One", Ratings: model.Ratings{Batting: 6, Bowling: 4, Fielding: 5}},
		{ID: 2, Name: "Two", Ratings: model.Ratings{Batting: 3, Bowling: 7, Fielding: 5}},
		{ID: 3, Name: "Three", Ratings: model.Ratings{Batting: 5, Bowling: 5, Fielding: 5}},
	}
	teams := []model.Team{{ID: "a"}, {ID: "b"}}
	st, err := auction.New(auction.Rules{Slots: 2, Budget: 30, BasePrice: 5, Increment: 1}, classify.New(), players, teams)
	if err != nil {
		panic(err)
	}
	return st
}

func submit(ctx context.Context, q *queue.InMemoryQueue, c queue.Command) queue.Result {
	convey.So(q.Enqueue(ctx, c), convey.ShouldBeNil)
	r, err := c.Wait(ctx)
	convey.So(err, convey.ShouldBeNil)
	return r
}

func TestWriter(t *testing.T) {
	convey.Convey("Given a writer draining a command queue", t, func() {
		_ = logging.Init()

		st := newState()
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		var seen []queue.Kind
		w := worker.NewWriter(q, st,
			worker.WithName("test-writer"),
			worker.WithAfterApply(func(_ context.Context, c queue.Command, _ queue.Result) {
				seen = append(seen, c.Kind)
			}),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a valid sale is submitted", func() {
			r := submit(ctx, q, queue.NewSale("req-1", 1, "a", 12))

			convey.Convey("Then it is applied and acknowledged", func() {
				convey.So(r.Err, convey.ShouldBeNil)
				convey.So(r.Sale.PlayerID, convey.ShouldEqual, 1)
				p, _ := st.Snapshot().Player(1)
				convey.So(p.Status, convey.ShouldEqual, model.StatusSold)
				convey.So(seen, convey.ShouldResemble, []queue.Kind{queue.KindSale})
			})
		})

		convey.Convey("When an invalid sale is submitted", func() {
			r := submit(ctx, q, queue.NewSale("req-2", 1, "a", 4))

			convey.Convey("Then the validation error is returned and nothing changes", func() {
				convey.So(errors.Is(r.Err, auction.ErrBelowBasePrice), convey.ShouldBeTrue)
				convey.So(st.Snapshot().Sold(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When sale, edit, undo and reset arrive in order", func() {
			convey.So(submit(ctx, q, queue.NewSale("s", 2, "b", 9)).Err, convey.ShouldBeNil)
			edit := submit(ctx, q, queue.NewEdit("e", 3, model.Ratings{Batting: 9, Bowling: 9, Fielding: 9}))
			undo := submit(ctx, q, queue.NewUndo("u"))
			again := submit(ctx, q, queue.NewUndo("u2"))
			reset := submit(ctx, q, queue.NewReset("r"))

			convey.Convey("Then each gets its own result", func() {
				convey.So(edit.Err, convey.ShouldBeNil)
				convey.So(edit.Player.Tier, convey.ShouldEqual, model.Tier1)
				convey.So(undo.Err, convey.ShouldBeNil)
				convey.So(undo.Sale.PlayerID, convey.ShouldEqual, 2)
				convey.So(errors.Is(again.Err, auction.ErrNothingToUndo), convey.ShouldBeTrue)
				convey.So(reset.Err, convey.ShouldBeNil)
				convey.So(seen, convey.ShouldResemble, []queue.Kind{
					queue.KindSale, queue.KindEdit, queue.KindUndo, queue.KindUndo, queue.KindReset,
				})
			})
		})

		convey.Convey("When an edit carries an out-of-range rating", func() {
			r := submit(ctx, q, queue.NewEdit("e", 1, model.Ratings{Batting: 11}))

			convey.Convey("Then the rating constraint is reported", func() {
				convey.So(auction.ConstraintOf(r.Err), convey.ShouldEqual, auction.ConstraintRatingRange)
			})
		})

		convey.Convey("When the queue is closed", func() {
			convey.So(q.Close(), convey.ShouldBeNil)

			convey.Convey("Then the writer stops", func() {
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
				_, open := <-w.Done()
				convey.So(open, convey.ShouldBeFalse)
			})
		})
	})
}

func TestWriterConcurrentSales(t *testing.T) {
	convey.Convey("Given many callers racing to buy the same player", t, func() {
		st := newState()
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		w := worker.NewWriter(q, st)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		go w.Run(ctx)

		var (
			wg       sync.WaitGroup
			accepted atomic.Int32
			sold     atomic.Int32
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				team := model.TeamID("a")
				if i%2 == 1 {
					team = "b"
				}
				c := queue.NewSale("", 3, team, 6)
				if err := q.Enqueue(ctx, c); err != nil {
					return
				}
				r, err := c.Wait(ctx)
				if err != nil {
					return
				}
				if r.Err == nil {
					accepted.Add(1)
				} else if errors.Is(r.Err, auction.ErrAlreadySold) {
					sold.Add(1)
				}
			}(i)
		}
		wg.Wait()

		convey.Convey("Then exactly one sale wins", func() {
			convey.So(accepted.Load(), convey.ShouldEqual, 1)
			convey.So(sold.Load(), convey.ShouldEqual, 19)
			convey.So(st.Snapshot().History, convey.ShouldHaveLength, 1)
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of three goroutines", t, func() {
		p := worker.NewPool(3)
		convey.So(p.Size(), convey.ShouldEqual, 3)

		convey.Convey("When every job succeeds", func() {
			out := make([]int, 50)
			errs := p.Map(context.Background(), 50, func(_ context.Context, i int) error {
				out[i] = i * i
				return nil
			})

			convey.Convey("Then every slot is filled", func() {
				convey.So(errs, convey.ShouldHaveLength, 50)
				for i := range out {
					convey.So(errs[i], convey.ShouldBeNil)
					convey.So(out[i], convey.ShouldEqual, i*i)
				}
			})
		})

		convey.Convey("When one job fails and one panics", func() {
			boom := errors.New("boom")
			errs := p.Map(context.Background(), 5, func(_ context.Context, i int) error {
				switch i {
				case 1:
					return boom
				case 3:
					panic("bad player")
				}
				return nil
			})

			convey.Convey("Then only those slots carry errors", func() {
				convey.So(errs[0], convey.ShouldBeNil)
				convey.So(errors.Is(errs[1], boom), convey.ShouldBeTrue)
				convey.So(errs[2], convey.ShouldBeNil)
				convey.So(errors.Is(errs[3], worker.ErrJobPanic), convey.ShouldBeTrue)
				convey.So(errs[4], convey.ShouldBeNil)
			})
		})

		convey.Convey("When the context is already canceled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			var ran atomic.Int32
			errs := p.Map(ctx, 4, func(context.Context, int) error {
				ran.Add(1)
				return nil
			})

			convey.Convey("Then no job runs", func() {
				convey.So(ran.Load(), convey.ShouldEqual, 0)
				for _, err := range errs {
					convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
				}
			})
		})

		convey.Convey("When there is nothing to do", func() {
			convey.So(p.Map(context.Background(), 0, nil), convey.ShouldBeEmpty)
		})
	})
}
