package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/bazaar/internal/adapters/mq/queue"
	"github.com/okian/bazaar/internal/adapters/repository"
	service "github.com/okian/bazaar/internal/app"
	"github.com/okian/bazaar/internal/config"
	"github.com/okian/bazaar/internal/domain/auction"
	"github.com/okian/bazaar/internal/domain/model"
)

// recordingSink keeps the last rows exported per team.
type recordingSink struct {
	mu   sync.Mutex
	rows map[model.TeamID][]repository.Row
}

func newRecordingSink() *recordingSink {
	return &recordingSink{rows: map[model.TeamID][]repository.Row{}}
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) Export(_ context.Context, team model.TeamID, rows []repository.Row) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[team] = rows
	return nil
}

func (r *recordingSink) squad(team model.TeamID) []repository.Row {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[team]
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func submit(ctx context.Context, svc *service.Service, c queue.Command) queue.Result {
	if err := svc.Enqueue(ctx, c); err != nil {
		return queue.Result{Err: err}
	}
	r, err := c.Wait(ctx)
	if err != nil {
		return queue.Result{Err: err}
	}
	return r
}

func TestServiceIntegration(t *testing.T) {
	players, teams := seed(t)

	Convey("Given a started service exporting to a directory and a recording sink", t, func() {
		dir := t.TempDir()
		cfg := config.New()
		cfg.Export.Dir = dir
		sink := newRecordingSink()

		svc, err := service.New(cfg, players, teams,
			service.WithWorkerCount(2),
			service.WithQueueSize(64),
			service.WithSinks(sink),
		)
		So(err, ShouldBeNil)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then the starting squads are exported", func() {
			So(eventually(func() bool { return len(sink.squad("saurav")) == 2 }), ShouldBeTrue)
		})

		Convey("When a sale is applied", func() {
			r := submit(ctx, svc, queue.NewSale("s1", 3, "saurav", 20))
			So(r.Err, ShouldBeNil)
			So(r.Sale.Price, ShouldEqual, 20)

			Convey("Then the snapshot and stats reflect it", func() {
				snap := svc.Snapshot()
				team, _ := snap.Team("saurav")
				So(team.Spent, ShouldEqual, 20)
				So(team.Acquired, ShouldResemble, []model.PlayerID{3})

				stats := svc.GetStats()
				So(stats["sold"], ShouldEqual, 1)
				So(stats["unsold"], ShouldEqual, 35)
				So(stats["players"], ShouldEqual, 36)
				saurav := stats["teams"].(map[string]any)["saurav"].(map[string]any)
				So(saurav["spent"], ShouldEqual, int64(20))
				So(saurav["slotsLeft"], ShouldEqual, 8)
			})

			Convey("Then the roster files follow the ledger", func() {
				So(eventually(func() bool { return len(sink.squad("saurav")) == 3 }), ShouldBeTrue)
				path := filepath.Join(dir, "saurav_roster.csv")
				So(eventually(func() bool {
					data, err := os.ReadFile(path)
					return err == nil && len(data) > 0 && strings.Contains(string(data), "Kohli")
				}), ShouldBeTrue)
			})

			Convey("Then the same player cannot be sold twice", func() {
				r := submit(ctx, svc, queue.NewSale("s2", 3, "vishal", 25))
				So(errors.Is(r.Err, auction.ErrAlreadySold), ShouldBeTrue)
				So(auction.ConstraintOf(r.Err), ShouldNotBeEmpty)
			})

			Convey("Then undo returns the player to the pool", func() {
				r := submit(ctx, svc, queue.NewUndo("u1"))
				So(r.Err, ShouldBeNil)
				So(r.Sale.PlayerID, ShouldEqual, 3)
				So(svc.Snapshot().Pool(), ShouldHaveLength, 36)
			})
		})

		Convey("When the auction is reset", func() {
			So(svc.SeenAndRecord(ctx, "req-1"), ShouldBeFalse)
			So(submit(ctx, svc, queue.NewSale("s1", 3, "saurav", 20)).Err, ShouldBeNil)
			So(submit(ctx, svc, queue.NewReset("r1")).Err, ShouldBeNil)

			Convey("Then the ledger and the remembered request ids are cleared", func() {
				So(svc.Snapshot().Sold(), ShouldEqual, 0)
				So(svc.Size(), ShouldEqual, 0)
				So(svc.SeenAndRecord(ctx, "req-1"), ShouldBeFalse)
			})
		})

		Convey("When ratings are edited", func() {
			r := submit(ctx, svc, queue.NewEdit("e1", 3, model.Ratings{Batting: 10, Bowling: 0, Fielding: 10}))
			So(r.Err, ShouldBeNil)

			Convey("Then the player is reclassified", func() {
				So(r.Player.Overall, ShouldEqual, 6)
				kohli, _ := svc.Snapshot().Player(3)
				So(kohli.Overall, ShouldEqual, 6)
			})
		})

		Convey("When a prediction omits the team's own bid", func() {
			tbl, err := svc.BidTable(ctx, "saurav")
			So(err, ShouldBeNil)
			var own model.Money
			for _, rec := range tbl.Records {
				if rec.PlayerID == 3 {
					own = rec.Recommended
				}
			}
			So(own, ShouldBeGreaterThan, 0)

			implicit, err := svc.Predict(ctx, 3, "saurav", 0)
			So(err, ShouldBeNil)
			explicit, err := svc.Predict(ctx, 3, "saurav", own)
			So(err, ShouldBeNil)

			Convey("Then the recommended bid is used", func() {
				So(implicit, ShouldResemble, explicit)
			})
		})

		Convey("When a projection is requested", func() {
			proj, err := svc.Project(ctx, "saurav", 5)
			So(err, ShouldBeNil)

			Convey("Then it honours the requested priority length", func() {
				So(proj.Priority, ShouldHaveLength, 5)
				So(proj.SlotsLeft, ShouldEqual, 9)
				So(proj.Allocation.Total, ShouldBeLessThanOrEqualTo, proj.Remaining)
			})
		})

		Convey("When the team is unknown", func() {
			_, err := svc.Project(ctx, "nobody", 0)
			So(errors.Is(err, auction.ErrUnknownTeam), ShouldBeTrue)
			_, err = svc.BidTable(ctx, "nobody")
			So(errors.Is(err, auction.ErrUnknownTeam), ShouldBeTrue)
		})
	})
}

func TestServiceIntegration_ConcurrentSales(t *testing.T) {
	players, teams := seed(t)

	Convey("Given many concurrent bids for one player", t, func() {
		svc, err := service.New(config.New(), players, teams)
		So(err, ShouldBeNil)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted int
		)
		ids := []model.TeamID{"abhijeet", "saurav", "vishal", "pravakar"}
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				r := submit(ctx, svc, queue.NewSale("", 4, ids[i%len(ids)], model.Money(10+i)))
				if r.Err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one sale is accepted", func() {
			So(accepted, ShouldEqual, 1)
			So(svc.Snapshot().Sold(), ShouldEqual, 1)
		})
	})
}
