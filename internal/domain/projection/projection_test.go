package projection_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/bazaar/internal/domain/auction"
	"github.com/okian/bazaar/internal/domain/classify"
	"github.com/okian/bazaar/internal/domain/model"
	"github.com/okian/bazaar/internal/domain/optimizer"
	"github.com/okian/bazaar/internal/domain/projection"
)

func seed() []model.Player {
	var players []model.Player
	for i := 1; i <= 16; i++ {
		players = append(players, model.Player{
			ID:      model.PlayerID(i),
			Name:    fmt.Sprintf("P%d", i),
			Ratings: model.Ratings{Batting: float64((i * 7) % 11), Bowling: float64((i * 5) % 11), Fielding: float64(i % 9)},
		})
	}
	players = append(players,
		model.Player{ID: 50, Name: "Capt A", Category: model.CategoryCaptain, FixedRole: model.RoleBatsman, HomeTeam: "a", Ratings: model.Ratings{Batting: 8, Bowling: 2, Fielding: 6}},
		model.Player{ID: 51, Name: "VC A", Category: model.CategoryViceCaptain, FixedRole: model.RoleBowler, HomeTeam: "a", Ratings: model.Ratings{Batting: 3, Bowling: 7, Fielding: 5}},
	)
	return players
}

func TestProject(t *testing.T) {
	Convey("Given a four-team auction with one sale made", t, func() {
		cls := classify.New()
		teams := []model.Team{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
		st, err := auction.New(auction.Rules{Slots: 3, Budget: 40, BasePrice: 5, Increment: 1}, cls, seed(), teams)
		So(err, ShouldBeNil)
		_, err = st.Sale(4, "a", 12)
		So(err, ShouldBeNil)
		snap := st.Snapshot()
		pr := projection.New(cls, nil, nil)

		proj, err := pr.Project(context.Background(), snap, "a", 0)
		So(err, ShouldBeNil)

		Convey("Then the current squad holds captain, vice-captain and the buy", func() {
			So(proj.Current.Players, ShouldHaveLength, 3)
			So(proj.SlotsLeft, ShouldEqual, 2)
			So(proj.Remaining, ShouldEqual, 28)
		})

		Convey("Then the dream roster is the plain optimizer result", func() {
			n, ok := optimizer.Analyze(snap, "a", cls, optimizer.DefaultRequirements())
			So(ok, ShouldBeTrue)
			want := optimizer.Solve(optimizer.ForTeam(snap, n, cls))
			So(proj.Dream.Solve.Selected, ShouldResemble, want.Selected)
			So(proj.Dream.Picks, ShouldHaveLength, 2)
			So(proj.Dream.Squad.Players, ShouldHaveLength, 5)
		})

		Convey("Then the realistic roster never scores above the dream", func() {
			So(proj.Realistic.Score, ShouldBeLessThanOrEqualTo, proj.Dream.Score)
			So(proj.Realistic.PickTotal, ShouldBeLessThanOrEqualTo, proj.Dream.PickTotal)
			So(proj.Realistic.Picks, ShouldHaveLength, 2)
		})

		Convey("Then priority targets are ranked by expected value", func() {
			So(proj.Priority, ShouldHaveLength, 10)
			for i, tg := range proj.Priority {
				So(tg.Rank, ShouldEqual, i+1)
				if i > 0 {
					So(proj.Priority[i-1].ExpectedValue, ShouldBeGreaterThanOrEqualTo, tg.ExpectedValue)
				}
			}
		})

		Convey("Then the allocation fits the remaining budget", func() {
			a := proj.Allocation
			So(a.Total, ShouldBeLessThanOrEqualTo, proj.Remaining)
			So(len(a.Contested)+a.Fillers, ShouldEqual, proj.SlotsLeft)
		})

		Convey("When a smaller priority list is requested", func() {
			small, err := pr.Project(context.Background(), snap, "a", 3)
			So(err, ShouldBeNil)
			So(small.Priority, ShouldHaveLength, 3)
			So(small.Priority[0], ShouldResemble, proj.Priority[0])
		})

		Convey("When the team is unknown", func() {
			_, err := pr.Project(context.Background(), snap, "zz", 0)
			So(errors.Is(err, auction.ErrUnknownTeam), ShouldBeTrue)
		})
	})
}
