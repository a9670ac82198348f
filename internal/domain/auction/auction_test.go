package auction_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/bazaar/internal/domain/auction"
	"github.com/okian/bazaar/internal/domain/classify"
	"github.com/okian/bazaar/internal/domain/model"
)

var testRules = auction.Rules{Slots: 9, Budget: 100, BasePrice: 5, Increment: 1}

func testTeams() []model.Team {
	return []model.Team{{ID: "a", Name: "Team A"}, {ID: "b", Name: "Team B"}, {ID: "c", Name: "Team C"}, {ID: "d", Name: "Team D"}}
}

func testPlayers() []model.Player {
	players := []model.Player{
		{ID: 1, Name: "X", Ratings: model.Ratings{Batting: 8, Bowling: 2, Fielding: 6}},
		{ID: 100, Name: "Captain A", Category: model.CategoryCaptain, FixedRole: model.RoleAllRounder, HomeTeam: "a", Ratings: model.Ratings{Batting: 6, Bowling: 6, Fielding: 6}},
	}
	for i := 2; i <= 30; i++ {
		players = append(players, model.Player{
			ID:      model.PlayerID(i),
			Name:    fmt.Sprintf("P%d", i),
			Ratings: model.Ratings{Batting: float64(i % 10), Bowling: float64((i * 3) % 10), Fielding: float64((i * 7) % 10)},
		})
	}
	return players
}

func newState(opts ...auction.Option) *auction.State {
	clock := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	seq := 0
	opts = append([]auction.Option{
		auction.WithClock(func() time.Time { return clock }),
		auction.WithEventIDs(func() string { seq++; return fmt.Sprintf("evt-%d", seq) }),
	}, opts...)
	s, err := auction.New(testRules, classify.New(), testPlayers(), testTeams(), opts...)
	So(err, ShouldBeNil)
	return s
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	So(err, ShouldBeNil)
	return string(b)
}

func TestRules(t *testing.T) {
	Convey("Given the default rules", t, func() {
		Convey("Then the hard cap keeps base price for every other slot", func() {
			So(testRules.HardCap(100, 9), ShouldEqual, 60)
			So(testRules.HardCap(80, 8), ShouldEqual, 45)
			So(testRules.HardCap(12, 1), ShouldEqual, 12)
			So(testRules.StartHardCap(), ShouldEqual, 60)
		})

		Convey("Then prices align on the increment above base", func() {
			r := auction.Rules{Slots: 2, Budget: 100, BasePrice: 5, Increment: 5}
			So(r.Aligned(5), ShouldBeTrue)
			So(r.Aligned(15), ShouldBeTrue)
			So(r.Aligned(12), ShouldBeFalse)
		})

		Convey("Then impossible rules are rejected", func() {
			err := auction.Rules{Slots: 9, Budget: 40, BasePrice: 5, Increment: 1}.Validate()
			So(errors.Is(err, auction.ErrInvalidRoster), ShouldBeTrue)
			So(auction.Rules{Slots: 0, Budget: 40, BasePrice: 5, Increment: 1}.Validate(), ShouldNotBeNil)
			So(auction.Rules{Slots: 1, Budget: 40, BasePrice: 5, Increment: 0}.Validate(), ShouldNotBeNil)
		})
	})
}

func TestNew(t *testing.T) {
	Convey("Given a seed roster", t, func() {
		Convey("When the state is created", func() {
			s := newState()
			snap := s.Snapshot()

			Convey("Then players are classified and captains attached to their team", func() {
				x, ok := snap.Player(1)
				So(ok, ShouldBeTrue)
				So(x.Overall, ShouldEqual, 5.2)
				So(x.Role, ShouldEqual, model.RoleBatsman)
				So(x.Tier, ShouldEqual, model.Tier3)

				a, _ := snap.Team("a")
				So(a.Fixed, ShouldResemble, []model.PlayerID{100})
				So(a.Remaining(), ShouldEqual, 100)
				So(a.SlotsLeft(), ShouldEqual, 9)

				capt, _ := snap.Player(100)
				So(capt.Tier, ShouldEqual, model.Tier1)
				So(capt.TeamID, ShouldEqual, model.TeamID("a"))
				So(capt.InPool(), ShouldBeFalse)
				So(len(snap.Pool()), ShouldEqual, 30)
			})
		})

		Convey("When the seed is inconsistent", func() {
			dup := append(testPlayers(), model.Player{ID: 1, Name: "again"})
			_, err := auction.New(testRules, nil, dup, testTeams())
			So(errors.Is(err, auction.ErrInvalidRoster), ShouldBeTrue)

			orphan := append(testPlayers(), model.Player{ID: 200, Category: model.CategoryViceCaptain, HomeTeam: "zz"})
			_, err = auction.New(testRules, nil, orphan, testTeams())
			So(errors.Is(err, auction.ErrInvalidRoster), ShouldBeTrue)

			bad := append(testPlayers(), model.Player{ID: 201, Ratings: model.Ratings{Batting: 11}})
			_, err = auction.New(testRules, nil, bad, testTeams())
			So(errors.Is(err, auction.ErrRatingOutOfRange), ShouldBeTrue)

			_, err = auction.New(testRules, nil, testPlayers(), nil)
			So(errors.Is(err, auction.ErrInvalidRoster), ShouldBeTrue)
		})
	})
}

func TestSale(t *testing.T) {
	Convey("Given four teams with 9 slots and budget 100", t, func() {
		s := newState()

		Convey("When X is sold to Team A for 20", func() {
			sale, err := s.Sale(1, "a", 20)
			So(err, ShouldBeNil)
			So(sale.EventID, ShouldEqual, "evt-1")

			snap := s.Snapshot()
			a, _ := snap.Team("a")
			x, _ := snap.Player(1)

			Convey("Then Team A has 80 left and 8 open slots", func() {
				So(a.Remaining(), ShouldEqual, 80)
				So(a.SlotsLeft(), ShouldEqual, 8)
				So(a.Acquired, ShouldResemble, []model.PlayerID{1})
				So(x.Status, ShouldEqual, model.StatusSold)
				So(x.TeamID, ShouldEqual, model.TeamID("a"))
				So(x.Price, ShouldEqual, 20)
				So(snap.History, ShouldHaveLength, 1)
				So(snap.HardCap(a), ShouldEqual, 45)
			})

			Convey("And a sale at 46 is rejected by the hard cap of 45", func() {
				before := mustJSON(s.Snapshot())
				_, err := s.Sale(2, "a", 46)
				So(errors.Is(err, auction.ErrOverHardCap), ShouldBeTrue)
				So(auction.ConstraintOf(err), ShouldEqual, auction.ConstraintOverHardCap)
				So(mustJSON(s.Snapshot()), ShouldEqual, before)

				_, err = s.Sale(2, "a", 45)
				So(err, ShouldBeNil)
			})

			Convey("And X cannot be sold again", func() {
				_, err := s.Sale(1, "b", 10)
				So(errors.Is(err, auction.ErrAlreadySold), ShouldBeTrue)
			})
		})

		Convey("When sale arguments are invalid", func() {
			before := mustJSON(s.Snapshot())
			cases := []struct {
				player     model.PlayerID
				team       model.TeamID
				price      model.Money
				constraint string
				kind       error
			}{
				{999, "a", 10, auction.ConstraintUnknownPlayer, auction.ErrUnknownPlayer},
				{1, "zz", 10, auction.ConstraintUnknownTeam, auction.ErrUnknownTeam},
				{100, "b", 10, auction.ConstraintNotInPool, auction.ErrNotInPool},
				{1, "a", 4, auction.ConstraintBelowBase, auction.ErrBelowBasePrice},
				{1, "a", 61, auction.ConstraintOverHardCap, auction.ErrOverHardCap},
			}
			for _, c := range cases {
				_, err := s.Sale(c.player, c.team, c.price)
				So(errors.Is(err, c.kind), ShouldBeTrue)
				So(auction.ConstraintOf(err), ShouldEqual, c.constraint)
			}

			Convey("Then nothing changes", func() {
				So(mustJSON(s.Snapshot()), ShouldEqual, before)
			})
		})

		Convey("When a rejection kind arrives without a validation error", func() {
			wrapped := fmt.Errorf("%w: %d", auction.ErrNotInPool, 100)

			Convey("Then its constraint is still named", func() {
				So(auction.ConstraintOf(wrapped), ShouldEqual, auction.ConstraintNotInPool)
				So(auction.ConstraintOf(fmt.Errorf("%w: %q", auction.ErrTeamFull, "b")), ShouldEqual, auction.ConstraintTeamFull)
				So(auction.ConstraintOf(errors.New("disk on fire")), ShouldBeEmpty)
			})
		})

		Convey("When the increment is coarser than one", func() {
			r := auction.Rules{Slots: 9, Budget: 100, BasePrice: 5, Increment: 5}
			st, err := auction.New(r, nil, testPlayers(), testTeams())
			So(err, ShouldBeNil)
			_, err = st.Sale(1, "a", 12)
			So(errors.Is(err, auction.ErrPriceNotAligned), ShouldBeTrue)
			_, err = st.Sale(1, "a", 15)
			So(err, ShouldBeNil)
		})

		Convey("When a team fills every slot", func() {
			for id := model.PlayerID(2); id <= 10; id++ {
				_, err := s.Sale(id, "b", 5)
				So(err, ShouldBeNil)
			}
			_, err := s.Sale(11, "b", 5)

			Convey("Then further sales report team full", func() {
				So(errors.Is(err, auction.ErrTeamFull), ShouldBeTrue)
				b, _ := s.Snapshot().Team("b")
				So(b.SlotsLeft(), ShouldEqual, 0)
				So(b.Remaining(), ShouldEqual, 55)
			})
		})
	})
}

func TestUndoEditReset(t *testing.T) {
	Convey("Given a state with interleaved edits", t, func() {
		s := newState()
		_, err := s.EditRating(3, model.Ratings{Batting: 9, Bowling: 9, Fielding: 9})
		So(err, ShouldBeNil)
		_, err = s.Sale(4, "c", 12)
		So(err, ShouldBeNil)
		_, err = s.EditRating(5, model.Ratings{Batting: 1, Bowling: 7, Fielding: 2})
		So(err, ShouldBeNil)
		before := mustJSON(s.Snapshot())

		Convey("When a sale is undone", func() {
			_, err := s.Sale(1, "a", 20)
			So(err, ShouldBeNil)
			undone, err := s.Undo()

			Convey("Then the state is byte-for-byte the pre-sale snapshot", func() {
				So(err, ShouldBeNil)
				So(undone.PlayerID, ShouldEqual, 1)
				So(mustJSON(s.Snapshot()), ShouldEqual, before)
			})
		})

		Convey("When ratings are edited between a sale and its undo", func() {
			_, err := s.Sale(1, "a", 20)
			So(err, ShouldBeNil)
			_, err = s.EditRating(6, model.Ratings{Batting: 10, Bowling: 10, Fielding: 10})
			So(err, ShouldBeNil)
			_, err = s.EditRating(1, model.Ratings{Batting: 3, Bowling: 5, Fielding: 5})
			So(err, ShouldBeNil)
			_, err = s.Undo()
			So(err, ShouldBeNil)
			snap := s.Snapshot()

			Convey("Then only the sale is reversed and the edits stay", func() {
				other, _ := snap.Player(6)
				So(other.Ratings, ShouldResemble, model.Ratings{Batting: 10, Bowling: 10, Fielding: 10})
				So(other.Overall, ShouldEqual, 10)
				So(other.Tier, ShouldEqual, model.Tier1)

				sold, _ := snap.Player(1)
				So(sold.Status, ShouldEqual, model.StatusUnsold)
				So(sold.TeamID, ShouldEqual, model.TeamID(""))
				So(sold.Price, ShouldEqual, 0)
				So(sold.Overall, ShouldEqual, 4.2)

				a, _ := snap.Team("a")
				So(a.Remaining(), ShouldEqual, 100)
				So(a.Acquired, ShouldBeEmpty)
				So(snap.History, ShouldHaveLength, 1)
				So(snap.History[0].PlayerID, ShouldEqual, 4)
			})
		})

		Convey("When undo runs past the history", func() {
			_, err := s.Undo()
			So(err, ShouldBeNil)
			snap := mustJSON(s.Snapshot())
			_, err = s.Undo()

			Convey("Then it fails without changing anything", func() {
				So(errors.Is(err, auction.ErrNothingToUndo), ShouldBeTrue)
				So(mustJSON(s.Snapshot()), ShouldEqual, snap)
			})
		})

		Convey("When a rating is edited", func() {
			p, err := s.EditRating(1, model.Ratings{Batting: 3, Bowling: 5, Fielding: 5})
			So(err, ShouldBeNil)

			Convey("Then derived fields follow the ratings", func() {
				So(p.Overall, ShouldEqual, 4.2)
				So(p.Role, ShouldEqual, model.RoleBowler)
				So(p.Tier, ShouldEqual, model.Tier3)
			})

			Convey("And out-of-range ratings are rejected", func() {
				_, err := s.EditRating(1, model.Ratings{Batting: 10.5})
				So(errors.Is(err, auction.ErrRatingOutOfRange), ShouldBeTrue)
				So(auction.ConstraintOf(err), ShouldEqual, auction.ConstraintRatingRange)
				_, err = s.EditRating(404, model.Ratings{})
				So(errors.Is(err, auction.ErrUnknownPlayer), ShouldBeTrue)
			})
		})

		Convey("When the auction is reset", func() {
			s.Reset()
			fresh := newState()

			Convey("Then it matches a freshly created state", func() {
				So(mustJSON(s.Snapshot()), ShouldEqual, mustJSON(fresh.Snapshot()))
				_, err := s.Undo()
				So(errors.Is(err, auction.ErrNothingToUndo), ShouldBeTrue)
			})
		})
	})
}

func TestInvariants(t *testing.T) {
	Convey("Given a random sequence of sales and undos", t, func() {
		s := newState()
		rng := rand.New(rand.NewSource(42))
		teams := []model.TeamID{"a", "b", "c", "d"}

		for step := 0; step < 300; step++ {
			if rng.Intn(4) == 0 {
				_, _ = s.Undo()
				continue
			}
			_, _ = s.Sale(model.PlayerID(1+rng.Intn(30)), teams[rng.Intn(4)], model.Money(5+rng.Intn(30)))

			snap := s.Snapshot()
			owner := map[model.PlayerID]model.TeamID{}
			for _, tm := range snap.Teams {
				So(tm.Spent, ShouldBeLessThanOrEqualTo, tm.Budget)
				So(tm.SlotsLeft()+len(tm.Acquired), ShouldEqual, tm.Slots)
				So(tm.SlotsLeft(), ShouldBeGreaterThanOrEqualTo, 0)
				for _, id := range tm.Acquired {
					_, dup := owner[id]
					So(dup, ShouldBeFalse)
					owner[id] = tm.ID
				}
			}
			for _, p := range snap.Players {
				if p.Category != model.CategoryAuction {
					continue
				}
				team, owned := owner[p.ID]
				if p.Status == model.StatusSold {
					So(owned, ShouldBeTrue)
					So(team, ShouldEqual, p.TeamID)
				} else {
					So(owned, ShouldBeFalse)
				}
			}
		}
	})
}
