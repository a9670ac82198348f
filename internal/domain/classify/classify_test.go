package classify_test

import (
	"math"
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/bazaar/internal/domain/classify"
	"github.com/okian/bazaar/internal/domain/model"
)

func TestClassifier(t *testing.T) {
	Convey("Given the default classifier", t, func() {
		c := classify.New()

		Convey("When classifying batting 8, bowling 2, fielding 6", func() {
			p := c.Classify(model.Player{ID: 99, Ratings: model.Ratings{Batting: 8, Bowling: 2, Fielding: 6}})

			Convey("Then overall is 5.2, a tier 3 batsman", func() {
				So(p.Overall, ShouldEqual, 5.2)
				So(p.Role, ShouldEqual, model.RoleBatsman)
				So(p.Tier, ShouldEqual, model.Tier3)
			})
		})

		Convey("When both skills reach the role threshold", func() {
			So(c.Role(model.Ratings{Batting: 4, Bowling: 4}, model.CategoryAuction, 0), ShouldEqual, model.RoleAllRounder)
			So(c.Role(model.Ratings{Batting: 3.9, Bowling: 4}, model.CategoryAuction, 0), ShouldEqual, model.RoleBowler)
			So(c.Role(model.Ratings{Batting: 9, Bowling: 3.9}, model.CategoryAuction, 0), ShouldEqual, model.RoleBatsman)
		})

		Convey("When overall sits exactly on a tier boundary", func() {
			// 0.4*9 + 0.4*9 + 0.2*1.5 = 7.5
			p := c.Classify(model.Player{Ratings: model.Ratings{Batting: 9, Bowling: 9, Fielding: 1.5}})

			Convey("Then the lower bound is inclusive", func() {
				So(p.Overall, ShouldEqual, 7.5)
				So(p.Tier, ShouldEqual, model.Tier1)
				So(c.Tier(5.5, model.CategoryAuction), ShouldEqual, model.Tier2)
				So(c.Tier(3.5, model.CategoryAuction), ShouldEqual, model.Tier3)
				So(c.Tier(3.499, model.CategoryAuction), ShouldEqual, model.Tier4)
			})
		})

		Convey("When classifying captains and vice-captains", func() {
			captain := c.Classify(model.Player{
				Category:  model.CategoryCaptain,
				FixedRole: model.RoleBowler,
				Ratings:   model.Ratings{Batting: 9, Bowling: 0, Fielding: 0},
			})
			vc := c.Classify(model.Player{
				Category:  model.CategoryViceCaptain,
				FixedRole: model.RoleBatsman,
				Ratings:   model.Ratings{Batting: 0, Bowling: 1, Fielding: 1},
			})

			Convey("Then the role is fixed and the tier is 1 regardless of ratings", func() {
				So(captain.Role, ShouldEqual, model.RoleBowler)
				So(captain.Tier, ShouldEqual, model.Tier1)
				So(vc.Role, ShouldEqual, model.RoleBatsman)
				So(vc.Tier, ShouldEqual, model.Tier1)
				So(vc.Overall, ShouldEqual, 0.6)
			})
		})

		Convey("When classifying random ratings repeatedly", func() {
			rng := rand.New(rand.NewSource(7))
			w := c.Weights()

			Convey("Then overall matches the weighted sum and classification is idempotent", func() {
				for i := 0; i < 500; i++ {
					r := model.Ratings{
						Batting:  math.Round(rng.Float64()*100) / 10,
						Bowling:  math.Round(rng.Float64()*100) / 10,
						Fielding: math.Round(rng.Float64()*100) / 10,
					}
					once := c.Classify(model.Player{Ratings: r})
					twice := c.Classify(once)
					want := w.Batting*r.Batting + w.Bowling*r.Bowling + w.Fielding*r.Fielding

					So(math.Abs(once.Overall-want), ShouldBeLessThan, 1e-6)
					So(twice, ShouldResemble, once)
				}
			})
		})
	})

	Convey("Given a classifier with custom weights and thresholds", t, func() {
		c := classify.New(
			classify.WithWeights(classify.Weights{Batting: 0.5, Bowling: 0.3, Fielding: 0.2}),
			classify.WithTierThresholds(8, 6, 4),
			classify.WithRoleThreshold(5),
		)
		p := c.Classify(model.Player{Ratings: model.Ratings{Batting: 8, Bowling: 4, Fielding: 6}})

		Convey("Then the options are honoured", func() {
			So(p.Overall, ShouldEqual, 6.4)
			So(p.Tier, ShouldEqual, model.Tier2)
			So(p.Role, ShouldEqual, model.RoleBatsman)
			So(c.CanBowl(p), ShouldBeFalse)
		})

		Convey("And invalid options are ignored", func() {
			d := classify.New(classify.WithTierThresholds(1, 2, 3), classify.WithRoleThreshold(-1))
			So(d.Tier(7.5, model.CategoryAuction), ShouldEqual, model.Tier1)
			So(d.CanBowl(model.Player{Ratings: model.Ratings{Bowling: 4}}), ShouldBeTrue)
		})
	})
}
