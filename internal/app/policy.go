package service

import (
	"github.com/okian/bazaar/internal/config"
	"github.com/okian/bazaar/internal/domain/auction"
	"github.com/okian/bazaar/internal/domain/classify"
	"github.com/okian/bazaar/internal/domain/compete"
	"github.com/okian/bazaar/internal/domain/model"
	"github.com/okian/bazaar/internal/domain/optimizer"
	"github.com/okian/bazaar/internal/domain/projection"
	"github.com/okian/bazaar/internal/domain/recommend"
)

// policies is the engine configuration translated into domain terms.
type policies struct {
	rules      auction.Rules
	classifier *classify.Classifier
	recommend  recommend.Policy
	compete    compete.Policy
	projection projection.Policy
}

func policiesFrom(cfg *config.Config) policies {
	a, e := cfg.Auction, cfg.Engine

	req := optimizer.Requirements{
		MinBowlers: a.MinBowlers,
		RoleMinimums: map[model.Role]int{
			model.RoleBatsman:    a.RoleMinimums.Batsmen,
			model.RoleBowler:     a.RoleMinimums.Bowlers,
			model.RoleAllRounder: a.RoleMinimums.AllRounders,
		},
	}

	rec := recommend.DefaultPolicy()
	rec.MarginalWeight = e.MarginalWeight
	rec.MustBuy = e.MustBuy
	rec.GoodBuy = e.GoodBuy
	rec.TierBonus = map[model.Tier]float64{
		model.Tier1: e.TierBonus.Tier1,
		model.Tier2: e.TierBonus.Tier2,
		model.Tier3: e.TierBonus.Tier3,
		model.Tier4: e.TierBonus.Tier4,
	}
	rec.Requirements = req

	comp := compete.DefaultPolicy()
	comp.Weights = compete.Weights{
		Role:     e.Desire.Role,
		Scarcity: e.Desire.Scarcity,
		Tier:     e.Desire.Tier,
		Budget:   e.Desire.Budget,
		Slot:     e.Desire.Slot,
	}
	comp.ContendThreshold = e.ContendThreshold
	comp.PriceScale = e.PriceScale
	comp.Requirements = req

	return policies{
		rules: auction.Rules{
			Slots:     a.SlotsPerTeam,
			Budget:    model.Money(a.BudgetPerTeam),
			BasePrice: model.Money(a.BasePrice),
			Increment: model.Money(a.BidIncrement),
		},
		classifier: classify.New(
			classify.WithWeights(classify.Weights{
				Batting:  a.Weights.Batting,
				Bowling:  a.Weights.Bowling,
				Fielding: a.Weights.Fielding,
			}),
			classify.WithTierThresholds(a.Tiers.Tier1, a.Tiers.Tier2, a.Tiers.Tier3),
			classify.WithRoleThreshold(a.RoleThreshold),
		),
		recommend: rec,
		compete:   comp,
		projection: projection.Policy{
			Probability: map[compete.Level]float64{
				compete.LevelLow:      e.Probability.Low,
				compete.LevelModerate: e.Probability.Moderate,
				compete.LevelFierce:   e.Probability.Fierce,
			},
			TopN: e.PriorityTopN,
		},
	}
}
