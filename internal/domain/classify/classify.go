// Package classify derives a player's overall score, role and tier from
// raw ratings. Everything here is pure and idempotent.
package classify

import (
	"github.com/shopspring/decimal"

	"github.com/okian/bazaar/internal/domain/model"
)

// overallPrecision is the number of decimal places kept in Overall; tier
// boundaries compare against the rounded value.
const overallPrecision int32 = 6

// Default classification parameters.
const (
	defaultBattingWeight  = 0.40
	defaultBowlingWeight  = 0.40
	defaultFieldingWeight = 0.20
	defaultRoleThreshold  = 4.0
	defaultTier1          = 7.5
	defaultTier2          = 5.5
	defaultTier3          = 3.5
)

// Weights are the overall-score weights.
type Weights struct {
	Batting  float64
	Bowling  float64
	Fielding float64
}

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithWeights overrides the rating weights.
func WithWeights(w Weights) Option {
	return func(c *Classifier) {
		if w.Batting >= 0 && w.Bowling >= 0 && w.Fielding >= 0 && w.Batting+w.Bowling+w.Fielding > 0 {
			c.weights = w
		}
	}
}

// WithTierThresholds overrides the inclusive lower bounds of tiers 1 to 3.
func WithTierThresholds(tier1, tier2, tier3 float64) Option {
	return func(c *Classifier) {
		if tier1 > tier2 && tier2 > tier3 {
			c.tiers = [3]float64{tier1, tier2, tier3}
		}
	}
}

// WithRoleThreshold sets the rating from which a skill counts for the role.
func WithRoleThreshold(threshold float64) Option {
	return func(c *Classifier) {
		if threshold > 0 {
			c.roleThreshold = threshold
		}
	}
}

// Classifier holds the immutable weights and thresholds.
type Classifier struct {
	weights       Weights
	roleThreshold float64
	tiers         [3]float64
}

// New creates a Classifier with the default 40/40/20 weighting.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		weights:       Weights{Batting: defaultBattingWeight, Bowling: defaultBowlingWeight, Fielding: defaultFieldingWeight},
		roleThreshold: defaultRoleThreshold,
		tiers:         [3]float64{defaultTier1, defaultTier2, defaultTier3},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Overall is the weighted sum of the ratings.
func (c *Classifier) Overall(r model.Ratings) float64 {
	sum := decimal.NewFromFloat(r.Batting).Mul(decimal.NewFromFloat(c.weights.Batting)).
		Add(decimal.NewFromFloat(r.Bowling).Mul(decimal.NewFromFloat(c.weights.Bowling))).
		Add(decimal.NewFromFloat(r.Fielding).Mul(decimal.NewFromFloat(c.weights.Fielding)))
	return sum.Round(overallPrecision).InexactFloat64()
}

// Role derives the role from ratings; fixed categories keep their assigned role.
func (c *Classifier) Role(r model.Ratings, category model.Category, fixed model.Role) model.Role {
	if category.Fixed() {
		return fixed
	}
	bats := r.Batting >= c.roleThreshold
	bowls := r.Bowling >= c.roleThreshold
	switch {
	case bats && bowls:
		return model.RoleAllRounder
	case bowls:
		return model.RoleBowler
	default:
		return model.RoleBatsman
	}
}

// Tier maps an overall score onto the tier thresholds, top-down.
// Captains and vice-captains are always tier 1.
func (c *Classifier) Tier(overall float64, category model.Category) model.Tier {
	if category.Fixed() {
		return model.Tier1
	}
	switch {
	case overall >= c.tiers[0]:
		return model.Tier1
	case overall >= c.tiers[1]:
		return model.Tier2
	case overall >= c.tiers[2]:
		return model.Tier3
	default:
		return model.Tier4
	}
}

// Classify returns p with Overall, Role and Tier recomputed.
func (c *Classifier) Classify(p model.Player) model.Player {
	p.Overall = c.Overall(p.Ratings)
	p.Role = c.Role(p.Ratings, p.Category, p.FixedRole)
	p.Tier = c.Tier(p.Overall, p.Category)
	return p
}

// CanBowl reports whether the player counts toward the bowling minimum,
// independent of the assigned role.
func (c *Classifier) CanBowl(p model.Player) bool {
	return p.Ratings.Bowling >= c.roleThreshold
}

// Weights returns the configured weights.
func (c *Classifier) Weights() Weights { return c.weights }
