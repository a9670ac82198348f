// Package compete predicts which rival teams will chase a player and what
// the player is likely to sell for. Predictions are advisory and depend
// only on the snapshot they are given.
package compete

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/okian/bazaar/internal/domain/auction"
	"github.com/okian/bazaar/internal/domain/classify"
	"github.com/okian/bazaar/internal/domain/model"
	"github.com/okian/bazaar/internal/domain/optimizer"
	"github.com/okian/bazaar/pkg/metrics"
)

// Level classifies the expected competition for a player.
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelFierce   Level = "fierce"
)

// Reason is the dominant factor behind a rival's interest.
type Reason string

const (
	ReasonRoleNeed Reason = "role-need"
	ReasonScarcity Reason = "scarcity"
	ReasonTier     Reason = "tier"
	ReasonBudget   Reason = "budget"
)

// Weights weight the desire factors.
type Weights struct {
	Role     float64
	Scarcity float64
	Tier     float64
	Budget   float64
	Slot     float64
}

// Policy holds the prediction coefficients.
type Policy struct {
	Weights          Weights
	ContendThreshold float64
	// PriceScale converts aggregate desire into currency above base.
	PriceScale float64
	// Spread is the fraction of the predicted price added for the range top.
	Spread float64

	FierceContenders   int
	FierceAggregate    float64
	ModerateContenders int
	ModerateAggregate  float64

	TierAppeal   map[model.Tier]float64
	Requirements optimizer.Requirements
}

// DefaultPolicy returns the documented coefficients.
func DefaultPolicy() Policy {
	return Policy{
		Weights:            Weights{Role: 3.0, Scarcity: 2.0, Tier: 3.0, Budget: 1.5, Slot: 1.5},
		ContendThreshold:   3.0,
		PriceScale:         1.0,
		Spread:             0.25,
		FierceContenders:   3,
		FierceAggregate:    18,
		ModerateContenders: 2,
		ModerateAggregate:  9,
		TierAppeal:         map[model.Tier]float64{model.Tier1: 1.0, model.Tier2: 0.6, model.Tier3: 0.25, model.Tier4: 0},
		Requirements:       optimizer.DefaultRequirements(),
	}
}

// Factors are the normalized inputs of one rival's desire, each in [0,1].
type Factors struct {
	RoleNeed float64 `json:"role_need"`
	Scarcity float64 `json:"scarcity"`
	Tier     float64 `json:"tier"`
	Budget   float64 `json:"budget"`
	Slot     float64 `json:"slot"`
}

// Rival is one other team's predicted interest.
type Rival struct {
	TeamID   model.TeamID `json:"team_id"`
	Desire   float64      `json:"desire"`
	Contends bool         `json:"contends"`
	Reason   Reason       `json:"reason"`
	Factors  Factors      `json:"factors"`
	HardCap  model.Money  `json:"hard_cap"`
}

// Prediction is the competitive outlook for one player.
type Prediction struct {
	PlayerID    model.PlayerID `json:"player_id"`
	TeamID      model.TeamID   `json:"team_id"`
	Rivals      []Rival        `json:"rivals"`
	Contenders  []model.TeamID `json:"contenders"`
	Aggregate   float64        `json:"aggregate_desire"`
	Predicted   model.Money    `json:"predicted_price"`
	Low         model.Money    `json:"low"`
	High        model.Money    `json:"high"`
	Level       Level          `json:"level"`
	MaxRivalCap model.Money    `json:"max_rival_hard_cap"`
}

// Option applies a configuration option to the Predictor.
type Option func(*Predictor)

// WithPolicy overrides the coefficients.
func WithPolicy(p Policy) Option {
	return func(pr *Predictor) { pr.policy = p }
}

// Predictor is stateless apart from its configuration.
type Predictor struct {
	cls    *classify.Classifier
	policy Policy
}

// New creates a Predictor.
func New(cls *classify.Classifier, opts ...Option) *Predictor {
	if cls == nil {
		cls = classify.New()
	}
	p := &Predictor{cls: cls, policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// rivalView is a rival's needs, computed once per snapshot.
type rivalView struct {
	team  model.Team
	needs optimizer.Needs
}

func (pr *Predictor) rivals(snap auction.Snapshot, teamID model.TeamID) ([]rivalView, error) {
	if _, ok := snap.Team(teamID); !ok {
		return nil, fmt.Errorf("%w: %q", auction.ErrUnknownTeam, teamID)
	}
	var out []rivalView
	for _, t := range snap.Rivals(teamID) {
		if t.SlotsLeft() <= 0 || t.Remaining() < snap.Rules.BasePrice {
			continue
		}
		n, _ := optimizer.Analyze(snap, t.ID, pr.cls, pr.policy.Requirements)
		out = append(out, rivalView{team: t, needs: n})
	}
	return out, nil
}

// Predict returns the outlook for one unsold player as seen by teamID.
// ownBid is the requesting team's recommended bid, or zero when unknown.
func (pr *Predictor) Predict(snap auction.Snapshot, teamID model.TeamID, playerID model.PlayerID, ownBid model.Money) (Prediction, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDerivationLatency("prediction", float64(time.Since(start).Microseconds())/1000)
	}()

	p, ok := snap.Player(playerID)
	if !ok {
		return Prediction{}, fmt.Errorf("%w: %d", auction.ErrUnknownPlayer, playerID)
	}
	if !p.InPool() {
		return Prediction{}, fmt.Errorf("%w: %d", auction.ErrNotInPool, playerID)
	}
	views, err := pr.rivals(snap, teamID)
	if err != nil {
		return Prediction{}, err
	}
	return pr.predict(snap, teamID, p, views, ownBid), nil
}

// PredictPool returns a prediction for every unsold player.
func (pr *Predictor) PredictPool(snap auction.Snapshot, teamID model.TeamID) (map[model.PlayerID]Prediction, error) {
	views, err := pr.rivals(snap, teamID)
	if err != nil {
		return nil, err
	}
	pool := snap.Pool()
	out := make(map[model.PlayerID]Prediction, len(pool))
	for _, p := range pool {
		out[p.ID] = pr.predict(snap, teamID, p, views, 0)
	}
	return out, nil
}

func (pr *Predictor) predict(snap auction.Snapshot, teamID model.TeamID, p model.Player, views []rivalView, ownBid model.Money) Prediction {
	rules := snap.Rules
	pred := Prediction{
		PlayerID:   p.ID,
		TeamID:     teamID,
		Rivals:     make([]Rival, 0, len(views)),
		Contenders: []model.TeamID{},
	}

	aggregate := decimal.Zero
	for _, v := range views {
		r := pr.rival(snap, p, v)
		pred.Rivals = append(pred.Rivals, r)
		aggregate = aggregate.Add(decimal.NewFromFloat(r.Desire))
		if r.HardCap > pred.MaxRivalCap {
			pred.MaxRivalCap = r.HardCap
		}
	}
	sort.SliceStable(pred.Rivals, func(i, j int) bool { return pred.Rivals[i].Desire > pred.Rivals[j].Desire })
	for _, r := range pred.Rivals {
		if r.Contends {
			pred.Contenders = append(pred.Contenders, r.TeamID)
		}
	}
	pred.Aggregate = aggregate.Round(4).InexactFloat64()

	price := decimal.NewFromInt(int64(rules.BasePrice)).Add(aggregate.Mul(decimal.NewFromFloat(pr.policy.PriceScale)))
	pred.Predicted = rules.ToGrid(price)
	if len(views) > 0 && pred.Predicted > pred.MaxRivalCap {
		pred.Predicted = max(pred.MaxRivalCap, rules.BasePrice)
	}

	pred.Low = rules.BasePrice
	if ownBid > 0 && ownBid < pred.Low {
		pred.Low = ownBid
	}
	spread := decimal.NewFromInt(int64(pred.Predicted)).Mul(decimal.NewFromFloat(pr.policy.Spread))
	if inc := decimal.NewFromInt(int64(rules.Increment)); spread.LessThan(inc) {
		spread = inc
	}
	pred.High = rules.ToGrid(decimal.NewFromInt(int64(pred.Predicted)).Add(spread))

	pred.Level = pr.level(len(pred.Contenders), pred.Aggregate)
	return pred
}

func (pr *Predictor) rival(snap auction.Snapshot, p model.Player, v rivalView) Rival {
	w := pr.policy.Weights
	n := v.needs
	canBowl := pr.cls.CanBowl(p)
	rules := snap.Rules

	var f Factors
	if target := pr.policy.Requirements.RoleMinimums[p.Role]; target > 0 {
		f.RoleNeed = float64(n.RoleGaps[p.Role]) / float64(target)
	}
	if canBowl && pr.policy.Requirements.MinBowlers > 0 {
		f.RoleNeed = max(f.RoleNeed, float64(n.BowlersNeeded)/float64(pr.policy.Requirements.MinBowlers))
	}
	if canBowl && n.BowlersNeeded > 0 && n.PoolBowlers > 0 {
		f.Scarcity = 1 / float64(n.PoolBowlers)
	}
	f.Tier = pr.policy.TierAppeal[p.Tier]
	if span := rules.StartHardCap() - rules.BasePrice; span > 0 {
		f.Budget = clamp(float64(n.HardCap-rules.BasePrice) / float64(span))
	} else {
		f.Budget = 1
	}
	if n.PoolSize > 0 {
		f.Slot = clamp(float64(n.SlotsLeft) / float64(n.PoolSize))
	}

	contrib := []struct {
		reason Reason
		value  float64
	}{
		{ReasonRoleNeed, w.Role * f.RoleNeed},
		{ReasonScarcity, w.Scarcity*f.Scarcity + w.Slot*f.Slot},
		{ReasonTier, w.Tier * f.Tier},
		{ReasonBudget, w.Budget * f.Budget},
	}
	desire := decimal.Zero
	reason := contrib[0].reason
	top := contrib[0].value
	for i, c := range contrib {
		desire = desire.Add(decimal.NewFromFloat(c.value))
		if i > 0 && c.value > top {
			top = c.value
			reason = c.reason
		}
	}
	d := desire.Round(4).InexactFloat64()
	return Rival{
		TeamID:   v.team.ID,
		Desire:   d,
		Contends: d >= pr.policy.ContendThreshold,
		Reason:   reason,
		Factors:  f,
		HardCap:  n.HardCap,
	}
}

func (pr *Predictor) level(contenders int, aggregate float64) Level {
	switch {
	case contenders >= pr.policy.FierceContenders || aggregate >= pr.policy.FierceAggregate:
		return LevelFierce
	case contenders >= pr.policy.ModerateContenders || aggregate >= pr.policy.ModerateAggregate:
		return LevelModerate
	default:
		return LevelLow
	}
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
