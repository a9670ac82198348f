// Package projection builds the best achievable final roster for a team,
// both optimistic (Dream) and discounted by competition (Realistic), along
// with a priority list and a budget split.
package projection

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/okian/bazaar/internal/domain/auction"
	"github.com/okian/bazaar/internal/domain/classify"
	"github.com/okian/bazaar/internal/domain/compete"
	"github.com/okian/bazaar/internal/domain/model"
	"github.com/okian/bazaar/internal/domain/optimizer"
	"github.com/okian/bazaar/internal/domain/recommend"
	"github.com/okian/bazaar/pkg/metrics"
)

// Policy holds the projection coefficients.
type Policy struct {
	// Probability maps a competition level to the chance of winning the player.
	Probability map[compete.Level]float64
	TopN        int
}

// DefaultPolicy maps low/moderate/fierce to 0.95/0.65/0.35 and returns the
// top 10 targets.
func DefaultPolicy() Policy {
	return Policy{
		Probability: map[compete.Level]float64{
			compete.LevelLow:      0.95,
			compete.LevelModerate: 0.65,
			compete.LevelFierce:   0.35,
		},
		TopN: 10,
	}
}

// Line is a player row inside a roster.
type Line struct {
	PlayerID model.PlayerID `json:"player_id"`
	Name     string         `json:"name"`
	Role     model.Role     `json:"role"`
	Tier     model.Tier     `json:"tier"`
	Overall  float64        `json:"overall"`
}

// Squad summarizes a set of players.
type Squad struct {
	Players []Line  `json:"players"`
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
}

// Roster is one projected outcome: the picks and the full squad they make.
type Roster struct {
	Picks []Line `json:"picks"`
	// Score is the optimizer objective: raw overall for Dream, discounted
	// value for Realistic.
	Score     float64          `json:"score"`
	PickTotal float64          `json:"pick_total"`
	Squad     Squad            `json:"squad"`
	Solve     optimizer.Result `json:"solve"`
}

// Target is one entry of the priority list.
type Target struct {
	Rank          int            `json:"rank"`
	PlayerID      model.PlayerID `json:"player_id"`
	Name          string         `json:"name"`
	Role          model.Role     `json:"role"`
	Tier          model.Tier     `json:"tier"`
	Overall       float64        `json:"overall"`
	Level         compete.Level  `json:"competition"`
	Probability   float64        `json:"acquisition_probability"`
	ExpectedValue float64        `json:"expected_value"`
	MarginalValue float64        `json:"marginal_value"`
	Recommended   model.Money    `json:"recommended_max_bid"`
	Predicted     model.Money    `json:"predicted_price"`
	InDream       bool           `json:"in_dream"`
}

// Allocated is the budget reserved for one contested pick.
type Allocated struct {
	PlayerID    model.PlayerID `json:"player_id"`
	Rank        int            `json:"rank"`
	Recommended model.Money    `json:"recommended_max_bid"`
	Amount      model.Money    `json:"amount"`
}

// Allocation splits the remaining budget over the open slots.
type Allocation struct {
	Contested   []Allocated `json:"contested"`
	Fillers     int         `json:"fillers"`
	FillerPrice model.Money `json:"filler_price"`
	Total       model.Money `json:"total"`
	Remaining   model.Money `json:"remaining"`
	Scaled      bool        `json:"scaled"`
}

// Projection is the full best-team view for one team.
type Projection struct {
	TeamID     model.TeamID `json:"team_id"`
	SlotsLeft  int          `json:"slots_left"`
	Remaining  model.Money  `json:"remaining"`
	Current    Squad        `json:"current"`
	Dream      Roster       `json:"dream"`
	Realistic  Roster       `json:"realistic"`
	Priority   []Target     `json:"priority"`
	Allocation Allocation   `json:"allocation"`
}

// Option applies a configuration option to the Projector.
type Option func(*Projector)

// WithPolicy overrides the coefficients.
func WithPolicy(p Policy) Option {
	return func(pr *Projector) { pr.policy = p }
}

// Projector composes the recommender and the predictor.
type Projector struct {
	cls    *classify.Classifier
	rec    *recommend.Recommender
	pred   *compete.Predictor
	policy Policy
}

// New creates a Projector.
func New(cls *classify.Classifier, rec *recommend.Recommender, pred *compete.Predictor, opts ...Option) *Projector {
	if cls == nil {
		cls = classify.New()
	}
	if rec == nil {
		rec = recommend.New(cls)
	}
	if pred == nil {
		pred = compete.New(cls)
	}
	p := &Projector{cls: cls, rec: rec, pred: pred, policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Project computes the projection for teamID. topN overrides the policy
// when positive.
func (p *Projector) Project(ctx context.Context, snap auction.Snapshot, teamID model.TeamID, topN int) (Projection, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDerivationLatency("projection", float64(time.Since(start).Microseconds())/1000)
	}()

	needs, err := p.rec.Needs(snap, teamID)
	if err != nil {
		return Projection{}, err
	}
	preds, err := p.pred.PredictPool(snap, teamID)
	if err != nil {
		return Projection{}, err
	}
	tbl, err := p.rec.Table(ctx, snap, teamID)
	if err != nil {
		return Projection{}, err
	}
	recs := make(map[model.PlayerID]recommend.Recommendation, len(tbl.Records))
	for _, r := range tbl.Records {
		recs[r.PlayerID] = r
	}

	out := Projection{
		TeamID:    teamID,
		SlotsLeft: needs.SlotsLeft,
		Remaining: needs.Remaining,
		Current:   summarize(snap.Squad(teamID)),
	}

	base := optimizer.ForTeam(snap, needs, p.cls)
	dream := optimizer.Solve(base)
	out.Dream = p.roster(snap, out.Current, dream)

	discounted := base
	discounted.Pool = make([]optimizer.Candidate, len(base.Pool))
	for i, c := range base.Pool {
		c.Value = decimal.NewFromFloat(c.Value).Mul(decimal.NewFromFloat(p.probability(preds[c.ID].Level))).InexactFloat64()
		discounted.Pool[i] = c
	}
	out.Realistic = p.roster(snap, out.Current, optimizer.Solve(discounted))

	if topN <= 0 {
		topN = p.policy.TopN
	}
	out.Priority = p.priority(snap, preds, recs, dream, topN)
	out.Allocation = allocate(snap.Rules, needs, out.Priority)
	return out, nil
}

func (p *Projector) probability(l compete.Level) float64 {
	if v, ok := p.policy.Probability[l]; ok {
		return v
	}
	return 1
}

func (p *Projector) roster(snap auction.Snapshot, current Squad, res optimizer.Result) Roster {
	picks := make([]model.Player, 0, len(res.Selected))
	for _, id := range res.Selected {
		if pl, ok := snap.Player(id); ok {
			picks = append(picks, pl)
		}
	}
	picked := summarize(picks)
	full := make([]model.Player, 0, len(current.Players)+len(picks))
	for _, l := range current.Players {
		if pl, ok := snap.Player(l.PlayerID); ok {
			full = append(full, pl)
		}
	}
	full = append(full, picks...)
	return Roster{
		Picks:     picked.Players,
		Score:     res.Score,
		PickTotal: picked.Total,
		Squad:     summarize(full),
		Solve:     res,
	}
}

func (p *Projector) priority(snap auction.Snapshot, preds map[model.PlayerID]compete.Prediction, recs map[model.PlayerID]recommend.Recommendation, dream optimizer.Result, topN int) []Target {
	inDream := make(map[model.PlayerID]bool, len(dream.Selected))
	for _, id := range dream.Selected {
		inDream[id] = true
	}

	pool := snap.Pool()
	targets := make([]Target, 0, len(pool))
	expected := make(map[model.PlayerID]decimal.Decimal, len(pool))
	for _, pl := range pool {
		pr := preds[pl.ID]
		prob := p.probability(pr.Level)
		ev := decimal.NewFromFloat(pl.Overall).Mul(decimal.NewFromFloat(prob))
		expected[pl.ID] = ev
		rec, ok := recs[pl.ID]
		recommended := snap.Rules.BasePrice
		if ok {
			recommended = rec.Recommended
		}
		targets = append(targets, Target{
			PlayerID:      pl.ID,
			Name:          pl.Name,
			Role:          pl.Role,
			Tier:          pl.Tier,
			Overall:       pl.Overall,
			Level:         pr.Level,
			Probability:   prob,
			ExpectedValue: ev.Round(4).InexactFloat64(),
			MarginalValue: rec.MarginalValue,
			Recommended:   recommended,
			Predicted:     pr.Predicted,
			InDream:       inDream[pl.ID],
		})
	}

	sort.SliceStable(targets, func(i, j int) bool {
		a, b := targets[i], targets[j]
		if c := expected[a.PlayerID].Cmp(expected[b.PlayerID]); c != 0 {
			return c > 0
		}
		if a.MarginalValue != b.MarginalValue {
			return a.MarginalValue > b.MarginalValue
		}
		return a.PlayerID < b.PlayerID
	})
	if len(targets) > topN {
		targets = targets[:topN]
	}
	for i := range targets {
		targets[i].Rank = i + 1
	}
	return targets
}

// allocate reserves each contested target its recommended bid and base
// price for every other slot. When that exceeds the budget the above-base
// premiums are scaled down proportionally on the increment grid; rounding
// slack goes back to the highest-ranked picks first.
func allocate(rules auction.Rules, needs optimizer.Needs, priority []Target) Allocation {
	a := Allocation{
		Contested:   []Allocated{},
		FillerPrice: rules.BasePrice,
		Remaining:   needs.Remaining,
	}
	if needs.SlotsLeft <= 0 {
		return a
	}
	for _, t := range priority {
		if len(a.Contested) == needs.SlotsLeft {
			break
		}
		if t.Level == compete.LevelLow {
			continue
		}
		amount := max(t.Recommended, rules.BasePrice)
		a.Contested = append(a.Contested, Allocated{PlayerID: t.PlayerID, Rank: t.Rank, Recommended: amount, Amount: amount})
	}
	a.Fillers = needs.SlotsLeft - len(a.Contested)

	floor := model.Money(needs.SlotsLeft) * rules.BasePrice
	var premium model.Money
	for _, c := range a.Contested {
		premium += c.Amount - rules.BasePrice
	}
	if floor+premium > needs.Remaining {
		a.Scaled = true
		available := max(0, needs.Remaining-floor)
		spare := available
		for i := range a.Contested {
			c := &a.Contested[i]
			share := decimal.NewFromInt(int64(c.Amount - rules.BasePrice)).
				Mul(decimal.NewFromInt(int64(available))).
				Div(decimal.NewFromInt(int64(premium)))
			steps := share.Div(decimal.NewFromInt(int64(rules.Increment))).Floor().IntPart()
			p := model.Money(steps) * rules.Increment
			c.Amount = rules.BasePrice + p
			spare -= p
		}
		for i := range a.Contested {
			c := &a.Contested[i]
			for spare >= rules.Increment && c.Amount+rules.Increment <= c.Recommended {
				c.Amount += rules.Increment
				spare -= rules.Increment
			}
		}
	}

	a.Total = model.Money(a.Fillers) * rules.BasePrice
	for _, c := range a.Contested {
		a.Total += c.Amount
	}
	return a
}

func summarize(players []model.Player) Squad {
	s := Squad{Players: make([]Line, 0, len(players))}
	total := decimal.Zero
	for _, p := range players {
		s.Players = append(s.Players, Line{PlayerID: p.ID, Name: p.Name, Role: p.Role, Tier: p.Tier, Overall: p.Overall})
		total = total.Add(decimal.NewFromFloat(p.Overall))
	}
	s.Total = total.Round(4).InexactFloat64()
	if len(players) > 0 {
		s.Average = total.Div(decimal.NewFromInt(int64(len(players)))).Round(2).InexactFloat64()
	}
	return s
}
