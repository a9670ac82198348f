// Package recommend derives a maximum-bid recommendation and verdict for
// every unsold player from one team's point of view.
package recommend

import (
	"context"
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

// Verdict is the bidding advice for one player.
type Verdict string

const (
	VerdictMustBuy   Verdict = "must-buy"
	VerdictGoodBuy   Verdict = "good-buy"
	VerdictNeedBased Verdict = "need-based-buy"
	VerdictBowling   Verdict = "bowling-need"
	VerdictSkip      Verdict = "skip"
)

// Rank orders verdicts from most to least urgent.
func (v Verdict) Rank() int {
	switch v {
	case VerdictMustBuy:
		return 4
	case VerdictGoodBuy:
		return 3
	case VerdictNeedBased:
		return 2
	case VerdictBowling:
		return 1
	default:
		return 0
	}
}

// Bowling-gap premium coefficients and role-gap premiums.
const (
	scarcityPremium   = 3.0
	bowlingRatingRate = 0.5
	scarceRolePremium = 5.0
	roleGapPremium    = 2.0
)

// Policy holds the recommendation coefficients.
type Policy struct {
	MarginalWeight float64
	MustBuy        float64
	GoodBuy        float64
	TierBonus      map[model.Tier]float64
	Requirements   optimizer.Requirements
}

// DefaultPolicy returns the calibrated defaults: 1.5 per point of marginal
// value, tier bonus 8/4/1/0.
func DefaultPolicy() Policy {
	return Policy{
		MarginalWeight: 1.5,
		MustBuy:        3.0,
		GoodBuy:        1.0,
		TierBonus:      map[model.Tier]float64{model.Tier1: 8, model.Tier2: 4, model.Tier3: 1, model.Tier4: 0},
		Requirements:   optimizer.DefaultRequirements(),
	}
}

// Executor runs n independent jobs and returns one error slot per job.
type Executor interface {
	Map(ctx context.Context, n int, fn func(ctx context.Context, i int) error) []error
}

type sequential struct{}

func (sequential) Map(ctx context.Context, n int, fn func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		errs[i] = fn(ctx, i)
	}
	return errs
}

// Option applies a configuration option to the Recommender.
type Option func(*Recommender)

// WithPolicy overrides the coefficients.
func WithPolicy(p Policy) Option {
	return func(r *Recommender) { r.policy = p }
}

// WithExecutor runs per-player derivations of Table on exec.
func WithExecutor(exec Executor) Option {
	return func(r *Recommender) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// Recommender is stateless apart from its configuration.
type Recommender struct {
	cls    *classify.Classifier
	policy Policy
	exec   Executor
}

// New creates a Recommender.
func New(cls *classify.Classifier, opts ...Option) *Recommender {
	if cls == nil {
		cls = classify.New()
	}
	r := &Recommender{cls: cls, policy: DefaultPolicy(), exec: sequential{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the active coefficients.
func (r *Recommender) Policy() Policy { return r.policy }

// Recommendation is the advice for one player.
type Recommendation struct {
	PlayerID model.PlayerID `json:"player_id"`
	Name     string         `json:"name"`
	Role     model.Role     `json:"role"`
	Tier     model.Tier     `json:"tier"`
	Overall  float64        `json:"overall"`

	Verdict     Verdict     `json:"verdict"`
	Detail      string      `json:"detail"`
	Recommended model.Money `json:"recommended_max_bid"`
	HardCap     model.Money `json:"hard_cap"`
	// Advisory marks a recommendation the team cannot actually pay.
	Advisory bool `json:"advisory"`

	MarginalValue float64 `json:"marginal_value"`
	NeedPremium   float64 `json:"need_premium"`
	TierBonus     float64 `json:"tier_bonus"`
	ScoreWith     float64 `json:"score_with"`
	ScoreWithout  float64 `json:"score_without"`
}

// Failure records a player whose recommendation could not be computed.
type Failure struct {
	PlayerID model.PlayerID `json:"player_id"`
	Error    string         `json:"error"`
}

// Table is the full recommendation set for one team.
type Table struct {
	TeamID   model.TeamID     `json:"team_id"`
	Needs    optimizer.Needs  `json:"needs"`
	Records  []Recommendation `json:"records"`
	Failures []Failure        `json:"failures,omitempty"`
}

// Needs analyzes team id under the configured requirements.
func (r *Recommender) Needs(snap auction.Snapshot, id model.TeamID) (optimizer.Needs, error) {
	n, ok := optimizer.Analyze(snap, id, r.cls, r.policy.Requirements)
	if !ok {
		return optimizer.Needs{}, fmt.Errorf("%w: %q", auction.ErrUnknownTeam, id)
	}
	return n, nil
}

// Recommend computes the advice for one unsold player.
func (r *Recommender) Recommend(snap auction.Snapshot, teamID model.TeamID, playerID model.PlayerID) (Recommendation, error) {
	n, err := r.Needs(snap, teamID)
	if err != nil {
		return Recommendation{}, err
	}
	if n.Full() {
		return Recommendation{}, fmt.Errorf("%w: %q", auction.ErrTeamFull, teamID)
	}
	p, ok := snap.Player(playerID)
	if !ok {
		return Recommendation{}, fmt.Errorf("%w: %d", auction.ErrUnknownPlayer, playerID)
	}
	if !p.InPool() {
		return Recommendation{}, fmt.Errorf("%w: %d", auction.ErrNotInPool, playerID)
	}
	return r.recommend(snap, n, optimizer.ForTeam(snap, n, r.cls), p), nil
}

// Table computes a recommendation for every unsold player. A failure on
// one player is reported in Failures and does not affect the others. A
// full team gets an empty table.
func (r *Recommender) Table(ctx context.Context, snap auction.Snapshot, teamID model.TeamID) (Table, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDerivationLatency("bid_table", float64(time.Since(start).Microseconds())/1000)
	}()

	n, err := r.Needs(snap, teamID)
	if err != nil {
		return Table{}, err
	}
	tbl := Table{TeamID: teamID, Needs: n, Records: []Recommendation{}}
	if n.Full() {
		return tbl, nil
	}

	pool := snap.Pool()
	base := optimizer.ForTeam(snap, n, r.cls)
	recs := make([]Recommendation, len(pool))
	errs := r.exec.Map(ctx, len(pool), func(_ context.Context, i int) (err error) {
		defer func() {
			if v := recover(); v != nil {
				err = fmt.Errorf("%w: %v", ErrDerivationPanic, v)
			}
		}()
		recs[i] = r.recommend(snap, n, base, pool[i])
		return nil
	})

	for i, err := range errs {
		if err != nil {
			metrics.RecordDerivationFailure("recommendation")
			tbl.Failures = append(tbl.Failures, Failure{PlayerID: pool[i].ID, Error: err.Error()})
			continue
		}
		tbl.Records = append(tbl.Records, recs[i])
	}
	Sort(tbl.Records)
	return tbl, nil
}

// Sort orders records by verdict, then recommended bid, then player id.
func Sort(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Verdict.Rank() != b.Verdict.Rank() {
			return a.Verdict.Rank() > b.Verdict.Rank()
		}
		if a.Recommended != b.Recommended {
			return a.Recommended > b.Recommended
		}
		return a.PlayerID < b.PlayerID
	})
}

func (r *Recommender) recommend(snap auction.Snapshot, n optimizer.Needs, base optimizer.Problem, p model.Player) Recommendation {
	without := base
	without.ForcedOut = []model.PlayerID{p.ID}
	with := base
	with.ForcedIn = []model.PlayerID{p.ID}

	rw := optimizer.Solve(without)
	ri := optimizer.Solve(with)

	mv := decimal.Zero
	if diff := ri.Units() - rw.Units(); diff > 0 {
		mv = decimal.New(diff, -6)
	}
	canBowl := r.cls.CanBowl(p)
	need := r.needPremium(n, p, canBowl)
	tier := decimal.NewFromFloat(r.policy.TierBonus[p.Tier])

	rules := snap.Rules
	raw := decimal.NewFromInt(int64(rules.BasePrice)).
		Add(mv.Mul(decimal.NewFromFloat(r.policy.MarginalWeight))).
		Add(need).
		Add(tier)
	recommended := rules.ToGrid(raw)

	rec := Recommendation{
		PlayerID:      p.ID,
		Name:          p.Name,
		Role:          p.Role,
		Tier:          p.Tier,
		Overall:       p.Overall,
		Recommended:   recommended,
		HardCap:       n.HardCap,
		Advisory:      recommended > n.HardCap,
		MarginalValue: mv.InexactFloat64(),
		NeedPremium:   need.InexactFloat64(),
		TierBonus:     tier.InexactFloat64(),
		ScoreWith:     ri.Score,
		ScoreWithout:  rw.Score,
	}
	rec.Verdict, rec.Detail = r.verdict(n, rec, canBowl)
	return rec
}

func (r *Recommender) needPremium(n optimizer.Needs, p model.Player, canBowl bool) decimal.Decimal {
	need := decimal.Zero
	if n.BowlersNeeded > 0 && canBowl {
		scarcity := max(0, n.BowlersNeeded-n.PoolBowlers+1)
		need = need.Add(decimal.NewFromFloat(scarcityPremium).Mul(decimal.NewFromInt(int64(scarcity)))).
			Add(decimal.NewFromFloat(p.Ratings.Bowling).Mul(decimal.NewFromFloat(bowlingRatingRate)))
	}
	if n.NeedsRole(p.Role) {
		if n.PoolRoles[p.Role] <= n.SlotsLeft {
			need = need.Add(decimal.NewFromFloat(scarceRolePremium))
		} else {
			need = need.Add(decimal.NewFromFloat(roleGapPremium))
		}
	}
	return need
}

func (r *Recommender) verdict(n optimizer.Needs, rec Recommendation, canBowl bool) (Verdict, string) {
	switch {
	case rec.MarginalValue >= r.policy.MustBuy:
		return VerdictMustBuy, "significantly raises the best achievable squad"
	case rec.MarginalValue >= r.policy.GoodBuy:
		return VerdictGoodBuy, "solid addition, worth bidding above base price"
	case rec.NeedPremium > 0:
		if n.NeedsRole(rec.Role) {
			return VerdictNeedBased, fmt.Sprintf("fills a %s gap", rec.Role)
		}
		return VerdictNeedBased, fmt.Sprintf("%d more bowling options needed", n.BowlersNeeded)
	case canBowl && n.BowlersNeeded > 0:
		return VerdictBowling, fmt.Sprintf("%d more bowling options needed", n.BowlersNeeded)
	default:
		return VerdictSkip, "limited marginal value, base price only"
	}
}
