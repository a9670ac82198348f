// Package optimizer solves the squad selection problem: pick exactly k
// candidates maximizing total value under a budget and a minimum number
// of bowlers. The solver is an exact dynamic program; among equally good
// selections the one with the lexicographically smallest pool indices wins.
package optimizer

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/okian/bazaar/internal/domain/model"
	"github.com/okian/bazaar/pkg/metrics"
)

// valueScale converts float values to fixed point so that ties compare
// exactly.
const (
	valueScale    = 1e6
	valueExponent = -6
)

const unreachable = math.MinInt64

// Outcome labels for solve metrics.
const (
	OutcomeOptimal = "optimal"
	OutcomeRelaxed = "relaxed"
)

// Candidate is one selectable player.
type Candidate struct {
	ID     model.PlayerID
	Value  float64
	Cost   model.Money
	Bowler bool
}

// Problem describes one solve. ForcedIn ids are pre-committed (their cost,
// slot and bowling contribution are taken first); ForcedOut ids are
// removed from the pool. Ids not present in Pool are ignored.
type Problem struct {
	Pool       []Candidate
	Slots      int
	Budget     model.Money
	MinBowlers int
	ForcedIn   []model.PlayerID
	ForcedOut  []model.PlayerID
}

// Result is the chosen selection and how far it had to relax.
type Result struct {
	// Selected holds forced picks first, then solver picks, each in pool order.
	Selected []model.PlayerID `json:"selected"`
	Score    float64          `json:"score"`
	Cost     model.Money      `json:"cost"`

	SlotsRequested  int `json:"slots_requested"`
	SlotsFilled     int `json:"slots_filled"`
	BowlersRequired int `json:"bowlers_required"`
	BowlersAchieved int `json:"bowlers_achieved"`

	// Feasible is true when nothing was relaxed.
	Feasible       bool `json:"feasible"`
	BowlingRelaxed bool `json:"bowling_relaxed"`
	BudgetLimited  bool `json:"budget_limited"`
	PoolShort      bool `json:"pool_short"`

	units int64
}

// Units is the score in fixed point, for exact comparisons between solves.
func (r Result) Units() int64 { return r.units }

// Solve runs the optimizer. It never fails; infeasible constraints are
// relaxed and flagged on the Result.
func Solve(p Problem) Result {
	start := time.Now()
	res := solve(p)
	outcome := OutcomeOptimal
	if !res.Feasible {
		outcome = OutcomeRelaxed
	}
	metrics.RecordOptimizerSolve(outcome, float64(time.Since(start).Microseconds())/1000)
	return res
}

func solve(p Problem) Result {
	out := make(map[model.PlayerID]bool, len(p.ForcedOut))
	for _, id := range p.ForcedOut {
		out[id] = true
	}
	in := make(map[model.PlayerID]bool, len(p.ForcedIn))
	for _, id := range p.ForcedIn {
		if !out[id] {
			in[id] = true
		}
	}

	res := Result{
		Selected:        []model.PlayerID{},
		SlotsRequested:  max(0, p.Slots),
		BowlersRequired: max(0, p.MinBowlers),
	}

	var items []Candidate
	for _, c := range p.Pool {
		switch {
		case out[c.ID]:
		case in[c.ID]:
			delete(in, c.ID)
			res.Selected = append(res.Selected, c.ID)
			res.Cost += c.Cost
			res.units += toUnits(c.Value)
			if c.Bowler {
				res.BowlersAchieved++
			}
		default:
			items = append(items, c)
		}
	}

	slots := res.SlotsRequested - len(res.Selected)
	budget := p.Budget - res.Cost
	if budget < 0 {
		res.BudgetLimited = true
		budget = 0
	}
	if slots < 0 {
		slots = 0
	}
	if slots > len(items) {
		res.PoolShort = true
		slots = len(items)
	}
	need := max(0, res.BowlersRequired-res.BowlersAchieved)

	t := newTable(items, slots, need, budget)
	picks, bowlers := t.target()
	if picks < slots {
		res.BudgetLimited = true
	}
	chosen := t.reconstruct(picks, bowlers)
	for _, i := range chosen {
		c := items[i]
		res.Selected = append(res.Selected, c.ID)
		res.Cost += c.Cost
		res.units += toUnits(c.Value)
		if c.Bowler {
			res.BowlersAchieved++
		}
	}

	res.SlotsFilled = len(res.Selected)
	res.BowlingRelaxed = res.BowlersAchieved < res.BowlersRequired
	res.Feasible = !res.BowlingRelaxed && !res.BudgetLimited && !res.PoolShort
	res.Score = decimal.New(res.units, valueExponent).InexactFloat64()
	return res
}

func toUnits(v float64) int64 {
	return int64(math.Round(v * valueScale))
}

// table holds best[i][j][b][w]: the highest value obtainable from items
// i..n-1 choosing exactly j of them with at least b bowlers and cost at
// most w (in units of the cost gcd).
type table struct {
	items  []Candidate
	costs  []int
	values []int64
	slots  int
	need   int
	cap    int
	best   []int64
}

func newTable(items []Candidate, slots, need int, budget model.Money) *table {
	g := int64(0)
	total := int64(0)
	for _, c := range items {
		g = gcd(g, int64(c.Cost))
		total += int64(c.Cost)
	}
	if g == 0 {
		g = 1
	}
	capacity := min(int64(budget), total) / g

	t := &table{
		items:  items,
		costs:  make([]int, len(items)),
		values: make([]int64, len(items)),
		slots:  slots,
		need:   need,
		cap:    int(capacity),
	}
	for i, c := range items {
		t.costs[i] = int(int64(c.Cost) / g)
		t.values[i] = toUnits(c.Value)
	}

	n := len(items)
	t.best = make([]int64, (n+1)*(slots+1)*(need+1)*(t.cap+1))
	for i := range t.best {
		t.best[i] = unreachable
	}
	for w := 0; w <= t.cap; w++ {
		t.set(n, 0, 0, w, 0)
	}
	for i := n - 1; i >= 0; i-- {
		bowl := 0
		if items[i].Bowler {
			bowl = 1
		}
		for j := 0; j <= slots; j++ {
			for b := 0; b <= need; b++ {
				for w := 0; w <= t.cap; w++ {
					v := t.at(i+1, j, b, w)
					if j > 0 && t.costs[i] <= w {
						if rest := t.at(i+1, j-1, max(0, b-bowl), w-t.costs[i]); rest != unreachable && rest+t.values[i] > v {
							v = rest + t.values[i]
						}
					}
					t.set(i, j, b, w, v)
				}
			}
		}
	}
	return t
}

func (t *table) index(i, j, b, w int) int {
	return ((i*(t.slots+1)+j)*(t.need+1)+b)*(t.cap+1) + w
}

func (t *table) at(i, j, b, w int) int64 { return t.best[t.index(i, j, b, w)] }

func (t *table) set(i, j, b, w int, v int64) { t.best[t.index(i, j, b, w)] = v }

// target picks the largest affordable selection size, then the largest
// attainable bowler count for it.
func (t *table) target() (picks, bowlers int) {
	for j := t.slots; j >= 0; j-- {
		for b := t.need; b >= 0; b-- {
			if t.at(0, j, b, t.cap) != unreachable {
				return j, b
			}
		}
	}
	return 0, 0
}

// reconstruct walks forward preferring inclusion whenever inclusion keeps
// the optimum, which yields the lexicographically smallest optimal set.
func (t *table) reconstruct(j, b int) []int {
	var chosen []int
	w := t.cap
	want := t.at(0, j, b, w)
	for i := 0; i < len(t.items) && j > 0; i++ {
		bowl := 0
		if t.items[i].Bowler {
			bowl = 1
		}
		if t.costs[i] <= w {
			nb := max(0, b-bowl)
			rest := t.at(i+1, j-1, nb, w-t.costs[i])
			if rest != unreachable && rest+t.values[i] == want {
				chosen = append(chosen, i)
				want = rest
				j--
				b = nb
				w -= t.costs[i]
			}
		}
	}
	return chosen
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}
