package optimizer

import (
	"github.com/okian/bazaar/internal/domain/auction"
	"github.com/okian/bazaar/internal/domain/classify"
	"github.com/okian/bazaar/internal/domain/model"
)

// Requirements are the composition targets of a full squad (fixed players
// included).
type Requirements struct {
	MinBowlers   int
	RoleMinimums map[model.Role]int
}

// DefaultRequirements: six bowling options, three batsmen, two bowlers and
// two all-rounders.
func DefaultRequirements() Requirements {
	return Requirements{
		MinBowlers: 6,
		RoleMinimums: map[model.Role]int{
			model.RoleBatsman:    3,
			model.RoleBowler:     2,
			model.RoleAllRounder: 2,
		},
	}
}

// Needs summarizes what a team still lacks and what the pool can offer.
type Needs struct {
	TeamID        model.TeamID       `json:"team_id"`
	SquadSize     int                `json:"squad_size"`
	SlotsLeft     int                `json:"slots_left"`
	Remaining     model.Money        `json:"remaining"`
	HardCap       model.Money        `json:"hard_cap"`
	Bowlers       int                `json:"bowlers"`
	BowlersNeeded int                `json:"bowlers_needed"`
	RoleCounts    map[model.Role]int `json:"role_counts"`
	RoleGaps      map[model.Role]int `json:"role_gaps"`
	PoolSize      int                `json:"pool_size"`
	PoolBowlers   int                `json:"pool_bowlers"`
	PoolRoles     map[model.Role]int `json:"pool_roles"`
}

// NeedsRole reports whether the team is below its minimum for r.
func (n Needs) NeedsRole(r model.Role) bool { return n.RoleGaps[r] > 0 }

// Full reports whether the team has no open slots.
func (n Needs) Full() bool { return n.SlotsLeft <= 0 }

// Analyze computes the needs of team id in snap.
func Analyze(snap auction.Snapshot, id model.TeamID, cls *classify.Classifier, req Requirements) (Needs, bool) {
	t, ok := snap.Team(id)
	if !ok {
		return Needs{}, false
	}
	n := Needs{
		TeamID:     id,
		SlotsLeft:  t.SlotsLeft(),
		Remaining:  t.Remaining(),
		HardCap:    snap.HardCap(t),
		RoleCounts: make(map[model.Role]int, len(model.Roles)),
		RoleGaps:   make(map[model.Role]int, len(model.Roles)),
		PoolRoles:  make(map[model.Role]int, len(model.Roles)),
	}
	for _, p := range snap.Squad(id) {
		n.SquadSize++
		n.RoleCounts[p.Role]++
		if cls.CanBowl(p) {
			n.Bowlers++
		}
	}
	n.BowlersNeeded = max(0, req.MinBowlers-n.Bowlers)
	for _, r := range model.Roles {
		n.RoleGaps[r] = max(0, req.RoleMinimums[r]-n.RoleCounts[r])
	}
	for _, p := range snap.Pool() {
		n.PoolSize++
		n.PoolRoles[p.Role]++
		if cls.CanBowl(p) {
			n.PoolBowlers++
		}
	}
	return n, true
}

// ForTeam builds the base problem for a team: every pool player at base
// price, valued by overall, with the bowling shortfall as the minimum.
func ForTeam(snap auction.Snapshot, n Needs, cls *classify.Classifier) Problem {
	pool := snap.Pool()
	cands := make([]Candidate, len(pool))
	for i, p := range pool {
		cands[i] = Candidate{
			ID:     p.ID,
			Value:  p.Overall,
			Cost:   snap.Rules.BasePrice,
			Bowler: cls.CanBowl(p),
		}
	}
	return Problem{
		Pool:       cands,
		Slots:      n.SlotsLeft,
		Budget:     n.Remaining,
		MinBowlers: n.BowlersNeeded,
	}
}
