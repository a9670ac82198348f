package auction

import "github.com/okian/bazaar/internal/domain/model"

// Snapshot is an immutable copy of the ledger. Derivations take one and
// never touch State again.
type Snapshot struct {
	Rules   Rules          `json:"rules"`
	Players []model.Player `json:"players"`
	Teams   []model.Team   `json:"teams"`
	History []model.Sale   `json:"history"`

	pidx map[model.PlayerID]int
	tidx map[model.TeamID]int
}

// Player looks a player up by id.
func (s Snapshot) Player(id model.PlayerID) (model.Player, bool) {
	if s.pidx != nil {
		if i, ok := s.pidx[id]; ok {
			return s.Players[i], true
		}
		return model.Player{}, false
	}
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return model.Player{}, false
}

// Team looks a team up by id.
func (s Snapshot) Team(id model.TeamID) (model.Team, bool) {
	if s.tidx != nil {
		if i, ok := s.tidx[id]; ok {
			return s.Teams[i], true
		}
		return model.Team{}, false
	}
	for _, t := range s.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return model.Team{}, false
}

// Pool returns the unsold auction players in id order.
func (s Snapshot) Pool() []model.Player {
	out := make([]model.Player, 0, len(s.Players))
	for _, p := range s.Players {
		if p.InPool() {
			out = append(out, p)
		}
	}
	return out
}

// Squad returns the team's fixed players followed by its acquisitions.
func (s Snapshot) Squad(id model.TeamID) []model.Player {
	t, ok := s.Team(id)
	if !ok {
		return nil
	}
	ids := t.Squad()
	out := make([]model.Player, 0, len(ids))
	for _, pid := range ids {
		if p, ok := s.Player(pid); ok {
			out = append(out, p)
		}
	}
	return out
}

// HardCap is the team's current maximum affordable bid.
func (s Snapshot) HardCap(t model.Team) model.Money {
	return s.Rules.HardCap(t.Remaining(), t.SlotsLeft())
}

// Rivals returns every team except id, in configured order.
func (s Snapshot) Rivals(id model.TeamID) []model.Team {
	out := make([]model.Team, 0, len(s.Teams))
	for _, t := range s.Teams {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

// Sold counts auction players already sold.
func (s Snapshot) Sold() int {
	n := 0
	for _, p := range s.Players {
		if p.Status == model.StatusSold {
			n++
		}
	}
	return n
}
