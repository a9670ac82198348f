// Package auction owns the mutable auction ledger: players, teams and the
// ordered sale history. Only Sale, Undo, EditRating and Reset mutate it;
// every reader works on a deep-copied Snapshot.
package auction

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/bazaar/internal/domain/classify"
	"github.com/okian/bazaar/internal/domain/model"
)

// Option applies a configuration option to the State.
type Option func(*State)

// WithClock sets the time source used to stamp sales.
func WithClock(now func() time.Time) Option {
	return func(s *State) {
		if now != nil {
			s.now = now
		}
	}
}

// WithEventIDs sets the generator of sale event ids.
func WithEventIDs(next func() string) Option {
	return func(s *State) {
		if next != nil {
			s.newID = next
		}
	}
}

// ledger is one complete copy of the mutable data. Index maps are shared
// between copies because the player and team sets never change.
type ledger struct {
	players []model.Player
	teams   []model.Team
	sales   []model.Sale
	pidx    map[model.PlayerID]int
	tidx    map[model.TeamID]int
}

func (l ledger) clone() ledger {
	c := ledger{
		players: make([]model.Player, len(l.players)),
		teams:   make([]model.Team, len(l.teams)),
		sales:   make([]model.Sale, len(l.sales)),
		pidx:    l.pidx,
		tidx:    l.tidx,
	}
	copy(c.players, l.players)
	copy(c.sales, l.sales)
	for i, t := range l.teams {
		c.teams[i] = t.Clone()
	}
	return c
}

// State is the auction ledger. It is safe for concurrent use; mutations
// are serialized by an internal lock and callers are expected to funnel
// them through a single writer so they apply in event order.
type State struct {
	mu         sync.RWMutex
	rules      Rules
	classifier *classify.Classifier
	initial    ledger
	cur        ledger
	now        func() time.Time
	newID      func() string
}

// New validates the seed, classifies every player and returns a State at
// start of auction. Captains and vice-captains are attached to their home
// team at zero cost.
func New(rules Rules, classifier *classify.Classifier, players []model.Player, teams []model.Team, opts ...Option) (*State, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if classifier == nil {
		classifier = classify.New()
	}
	if len(teams) == 0 {
		return nil, fmt.Errorf("%w: no teams", ErrInvalidRoster)
	}

	l := ledger{
		players: make([]model.Player, 0, len(players)),
		teams:   make([]model.Team, 0, len(teams)),
		pidx:    make(map[model.PlayerID]int, len(players)),
		tidx:    make(map[model.TeamID]int, len(teams)),
	}
	for _, t := range teams {
		if t.ID == "" {
			return nil, fmt.Errorf("%w: team without id", ErrInvalidRoster)
		}
		if _, dup := l.tidx[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate team %q", ErrInvalidRoster, t.ID)
		}
		l.tidx[t.ID] = len(l.teams)
		l.teams = append(l.teams, model.Team{
			ID:       t.ID,
			Name:     t.Name,
			Budget:   rules.Budget,
			Slots:    rules.Slots,
			Fixed:    []model.PlayerID{},
			Acquired: []model.PlayerID{},
		})
	}

	sorted := make([]model.Player, len(players))
	copy(sorted, players)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for _, p := range sorted {
		if _, dup := l.pidx[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate player %d", ErrInvalidRoster, p.ID)
		}
		if err := p.Ratings.Validate(); err != nil {
			return nil, fmt.Errorf("%w: player %d: %w", ErrInvalidRoster, p.ID, err)
		}
		p.Status = model.StatusUnsold
		p.TeamID = ""
		p.Price = 0
		if p.Category.Fixed() {
			ti, ok := l.tidx[p.HomeTeam]
			if !ok {
				return nil, fmt.Errorf("%w: %s %d has unknown home team %q", ErrInvalidRoster, p.Category, p.ID, p.HomeTeam)
			}
			p.TeamID = p.HomeTeam
			l.teams[ti].Fixed = append(l.teams[ti].Fixed, p.ID)
		} else {
			p.HomeTeam = ""
		}
		l.pidx[p.ID] = len(l.players)
		l.players = append(l.players, classifier.Classify(p))
	}

	s := &State{
		rules:      rules,
		classifier: classifier,
		initial:    l,
		cur:        l.clone(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Rules returns the immutable auction rules.
func (s *State) Rules() Rules { return s.rules }

// Classifier returns the classifier used for derived fields.
func (s *State) Classifier() *classify.Classifier { return s.classifier }

// Sale sells playerID to teamID at price. Checks run in a fixed order and
// the first violation is returned as a *ValidationError; on error nothing
// changes.
func (s *State) Sale(playerID model.PlayerID, teamID model.TeamID, price model.Money) (model.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pi, ok := s.cur.pidx[playerID]
	if !ok {
		return model.Sale{}, invalid(ConstraintUnknownPlayer, ErrUnknownPlayer, "player %d", playerID)
	}
	ti, ok := s.cur.tidx[teamID]
	if !ok {
		return model.Sale{}, invalid(ConstraintUnknownTeam, ErrUnknownTeam, "team %q", teamID)
	}
	p := s.cur.players[pi]
	t := s.cur.teams[ti]

	switch {
	case p.Category.Fixed():
		return model.Sale{}, invalid(ConstraintNotInPool, ErrNotInPool, "%s %d belongs to %q", p.Category, p.ID, p.HomeTeam)
	case p.Status == model.StatusSold:
		return model.Sale{}, invalid(ConstraintAlreadySold, ErrAlreadySold, "player %d sold to %q for %d", p.ID, p.TeamID, p.Price)
	case t.SlotsLeft() <= 0:
		return model.Sale{}, invalid(ConstraintTeamFull, ErrTeamFull, "team %q has %d of %d slots filled", t.ID, len(t.Acquired), t.Slots)
	case price < s.rules.BasePrice:
		return model.Sale{}, invalid(ConstraintBelowBase, ErrBelowBasePrice, "price %d, base %d", price, s.rules.BasePrice)
	case !s.rules.Aligned(price):
		return model.Sale{}, invalid(ConstraintNotAligned, ErrPriceNotAligned, "price %d, increment %d above %d", price, s.rules.Increment, s.rules.BasePrice)
	}
	if limit := s.rules.HardCap(t.Remaining(), t.SlotsLeft()); price > limit {
		return model.Sale{}, invalid(ConstraintOverHardCap, ErrOverHardCap, "price %d, hard cap %d for team %q", price, limit, t.ID)
	}

	sale := model.Sale{
		EventID:  s.newID(),
		PlayerID: playerID,
		TeamID:   teamID,
		Price:    price,
		At:       s.now().UTC(),
	}

	pp := &s.cur.players[pi]
	pp.Status = model.StatusSold
	pp.TeamID = teamID
	pp.Price = price

	tt := &s.cur.teams[ti]
	tt.Spent += price
	tt.Acquired = append(tt.Acquired, playerID)

	s.cur.sales = append(s.cur.sales, sale)
	return sale, nil
}

// Undo reverts the most recent sale: the player returns to the pool and
// the buying team gets its slot and money back. Ratings, and anything
// derived from them, keep their current values.
func (s *State) Undo() (model.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.cur.sales)
	if n == 0 {
		return model.Sale{}, ErrNothingToUndo
	}
	last := s.cur.sales[n-1]

	pp := &s.cur.players[s.cur.pidx[last.PlayerID]]
	pp.Status = model.StatusUnsold
	pp.TeamID = ""
	pp.Price = 0

	tt := &s.cur.teams[s.cur.tidx[last.TeamID]]
	tt.Spent -= last.Price
	for i := len(tt.Acquired) - 1; i >= 0; i-- {
		if tt.Acquired[i] == last.PlayerID {
			tt.Acquired = append(tt.Acquired[:i], tt.Acquired[i+1:]...)
			break
		}
	}

	s.cur.sales[n-1] = model.Sale{}
	s.cur.sales = s.cur.sales[:n-1]
	return last, nil
}

// EditRating replaces a player's ratings and re-derives overall, role and
// tier. The player's sale state is untouched.
func (s *State) EditRating(playerID model.PlayerID, r model.Ratings) (model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pi, ok := s.cur.pidx[playerID]
	if !ok {
		return model.Player{}, invalid(ConstraintUnknownPlayer, ErrUnknownPlayer, "player %d", playerID)
	}
	if err := r.Validate(); err != nil {
		return model.Player{}, &ValidationError{Constraint: ConstraintRatingRange, Err: err}
	}
	p := s.cur.players[pi]
	p.Ratings = r
	p = s.classifier.Classify(p)
	s.cur.players[pi] = p
	return p, nil
}

// Reset restores every player and team to start-of-auction values and
// clears the history.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = s.initial.clone()
}

// Snapshot returns a deep copy of the current ledger.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	l := s.cur.clone()
	s.mu.RUnlock()
	return Snapshot{
		Rules:   s.rules,
		Players: l.players,
		Teams:   l.teams,
		History: l.sales,
		pidx:    l.pidx,
		tidx:    l.tidx,
	}
}
