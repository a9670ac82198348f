package model

import "time"

// TeamID identifies a team, e.g. "saurav".
type TeamID string

// Team is one bidder. Fixed holds the captain and vice-captain; Acquired
// holds auction buys in purchase order.
type Team struct {
	ID       TeamID     `json:"id"`
	Name     string     `json:"name"`
	Budget   Money      `json:"budget"`
	Spent    Money      `json:"spent"`
	Slots    int        `json:"slots"`
	Fixed    []PlayerID `json:"fixed"`
	Acquired []PlayerID `json:"acquired"`
}

// Remaining is the unspent budget.
func (t Team) Remaining() Money { return t.Budget - t.Spent }

// SlotsLeft is the number of auction slots still open.
func (t Team) SlotsLeft() int { return t.Slots - len(t.Acquired) }

// Squad returns the fixed players followed by acquisitions.
func (t Team) Squad() []PlayerID {
	out := make([]PlayerID, 0, len(t.Fixed)+len(t.Acquired))
	out = append(out, t.Fixed...)
	return append(out, t.Acquired...)
}

// Clone returns a deep copy.
func (t Team) Clone() Team {
	c := t
	c.Fixed = make([]PlayerID, len(t.Fixed))
	copy(c.Fixed, t.Fixed)
	c.Acquired = make([]PlayerID, len(t.Acquired))
	copy(c.Acquired, t.Acquired)
	return c
}

// Sale is one accepted entry of the auction log.
type Sale struct {
	EventID  string    `json:"event_id"`
	PlayerID PlayerID  `json:"player_id"`
	TeamID   TeamID    `json:"team_id"`
	Price    Money     `json:"price"`
	At       time.Time `json:"at"`
}
