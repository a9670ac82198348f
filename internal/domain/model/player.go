// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"strings"
)

// PlayerID identifies a player within one tournament roster.
type PlayerID int

// Money is an amount in whole currency units (lakhs in the bundled roster).
type Money int64

// Rating bounds.
const (
	MinRating = 0.0
	MaxRating = 10.0
)

// Category is the closed set of player kinds. Only auction players enter
// the pool; captains and vice-captains are pre-assigned at zero cost.
type Category int

const (
	CategoryAuction Category = iota
	CategoryCaptain
	CategoryViceCaptain
)

var categoryNames = map[Category]string{
	CategoryAuction:     "auction",
	CategoryCaptain:     "captain",
	CategoryViceCaptain: "vice-captain",
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Fixed reports whether the category is pre-assigned to a team.
func (c Category) Fixed() bool { return c == CategoryCaptain || c == CategoryViceCaptain }

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory accepts auction, captain and vice-captain (case-insensitive).
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auction":
		return CategoryAuction, nil
	case "captain":
		return CategoryCaptain, nil
	case "vice-captain", "vice_captain", "vicecaptain", "vc":
		return CategoryViceCaptain, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Role is a player's primary function in the squad.
type Role int

const (
	RoleBatsman Role = iota
	RoleBowler
	RoleAllRounder
)

// Roles lists every role in display order.
var Roles = []Role{RoleBatsman, RoleBowler, RoleAllRounder}

var roleNames = map[Role]string{
	RoleBatsman:    "batsman",
	RoleBowler:     "bowler",
	RoleAllRounder: "all-rounder",
}

func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRole accepts batsman, bowler and all-rounder (case-insensitive).
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "batsman", "batter":
		return RoleBatsman, nil
	case "bowler":
		return RoleBowler, nil
	case "all-rounder", "allrounder", "all_rounder", "ar":
		return RoleAllRounder, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Tier ranks players from 1 (elite) to 4.
type Tier int

const (
	Tier1 Tier = iota + 1
	Tier2
	Tier3
	Tier4
)

// Status tracks whether an auction player has been sold.
type Status int

const (
	StatusUnsold Status = iota
	StatusSold
)

func (s Status) String() string {
	if s == StatusSold {
		return "sold"
	}
	return "unsold"
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "sold":
		*s = StatusSold
	case "unsold", "":
		*s = StatusUnsold
	default:
		return fmt.Errorf("unknown status %q", b)
	}
	return nil
}

// Ratings are the three raw skill ratings, each in [0,10].
type Ratings struct {
	Batting  float64 `json:"batting"`
	Bowling  float64 `json:"bowling"`
	Fielding float64 `json:"fielding"`
}

// Validate checks every rating is within bounds.
func (r Ratings) Validate() error {
	checks := []struct {
		name string
		v    float64
	}{{"batting", r.Batting}, {"bowling", r.Bowling}, {"fielding", r.Fielding}}
	for _, c := range checks {
		if math.IsNaN(c.v) || c.v < MinRating || c.v > MaxRating {
			return fmt.Errorf("%w: %s=%v", ErrRatingOutOfRange, c.name, c.v)
		}
	}
	return nil
}

// Player is a roster entry with its derived classification and sale state.
type Player struct {
	ID       PlayerID `json:"id"`
	Name     string   `json:"name"`
	Ratings  Ratings  `json:"ratings"`
	Category Category `json:"category"`

	// FixedRole and HomeTeam are meaningful for captains and vice-captains only.
	FixedRole Role   `json:"-"`
	HomeTeam  TeamID `json:"home_team,omitempty"`

	Overall float64 `json:"overall"`
	Role    Role    `json:"role"`
	Tier    Tier    `json:"tier"`

	Status Status `json:"status"`
	TeamID TeamID `json:"team_id,omitempty"`
	Price  Money  `json:"price"`
}

// InPool reports whether the player can still be sold.
func (p Player) InPool() bool {
	return p.Category == CategoryAuction && p.Status == StatusUnsold
}
