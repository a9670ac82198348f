// Package repository exports team rosters: CSV for people and an optional
// PostgreSQL table for everything else.
package repository

import (
	"context"
	"fmt"

	"github.com/okian/bazaar/internal/domain/auction"
	"github.com/okian/bazaar/internal/domain/model"
)

// Row is one player of a team's current squad.
type Row struct {
	Position int
	TeamID   model.TeamID
	PlayerID model.PlayerID
	Name     string
	Category model.Category
	Role     model.Role
	Tier     model.Tier
	Batting  float64
	Bowling  float64
	Fielding float64
	Overall  float64
	Price    model.Money
}

// Sink receives a team's roster rows.
type Sink interface {
	Name() string
	Export(ctx context.Context, team model.TeamID, rows []Row) error
}

// Rows lists teamID's squad from snap: captain and vice-captain first,
// then acquisitions in purchase order.
func Rows(snap auction.Snapshot, teamID model.TeamID) ([]Row, error) {
	if _, ok := snap.Team(teamID); !ok {
		return nil, fmt.Errorf("%w: %q", auction.ErrUnknownTeam, teamID)
	}
	squad := snap.Squad(teamID)
	rows := make([]Row, 0, len(squad))
	for i, p := range squad {
		rows = append(rows, Row{
			Position: i + 1,
			TeamID:   teamID,
			PlayerID: p.ID,
			Name:     p.Name,
			Category: p.Category,
			Role:     p.Role,
			Tier:     p.Tier,
			Batting:  p.Ratings.Batting,
			Bowling:  p.Ratings.Bowling,
			Fielding: p.Ratings.Fielding,
			Overall:  p.Overall,
			Price:    p.Price,
		})
	}
	return rows, nil
}
