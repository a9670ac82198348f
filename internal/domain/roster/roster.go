// Package roster loads tournament seeds: the teams and every player with
// raw ratings. The bundled Founder's Cup seed is used when no file is given.
package roster

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/okian/bazaar/internal/domain/model"
)

//go:embed founders_cup.yaml
var foundersCup []byte

// ErrInvalidSeed is returned for seeds that cannot be parsed.
var ErrInvalidSeed = errors.New("invalid roster seed")

// Seed is a parsed tournament definition.
type Seed struct {
	Name    string        `yaml:"name"`
	Teams   []TeamEntry   `yaml:"teams"`
	Players []PlayerEntry `yaml:"players"`
}

// TeamEntry is one team in the seed file.
type TeamEntry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// PlayerEntry is one player in the seed file. Category defaults to
// auction; captains and vice-captains also carry Role and Team.
type PlayerEntry struct {
	ID       int     `yaml:"id"`
	Name     string  `yaml:"name"`
	Batting  float64 `yaml:"batting"`
	Bowling  float64 `yaml:"bowling"`
	Fielding float64 `yaml:"fielding"`
	Category string  `yaml:"category"`
	Role     string  `yaml:"role"`
	Team     string  `yaml:"team"`
}

// Default returns the bundled Founder's Cup seed.
func Default() (Seed, error) {
	return Parse(foundersCup)
}

// Load reads a seed from path, or the bundled seed when path is empty.
func Load(path string) (Seed, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read roster %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML seed.
func Parse(data []byte) (Seed, error) {
	var s Seed
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return Seed{}, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	if len(s.Teams) == 0 {
		return Seed{}, fmt.Errorf("%w: no teams", ErrInvalidSeed)
	}
	if len(s.Players) == 0 {
		return Seed{}, fmt.Errorf("%w: no players", ErrInvalidSeed)
	}
	return s, nil
}

// Build converts the seed into domain values ready for auction.New.
func (s Seed) Build() ([]model.Player, []model.Team, error) {
	teams := make([]model.Team, 0, len(s.Teams))
	for _, t := range s.Teams {
		name := t.Name
		if name == "" {
			name = t.ID
		}
		teams = append(teams, model.Team{ID: model.TeamID(t.ID), Name: name})
	}

	players := make([]model.Player, 0, len(s.Players))
	for _, e := range s.Players {
		cat, err := model.ParseCategory(e.Category)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: player %d: %w", ErrInvalidSeed, e.ID, err)
		}
		p := model.Player{
			ID:       model.PlayerID(e.ID),
			Name:     e.Name,
			Ratings:  model.Ratings{Batting: e.Batting, Bowling: e.Bowling, Fielding: e.Fielding},
			Category: cat,
		}
		if cat.Fixed() {
			role, err := model.ParseRole(e.Role)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: player %d: %w", ErrInvalidSeed, e.ID, err)
			}
			p.FixedRole = role
			p.HomeTeam = model.TeamID(e.Team)
		}
		players = append(players, p)
	}
	return players, teams, nil
}
