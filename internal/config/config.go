// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load(ctx) layers .env, an optional YAML file and env vars on top.
// - Auction rules are immutable once the service has started.
package config

import (
	"fmt"
	"math"
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the mutation command queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the size of the fan-out pool used for bid tables.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the remembered sale request ids.
	DedupeSize int `koanf:"dedupe_size"`

	// RosterFile points to a YAML roster; empty uses the bundled tournament.
	RosterFile string `koanf:"roster_file"`

	// MCPEnabled mounts the MCP tool endpoint at /mcp.
	MCPEnabled bool `koanf:"mcp_enabled"`

	Auction AuctionConfig `koanf:"auction"`
	Engine  EngineConfig  `koanf:"engine"`
	Export  ExportConfig  `koanf:"export"`
}

// AuctionConfig carries the rules fixed at auction start.
type AuctionConfig struct {
	TeamCount     int            `koanf:"team_count"`
	SlotsPerTeam  int            `koanf:"slots_per_team"`
	BudgetPerTeam int64          `koanf:"budget_per_team"`
	BasePrice     int64          `koanf:"base_price"`
	BidIncrement  int64          `koanf:"bid_increment"`
	Weights       RatingWeights  `koanf:"weights"`
	Tiers         TierThresholds `koanf:"tiers"`
	RoleThreshold float64        `koanf:"role_threshold"`
	MinBowlers    int            `koanf:"min_bowlers"`
	RoleMinimums  RoleMinimums   `koanf:"role_minimums"`
}

// RatingWeights are the overall-score weights; they must sum to 1.
type RatingWeights struct {
	Batting  float64 `koanf:"batting"`
	Bowling  float64 `koanf:"bowling"`
	Fielding float64 `koanf:"fielding"`
}

// TierThresholds are inclusive lower bounds for tiers 1 to 3.
type TierThresholds struct {
	Tier1 float64 `koanf:"tier1"`
	Tier2 float64 `koanf:"tier2"`
	Tier3 float64 `koanf:"tier3"`
}

// RoleMinimums is the desired count of each role in a full squad.
type RoleMinimums struct {
	Batsmen     int `koanf:"batsmen"`
	Bowlers     int `koanf:"bowlers"`
	AllRounders int `koanf:"all_rounders"`
}

// EngineConfig holds the heuristic coefficients of the derivations.
type EngineConfig struct {
	MarginalWeight   float64       `koanf:"marginal_weight"`
	MustBuy          float64       `koanf:"must_buy"`
	GoodBuy          float64       `koanf:"good_buy"`
	TierBonus        TierBonus     `koanf:"tier_bonus"`
	Desire           DesireWeights `koanf:"desire"`
	ContendThreshold float64       `koanf:"contend_threshold"`
	PriceScale       float64       `koanf:"price_scale"`
	Probability      Probabilities `koanf:"probability"`
	PriorityTopN     int           `koanf:"priority_top_n"`
}

// TierBonus is the flat bid bonus per tier.
type TierBonus struct {
	Tier1 float64 `koanf:"tier1"`
	Tier2 float64 `koanf:"tier2"`
	Tier3 float64 `koanf:"tier3"`
	Tier4 float64 `koanf:"tier4"`
}

// DesireWeights weight the factors of a rival's desire score.
type DesireWeights struct {
	Role     float64 `koanf:"role"`
	Scarcity float64 `koanf:"scarcity"`
	Tier     float64 `koanf:"tier"`
	Budget   float64 `koanf:"budget"`
	Slot     float64 `koanf:"slot"`
}

// Probabilities map competition levels to acquisition probability.
type Probabilities struct {
	Low      float64 `koanf:"low"`
	Moderate float64 `koanf:"moderate"`
	Fierce   float64 `koanf:"fierce"`
}

// ExportConfig configures roster export sinks.
type ExportConfig struct {
	// Dir receives <team>.csv files; empty disables file export.
	Dir string `koanf:"dir"`

	// PostgresDSN enables the PostgreSQL sink when set.
	PostgresDSN string `koanf:"postgres_dsn"`

	// Table is the PostgreSQL table name.
	Table string `koanf:"table"`
}

// New creates a Config with defaults matching a four-team, nine-slot auction.
func New() *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   "text",
		Addr:        ":9080",
		QueueSize:   1024,
		WorkerCount: runtime.NumCPU(),
		DedupeSize:  10_000,
		MCPEnabled:  true,
		Auction: AuctionConfig{
			TeamCount:     4,
			SlotsPerTeam:  9,
			BudgetPerTeam: 100,
			BasePrice:     5,
			BidIncrement:  1,
			Weights:       RatingWeights{Batting: 0.40, Bowling: 0.40, Fielding: 0.20},
			Tiers:         TierThresholds{Tier1: 7.5, Tier2: 5.5, Tier3: 3.5},
			RoleThreshold: 4,
			MinBowlers:    6,
			RoleMinimums:  RoleMinimums{Batsmen: 3, Bowlers: 2, AllRounders: 2},
		},
		Engine: EngineConfig{
			MarginalWeight:   1.5,
			MustBuy:          3.0,
			GoodBuy:          1.0,
			TierBonus:        TierBonus{Tier1: 8, Tier2: 4, Tier3: 1, Tier4: 0},
			Desire:           DesireWeights{Role: 3.0, Scarcity: 2.0, Tier: 3.0, Budget: 1.5, Slot: 1.5},
			ContendThreshold: 3.0,
			PriceScale:       1.0,
			Probability:      Probabilities{Low: 0.95, Moderate: 0.65, Fierce: 0.35},
			PriorityTopN:     10,
		},
		Export: ExportConfig{
			Table: "auction_roster",
		},
	}
}

const weightTolerance = 1e-9

// Validate checks the invariants the engine relies on.
func (c *Config) Validate() error {
	a := c.Auction
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case a.TeamCount < 2:
		return fmt.Errorf("%w: auction.team_count must be at least 2", ErrInvalidConfig)
	case a.SlotsPerTeam < 1:
		return fmt.Errorf("%w: auction.slots_per_team must be positive", ErrInvalidConfig)
	case a.BasePrice < 1:
		return fmt.Errorf("%w: auction.base_price must be positive", ErrInvalidConfig)
	case a.BidIncrement < 1:
		return fmt.Errorf("%w: auction.bid_increment must be positive", ErrInvalidConfig)
	case a.BudgetPerTeam < int64(a.SlotsPerTeam)*a.BasePrice:
		return fmt.Errorf("%w: auction.budget_per_team %d cannot fill %d slots at base price %d",
			ErrInvalidConfig, a.BudgetPerTeam, a.SlotsPerTeam, a.BasePrice)
	case a.MinBowlers < 0:
		return fmt.Errorf("%w: auction.min_bowlers must not be negative", ErrInvalidConfig)
	}

	w := a.Weights
	if w.Batting < 0 || w.Bowling < 0 || w.Fielding < 0 {
		return fmt.Errorf("%w: auction.weights must not be negative", ErrInvalidConfig)
	}
	if math.Abs(w.Batting+w.Bowling+w.Fielding-1) > weightTolerance {
		return fmt.Errorf("%w: auction.weights must sum to 1", ErrInvalidConfig)
	}
	t := a.Tiers
	if !(t.Tier1 > t.Tier2 && t.Tier2 > t.Tier3) {
		return fmt.Errorf("%w: auction.tiers must be strictly descending", ErrInvalidConfig)
	}

	p := c.Engine.Probability
	for _, v := range []float64{p.Low, p.Moderate, p.Fierce} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: engine.probability values must be within [0,1]", ErrInvalidConfig)
		}
	}
	if c.Engine.PriorityTopN < 1 {
		return fmt.Errorf("%w: engine.priority_top_n must be positive", ErrInvalidConfig)
	}
	return nil
}
