package replay

import (
	"io"
	"time"
)

// Config holds configuration for a replay run.
type Config struct {
	BaseURL string        // Base URL of the service
	Script  string        // YAML sale log; empty replays the bundled demo
	Top     int           // Bid table rows printed per team after each sale
	Timeout time.Duration // HTTP request timeout
	Reset   bool          // Reset the auction before replaying
	Out     io.Writer     // Report destination
}

// Script is a scripted auction: sales in the order they were hammered.
type Script struct {
	Name  string `yaml:"name"`
	Sales []Sale `yaml:"sales"`
}

// Sale is one scripted sale.
type Sale struct {
	RequestID string `yaml:"request_id" json:"request_id,omitempty"`
	Player    int    `yaml:"player" json:"player_id"`
	Team      string `yaml:"team" json:"team_id"`
	Price     int64  `yaml:"price" json:"price"`
}

// Outcome is how the service answered one scripted sale.
type Outcome string

const (
	OutcomeAccepted  Outcome = "accepted"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

// Result is the reply to one scripted sale.
type Result struct {
	Sale       Sale
	Outcome    Outcome
	Status     int
	Constraint string
	Message    string
}

// Stats summarizes a run.
type Stats struct {
	Posted    int
	Accepted  int
	Duplicate int
	Rejected  int
	Failed    int
	Duration  time.Duration
}

func (s *Stats) add(o Outcome) {
	s.Posted++
	switch o {
	case OutcomeAccepted:
		s.Accepted++
	case OutcomeDuplicate:
		s.Duplicate++
	case OutcomeRejected:
		s.Rejected++
	default:
		s.Failed++
	}
}

// bidTable mirrors the subset of GET /teams/{id}/bids the report prints.
type bidTable struct {
	TeamID string `json:"team_id"`
	Needs  struct {
		SlotsLeft     int   `json:"slots_left"`
		Remaining     int64 `json:"remaining"`
		HardCap       int64 `json:"hard_cap"`
		BowlersNeeded int   `json:"bowlers_needed"`
	} `json:"needs"`
	Records []bidRecord `json:"records"`
}

type bidRecord struct {
	PlayerID    int     `json:"player_id"`
	Name        string  `json:"name"`
	Role        string  `json:"role"`
	Tier        int     `json:"tier"`
	Overall     float64 `json:"overall"`
	Verdict     string  `json:"verdict"`
	Recommended int64   `json:"recommended_max_bid"`
}

// stateView mirrors the subset of GET /state the runner needs.
type stateView struct {
	Teams []struct {
		ID string `json:"id"`
	} `json:"teams"`
	Sold   int `json:"sold"`
	Unsold int `json:"unsold"`
}
