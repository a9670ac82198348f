package mcp

import "errors"

// Sentinel kinds for tool argument errors.
var (
	ErrMissingTeam   = errors.New("team is required")
	ErrMissingPlayer = errors.New("player is required")
)
