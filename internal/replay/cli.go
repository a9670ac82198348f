package replay

import (
	"io"
)

// ShowHelp prints usage information for the replay tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Bazaar Auction Replay
=====================

Posts a scripted sale log to a running auction service and prints each
team's bid table head after every accepted sale.

Usage:
  go run ./cmd/replay [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -script string
        YAML sale log (default: bundled Founder's Cup opening round)
  -top int
        Bid table rows printed per team (default 5)
  -timeout duration
        HTTP request timeout (default 30s)
  -reset
        Reset the auction before replaying
  -help
        Show this help message

Script format:
  name: Office Cup
  sales:
    - {request_id: s1, player: 3, team: saurav, price: 22}
    - {player: 4, team: abhijeet, price: 18}

Request ids make a replay idempotent: posting the same script twice
reports the repeated sales as duplicates.
`)
}
