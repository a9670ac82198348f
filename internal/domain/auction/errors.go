package auction

import (
	"errors"
	"fmt"

	"github.com/okian/bazaar/internal/domain/model"
)

// Sentinel kinds for rejected operations. Each is wrapped in a
// *ValidationError naming the violated constraint.
var (
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrUnknownTeam      = errors.New("unknown team")
	ErrNotInPool        = errors.New("player is not auction-eligible")
	ErrAlreadySold      = errors.New("player already sold")
	ErrTeamFull         = errors.New("team has no open slots")
	ErrBelowBasePrice   = errors.New("price below base price")
	ErrPriceNotAligned  = errors.New("price not aligned to bid increment")
	ErrOverHardCap      = errors.New("price exceeds team hard cap")
	ErrRatingOutOfRange = model.ErrRatingOutOfRange

	// ErrNothingToUndo is returned by Undo with an empty history.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrInvalidRoster rejects seeds that cannot start an auction.
	ErrInvalidRoster = errors.New("invalid roster")
)

// Constraint names reported to clients.
const (
	ConstraintUnknownPlayer = "unknown_player"
	ConstraintUnknownTeam   = "unknown_team"
	ConstraintNotInPool     = "not_in_pool"
	ConstraintAlreadySold   = "already_sold"
	ConstraintTeamFull      = "team_full"
	ConstraintBelowBase     = "below_base_price"
	ConstraintNotAligned    = "price_not_aligned"
	ConstraintOverHardCap   = "over_hard_cap"
	ConstraintRatingRange   = "rating_out_of_range"
)

// ValidationError reports an operation rejected before any mutation.
type ValidationError struct {
	Constraint string
	Detail     string
	Err        error
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Constraint, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Constraint, e.Err, e.Detail)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(constraint string, err error, format string, args ...any) error {
	return &ValidationError{Constraint: constraint, Err: err, Detail: fmt.Sprintf(format, args...)}
}

// sentinelConstraints names the constraint behind each rejection kind, for
// errors that wrap a sentinel without a *ValidationError around it.
var sentinelConstraints = []struct {
	err        error
	constraint string
}{
	{ErrUnknownPlayer, ConstraintUnknownPlayer},
	{ErrUnknownTeam, ConstraintUnknownTeam},
	{ErrNotInPool, ConstraintNotInPool},
	{ErrAlreadySold, ConstraintAlreadySold},
	{ErrTeamFull, ConstraintTeamFull},
	{ErrBelowBasePrice, ConstraintBelowBase},
	{ErrPriceNotAligned, ConstraintNotAligned},
	{ErrOverHardCap, ConstraintOverHardCap},
	{ErrRatingOutOfRange, ConstraintRatingRange},
}

// ConstraintOf extracts the violated constraint, or "" for other errors.
func ConstraintOf(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Constraint
	}
	for _, sc := range sentinelConstraints {
		if errors.Is(err, sc.err) {
			return sc.constraint
		}
	}
	return ""
}
