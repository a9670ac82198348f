package auction

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/okian/bazaar/internal/domain/model"
)

// Rules are fixed at auction start.
type Rules struct {
	Slots     int         `json:"slots"`
	Budget    model.Money `json:"budget"`
	BasePrice model.Money `json:"base_price"`
	Increment model.Money `json:"increment"`
}

// Validate rejects rules under which no team could fill its slots.
func (r Rules) Validate() error {
	switch {
	case r.Slots < 1:
		return fmt.Errorf("%w: slots must be positive", ErrInvalidRoster)
	case r.BasePrice < 1:
		return fmt.Errorf("%w: base price must be positive", ErrInvalidRoster)
	case r.Increment < 1:
		return fmt.Errorf("%w: increment must be positive", ErrInvalidRoster)
	case r.Budget < model.Money(r.Slots)*r.BasePrice:
		return fmt.Errorf("%w: budget %d cannot fill %d slots at %d", ErrInvalidRoster, r.Budget, r.Slots, r.BasePrice)
	}
	return nil
}

// HardCap is the most a team may pay for its next player while keeping
// base price for every other open slot.
func (r Rules) HardCap(remaining model.Money, slotsLeft int) model.Money {
	if slotsLeft <= 1 {
		return remaining
	}
	return remaining - model.Money(slotsLeft-1)*r.BasePrice
}

// StartHardCap is the hard cap of a team that has not bought anyone.
func (r Rules) StartHardCap() model.Money {
	return r.HardCap(r.Budget, r.Slots)
}

// Aligned reports whether price sits on the increment grid above base.
func (r Rules) Aligned(price model.Money) bool {
	return (price-r.BasePrice)%r.Increment == 0
}

// ToGrid rounds an amount to the nearest valid bid, base plus a whole
// number of increments, never below base. Halves round up.
func (r Rules) ToGrid(amount decimal.Decimal) model.Money {
	base := decimal.NewFromInt(int64(r.BasePrice))
	if amount.LessThanOrEqual(base) {
		return r.BasePrice
	}
	steps := amount.Sub(base).Div(decimal.NewFromInt(int64(r.Increment))).Round(0).IntPart()
	return r.BasePrice + model.Money(steps)*r.Increment
}
