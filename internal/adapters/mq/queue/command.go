package queue

import (
	"context"
	"fmt"

	"github.com/okian/bazaar/internal/domain/model"
)

// Kind names a ledger mutation.
type Kind string

const (
	KindSale  Kind = "sale"
	KindUndo  Kind = "undo"
	KindEdit  Kind = "edit"
	KindReset Kind = "reset"
)

// Command is one mutation waiting for the writer. Only the fields relevant
// to Kind are read.
type Command struct {
	ID       string
	Kind     Kind
	PlayerID model.PlayerID
	TeamID   model.TeamID
	Price    model.Money
	Ratings  model.Ratings

	reply chan Result
}

// Result is what the writer sends back for a command.
type Result struct {
	Sale   model.Sale
	Player model.Player
	Err    error
}

// NewSale builds a sale command.
func NewSale(id string, player model.PlayerID, team model.TeamID, price model.Money) Command {
	return Command{ID: id, Kind: KindSale, PlayerID: player, TeamID: team, Price: price, reply: make(chan Result, 1)}
}

// NewUndo builds an undo command.
func NewUndo(id string) Command {
	return Command{ID: id, Kind: KindUndo, reply: make(chan Result, 1)}
}

// NewEdit builds a rating edit command.
func NewEdit(id string, player model.PlayerID, r model.Ratings) Command {
	return Command{ID: id, Kind: KindEdit, PlayerID: player, Ratings: r, reply: make(chan Result, 1)}
}

// NewReset builds a reset command.
func NewReset(id string) Command {
	return Command{ID: id, Kind: KindReset, reply: make(chan Result, 1)}
}

// Reply delivers r to the waiting caller. It never blocks; a second reply
// is dropped.
func (c Command) Reply(r Result) {
	if c.reply == nil {
		return
	}
	select {
	case c.reply <- r:
	default:
	}
}

// Wait blocks until the writer replies or ctx is done.
func (c Command) Wait(ctx context.Context) (Result, error) {
	if c.reply == nil {
		return Result{}, ErrNoReply
	}
	select {
	case r := <-c.reply:
		return r, nil
	case <-ctx.Done():
		return Result{}, fmt.Errorf("%w: %s %s: %w", ErrCanceled, c.Kind, c.ID, ctx.Err())
	}
}
