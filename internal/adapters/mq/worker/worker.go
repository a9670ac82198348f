// Package worker applies ledger mutations on a single writer goroutine and
// fans read-only derivations out over a bounded pool.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/bazaar/internal/adapters/mq/queue"
	"github.com/okian/bazaar/internal/domain/auction"
	"github.com/okian/bazaar/internal/domain/model"
	"github.com/okian/bazaar/pkg/logger"
	"github.com/okian/bazaar/pkg/metrics"
)

// Applier mutates the auction ledger. *auction.State satisfies it.
type Applier interface {
	Sale(playerID model.PlayerID, teamID model.TeamID, price model.Money) (model.Sale, error)
	Undo() (model.Sale, error)
	EditRating(playerID model.PlayerID, r model.Ratings) (model.Player, error)
	Reset()
}

// Queue defines how the writer receives commands.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Command
}

// Writer is the only goroutine that mutates the ledger. Commands are
// applied strictly in dequeue order.
type Writer struct {
	queue   Queue
	applier Applier
	name    string
	after   func(ctx context.Context, c queue.Command, r queue.Result)

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewWriter creates a writer with configuration options.
func NewWriter(q Queue, applier Applier, opts ...Option) *Writer {
	w := &Writer{
		queue:    q,
		applier:  applier,
		name:     "writer",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("writer"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "writer" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run applies commands until the queue is closed, ctx is canceled or
// Shutdown is called.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)

	commands := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case c, ok := <-commands:
			if !ok {
				return
			}
			w.apply(ctx, c)
		}
	}
}

// Shutdown waits for Run to return. Closing the queue first lets the
// writer drain pending commands.
func (w *Writer) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
	}
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
	select {
	case <-w.done:
		return nil
	case <-time.After(time.Second):
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("%w: shutdown timed out: %w", ErrStopped, ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *Writer) Done() <-chan struct{} { return w.done }

func (w *Writer) apply(ctx context.Context, c queue.Command) {
	start := time.Now()
	var r queue.Result
	switch c.Kind {
	case queue.KindSale:
		r.Sale, r.Err = w.applier.Sale(c.PlayerID, c.TeamID, c.Price)
		w.logSale(ctx, c, r)
	case queue.KindUndo:
		r.Sale, r.Err = w.applier.Undo()
		if r.Err != nil {
			metrics.RecordUndoRejected()
			w.logger.Warn(ctx, "undo rejected", logger.String("request_id", c.ID), logger.Error(r.Err))
		} else {
			metrics.RecordUndo()
			w.logger.Info(ctx, "sale undone",
				logger.String("request_id", c.ID),
				logger.Int("player_id", int(r.Sale.PlayerID)),
				logger.String("team_id", string(r.Sale.TeamID)),
				logger.Int64("price", int64(r.Sale.Price)),
			)
		}
	case queue.KindEdit:
		r.Player, r.Err = w.applier.EditRating(c.PlayerID, c.Ratings)
		if r.Err != nil {
			w.logger.Warn(ctx, "rating edit rejected",
				logger.String("request_id", c.ID),
				logger.Int("player_id", int(c.PlayerID)),
				logger.String("constraint", auction.ConstraintOf(r.Err)),
				logger.Error(r.Err),
			)
		} else {
			metrics.RecordRatingEdit()
			w.logger.Info(ctx, "ratings edited",
				logger.String("request_id", c.ID),
				logger.Int("player_id", int(c.PlayerID)),
				logger.Float64("overall", r.Player.Overall),
				logger.String("role", r.Player.Role.String()),
				logger.Int("tier", int(r.Player.Tier)),
			)
		}
	case queue.KindReset:
		w.applier.Reset()
		metrics.RecordReset()
		w.logger.Info(ctx, "auction reset", logger.String("request_id", c.ID))
	default:
		r.Err = fmt.Errorf("%w: %q", queue.ErrBadKind, c.Kind)
	}

	metrics.RecordCommand(string(c.Kind), float64(time.Since(start).Microseconds())/1000, r.Err != nil)
	if w.after != nil {
		w.after(ctx, c, r)
	}
	c.Reply(r)
}

func (w *Writer) logSale(ctx context.Context, c queue.Command, r queue.Result) {
	fields := []logger.Field{
		logger.String("request_id", c.ID),
		logger.Int("player_id", int(c.PlayerID)),
		logger.String("team_id", string(c.TeamID)),
		logger.Int64("price", int64(c.Price)),
	}
	if r.Err == nil {
		metrics.RecordSaleAccepted()
		w.logger.Info(ctx, "sale recorded", append(fields, logger.String("event_id", r.Sale.EventID))...)
		return
	}
	constraint := auction.ConstraintOf(r.Err)
	if constraint == "" {
		constraint = "unknown"
	}
	metrics.RecordSaleRejected(constraint)
	var verr *auction.ValidationError
	if !errors.As(r.Err, &verr) {
		w.logger.Error(ctx, "sale failed", append(fields, logger.Error(r.Err))...)
		return
	}
	w.logger.Warn(ctx, "sale rejected", append(fields, logger.String("constraint", constraint), logger.Error(r.Err))...)
}
