package worker

import (
	"context"

	"github.com/okian/bazaar/internal/adapters/mq/queue"
	"github.com/okian/bazaar/pkg/logger"
)

// Option applies a configuration option to the Writer.
type Option func(*Writer)

// WithName sets the writer name for identification and logging.
func WithName(name string) Option {
	return func(w *Writer) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the writer.
func WithLogger(l logger.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithAfterApply registers a hook that runs on the writer goroutine after
// each command, before the caller is released.
func WithAfterApply(fn func(ctx context.Context, c queue.Command, r queue.Result)) Option {
	return func(w *Writer) {
		w.after = fn
	}
}

// PoolOption applies a configuration option to the Pool.
type PoolOption func(*Pool)

// WithPoolLogger sets a custom logger for the pool.
func WithPoolLogger(l logger.Logger) PoolOption {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}
