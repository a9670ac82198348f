package service

import (
	"context"
	"time"

	"github.com/okian/bazaar/internal/adapters/repository"
	"github.com/okian/bazaar/internal/domain/auction"
	"github.com/okian/bazaar/pkg/logger"
	"github.com/okian/bazaar/pkg/metrics"
)

const exportTimeout = 30 * time.Second

// snapshotter is the read side of the ledger the exporter needs.
type snapshotter interface {
	Snapshot() auction.Snapshot
}

// exporter writes every team roster to every sink after mutations.
// Triggers coalesce: a burst of sales produces at most one pending run.
type exporter struct {
	source snapshotter
	sinks  []repository.Sink
	signal chan struct{}
	done   chan struct{}
	logger logger.Logger
}

func newExporter(source snapshotter, sinks []repository.Sink, l logger.Logger) *exporter {
	return &exporter{
		source: source,
		sinks:  sinks,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: l.Named("export"),
	}
}

func (e *exporter) trigger() {
	if len(e.sinks) == 0 {
		return
	}
	select {
	case e.signal <- struct{}{}:
	default:
	}
}

// run exports on every trigger until ctx is canceled, then flushes a
// pending trigger once more.
func (e *exporter) run(ctx context.Context) {
	defer close(e.done)
	for {
		select {
		case <-ctx.Done():
			select {
			case <-e.signal:
				flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exportTimeout)
				e.export(flushCtx)
				cancel()
			default:
			}
			e.close()
			return
		case <-e.signal:
			e.export(ctx)
		}
	}
}

func (e *exporter) wait() { <-e.done }

func (e *exporter) export(ctx context.Context) {
	snap := e.source.Snapshot()
	for _, sink := range e.sinks {
		for _, t := range snap.Teams {
			rows, err := repository.Rows(snap, t.ID)
			if err == nil {
				err = sink.Export(ctx, t.ID, rows)
			}
			metrics.RecordExport(sink.Name(), err)
			if err != nil {
				e.logger.Error(ctx, "roster export failed",
					logger.String("sink", sink.Name()),
					logger.String("team", string(t.ID)),
					logger.Error(err),
				)
				continue
			}
			e.logger.Debug(ctx, "roster exported",
				logger.String("sink", sink.Name()),
				logger.String("team", string(t.ID)),
				logger.Int("rows", len(rows)),
			)
		}
	}
}

func (e *exporter) close() {
	for _, sink := range e.sinks {
		if c, ok := sink.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
