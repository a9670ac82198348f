// Package service owns the auction state and wires the command queue,
// the single writer, the derivation pool and the roster exporters behind
// the dependencies required by the HTTP API and the MCP tools.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/bazaar/internal/adapters/mq/queue"
	"github.com/okian/bazaar/internal/adapters/mq/worker"
	"github.com/okian/bazaar/internal/adapters/repository"
	"github.com/okian/bazaar/internal/config"
	"github.com/okian/bazaar/internal/domain/auction"
	"github.com/okian/bazaar/internal/domain/compete"
	"github.com/okian/bazaar/internal/domain/dedupe"
	"github.com/okian/bazaar/internal/domain/model"
	"github.com/okian/bazaar/internal/domain/projection"
	"github.com/okian/bazaar/internal/domain/recommend"
	"github.com/okian/bazaar/pkg/logger"
	"github.com/okian/bazaar/pkg/metrics"
)

const writerStopTimeout = 10 * time.Second

// Service implements the API dependencies for the auction.
type Service struct {
	mu sync.RWMutex

	// Core components
	state       *auction.State
	recommender *recommend.Recommender
	predictor   *compete.Predictor
	projector   *projection.Projector
	deduper     dedupe.Deduper
	pool        *worker.Pool
	queue       *queue.InMemoryQueue
	writer      *worker.Writer
	exporter    *exporter

	// Configuration
	cfg         *config.Config
	workerCount int
	queueSize   int
	dedupeSize  int
	sinks       []repository.Sink

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc

	// Logging
	logger logger.Logger
}

// New validates the roster against the configured rules and builds the
// auction at its starting position. Nothing runs until Start.
func New(cfg *config.Config, players []model.Player, teams []model.Team, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if cfg.Auction.TeamCount > 0 && len(teams) != cfg.Auction.TeamCount {
		return nil, fmt.Errorf("%w: roster has %d teams, configured %d", ErrTeamCount, len(teams), cfg.Auction.TeamCount)
	}

	s := &Service{
		cfg:         cfg,
		workerCount: cfg.WorkerCount,
		queueSize:   cfg.QueueSize,
		dedupeSize:  cfg.DedupeSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workerCount <= 0 {
		s.workerCount = runtime.NumCPU()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	p := policiesFrom(cfg)
	state, err := auction.New(p.rules, p.classifier, players, teams)
	if err != nil {
		return nil, err
	}
	s.state = state
	s.pool = worker.NewPool(s.workerCount, worker.WithPoolLogger(s.logger))
	s.recommender = recommend.New(p.classifier,
		recommend.WithPolicy(p.recommend),
		recommend.WithExecutor(s.pool),
	)
	s.predictor = compete.New(p.classifier, compete.WithPolicy(p.compete))
	s.projector = projection.New(p.classifier, s.recommender, s.predictor, projection.WithPolicy(p.projection))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s, nil
}

// Start opens the export sinks and starts the writer.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting auction service...")

	sinks, err := s.openSinks(ctx)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.exporter = newExporter(s.state, sinks, s.logger)
	go s.exporter.run(runCtx)

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.writer = worker.NewWriter(s.queue, s.state,
		worker.WithLogger(s.logger),
		worker.WithAfterApply(s.afterApply),
	)
	go s.writer.Run(runCtx)

	s.started = true
	s.startedAt = time.Now()
	s.refreshGauges(s.state.Snapshot())
	metrics.UpdatePoolWorkers(s.pool.Size())
	s.exporter.trigger()

	s.logger.Info(ctx, "auction service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("sinks", len(sinks)),
	)
	return nil
}

// openSinks builds the configured exporters plus any injected ones.
func (s *Service) openSinks(ctx context.Context) ([]repository.Sink, error) {
	sinks := make([]repository.Sink, 0, len(s.sinks)+2)
	if dir := s.cfg.Export.Dir; dir != "" {
		fs, err := repository.NewFileSink(dir)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSink, err)
		}
		sinks = append(sinks, fs)
	}
	if dsn := s.cfg.Export.PostgresDSN; dsn != "" {
		pg, err := repository.NewPostgresStore(ctx, dsn, repository.WithTable(s.cfg.Export.Table))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSink, err)
		}
		sinks = append(sinks, pg)
	}
	return append(sinks, s.sinks...), nil
}

// Stop drains the writer, flushes a final export and closes the sinks.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping auction service...")

	_ = s.queue.Close()
	stopCtx, cancel := context.WithTimeout(ctx, writerStopTimeout)
	if err := s.writer.Shutdown(stopCtx); err != nil {
		s.logger.Warn(ctx, "writer did not stop cleanly", logger.Error(err))
	}
	cancel()

	s.cancel()
	s.exporter.wait()

	s.started = false
	s.logger.Info(ctx, "auction service stopped")
}

// afterApply runs on the writer goroutine once a command is applied.
func (s *Service) afterApply(ctx context.Context, c queue.Command, r queue.Result) {
	if r.Err != nil {
		return
	}
	if c.Kind == queue.KindReset {
		s.deduper.Clear(ctx)
	}
	s.refreshGauges(s.state.Snapshot())
	s.exporter.trigger()
}

func (s *Service) refreshGauges(snap auction.Snapshot) {
	metrics.UpdateUnsoldPlayers(len(snap.Pool()))
	for _, t := range snap.Teams {
		metrics.UpdateTeamBudget(string(t.ID), int64(t.Remaining()), t.SlotsLeft())
	}
}

// SeenAndRecord atomically checks if a request id was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordDuplicateSale()
	}
	return seen
}

// Unrecord forgets a request id so a retry is validated again.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Clear forgets every remembered request id.
func (s *Service) Clear(ctx context.Context) {
	s.deduper.Clear(ctx)
}

// Size returns the current number of remembered request ids.
func (s *Service) Size() int64 {
	return s.deduper.Size()
}

// Enqueue hands a mutation to the writer.
func (s *Service) Enqueue(ctx context.Context, c queue.Command) error {
	s.mu.RLock()
	q, started := s.queue, s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}
	s.logger.Debug(ctx, "enqueue command",
		logger.String("id", c.ID),
		logger.String("kind", string(c.Kind)),
	)
	return q.Enqueue(ctx, c)
}

// Snapshot returns a deep copy of the current auction.
func (s *Service) Snapshot() auction.Snapshot {
	return s.state.Snapshot()
}

// BidTable recommends a maximum bid for every pool player on behalf of team.
func (s *Service) BidTable(ctx context.Context, team model.TeamID) (recommend.Table, error) {
	return s.recommender.Table(ctx, s.state.Snapshot(), team)
}

// Predict forecasts the competition for player. A zero ownBid is replaced
// by the team's recommended bid.
func (s *Service) Predict(_ context.Context, player model.PlayerID, team model.TeamID, ownBid model.Money) (compete.Prediction, error) {
	snap := s.state.Snapshot()
	if ownBid <= 0 {
		if rec, err := s.recommender.Recommend(snap, team, player); err == nil {
			ownBid = rec.Recommended
		}
	}
	return s.predictor.Predict(snap, team, player, ownBid)
}

// Project builds the dream and realistic final rosters for team.
func (s *Service) Project(ctx context.Context, team model.TeamID, topN int) (projection.Projection, error) {
	return s.projector.Project(ctx, s.state.Snapshot(), team, topN)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	snap := s.state.Snapshot()
	sold := snap.Sold()
	unsold := len(snap.Pool())
	total := sold + unsold

	teams := make(map[string]any, len(snap.Teams))
	for _, t := range snap.Teams {
		teams[string(t.ID)] = map[string]any{
			"spent":     int64(t.Spent),
			"remaining": int64(t.Remaining()),
			"slotsLeft": t.SlotsLeft(),
		}
	}

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.deduper.Size(),
		"players":     total,
		"sold":        sold,
		"unsold":      unsold,
		"sales":       len(snap.History),
		"teams":       teams,
	}
	if total > 0 {
		stats["progress"] = float64(sold) / float64(total)
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdatePoolWorkers(s.pool.Size())
	}
	return stats
}
