package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/bazaar/internal/domain/model"
)

const defaultTable = "auction_roster"

// PostgresStore mirrors team rosters into a table keyed by
// (team_id, player_id). Each export replaces the team's rows.
type PostgresStore struct {
	pool     *pgxpool.Pool
	table    string
	maxConns int32
}

// NewPostgresStore connects to dsn and creates the table if missing.
func NewPostgresStore(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	if dsn == "" {
		return nil, ErrNoDSN
	}
	s := &PostgresStore{table: defaultTable}
	for _, opt := range opts {
		opt(s)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: parse config: %w", ErrConnect, err)
	}
	if s.maxConns > 0 {
		cfg.MaxConns = s.maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	s.pool = pool

	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Name identifies the sink in metrics and logs.
func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) ident() string {
	return pgx.Identifier{s.table}.Sanitize()
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			team_id   TEXT NOT NULL,
			player_id INTEGER NOT NULL,
			position  INTEGER NOT NULL,
			name      TEXT NOT NULL,
			category  TEXT NOT NULL,
			role      TEXT NOT NULL,
			tier      INTEGER NOT NULL,
			batting   DOUBLE PRECISION NOT NULL,
			bowling   DOUBLE PRECISION NOT NULL,
			fielding  DOUBLE PRECISION NOT NULL,
			overall   DOUBLE PRECISION NOT NULL,
			price     BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (team_id, player_id)
		)`, s.ident())
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("%w: create table: %w", ErrConnect, err)
	}
	return nil
}

// Export upserts rows and drops the team's rows that are no longer in the
// squad (an undone sale), all in one transaction.
func (s *PostgresStore) Export(ctx context.Context, team model.TeamID, rows []Row) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrWriteRows, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	upsert := fmt.Sprintf(`
		INSERT INTO %s (team_id, player_id, position, name, category, role, tier,
			batting, bowling, fielding, overall, price, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (team_id, player_id) DO UPDATE SET
			position = EXCLUDED.position,
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			role = EXCLUDED.role,
			tier = EXCLUDED.tier,
			batting = EXCLUDED.batting,
			bowling = EXCLUDED.bowling,
			fielding = EXCLUDED.fielding,
			overall = EXCLUDED.overall,
			price = EXCLUDED.price,
			updated_at = NOW()`, s.ident())

	batch := &pgx.Batch{}
	keep := make([]int32, 0, len(rows))
	for _, r := range rows {
		batch.Queue(upsert, string(team), int32(r.PlayerID), r.Position, r.Name, r.Category.String(),
			r.Role.String(), int(r.Tier), r.Batting, r.Bowling, r.Fielding, r.Overall, int64(r.Price))
		keep = append(keep, int32(r.PlayerID))
	}
	batch.Queue(fmt.Sprintf(`DELETE FROM %s WHERE team_id = $1 AND NOT (player_id = ANY($2))`, s.ident()), string(team), keep)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteRows, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrWriteRows, err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
