package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/aurora-qa/internal/db"
	"github.com/sells-group/aurora-qa/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"insert_fetch_run": `INSERT INTO fetch_runs (id, started_at, finished_at, pages, message_count, total, outcome, error) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"get_fetch_run":    `SELECT id, started_at, finished_at, pages, message_count, total, outcome, error FROM fetch_runs WHERE id = $1`,
	"list_fetch_runs":  `SELECT id, started_at, finished_at, pages, message_count, total, outcome, error FROM fetch_runs ORDER BY started_at DESC LIMIT $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := db.Ping(ctx, pool, 10*time.Second); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS fetch_runs (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL,
	pages         INTEGER NOT NULL DEFAULT 0,
	message_count INTEGER NOT NULL DEFAULT 0,
	total         INTEGER NOT NULL DEFAULT 0,
	outcome       TEXT NOT NULL,
	error         TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_fetch_runs_started_at ON fetch_runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_fetch_runs_outcome ON fetch_runs(outcome);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) RecordFetchRun(ctx context.Context, run *model.FetchRun) error {
	if run == nil {
		return eris.New("postgres: nil fetch run")
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx, preparedStatements["insert_fetch_run"],
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Pages, run.MessageCount, run.Total,
		string(run.Outcome), run.Error,
	)
	return eris.Wrapf(err, "postgres: insert fetch run %s", run.ID)
}

func (s *PostgresStore) GetFetchRun(ctx context.Context, id string) (*model.FetchRun, error) {
	row := s.pool.QueryRow(ctx, preparedStatements["get_fetch_run"], id)
	r, err := scanFetchRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("fetch run not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get fetch run")
	}
	return r, nil
}

func (s *PostgresStore) ListFetchRuns(ctx context.Context, limit int) ([]model.FetchRun, error) {
	rows, err := s.pool.Query(ctx, preparedStatements["list_fetch_runs"], clampLimit(limit))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list fetch runs")
	}
	defer rows.Close()

	runs := []model.FetchRun{}
	for rows.Next() {
		r, err := scanFetchRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan fetch run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list fetch runs iterate")
}
