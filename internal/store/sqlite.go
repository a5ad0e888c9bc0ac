package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/aurora-qa/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS fetch_runs (
	id            TEXT PRIMARY KEY,
	started_at    DATETIME NOT NULL,
	finished_at   DATETIME NOT NULL,
	pages         INTEGER NOT NULL DEFAULT 0,
	message_count INTEGER NOT NULL DEFAULT 0,
	total         INTEGER NOT NULL DEFAULT 0,
	outcome       TEXT NOT NULL,
	error         TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_fetch_runs_started_at ON fetch_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_fetch_runs_outcome ON fetch_runs(outcome);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordFetchRun(ctx context.Context, run *model.FetchRun) error {
	if run == nil {
		return eris.New("sqlite: nil fetch run")
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fetch_runs (id, started_at, finished_at, pages, message_count, total, outcome, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Pages, run.MessageCount, run.Total,
		string(run.Outcome), run.Error,
	)
	return eris.Wrapf(err, "sqlite: insert fetch run %s", run.ID)
}

func (s *SQLiteStore) GetFetchRun(ctx context.Context, id string) (*model.FetchRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, pages, message_count, total, outcome, error
		 FROM fetch_runs WHERE id = ?`,
		id,
	)
	r, err := scanFetchRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("fetch run not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get fetch run")
	}
	return r, nil
}

func (s *SQLiteStore) ListFetchRuns(ctx context.Context, limit int) ([]model.FetchRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, pages, message_count, total, outcome, error
		 FROM fetch_runs ORDER BY started_at DESC LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list fetch runs")
	}
	defer rows.Close() //nolint:errcheck

	runs := []model.FetchRun{}
	for rows.Next() {
		r, err := scanFetchRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan fetch run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list fetch runs iterate")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanFetchRun(row scannable) (*model.FetchRun, error) {
	var r model.FetchRun
	var outcome string
	err := row.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Pages, &r.MessageCount, &r.Total, &outcome, &r.Error)
	if err != nil {
		return nil, err
	}
	r.Outcome = model.FetchOutcome(outcome)
	return &r, nil
}
