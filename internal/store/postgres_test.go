package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aurora-qa/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var fetchRunColumns = []string{"id", "started_at", "finished_at", "pages", "message_count", "total", "outcome", "error"}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS fetch_runs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordFetchRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	started := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	run := &model.FetchRun{
		ID:           "run-1",
		StartedAt:    started,
		FinishedAt:   started.Add(time.Second),
		Pages:        2,
		MessageCount: 150,
		Total:        150,
		Outcome:      model.FetchOutcomeComplete,
	}

	mock.ExpectExec(`INSERT INTO fetch_runs`).
		WithArgs("run-1", started, started.Add(time.Second), 2, 150, 150, "complete", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.RecordFetchRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordFetchRun_AssignsID(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO fetch_runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), 0, 0, 0, "failed", "boom").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run := &model.FetchRun{Outcome: model.FetchOutcomeFailed, Error: "boom"}
	require.NoError(t, s.RecordFetchRun(context.Background(), run))
	assert.NotEmpty(t, run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordFetchRun_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO fetch_runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), 0, 0, 0, "complete", "").
		WillReturnError(errors.New("connection reset"))

	err := s.RecordFetchRun(context.Background(), &model.FetchRun{ID: "x", Outcome: model.FetchOutcomeComplete})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert fetch run x")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetFetchRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	started := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, started_at, finished_at, pages, message_count, total, outcome, error FROM fetch_runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(fetchRunColumns).
			AddRow("run-1", started, started.Add(2*time.Second), 1, 40, 90, "partial", "status 404"))

	got, err := s.GetFetchRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, 2*time.Second, got.Duration())
	assert.Equal(t, 40, got.MessageCount)
	assert.Equal(t, 90, got.Total)
	assert.Equal(t, model.FetchOutcomePartial, got.Outcome)
	assert.Equal(t, "status 404", got.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetFetchRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM fetch_runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetFetchRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListFetchRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	t1 := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	t0 := t1.Add(-time.Hour)
	mock.ExpectQuery(`FROM fetch_runs ORDER BY started_at DESC LIMIT \$1`).
		WithArgs(DefaultListLimit).
		WillReturnRows(pgxmock.NewRows(fetchRunColumns).
			AddRow("b", t1, t1.Add(time.Second), 2, 150, 150, "complete", "").
			AddRow("a", t0, t0.Add(time.Second), 1, 0, 0, "failed", "boom"))

	runs, err := s.ListFetchRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)
	assert.Equal(t, model.FetchOutcomeFailed, runs[1].Outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListFetchRuns_QueryError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM fetch_runs`).
		WithArgs(MaxListLimit).
		WillReturnError(errors.New("timeout"))

	_, err := s.ListFetchRuns(context.Background(), 10_000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list fetch runs")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CloseWithoutPool(t *testing.T) {
	s := &PostgresStore{}
	assert.NoError(t, s.Close())
}
