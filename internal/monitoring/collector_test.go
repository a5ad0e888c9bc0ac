package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aurora-qa/internal/model"
)

var collectNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// mockRuns serves a fixed, newest-first run history.
type mockRuns struct {
	runs    []model.FetchRun
	listErr error
	limit   int
}

func (m *mockRuns) ListFetchRuns(_ context.Context, limit int) ([]model.FetchRun, error) {
	m.limit = limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.runs, nil
}

func newTestCollector(runs *mockRuns) *Collector {
	c := NewCollector(runs)
	c.nowFunc = func() time.Time { return collectNow }
	return c
}

func run(id string, outcome model.FetchOutcome, ago time.Duration, errMsg string) model.FetchRun {
	started := collectNow.Add(-ago)
	return model.FetchRun{
		ID:         id,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Outcome:    outcome,
		Error:      errMsg,
	}
}

func TestCollector_Collect(t *testing.T) {
	runs := &mockRuns{runs: []model.FetchRun{
		run("5", model.FetchOutcomeFailed, time.Hour, "messages: status 503"),
		run("4", model.FetchOutcomeFailed, 2*time.Hour, "messages: status 502"),
		run("3", model.FetchOutcomePartial, 3*time.Hour, "page limit"),
		run("2", model.FetchOutcomeComplete, 4*time.Hour, ""),
		run("1", model.FetchOutcomeFailed, 48*time.Hour, "old"),
	}}

	snap, err := newTestCollector(runs).Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 500, runs.limit)
	assert.Equal(t, 4, snap.FetchTotal)
	assert.Equal(t, 1, snap.FetchComplete)
	assert.Equal(t, 1, snap.FetchPartial)
	assert.Equal(t, 2, snap.FetchFailed)
	assert.InDelta(t, 0.5, snap.FailRate, 1e-9)
	assert.Equal(t, 2, snap.ConsecutiveFailures)
	assert.Equal(t, model.FetchOutcomeFailed, snap.LastOutcome)
	assert.Equal(t, "messages: status 503", snap.LastError)
	require.NotNil(t, snap.LastStartedAt)
	assert.Equal(t, collectNow.Add(-time.Hour), *snap.LastStartedAt)
	assert.Equal(t, 24, snap.LookbackHours)
	assert.Equal(t, collectNow, snap.CollectedAt)
}

func TestCollector_Collect_NoRuns(t *testing.T) {
	snap, err := newTestCollector(&mockRuns{}).Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Zero(t, snap.FetchTotal)
	assert.Zero(t, snap.FailRate)
	assert.Nil(t, snap.LastStartedAt)
	assert.Empty(t, snap.LastOutcome)
}

func TestCollector_Collect_StreakIgnoresWindow(t *testing.T) {
	runs := &mockRuns{runs: []model.FetchRun{
		run("2", model.FetchOutcomeFailed, 30*time.Hour, "down"),
		run("1", model.FetchOutcomeFailed, 40*time.Hour, "down"),
	}}

	snap, err := newTestCollector(runs).Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.Zero(t, snap.FetchTotal)
	assert.Equal(t, 2, snap.ConsecutiveFailures)
}

func TestCollector_Collect_ListError(t *testing.T) {
	runs := &mockRuns{listErr: errors.New("db closed")}

	_, err := newTestCollector(runs).Collect(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring: list fetch runs")
}
