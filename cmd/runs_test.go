package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/aurora-qa/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.FetchRun{
		{
			ID:           "abc12345-6789-0000-0000-000000000000",
			StartedAt:    now,
			FinishedAt:   now.Add(1500 * time.Millisecond),
			Pages:        4,
			MessageCount: 350,
			Total:        350,
			Outcome:      model.FetchOutcomeComplete,
		},
		{
			ID:           "def12345-6789-0000-0000-000000000000",
			StartedAt:    now.Add(-time.Hour),
			FinishedAt:   now.Add(-time.Hour).Add(time.Second),
			Pages:        2,
			MessageCount: 200,
			Total:        350,
			Outcome:      model.FetchOutcomePartial,
			Error:        "messages: GET /messages/ returned 503 after three attempts were made",
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "OUTCOME")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "partial")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "1.5s")
	assert.Contains(t, output, "...")
	assert.NotContains(t, output, "attempts were made")
}

func TestRunsStats(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	runs := []model.FetchRun{
		{ID: "1", Outcome: model.FetchOutcomeComplete, StartedAt: now, FinishedAt: now.Add(2 * time.Second), MessageCount: 100},
		{ID: "2", Outcome: model.FetchOutcomePartial, StartedAt: now, FinishedAt: now.Add(4 * time.Second), MessageCount: 50},
		{ID: "3", Outcome: model.FetchOutcomeFailed, StartedAt: now, FinishedAt: now.Add(time.Minute)},
		{ID: "4", Outcome: model.FetchOutcomeComplete, StartedAt: now.Add(-48 * time.Hour), FinishedAt: now.Add(-48 * time.Hour)},
	}

	s := computeRunStats(runs, now.Add(-24*time.Hour))
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Complete)
	assert.Equal(t, 1, s.Partial)
	assert.Equal(t, 1, s.Failed)
	assert.InDelta(t, 3.0, s.AvgDurSecs, 0.001)
	assert.InDelta(t, 75.0, s.AvgMessages, 0.001)

	all := computeRunStats(runs, time.Time{})
	assert.Equal(t, 4, all.Total)
	assert.Equal(t, 2, all.Complete)
}

func TestRunsStats_Empty(t *testing.T) {
	s := computeRunStats(nil, time.Time{})
	assert.Equal(t, runStats{}, s)
}

func TestFormatRunStats(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, runStats{Total: 5, Complete: 3, Partial: 1, Failed: 1, AvgDurSecs: 2.5, AvgMessages: 120})

	output := buf.String()
	assert.Contains(t, output, "Total runs:")
	assert.Contains(t, output, "5")
	assert.Contains(t, output, "Partial:")
	assert.Contains(t, output, "2.5s")
	assert.Contains(t, output, "Avg messages:")

	buf.Reset()
	formatRunStats(&buf, runStats{})
	assert.NotContains(t, buf.String(), "Avg duration")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}
