package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aurora-qa/internal/model"
	"github.com/sells-group/aurora-qa/internal/store"
)

// HealthSnapshot holds a point-in-time view of cache fetch health.
type HealthSnapshot struct {
	// Fetch runs within the lookback window.
	FetchTotal    int     `json:"fetch_total"`
	FetchComplete int     `json:"fetch_complete"`
	FetchPartial  int     `json:"fetch_partial"`
	FetchFailed   int     `json:"fetch_failed"`
	FailRate      float64 `json:"fail_rate"`

	// Newest runs, regardless of window.
	ConsecutiveFailures int                `json:"consecutive_failures"`
	LastOutcome         model.FetchOutcome `json:"last_outcome,omitempty"`
	LastError           string             `json:"last_error,omitempty"`
	LastStartedAt       *time.Time         `json:"last_started_at,omitempty"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister abstracts the store method needed by the collector.
type RunLister interface {
	ListFetchRuns(ctx context.Context, limit int) ([]model.FetchRun, error)
}

var _ RunLister = (store.Store)(nil)

// Collector gathers fetch health from the run history.
type Collector struct {
	runs    RunLister
	nowFunc func() time.Time
}

// NewCollector creates a new health collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs, nowFunc: time.Now}
}

// Collect summarizes recorded fetch runs over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*HealthSnapshot, error) {
	now := c.nowFunc().UTC()
	snap := &HealthSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	runs, err := c.runs.ListFetchRuns(ctx, store.MaxListLimit)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list fetch runs")
	}
	if len(runs) == 0 {
		return snap, nil
	}

	// Runs arrive newest first.
	last := runs[0]
	started := last.StartedAt
	snap.LastOutcome = last.Outcome
	snap.LastError = last.Error
	snap.LastStartedAt = &started
	for _, r := range runs {
		if r.Outcome != model.FetchOutcomeFailed {
			break
		}
		snap.ConsecutiveFailures++
	}

	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)
	for _, r := range runs {
		if r.StartedAt.Before(cutoff) {
			continue
		}
		snap.FetchTotal++
		switch r.Outcome {
		case model.FetchOutcomeComplete:
			snap.FetchComplete++
		case model.FetchOutcomePartial:
			snap.FetchPartial++
		case model.FetchOutcomeFailed:
			snap.FetchFailed++
		}
	}
	if snap.FetchTotal > 0 {
		snap.FailRate = float64(snap.FetchFailed) / float64(snap.FetchTotal)
	}

	return snap, nil
}
