package model

import "time"

// FetchOutcome is the terminal state of one cache population attempt.
type FetchOutcome string

const (
	FetchOutcomeComplete FetchOutcome = "complete"
	FetchOutcomePartial  FetchOutcome = "partial"
	FetchOutcomeFailed   FetchOutcome = "failed"
)

// FetchRun records one population attempt of the message cache.
type FetchRun struct {
	ID           string       `json:"id" yaml:"id"`
	StartedAt    time.Time    `json:"started_at" yaml:"started_at"`
	FinishedAt   time.Time    `json:"finished_at" yaml:"finished_at"`
	Pages        int          `json:"pages" yaml:"pages"`
	MessageCount int          `json:"message_count" yaml:"message_count"`
	Total        int          `json:"total" yaml:"total"`
	Outcome      FetchOutcome `json:"outcome" yaml:"outcome"`
	Error        string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// Duration returns how long the attempt took.
func (r FetchRun) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
