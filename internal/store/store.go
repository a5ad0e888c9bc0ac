package store

import (
	"context"

	"github.com/sells-group/aurora-qa/internal/model"
)

const (
	// DefaultListLimit is used when ListFetchRuns is called with limit <= 0.
	DefaultListLimit = 20
	// MaxListLimit caps a single ListFetchRuns call.
	MaxListLimit = 500
)

// Store persists the history of cache population attempts.
type Store interface {
	// RecordFetchRun inserts run, assigning an ID if it has none.
	RecordFetchRun(ctx context.Context, run *model.FetchRun) error
	// GetFetchRun returns one run by ID.
	GetFetchRun(ctx context.Context, id string) (*model.FetchRun, error)
	// ListFetchRuns returns the most recent runs first.
	ListFetchRuns(ctx context.Context, limit int) ([]model.FetchRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
