// Package cache holds the fetched message set in memory and guarantees that
// at most one population runs at a time.
package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/sells-group/aurora-qa/internal/fetcher"
	"github.com/sells-group/aurora-qa/internal/metrics"
	"github.com/sells-group/aurora-qa/internal/model"
)

// ErrConcurrentFetch is returned when a population is requested while another
// is still in flight. Callers retry; the request is not queued.
var ErrConcurrentFetch = eris.New("cache: already fetching messages")

// Fetcher produces the full message set. *fetcher.Paginator satisfies it.
type Fetcher interface {
	FetchAll(ctx context.Context) (*fetcher.Result, error)
}

// RunRecorder persists one population attempt. The store implements it.
type RunRecorder interface {
	RecordFetchRun(ctx context.Context, run *model.FetchRun) error
}

// snapshot is immutable once published.
type snapshot struct {
	messages    []model.Message
	populatedAt time.Time // zero when never populated
}

var emptySnapshot = &snapshot{messages: []model.Message{}}

// Stats mirrors the /cache-stats payload.
type Stats struct {
	MessageCount int        `json:"messageCount" yaml:"message_count"`
	IsPopulated  bool       `json:"isPopulated" yaml:"is_populated"`
	LastFetched  *time.Time `json:"lastFetched" yaml:"last_fetched"`
	AgeMs        *int64     `json:"ageMs" yaml:"age_ms"`
}

// Cache is the process-wide message cache. Create one with New and share the
// pointer; the zero value is not usable.
type Cache struct {
	fetcher  Fetcher
	recorder RunRecorder
	metrics  *metrics.Metrics

	// guard admits one population at a time via TryAcquire.
	guard *semaphore.Weighted
	snap  atomic.Pointer[snapshot]

	nowFunc func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithRecorder records every population attempt.
func WithRecorder(r RunRecorder) Option {
	return func(c *Cache) {
		c.recorder = r
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New creates an empty cache populated from f on first use.
func New(f Fetcher, opts ...Option) *Cache {
	c := &Cache{
		fetcher: f,
		guard:   semaphore.NewWeighted(1),
		nowFunc: time.Now,
	}
	c.snap.Store(emptySnapshot)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetAll returns the cached messages, populating the cache first if it is
// empty. The returned slice must not be modified.
func (c *Cache) GetAll(ctx context.Context) ([]model.Message, error) {
	if s := c.snap.Load(); len(s.messages) > 0 {
		return s.messages, nil
	}
	return c.Populate(ctx)
}

// Populate runs one fetch sequence and replaces the snapshot with its result.
// It returns ErrConcurrentFetch if a population is already running. The
// fetch ignores cancellation of ctx: once started it runs to completion.
func (c *Cache) Populate(ctx context.Context) ([]model.Message, error) {
	if !c.guard.TryAcquire(1) {
		c.metrics.ConcurrentReject()
		return nil, ErrConcurrentFetch
	}
	defer c.guard.Release(1)

	// Another caller may have finished a population between our read of the
	// snapshot and acquiring the guard.
	if s := c.snap.Load(); len(s.messages) > 0 {
		return s.messages, nil
	}

	ctx = context.WithoutCancel(ctx)
	run := &model.FetchRun{ID: uuid.New().String(), StartedAt: c.nowFunc().UTC()}

	res, err := c.fetcher.FetchAll(ctx)
	run.FinishedAt = c.nowFunc().UTC()

	if err != nil {
		run.Outcome = model.FetchOutcomeFailed
		run.Error = err.Error()
		c.finishRun(ctx, run)
		zap.L().Error("cache: population failed",
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
		var fe *fetcher.FetchError
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, eris.Wrap(err, "cache: populate")
	}

	c.snap.Store(&snapshot{messages: res.Messages, populatedAt: run.FinishedAt})
	c.metrics.SetCacheMessages(len(res.Messages))

	run.Pages = res.Pages
	run.Total = res.Total
	run.MessageCount = len(res.Messages)
	run.Outcome = model.FetchOutcomeComplete
	if res.Outcome == fetcher.OutcomePartial {
		run.Outcome = model.FetchOutcomePartial
		if res.StopErr != nil {
			run.Error = res.StopErr.Error()
		}
	}
	c.finishRun(ctx, run)

	zap.L().Info("cache: populated",
		zap.String("run_id", run.ID),
		zap.String("outcome", string(run.Outcome)),
		zap.Int("messages", run.MessageCount),
		zap.Int("pages", run.Pages),
		zap.Int("total", run.Total),
		zap.Duration("elapsed", run.Duration()),
	)
	return res.Messages, nil
}

func (c *Cache) finishRun(ctx context.Context, run *model.FetchRun) {
	c.metrics.FetchRun(string(run.Outcome), run.Duration().Seconds())
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordFetchRun(ctx, run); err != nil {
		zap.L().Warn("cache: record fetch run failed",
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
	}
}

// Snapshot returns the current messages without triggering a fetch.
func (c *Cache) Snapshot() []model.Message {
	return c.snap.Load().messages
}

// IsPopulated reports whether the cache holds at least one message.
func (c *Cache) IsPopulated() bool {
	return len(c.snap.Load().messages) > 0
}

// Age returns the time since the last successful population, and false if
// the cache has not been populated since creation or the last Clear.
func (c *Cache) Age() (time.Duration, bool) {
	s := c.snap.Load()
	if s.populatedAt.IsZero() {
		return 0, false
	}
	return c.nowFunc().Sub(s.populatedAt), true
}

// Clear drops the cached messages. An in-flight population is not aborted
// and will publish its result when it completes.
func (c *Cache) Clear() {
	c.snap.Store(emptySnapshot)
	c.metrics.SetCacheMessages(0)
}

// Fetching reports whether a population is in flight.
func (c *Cache) Fetching() bool {
	if c.guard.TryAcquire(1) {
		c.guard.Release(1)
		return false
	}
	return true
}

// Stats returns counters for the cache-stats endpoint.
func (c *Cache) Stats() Stats {
	s := c.snap.Load()
	st := Stats{
		MessageCount: len(s.messages),
		IsPopulated:  len(s.messages) > 0,
	}
	if !s.populatedAt.IsZero() {
		last := s.populatedAt
		age := c.nowFunc().Sub(last).Milliseconds()
		st.LastFetched = &last
		st.AgeMs = &age
	}
	return st
}

// ByUserName returns cached messages whose user_name contains name, ignoring case.
func (c *Cache) ByUserName(name string) []model.Message {
	return model.FilterByUserName(c.Snapshot(), name)
}

// Search returns cached messages whose body contains query, ignoring case.
func (c *Cache) Search(query string) []model.Message {
	return model.FilterByText(c.Snapshot(), query)
}

// ByUserID returns cached messages with exactly this user_id.
func (c *Cache) ByUserID(id string) []model.Message {
	return model.FilterByUserID(c.Snapshot(), id)
}
