package fetcher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/aurora-qa/internal/metrics"
	"github.com/sells-group/aurora-qa/internal/model"
	"github.com/sells-group/aurora-qa/internal/resilience"
)

const (
	// DefaultBatchSize is the page size requested from the upstream.
	DefaultBatchSize = 100
	// DefaultMaxPages guards against an upstream that ignores skip.
	DefaultMaxPages = 10000
)

// Options configures a Paginator. Zero values pick defaults; a nil Breaker,
// Limiter or Metrics disables that concern.
type Options struct {
	BatchSize int
	MaxPages  int
	Retry     resilience.RetryConfig
	Breaker   *resilience.CircuitBreaker
	Limiter   *AdaptiveLimiter
	Metrics   *metrics.Metrics
}

// Paginator walks the upstream in batches of BatchSize.
type Paginator struct {
	src       PageSource
	batchSize int
	maxPages  int
	retry     resilience.RetryConfig
	breaker   *resilience.CircuitBreaker
	limiter   *AdaptiveLimiter
	metrics   *metrics.Metrics
}

// New creates a Paginator reading from src.
func New(src PageSource, opts Options) *Paginator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.FromRetryConfig(0, 0)
	}
	return &Paginator{
		src:       src,
		batchSize: opts.BatchSize,
		maxPages:  opts.MaxPages,
		retry:     opts.Retry,
		breaker:   opts.Breaker,
		limiter:   opts.Limiter,
		metrics:   opts.Metrics,
	}
}

// BatchSize returns the page size in use.
func (p *Paginator) BatchSize() int {
	return p.batchSize
}

// pageResult is the outcome of one page after retries.
type pageResult struct {
	page    *model.MessagePage
	failure failureClass
	status  int
	err     error
}

// FetchAll fetches every page. The returned error, when non-nil, is a
// *FetchError and means no page succeeded. A failure after at least one
// good page yields a partial Result and a nil error.
func (p *Paginator) FetchAll(ctx context.Context) (*Result, error) {
	res := &Result{Messages: []model.Message{}}
	skip := 0

	for {
		if res.Pages >= p.maxPages {
			res.Outcome = OutcomePartial
			res.Stop = StopPageLimit
			zap.L().Warn("fetcher: page limit reached, keeping partial result",
				zap.Int("max_pages", p.maxPages),
				zap.Int("messages", len(res.Messages)),
			)
			return res, nil
		}

		pr := p.fetchPage(ctx, skip)
		if pr.err != nil {
			if res.Pages == 0 {
				return nil, &FetchError{Skip: skip, StatusCode: pr.status, Err: pr.err}
			}
			res.Outcome = OutcomePartial
			res.Stop = pr.failure.stopReason()
			res.StopErr = pr.err
			zap.L().Warn("fetcher: page failed, keeping partial result",
				zap.Int("skip", skip),
				zap.Int("status", pr.status),
				zap.String("stop", res.Stop.String()),
				zap.Int("pages", res.Pages),
				zap.Int("messages", len(res.Messages)),
				zap.Error(pr.err),
			)
			return res, nil
		}

		res.Pages++
		res.Total = pr.page.Total
		res.Messages = append(res.Messages, pr.page.Items...)
		n := len(pr.page.Items)
		skip += p.batchSize

		zap.L().Debug("fetcher: page fetched",
			zap.Int("skip", skip-p.batchSize),
			zap.Int("items", n),
			zap.Int("total", res.Total),
		)

		if n == 0 || n < p.batchSize || (res.Total > 0 && skip >= res.Total) {
			res.Stop = StopExhausted
			return res, nil
		}
	}
}

func (p *Paginator) fetchPage(ctx context.Context, skip int) pageResult {
	retry := p.retry
	retry.OnRetry = func(attempt int, err error) {
		p.metrics.UpstreamRetry()
		resilience.RetryLogger("messages", "list_page", zap.Int("skip", skip))(attempt, err)
	}

	attempt := func(ctx context.Context) (*model.MessagePage, error) {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		started := time.Now()
		page, err := p.src.ListMessages(ctx, skip, p.batchSize)
		if err == nil && page == nil {
			page = &model.MessagePage{}
		}
		class, status := classify(err)
		p.metrics.UpstreamRequest(class.metricLabel())
		if p.limiter != nil {
			if isRateLimited(err) {
				p.limiter.OnRateLimit()
			} else if err == nil {
				p.limiter.OnSuccess()
			}
		}
		if err != nil {
			zap.L().Debug("fetcher: page attempt failed",
				zap.Int("skip", skip),
				zap.Int("status", status),
				zap.Duration("elapsed", time.Since(started)),
				zap.Error(err),
			)
		}
		return page, err
	}

	withRetry := func(ctx context.Context) (*model.MessagePage, error) {
		return resilience.DoVal(ctx, retry, attempt)
	}

	var page *model.MessagePage
	var err error
	if p.breaker != nil {
		page, err = resilience.ExecuteVal(ctx, p.breaker, withRetry)
	} else {
		page, err = withRetry(ctx)
	}

	class, status := classify(err)
	return pageResult{page: page, failure: class, status: status, err: err}
}
