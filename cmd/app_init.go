package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/aurora-qa/internal/cache"
	"github.com/sells-group/aurora-qa/internal/fetcher"
	"github.com/sells-group/aurora-qa/internal/metrics"
	"github.com/sells-group/aurora-qa/internal/qa"
	"github.com/sells-group/aurora-qa/internal/resilience"
	"github.com/sells-group/aurora-qa/internal/store"
	"github.com/sells-group/aurora-qa/pkg/messages"
)

// appEnv holds the wired components shared by the serve, ask, and fetch
// commands.
type appEnv struct {
	Store    store.Store // nil when store.driver is none
	Cache    *cache.Cache
	QA       *qa.Service
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initApp validates configuration for mode and builds the client, fetcher,
// cache, and ask service. Callers should defer env.Close().
func initApp(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	up := cfg.Upstream
	client := messages.NewClient(up.BaseURL,
		messages.WithTimeout(up.Timeout()),
		messages.WithUserAgent(up.UserAgent),
	)

	var limiter *fetcher.AdaptiveLimiter
	if up.RateLimit > 0 {
		limiter = fetcher.NewAdaptiveLimiter(rate.Limit(up.RateLimit), up.RateBurst)
	}

	paginator := fetcher.New(client, fetcher.Options{
		BatchSize: up.BatchSize,
		MaxPages:  up.MaxPages,
		Retry:     resilience.FromRetryConfig(up.RetryAttempts, up.RetryDelayMs),
		Breaker:   fetcher.NewBreaker(resilience.FromCircuitConfig(up.CircuitFailureThreshold, up.CircuitResetSecs)),
		Limiter:   limiter,
		Metrics:   m,
	})

	cacheOpts := []cache.Option{cache.WithMetrics(m)}
	if st != nil {
		cacheOpts = append(cacheOpts, cache.WithRecorder(st))
	}
	c := cache.New(paginator, cacheOpts...)

	zap.L().Debug("app initialized",
		zap.String("mode", mode),
		zap.String("store", cfg.Store.Driver),
		zap.Int("batch_size", paginator.BatchSize()),
		zap.Duration("timeout", up.Timeout()),
	)

	return &appEnv{
		Store:    st,
		Cache:    c,
		QA:       qa.NewService(c, m),
		Metrics:  m,
		Registry: reg,
	}, nil
}
