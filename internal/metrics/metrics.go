// Package metrics holds the Prometheus collectors for the fetch-and-cache
// layer and the question answering engine.
//
// All metrics are prefixed with "aurora_":
//   - aurora_upstream_requests_total{result} - page requests by result
//   - aurora_upstream_retries_total - page request retries
//   - aurora_fetch_runs_total{outcome} - cache population attempts
//   - aurora_fetch_duration_seconds - duration of a full population
//   - aurora_cache_messages - messages in the current snapshot
//   - aurora_concurrent_fetch_rejected_total - populations rejected as in flight
//   - aurora_questions_total{intent} - questions answered by intent
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	UpstreamRequests  *prometheus.CounterVec
	UpstreamRetries   prometheus.Counter
	FetchRuns         *prometheus.CounterVec
	FetchDuration     prometheus.Histogram
	CacheMessages     prometheus.Gauge
	ConcurrentRejects prometheus.Counter
	Questions         *prometheus.CounterVec
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UpstreamRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aurora_upstream_requests_total",
				Help: "Upstream page requests by result",
			},
			[]string{"result"}, // "ok", "client_error", "server_error", "transport_error"
		),
		UpstreamRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "aurora_upstream_retries_total",
			Help: "Upstream page request retries",
		}),
		FetchRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aurora_fetch_runs_total",
				Help: "Cache population attempts by outcome",
			},
			[]string{"outcome"},
		),
		FetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "aurora_fetch_duration_seconds",
			Help:    "Duration of a full paginated fetch",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),
		CacheMessages: f.NewGauge(prometheus.GaugeOpts{
			Name: "aurora_cache_messages",
			Help: "Messages held in the current cache snapshot",
		}),
		ConcurrentRejects: f.NewCounter(prometheus.CounterOpts{
			Name: "aurora_concurrent_fetch_rejected_total",
			Help: "Cache populations rejected because one was already in flight",
		}),
		Questions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aurora_questions_total",
				Help: "Questions answered by classified intent",
			},
			[]string{"intent"},
		),
	}
}

// UpstreamRequest counts one page request attempt.
func (m *Metrics) UpstreamRequest(result string) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(result).Inc()
}

// UpstreamRetry counts one retry.
func (m *Metrics) UpstreamRetry() {
	if m == nil {
		return
	}
	m.UpstreamRetries.Inc()
}

// FetchRun records a finished population attempt.
func (m *Metrics) FetchRun(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.FetchRuns.WithLabelValues(outcome).Inc()
	m.FetchDuration.Observe(seconds)
}

// SetCacheMessages sets the snapshot size gauge.
func (m *Metrics) SetCacheMessages(n int) {
	if m == nil {
		return
	}
	m.CacheMessages.Set(float64(n))
}

// ConcurrentReject counts a rejected population.
func (m *Metrics) ConcurrentReject() {
	if m == nil {
		return
	}
	m.ConcurrentRejects.Inc()
}

// Question counts an answered question.
func (m *Metrics) Question(intent string) {
	if m == nil {
		return
	}
	m.Questions.WithLabelValues(intent).Inc()
}
