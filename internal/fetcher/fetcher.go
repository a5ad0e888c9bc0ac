// Package fetcher materializes the full message set from the upstream
// paginated API, retrying transient page failures and degrading to a partial
// result when a later page cannot be fetched.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sells-group/aurora-qa/internal/model"
	"github.com/sells-group/aurora-qa/internal/resilience"
	"github.com/sells-group/aurora-qa/pkg/messages"
)

// PageSource fetches one page of messages. messages.Client satisfies it.
type PageSource interface {
	ListMessages(ctx context.Context, skip, limit int) (*model.MessagePage, error)
}

// Outcome distinguishes a complete fetch from one that stopped early.
type Outcome int

const (
	OutcomeComplete Outcome = iota
	OutcomePartial
)

func (o Outcome) String() string {
	if o == OutcomePartial {
		return "partial"
	}
	return "complete"
}

// StopReason says why pagination ended.
type StopReason int

const (
	// StopExhausted: short or empty page, or skip reached the reported total.
	StopExhausted StopReason = iota
	// StopClientError: a later page returned 4xx, read as "no more data".
	StopClientError
	// StopServerError: a later page kept returning 5xx.
	StopServerError
	// StopTransportError: a later page failed without an HTTP status.
	StopTransportError
	// StopPageLimit: MaxPages was reached.
	StopPageLimit
)

func (r StopReason) String() string {
	switch r {
	case StopExhausted:
		return "exhausted"
	case StopClientError:
		return "client_error"
	case StopServerError:
		return "server_error"
	case StopTransportError:
		return "transport_error"
	case StopPageLimit:
		return "page_limit"
	default:
		return "unknown"
	}
}

// Result is a successful (possibly partial) fetch.
type Result struct {
	Messages []model.Message
	Pages    int
	Total    int
	Outcome  Outcome
	Stop     StopReason
	// StopErr is the page error that ended a partial fetch.
	StopErr error
}

// FetchError is the fatal failure: no page could be fetched.
type FetchError struct {
	Skip       int
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch messages: page at skip=%d failed with status %d: %v", e.Skip, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch messages: page at skip=%d failed: %v", e.Skip, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// failureClass is how a page failure feeds the partial-failure policy.
type failureClass int

const (
	failureNone failureClass = iota
	failureClient
	failureServer
	failureTransport
)

func (f failureClass) stopReason() StopReason {
	switch f {
	case failureClient:
		return StopClientError
	case failureServer:
		return StopServerError
	default:
		return StopTransportError
	}
}

func (f failureClass) metricLabel() string {
	switch f {
	case failureNone:
		return "ok"
	case failureClient:
		return "client_error"
	case failureServer:
		return "server_error"
	default:
		return "transport_error"
	}
}

// classify maps a page error to its failure class and HTTP status (0 when
// the error carries none).
func classify(err error) (failureClass, int) {
	if err == nil {
		return failureNone, 0
	}
	var se *messages.StatusError
	if errors.As(err, &se) {
		switch resilience.ClassifyStatus(se.StatusCode) {
		case resilience.StatusClassClient:
			return failureClient, se.StatusCode
		case resilience.StatusClassServer:
			return failureServer, se.StatusCode
		}
		return failureTransport, se.StatusCode
	}
	return failureTransport, 0
}

// NewBreaker builds a circuit breaker that trips on server and transport
// failures only. A 4xx ends pagination normally and must not open it.
func NewBreaker(cfg resilience.CircuitBreakerConfig) *resilience.CircuitBreaker {
	cfg.ShouldTrip = func(err error) bool {
		class, _ := classify(err)
		return class != failureClient
	}
	return resilience.NewCircuitBreaker(cfg)
}

func isRateLimited(err error) bool {
	var se *messages.StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests
}
