// Package messages provides a client for the upstream paginated messages API.
package messages

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aurora-qa/internal/model"
	"github.com/sells-group/aurora-qa/internal/resilience"
)

// DefaultTimeout bounds a single page request.
const DefaultTimeout = 5 * time.Second

// maxErrorBody caps how much of a failed response body is kept.
const maxErrorBody = 512

// Client defines the upstream messages API operations.
type Client interface {
	// ListMessages fetches one page starting at skip with at most limit items.
	ListMessages(ctx context.Context, skip, limit int) (*model.MessagePage, error)
}

// StatusError is returned for any non-200 response.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("messages: unexpected status %d from %s", e.StatusCode, e.URL)
}

// Option configures the messages client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client. It replaces the timeout set by
// WithTimeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

type httpClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: "aurora-qa/1.0",
		http: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) ListMessages(ctx context.Context, skip, limit int) (*model.MessagePage, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))
	reqURL := c.baseURL + "/messages/?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "messages: create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "messages: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{StatusCode: resp.StatusCode, URL: reqURL, Body: string(body)}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "messages: read response body")
	}

	var page model.MessagePage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, eris.Wrap(err, "messages: unmarshal response")
	}
	if page.Items == nil {
		page.Items = []model.Message{}
	}
	return &page, nil
}
