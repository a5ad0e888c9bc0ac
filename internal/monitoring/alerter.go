package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/aurora-qa/internal/config"
	"github.com/sells-group/aurora-qa/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFetchFailureRate    AlertType = "fetch_failure_rate"
	AlertConsecutiveFailures AlertType = "fetch_consecutive_failures"
	AlertPartialFetch        AlertType = "fetch_partial"
)

// minRunsForRate is the smallest window sample the failure-rate check trusts.
const minRunsForRate = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a HealthSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *HealthSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if snap.FetchTotal >= minRunsForRate && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertFetchFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Fetch failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d runs in last %dh)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.FetchFailed, snap.FetchTotal, snap.LookbackHours,
			),
			Details: map[string]any{
				"fail_rate": snap.FailRate,
				"threshold": a.cfg.FailureRateThreshold,
				"failed":    snap.FetchFailed,
				"total":     snap.FetchTotal,
			},
			Timestamp: now,
		})
	}

	if a.cfg.ConsecutiveFailures > 0 && snap.ConsecutiveFailures >= a.cfg.ConsecutiveFailures {
		alerts = append(alerts, Alert{
			Type:     AlertConsecutiveFailures,
			Severity: "high",
			Message: fmt.Sprintf(
				"Last %d message fetches failed; latest error: %s",
				snap.ConsecutiveFailures, snap.LastError,
			),
			Details: map[string]any{
				"consecutive_failures": snap.ConsecutiveFailures,
				"threshold":            a.cfg.ConsecutiveFailures,
				"last_error":           snap.LastError,
			},
			Timestamp: now,
		})
	}

	if snap.LastOutcome == model.FetchOutcomePartial {
		alerts = append(alerts, Alert{
			Type:     AlertPartialFetch,
			Severity: "medium",
			Message:  "Latest message fetch kept a partial result: " + snap.LastError,
			Details: map[string]any{
				"last_error": snap.LastError,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
