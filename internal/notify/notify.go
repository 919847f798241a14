// Package notify delivers run reports to an external webhook so daemon passes
// are visible without watching logs.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/apex/log"

	"github.com/tagwarden/tagwarden/internal/models"
)

const webhookTimeout = 10 * time.Second

// Notifier receives the outcome of every pass: the report when a pass
// completes, or the run-level error when it does not.
type Notifier interface {
	Notify(ctx context.Context, report *models.RunReport) error
	NotifyFailure(ctx context.Context, runErr error) error
}

// Noop discards reports. Used when no webhook is configured.
type Noop struct{}

func (Noop) Notify(ctx context.Context, report *models.RunReport) error { return nil }

func (Noop) NotifyFailure(ctx context.Context, runErr error) error { return nil }

// WebhookNotifier POSTs each report as JSON to a configured URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhook builds a notifier for the given URL.
func NewWebhook(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: webhookTimeout},
	}
}

// webhookPayload is the wire shape of a notification. Text carries a one-line
// human summary; Report the full structured report.
type webhookPayload struct {
	Text   string            `json:"text"`
	Report *models.RunReport `json:"report"`
}

func (n *WebhookNotifier) Notify(ctx context.Context, report *models.RunReport) error {
	return n.post(ctx, webhookPayload{
		Text:   SummaryLine(report),
		Report: report,
	})
}

// NotifyFailure delivers a text-only payload when a pass fails before a
// report exists.
func (n *WebhookNotifier) NotifyFailure(ctx context.Context, runErr error) error {
	return n.post(ctx, webhookPayload{
		Text: fmt.Sprintf("tag pass failed: %v", runErr),
	})
}

// Check verifies the webhook endpoint is reachable without posting a report.
// Any HTTP response counts as reachable; only transport failures are errors.
func (n *WebhookNotifier) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, n.url, nil)
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

func (n *WebhookNotifier) post(ctx context.Context, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	log.WithField("text", payload.Text).Debug("webhook delivered")
	return nil
}

// SummaryLine renders a one-line status message for a completed pass.
func SummaryLine(r *models.RunReport) string {
	s := r.Summary
	switch {
	case s.Failed > 0:
		return fmt.Sprintf("tag pass finished with %d failure(s): %d/%d resources tagged",
			s.Failed, s.Tagged, s.ResourcesScanned)
	case s.Tagged > 0:
		return fmt.Sprintf("tags updated on %d of %d resources", s.Tagged, s.ResourcesScanned)
	case s.Planned > 0:
		return fmt.Sprintf("%d of %d resources need tag changes", s.Planned, s.ResourcesScanned)
	default:
		return fmt.Sprintf("all %d resources compliant", s.ResourcesScanned)
	}
}
