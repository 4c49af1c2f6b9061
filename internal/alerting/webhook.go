package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/haidang-dev/warden/internal/core/domain"
	"github.com/haidang-dev/warden/internal/monitor/metrics"
)

// Sender delivers a batch of alerts to an external channel.
type Sender interface {
	Send(ctx context.Context, batch []*domain.AlertMessage) error
}

// WebhookSender posts alert batches as JSON to a configured webhook URL.
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender creates a sender with the given URL and request timeout.
func NewWebhookSender(url string, timeout time.Duration) *WebhookSender {
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type webhookPayload struct {
	Text      string `json:"text"`
	Title     string `json:"title"`
	Severity  string `json:"severity"`
	Color     string `json:"color"`
	Timestamp string `json:"timestamp"`
}

// Send posts one request per batch. Only 200 and 204 responses count as
// delivered.
func (s *WebhookSender) Send(ctx context.Context, batch []*domain.AlertMessage) error {
	payload := buildPayload(batch)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	metrics.WebhookLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// buildPayload flattens a batch into a single message. The highest severity
// in the batch decides the color.
func buildPayload(batch []*domain.AlertMessage) webhookPayload {
	top := domain.SeverityLow
	var lines []string
	for _, a := range batch {
		if a.Severity > top {
			top = a.Severity
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", strings.ToUpper(a.Severity.String()), a.Title, a.Body))
		for _, hint := range a.Hints {
			lines = append(lines, "  - "+hint)
		}
	}

	title := batch[0].Title
	if len(batch) > 1 {
		title = fmt.Sprintf("%d alerts", len(batch))
	}
	return webhookPayload{
		Text:      strings.Join(lines, "\n"),
		Title:     title,
		Severity:  top.String(),
		Color:     severityColor(top),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func severityColor(s domain.Severity) string {
	switch s {
	case domain.SeverityCritical:
		return "#d00000"
	case domain.SeverityHigh:
		return "#e85d04"
	case domain.SeverityMedium:
		return "#ffba08"
	default:
		return "#8d99ae"
	}
}
