package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/verdictlabs/verdict/internal/core"
)

// Webhook POSTs alerts as JSON to a configured URL.
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewWebhook creates a webhook sink.
func NewWebhook(url string, headers map[string]string) *Webhook {
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Send(alert core.DriftAlert) error {
	body, err := json.Marshal(map[string]any{
		"type":         "drift_alert",
		"id":           alert.ID,
		"analysis_id":  alert.AnalysisID,
		"symbol":       alert.Symbol,
		"severity":     alert.Severity,
		"reason":       alert.Reason,
		"triggered_at": alert.TriggeredAt.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal alert: %w", err)
	}

	req, err := http.NewRequest("POST", w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: server returned %d", resp.StatusCode)
	}
	return nil
}
