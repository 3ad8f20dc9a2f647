// Package notification holds the outbound notification transports.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"supportdesk/internal/application/notification"
	"supportdesk/internal/shared/config"
	"supportdesk/internal/shared/logger"
)

// maxErrorBodySize bounds how much of a failed response is kept for the log.
const maxErrorBodySize = 4 << 10

type webhookPayload struct {
	UserID   string            `json:"userId"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// WebhookTransport posts notifications as JSON to a push gateway.
type WebhookTransport struct {
	config     config.WebhookConfig
	httpClient *http.Client
	logger     logger.Interface
}

// NewWebhookTransport creates a webhook transport. The dispatcher bounds each call with
// its own timeout, so the client carries none.
func NewWebhookTransport(cfg config.WebhookConfig, log logger.Interface) *WebhookTransport {
	return &WebhookTransport{
		config:     cfg,
		httpClient: &http.Client{},
		logger:     log,
	}
}

var _ notification.Transport = (*WebhookTransport)(nil)

func (t *WebhookTransport) Send(ctx context.Context, userID, title, body string, metadata map[string]string) error {
	payload, err := json.Marshal(webhookPayload{
		UserID:   userID,
		Title:    title,
		Body:     body,
		Metadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.config.AuthToken)
	}
	for k, v := range t.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call push gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return fmt.Errorf("push gateway returned status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
	return nil
}
