package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Notifier delivers a text message to a requester.
type Notifier interface {
	Notify(ctx context.Context, requesterID int64, text string) error
}

// LogNotifier writes messages to the log instead of delivering them.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, requesterID int64, text string) error {
	n.Logger.Info("notification", "requester", requesterID, "text", text)
	return nil
}

// WebhookNotifier posts messages as JSON to the chat gateway.
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

// NewWebhookNotifier creates a WebhookNotifier with a bounded request
// timeout.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

type webhookMessage struct {
	RequesterID int64  `json:"requester_id"`
	Text        string `json:"text"`
}

// Notify implements Notifier. Any non-2xx response is an error.
func (n *WebhookNotifier) Notify(ctx context.Context, requesterID int64, text string) error {
	body, err := json.Marshal(webhookMessage{RequesterID: requesterID, Text: text})
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		return fmt.Errorf("posting message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gateway responded %s", resp.Status)
	}
	return nil
}
