package notification

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/verustcode/reportdesk/consts"
	"github.com/verustcode/reportdesk/internal/config"
	"github.com/verustcode/reportdesk/pkg/logger"
)

// SignatureHeader carries the HMAC-SHA256 of the request body.
const SignatureHeader = "X-ReportDesk-Signature"

// WebhookNotifier sends notifications via HTTP webhook
type WebhookNotifier struct {
	config config.WebhookConfig
	client *http.Client
}

// WebhookPayload is the JSON payload sent to the webhook endpoint
type WebhookPayload struct {
	// Event type: export_failed, export_completed
	EventType string `json:"event_type"`
	FormID    string `json:"form_id"`
	Title     string `json:"title,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	// Error message that caused the failure
	ErrorMessage string `json:"error_message,omitempty"`
	// Timestamp in RFC3339 format
	Timestamp string                 `json:"timestamp"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(cfg config.WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{
		config: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the notifier name
func (w *WebhookNotifier) Name() string {
	return "webhook"
}

// Send posts the event to the configured webhook URL
func (w *WebhookNotifier) Send(ctx context.Context, event *Event) error {
	if w.config.URL == "" {
		return fmt.Errorf("webhook URL is not configured")
	}

	payload := WebhookPayload{
		EventType:    string(event.Type),
		FormID:       event.FormID,
		Title:        event.Title,
		ErrorCode:    event.ErrorCode,
		ErrorMessage: event.ErrorMessage,
		Timestamp:    event.Timestamp.Format(time.RFC3339),
		Extra:        event.Extra,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", consts.ServiceName+"-notifier/"+consts.Version)
	if w.config.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(w.config.Secret, body))
	}

	logger.Debug("Sending webhook notification",
		zap.String("url", w.config.URL),
		zap.String("event_type", string(event.Type)),
	)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned non-success status: %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Sign returns the signature header value for payload: "sha256=" followed
// by the hex HMAC-SHA256 under secret.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature header value against payload.
func Verify(secret string, payload []byte, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, payload)), []byte(signature))
}
