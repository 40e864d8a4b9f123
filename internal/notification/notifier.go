// Package notification delivers export outcome events to an external
// channel. It stands in for the toast surface when the composer runs
// unattended: failures reach a webhook or Slack instead of a UI.
package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verustcode/reportdesk/internal/config"
	"github.com/verustcode/reportdesk/pkg/logger"
)

// EventType represents the type of notification event
type EventType string

const (
	// EventExportFailed is triggered when an export aborts
	EventExportFailed EventType = "export_failed"
	// EventExportCompleted is triggered when an export produced an artifact
	EventExportCompleted EventType = "export_completed"
)

// Event represents a notification event with context information
type Event struct {
	Type EventType `json:"type"`
	// FormID identifies the draft that was exported
	FormID string `json:"form_id"`
	// Title is the report title from the document header
	Title        string    `json:"title"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	// Extra contains additional context-specific information
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// IsFailure reports whether the event describes a failed export.
func (e *Event) IsFailure() bool {
	return e.Type == EventExportFailed
}

// Notifier is the interface that all notification channels must implement
type Notifier interface {
	// Name returns the name of the notifier (e.g., "webhook", "slack")
	Name() string
	// Send sends a notification for the given event
	Send(ctx context.Context, event *Event) error
}

// Manager filters events by the configured list and dispatches them to
// the configured channel.
type Manager struct {
	mu       sync.RWMutex
	cfg      config.NotificationConfig
	notifier Notifier
}

var (
	globalManager *Manager
	globalMu      sync.RWMutex
)

// NewManager creates a notification manager for cfg.
func NewManager(cfg config.NotificationConfig) *Manager {
	m := &Manager{}
	m.UpdateConfig(cfg)
	return m
}

// Init installs the global notification manager.
func Init(cfg config.NotificationConfig) {
	m := NewManager(cfg)
	globalMu.Lock()
	globalManager = m
	globalMu.Unlock()

	if m.IsEnabled() {
		logger.Info("Notification manager initialized",
			zap.String("channel", string(cfg.Channel)),
			zap.Int("events_count", len(cfg.Events)),
		)
	} else {
		logger.Info("Notification manager initialized (disabled)")
	}
}

// GetManager returns the global notification manager, nil before Init.
func GetManager() *Manager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalManager
}

// UpdateConfig replaces the configuration and rebuilds the notifier.
func (m *Manager) UpdateConfig(cfg config.NotificationConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
	m.notifier = newNotifier(cfg)
}

func newNotifier(cfg config.NotificationConfig) Notifier {
	switch cfg.Channel {
	case config.NotificationChannelNone:
		return nil
	case config.NotificationChannelWebhook:
		return NewWebhookNotifier(cfg.Webhook)
	case config.NotificationChannelSlack:
		return NewSlackNotifier(cfg.Slack)
	default:
		logger.Warn("Unknown notification channel",
			zap.String("channel", string(cfg.Channel)),
		)
		return nil
	}
}

// IsEnabled returns true if notifications are enabled.
func (m *Manager) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.IsEnabled()
}

// Channel returns the configured channel.
func (m *Manager) Channel() config.NotificationChannel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Channel
}

// Notify sends event when notifications are enabled and the event type is
// in the configured list.
func (m *Manager) Notify(ctx context.Context, event *Event) error {
	m.mu.RLock()
	cfg := m.cfg
	notifier := m.notifier
	m.mu.RUnlock()

	if !cfg.IsEnabled() {
		logger.Debug("Notifications disabled, skipping",
			zap.String("event_type", string(event.Type)),
		)
		return nil
	}
	if !cfg.HasEvent(config.NotificationEvent(event.Type)) {
		logger.Debug("Event type not in notification list, skipping",
			zap.String("event_type", string(event.Type)),
		)
		return nil
	}
	if notifier == nil {
		logger.Warn("No notifier configured")
		return fmt.Errorf("no notifier configured for channel: %s", cfg.Channel)
	}

	logger.Info("Sending notification",
		zap.String("channel", notifier.Name()),
		zap.String("event_type", string(event.Type)),
		zap.String(logger.FieldFormID, event.FormID),
	)

	if err := notifier.Send(ctx, event); err != nil {
		logger.Error("Failed to send notification",
			zap.String("channel", notifier.Name()),
			zap.String("event_type", string(event.Type)),
			zap.String(logger.FieldFormID, event.FormID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to send notification via %s: %w", notifier.Name(), err)
	}
	return nil
}

// NotifyExportFailed notifies the global manager about an aborted export.
func NotifyExportFailed(ctx context.Context, formID, title, code, errorMsg string, extra map[string]interface{}) error {
	m := GetManager()
	if m == nil {
		return nil
	}
	return m.Notify(ctx, &Event{
		Type:         EventExportFailed,
		FormID:       formID,
		Title:        title,
		ErrorCode:    code,
		ErrorMessage: errorMsg,
		Timestamp:    time.Now(),
		Extra:        extra,
	})
}

// NotifyExportCompleted notifies the global manager about a finished export.
func NotifyExportCompleted(ctx context.Context, formID, title string, extra map[string]interface{}) error {
	m := GetManager()
	if m == nil {
		return nil
	}
	return m.Notify(ctx, &Event{
		Type:      EventExportCompleted,
		FormID:    formID,
		Title:     title,
		Timestamp: time.Now(),
		Extra:     extra,
	})
}

// ResetForTesting clears the global manager.
func ResetForTesting() {
	globalMu.Lock()
	globalManager = nil
	globalMu.Unlock()
}
