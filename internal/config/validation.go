package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/verustcode/reportdesk/pkg/errors"
)

// MinJWTSecretLength is the minimum required length for JWT secret (256 bits for HS256)
const MinJWTSecretLength = 32

// Validate checks value ranges and cross-field constraints.
// All failures are reported together in one ErrCodeConfigInvalid error.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		problems = append(problems, "database.path is required")
	}
	if c.Auth.Enabled() && len(c.Auth.JWTSecret) < MinJWTSecretLength {
		problems = append(problems, fmt.Sprintf("auth.jwt_secret must be at least %d characters", MinJWTSecretLength))
	}

	if c.Wizard.TTL <= 0 {
		problems = append(problems, "wizard.ttl must be positive")
	}
	if c.Wizard.AutosaveDebounce < 0 {
		problems = append(problems, "wizard.autosave_debounce must not be negative")
	}
	if c.Wizard.SavedPulse < 0 {
		problems = append(problems, "wizard.saved_pulse must not be negative")
	}
	if c.Wizard.PurgeSchedule != "" {
		if _, err := cron.ParseStandard(c.Wizard.PurgeSchedule); err != nil {
			problems = append(problems, fmt.Sprintf("wizard.purge_schedule: %v", err))
		}
	}

	switch c.Export.Rasterizer {
	case RasterizerChrome, RasterizerNative:
	default:
		problems = append(problems, fmt.Sprintf("export.rasterizer %q must be %q or %q", c.Export.Rasterizer, RasterizerChrome, RasterizerNative))
	}
	if c.Export.Scale < 1 || c.Export.Scale > 4 {
		problems = append(problems, fmt.Sprintf("export.scale %.2f must be within [1,4]", c.Export.Scale))
	}

	switch c.Notifications.Channel {
	case NotificationChannelNone:
	case NotificationChannelWebhook:
		if c.Notifications.Webhook.URL == "" {
			problems = append(problems, "notifications.webhook.url is required for the webhook channel")
		}
	case NotificationChannelSlack:
		if c.Notifications.Slack.WebhookURL == "" {
			problems = append(problems, "notifications.slack.webhook_url is required for the slack channel")
		}
	default:
		problems = append(problems, fmt.Sprintf("notifications.channel %q is not supported", c.Notifications.Channel))
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New(errors.ErrCodeConfigInvalid, "invalid configuration: "+strings.Join(problems, "; ")).
		WithDetails(problems)
}
