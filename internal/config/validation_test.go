package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/reportdesk/pkg/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"empty database path", func(c *Config) { c.Database.Path = " " }, "database.path"},
		{"short jwt secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "jwt_secret"},
		{"long jwt secret", func(c *Config) { c.Auth.JWTSecret = strings.Repeat("k", 32) }, ""},
		{"zero ttl", func(c *Config) { c.Wizard.TTL = 0 }, "wizard.ttl"},
		{"bad cron", func(c *Config) { c.Wizard.PurgeSchedule = "every hour" }, "purge_schedule"},
		{"descriptor cron", func(c *Config) { c.Wizard.PurgeSchedule = "@daily" }, ""},
		{"unknown rasterizer", func(c *Config) { c.Export.Rasterizer = "gpu" }, "export.rasterizer"},
		{"scale too high", func(c *Config) { c.Export.Scale = 8 }, "export.scale"},
		{"webhook without url", func(c *Config) { c.Notifications.Channel = NotificationChannelWebhook }, "webhook.url"},
		{"slack without url", func(c *Config) { c.Notifications.Channel = NotificationChannelSlack }, "slack.webhook_url"},
		{"unknown channel", func(c *Config) { c.Notifications.Channel = "pager" }, "not supported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.HasCode(err, errors.ErrCodeConfigInvalid))
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	cfg.Wizard.TTL = -1

	err := cfg.Validate()
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)

	problems, ok := appErr.Details.([]string)
	require.True(t, ok)
	assert.Len(t, problems, 2)
}
