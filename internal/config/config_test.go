package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bootstrap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 24*time.Hour, cfg.Wizard.TTL)
	assert.Equal(t, 2*time.Second, cfg.Wizard.SavedPulse)
	assert.Equal(t, RasterizerChrome, cfg.Export.Rasterizer)
	assert.Equal(t, 2.0, cfg.Export.Scale)
	assert.False(t, cfg.Auth.Enabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
wizard:
  ttl: 12h
  autosave_debounce: 250ms
export:
  rasterizer: native
  scale: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host, "unset fields keep defaults")
	assert.Equal(t, 12*time.Hour, cfg.Wizard.TTL)
	assert.Equal(t, 250*time.Millisecond, cfg.Wizard.AutosaveDebounce)
	assert.Equal(t, RasterizerNative, cfg.Export.Rasterizer)
	assert.Equal(t, 3.0, cfg.Export.Scale)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Port, cfg.Server.Port)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("RD_TEST_SECRET", "s3cr3t")

	tests := []struct {
		name, in, want string
	}{
		{"set variable", "secret: ${RD_TEST_SECRET}", "secret: s3cr3t"},
		{"default used", "path: ${RD_TEST_UNSET:-./data/x.db}", "path: ./data/x.db"},
		{"default ignored", "secret: ${RD_TEST_SECRET:-fallback}", "secret: s3cr3t"},
		{"unset without default", "x: ${RD_TEST_UNSET}", "x: "},
		{"bare dollar untouched", "hash: $2a$10$abc", "hash: $2a$10$abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnvVars(tt.in))
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RD_SERVER_PORT", "7001")
	t.Setenv("RD_DATABASE_PATH", "/tmp/rd.db")
	t.Setenv("RD_DRAFT_TTL", "1h")
	t.Setenv("RD_EXPORT_RASTERIZER", "native")
	t.Setenv("RD_SERVER_DEBUG", "yes")

	cfg, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, 7001, cfg.Server.Port)
	assert.Equal(t, "/tmp/rd.db", cfg.Database.Path)
	assert.Equal(t, time.Hour, cfg.Wizard.TTL)
	assert.Equal(t, RasterizerNative, cfg.Export.Rasterizer)
	assert.True(t, cfg.Server.Debug)
}

func TestServerAddress(t *testing.T) {
	s := ServerConfig{Host: "0.0.0.0", Port: 8091}
	assert.Equal(t, "0.0.0.0:8091", s.Address())
}

func TestNotificationConfig(t *testing.T) {
	n := NotificationConfig{
		Channel: NotificationChannelWebhook,
		Events:  []NotificationEvent{NotificationEventExportFailed},
	}
	assert.True(t, n.IsEnabled())
	assert.True(t, n.HasEvent(NotificationEventExportFailed))
	assert.False(t, n.HasEvent(NotificationEventExportCompleted))
	assert.False(t, (&NotificationConfig{}).IsEnabled())
}
