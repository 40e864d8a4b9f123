// Package config provides configuration management for the application.
// It supports YAML configuration files with environment variable expansion
// and RD_* environment overrides.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verustcode/reportdesk/consts"
	"github.com/verustcode/reportdesk/pkg/logger"
	"github.com/verustcode/reportdesk/pkg/telemetry"
)

// Default configuration values
const (
	defaultHost            = "127.0.0.1"
	defaultPort            = 8091
	defaultDatabasePath    = "./data/reportdesk.db"
	defaultDraftTTL        = 24 * time.Hour
	defaultAutosaveDelay   = 800 * time.Millisecond
	defaultSavedPulse      = 2 * time.Second
	defaultPurgeSchedule   = "@every 1h"
	defaultExportScale     = 2.0
	defaultStartupTimeout  = 60 * time.Second
	defaultImageFetchLimit = 30 * time.Second
	defaultOutputDir       = "."
	defaultOTLPEndpoint    = "localhost:4317"
	defaultPrometheusPort  = 9090
)

// DefaultPath is where serve/compose/export look for the configuration file.
const DefaultPath = "config/bootstrap.yaml"

// Rasterizer backends
const (
	RasterizerChrome = "chrome"
	RasterizerNative = "native"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Database      DatabaseConfig     `yaml:"database"`
	Auth          AuthConfig         `yaml:"auth"`
	Wizard        WizardConfig       `yaml:"wizard"`
	Export        ExportConfig       `yaml:"export"`
	Notifications NotificationConfig `yaml:"notifications"`
	Logging       logger.Config      `yaml:"logging"`
	Telemetry     telemetry.Config   `yaml:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	Debug       bool     `yaml:"debug"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// DatabaseConfig holds the draft database location
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig describes how bearer tokens issued by the upstream auth
// service are verified. An empty secret disables authentication.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// Enabled reports whether API requests must carry a valid token.
func (c *AuthConfig) Enabled() bool {
	return c.JWTSecret != ""
}

// WizardConfig holds draft persistence settings
type WizardConfig struct {
	// TTL is how long a persisted draft stays restorable
	TTL time.Duration `yaml:"ttl"`
	// AutosaveDebounce is the quiet period before a burst of edits is written
	AutosaveDebounce time.Duration `yaml:"autosave_debounce"`
	// SavedPulse is how long the "saved" indicator stays on after a flush
	SavedPulse time.Duration `yaml:"saved_pulse"`
	// PurgeSchedule is the cron spec of the expired draft sweep
	PurgeSchedule string `yaml:"purge_schedule"`
}

// ExportConfig holds PDF export settings
type ExportConfig struct {
	// Rasterizer selects the page capture backend: chrome or native
	Rasterizer string `yaml:"rasterizer"`
	// Scale is the oversampling factor applied when rasterizing a page
	Scale float64 `yaml:"scale"`
	// ChromePath overrides browser discovery (CHROME_PATH is also honoured)
	ChromePath string `yaml:"chrome_path"`
	// StartupTimeout bounds browser allocation only, never the export itself
	StartupTimeout time.Duration `yaml:"startup_timeout"`
	// ImageFetchTimeout bounds each external image download of the native backend
	ImageFetchTimeout time.Duration `yaml:"image_fetch_timeout"`
	// Origin is sent on external image requests; the response must allow it
	Origin string `yaml:"origin"`
	// ClearOnSuccess discards the draft after a successful export
	ClearOnSuccess bool `yaml:"clear_on_success"`
	// OutputDir is where the CLI writes artifacts
	OutputDir string `yaml:"output_dir"`
}

// NotificationEvent represents the type of event to notify
type NotificationEvent string

const (
	NotificationEventExportFailed    NotificationEvent = "export_failed"
	NotificationEventExportCompleted NotificationEvent = "export_completed"
)

// NotificationChannel represents the type of notification channel
type NotificationChannel string

const (
	NotificationChannelNone    NotificationChannel = ""
	NotificationChannelWebhook NotificationChannel = "webhook"
	NotificationChannelSlack   NotificationChannel = "slack"
)

// NotificationConfig holds notification configuration
type NotificationConfig struct {
	// Channel is the single delivery channel; empty disables notifications
	Channel NotificationChannel `yaml:"channel"`
	// Events lists which events are delivered
	Events  []NotificationEvent `yaml:"events"`
	Webhook WebhookConfig       `yaml:"webhook"`
	Slack   SlackConfig         `yaml:"slack"`
}

// WebhookConfig holds webhook notification settings
type WebhookConfig struct {
	URL string `yaml:"url"`
	// Secret signs the payload with HMAC-SHA256 when set
	Secret string `yaml:"secret"`
}

// SlackConfig holds Slack notification settings
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Channel    string `yaml:"channel"`
}

// IsEnabled returns true if a channel is configured
func (c *NotificationConfig) IsEnabled() bool {
	return c.Channel != NotificationChannelNone
}

// HasEvent checks if the given event is configured for notification
func (c *NotificationConfig) HasEvent(event NotificationEvent) bool {
	for _, e := range c.Events {
		if e == event {
			return true
		}
	}
	return false
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: defaultHost,
			Port: defaultPort,
		},
		Database: DatabaseConfig{
			Path: defaultDatabasePath,
		},
		Wizard: WizardConfig{
			TTL:              defaultDraftTTL,
			AutosaveDebounce: defaultAutosaveDelay,
			SavedPulse:       defaultSavedPulse,
			PurgeSchedule:    defaultPurgeSchedule,
		},
		Export: ExportConfig{
			Rasterizer:        RasterizerChrome,
			Scale:             defaultExportScale,
			StartupTimeout:    defaultStartupTimeout,
			ImageFetchTimeout: defaultImageFetchLimit,
			OutputDir:         defaultOutputDir,
		},
		Notifications: NotificationConfig{
			Events: []NotificationEvent{NotificationEventExportFailed},
		},
		Logging: logger.Config{
			Level:  "info",
			Format: "text",
		},
		Telemetry: telemetry.Config{
			Enabled:     false,
			ServiceName: consts.ServiceName,
			OTLP: telemetry.OTLPConfig{
				Endpoint: defaultOTLPEndpoint,
				Insecure: true,
			},
			Prometheus: telemetry.PrometheusConfig{
				Port: defaultPrometheusPort,
			},
		},
	}
}

// Load loads configuration from a YAML file with environment variable expansion
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expanded := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to Default otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if !Exists(path) {
		cfg := Default()
		applyEnvOverrides(cfg)
		return cfg, nil
	}
	return Load(path)
}

// Exists checks if the configuration file exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} and ${VAR_NAME:-default} patterns.
// Bare $VAR is left alone so secrets containing '$' survive.
func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		parts := strings.SplitN(match[2:len(match)-1], ":-", 2)
		if value := os.Getenv(parts[0]); value != "" {
			return value
		}
		if len(parts) > 1 {
			return parts[1]
		}
		return ""
	})
}

// applyEnvOverrides applies RD_* environment variables on top of the file
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RD_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("RD_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("RD_SERVER_DEBUG"); v != "" {
		cfg.Server.Debug = parseBool(v)
	}
	if v := os.Getenv("RD_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("RD_AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("RD_DRAFT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Wizard.TTL = d
		}
	}
	if v := os.Getenv("RD_EXPORT_RASTERIZER"); v != "" {
		cfg.Export.Rasterizer = v
	}
	if v := os.Getenv("RD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RD_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("RD_TELEMETRY_ENABLED"); v != "" {
		cfg.Telemetry.Enabled = parseBool(v)
	}
	if v := os.Getenv("RD_PROMETHEUS_ENABLED"); v != "" {
		cfg.Telemetry.Prometheus.Enabled = parseBool(v)
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

// Address returns the server address string
func (c *ServerConfig) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
