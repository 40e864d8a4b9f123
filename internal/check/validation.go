package check

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/verustcode/reportdesk/internal/config"
)

// chromeCandidates are tried in order when no explicit browser is configured
var chromeCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
	"headless-shell",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
}

// ValidationResult represents the result of a config validation
type ValidationResult struct {
	Path     string
	Valid    bool
	Detail   string
	Error    error
	Warnings []string
}

// validateConfigs validates the configuration file, then probes the browser.
// A missing browser is reported but does not fail the check.
func (c *Checker) validateConfigs() error {
	configResult, cfg := c.validateConfigFile()
	c.report.AddValidationResult(configResult)
	printValidationResult(configResult)

	if !configResult.Valid {
		return fmt.Errorf("%s validation failed: %w", configResult.Path, configResult.Error)
	}

	browserResult := c.probeChrome(cfg)
	c.report.AddValidationResult(browserResult)
	printValidationResult(browserResult)

	return nil
}

// validateConfigFile loads the configuration and checks its values
func (c *Checker) validateConfigFile() (ValidationResult, *config.Config) {
	result := ValidationResult{Path: c.configPath}

	if !fileExists(c.configPath) {
		result.Warnings = append(result.Warnings, "file does not exist, using defaults")
	}
	cfg, err := config.LoadOrDefault(c.configPath)
	if err != nil {
		result.Error = fmt.Errorf("format error: %v", err)
		return result, nil
	}
	if err := cfg.Validate(); err != nil {
		result.Error = err
		return result, nil
	}

	result.Valid = true
	result.Detail = fmt.Sprintf("rasterizer %s, listening on %s", cfg.Export.Rasterizer, cfg.Server.Address())
	if !cfg.Auth.Enabled() {
		result.Warnings = append(result.Warnings, "auth.jwt_secret is empty, the API is open to local callers")
	}
	return result, cfg
}

// probeChrome looks for the browser the chrome rasterizer will launch
func (c *Checker) probeChrome(cfg *config.Config) ValidationResult {
	result := ValidationResult{Path: "export.rasterizer"}
	if cfg.Export.Rasterizer != config.RasterizerChrome {
		result.Valid = true
		result.Detail = cfg.Export.Rasterizer + ", no browser needed"
		return result
	}

	var tried []string
	if explicit := firstNonEmpty(cfg.Export.ChromePath, os.Getenv("CHROME_PATH")); explicit != "" {
		if resolved, err := c.lookPath(explicit); err == nil {
			result.Valid = true
			result.Detail = "chrome at " + resolved
			return result
		}
		result.Error = fmt.Errorf("configured browser not found: %s", explicit)
		return result
	}

	for _, name := range chromeCandidates {
		resolved, err := c.lookPath(name)
		if err == nil {
			result.Valid = true
			result.Detail = "chrome at " + resolved
			return result
		}
		tried = append(tried, name)
	}
	result.Error = fmt.Errorf("no Chrome or Chromium browser found (tried: %s)", strings.Join(tried, ", "))
	return result
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// printValidationResult prints the validation result
func printValidationResult(result ValidationResult) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	if result.Valid {
		if result.Detail != "" {
			green.Printf("  ✓ %s (%s)\n", result.Path, result.Detail)
		} else {
			green.Printf("  ✓ %s\n", result.Path)
		}
	} else if result.Error != nil {
		red.Printf("  ✗ %s: %v\n", result.Path, result.Error)
	} else {
		yellow.Printf("  ⚠ %s\n", result.Path)
	}

	for _, warning := range result.Warnings {
		yellow.Printf("    └─ %s\n", warning)
	}
}
