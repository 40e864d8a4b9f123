// Package check provides interactive environment checking and initialization.
// It helps users set up their local ReportDesk configuration properly.
package check

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/verustcode/reportdesk/internal/config"
)

// CheckResult represents the result of a non-interactive environment check
type CheckResult struct {
	// Success indicates whether all required checks passed
	Success bool
	// Errors contains critical errors that prevent server startup
	Errors []string
	// Warnings contains non-critical issues that don't block startup
	Warnings []string
	// Suggestions contains helpful tips for fixing issues
	Suggestions []string
}

// Checker handles environment checking and initialization
type Checker struct {
	// configPath is the bootstrap configuration file
	configPath string
	// report collects check results for final output
	report *Report

	// confirm asks before a file is created; huh prompt by default
	confirm func(title string) (bool, error)
	// lookPath resolves browser binaries; exec.LookPath by default
	lookPath func(file string) (string, error)
}

// NewChecker creates a new environment checker for the configuration at
// configPath. An empty path means config.DefaultPath.
func NewChecker(configPath string) *Checker {
	if configPath == "" {
		configPath = config.DefaultPath
	}
	return &Checker{
		configPath: configPath,
		report:     NewReport(),
		confirm:    confirmCreate,
		lookPath:   exec.LookPath,
	}
}

// Run executes the full environment check
func (c *Checker) Run() error {
	c.printHeader()

	fmt.Println()
	printSection("Checking configuration files")
	if err := c.checkFiles(); err != nil {
		return fmt.Errorf("file check failed: %w", err)
	}

	fmt.Println()
	printSection("Validating configuration")
	if err := c.validateConfigs(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	fmt.Println()
	c.report.Print()

	return nil
}

// printHeader prints the welcome header
func (c *Checker) printHeader() {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	fmt.Println(titleStyle.Render("🔍 ReportDesk Environment Check"))
}

// printSection prints a section header
func printSection(title string) {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15"))
	fmt.Println(style.Render(title + "..."))
}

// RequiredFiles returns the list of configuration files the check creates
func (c *Checker) RequiredFiles() []FileConfig {
	return []FileConfig{
		{
			Path:        c.configPath,
			Description: "Bootstrap configuration file (server, wizard, export, logging)",
			Template:    TemplateBootstrap,
		},
	}
}

// ConfigPath returns the path to the bootstrap config file
func (c *Checker) ConfigPath() string {
	return c.configPath
}

// confirmCreate asks user to confirm file creation
func confirmCreate(path string) (bool, error) {
	var confirm bool
	err := huh.NewConfirm().
		Title(fmt.Sprintf("Create %s from template?", path)).
		Affirmative("Yes").
		Negative("No").
		Value(&confirm).
		Run()
	if err != nil {
		return false, err
	}
	return confirm, nil
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// RunNonInteractive performs a non-interactive environment check.
// Unlike Run(), this method does not prompt for user input and does not create files.
// A missing configuration file is only a warning because serve falls back
// to the built-in defaults.
func (c *Checker) RunNonInteractive() *CheckResult {
	result := &CheckResult{
		Success:     true,
		Errors:      make([]string, 0),
		Warnings:    make([]string, 0),
		Suggestions: make([]string, 0),
	}

	cfg, ok := c.loadNonInteractive(result)
	if !ok {
		return result
	}

	if err := cfg.Validate(); err != nil {
		result.Success = false
		result.Errors = append(result.Errors, err.Error())
		result.Suggestions = append(result.Suggestions,
			fmt.Sprintf("Fix the values reported above in %s", c.configPath))
		return result
	}

	c.checkBrowserNonInteractive(cfg, result)
	return result
}

func (c *Checker) loadNonInteractive(result *CheckResult) (*config.Config, bool) {
	if !fileExists(c.configPath) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Configuration not found: %s (using defaults)", c.configPath))
		result.Suggestions = append(result.Suggestions,
			"Run 'reportdesk serve --check' to create the configuration file")
		cfg, err := config.LoadOrDefault(c.configPath)
		if err != nil {
			result.Success = false
			result.Errors = append(result.Errors, err.Error())
			return nil, false
		}
		return cfg, true
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		result.Success = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("Invalid %s: %v", c.configPath, err))
		return nil, false
	}
	return cfg, true
}

// checkBrowserNonInteractive warns when the chrome rasterizer has no browser
func (c *Checker) checkBrowserNonInteractive(cfg *config.Config, result *CheckResult) {
	probe := c.probeChrome(cfg)
	if probe.Error == nil {
		return
	}
	result.Warnings = append(result.Warnings, probe.Error.Error())
	result.Suggestions = append(result.Suggestions,
		"Install Chrome or Chromium, set export.chrome_path, or switch export.rasterizer to native")
}

// PrintCheckResult prints the check result in a formatted way
func PrintCheckResult(result *CheckResult) {
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	if len(result.Errors) > 0 {
		fmt.Println()
		red.Println("[ERROR] Environment check failed")
		fmt.Println()
		for _, err := range result.Errors {
			red.Printf("  ✗ %s\n", err)
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Println()
		yellow.Println("[WARNING] Configuration warnings:")
		fmt.Println()
		for _, warn := range result.Warnings {
			yellow.Printf("  ⚠ %s\n", warn)
		}
	}

	if len(result.Suggestions) > 0 {
		cyan.Println("\nTo fix these issues:")
		for _, suggestion := range result.Suggestions {
			fmt.Printf("  → %s\n", suggestion)
		}
	}

	fmt.Println()
}
