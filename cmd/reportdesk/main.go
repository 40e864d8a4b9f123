// Package main is the entry point for the ReportDesk application.
// ReportDesk composes structured reports in a two-step wizard and exports
// them as paginated PDFs.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verustcode/reportdesk/consts"
	"github.com/verustcode/reportdesk/internal/api/router"
	"github.com/verustcode/reportdesk/internal/check"
	"github.com/verustcode/reportdesk/internal/config"
	"github.com/verustcode/reportdesk/internal/server"
	"github.com/verustcode/reportdesk/pkg/errors"
	"github.com/verustcode/reportdesk/pkg/logger"
	"github.com/verustcode/reportdesk/pkg/telemetry"
)

// Build information - set via ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// init synchronizes build info to consts package for global access
func init() {
	consts.Version = Version
	consts.BuildTime = BuildTime
	consts.GitCommit = GitCommit
}

// configPath holds the path to the bootstrap configuration file
var configPath string

var rootCmd = &cobra.Command{
	Use:   "reportdesk",
	Short: "ReportDesk - compose structured reports and export them as PDF",
	Long: `ReportDesk walks you through a report header and a list of sections
(parameter tables, custom tables, narrative), previews the paginated
result and exports it as a PDF.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ReportDesk server",
	Long: `Start the HTTP server that exposes the wizard, preview and export API.

On first run, use --check to create and validate the configuration:
  reportdesk serve --check

After initial setup, simply run:
  reportdesk serve`,
	Run: runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", consts.ProjectName, Version)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
		fmt.Printf("  %s\n", consts.ProjectURL)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: config/bootstrap.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(composeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)

	serveCmd.Flags().String("host", "", "server host (overrides config)")
	serveCmd.Flags().Int("port", 0, "server port (overrides config)")
	serveCmd.Flags().Bool("debug", false, "enable debug mode")
	serveCmd.Flags().Bool("check", false, "run interactive environment check before starting server")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runServe starts the ReportDesk server
func runServe(cmd *cobra.Command, args []string) {
	checker := check.NewChecker(configPath)
	if interactive, _ := cmd.Flags().GetBool("check"); interactive {
		if err := checker.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Environment check failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("\n✓ Environment check completed successfully")
	} else {
		result := checker.RunNonInteractive()
		if !result.Success {
			check.PrintCheckResult(result)
			os.Exit(errors.ExitCodeConfigValidation)
		}
		for _, warn := range result.Warnings {
			fmt.Fprintf(os.Stderr, "[WARNING] %s\n", warn)
		}
		if len(result.Warnings) > 0 {
			fmt.Fprintln(os.Stderr)
		}
	}

	consts.SetStartedAt(time.Now())

	cfg := mustLoadConfig()
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Server.Debug = true
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"
	}

	mustInitLogger(cfg.Logging)
	defer logger.Sync()

	logger.Info("Starting ReportDesk", zap.String("version", Version))

	tel, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			logger.Error("Failed to shutdown telemetry", zap.Error(err))
		}
	}()

	app, err := server.NewApp(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Close(ctx); err != nil {
			logger.Error("Failed to save drafts on exit", zap.Error(err))
		}
	}()

	if err := app.StartPurge(); err != nil {
		// drafts still expire lazily when they are next opened
		logger.Warn("Failed to start draft purge", zap.Error(err))
	}

	srv := server.New(cfg, app.RouterDeps())
	srv.SetupRoutes()
	if err := srv.Start(); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	logger.Info("ReportDesk server is running", zap.String("address", cfg.Server.Address()))
	logger.Info(fmt.Sprintf("  API: http://%s%s", cfg.Server.Address(), router.APIPrefix))
	if !cfg.Auth.Enabled() {
		logger.Warn("auth.jwt_secret is empty, the API accepts unauthenticated requests")
	}

	srv.WaitForShutdown()

	logger.Info("ReportDesk stopped")
}

// mustLoadConfig loads and validates the configuration or exits.
// A missing file falls back to the defaults.
func mustLoadConfig() *config.Config {
	path := configPath
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "\n[ERROR] Configuration validation failed\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		fmt.Fprintf(os.Stderr, "Run 'reportdesk serve --check' to review %s.\n", path)
		os.Exit(errors.ExitCodeConfigValidation)
	}
	return cfg
}

func mustInitLogger(cfg logger.Config) {
	if err := logger.Init(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
}
