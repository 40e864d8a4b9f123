package server

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/verustcode/reportdesk/internal/api/router"
	"github.com/verustcode/reportdesk/internal/config"
	"github.com/verustcode/reportdesk/internal/database"
	"github.com/verustcode/reportdesk/internal/export"
	"github.com/verustcode/reportdesk/internal/notification"
	"github.com/verustcode/reportdesk/internal/render"
	"github.com/verustcode/reportdesk/internal/store"
	"github.com/verustcode/reportdesk/internal/wizard"
	"github.com/verustcode/reportdesk/pkg/logger"
)

// App holds the long-lived services shared by the serve, compose and
// export commands.
type App struct {
	Config   *config.Config
	Store    store.Store
	FormLogs store.FormLogStore // nil when the log database is unavailable
	Forms    *wizard.Service
	Pipeline *export.Pipeline
	Layouter *render.Layouter

	cleanup *store.FormCleanupService
}

// NewApp opens the databases and builds the wizard and export services.
// The logger must be initialized first.
func NewApp(cfg *config.Config) (*App, error) {
	if err := database.InitWithPath(cfg.Database.Path); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app := &App{
		Config: cfg,
		Store:  store.NewStore(database.Get()),
	}

	// Form logs are a convenience; drafts work without them.
	if err := database.InitFormLogDB(database.FormLogDBPath(cfg.Database.Path)); err != nil {
		logger.Warn("Failed to initialize form log database", zap.Error(err))
	} else {
		app.FormLogs = store.NewFormLogStore(database.GetFormLogDB())
		logger.SetFormLogHook(app.FormLogs)
	}

	app.Forms = wizard.NewService(app.Store.Forms(), wizard.ServiceConfig{
		TTL:        cfg.Wizard.TTL,
		Autosave:   true,
		Debounce:   cfg.Wizard.AutosaveDebounce,
		SavedPulse: cfg.Wizard.SavedPulse,
	})

	images := export.NewImageLoader(export.ImageLoaderOptions{
		Origin:  cfg.Export.Origin,
		Timeout: cfg.Export.ImageFetchTimeout,
	})
	rasterizer, err := export.NewRasterizer(export.RasterizerConfig{
		Kind: cfg.Export.Rasterizer,
		Chrome: export.ChromeOptions{
			ExecPath:       cfg.Export.ChromePath,
			StartupTimeout: cfg.Export.StartupTimeout,
		},
		Images: images,
	})
	if err != nil {
		app.closeStorage()
		return nil, err
	}
	app.Pipeline = export.NewPipeline(rasterizer, export.WithScale(cfg.Export.Scale))

	fonts, err := render.DefaultFonts()
	if err != nil {
		app.closeStorage()
		return nil, fmt.Errorf("failed to load fonts: %w", err)
	}
	app.Layouter = render.NewLayouter(fonts)

	notification.Init(cfg.Notifications)

	logger.Info("Services initialized",
		zap.String("database", cfg.Database.Path),
		zap.String("rasterizer", rasterizer.Name()),
		zap.Bool("form_logs", app.FormLogs != nil),
	)
	return app, nil
}

// StartPurge schedules the expired draft sweep.
func (a *App) StartPurge() error {
	a.cleanup = store.NewFormCleanupService(a.Store.Forms(), a.FormLogs, a.Config.Wizard.PurgeSchedule, a.Config.Wizard.TTL)
	a.cleanup.SetEvictor(a.Forms.EvictExpired)
	if err := a.cleanup.Start(); err != nil {
		a.cleanup = nil
		return err
	}
	return nil
}

// RouterDeps returns the route dependencies backed by this App.
func (a *App) RouterDeps() router.Deps {
	return router.Deps{
		Config:   a.Config,
		Forms:    a.Forms,
		Pipeline: a.Pipeline,
		Layouter: a.Layouter,
		FormLogs: a.FormLogs,
		Health:   database.HealthCheck,
	}
}

// Close stops the purge, flushes pending drafts and closes the databases.
func (a *App) Close(ctx context.Context) error {
	if a.cleanup != nil {
		a.cleanup.Stop()
	}
	err := a.Forms.Close(ctx)
	a.closeStorage()
	return err
}

func (a *App) closeStorage() {
	if a.FormLogs != nil {
		logger.CloseFormLogHook()
		if err := database.CloseFormLogDB(); err != nil {
			logger.Warn("Failed to close form log database", zap.Error(err))
		}
	}
	if err := database.Close(); err != nil {
		logger.Warn("Failed to close database", zap.Error(err))
	}
}
