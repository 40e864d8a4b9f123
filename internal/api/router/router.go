// Package router sets up the API routes of the report composer.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/verustcode/reportdesk/consts"
	"github.com/verustcode/reportdesk/internal/api/handler"
	"github.com/verustcode/reportdesk/internal/api/middleware"
	"github.com/verustcode/reportdesk/internal/config"
	"github.com/verustcode/reportdesk/internal/export"
	"github.com/verustcode/reportdesk/internal/render"
	"github.com/verustcode/reportdesk/internal/store"
	"github.com/verustcode/reportdesk/internal/wizard"
)

// APIPrefix is the mount point of the versioned API.
const APIPrefix = "/api/v1"

// Deps are the services the routes are built on.
type Deps struct {
	Config   *config.Config
	Forms    *wizard.Service
	Pipeline *export.Pipeline
	Layouter *render.Layouter
	// FormLogs serves /forms/:form/logs; the route is omitted when nil
	FormLogs store.FormLogStore
	// Health reports storage health for /health; nil means always healthy
	Health func() error
}

// Setup configures all API routes
func Setup(r *gin.Engine, d Deps) {
	cfg := d.Config

	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(&middleware.LoggerConfig{
		AccessLog: cfg.Logging.AccessLog,
	}))
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.ErrorHandler(cfg.Server.Debug))
	r.Use(otelgin.Middleware(consts.ServiceName))

	// Health check endpoint (public)
	r.GET("/health", func(c *gin.Context) {
		if d.Health != nil {
			if err := d.Health(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": consts.Version})
	})

	v1 := r.Group(APIPrefix)

	// Bearer tokens come from the upstream auth service. With no secret
	// configured the API is open, which suits a local single-user setup.
	authHandler := handler.NewAuthHandler(cfg.Auth)
	protected := v1.Group("")
	if cfg.Auth.Enabled() {
		protected.Use(middleware.JWTAuth(authHandler))
		protected.GET("/auth/me", authHandler.Me)
	}

	formHandler := handler.NewFormHandler(d.Forms, d.Pipeline.Jobs())
	previewHandler := handler.NewPreviewHandler(formHandler, d.Layouter, APIPrefix)
	exportHandler := handler.NewExportHandler(formHandler, d.Pipeline, d.Layouter, cfg.Export)

	forms := protected.Group("/forms")
	{
		forms.POST("", formHandler.CreateForm)
		forms.GET("/:form", formHandler.GetForm)
		forms.DELETE("/:form", formHandler.DeleteForm)

		forms.PUT("/:form/header", formHandler.UpdateHeader)
		forms.POST("/:form/next", formHandler.Next)
		forms.POST("/:form/back", formHandler.Back)
		forms.POST("/:form/history/back", formHandler.HistoryBack)
		forms.POST("/:form/history/forward", formHandler.HistoryForward)

		forms.POST("/:form/sections", formHandler.AddSection)
		forms.DELETE("/:form/sections/:id", formHandler.DeleteSection)
		forms.PATCH("/:form/sections/:id", formHandler.EditSection)
		forms.POST("/:form/sections/:id/move", formHandler.MoveSection)
		forms.POST("/:form/sections/:id/images/:index", formHandler.UploadImage)

		forms.POST("/:form/finalize", formHandler.Finalize)

		forms.GET("/:form/preview", previewHandler.GetPreview)
		forms.GET("/:form/preview/pages", previewHandler.GetPages)

		forms.POST("/:form/export", exportHandler.ExportForm)
		forms.GET("/:form/export/status", exportHandler.GetExportStatus)
	}

	// Uses the separate form_logs.db database
	if d.FormLogs != nil {
		logHandler := handler.NewFormLogHandler(d.FormLogs)
		forms.GET("/:form/logs", logHandler.GetFormLogs)
	}
}
