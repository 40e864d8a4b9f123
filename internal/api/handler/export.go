package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/reportdesk/internal/config"
	"github.com/verustcode/reportdesk/internal/export"
	"github.com/verustcode/reportdesk/internal/model"
	"github.com/verustcode/reportdesk/internal/notification"
	"github.com/verustcode/reportdesk/internal/render"
	"github.com/verustcode/reportdesk/pkg/errors"
	"github.com/verustcode/reportdesk/pkg/logger"
)

// ExportHandler turns a finalized form into a PDF download.
type ExportHandler struct {
	forms    *FormHandler
	pipeline *export.Pipeline
	layouter *render.Layouter
	cfg      config.ExportConfig
	// notify runs outcome notifications; tests replace it to stay synchronous
	notify func(func())
}

// NewExportHandler creates a new export handler
func NewExportHandler(forms *FormHandler, p *export.Pipeline, l *render.Layouter, cfg config.ExportConfig) *ExportHandler {
	return &ExportHandler{
		forms:    forms,
		pipeline: p,
		layouter: l,
		cfg:      cfg,
		notify:   func(fn func()) { go fn() },
	}
}

// ExportForm handles POST /api/v1/forms/:form/export
// Only finalized forms can be exported. The response body is the PDF.
func (h *ExportHandler) ExportForm(c *gin.Context) {
	a, ok := h.forms.assembler(c)
	if !ok {
		return
	}
	if step := a.Step(); step != model.StepFinalized {
		respondError(c, errors.New(errors.ErrCodeInvalidStep,
			fmt.Sprintf("finalize the report before exporting (current step %s)", step)))
		return
	}

	ctx := c.Request.Context()
	formID := a.FormID()
	doc := a.Document()
	pages := h.layouter.Layout(doc)

	artifact, err := h.pipeline.Export(ctx, pages, export.WithFormID(formID))
	if err != nil {
		if !errors.HasCode(err, errors.ErrCodeExportRunning) {
			h.notifyFailed(ctx, formID, doc.Header.Title, err)
		}
		respondError(c, err)
		return
	}

	if h.cfg.OutputDir != "" {
		if err := h.writeCopy(artifact); err != nil {
			// the download still succeeds; the copy is a convenience
			logger.WithForm(formID).Warn("Failed to write export copy", zap.Error(err))
		}
	}

	if h.cfg.ClearOnSuccess {
		if err := a.Reset(ctx); err != nil {
			logger.WithForm(formID).Warn("Failed to clear draft after export", zap.Error(err))
		}
	}

	title := doc.Header.Title
	pageCount := artifact.Pages
	h.notify(func() {
		_ = notification.NotifyExportCompleted(context.WithoutCancel(ctx), formID, title, map[string]interface{}{
			"pages":    pageCount,
			"filename": artifact.Filename,
		})
	})

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, artifact.Filename))
	c.Data(http.StatusOK, artifact.ContentType, artifact.Data)
}

// GetExportStatus handles GET /api/v1/forms/:form/export/status
func (h *ExportHandler) GetExportStatus(c *gin.Context) {
	a, ok := h.forms.assembler(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.pipeline.Jobs().Status(a.FormID()))
}

func (h *ExportHandler) notifyFailed(ctx context.Context, formID, title string, err error) {
	code := string(errors.ErrCodeInternal)
	msg := err.Error()
	if appErr, ok := errors.AsAppError(err); ok {
		code = string(appErr.Code)
		msg = appErr.Message
	}
	status := h.pipeline.Jobs().Status(formID)
	extra := map[string]interface{}{
		"pages_captured": status.Page,
		"pages":          status.Pages,
		"rasterizer":     h.pipeline.Rasterizer().Name(),
	}
	h.notify(func() {
		_ = notification.NotifyExportFailed(context.WithoutCancel(ctx), formID, title, code, msg, extra)
	})
}

func (h *ExportHandler) writeCopy(artifact *export.Artifact) error {
	if err := os.MkdirAll(h.cfg.OutputDir, 0o755); err != nil {
		return err
	}
	path, ok := safeJoinPath(h.cfg.OutputDir, artifact.Filename)
	if !ok {
		return fmt.Errorf("unsafe export filename %q", artifact.Filename)
	}
	return os.WriteFile(path, artifact.Data, 0o644)
}
