package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/verustcode/reportdesk/internal/export"
	"github.com/verustcode/reportdesk/internal/model"
	"github.com/verustcode/reportdesk/internal/notification"
	"github.com/verustcode/reportdesk/pkg/errors"
	"github.com/verustcode/reportdesk/pkg/logger"
)

// ExportToDir lays out doc, rasterizes it and writes the PDF into dir,
// falling back to export.output_dir when dir is empty. It returns the path
// written. Notifications are sent synchronously.
func (a *App) ExportToDir(ctx context.Context, formID string, doc *model.Document, dir string, opts ...export.ExportOption) (string, error) {
	if dir == "" {
		dir = a.Config.Export.OutputDir
	}
	log := logger.WithForm(formID)

	pages := a.Layouter.Layout(doc)
	opts = append([]export.ExportOption{export.WithFormID(formID)}, opts...)
	artifact, err := a.Pipeline.Export(ctx, pages, opts...)
	if err != nil {
		code := string(errors.ErrCodeInternal)
		msg := err.Error()
		if appErr, ok := errors.AsAppError(err); ok {
			code = string(appErr.Code)
			msg = appErr.Message
		}
		if nerr := notification.NotifyExportFailed(context.WithoutCancel(ctx), formID, doc.Header.Title, code, msg,
			map[string]interface{}{"rasterizer": a.Pipeline.Rasterizer().Name()}); nerr != nil {
			log.Warn("Failed to send export notification", zap.Error(nerr))
		}
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, artifact.Filename)
	if err := os.WriteFile(path, artifact.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Info("Export written", zap.String("path", path))

	if nerr := notification.NotifyExportCompleted(context.WithoutCancel(ctx), formID, doc.Header.Title,
		map[string]interface{}{"pages": artifact.Pages, "filename": artifact.Filename}); nerr != nil {
		log.Warn("Failed to send export notification", zap.Error(nerr))
	}
	return path, nil
}
