// Package telemetry provides OpenTelemetry integration for the application.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/verustcode/reportdesk/pkg/logger"
)

const (
	// MeterName is the default meter name for the application
	MeterName = "github.com/verustcode/reportdesk"
)

// Export outcomes
const (
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
	ExportStatusRejected  = "rejected"
)

// Restore outcomes
const (
	RestoreOutcomeRestored = "restored"
	RestoreOutcomeExpired  = "expired"
	RestoreOutcomeNone     = "none"
	RestoreOutcomeError    = "error"
)

// Metrics holds all application metrics
type Metrics struct {
	// Export metrics
	ExportsTotal   metric.Int64Counter
	ExportDuration metric.Float64Histogram
	ExportedPages  metric.Int64Counter
	ActiveExports  metric.Int64UpDownCounter

	// Draft persistence metrics
	AutosaveFlushes metric.Int64Counter
	RestoresTotal   metric.Int64Counter
	DraftsPurged    metric.Int64Counter

	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// GetMetrics returns the global metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		var err error
		globalMetrics, err = initMetrics()
		if err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			// Return empty metrics to avoid nil pointer
			globalMetrics = &Metrics{}
		}
	})
	return globalMetrics
}

// initMetrics initializes all application metrics
func initMetrics() (*Metrics, error) {
	meter := otel.Meter(MeterName)
	m := &Metrics{}

	var err error

	m.ExportsTotal, err = meter.Int64Counter(
		"reportdesk_exports_total",
		metric.WithDescription("Total number of PDF exports by status"),
		metric.WithUnit("{export}"),
	)
	if err != nil {
		return nil, err
	}

	m.ExportDuration, err = meter.Float64Histogram(
		"reportdesk_export_duration_seconds",
		metric.WithDescription("Duration of PDF exports in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 20, 30, 60, 120),
	)
	if err != nil {
		return nil, err
	}

	m.ExportedPages, err = meter.Int64Counter(
		"reportdesk_exported_pages_total",
		metric.WithDescription("Total number of pages rasterized into exported PDFs"),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, err
	}

	m.ActiveExports, err = meter.Int64UpDownCounter(
		"reportdesk_active_exports",
		metric.WithDescription("Number of exports currently running"),
		metric.WithUnit("{export}"),
	)
	if err != nil {
		return nil, err
	}

	m.AutosaveFlushes, err = meter.Int64Counter(
		"reportdesk_autosave_flushes_total",
		metric.WithDescription("Total number of autosave writes"),
		metric.WithUnit("{flush}"),
	)
	if err != nil {
		return nil, err
	}

	m.RestoresTotal, err = meter.Int64Counter(
		"reportdesk_restores_total",
		metric.WithDescription("Total number of draft restore attempts by outcome"),
		metric.WithUnit("{restore}"),
	)
	if err != nil {
		return nil, err
	}

	m.DraftsPurged, err = meter.Int64Counter(
		"reportdesk_drafts_purged_total",
		metric.WithDescription("Total number of expired drafts removed by the purge job"),
		metric.WithUnit("{draft}"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"reportdesk_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"reportdesk_http_request_duration_seconds",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("Metrics initialized successfully")
	return m, nil
}

// RecordExportStarted records that an export has started
func (m *Metrics) RecordExportStarted(ctx context.Context) {
	if m.ActiveExports != nil {
		m.ActiveExports.Add(ctx, 1)
	}
}

// RecordExportFinished records the outcome of an export. pages is the number
// of pages in the artifact and is ignored unless status is completed.
func (m *Metrics) RecordExportFinished(ctx context.Context, status string, pages int, durationSeconds float64) {
	if m.ActiveExports != nil {
		m.ActiveExports.Add(ctx, -1)
	}
	if m.ExportsTotal != nil {
		m.ExportsTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("status", status)),
		)
	}
	if m.ExportDuration != nil {
		m.ExportDuration.Record(ctx, durationSeconds,
			metric.WithAttributes(attribute.String("status", status)),
		)
	}
	if status == ExportStatusCompleted && m.ExportedPages != nil {
		m.ExportedPages.Add(ctx, int64(pages))
	}
}

// RecordExportRejected records an export refused because another one was running
func (m *Metrics) RecordExportRejected(ctx context.Context) {
	if m.ExportsTotal == nil {
		return
	}
	m.ExportsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", ExportStatusRejected)),
	)
}

// RecordAutosaveFlush records one autosave write
func (m *Metrics) RecordAutosaveFlush(ctx context.Context, success bool) {
	if m.AutosaveFlushes == nil {
		return
	}
	m.AutosaveFlushes.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("success", success)),
	)
}

// RecordRestore records a draft restore attempt
func (m *Metrics) RecordRestore(ctx context.Context, outcome string) {
	if m.RestoresTotal == nil {
		return
	}
	m.RestoresTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordDraftsPurged records drafts removed by the purge job
func (m *Metrics) RecordDraftsPurged(ctx context.Context, count int64) {
	if m.DraftsPurged == nil || count <= 0 {
		return
	}
	m.DraftsPurged.Add(ctx, count)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64) {
	if m.HTTPRequestsTotal != nil {
		m.HTTPRequestsTotal.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("method", method),
				attribute.String("path", path),
				attribute.Int("status_code", statusCode),
			),
		)
	}
	if m.HTTPRequestDuration != nil {
		m.HTTPRequestDuration.Record(ctx, durationSeconds,
			metric.WithAttributes(
				attribute.String("method", method),
				attribute.String("path", path),
			),
		)
	}
}
