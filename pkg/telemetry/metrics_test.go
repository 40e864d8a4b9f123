package telemetry

import (
	"context"
	"testing"
)

// TestGetMetrics tests the GetMetrics function
func TestGetMetrics(t *testing.T) {
	metrics := GetMetrics()
	if metrics == nil {
		t.Fatal("GetMetrics() returned nil")
	}

	// Second call should return same instance
	metrics2 := GetMetrics()
	if metrics != metrics2 {
		t.Error("GetMetrics() returned different instances on subsequent calls")
	}
}

// TestMetricsRecordExport tests the export lifecycle recorders
func TestMetricsRecordExport(t *testing.T) {
	metrics := GetMetrics()
	ctx := context.Background()

	// Should not panic
	metrics.RecordExportStarted(ctx)
	metrics.RecordExportFinished(ctx, ExportStatusCompleted, 4, 2.5)
	metrics.RecordExportStarted(ctx)
	metrics.RecordExportFinished(ctx, ExportStatusFailed, 0, 0.4)
	metrics.RecordExportRejected(ctx)
}

// TestMetricsRecordDraft tests the draft persistence recorders
func TestMetricsRecordDraft(t *testing.T) {
	metrics := GetMetrics()
	ctx := context.Background()

	metrics.RecordAutosaveFlush(ctx, true)
	metrics.RecordAutosaveFlush(ctx, false)
	for _, outcome := range []string{RestoreOutcomeRestored, RestoreOutcomeExpired, RestoreOutcomeNone, RestoreOutcomeError} {
		metrics.RecordRestore(ctx, outcome)
	}
	metrics.RecordDraftsPurged(ctx, 3)
	metrics.RecordDraftsPurged(ctx, 0)
}

// TestMetricsRecordHTTPRequest tests RecordHTTPRequest
func TestMetricsRecordHTTPRequest(t *testing.T) {
	metrics := GetMetrics()
	ctx := context.Background()

	metrics.RecordHTTPRequest(ctx, "GET", "/api/v1/forms/:form", 200, 0.05)
	metrics.RecordHTTPRequest(ctx, "POST", "/api/v1/forms/:form/export", 409, 0.01)
}

// TestMetricsNilSafe tests that metrics methods are nil-safe
func TestMetricsNilSafe(t *testing.T) {
	// Create empty metrics struct (simulating initialization failure)
	emptyMetrics := &Metrics{}
	ctx := context.Background()

	t.Run("RecordExportStarted", func(t *testing.T) {
		emptyMetrics.RecordExportStarted(ctx)
	})

	t.Run("RecordExportFinished", func(t *testing.T) {
		emptyMetrics.RecordExportFinished(ctx, ExportStatusCompleted, 3, 1.0)
	})

	t.Run("RecordExportRejected", func(t *testing.T) {
		emptyMetrics.RecordExportRejected(ctx)
	})

	t.Run("RecordAutosaveFlush", func(t *testing.T) {
		emptyMetrics.RecordAutosaveFlush(ctx, true)
	})

	t.Run("RecordRestore", func(t *testing.T) {
		emptyMetrics.RecordRestore(ctx, RestoreOutcomeNone)
	})

	t.Run("RecordDraftsPurged", func(t *testing.T) {
		emptyMetrics.RecordDraftsPurged(ctx, 1)
	})

	t.Run("RecordHTTPRequest", func(t *testing.T) {
		emptyMetrics.RecordHTTPRequest(ctx, "GET", "/test", 200, 0.1)
	})
}
