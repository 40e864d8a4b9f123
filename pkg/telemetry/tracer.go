// Package telemetry provides OpenTelemetry integration for the application.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the default tracer name for the application
	TracerName = "github.com/verustcode/reportdesk"
)

// Tracer returns the global tracer for the application
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts a new span with the given name and returns the context and span.
// The caller is responsible for calling span.End() when the operation is complete.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// SpanFromContext returns the current span from the context.
// If no span is found, a no-op span is returned.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// SetSpanError records an error on the span and sets its status to error
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanOK sets the span status to OK
func SetSpanOK(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddSpanEvent adds an event to the span with optional attributes
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanAttributes sets attributes on the span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// Common attribute keys for consistent naming
var (
	// Form attributes
	AttrFormID   = attribute.Key("form.id")
	AttrFormStep = attribute.Key("form.step")

	// Document attributes
	AttrSectionCount = attribute.Key("document.sections")
	AttrSectionID    = attribute.Key("section.id")

	// Export attributes
	AttrExportPages      = attribute.Key("export.pages")
	AttrExportPage       = attribute.Key("export.page")
	AttrExportRasterizer = attribute.Key("export.rasterizer")
	AttrExportScale      = attribute.Key("export.scale")

	// Result attributes
	AttrDurationMs = attribute.Key("duration.ms")
)

// WithFormAttributes returns span start options with form attributes
func WithFormAttributes(formID, step string) trace.SpanStartOption {
	return trace.WithAttributes(
		AttrFormID.String(formID),
		AttrFormStep.String(step),
	)
}

// WithExportAttributes returns span start options with export attributes
func WithExportAttributes(formID, rasterizer string, pages int, scale float64) trace.SpanStartOption {
	return trace.WithAttributes(
		AttrFormID.String(formID),
		AttrExportRasterizer.String(rasterizer),
		AttrExportPages.Int(pages),
		AttrExportScale.Float64(scale),
	)
}
