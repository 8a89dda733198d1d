package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope used for every span.
const TracerName = "github.com/arran4/chat2png"

// Tracer returns the global tracer for the application
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts a new span. The caller must End it.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// SetSpanError records err on the span and marks it failed.
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

// Attribute keys shared by the export pipeline.
var (
	AttrExportMode     = attribute.Key("export.mode")
	AttrExportPlatform = attribute.Key("export.platform")
	AttrExportTheme    = attribute.Key("export.theme")
	AttrExportBackend  = attribute.Key("export.backend")
	AttrExportFilename = attribute.Key("export.filename")

	AttrImagesTotal    = attribute.Key("images.total")
	AttrImagesReady    = attribute.Key("images.ready")
	AttrImagesFailed   = attribute.Key("images.failed")
	AttrImagesTimedOut = attribute.Key("images.timed_out")

	AttrSanitizedRules = attribute.Key("sanitize.rewritten")
)

// WithExportAttributes returns span start options describing an export request.
func WithExportAttributes(mode, platform, theme string) trace.SpanStartOption {
	return trace.WithAttributes(
		AttrExportMode.String(mode),
		AttrExportPlatform.String(platform),
		AttrExportTheme.String(theme),
	)
}
