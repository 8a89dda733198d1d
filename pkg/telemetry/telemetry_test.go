package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewTelemetryDisabled(t *testing.T) {
	telem, err := New(Config{Enabled: false})
	if err != nil {
		t.Fatalf("New() with disabled config returned error: %v", err)
	}
	if telem.IsEnabled() {
		t.Error("IsEnabled() returned true for disabled telemetry")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := telem.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() returned error: %v", err)
	}
}

func TestNewTelemetryEnabledWithoutExporter(t *testing.T) {
	telem, err := New(Config{Enabled: true, ServiceName: "test-service"})
	if err != nil {
		if strings.Contains(err.Error(), "conflicting Schema URL") {
			t.Skipf("Skipping due to OpenTelemetry schema version conflict: %v", err)
		}
		t.Fatalf("New() returned error: %v", err)
	}
	if !telem.IsEnabled() {
		t.Error("IsEnabled() returned false")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := telem.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() returned error: %v", err)
	}
}

func TestSetSpanError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	_, span := tp.Tracer("test").Start(context.Background(), "export")

	SetSpanError(span, errors.New("raster failed"))
	SetSpanError(span, nil)
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(ended))
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", ended[0].Status().Code)
	}
	if len(ended[0].Events()) != 1 {
		t.Errorf("events = %d, want 1 recorded error", len(ended[0].Events()))
	}
}
