// ABOUTME: Tests for the telemetry interface no-op implementation and helpers
// ABOUTME: Validates recording, span creation and shutdown without exporters

package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

func TestNoopTelemetry(t *testing.T) {
	tel := NewNoop()
	ctx := context.Background()

	tel.RecordHistogram(ctx, "test.histogram", 1.5, attribute.String("key", "value"))
	tel.RecordCounter(ctx, "test.counter", 10, attribute.String("key", "value"))

	spanCtx, span := tel.StartSpan(ctx, "test.span", attribute.String("test", "value"))
	if spanCtx == nil {
		t.Error("StartSpan returned nil context")
	}
	if span == nil {
		t.Error("StartSpan returned nil span")
	}
	if span.SpanContext().IsValid() {
		t.Error("no-op span should not carry a valid span context")
	}
	span.End()

	if err := tel.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown returned error: %v", err)
	}
}

func TestRecordDuration(t *testing.T) {
	tel := NewNoop()
	RecordDuration(context.Background(), tel, "test.duration", time.Now().Add(-time.Millisecond), attribute.String("op", "test"))
}
