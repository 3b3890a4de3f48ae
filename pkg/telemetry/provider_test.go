// ABOUTME: Tests for telemetry provider creation against the real OpenTelemetry SDK
// ABOUTME: Exercises the stdout exporters through an in-memory writer

package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestNewDisabledReturnsNoop(t *testing.T) {
	tel, err := New(Config{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := tel.(*NoopTelemetry); !ok {
		t.Errorf("expected *NoopTelemetry, got %T", tel)
	}
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.ServiceName = ""
	if _, err := New(cfg); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestProviderStdoutExport(t *testing.T) {
	var buf bytes.Buffer

	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Exporters = []string{ExporterStdout}

	tel, err := New(cfg, WithWriter(&buf))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := tel.(*TelemetryProvider); !ok {
		t.Fatalf("expected *TelemetryProvider, got %T", tel)
	}

	ctx := context.Background()
	tel.RecordCounter(ctx, "aodkit.test.events", 3, attribute.String(AttrComponent, ComponentTask))
	tel.RecordCounter(ctx, "aodkit.test.events", 2, attribute.String(AttrComponent, ComponentTask))
	tel.RecordHistogram(ctx, "aodkit.test.kept", 1.5)

	spanCtx, span := tel.StartSpan(ctx, "aodkit.test.span", attribute.Int(AttrRunNumber, 1))
	if !span.SpanContext().IsValid() {
		t.Error("expected a sampled, valid span")
	}
	_ = spanCtx
	span.End()

	if err := tel.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"aodkit.test.events", "aodkit.test.kept", "aodkit.test.span"} {
		if !strings.Contains(out, want) {
			t.Errorf("exported output is missing %q", want)
		}
	}
}
