// ABOUTME: Analysis task telemetry metrics interface and implementation
// ABOUTME: Records per event execution latency, skipped events and output flushes

package task

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jeremytregunna/aodkit/pkg/telemetry"
)

// Metrics defines the telemetry operations of an analysis task.
type Metrics interface {
	telemetry.ComponentMetrics

	// RecordExec records one UserExec call with its outcome
	RecordExec(ctx context.Context, duration time.Duration, status string)

	// RecordFlush records the output flush done by Terminate
	RecordFlush(ctx context.Context, duration time.Duration, err error)
}

type taskMetrics struct {
	tel  telemetry.Telemetry
	name string
}

// NewMetrics creates task metrics on tel. A nil tel yields a no-op.
func NewMetrics(tel telemetry.Telemetry, taskName string) Metrics {
	if tel == nil {
		return &noopMetrics{}
	}
	return &taskMetrics{tel: tel, name: taskName}
}

func (m *taskMetrics) RecordExec(ctx context.Context, duration time.Duration, status string) {
	attrs := []attribute.KeyValue{
		attribute.String(telemetry.AttrComponent, telemetry.ComponentTask),
		attribute.String(telemetry.AttrOperationType, telemetry.OpTypeExec),
		attribute.String("task", m.name),
	}

	if status != telemetry.StatusSkipped {
		m.tel.RecordHistogram(ctx, "aodkit.task.exec.duration", duration.Seconds(), attrs...)
	}
	m.tel.RecordCounter(ctx, "aodkit.task.events.total", 1,
		append(attrs, attribute.String(telemetry.AttrStatus, status))...,
	)
}

func (m *taskMetrics) RecordFlush(ctx context.Context, duration time.Duration, err error) {
	status := telemetry.StatusSuccess
	if err != nil {
		status = telemetry.StatusError
	}

	m.tel.RecordHistogram(ctx, "aodkit.task.flush.duration", duration.Seconds(),
		attribute.String(telemetry.AttrComponent, telemetry.ComponentOutput),
		attribute.String(telemetry.AttrOperationType, telemetry.OpTypeFlush),
		attribute.String(telemetry.AttrStatus, status),
	)
}

func (m *taskMetrics) Close() error {
	return nil
}

type noopMetrics struct{}

func (n *noopMetrics) RecordExec(ctx context.Context, duration time.Duration, status string) {}
func (n *noopMetrics) RecordFlush(ctx context.Context, duration time.Duration, err error)    {}
func (n *noopMetrics) Close() error                                                          { return nil }
