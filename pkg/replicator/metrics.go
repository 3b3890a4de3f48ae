// ABOUTME: Replicator telemetry metrics interface and implementation
// ABOUTME: Records replication latency, per branch selection efficiency and rejection reasons

package replicator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jeremytregunna/aodkit/pkg/telemetry"
)

// Metrics defines the telemetry operations of a branch replicator.
// All metrics are optional, implementations can safely be no-op.
type Metrics interface {
	telemetry.ComponentMetrics

	// RecordReplicate records the duration of one ReplicateAndFilter call
	RecordReplicate(ctx context.Context, duration time.Duration, err error)

	// RecordBranch records how many entries of a branch were read and kept
	RecordBranch(ctx context.Context, branch string, seen, kept int)

	// RecordRejection records rejected entries for one reason
	RecordRejection(ctx context.Context, reason string, count int)
}

type replicatorMetrics struct {
	tel telemetry.Telemetry
}

// NewMetrics creates replicator metrics on tel. A nil tel yields a no-op.
func NewMetrics(tel telemetry.Telemetry) Metrics {
	if tel == nil {
		return &noopMetrics{}
	}
	return &replicatorMetrics{tel: tel}
}

func (m *replicatorMetrics) RecordReplicate(ctx context.Context, duration time.Duration, err error) {
	status := telemetry.StatusSuccess
	if err != nil {
		status = telemetry.StatusError
	}

	m.tel.RecordHistogram(ctx, "aodkit.replicator.duration", duration.Seconds(),
		attribute.String(telemetry.AttrComponent, telemetry.ComponentReplicator),
		attribute.String(telemetry.AttrOperationType, telemetry.OpTypeReplicate),
	)
	m.tel.RecordCounter(ctx, "aodkit.replicator.operations.total", 1,
		attribute.String(telemetry.AttrComponent, telemetry.ComponentReplicator),
		attribute.String(telemetry.AttrStatus, status),
	)
}

func (m *replicatorMetrics) RecordBranch(ctx context.Context, branch string, seen, kept int) {
	m.tel.RecordCounter(ctx, "aodkit.replicator.entries.seen", int64(seen),
		attribute.String(telemetry.AttrBranch, branch),
	)
	m.tel.RecordCounter(ctx, "aodkit.replicator.entries.kept", int64(kept),
		attribute.String(telemetry.AttrBranch, branch),
	)
	if seen > 0 {
		m.tel.RecordHistogram(ctx, "aodkit.replicator.efficiency", float64(kept)/float64(seen),
			attribute.String(telemetry.AttrBranch, branch),
		)
	}
}

func (m *replicatorMetrics) RecordRejection(ctx context.Context, reason string, count int) {
	m.tel.RecordCounter(ctx, "aodkit.replicator.rejections.total", int64(count),
		attribute.String(telemetry.AttrReason, reason),
	)
}

func (m *replicatorMetrics) Close() error {
	return nil
}

type noopMetrics struct{}

func (n *noopMetrics) RecordReplicate(ctx context.Context, duration time.Duration, err error) {}
func (n *noopMetrics) RecordBranch(ctx context.Context, branch string, seen, kept int)        {}
func (n *noopMetrics) RecordRejection(ctx context.Context, reason string, count int)          {}
func (n *noopMetrics) Close() error                                                           { return nil }
