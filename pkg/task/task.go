// Package task runs the AOD to muon AOD filtering: every input event is
// reduced by a muon replicator and written to an output handler.
//
// A task is driven by a single goroutine: UserCreateOutputObjects once,
// UserExec for every event, then Terminate.
package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jeremytregunna/aodkit/pkg/aod"
	"github.com/jeremytregunna/aodkit/pkg/common/log"
	"github.com/jeremytregunna/aodkit/pkg/config"
	"github.com/jeremytregunna/aodkit/pkg/output"
	"github.com/jeremytregunna/aodkit/pkg/replicator"
	"github.com/jeremytregunna/aodkit/pkg/stats"
	"github.com/jeremytregunna/aodkit/pkg/telemetry"
)

var (
	ErrNilHandler     = errors.New("nil output handler")
	ErrNotInitialized = errors.New("output objects not created")
	ErrTerminated     = errors.New("task already terminated")
)

// noCopy may be embedded into structs which must not be copied after first use.
// See https://golang.org/issues/8005#issuecomment-190753527 for details.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Option configures an AOD2MuonAOD task
type Option func(*AOD2MuonAOD)

// WithLogger sets the logger. By default a logger at the configured level is used.
func WithLogger(logger log.Logger) Option {
	return func(t *AOD2MuonAOD) {
		t.logger = logger
	}
}

// WithTelemetry records task and replicator metrics on tel
func WithTelemetry(tel telemetry.Telemetry) Option {
	return func(t *AOD2MuonAOD) {
		t.tel = tel
	}
}

// WithStats sets the statistics collector
func WithStats(collector stats.Collector) Option {
	return func(t *AOD2MuonAOD) {
		t.stats = collector
	}
}

// Summary counts what a task did so far
type Summary struct {
	Processed uint64
	Skipped   uint64
	Written   uint64
	Failed    uint64
}

// AOD2MuonAOD filters full events down to their muon content
type AOD2MuonAOD struct {
	noCopy noCopy

	name       string
	replicator *replicator.MuonReplicator
	handler    output.Handler

	logger  log.Logger
	tel     telemetry.Telemetry
	metrics Metrics
	stats   stats.Collector

	summary    Summary
	terminated bool
}

// New creates a task from cfg. A nil cfg uses the defaults.
func New(cfg *config.Config, opts ...Option) (*AOD2MuonAOD, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	snap := cfg.Snapshot()

	t := &AOD2MuonAOD{name: snap.TaskName}
	for _, opt := range opts {
		opt(t)
	}

	if t.logger == nil {
		t.logger = log.NewStandardLogger(log.WithLevel(snap.Level()))
	}
	t.logger = log.WithComponent(t.logger, "task").WithField("task", t.name)
	if t.tel == nil {
		t.tel = telemetry.NewNoop()
	}
	if t.stats == nil {
		t.stats = stats.NewAtomicCollector()
	}
	t.metrics = NewMetrics(t.tel, t.name)

	t.replicator = replicator.NewMuonReplicator(
		replicator.WithCuts(snap.MuonCuts),
		replicator.WithMCMode(snap.MCMode),
		replicator.WithSPDTracklets(snap.WithSPDTracklets),
		replicator.WithLogger(t.logger),
		replicator.WithTelemetry(t.tel),
		replicator.WithStats(t.stats),
	)

	return t, nil
}

// Name returns the task name
func (t *AOD2MuonAOD) Name() string {
	return t.name
}

// Replicator returns the replicator filling the output branches
func (t *AOD2MuonAOD) Replicator() *replicator.MuonReplicator {
	return t.replicator
}

// Stats returns the statistics collector
func (t *AOD2MuonAOD) Stats() stats.Collector {
	return t.stats
}

// Summary returns the event counters
func (t *AOD2MuonAOD) Summary() Summary {
	return t.summary
}

// UserCreateOutputObjects registers the replicator branches with handler.
// Events are written to handler from then on.
func (t *AOD2MuonAOD) UserCreateOutputObjects(ctx context.Context, handler output.Handler) error {
	if handler == nil {
		return ErrNilHandler
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, branch := range t.replicator.Branches() {
		if err := handler.RegisterBranch(branch, t.replicator.Name()); err != nil {
			return fmt.Errorf("failed to register branch %s: %w", branch, err)
		}
	}
	t.handler = handler

	t.logger.Info("registered branches %v (%s, mc mode %s)",
		t.replicator.Branches(), t.replicator.Title(), t.replicator.MCMode())
	return nil
}

// UserExec filters one event and writes the result. A nil event is skipped
// with a warning.
func (t *AOD2MuonAOD) UserExec(ctx context.Context, ev *aod.Event) error {
	if t.handler == nil {
		return ErrNotInitialized
	}
	if t.terminated {
		return ErrTerminated
	}

	start := time.Now()
	t.stats.TrackOperation(stats.OpEvent)

	if ev == nil {
		t.logger.Warn("skipping nil input event")
		t.summary.Skipped++
		t.stats.TrackOperation(stats.OpSkip)
		t.metrics.RecordExec(ctx, time.Since(start), telemetry.StatusSkipped)
		return nil
	}

	ctx, span := t.tel.StartSpan(ctx, "task.UserExec",
		attribute.Int(telemetry.AttrRunNumber, int(ev.Header.RunNumber)),
		attribute.Int64("event.number", int64(ev.Header.EventNumber)),
	)
	defer span.End()

	t.summary.Processed++

	err := t.exec(ctx, ev)
	status := telemetry.StatusSuccess
	if err != nil {
		status = telemetry.StatusError
		t.summary.Failed++
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	t.metrics.RecordExec(ctx, time.Since(start), status)

	return err
}

func (t *AOD2MuonAOD) exec(ctx context.Context, ev *aod.Event) error {
	start := time.Now()
	out, err := t.replicator.ReplicateAndFilter(ctx, ev)
	if err != nil {
		t.stats.TrackError("replicate_error")
		return fmt.Errorf("failed to replicate event %d: %w", ev.Header.EventNumber, err)
	}
	t.stats.TrackOperationWithLatency(stats.OpReplicate, uint64(time.Since(start).Nanoseconds()))

	start = time.Now()
	if err := t.handler.Write(ctx, out); err != nil {
		t.stats.TrackError("write_error")
		return fmt.Errorf("failed to write event %d: %w", ev.Header.EventNumber, err)
	}
	t.stats.TrackOperationWithLatency(stats.OpWrite, uint64(time.Since(start).Nanoseconds()))
	t.summary.Written++

	return nil
}

// Terminate flushes the output handler and logs the summary. Further calls
// are no-ops.
func (t *AOD2MuonAOD) Terminate(ctx context.Context) error {
	if t.handler == nil {
		return ErrNotInitialized
	}
	if t.terminated {
		return nil
	}

	start := time.Now()
	err := t.handler.Flush(ctx)
	t.metrics.RecordFlush(ctx, time.Since(start), err)
	if err != nil {
		t.stats.TrackError("flush_error")
		return fmt.Errorf("failed to flush output: %w", err)
	}
	t.stats.TrackOperationWithLatency(stats.OpFlush, uint64(time.Since(start).Nanoseconds()))
	t.terminated = true

	s := t.summary
	t.logger.Info("processed %d events: %d written, %d skipped, %d failed",
		s.Processed+s.Skipped, s.Written, s.Skipped, s.Failed)
	return nil
}
