// Package replicator copies the selected content of an event into a reduced
// event, one output branch at a time.
package replicator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/jeremytregunna/aodkit/pkg/aod"
	"github.com/jeremytregunna/aodkit/pkg/common/iterator"
	"github.com/jeremytregunna/aodkit/pkg/common/iterator/filtered"
	"github.com/jeremytregunna/aodkit/pkg/common/log"
	"github.com/jeremytregunna/aodkit/pkg/container"
	"github.com/jeremytregunna/aodkit/pkg/stats"
	"github.com/jeremytregunna/aodkit/pkg/telemetry"
)

var ErrNilEvent = errors.New("nil input event")

// Output branch names
const (
	BranchHeader      = "header"
	BranchTracks      = "tracks"
	BranchVertices    = "vertices"
	BranchTracklets   = "tracklets"
	BranchMCParticles = "mcparticles"
)

// BranchReplicator fills a set of output branches from an input event
type BranchReplicator interface {
	Name() string
	Title() string
	// Branches lists the output branches filled by ReplicateAndFilter
	Branches() []string
	// ReplicateAndFilter returns the reduced copy of in. The input is never modified.
	ReplicateAndFilter(ctx context.Context, in *aod.Event) (*aod.Event, error)
}

// MCMode selects how much MC truth is carried into the reduced event
type MCMode int

const (
	// MCNone drops all MC particles
	MCNone MCMode = iota
	// MCMuonRelated keeps particles referenced by kept tracks and their ancestors
	MCMuonRelated
	// MCAll keeps every MC particle
	MCAll
)

// String returns the mode name
func (m MCMode) String() string {
	switch m {
	case MCNone:
		return "none"
	case MCMuonRelated:
		return "muon-related"
	case MCAll:
		return "all"
	default:
		return fmt.Sprintf("MCMode(%d)", int(m))
	}
}

// Valid reports whether m is a known mode
func (m MCMode) Valid() bool {
	return m >= MCNone && m <= MCAll
}

// Option configures a MuonReplicator
type Option func(*MuonReplicator)

// WithCuts sets the muon track selection
func WithCuts(cuts aod.MuonCuts) Option {
	return func(r *MuonReplicator) {
		r.trackCuts = cuts.TrackCuts()
	}
}

// WithMCMode sets the MC handling
func WithMCMode(mode MCMode) Option {
	return func(r *MuonReplicator) {
		r.mcMode = mode
	}
}

// WithSPDTracklets enables copying the SPD tracklets
func WithSPDTracklets(enabled bool) Option {
	return func(r *MuonReplicator) {
		r.withSPDTracklets = enabled
	}
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return func(r *MuonReplicator) {
		r.logger = logger
	}
}

// WithTelemetry records replicator metrics on tel
func WithTelemetry(tel telemetry.Telemetry) Option {
	return func(r *MuonReplicator) {
		r.metrics = NewMetrics(tel)
	}
}

// WithStats feeds branch and rejection counters into collector
func WithStats(collector stats.Collector) Option {
	return func(r *MuonReplicator) {
		r.stats = collector
	}
}

// MuonReplicator keeps muon tracks, primary and pileup vertices, optionally
// the SPD tracklets, and the MC truth requested by its MCMode.
type MuonReplicator struct {
	name             string
	title            string
	trackCuts        []container.Cut[*aod.Track]
	mcMode           MCMode
	withSPDTracklets bool
	logger           log.Logger
	metrics          Metrics
	stats            stats.Collector
}

// NewMuonReplicator creates a replicator selecting muon tracks only, keeping
// muon related MC truth and dropping SPD tracklets unless configured otherwise.
func NewMuonReplicator(opts ...Option) *MuonReplicator {
	r := &MuonReplicator{
		name:      "MuonReplicator",
		title:     "remove non muon tracks and non primary or pileup vertices",
		trackCuts: aod.MuonCuts{}.TrackCuts(),
		mcMode:    MCMuonRelated,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = log.WithComponent(r.logger, "replicator")
	if r.metrics == nil {
		r.metrics = NewMetrics(nil)
	}
	return r
}

// Name implements BranchReplicator
func (r *MuonReplicator) Name() string { return r.name }

// Title implements BranchReplicator
func (r *MuonReplicator) Title() string { return r.title }

// MCMode returns the configured MC handling
func (r *MuonReplicator) MCMode() MCMode { return r.mcMode }

// Branches implements BranchReplicator
func (r *MuonReplicator) Branches() []string {
	branches := []string{BranchHeader, BranchTracks, BranchVertices}
	if r.withSPDTracklets {
		branches = append(branches, BranchTracklets)
	}
	if r.mcMode != MCNone {
		branches = append(branches, BranchMCParticles)
	}
	return branches
}

// SelectTracks returns the iterable over the tracks of ev accepted by the
// replicator's cuts. ReplicateAndFilter keeps exactly these tracks.
func (r *MuonReplicator) SelectTracks(ev *aod.Event) *filtered.Iterable[*aod.Track] {
	_, tracks := r.selectTracks(ev)
	return tracks
}

// selectTracks evaluates the track cuts once per track
func (r *MuonReplicator) selectTracks(ev *aod.Event) (*container.Selection[*aod.Track], *filtered.Iterable[*aod.Track]) {
	var tracks []*aod.Track
	if ev != nil {
		tracks = ev.Tracks
	}
	sel := aod.NewTrackContainer(BranchTracks, tracks, r.trackCuts...).Select()
	return sel, sel.Iterable(true, filtered.WithLogger(r.logger))
}

// ReplicateAndFilter implements BranchReplicator
func (r *MuonReplicator) ReplicateAndFilter(ctx context.Context, in *aod.Event) (out *aod.Event, err error) {
	start := time.Now()
	defer func() {
		r.metrics.RecordReplicate(ctx, time.Since(start), err)
	}()

	if in == nil {
		return nil, ErrNilEvent
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out = &aod.Event{Header: in.Header}

	trackSrc, tracks := r.selectTracks(in)
	out.Tracks = make([]*aod.Track, 0, tracks.Size())
	for _, t := range tracks.All() {
		cp := *t
		out.Tracks = append(out.Tracks, &cp)
	}
	r.recordBranch(ctx, BranchTracks, trackSrc.Count(), len(out.Tracks))
	r.recordRejections(ctx, trackSrc.RejectionSummary())

	vertexSrc := aod.NewVertexContainer(BranchVertices, in.Vertices, aod.PrimaryOrPileup).Select()
	vertices := vertexSrc.Iterable(true, filtered.WithLogger(r.logger))
	out.Vertices = make([]*aod.Vertex, 0, vertices.Size())
	for _, v := range vertices.All() {
		cp := *v
		out.Vertices = append(out.Vertices, &cp)
	}
	r.recordBranch(ctx, BranchVertices, vertexSrc.Count(), len(out.Vertices))

	if r.withSPDTracklets && in.Tracklets != nil {
		out.Tracklets = append([]aod.Tracklet(nil), in.Tracklets...)
		r.recordBranch(ctx, BranchTracklets, len(in.Tracklets), len(out.Tracklets))
	}

	switch r.mcMode {
	case MCMuonRelated:
		r.replicateRelatedMC(in, out)
	case MCAll:
		if !in.HasMC() {
			clearLabels(out)
			break
		}
		out.MCParticles = make([]*aod.MCParticle, 0, len(in.MCParticles))
		for _, p := range in.MCParticles {
			if p != nil {
				cp := *p
				out.MCParticles = append(out.MCParticles, &cp)
			}
		}
	default:
		clearLabels(out)
	}
	if r.mcMode != MCNone {
		r.recordBranch(ctx, BranchMCParticles, len(in.MCParticles), len(out.MCParticles))
	}

	r.logger.Debug("event %d: kept %d/%d tracks, %d/%d vertices, %d mc particles",
		in.Header.EventNumber, len(out.Tracks), len(in.Tracks), len(out.Vertices), len(in.Vertices), len(out.MCParticles))

	return out, nil
}

// replicateRelatedMC copies the particles referenced by the kept tracks and
// their mother chains. Kept particles are relabelled densely in their
// original order and the labels of tracks and mothers rewritten to match.
// Track labels with no kept particle become -1.
func (r *MuonReplicator) replicateRelatedMC(in, out *aod.Event) {
	if !in.HasMC() {
		clearLabels(out)
		return
	}

	keep := roaring.New()
	for _, t := range out.Tracks {
		label := t.LabelMC
		for label >= 0 && !keep.Contains(uint32(label)) {
			p := in.MCParticle(label)
			if p == nil {
				break
			}
			keep.Add(uint32(label))
			label = p.Mother
		}
	}

	labels := keep.ToArray()
	relabel := make(map[int]int, len(labels))
	for newLabel, old := range labels {
		relabel[int(old)] = newLabel
	}

	out.MCParticles = make([]*aod.MCParticle, 0, len(labels))
	for _, old := range labels {
		cp := *in.MCParticle(int(old))
		cp.Label = relabel[cp.Label]
		if mother, ok := relabel[cp.Mother]; ok {
			cp.Mother = mother
		} else {
			cp.Mother = -1
		}
		out.MCParticles = append(out.MCParticles, &cp)
	}

	for _, t := range out.Tracks {
		if newLabel, ok := relabel[t.LabelMC]; ok {
			t.LabelMC = newLabel
		} else {
			t.LabelMC = -1
		}
	}
}

// clearLabels marks every track of ev as having no MC particle
func clearLabels(ev *aod.Event) {
	for _, t := range ev.Tracks {
		t.LabelMC = -1
	}
}

func (r *MuonReplicator) recordBranch(ctx context.Context, branch string, seen, kept int) {
	r.metrics.RecordBranch(ctx, branch, seen, kept)
	if r.stats != nil {
		r.stats.TrackBranch(branch, uint64(seen), uint64(kept))
	}
}

func (r *MuonReplicator) recordRejections(ctx context.Context, summary map[iterator.Rejection]int) {
	for reason, count := range summary {
		name := aod.RejectionName(reason)
		r.metrics.RecordRejection(ctx, name, count)
		if r.stats != nil {
			r.stats.TrackRejection(name, uint64(count))
		}
	}
}

var _ BranchReplicator = (*MuonReplicator)(nil)
