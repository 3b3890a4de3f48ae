// Package aod holds the reduced analysis object data model: one Event per
// collision with its vertices, tracks, SPD tracklets and MC truth.
package aod

import "math"

// VertexType classifies reconstructed vertices
type VertexType int

const (
	VertexPrimary VertexType = iota
	VertexSPD
	VertexPileupSPD
	VertexPileupTracks
	VertexKink
	VertexV0
)

// String returns the vertex type name
func (t VertexType) String() string {
	switch t {
	case VertexPrimary:
		return "primary"
	case VertexSPD:
		return "spd"
	case VertexPileupSPD:
		return "pileup_spd"
	case VertexPileupTracks:
		return "pileup_tracks"
	case VertexKink:
		return "kink"
	case VertexV0:
		return "v0"
	default:
		return "unknown"
	}
}

// IsPileup reports whether the vertex is a pileup candidate
func (t VertexType) IsPileup() bool {
	return t == VertexPileupSPD || t == VertexPileupTracks
}

// Header carries the per event bookkeeping
type Header struct {
	RunNumber           int32
	EventNumber         uint32
	TriggerMask         uint64
	FiredTriggerClasses string
	Centrality          float64
}

// Vertex is a reconstructed interaction point
type Vertex struct {
	ID            int
	Type          VertexType
	X, Y, Z       float64
	NContributors int
}

// Track is a reconstructed charged track
type Track struct {
	ID         int
	Px, Py, Pz float64
	Charge     int8
	// Muon marks tracks reconstructed in the forward muon spectrometer
	Muon bool
	// RAbs is the transverse position at the end of the front absorber (cm)
	RAbs float64
	// MatchTrigger is 0 when unmatched, otherwise the trigger pt threshold level
	MatchTrigger int
	Chi2         float64
	// LabelMC is the MC particle label, negative when unknown
	LabelMC int
}

// Pt returns the transverse momentum
func (t *Track) Pt() float64 {
	return math.Hypot(t.Px, t.Py)
}

// P returns the total momentum
func (t *Track) P() float64 {
	return math.Sqrt(t.Px*t.Px + t.Py*t.Py + t.Pz*t.Pz)
}

// Phi returns the azimuthal angle in [0, 2pi)
func (t *Track) Phi() float64 {
	phi := math.Atan2(t.Py, t.Px)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	return phi
}

// Eta returns the pseudorapidity. Tracks along the beam axis return +-Inf.
func (t *Track) Eta() float64 {
	p := t.P()
	if p == math.Abs(t.Pz) {
		if t.Pz >= 0 {
			return math.Inf(1)
		}
		return math.Inf(-1)
	}
	return 0.5 * math.Log((p+t.Pz)/(p-t.Pz))
}

// Tracklet is an SPD tracklet
type Tracklet struct {
	Theta    float64
	Phi      float64
	DeltaPhi float64
}

// MCParticle is a generated particle
type MCParticle struct {
	Label      int
	PDG        int
	Mother     int
	Px, Py, Pz float64
	E          float64
	Primary    bool
}

// Event is a single reconstructed collision
type Event struct {
	Header      Header
	Vertices    []*Vertex
	Tracks      []*Track
	Tracklets   []Tracklet
	MCParticles []*MCParticle
}

// PrimaryVertex returns the first primary vertex, or nil
func (e *Event) PrimaryVertex() *Vertex {
	for _, v := range e.Vertices {
		if v != nil && v.Type == VertexPrimary {
			return v
		}
	}
	return nil
}

// MuonTracks returns the number of muon spectrometer tracks
func (e *Event) MuonTracks() int {
	n := 0
	for _, t := range e.Tracks {
		if t != nil && t.Muon {
			n++
		}
	}
	return n
}

// MCParticle returns the particle with the given label, or nil
func (e *Event) MCParticle(label int) *MCParticle {
	if label < 0 || label >= len(e.MCParticles) {
		return nil
	}
	if p := e.MCParticles[label]; p != nil && p.Label == label {
		return p
	}
	for _, p := range e.MCParticles {
		if p != nil && p.Label == label {
			return p
		}
	}
	return nil
}

// HasMC reports whether the event carries MC truth
func (e *Event) HasMC() bool {
	return len(e.MCParticles) > 0
}

// Clone returns a deep copy of the event
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	out := &Event{Header: e.Header}
	if e.Vertices != nil {
		out.Vertices = make([]*Vertex, len(e.Vertices))
		for i, v := range e.Vertices {
			if v != nil {
				cp := *v
				out.Vertices[i] = &cp
			}
		}
	}
	if e.Tracks != nil {
		out.Tracks = make([]*Track, len(e.Tracks))
		for i, t := range e.Tracks {
			if t != nil {
				cp := *t
				out.Tracks[i] = &cp
			}
		}
	}
	if e.Tracklets != nil {
		out.Tracklets = append([]Tracklet(nil), e.Tracklets...)
	}
	if e.MCParticles != nil {
		out.MCParticles = make([]*MCParticle, len(e.MCParticles))
		for i, p := range e.MCParticles {
			if p != nil {
				cp := *p
				out.MCParticles[i] = &cp
			}
		}
	}
	return out
}
