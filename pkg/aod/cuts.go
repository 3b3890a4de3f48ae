package aod

import (
	"github.com/jeremytregunna/aodkit/pkg/common/iterator"
	"github.com/jeremytregunna/aodkit/pkg/container"
)

// Rejection reasons for tracks and vertices
const (
	RejectNull       = iterator.RejectUser << 0
	RejectNotMuon    = iterator.RejectUser << 1
	RejectEta        = iterator.RejectUser << 2
	RejectRAbs       = iterator.RejectUser << 3
	RejectPt         = iterator.RejectUser << 4
	RejectTrigger    = iterator.RejectUser << 5
	RejectVertexType = iterator.RejectUser << 6
)

// RejectionName returns a short name for a single rejection bit
func RejectionName(r iterator.Rejection) string {
	switch r {
	case iterator.RejectOutOfRange:
		return "out_of_range"
	case RejectNull:
		return "null"
	case RejectNotMuon:
		return "not_muon"
	case RejectEta:
		return "eta"
	case RejectRAbs:
		return "rabs"
	case RejectPt:
		return "pt"
	case RejectTrigger:
		return "trigger"
	case RejectVertexType:
		return "vertex_type"
	default:
		return "other"
	}
}

// MuonCuts parameterises the muon track selection. A range whose bounds are
// both zero is not applied.
type MuonCuts struct {
	EtaMin          float64 `json:"eta_min"`
	EtaMax          float64 `json:"eta_max"`
	RAbsMin         float64 `json:"rabs_min"`
	RAbsMax         float64 `json:"rabs_max"`
	MinPt           float64 `json:"min_pt"`
	MinTriggerMatch int     `json:"min_trigger_match"`
}

// TrackCuts returns the cuts selecting muon tracks with these parameters
func (c MuonCuts) TrackCuts() []container.Cut[*Track] {
	cuts := []container.Cut[*Track]{MuonOnly}
	if c.EtaMin != 0 || c.EtaMax != 0 {
		cuts = append(cuts, EtaRange(c.EtaMin, c.EtaMax))
	}
	if c.RAbsMin != 0 || c.RAbsMax != 0 {
		cuts = append(cuts, RAbsRange(c.RAbsMin, c.RAbsMax))
	}
	if c.MinPt > 0 {
		cuts = append(cuts, MinPt(c.MinPt))
	}
	if c.MinTriggerMatch > 0 {
		cuts = append(cuts, MinTriggerMatch(c.MinTriggerMatch))
	}
	return cuts
}

// MuonOnly rejects tracks not reconstructed in the muon spectrometer
func MuonOnly(t *Track) iterator.Rejection {
	if t == nil {
		return RejectNull
	}
	if !t.Muon {
		return RejectNotMuon
	}
	return iterator.Accepted
}

// EtaRange accepts tracks with lo <= eta <= hi
func EtaRange(lo, hi float64) container.Cut[*Track] {
	return func(t *Track) iterator.Rejection {
		if t == nil {
			return RejectNull
		}
		if eta := t.Eta(); eta < lo || eta > hi {
			return RejectEta
		}
		return iterator.Accepted
	}
}

// RAbsRange accepts tracks with lo <= RAbs <= hi
func RAbsRange(lo, hi float64) container.Cut[*Track] {
	return func(t *Track) iterator.Rejection {
		if t == nil {
			return RejectNull
		}
		if t.RAbs < lo || t.RAbs > hi {
			return RejectRAbs
		}
		return iterator.Accepted
	}
}

// MinPt accepts tracks with pt >= threshold
func MinPt(threshold float64) container.Cut[*Track] {
	return func(t *Track) iterator.Rejection {
		if t == nil {
			return RejectNull
		}
		if t.Pt() < threshold {
			return RejectPt
		}
		return iterator.Accepted
	}
}

// MinTriggerMatch accepts tracks matched at least at the given trigger level
func MinTriggerMatch(level int) container.Cut[*Track] {
	return func(t *Track) iterator.Rejection {
		if t == nil {
			return RejectNull
		}
		if t.MatchTrigger < level {
			return RejectTrigger
		}
		return iterator.Accepted
	}
}

// PrimaryOrPileup keeps primary and pileup vertices
func PrimaryOrPileup(v *Vertex) iterator.Rejection {
	if v == nil {
		return RejectNull
	}
	if v.Type != VertexPrimary && !v.Type.IsPileup() {
		return RejectVertexType
	}
	return iterator.Accepted
}

// NewTrackContainer wraps the tracks of an event with the given cuts
func NewTrackContainer(name string, tracks []*Track, cuts ...container.Cut[*Track]) *container.Slice[*Track] {
	return container.NewSlice(name, tracks, cuts...)
}

// NewVertexContainer wraps the vertices of an event with the given cuts
func NewVertexContainer(name string, vertices []*Vertex, cuts ...container.Cut[*Vertex]) *container.Slice[*Vertex] {
	return container.NewSlice(name, vertices, cuts...)
}
