package aod

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jeremytregunna/aodkit/pkg/common/iterator"
)

func TestTrackKinematics(t *testing.T) {
	tr := &Track{Px: 3, Py: 4, Pz: 0}
	if tr.Pt() != 5 || tr.P() != 5 {
		t.Errorf("pt/p = %v/%v, want 5/5", tr.Pt(), tr.P())
	}
	if tr.Eta() != 0 {
		t.Errorf("eta = %v, want 0", tr.Eta())
	}

	// eta = asinh(pz/pt)
	tr = &Track{Px: 1, Pz: math.Sinh(-3)}
	if math.Abs(tr.Eta()+3) > 1e-9 {
		t.Errorf("eta = %v, want -3", tr.Eta())
	}

	tr = &Track{Py: -1}
	if math.Abs(tr.Phi()-1.5*math.Pi) > 1e-9 {
		t.Errorf("phi = %v, want 3pi/2", tr.Phi())
	}

	if !math.IsInf((&Track{Pz: -2}).Eta(), -1) {
		t.Errorf("track along -z should have eta -Inf")
	}
}

func TestMuonCuts(t *testing.T) {
	muon := &Track{Px: 2, Pz: 2 * math.Sinh(-3), Muon: true, RAbs: 40, MatchTrigger: 2}
	barrel := &Track{Px: 2, Pz: 0.1}

	cuts := MuonCuts{EtaMin: -4, EtaMax: -2.5, RAbsMin: 17.6, RAbsMax: 89.5, MinPt: 1, MinTriggerMatch: 1}
	tracks := NewTrackContainer("tracks", []*Track{muon, barrel, nil}, cuts.TrackCuts()...)

	if ok, reason := tracks.Accepts(0); !ok {
		t.Errorf("muon rejected with %b", reason)
	}
	if ok, reason := tracks.Accepts(1); ok || !reason.Has(RejectNotMuon) || !reason.Has(RejectEta) {
		t.Errorf("barrel track accepted or wrong reason %b", reason)
	}
	if ok, reason := tracks.Accepts(2); ok || !reason.Has(RejectNull) {
		t.Errorf("nil track accepted or wrong reason %b", reason)
	}

	tight := MuonCuts{MinPt: 3, MinTriggerMatch: 3}
	strict := NewTrackContainer("tracks", []*Track{muon}, tight.TrackCuts()...)
	_, reason := strict.Accepts(0)
	if reason != RejectPt|RejectTrigger {
		t.Errorf("reason = %b, want pt|trigger", reason)
	}

	// Zero value parameters select muons only
	if n := len(MuonCuts{}.TrackCuts()); n != 1 {
		t.Errorf("expected only the muon cut, got %d cuts", n)
	}
}

func TestVertexCut(t *testing.T) {
	vs := NewVertexContainer("vertices", []*Vertex{
		{Type: VertexPrimary},
		{Type: VertexSPD},
		{Type: VertexPileupSPD},
		{Type: VertexV0},
		{Type: VertexPileupTracks},
	}, PrimaryOrPileup)

	if diff := cmp.Diff([]int{0, 2, 4}, vs.AcceptedIterable().AcceptIndices()); diff != "" {
		t.Errorf("accepted vertices mismatch (-want +got):\n%s", diff)
	}
}

func TestRejectionName(t *testing.T) {
	if RejectionName(RejectRAbs) != "rabs" || RejectionName(iterator.RejectOutOfRange) != "out_of_range" {
		t.Errorf("unexpected rejection names")
	}
}

func TestEventClone(t *testing.T) {
	ev := NewGenerator(1, DefaultGeneratorOptions()).Next()
	cp := ev.Clone()

	if diff := cmp.Diff(ev, cp); diff != "" {
		t.Fatalf("clone differs (-orig +clone):\n%s", diff)
	}

	cp.Tracks[0].Px = 1000
	cp.Vertices[0].Z = 1000
	cp.MCParticles[0].PDG = 1
	if ev.Tracks[0].Px == 1000 || ev.Vertices[0].Z == 1000 || ev.MCParticles[0].PDG == 1 {
		t.Errorf("clone shares objects with the original")
	}

	var nilEvent *Event
	if nilEvent.Clone() != nil {
		t.Errorf("nil clone should be nil")
	}
}

func TestGenerator(t *testing.T) {
	opts := DefaultGeneratorOptions()
	a := NewGenerator(42, opts)
	b := NewGenerator(42, opts)

	for i := 0; i < 3; i++ {
		ea, eb := a.Next(), b.Next()
		if diff := cmp.Diff(ea, eb); diff != "" {
			t.Fatalf("event %d differs for equal seeds:\n%s", i, diff)
		}
		if ea.Header.EventNumber != uint32(i) {
			t.Errorf("event number %d, want %d", ea.Header.EventNumber, i)
		}
		if len(ea.Tracks) != opts.BarrelTracks+opts.MuonTracks || ea.MuonTracks() != opts.MuonTracks {
			t.Errorf("unexpected track content: %d tracks, %d muons", len(ea.Tracks), ea.MuonTracks())
		}
		if ea.PrimaryVertex() == nil {
			t.Errorf("missing primary vertex")
		}

		// Every muon points at a muon particle whose mother is a J/psi
		for _, tr := range ea.Tracks {
			if !tr.Muon {
				continue
			}
			p := ea.MCParticle(tr.LabelMC)
			if p == nil || (p.PDG != PDGMuon && p.PDG != -PDGMuon) {
				t.Fatalf("muon track %d has bad MC label %d", tr.ID, tr.LabelMC)
			}
			if m := ea.MCParticle(p.Mother); m == nil || m.PDG != PDGJPsi {
				t.Errorf("muon particle %d has bad mother %d", p.Label, p.Mother)
			}
		}
	}

	noMC := opts
	noMC.WithMC = false
	if ev := NewGenerator(1, noMC).Next(); ev.HasMC() {
		t.Errorf("expected no MC particles")
	}
}
