package aod

import (
	"math"
	"math/rand/v2"
)

// PDG codes used by the generator
const (
	PDGMuon = 13
	PDGPion = 211
	PDGJPsi = 443
)

// GeneratorOptions controls the synthetic event content
type GeneratorOptions struct {
	RunNumber      int32
	BarrelTracks   int
	MuonTracks     int
	Tracklets      int
	WithMC         bool
	PileupFraction float64
}

// DefaultGeneratorOptions returns a small, MC enabled configuration
func DefaultGeneratorOptions() GeneratorOptions {
	return GeneratorOptions{
		RunNumber:      244918,
		BarrelTracks:   12,
		MuonTracks:     4,
		Tracklets:      20,
		WithMC:         true,
		PileupFraction: 0.2,
	}
}

// Generator produces reproducible synthetic events for a given seed
type Generator struct {
	opts  GeneratorOptions
	rng   *rand.Rand
	event uint32
}

// NewGenerator creates a generator seeded with seed
func NewGenerator(seed uint64, opts GeneratorOptions) *Generator {
	return &Generator{
		opts: opts,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Next generates the next event
func (g *Generator) Next() *Event {
	ev := &Event{
		Header: Header{
			RunNumber:           g.opts.RunNumber,
			EventNumber:         g.event,
			TriggerMask:         g.rng.Uint64() & 0xff,
			FiredTriggerClasses: "CMUL7-B-NOPF-MUFAST",
			Centrality:          g.rng.Float64() * 100,
		},
	}
	g.event++

	ev.Vertices = g.vertices()

	id := 0
	for i := 0; i < g.opts.BarrelTracks; i++ {
		t := g.track(id, g.uniform(-0.9, 0.9), g.uniform(0.15, 5))
		if g.opts.WithMC {
			t.LabelMC = g.addParticle(ev, PDGPion*g.sign(), -1, t, true)
		}
		ev.Tracks = append(ev.Tracks, t)
		id++
	}

	for i := 0; i < g.opts.MuonTracks; i++ {
		t := g.track(id, g.uniform(-4.2, -2.3), g.uniform(0.5, 8))
		t.Muon = true
		t.RAbs = g.uniform(10, 95)
		t.MatchTrigger = g.rng.IntN(4)
		if g.opts.WithMC {
			parent := g.addParticle(ev, PDGJPsi, -1, t, true)
			t.LabelMC = g.addParticle(ev, -PDGMuon*int(t.Charge), parent, t, false)
		}
		ev.Tracks = append(ev.Tracks, t)
		id++
	}

	for i := 0; i < g.opts.Tracklets; i++ {
		ev.Tracklets = append(ev.Tracklets, Tracklet{
			Theta:    g.uniform(0.2, math.Pi-0.2),
			Phi:      g.uniform(0, 2*math.Pi),
			DeltaPhi: g.uniform(-0.05, 0.05),
		})
	}

	return ev
}

func (g *Generator) vertices() []*Vertex {
	vs := []*Vertex{{
		ID:            0,
		Type:          VertexPrimary,
		Z:             g.rng.NormFloat64() * 5,
		NContributors: 2 + g.rng.IntN(40),
	}}
	vs = append(vs, &Vertex{ID: 1, Type: VertexSPD, Z: vs[0].Z + g.rng.NormFloat64()*0.01, NContributors: 1 + g.rng.IntN(10)})
	if g.rng.Float64() < g.opts.PileupFraction {
		vs = append(vs, &Vertex{ID: len(vs), Type: VertexPileupSPD, Z: g.rng.NormFloat64() * 5, NContributors: 1 + g.rng.IntN(5)})
	}
	vs = append(vs, &Vertex{ID: len(vs), Type: VertexV0, X: g.uniform(-5, 5), Y: g.uniform(-5, 5), Z: g.uniform(-10, 10), NContributors: 2})
	return vs
}

func (g *Generator) track(id int, eta, pt float64) *Track {
	phi := g.uniform(0, 2*math.Pi)
	return &Track{
		ID:      id,
		Px:      pt * math.Cos(phi),
		Py:      pt * math.Sin(phi),
		Pz:      pt * math.Sinh(eta),
		Charge:  int8(g.sign()),
		Chi2:    g.rng.ExpFloat64(),
		LabelMC: -1,
	}
}

func (g *Generator) addParticle(ev *Event, pdg, mother int, t *Track, primary bool) int {
	label := len(ev.MCParticles)
	ev.MCParticles = append(ev.MCParticles, &MCParticle{
		Label:   label,
		PDG:     pdg,
		Mother:  mother,
		Px:      t.Px,
		Py:      t.Py,
		Pz:      t.Pz,
		E:       t.P(),
		Primary: primary,
	})
	return label
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *Generator) sign() int {
	if g.rng.IntN(2) == 0 {
		return -1
	}
	return 1
}
