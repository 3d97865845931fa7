package sim

import (
	"math"
	"math/rand"

	"bridgesim/server/internal/geom"
	"bridgesim/server/internal/ids"
	"bridgesim/server/internal/template"
)

// ScanLevel gates how much of a contact is revealed.
type ScanLevel string

const (
	ScanNone     ScanLevel = "None"
	ScanBasic    ScanLevel = "Basic"
	ScanDetailed ScanLevel = "Detailed"
)

// Next returns the level reached by completing a scan at l.
func (l ScanLevel) Next() ScanLevel {
	switch l {
	case ScanNone, "":
		return ScanBasic
	default:
		return ScanDetailed
	}
}

const minNoiseBoost = 0.1

// ScanMinigame is the frequency matching puzzle. Each dimension hides a
// target frequency; the operator moves an input slider onto it while reading
// a noisy signal.
type ScanMinigame struct {
	targets   []float64
	inputs    []float64
	noise     []float64
	tolerance float64
}

// NewScanMinigame rolls targets in [0.2, 1] so the zeroed inputs never
// start solved.
func NewScanMinigame(dimensions int, tolerance float64, rng *rand.Rand) *ScanMinigame {
	if dimensions < 1 {
		dimensions = 1
	}
	targets := make([]float64, dimensions)
	for i := range targets {
		targets[i] = 0.2 + rng.Float64()*0.8
	}
	return &ScanMinigame{
		targets:   targets,
		inputs:    make([]float64, dimensions),
		noise:     make([]float64, dimensions),
		tolerance: tolerance,
	}
}

// Adjust moves one input slider to value in [0, 1].
func (g *ScanMinigame) Adjust(index int, value float64) {
	if index < 0 || index >= len(g.inputs) {
		return
	}
	g.inputs[index] = geom.Clamp(value, 0, 1)
}

func (g *ScanMinigame) Solved() bool {
	for i, target := range g.targets {
		if math.Abs(g.inputs[i]-target) > g.tolerance {
			return false
		}
	}
	return true
}

// Inputs returns a copy of the slider positions.
func (g *ScanMinigame) Inputs() []float64 {
	return append([]float64(nil), g.inputs...)
}

// Solution returns the hidden targets. NPC crews read it directly; it is
// never sent to clients.
func (g *ScanMinigame) Solution() []float64 {
	return append([]float64(nil), g.targets...)
}

// Signals returns the noisy readings of each hidden target.
func (g *ScanMinigame) Signals() []float64 {
	out := make([]float64, len(g.targets))
	for i, target := range g.targets {
		out[i] = geom.Clamp(target+g.noise[i], 0, 1)
	}
	return out
}

func (g *ScanMinigame) reroll(amplitude float64, rng *rand.Rand) {
	for i := range g.noise {
		g.noise[i] = (rng.Float64()*2 - 1) * amplitude
	}
}

// ScanHandler runs one scan against a target. It completes only after the
// minigame has stayed solved for the configured duration.
type ScanHandler struct {
	target    ids.ObjectID
	game      *ScanMinigame
	cfg       template.Scan
	rng       *rand.Rand
	solvedFor float64
}

func NewScanHandler(target ids.ObjectID, cfg template.Scan, rng *rand.Rand) *ScanHandler {
	return &ScanHandler{
		target: target,
		game:   NewScanMinigame(cfg.Dimensions, cfg.Tolerance, rng),
		cfg:    cfg,
		rng:    rng,
	}
}

func (h *ScanHandler) Target() ids.ObjectID { return h.target }

func (h *ScanHandler) Minigame() *ScanMinigame { return h.game }

func (h *ScanHandler) Adjust(index int, value float64) {
	h.game.Adjust(index, value)
}

// Progress is the fraction of the hold duration achieved so far.
func (h *ScanHandler) Progress() float64 {
	if h.cfg.MinSolvedDuration <= 0 {
		if h.game.Solved() {
			return 1
		}
		return 0
	}
	return geom.Clamp(h.solvedFor/h.cfg.MinSolvedDuration, 0, 1)
}

// Update refreshes the signal noise, which shrinks as sensor boost grows,
// and accumulates the continuous solved time.
func (h *ScanHandler) Update(t *GameTime, boost float64) {
	h.game.reroll(h.cfg.Noise/math.Max(boost, minNoiseBoost), h.rng)
	if h.game.Solved() {
		h.solvedFor += t.Delta
	} else {
		h.solvedFor = 0
	}
}

func (h *ScanHandler) IsComplete() bool {
	return h.game.Solved() && h.solvedFor >= h.cfg.MinSolvedDuration
}
