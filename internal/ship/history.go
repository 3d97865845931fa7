package ship

import (
	"bridgesim/server/internal/geom"
	"bridgesim/server/internal/sim"
)

const (
	DefaultHistoryLength   = 20
	DefaultHistoryInterval = 1.0
)

// History is a ring of recent positions sampled at a fixed simulated
// interval, drawn as the trail on the scope.
type History struct {
	points   []geom.Vector2
	next     int
	full     bool
	interval float64
	lastAt   float64
	sampled  bool
}

func NewHistory(length int, interval float64) *History {
	if length < 1 {
		length = 1
	}
	return &History{points: make([]geom.Vector2, length), interval: interval}
}

// Record stores position if at least one interval has passed since the last
// sample.
func (h *History) Record(t *sim.GameTime, position geom.Vector2) {
	if h.sampled && t.Current-h.lastAt < h.interval {
		return
	}
	h.sampled = true
	h.lastAt = t.Current
	h.points[h.next] = position
	h.next = (h.next + 1) % len(h.points)
	if h.next == 0 {
		h.full = true
	}
}

// Points returns the samples oldest first.
func (h *History) Points() []geom.Vector2 {
	if !h.full {
		return append([]geom.Vector2(nil), h.points[:h.next]...)
	}
	out := make([]geom.Vector2, 0, len(h.points))
	out = append(out, h.points[h.next:]...)
	return append(out, h.points[:h.next]...)
}
