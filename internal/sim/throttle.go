package sim

import (
	"math"

	"bridgesim/server/internal/geom"
)

const (
	MinThrottle = -100
	MaxThrottle = 100
)

// ThrottleHandler ramps the actual thrust towards the requested throttle at
// a fixed responsiveness (throttle units per second).
type ThrottleHandler struct {
	requested      int
	actual         float64
	responsiveness float64
}

func NewThrottleHandler(responsiveness float64) *ThrottleHandler {
	return &ThrottleHandler{responsiveness: responsiveness}
}

// Request sets the target throttle, clamped to [-100, 100].
func (h *ThrottleHandler) Request(value int) {
	h.requested = geom.ClampInt(value, MinThrottle, MaxThrottle)
}

func (h *ThrottleHandler) Requested() int { return h.requested }

func (h *ThrottleHandler) Actual() float64 { return h.actual }

func (h *ThrottleHandler) Update(t *GameTime) {
	diff := float64(h.requested) - h.actual
	step := h.responsiveness * t.Delta
	if math.Abs(diff) <= step {
		h.actual = float64(h.requested)
		return
	}
	if diff > 0 {
		h.actual += step
	} else {
		h.actual -= step
	}
}

// EffectiveThrust returns the signed forward thrust for the current actual
// throttle, scaled by the ahead or reverse factor and the impulse boost.
func (h *ThrottleHandler) EffectiveThrust(aheadFactor, reverseFactor, boost float64) float64 {
	factor := aheadFactor
	if h.actual < 0 {
		factor = reverseFactor
	}
	return h.actual / MaxThrottle * factor * boost
}
