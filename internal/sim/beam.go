package sim

import (
	"bridgesim/server/internal/geom"
	"bridgesim/server/internal/template"
)

// BeamState is the per-mount firing cycle.
type BeamState string

const (
	BeamIdle       BeamState = "Idle"
	BeamFiring     BeamState = "Firing"
	BeamRecharging BeamState = "Recharging"
)

// BeamHandler drives one beam mount. canFire is evaluated by the ship each
// tick: lock complete, target within this mount's range and arc, and line of
// sight clear.
type BeamHandler struct {
	mount    template.BeamWeapon
	state    BeamState
	progress float64
}

func NewBeamHandler(mount template.BeamWeapon) *BeamHandler {
	return &BeamHandler{mount: mount, state: BeamIdle}
}

func (h *BeamHandler) Mount() template.BeamWeapon { return h.mount }

func (h *BeamHandler) State() BeamState { return h.state }

func (h *BeamHandler) Progress() float64 { return h.progress }

// Update advances the cycle and returns the damage dealt to the target this
// tick. Losing the firing solution mid-burst always moves to Recharging.
func (h *BeamHandler) Update(t *GameTime, boost float64, canFire bool) float64 {
	switch h.state {
	case BeamIdle:
		if !canFire {
			return 0
		}
		h.state = BeamFiring
		h.progress = 0
		return h.fire(t, boost)
	case BeamFiring:
		if !canFire {
			h.state = BeamRecharging
			h.progress = 0
			return 0
		}
		return h.fire(t, boost)
	case BeamRecharging:
		h.progress = geom.Clamp(h.progress+h.mount.RechargeSpeed*boost*t.Delta, 0, 1)
		if h.progress < 1 {
			return 0
		}
		h.progress = 0
		if canFire {
			h.state = BeamFiring
			return 0
		}
		h.state = BeamIdle
	}
	return 0
}

func (h *BeamHandler) fire(t *GameTime, boost float64) float64 {
	h.progress = geom.Clamp(h.progress+h.mount.FiringSpeed*boost*t.Delta, 0, 1)
	if h.progress >= 1 {
		h.state = BeamRecharging
		h.progress = 0
	}
	return h.mount.Damage * t.Delta
}

// InArc reports whether a relative bearing (degrees, positive to the left)
// lies within the mount's arc.
func (h *BeamHandler) InArc(bearing float64) bool {
	return bearing <= h.mount.LeftArc && bearing >= -h.mount.RightArc
}

// InRange reports whether distance lies within the mount's range band.
func (h *BeamHandler) InRange(distance float64) bool {
	return distance >= h.mount.MinRange && distance <= h.mount.MaxRange
}
