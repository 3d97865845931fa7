package sim

import (
	"bridgesim/server/internal/geom"
	"bridgesim/server/internal/template"
)

// ShieldHandler tracks shield strength and the up/down state. Shields fail
// at or below FailureStrength and can only be raised again once strength
// reaches ActivationStrength.
type ShieldHandler struct {
	shields  template.Shields
	up       bool
	strength float64
}

func NewShieldHandler(shields template.Shields) *ShieldHandler {
	return &ShieldHandler{shields: shields, up: true, strength: shields.Strength}
}

func (h *ShieldHandler) Up() bool { return h.up }

func (h *ShieldHandler) Strength() float64 { return h.strength }

func (h *ShieldHandler) Max() float64 { return h.shields.Strength }

// CanRaise reports whether strength has recovered enough to raise shields.
func (h *ShieldHandler) CanRaise() bool {
	return h.strength >= h.shields.ActivationStrength
}

// SetUp raises or lowers shields. Raising is refused below the activation
// strength.
func (h *ShieldHandler) SetUp(up bool) {
	if up && !h.CanRaise() {
		return
	}
	h.up = up
}

func (h *ShieldHandler) Toggle() {
	h.SetUp(!h.up)
}

func (h *ShieldHandler) Update(t *GameTime, boost float64) {
	h.strength = geom.Clamp(h.strength+h.shields.RechargeSpeed*boost*t.Delta, 0, h.shields.Strength)
}

// TakeDamage absorbs damage with the shield pool and returns the remainder
// that reaches the hull.
func (h *ShieldHandler) TakeDamage(amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	if !h.up {
		return amount
	}
	absorbed := amount
	if absorbed > h.strength {
		absorbed = h.strength
	}
	h.strength = geom.Clamp(h.strength-absorbed, 0, h.shields.Strength)
	if h.strength <= h.shields.FailureStrength {
		h.up = false
	}
	return amount - absorbed
}
