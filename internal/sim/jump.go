package sim

import (
	"bridgesim/server/internal/geom"
	"bridgesim/server/internal/template"
)

// JumpState is the jump drive lifecycle: Ready -> Jumping -> Recharging -> Ready.
type JumpState string

const (
	JumpReady      JumpState = "Ready"
	JumpJumping    JumpState = "Jumping"
	JumpRecharging JumpState = "Recharging"
)

// JumpHandler runs the jump drive. Completion is observed by the owning ship,
// which performs the teleport and then calls EndJump.
type JumpHandler struct {
	drive         template.JumpDrive
	distanceRatio float64
	state         JumpState
	progress      float64
}

func NewJumpHandler(drive template.JumpDrive) *JumpHandler {
	return &JumpHandler{drive: drive, state: JumpReady}
}

// ChangeDistance sets the distance ratio in [0, 1]. Ignored mid-jump so the
// distance committed at StartJump is the one applied.
func (h *JumpHandler) ChangeDistance(ratio float64) {
	if h.state == JumpJumping {
		return
	}
	h.distanceRatio = geom.Clamp(ratio, 0, 1)
}

func (h *JumpHandler) DistanceRatio() float64 { return h.distanceRatio }

// Distance is the jump distance for the current ratio, rounded to the
// drive's distance increment.
func (h *JumpHandler) Distance() float64 {
	min := float64(h.drive.MinDistance)
	max := float64(h.drive.MaxDistance)
	distance := geom.RoundTo(min+h.distanceRatio*(max-min), float64(h.drive.DistanceIncrement))
	return geom.Clamp(distance, min, max)
}

// StartJump begins a jump; it only succeeds from Ready.
func (h *JumpHandler) StartJump() bool {
	if h.state != JumpReady {
		return false
	}
	h.state = JumpJumping
	h.progress = 0
	return true
}

func (h *JumpHandler) Update(t *GameTime, boost float64) {
	switch h.state {
	case JumpJumping:
		h.progress = geom.Clamp(h.progress+h.drive.JumpingSpeed*boost*t.Delta, 0, 1)
	case JumpRecharging:
		h.progress = geom.Clamp(h.progress+h.drive.RechargeSpeed*boost*t.Delta, 0, 1)
		if h.progress >= 1 {
			h.state = JumpReady
			h.progress = 0
		}
	}
}

func (h *JumpHandler) State() JumpState { return h.state }

func (h *JumpHandler) Progress() float64 { return h.progress }

func (h *JumpHandler) Ready() bool { return h.state == JumpReady }

func (h *JumpHandler) Jumping() bool { return h.state == JumpJumping }

// JumpComplete reports a finished jump that has not been applied yet.
func (h *JumpHandler) JumpComplete() bool {
	return h.state == JumpJumping && h.progress >= 1
}

// EndJump moves a completed jump into recharge. It is a no-op otherwise, so
// a jump can be applied at most once.
func (h *JumpHandler) EndJump() bool {
	if !h.JumpComplete() {
		return false
	}
	h.state = JumpRecharging
	h.progress = 0
	return true
}
