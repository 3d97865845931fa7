package sim

import (
	"bridgesim/server/internal/geom"
	"bridgesim/server/internal/ids"
)

// LockHandler accumulates lock progress on a single target.
type LockHandler struct {
	target       ids.ObjectID
	progress     float64
	lockingSpeed float64
}

func NewLockHandler(lockingSpeed float64) *LockHandler {
	return &LockHandler{lockingSpeed: lockingSpeed}
}

// SetTarget retargets the lock. Selecting the current target again keeps
// the accumulated progress.
func (h *LockHandler) SetTarget(target ids.ObjectID) {
	if target == h.target {
		return
	}
	h.target = target
	h.progress = 0
}

func (h *LockHandler) Clear() {
	h.target = ""
	h.progress = 0
}

func (h *LockHandler) Target() (ids.ObjectID, bool) {
	return h.target, h.target != ""
}

func (h *LockHandler) Progress() float64 { return h.progress }

func (h *LockHandler) IsComplete() bool {
	return h.target != "" && h.progress >= 1
}

func (h *LockHandler) Update(t *GameTime, boost float64) {
	if h.target == "" {
		return
	}
	h.progress = geom.Clamp(h.progress+h.lockingSpeed*boost*t.Delta, 0, 1)
}

// TargetDestroyed drops the lock if it references id.
func (h *LockHandler) TargetDestroyed(id ids.ObjectID) {
	if h.target == id {
		h.Clear()
	}
}
