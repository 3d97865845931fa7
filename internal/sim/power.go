package sim

import (
	"bridgesim/server/internal/geom"
	"bridgesim/server/internal/template"
)

// PoweredSystemType names a ship system on the engineering board.
type PoweredSystemType string

const (
	SystemSensors  PoweredSystemType = "Sensors"
	SystemManeuver PoweredSystemType = "Maneuver"
	SystemImpulse  PoweredSystemType = "Impulse"
	SystemJump     PoweredSystemType = "Jump"
	SystemShields  PoweredSystemType = "Shields"
	SystemWeapons  PoweredSystemType = "Weapons"
	SystemReactor  PoweredSystemType = "Reactor"
)

// PoweredSystems lists every system in display order.
var PoweredSystems = []PoweredSystemType{
	SystemSensors, SystemManeuver, SystemImpulse, SystemJump, SystemShields, SystemWeapons, SystemReactor,
}

const (
	DefaultPowerLevel = 100
	MaxPowerLevel     = 200
	PowerLevelStep    = 10
	MaxHeat           = 1.5
	OverheatThreshold = 1.0
)

// PoweredSystem is the engineering state of one system.
type PoweredSystem struct {
	Type    PoweredSystemType
	Level   int
	Heat    float64
	Coolant float64
	Damage  float64
}

// RepairJob is the active repair timer.
type RepairJob struct {
	System   PoweredSystemType
	Progress float64
}

// PowerHandler owns power levels, heat, coolant, damage and repair.
type PowerHandler struct {
	reactor template.Reactor
	systems map[PoweredSystemType]*PoweredSystem
	repair  *RepairJob
}

func NewPowerHandler(reactor template.Reactor) *PowerHandler {
	systems := make(map[PoweredSystemType]*PoweredSystem, len(PoweredSystems))
	for _, system := range PoweredSystems {
		systems[system] = &PoweredSystem{Type: system, Level: DefaultPowerLevel}
	}
	return &PowerHandler{reactor: reactor, systems: systems}
}

// SetPower sets a system's level, quantized to multiples of 10 in [0, 200].
func (h *PowerHandler) SetPower(system PoweredSystemType, level int) {
	state, ok := h.systems[system]
	if !ok {
		return
	}
	level = geom.ClampInt(level, 0, MaxPowerLevel)
	state.Level = int(geom.RoundTo(float64(level), PowerLevelStep))
}

// SetCoolant assigns coolant in [0, 1] to a system, capped so the total
// never exceeds the reactor's coolant capacity.
func (h *PowerHandler) SetCoolant(system PoweredSystemType, coolant float64) {
	state, ok := h.systems[system]
	if !ok {
		return
	}
	used := 0.0
	for _, other := range h.systems {
		if other.Type != system {
			used += other.Coolant
		}
	}
	available := geom.Clamp(h.reactor.CoolantCapacity-used, 0, 1)
	state.Coolant = geom.Clamp(coolant, 0, available)
}

// BoostLevel is the multiplier applied to the system's rates. Unknown
// systems run at 1.0.
func (h *PowerHandler) BoostLevel(system PoweredSystemType) float64 {
	state, ok := h.systems[system]
	if !ok {
		return 1
	}
	return float64(state.Level) / 100 * (1 - state.Damage)
}

// Damage adds damage to a system, clamped to [0, 1].
func (h *PowerHandler) Damage(system PoweredSystemType, amount float64) {
	state, ok := h.systems[system]
	if !ok {
		return
	}
	state.Damage = geom.Clamp(state.Damage+amount, 0, 1)
}

// StartRepair starts the repair timer for a damaged system. A repair already
// running on another system blocks it; the same system restarts its timer.
func (h *PowerHandler) StartRepair(system PoweredSystemType) bool {
	state, ok := h.systems[system]
	if !ok || state.Damage <= 0 {
		return false
	}
	if h.repair != nil && h.repair.System != system {
		return false
	}
	h.repair = &RepairJob{System: system}
	return true
}

// Repair returns the active repair, if any.
func (h *PowerHandler) Repair() (RepairJob, bool) {
	if h.repair == nil {
		return RepairJob{}, false
	}
	return *h.repair, true
}

func (h *PowerHandler) System(system PoweredSystemType) (PoweredSystem, bool) {
	state, ok := h.systems[system]
	if !ok {
		return PoweredSystem{}, false
	}
	return *state, true
}

// Systems returns a copy of every system in display order.
func (h *PowerHandler) Systems() []PoweredSystem {
	out := make([]PoweredSystem, 0, len(PoweredSystems))
	for _, system := range PoweredSystems {
		out = append(out, *h.systems[system])
	}
	return out
}

func (h *PowerHandler) CoolantCapacity() float64 { return h.reactor.CoolantCapacity }

func (h *PowerHandler) Update(t *GameTime) {
	for _, system := range PoweredSystems {
		state := h.systems[system]
		overload := float64(state.Level-DefaultPowerLevel) / 100
		rate := overload*h.reactor.HeatRate - state.Coolant*h.reactor.CoolRate + state.Damage*h.reactor.DamageHeatRate
		state.Heat = geom.Clamp(state.Heat+rate*t.Delta, 0, MaxHeat)
		if state.Heat > OverheatThreshold {
			state.Damage = geom.Clamp(state.Damage+h.reactor.OverheatDamageRate*t.Delta, 0, 1)
		}
	}
	h.updateRepair(t)
}

func (h *PowerHandler) updateRepair(t *GameTime) {
	if h.repair == nil {
		return
	}
	boost := float64(h.systems[SystemReactor].Level) / 100
	h.repair.Progress = geom.Clamp(h.repair.Progress+h.reactor.RepairSpeed*boost*t.Delta, 0, 1)
	if h.repair.Progress < 1 {
		return
	}
	state := h.systems[h.repair.System]
	state.Damage = geom.Clamp(state.Damage-h.reactor.RepairAmount, 0, 1)
	h.repair = nil
}
