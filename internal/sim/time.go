package sim

import "time"

// NominalDelta is the step used for the first tick after creation or after
// resuming from pause, so wall-clock time spent paused never leaks into the
// simulation.
const NominalDelta = 0.001

// GameTime is the simulation clock. Only the tick driver mutates it.
type GameTime struct {
	Current float64 // accumulated simulated seconds
	Delta   float64 // seconds advanced by the last update
	Paused  bool

	last time.Time
}

// NewGameTime returns a clock at zero with no wall-clock baseline.
func NewGameTime() *GameTime {
	return &GameTime{}
}

// FixedTime returns a clock that reports the given current time and delta.
func FixedTime(current, delta float64) *GameTime {
	return &GameTime{Current: current, Delta: delta}
}

// Update advances the clock by the wall-clock time elapsed since the
// previous update. Paused clocks do not move.
func (t *GameTime) Update(now time.Time) {
	if t.Paused {
		t.Delta = 0
		return
	}
	delta := NominalDelta
	if !t.last.IsZero() {
		delta = now.Sub(t.last).Seconds()
		if delta < 0 {
			delta = 0
		}
	}
	t.last = now
	t.Advance(delta)
}

// Advance moves the clock forward by a fixed delta.
func (t *GameTime) Advance(delta float64) {
	t.Delta = delta
	t.Current += delta
}

// SetPaused toggles the pause flag and resets the wall-clock baseline so the
// next update after resuming uses NominalDelta.
func (t *GameTime) SetPaused(paused bool) {
	if t.Paused == paused {
		return
	}
	t.Paused = paused
	t.last = time.Time{}
}

