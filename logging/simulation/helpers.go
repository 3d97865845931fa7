// Package simulation publishes tick loop and world state events.
package simulation

import (
	"context"

	"bridgesim/server/logging"
)

const (
	// EventTickBudgetOverrun is emitted when an update takes longer than the
	// configured fraction of the tick interval.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
	// EventPauseToggled is emitted when a client pauses or resumes the game.
	EventPauseToggled logging.EventType = "simulation.pause_toggled"
	// EventJumpCompleted is emitted when a ship arrives from a jump.
	EventJumpCompleted logging.EventType = "simulation.jump_completed"
	// EventScenarioLoaded is emitted once the world has been populated.
	EventScenarioLoaded logging.EventType = "simulation.scenario_loaded"
)

type TickBudgetOverrunPayload struct {
	DurationMillis float64 `json:"durationMillis"`
	BudgetMillis   float64 `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
	Streak         uint64  `json:"streak"`
}

type PauseToggledPayload struct {
	Paused bool `json:"paused"`
}

type JumpCompletedPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ScenarioLoadedPayload struct {
	Name      string `json:"name"`
	Ships     int    `json:"ships"`
	Asteroids int    `json:"asteroids"`
}

func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload) {
	logging.Emit(ctx, pub, logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Actor:    logging.World(),
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}

func PauseToggled(ctx context.Context, pub logging.Publisher, tick uint64, client logging.EntityRef, payload PauseToggledPayload) {
	logging.Emit(ctx, pub, logging.Event{
		Type:     EventPauseToggled,
		Tick:     tick,
		Actor:    client,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}

func JumpCompleted(ctx context.Context, pub logging.Publisher, tick uint64, ship logging.EntityRef, payload JumpCompletedPayload) {
	logging.Emit(ctx, pub, logging.Event{
		Type:     EventJumpCompleted,
		Tick:     tick,
		Actor:    ship,
		Severity: logging.SeverityDebug,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}

func ScenarioLoaded(ctx context.Context, pub logging.Publisher, payload ScenarioLoadedPayload) {
	logging.Emit(ctx, pub, logging.Event{
		Type:     EventScenarioLoaded,
		Actor:    logging.World(),
		Severity: logging.SeverityInfo,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}
