// Package combat publishes weapons and damage events.
package combat

import (
	"context"

	"bridgesim/server/logging"
)

const (
	EventLockAcquired     logging.EventType = "combat.lock_acquired"
	EventScanCompleted    logging.EventType = "combat.scan_completed"
	EventBeamHit          logging.EventType = "combat.beam_hit"
	EventTorpedoLaunched  logging.EventType = "combat.torpedo_launched"
	EventTorpedoDetonated logging.EventType = "combat.torpedo_detonated"
	EventTorpedoBurnedOut logging.EventType = "combat.torpedo_burned_out"
)

type ScanCompletedPayload struct {
	Level string `json:"level"`
}

type BeamHitPayload struct {
	Amount float64 `json:"amount"`
	Hull   float64 `json:"hull"`
}

type TorpedoPayload struct {
	Tube   int     `json:"tube,omitempty"`
	Damage float64 `json:"damage,omitempty"`
}

func LockAcquired(ctx context.Context, pub logging.Publisher, tick uint64, ship, target logging.EntityRef) {
	logging.Emit(ctx, pub, logging.Event{
		Type:     EventLockAcquired,
		Tick:     tick,
		Actor:    ship,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
	})
}

func ScanCompleted(ctx context.Context, pub logging.Publisher, tick uint64, ship, target logging.EntityRef, payload ScanCompletedPayload) {
	logging.Emit(ctx, pub, logging.Event{
		Type:     EventScanCompleted,
		Tick:     tick,
		Actor:    ship,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

func BeamHit(ctx context.Context, pub logging.Publisher, tick uint64, ship, target logging.EntityRef, payload BeamHitPayload) {
	logging.Emit(ctx, pub, logging.Event{
		Type:     EventBeamHit,
		Tick:     tick,
		Actor:    ship,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

func TorpedoLaunched(ctx context.Context, pub logging.Publisher, tick uint64, ship, torpedo logging.EntityRef, payload TorpedoPayload) {
	logging.Emit(ctx, pub, logging.Event{
		Type:     EventTorpedoLaunched,
		Tick:     tick,
		Actor:    ship,
		Targets:  []logging.EntityRef{torpedo},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

func TorpedoDetonated(ctx context.Context, pub logging.Publisher, tick uint64, torpedo logging.EntityRef, hits []logging.EntityRef, payload TorpedoPayload) {
	logging.Emit(ctx, pub, logging.Event{
		Type:     EventTorpedoDetonated,
		Tick:     tick,
		Actor:    torpedo,
		Targets:  hits,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

func TorpedoBurnedOut(ctx context.Context, pub logging.Publisher, tick uint64, torpedo logging.EntityRef) {
	logging.Emit(ctx, pub, logging.Event{
		Type:     EventTorpedoBurnedOut,
		Tick:     tick,
		Actor:    torpedo,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
	})
}
