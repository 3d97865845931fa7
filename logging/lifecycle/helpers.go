// Package lifecycle publishes connection and ship lifecycle events.
package lifecycle

import (
	"context"

	"bridgesim/server/logging"
)

const (
	EventClientConnected    logging.EventType = "lifecycle.client_connected"
	EventClientDisconnected logging.EventType = "lifecycle.client_disconnected"
	EventShipSpawned        logging.EventType = "lifecycle.ship_spawned"
	EventShipJoined         logging.EventType = "lifecycle.ship_joined"
	EventShipDestroyed      logging.EventType = "lifecycle.ship_destroyed"
)

type ClientDisconnectedPayload struct {
	Reason string `json:"reason,omitempty"`
}

type ShipSpawnedPayload struct {
	Designation string  `json:"designation"`
	ClassName   string  `json:"className"`
	Faction     string  `json:"faction"`
	Behaviour   string  `json:"behaviour,omitempty"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

type ShipJoinedPayload struct {
	Station string `json:"station"`
}

type ShipDestroyedPayload struct {
	Designation string `json:"designation"`
	Observers   int    `json:"observers"`
}

func ClientConnected(ctx context.Context, pub logging.Publisher, tick uint64, client logging.EntityRef) {
	logging.Emit(ctx, pub, logging.Event{
		Type:     EventClientConnected,
		Tick:     tick,
		Actor:    client,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
	})
}

func ClientDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, client logging.EntityRef, payload ClientDisconnectedPayload) {
	logging.Emit(ctx, pub, logging.Event{
		Type:     EventClientDisconnected,
		Tick:     tick,
		Actor:    client,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

func ShipSpawned(ctx context.Context, pub logging.Publisher, tick uint64, ship logging.EntityRef, payload ShipSpawnedPayload) {
	logging.Emit(ctx, pub, logging.Event{
		Type:     EventShipSpawned,
		Tick:     tick,
		Actor:    ship,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

func ShipJoined(ctx context.Context, pub logging.Publisher, tick uint64, client, ship logging.EntityRef, payload ShipJoinedPayload) {
	logging.Emit(ctx, pub, logging.Event{
		Type:     EventShipJoined,
		Tick:     tick,
		Actor:    client,
		Targets:  []logging.EntityRef{ship},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

func ShipDestroyed(ctx context.Context, pub logging.Publisher, tick uint64, ship logging.EntityRef, payload ShipDestroyedPayload) {
	logging.Emit(ctx, pub, logging.Event{
		Type:     EventShipDestroyed,
		Tick:     tick,
		Actor:    ship,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}
