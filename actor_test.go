package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridgesim/server/internal/net/proto"
	"bridgesim/server/internal/telemetry"
	"bridgesim/server/logging/simulation"
)

func startActor(t *testing.T, g *GameState, cfg ActorConfig) (*Actor, context.CancelFunc, <-chan error) {
	t.Helper()
	actor := NewActor(g, cfg, zerolog.Nop(), nil, telemetry.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- actor.Run(ctx) }()
	t.Cleanup(cancel)
	return actor, cancel, done
}

func TestActorServesSnapshots(t *testing.T) {
	g, _ := newTestState(t)
	actor, _, _ := startActor(t, g, ActorConfig{TickInterval: 5 * time.Millisecond})
	ctx := context.Background()

	snapshot, err := actor.Snapshot(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, snapshot)

	require.NoError(t, actor.Send(ctx, ClientConnected{ClientID: "c1"}))
	require.NoError(t, actor.Send(ctx, ChangeFromCommand("c1", proto.CommandSpawnShip{})))

	snapshot, err = actor.Snapshot(ctx, "c1")
	require.NoError(t, err)
	selection, ok := snapshot.(proto.ShipSelection)
	require.True(t, ok)
	assert.Len(t, selection.Ships, 1)

	require.Eventually(t, func() bool {
		diagnostics, err := actor.Diagnostics(ctx)
		return err == nil && diagnostics.Tick > 2 && diagnostics.Clients == 1
	}, time.Second, 5*time.Millisecond)
}

func TestActorPausedSkipsTicks(t *testing.T) {
	g, _ := newTestState(t)
	actor, _, _ := startActor(t, g, ActorConfig{TickInterval: 2 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, actor.Send(ctx, ClientConnected{ClientID: "c1"}))
	require.NoError(t, actor.Send(ctx, TogglePause{ClientID: "c1"}))
	first, err := actor.Diagnostics(ctx)
	require.NoError(t, err)
	require.True(t, first.Paused)

	time.Sleep(20 * time.Millisecond)
	second, err := actor.Diagnostics(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Tick, second.Tick)
}

func TestActorStops(t *testing.T) {
	g, _ := newTestState(t)
	actor, cancel, done := startActor(t, g, ActorConfig{})
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("actor did not stop")
	}

	err := actor.Send(context.Background(), ClientConnected{ClientID: "late"})
	assert.True(t, errors.Is(err, ErrActorStopped))
	_, err = actor.Snapshot(context.Background(), "late")
	assert.ErrorIs(t, err, ErrActorStopped)
}

func TestActorReportsTickBudgetOverruns(t *testing.T) {
	g, rec := newTestState(t)
	actor := NewActor(g, ActorConfig{TickInterval: 20 * time.Millisecond, TickBudgetWarn: 1.5}, zerolog.Nop(), rec, nil)

	clock := time.Unix(0, 0)
	elapsed := 50 * time.Millisecond
	actor.now = func() time.Time {
		clock = clock.Add(elapsed)
		return clock
	}

	ctx := context.Background()
	actor.apply(ctx, Update{Now: time.Now()})
	actor.apply(ctx, Update{Now: time.Now()})

	overruns := rec.ofType(simulation.EventTickBudgetOverrun)
	require.Len(t, overruns, 2)
	payload := overruns[1].Payload.(simulation.TickBudgetOverrunPayload)
	assert.Equal(t, uint64(2), payload.Streak)
	assert.InDelta(t, 30.0, payload.BudgetMillis, 1e-9)
	assert.InDelta(t, 2.5, payload.Ratio, 1e-9)

	elapsed = time.Millisecond
	actor.apply(ctx, Update{Now: time.Now()})
	assert.Len(t, rec.ofType(simulation.EventTickBudgetOverrun), 2)
	assert.Equal(t, uint64(3), g.Tick())
}
