package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderCollectsRecordedValues(t *testing.T) {
	provider := NewProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	m, err := provider.Metrics()
	require.NoError(t, err)
	require.NoError(t, m.ObserveQueue(func() int { return 7 }))

	ctx := context.Background()
	m.RecordTick(ctx, 2*time.Millisecond, false)
	m.RecordTick(ctx, 4*time.Millisecond, false)
	m.RecordTick(ctx, 40*time.Millisecond, true)
	m.FrameSent(ctx, "Helm")
	m.FrameSent(ctx, "Weapons")
	m.CommandDropped(ctx, "CommandStartJump")
	m.SessionOpened(ctx)
	m.SessionOpened(ctx)
	m.SessionClosed(ctx)

	summary, err := provider.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3.0, summary["simulation.ticks"])
	assert.Equal(t, 1.0, summary["simulation.tick.overruns"])
	assert.Equal(t, 3.0, summary["simulation.tick.duration.count"])
	assert.InDelta(t, 46.0, summary["simulation.tick.duration.sum"], 1e-9)
	assert.Equal(t, 2.0, summary["session.frames.sent"])
	assert.Equal(t, 1.0, summary["session.commands.dropped"])
	assert.Equal(t, 1.0, summary["session.active"])
	assert.Equal(t, 7.0, summary["simulation.queue.depth"])
}

func TestNilProviderCollectsNothing(t *testing.T) {
	var provider *Provider
	summary, err := provider.Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary)
	assert.NoError(t, provider.Shutdown(context.Background()))
}
