// Package telemetry registers the server's OpenTelemetry instruments. They
// are either backed by an in-memory SDK Provider or by the no-op meter.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "bridgesim/server"

// Metrics holds every instrument. A nil *Metrics records nothing.
type Metrics struct {
	ticks         metric.Int64Counter
	tickDuration  metric.Float64Histogram
	overruns      metric.Int64Counter
	framesSent    metric.Int64Counter
	framesSkipped metric.Int64Counter
	commands      metric.Int64Counter
	dropped       metric.Int64Counter
	sessions      metric.Int64UpDownCounter
	queueDepth    metric.Int64ObservableGauge
	meter         metric.Meter
}

// Nop returns instruments backed by the no-op meter.
func Nop() *Metrics {
	m, err := New(noop.Meter{})
	if err != nil {
		return nil
	}
	return m
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{meter: meter}
	var err error

	if m.ticks, err = meter.Int64Counter(
		"simulation.ticks",
		metric.WithDescription("Simulation updates applied"),
	); err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}
	if m.tickDuration, err = meter.Float64Histogram(
		"simulation.tick.duration",
		metric.WithDescription("Wall-clock time spent in one update"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("creating tick duration histogram: %w", err)
	}
	if m.overruns, err = meter.Int64Counter(
		"simulation.tick.overruns",
		metric.WithDescription("Updates that exceeded the tick budget"),
	); err != nil {
		return nil, fmt.Errorf("creating overrun counter: %w", err)
	}
	if m.framesSent, err = meter.Int64Counter(
		"session.frames.sent",
		metric.WithDescription("Snapshot frames written to clients"),
	); err != nil {
		return nil, fmt.Errorf("creating frames sent counter: %w", err)
	}
	if m.framesSkipped, err = meter.Int64Counter(
		"session.frames.skipped",
		metric.WithDescription("Snapshots not sent because they matched the previous frame or the in-flight cap was reached"),
	); err != nil {
		return nil, fmt.Errorf("creating frames skipped counter: %w", err)
	}
	if m.commands, err = meter.Int64Counter(
		"session.commands",
		metric.WithDescription("Client commands forwarded to the simulation"),
	); err != nil {
		return nil, fmt.Errorf("creating command counter: %w", err)
	}
	if m.dropped, err = meter.Int64Counter(
		"session.commands.dropped",
		metric.WithDescription("Client commands dropped by the rate limiter"),
	); err != nil {
		return nil, fmt.Errorf("creating dropped command counter: %w", err)
	}
	if m.sessions, err = meter.Int64UpDownCounter(
		"session.active",
		metric.WithDescription("Open client sessions"),
	); err != nil {
		return nil, fmt.Errorf("creating session counter: %w", err)
	}
	if m.queueDepth, err = meter.Int64ObservableGauge(
		"simulation.queue.depth",
		metric.WithDescription("Changes waiting for the simulation actor"),
	); err != nil {
		return nil, fmt.Errorf("creating queue depth gauge: %w", err)
	}
	return m, nil
}

// ObserveQueue reports depth() on every collection.
func (m *Metrics) ObserveQueue(depth func() int) error {
	if m == nil || depth == nil {
		return nil
	}
	_, err := m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(m.queueDepth, int64(depth()))
		return nil
	}, m.queueDepth)
	if err != nil {
		return fmt.Errorf("registering queue callback: %w", err)
	}
	return nil
}

func (m *Metrics) RecordTick(ctx context.Context, elapsed time.Duration, overrun bool) {
	if m == nil {
		return
	}
	m.ticks.Add(ctx, 1)
	m.tickDuration.Record(ctx, float64(elapsed)/float64(time.Millisecond))
	if overrun {
		m.overruns.Add(ctx, 1)
	}
}

func (m *Metrics) FrameSent(ctx context.Context, snapshotType string) {
	if m == nil {
		return
	}
	m.framesSent.Add(ctx, 1, metric.WithAttributes(attribute.String("snapshot", snapshotType)))
}

func (m *Metrics) FrameSkipped(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.framesSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) Command(ctx context.Context, commandType string) {
	if m == nil {
		return
	}
	m.commands.Add(ctx, 1, metric.WithAttributes(attribute.String("command", commandType)))
}

func (m *Metrics) CommandDropped(ctx context.Context, commandType string) {
	if m == nil {
		return
	}
	m.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("command", commandType)))
}

func (m *Metrics) SessionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.sessions.Add(ctx, 1)
}

func (m *Metrics) SessionClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.sessions.Add(ctx, -1)
}
