package server

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"bridgesim/server/internal/ids"
	"bridgesim/server/internal/net/proto"
	"bridgesim/server/internal/telemetry"
	"bridgesim/server/logging"
	"bridgesim/server/logging/simulation"
)

// ErrActorStopped is returned to callers once the actor loop has exited.
var ErrActorStopped = errors.New("game state actor stopped")

type ActorConfig struct {
	TickInterval time.Duration
	// TickBudgetWarn is the fraction of TickInterval an update may take
	// before an overrun is reported.
	TickBudgetWarn float64
	QueueSize      int
}

func DefaultActorConfig() ActorConfig {
	return ActorConfig{
		TickInterval:   20 * time.Millisecond,
		TickBudgetWarn: 1.5,
		QueueSize:      1024,
	}
}

// Actor owns a GameState and applies changes to it one at a time, in
// arrival order, on a single goroutine.
type Actor struct {
	cfg       ActorConfig
	state     *GameState
	changes   chan Change
	done      chan struct{}
	logger    zerolog.Logger
	publisher logging.Publisher
	metrics   *telemetry.Metrics
	now       func() time.Time

	overrunStreak uint64
}

func NewActor(state *GameState, cfg ActorConfig, logger zerolog.Logger, publisher logging.Publisher, metrics *telemetry.Metrics) *Actor {
	defaults := DefaultActorConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaults.TickInterval
	}
	if cfg.TickBudgetWarn <= 0 {
		cfg.TickBudgetWarn = defaults.TickBudgetWarn
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	a := &Actor{
		cfg:       cfg,
		state:     state,
		changes:   make(chan Change, cfg.QueueSize),
		done:      make(chan struct{}),
		logger:    logger.With().Str("component", "actor").Logger(),
		publisher: publisher,
		metrics:   metrics,
		now:       time.Now,
	}
	if err := metrics.ObserveQueue(a.QueueDepth); err != nil {
		a.logger.Warn().Err(err).Msg("queue depth gauge unavailable")
	}
	return a
}

// QueueDepth is the number of changes waiting to be applied.
func (a *Actor) QueueDepth() int { return len(a.changes) }

// Run processes changes and drives the ticker until ctx is cancelled.
func (a *Actor) Run(ctx context.Context) error {
	defer close(a.done)
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		a.loop(ctx)
		return nil
	})
	group.Go(func() error {
		a.tick(ctx)
		return nil
	})
	err := group.Wait()
	a.logger.Info().Uint64("tick", a.state.Tick()).Msg("actor stopped")
	return err
}

func (a *Actor) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case change := <-a.changes:
			a.apply(ctx, change)
		}
	}
}

// tick enqueues an Update every interval.
func (a *Actor) tick(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			select {
			case a.changes <- Update{Now: now}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (a *Actor) apply(ctx context.Context, change Change) {
	update, ok := change.(Update)
	if !ok {
		a.state.Apply(change)
		return
	}
	if a.state.Paused() {
		return
	}
	started := a.now()
	a.state.Update(update.Now)
	a.recordTick(ctx, a.now().Sub(started))
}

func (a *Actor) recordTick(ctx context.Context, elapsed time.Duration) {
	budget := time.Duration(float64(a.cfg.TickInterval) * a.cfg.TickBudgetWarn)
	overrun := elapsed > budget
	a.metrics.RecordTick(ctx, elapsed, overrun)
	if !overrun {
		a.overrunStreak = 0
		return
	}
	a.overrunStreak++
	simulation.TickBudgetOverrun(ctx, a.publisher, a.state.Tick(), simulation.TickBudgetOverrunPayload{
		DurationMillis: float64(elapsed) / float64(time.Millisecond),
		BudgetMillis:   float64(budget) / float64(time.Millisecond),
		Ratio:          float64(elapsed) / float64(a.cfg.TickInterval),
		Streak:         a.overrunStreak,
	})
}

// Send enqueues a change. It blocks while the queue is full.
func (a *Actor) Send(ctx context.Context, change Change) error {
	select {
	case <-a.done:
		return ErrActorStopped
	default:
	}
	select {
	case a.changes <- change:
		return nil
	case <-a.done:
		return ErrActorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the client's current station view, or nil for an
// unknown client.
func (a *Actor) Snapshot(ctx context.Context, clientID ids.ClientID) (proto.Snapshot, error) {
	response := make(chan proto.Snapshot, 1)
	if err := a.Send(ctx, GetSnapshot{ClientID: clientID, Response: response}); err != nil {
		return nil, err
	}
	select {
	case snapshot := <-response:
		return snapshot, nil
	case <-a.done:
		return nil, ErrActorStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Actor) Diagnostics(ctx context.Context) (Diagnostics, error) {
	response := make(chan Diagnostics, 1)
	if err := a.Send(ctx, GetDiagnostics{Response: response}); err != nil {
		return Diagnostics{}, err
	}
	select {
	case diagnostics := <-response:
		return diagnostics, nil
	case <-a.done:
		return Diagnostics{}, ErrActorStopped
	case <-ctx.Done():
		return Diagnostics{}, ctx.Err()
	}
}
