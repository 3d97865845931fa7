package logging

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultQueueSize = 512
	maxSinkBacklog   = 1024
	maxRetryDelay    = 32 * time.Second
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

type RouterStats struct {
	EventsTotal  uint64
	DroppedTotal uint64
	SinkDrops    map[string]uint64
}

// Router stamps, filters and fans out simulation events. Every sink gets its
// own backlog and goroutine. Publish never blocks: when the router queue or a sink backlog is full the event
// is dropped and counted.
type Router struct {
	clock    Clock
	minimum  Severity
	fields   map[string]any
	fallback zerolog.Logger

	queue    chan Event
	stop     chan struct{}
	closed   atomic.Bool
	workers  []*sinkWorker
	group    errgroup.Group

	published atomic.Uint64
	dropped   atomic.Uint64
	dropWarn  *rate.Sometimes
}

// NewRouter starts one dispatcher and one worker per sink. Sink failures and
// drops are reported on the fallback logger.
func NewRouter(clock Clock, cfg Config, namedSinks []NamedSink, fallback zerolog.Logger) *Router {
	if clock == nil {
		clock = ClockFunc(time.Now)
	}
	queueSize := cfg.BufferSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	warnEvery := cfg.DropWarnInterval
	if warnEvery <= 0 {
		warnEvery = 5 * time.Second
	}
	fallback = fallback.With().Str("component", "logging").Logger()

	r := &Router{
		clock:    clock,
		minimum:  cfg.MinimumSeverity,
		fields:   cfg.CloneFields(),
		fallback: fallback,
		queue:    make(chan Event, queueSize),
		stop:     make(chan struct{}),
		dropWarn: &rate.Sometimes{First: 1, Interval: warnEvery},
	}

	backlog := min(max(queueSize, 32), maxSinkBacklog)
	for _, named := range namedSinks {
		if named.Sink == nil {
			continue
		}
		worker := &sinkWorker{
			name:     named.Name,
			sink:     named.Sink,
			backlog:  make(chan Event, backlog),
			logger:   fallback.With().Str("sink", named.Name).Logger(),
			dropWarn: &rate.Sometimes{First: 1, Interval: warnEvery},
		}
		r.workers = append(r.workers, worker)
		r.group.Go(worker.run)
	}
	r.group.Go(r.dispatch)
	return r
}

// Publish queues an event. Events without a type, below the minimum
// severity or published after Close are ignored.
func (r *Router) Publish(_ context.Context, event Event) {
	if event.Type == "" || event.Severity < r.minimum || r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.dropped.Add(1)
		r.dropWarn.Do(func() {
			r.fallback.Warn().Str("event", string(event.Type)).Uint64("tick", event.Tick).Msg("router queue full, dropping event")
		})
	}
}

// dispatch moves queued events to the sink backlogs until Close, then
// flushes what is left and closes the backlogs.
func (r *Router) dispatch() error {
	defer func() {
		for _, worker := range r.workers {
			close(worker.backlog)
		}
	}()
	for {
		select {
		case event := <-r.queue:
			r.fanOut(event)
		case <-r.stop:
			for {
				select {
				case event := <-r.queue:
					r.fanOut(event)
				default:
					return nil
				}
			}
		}
	}
}

func (r *Router) fanOut(event Event) {
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	event = mergeFields(event, r.fields)
	r.published.Add(1)
	for _, worker := range r.workers {
		worker.offer(event)
	}
}

// Close stops accepting events, waits for every sink to drain and then
// closes the sinks. It returns the first sink close error.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.stop)

	drained := make(chan struct{})
	go func() {
		_ = r.group.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		return ctx.Err()
	}

	var firstErr error
	for _, worker := range r.workers {
		if err := worker.sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) Stats() RouterStats {
	stats := RouterStats{
		EventsTotal:  r.published.Load(),
		DroppedTotal: r.dropped.Load(),
		SinkDrops:    make(map[string]uint64, len(r.workers)),
	}
	for _, worker := range r.workers {
		stats.SinkDrops[worker.name] = worker.dropped.Load()
	}
	return stats
}

// Sink returns the named sink, or nil.
func (r *Router) Sink(name string) Sink {
	for _, worker := range r.workers {
		if worker.name == name {
			return worker.sink
		}
	}
	return nil
}

type sinkWorker struct {
	name     string
	sink     Sink
	backlog  chan Event
	logger   zerolog.Logger
	dropped  atomic.Uint64
	dropWarn *rate.Sometimes

	// Owned by run.
	failures int
	retryAt  time.Time
}

func (w *sinkWorker) offer(event Event) {
	select {
	case w.backlog <- event.Clone():
	default:
		w.dropped.Add(1)
		w.dropWarn.Do(func() {
			w.logger.Warn().Str("event", string(event.Type)).Msg("sink backlog full, dropping event")
		})
	}
}

func (w *sinkWorker) run() error {
	for event := range w.backlog {
		if wait := time.Until(w.retryAt); wait > 0 {
			time.Sleep(wait)
		}
		if err := w.sink.Write(event); err != nil {
			w.backOff(err)
			continue
		}
		w.failures = 0
		w.retryAt = time.Time{}
	}
	return nil
}

// backOff delays the next write after a failure, doubling per consecutive
// failure up to maxRetryDelay.
func (w *sinkWorker) backOff(err error) {
	w.failures++
	delay := min(time.Duration(1<<min(w.failures-1, 5))*time.Second, maxRetryDelay)
	w.retryAt = time.Now().Add(delay)
	w.logger.Error().Err(err).Dur("retry", delay).Msg("sink write failed")
}
