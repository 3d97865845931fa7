package ws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"bridgesim/server"
	"bridgesim/server/internal/ids"
	"bridgesim/server/internal/net/intake"
	"bridgesim/server/internal/net/proto"
	"bridgesim/server/internal/telemetry"
	"bridgesim/server/logging"
	"bridgesim/server/logging/network"
)

const (
	writeWait      = 5 * time.Second
	disconnectWait = time.Second
)

// GameActor is the part of the game state actor a session talks to.
type GameActor interface {
	Send(ctx context.Context, change server.Change) error
	Snapshot(ctx context.Context, clientID ids.ClientID) (proto.Snapshot, error)
}

type Config struct {
	SnapshotInterval time.Duration
	MaxInFlight      int
	CommandRate      float64
	CommandBurst     int
	PingInterval     time.Duration
	ReadTimeout      time.Duration
}

func DefaultConfig() Config {
	return Config{
		SnapshotInterval: 10 * time.Millisecond,
		MaxInFlight:      3,
		CommandRate:      120,
		CommandBurst:     60,
		PingInterval:     25 * time.Second,
		ReadTimeout:      60 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.SnapshotInterval <= 0 {
		c.SnapshotInterval = defaults.SnapshotInterval
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = defaults.MaxInFlight
	}
	if c.PingInterval <= 0 {
		c.PingInterval = defaults.PingInterval
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaults.ReadTimeout
	}
	return c
}

// Session bridges one websocket connection to the game state actor. It
// runs a read loop that forwards commands and a send loop that streams
// throttled snapshots.
type Session struct {
	id        ids.ClientID
	conn      *websocket.Conn
	actor     GameActor
	cfg       Config
	throttle  *ThrottleActor
	gate      *intake.Gate
	logger    zerolog.Logger
	publisher logging.Publisher
	metrics   *telemetry.Metrics

	// Owned by the send loop.
	counter    int64
	lastSent   []byte
	framesSent uint64

	// Owned by the read loop.
	limited bool
}

func NewSession(id ids.ClientID, conn *websocket.Conn, actor GameActor, cfg Config, logger zerolog.Logger, publisher logging.Publisher, metrics *telemetry.Metrics) *Session {
	cfg = cfg.withDefaults()
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Session{
		id:        id,
		conn:      conn,
		actor:     actor,
		cfg:       cfg,
		throttle:  NewThrottleActor(cfg.MaxInFlight),
		gate:      intake.NewGate(id, cfg.CommandRate, cfg.CommandBurst),
		logger:    logger.With().Str("client", id.String()).Logger(),
		publisher: publisher,
		metrics:   metrics,
	}
}

func (s *Session) ref() logging.EntityRef {
	return logging.Ref(s.id, logging.EntityKindClient)
}

// Run registers the client, serves the connection until either loop
// fails or ctx is cancelled, then unregisters the client. A clean close
// by the peer or ctx cancellation returns nil.
func (s *Session) Run(ctx context.Context) error {
	if err := s.actor.Send(ctx, server.ClientConnected{ClientID: s.id}); err != nil {
		return fmt.Errorf("registering client: %w", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return s.throttle.Run(groupCtx) })
	group.Go(func() error {
		<-groupCtx.Done()
		return s.conn.Close()
	})
	group.Go(func() error { return s.readLoop(groupCtx) })
	group.Go(func() error { return s.sendLoop(groupCtx) })
	err := group.Wait()

	if ctx.Err() != nil || isPeerClose(err) {
		err = nil
	}
	reason := "closed"
	if err != nil {
		reason = err.Error()
	}

	disconnectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disconnectWait)
	defer cancel()
	if sendErr := s.actor.Send(disconnectCtx, server.ClientDisconnected{ClientID: s.id, Reason: reason}); sendErr != nil {
		s.logger.Warn().Err(sendErr).Msg("failed to unregister client")
	}

	payload := network.SessionEndedPayload{FramesSent: s.framesSent}
	if err != nil {
		payload.Error = err.Error()
	}
	network.SessionEnded(ctx, s.publisher, s.ref(), payload)
	return err
}

func isPeerClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived, websocket.CloseAbnormalClosure)
}

func (s *Session) readLoop(ctx context.Context) error {
	s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}
		s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

		staged, err := s.gate.Stage(payload)
		if err != nil {
			network.MalformedCommand(ctx, s.publisher, s.ref(), network.MalformedCommandPayload{Error: err.Error(), Bytes: len(payload)})
			closing := websocket.FormatCloseMessage(websocket.CloseUnsupportedData, "malformed command")
			s.conn.WriteControl(websocket.CloseMessage, closing, time.Now().Add(writeWait))
			return fmt.Errorf("decoding command: %w", err)
		}

		switch {
		case staged.Ack != nil:
			if err := s.acknowledge(ctx, *staged.Ack); err != nil {
				return err
			}
		case staged.Dropped:
			s.metrics.CommandDropped(ctx, staged.Type)
			if !s.limited {
				s.limited = true
				network.CommandRateLimited(ctx, s.publisher, s.ref(), network.RateLimitedPayload{Command: staged.Type, Dropped: s.gate.Dropped()})
			}
		default:
			s.limited = false
			s.metrics.Command(ctx, staged.Type)
			if err := s.actor.Send(ctx, staged.Change); err != nil {
				return fmt.Errorf("forwarding %s: %w", staged.Type, err)
			}
		}
	}
}

func (s *Session) acknowledge(ctx context.Context, counter int64) error {
	result, err := s.throttle.Acknowledge(ctx, counter)
	if err != nil {
		return fmt.Errorf("acknowledging %d: %w", counter, err)
	}
	payload := network.AckPayload{Previous: result.Previous, Ack: counter, InFlight: result.InFlight}
	switch {
	case result.Regression:
		network.AckRegression(ctx, s.publisher, s.ref(), payload)
	case result.Advanced:
		network.AckAdvanced(ctx, s.publisher, s.ref(), payload)
	}
	return nil
}

func (s *Session) sendLoop(ctx context.Context) error {
	snapshots := time.NewTicker(s.cfg.SnapshotInterval)
	defer snapshots.Stop()
	pings := time.NewTicker(s.cfg.PingInterval)
	defer pings.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pings.C:
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				return fmt.Errorf("sending ping: %w", err)
			}
		case <-snapshots.C:
			// Once a close frame is out the read loop reports the outcome.
			if err := s.pushSnapshot(ctx); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				return err
			}
		}
	}
}

// pushSnapshot sends the client's current view if the in-flight cap
// allows and the view changed since the last frame.
func (s *Session) pushSnapshot(ctx context.Context) error {
	admitted, err := s.throttle.Admit(ctx)
	if err != nil {
		return err
	}
	if !admitted {
		s.metrics.FrameSkipped(ctx, "throttled")
		return nil
	}

	snapshot, err := s.actor.Snapshot(ctx, s.id)
	if err != nil {
		return fmt.Errorf("requesting snapshot: %w", err)
	}
	if snapshot == nil {
		return nil
	}

	encoded, err := proto.EncodeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", snapshot.SnapshotType(), err)
	}
	if bytes.Equal(encoded, s.lastSent) {
		s.metrics.FrameSkipped(ctx, "unchanged")
		return nil
	}

	counter := s.counter + 1
	frame, err := proto.EncodeFrame(counter, snapshot)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	if err := s.throttle.Issue(ctx, counter); err != nil {
		return err
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	s.counter = counter
	s.lastSent = encoded
	s.framesSent++
	s.metrics.FrameSent(ctx, snapshot.SnapshotType())
	return nil
}
