package ws

import (
	"context"
	"errors"
)

// ErrThrottleStopped is returned once the throttle loop has exited.
var ErrThrottleStopped = errors.New("throttle stopped")

// AckResult describes the effect of one acknowledgement.
type AckResult struct {
	// Previous is the highest counter acknowledged before this one.
	Previous int64
	Removed  int
	InFlight int
	// Advanced is set when the ack is newer than Previous.
	Advanced bool
	// Regression is set when the ack names a counter never issued.
	Regression bool
}

type throttleState struct {
	inFlight []int64
	issued   int64
	acked    int64
}

// ThrottleActor tracks the frames a client has not acknowledged yet. Its
// state is owned by the Run goroutine; callers talk to it through
// closures sent over a channel.
type ThrottleActor struct {
	max      int
	requests chan func(*throttleState)
	done     chan struct{}
}

func NewThrottleActor(maxInFlight int) *ThrottleActor {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &ThrottleActor{
		max:      maxInFlight,
		requests: make(chan func(*throttleState)),
		done:     make(chan struct{}),
	}
}

func (t *ThrottleActor) Run(ctx context.Context) error {
	defer close(t.done)
	var state throttleState
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-t.requests:
			fn(&state)
		}
	}
}

func (t *ThrottleActor) do(ctx context.Context, fn func(*throttleState)) error {
	finished := make(chan struct{})
	request := func(state *throttleState) {
		fn(state)
		close(finished)
	}
	select {
	case t.requests <- request:
	case <-t.done:
		return ErrThrottleStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// Admit reports whether another frame may be sent.
func (t *ThrottleActor) Admit(ctx context.Context) (bool, error) {
	var ok bool
	err := t.do(ctx, func(s *throttleState) {
		ok = len(s.inFlight) < t.max
	})
	return ok, err
}

// Issue records counter as sent and unacknowledged. Counters must be
// issued in increasing order.
func (t *ThrottleActor) Issue(ctx context.Context, counter int64) error {
	return t.do(ctx, func(s *throttleState) {
		s.inFlight = append(s.inFlight, counter)
		if counter > s.issued {
			s.issued = counter
		}
	})
}

// Acknowledge removes every in-flight counter <= counter. An ack for a
// counter that was never issued changes nothing.
func (t *ThrottleActor) Acknowledge(ctx context.Context, counter int64) (AckResult, error) {
	var result AckResult
	err := t.do(ctx, func(s *throttleState) {
		result.Previous = s.acked
		if counter > s.issued {
			result.Regression = true
			result.InFlight = len(s.inFlight)
			return
		}
		kept := s.inFlight[:0]
		for _, c := range s.inFlight {
			if c > counter {
				kept = append(kept, c)
			}
		}
		result.Removed = len(s.inFlight) - len(kept)
		s.inFlight = kept
		result.InFlight = len(kept)
		if counter > s.acked {
			s.acked = counter
			result.Advanced = true
		}
	})
	return result, err
}

func (t *ThrottleActor) InFlight(ctx context.Context) (int, error) {
	var n int
	err := t.do(ctx, func(s *throttleState) {
		n = len(s.inFlight)
	})
	return n, err
}
