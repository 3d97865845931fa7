// Package intake stages inbound client frames before they reach the game
// state actor.
package intake

import (
	"golang.org/x/time/rate"

	"bridgesim/server"
	"bridgesim/server/internal/ids"
	"bridgesim/server/internal/net/proto"
)

// Staged is the outcome of one inbound frame. Exactly one of Ack, Change
// or Dropped is meaningful.
type Staged struct {
	Type string
	// Ack is set for UpdateAcknowledge frames, which never reach the actor.
	Ack     *int64
	Change  server.Change
	Dropped bool
}

// Gate decodes a client's frames and rate limits the gameplay commands
// among them. It is owned by a single read loop.
type Gate struct {
	client  ids.ClientID
	limiter *rate.Limiter
	dropped uint64
}

// NewGate admits perSecond commands with the given burst. A non-positive
// rate disables limiting.
func NewGate(client ids.ClientID, perSecond float64, burst int) *Gate {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Gate{client: client, limiter: rate.NewLimiter(limit, burst)}
}

// Stage decodes payload. Decode errors wrap proto.ErrMalformed or
// proto.ErrUnknownCommand and are terminal for the connection.
func (g *Gate) Stage(payload []byte) (Staged, error) {
	cmd, err := proto.DecodeCommand(payload)
	if err != nil {
		return Staged{}, err
	}
	staged := Staged{Type: cmd.CommandType()}

	// Acknowledgements drive flow control and are never limited.
	if ack, ok := cmd.(proto.UpdateAcknowledge); ok {
		counter := ack.Counter
		staged.Ack = &counter
		return staged, nil
	}

	if !g.limiter.Allow() {
		g.dropped++
		staged.Dropped = true
		return staged, nil
	}
	staged.Change = server.ChangeFromCommand(g.client, cmd)
	return staged, nil
}

// Dropped is the number of commands refused by the limiter so far.
func (g *Gate) Dropped() uint64 { return g.dropped }
