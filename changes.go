package server

import (
	"time"

	"bridgesim/server/internal/ids"
	"bridgesim/server/internal/net/proto"
)

// Change is a message for the game state actor. The set is closed: only the
// types in this file implement it.
type Change interface {
	isChange()
}

// Update advances the simulation to Now.
type Update struct {
	Now time.Time
}

// TogglePause pauses or resumes the simulation on behalf of a client.
type TogglePause struct {
	ClientID ids.ClientID
}

type ClientConnected struct {
	ClientID ids.ClientID
}

// ClientDisconnected may arrive for a client that never finished
// registering.
type ClientDisconnected struct {
	ClientID ids.ClientID
	Reason   string
}

// PlayerCommand carries a decoded client command. Acknowledgements never
// reach the actor.
type PlayerCommand struct {
	ClientID ids.ClientID
	Command  proto.Command
}

// GetSnapshot asks for the client's current station view. Response must be
// buffered; a nil snapshot means the client is unknown.
type GetSnapshot struct {
	ClientID ids.ClientID
	Response chan proto.Snapshot
}

type GetDiagnostics struct {
	Response chan Diagnostics
}

func (Update) isChange()             {}
func (TogglePause) isChange()        {}
func (ClientConnected) isChange()    {}
func (ClientDisconnected) isChange() {}
func (PlayerCommand) isChange()      {}
func (GetSnapshot) isChange()        {}
func (GetDiagnostics) isChange()     {}

// ChangeFromCommand wraps a decoded command for the actor. TogglePause gets
// its own change; the rest travel as PlayerCommand.
func ChangeFromCommand(clientID ids.ClientID, cmd proto.Command) Change {
	if _, ok := cmd.(proto.CommandTogglePause); ok {
		return TogglePause{ClientID: clientID}
	}
	return PlayerCommand{ClientID: clientID, Command: cmd}
}

// Apply executes one change against the state. Only the actor goroutine
// calls it.
func (g *GameState) Apply(change Change) {
	switch c := change.(type) {
	case Update:
		g.Update(c.Now)
	case TogglePause:
		g.TogglePause(c.ClientID)
	case ClientConnected:
		g.ClientConnected(c.ClientID)
	case ClientDisconnected:
		g.ClientDisconnected(c.ClientID, c.Reason)
	case PlayerCommand:
		g.HandleCommand(c.ClientID, c.Command)
	case GetSnapshot:
		c.Response <- g.ToMessage(c.ClientID)
	case GetDiagnostics:
		c.Response <- g.Diagnostics()
	}
}
