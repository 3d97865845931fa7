package proto

import (
	"encoding/json"
	"errors"
	"fmt"

	"bridgesim/server/internal/geom"
	"bridgesim/server/internal/ids"
)

var (
	// ErrMalformed reports a frame that is not a valid command object.
	ErrMalformed = errors.New("proto: malformed command")
	// ErrUnknownCommand reports a well-formed frame with an unknown type.
	ErrUnknownCommand = errors.New("proto: unknown command type")
)

// Client command type identifiers.
const (
	TypeUpdateAcknowledge         = "UpdateAcknowledge"
	TypeCommandSpawnShip          = "CommandSpawnShip"
	TypeCommandJoinShip           = "CommandJoinShip"
	TypeCommandChangeStation      = "CommandChangeStation"
	TypeCommandExitShip           = "CommandExitShip"
	TypeCommandChangeThrottle     = "CommandChangeThrottle"
	TypeCommandChangeRudder       = "CommandChangeRudder"
	TypeCommandChangeJumpDistance = "CommandChangeJumpDistance"
	TypeCommandStartJump          = "CommandStartJump"
	TypeCommandSetPower           = "CommandSetPower"
	TypeCommandSetCoolant         = "CommandSetCoolant"
	TypeCommandRepair             = "CommandRepair"
	TypeCommandLockTarget         = "CommandLockTarget"
	TypeCommandScanShip           = "CommandScanShip"
	TypeCommandAdjustScan         = "CommandAdjustScan"
	TypeCommandAddWaypoint        = "CommandAddWaypoint"
	TypeCommandDeleteWaypoint     = "CommandDeleteWaypoint"
	TypeCommandMapSelectShip      = "CommandMapSelectShip"
	TypeCommandMapSelectWaypoint  = "CommandMapSelectWaypoint"
	TypeCommandMapClearSelection  = "CommandMapClearSelection"
	TypeCommandToggleShieldsUp    = "CommandToggleShieldsUp"
	TypeCommandMainScreenView     = "CommandMainScreenView"
	TypeCommandTogglePause        = "CommandTogglePause"
	TypeCommandStartReload        = "CommandStartReload"
	TypeCommandLaunchTorpedo      = "CommandLaunchTorpedo"
)

// Command is an inbound client frame.
type Command interface {
	CommandType() string
}

type UpdateAcknowledge struct {
	Counter int64 `json:"counter"`
}

type CommandSpawnShip struct{}

type CommandJoinShip struct {
	ObjectID ids.ObjectID `json:"objectId"`
	Station  Station      `json:"station"`
}

type CommandChangeStation struct {
	Station Station `json:"station"`
}

type CommandExitShip struct{}

type CommandChangeThrottle struct {
	Value int `json:"value"`
}

type CommandChangeRudder struct {
	Value int `json:"value"`
}

// CommandChangeJumpDistance carries a ratio in [0, 1] of the drive's range.
type CommandChangeJumpDistance struct {
	Value float64 `json:"value"`
}

type CommandStartJump struct{}

type CommandSetPower struct {
	SystemType string `json:"systemType"`
	Power      int    `json:"power"`
}

type CommandSetCoolant struct {
	SystemType string  `json:"systemType"`
	Coolant    float64 `json:"coolant"`
}

type CommandRepair struct {
	SystemType string `json:"systemType"`
}

type CommandLockTarget struct {
	TargetID ids.ObjectID `json:"targetId"`
}

type CommandScanShip struct {
	TargetID ids.ObjectID `json:"targetId"`
}

// CommandAdjustScan moves one slider of the active scan.
type CommandAdjustScan struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

type CommandAddWaypoint struct {
	Position geom.Vector2 `json:"position"`
}

type CommandDeleteWaypoint struct {
	Index int `json:"index"`
}

type CommandMapSelectShip struct {
	TargetID ids.ObjectID `json:"targetId"`
}

type CommandMapSelectWaypoint struct {
	Index int `json:"index"`
}

type CommandMapClearSelection struct{}

type CommandToggleShieldsUp struct{}

type CommandMainScreenView struct {
	View MainScreenView `json:"view"`
}

type CommandTogglePause struct{}

type CommandStartReload struct {
	Index int `json:"index"`
}

type CommandLaunchTorpedo struct {
	Index int `json:"index"`
}

func (UpdateAcknowledge) CommandType() string         { return TypeUpdateAcknowledge }
func (CommandSpawnShip) CommandType() string          { return TypeCommandSpawnShip }
func (CommandJoinShip) CommandType() string           { return TypeCommandJoinShip }
func (CommandChangeStation) CommandType() string      { return TypeCommandChangeStation }
func (CommandExitShip) CommandType() string           { return TypeCommandExitShip }
func (CommandChangeThrottle) CommandType() string     { return TypeCommandChangeThrottle }
func (CommandChangeRudder) CommandType() string       { return TypeCommandChangeRudder }
func (CommandChangeJumpDistance) CommandType() string { return TypeCommandChangeJumpDistance }
func (CommandStartJump) CommandType() string          { return TypeCommandStartJump }
func (CommandSetPower) CommandType() string           { return TypeCommandSetPower }
func (CommandSetCoolant) CommandType() string         { return TypeCommandSetCoolant }
func (CommandRepair) CommandType() string             { return TypeCommandRepair }
func (CommandLockTarget) CommandType() string         { return TypeCommandLockTarget }
func (CommandScanShip) CommandType() string           { return TypeCommandScanShip }
func (CommandAdjustScan) CommandType() string         { return TypeCommandAdjustScan }
func (CommandAddWaypoint) CommandType() string        { return TypeCommandAddWaypoint }
func (CommandDeleteWaypoint) CommandType() string     { return TypeCommandDeleteWaypoint }
func (CommandMapSelectShip) CommandType() string      { return TypeCommandMapSelectShip }
func (CommandMapSelectWaypoint) CommandType() string  { return TypeCommandMapSelectWaypoint }
func (CommandMapClearSelection) CommandType() string  { return TypeCommandMapClearSelection }
func (CommandToggleShieldsUp) CommandType() string    { return TypeCommandToggleShieldsUp }
func (CommandMainScreenView) CommandType() string     { return TypeCommandMainScreenView }
func (CommandTogglePause) CommandType() string        { return TypeCommandTogglePause }
func (CommandStartReload) CommandType() string        { return TypeCommandStartReload }
func (CommandLaunchTorpedo) CommandType() string      { return TypeCommandLaunchTorpedo }

// DecodeCommand converts a raw websocket payload into its command variant.
// Both error sentinels are terminal for the connection.
func DecodeCommand(payload []byte) (Command, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch envelope.Type {
	case TypeUpdateAcknowledge:
		return decodeAs[UpdateAcknowledge](envelope.Type, payload)
	case TypeCommandSpawnShip:
		return decodeAs[CommandSpawnShip](envelope.Type, payload)
	case TypeCommandJoinShip:
		return decodeAs[CommandJoinShip](envelope.Type, payload)
	case TypeCommandChangeStation:
		return decodeAs[CommandChangeStation](envelope.Type, payload)
	case TypeCommandExitShip:
		return decodeAs[CommandExitShip](envelope.Type, payload)
	case TypeCommandChangeThrottle:
		return decodeAs[CommandChangeThrottle](envelope.Type, payload)
	case TypeCommandChangeRudder:
		return decodeAs[CommandChangeRudder](envelope.Type, payload)
	case TypeCommandChangeJumpDistance:
		return decodeAs[CommandChangeJumpDistance](envelope.Type, payload)
	case TypeCommandStartJump:
		return decodeAs[CommandStartJump](envelope.Type, payload)
	case TypeCommandSetPower:
		return decodeAs[CommandSetPower](envelope.Type, payload)
	case TypeCommandSetCoolant:
		return decodeAs[CommandSetCoolant](envelope.Type, payload)
	case TypeCommandRepair:
		return decodeAs[CommandRepair](envelope.Type, payload)
	case TypeCommandLockTarget:
		return decodeAs[CommandLockTarget](envelope.Type, payload)
	case TypeCommandScanShip:
		return decodeAs[CommandScanShip](envelope.Type, payload)
	case TypeCommandAdjustScan:
		return decodeAs[CommandAdjustScan](envelope.Type, payload)
	case TypeCommandAddWaypoint:
		return decodeAs[CommandAddWaypoint](envelope.Type, payload)
	case TypeCommandDeleteWaypoint:
		return decodeAs[CommandDeleteWaypoint](envelope.Type, payload)
	case TypeCommandMapSelectShip:
		return decodeAs[CommandMapSelectShip](envelope.Type, payload)
	case TypeCommandMapSelectWaypoint:
		return decodeAs[CommandMapSelectWaypoint](envelope.Type, payload)
	case TypeCommandMapClearSelection:
		return decodeAs[CommandMapClearSelection](envelope.Type, payload)
	case TypeCommandToggleShieldsUp:
		return decodeAs[CommandToggleShieldsUp](envelope.Type, payload)
	case TypeCommandMainScreenView:
		return decodeAs[CommandMainScreenView](envelope.Type, payload)
	case TypeCommandTogglePause:
		return decodeAs[CommandTogglePause](envelope.Type, payload)
	case TypeCommandStartReload:
		return decodeAs[CommandStartReload](envelope.Type, payload)
	case TypeCommandLaunchTorpedo:
		return decodeAs[CommandLaunchTorpedo](envelope.Type, payload)
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, envelope.Type)
	}
}

func decodeAs[T Command](typ string, payload []byte) (Command, error) {
	var cmd T
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, typ, err)
	}
	return cmd, nil
}

// EncodeCommand renders a command with its type discriminant. Used by
// test clients and tooling.
func EncodeCommand(cmd Command) ([]byte, error) {
	return tagged(cmd.CommandType(), cmd)
}
