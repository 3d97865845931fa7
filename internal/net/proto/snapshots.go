// Package proto defines the JSON wire contract between the server and the
// browser stations.
package proto

import (
	"bytes"
	"encoding/json"
	"fmt"

	"bridgesim/server/internal/geom"
	"bridgesim/server/internal/ids"
)

// Station is a bridge role a client can take inside a ship.
type Station string

const (
	StationHelm        Station = "Helm"
	StationWeapons     Station = "Weapons"
	StationNavigation  Station = "Navigation"
	StationEngineering Station = "Engineering"
	StationMainScreen  Station = "MainScreen"
)

// Valid reports whether s names a known station.
func (s Station) Valid() bool {
	switch s {
	case StationHelm, StationWeapons, StationNavigation, StationEngineering, StationMainScreen:
		return true
	}
	return false
}

// MainScreenView selects what the main screen renders.
type MainScreenView string

const (
	ViewMain3d          MainScreenView = "Main3d"
	ViewShortRangeScope MainScreenView = "ShortRangeScope"
)

// ContactType is how an observing ship classifies a contact.
type ContactType string

const (
	ContactUnknown  ContactType = "Unknown"
	ContactFriendly ContactType = "Friendly"
	ContactEnemy    ContactType = "Enemy"
	ContactNeutral  ContactType = "Neutral"
)

// Snapshot type identifiers.
const (
	TypeShipSelection             = "ShipSelection"
	TypeShipDestroyed             = "ShipDestroyed"
	TypeHelm                      = "Helm"
	TypeWeapons                   = "Weapons"
	TypeNavigation                = "Navigation"
	TypeEngineering               = "Engineering"
	TypeMainScreen3d              = "MainScreen3d"
	TypeMainScreenShortRangeScope = "MainScreenShortRangeScope"
)

// Snapshot is a station-specific projection of the world.
type Snapshot interface {
	SnapshotType() string
}

// Frame is the server to client envelope.
type Frame struct {
	Counter  int64    `json:"counter"`
	Snapshot Snapshot `json:"snapshot"`
}

// EncodeFrame renders a frame payload.
func EncodeFrame(counter int64, snapshot Snapshot) ([]byte, error) {
	return json.Marshal(Frame{Counter: counter, Snapshot: snapshot})
}

// EncodeSnapshot renders a snapshot on its own. The session compares these
// bytes to skip sending unchanged views.
func EncodeSnapshot(snapshot Snapshot) ([]byte, error) {
	return json.Marshal(snapshot)
}

// Contact is another entity as perceived by the observing ship. Fields past
// Heading are only populated once a scan reveals them.
type Contact struct {
	ID            ids.ObjectID       `json:"id"`
	ContactType   ContactType        `json:"contactType"`
	Position      geom.Vector2       `json:"position"`
	Rotation      float64            `json:"rotation"`
	Heading       float64            `json:"heading"`
	Speed         float64            `json:"speed"`
	Distance      float64            `json:"distance"`
	Bearing       float64            `json:"bearing"`
	InSensorRange bool               `json:"inSensorRange"`
	ScanLevel     string             `json:"scanLevel"`
	Designation   string             `json:"designation,omitempty"`
	ClassName     string             `json:"className,omitempty"`
	Faction       string             `json:"faction,omitempty"`
	HullPercent   *float64           `json:"hullPercent,omitempty"`
	ShieldPercent *float64           `json:"shieldPercent,omitempty"`
	ShieldsUp     *bool              `json:"shieldsUp,omitempty"`
	SystemDamage  map[string]float64 `json:"systemDamage,omitempty"`
}

type Asteroid struct {
	ID       ids.ObjectID `json:"id"`
	Position geom.Vector2 `json:"position"`
	Rotation float64      `json:"rotation"`
	Radius   float64      `json:"radius"`
	Distance float64      `json:"distance"`
}

type Torpedo struct {
	ID       ids.ObjectID `json:"id"`
	Position geom.Vector2 `json:"position"`
	Rotation float64      `json:"rotation"`
	Faction  string       `json:"faction"`
}

type Waypoint struct {
	Index    int          `json:"index"`
	Position geom.Vector2 `json:"position"`
	Distance float64      `json:"distance"`
	Bearing  float64      `json:"bearing"`
}

// MapSelection mirrors the navigation selection. Kind is None, Waypoint or
// Ship.
type MapSelection struct {
	Kind     string       `json:"kind"`
	Index    *int         `json:"index,omitempty"`
	TargetID ids.ObjectID `json:"targetId,omitempty"`
}

// ShipStatus is the common own-ship block shown on most stations.
type ShipStatus struct {
	ID          ids.ObjectID `json:"id"`
	Designation string       `json:"designation"`
	ClassName   string       `json:"className"`
	Position    geom.Vector2 `json:"position"`
	Rotation    float64      `json:"rotation"`
	Heading     float64      `json:"heading"`
	Speed       float64      `json:"speed"`
	Hull        float64      `json:"hull"`
	HullMax     float64      `json:"hullMax"`
	ShieldsUp   bool         `json:"shieldsUp"`
	Shields     float64      `json:"shields"`
	ShieldsMax  float64      `json:"shieldsMax"`
}

type SelectableShip struct {
	ID          ids.ObjectID `json:"id"`
	Designation string       `json:"designation"`
	ClassName   string       `json:"className"`
	Faction     string       `json:"faction"`
}

type ShipSelection struct {
	Ships  []SelectableShip `json:"ships"`
	Paused bool             `json:"paused"`
}

type ShipDestroyed struct{}

type Jump struct {
	State         string  `json:"state"`
	Progress      float64 `json:"progress"`
	Distance      float64 `json:"distance"`
	DistanceRatio float64 `json:"distanceRatio"`
	MinDistance   int     `json:"minDistance"`
	MaxDistance   int     `json:"maxDistance"`
}

type Helm struct {
	Ship         ShipStatus `json:"ship"`
	Throttle     int        `json:"throttle"`
	ActualThrust float64    `json:"actualThrust"`
	Rudder       int        `json:"rudder"`
	Jump         Jump       `json:"jump"`
	Contacts     []Contact  `json:"contacts"`
	Asteroids    []Asteroid `json:"asteroids"`
	Waypoints    []Waypoint `json:"waypoints"`
	Paused       bool       `json:"paused"`
}

type Lock struct {
	TargetID ids.ObjectID `json:"targetId,omitempty"`
	Progress float64      `json:"progress"`
	Complete bool         `json:"complete"`
}

type Beam struct {
	Name     string  `json:"name"`
	State    string  `json:"state"`
	Progress float64 `json:"progress"`
	LeftArc  float64 `json:"leftArc"`
	RightArc float64 `json:"rightArc"`
	MinRange float64 `json:"minRange"`
	MaxRange float64 `json:"maxRange"`
}

type Tube struct {
	Index    int     `json:"index"`
	State    string  `json:"state"`
	Progress float64 `json:"progress"`
}

type Weapons struct {
	Ship        ShipStatus `json:"ship"`
	Lock        Lock       `json:"lock"`
	Beams       []Beam     `json:"beams"`
	Tubes       []Tube     `json:"tubes"`
	Magazine    int        `json:"magazine"`
	MagazineMax int        `json:"magazineMax"`
	Contacts    []Contact  `json:"contacts"`
	Asteroids   []Asteroid `json:"asteroids"`
	Torpedoes   []Torpedo  `json:"torpedoes"`
	Paused      bool       `json:"paused"`
}

type Scan struct {
	TargetID ids.ObjectID `json:"targetId"`
	Progress float64      `json:"progress"`
	Inputs   []float64    `json:"inputs"`
	Signals  []float64    `json:"signals"`
}

type Navigation struct {
	Ship         ShipStatus   `json:"ship"`
	SensorRange  float64      `json:"sensorRange"`
	Contacts     []Contact    `json:"contacts"`
	Asteroids    []Asteroid   `json:"asteroids"`
	Waypoints    []Waypoint   `json:"waypoints"`
	MapSelection MapSelection `json:"mapSelection"`
	Scan         *Scan        `json:"scan,omitempty"`
	Paused       bool         `json:"paused"`
}

type PoweredSystem struct {
	Type    string  `json:"type"`
	Level   int     `json:"level"`
	Heat    float64 `json:"heat"`
	Coolant float64 `json:"coolant"`
	Damage  float64 `json:"damage"`
	Boost   float64 `json:"boost"`
}

type Repair struct {
	SystemType string  `json:"systemType"`
	Progress   float64 `json:"progress"`
}

type Engineering struct {
	Ship            ShipStatus      `json:"ship"`
	Systems         []PoweredSystem `json:"systems"`
	CoolantCapacity float64         `json:"coolantCapacity"`
	CoolantUsed     float64         `json:"coolantUsed"`
	Repair          *Repair         `json:"repair,omitempty"`
	Paused          bool            `json:"paused"`
}

type MainScreen3d struct {
	Ship      ShipStatus `json:"ship"`
	Contacts  []Contact  `json:"contacts"`
	Asteroids []Asteroid `json:"asteroids"`
	Torpedoes []Torpedo  `json:"torpedoes"`
	Paused    bool       `json:"paused"`
}

type MainScreenShortRangeScope struct {
	Ship      ShipStatus     `json:"ship"`
	Range     float64        `json:"range"`
	Contacts  []Contact      `json:"contacts"`
	Asteroids []Asteroid     `json:"asteroids"`
	Torpedoes []Torpedo      `json:"torpedoes"`
	Waypoints []Waypoint     `json:"waypoints"`
	Trail     []geom.Vector2 `json:"trail"`
	Paused    bool           `json:"paused"`
}

func (ShipSelection) SnapshotType() string             { return TypeShipSelection }
func (ShipDestroyed) SnapshotType() string             { return TypeShipDestroyed }
func (Helm) SnapshotType() string                      { return TypeHelm }
func (Weapons) SnapshotType() string                   { return TypeWeapons }
func (Navigation) SnapshotType() string                { return TypeNavigation }
func (Engineering) SnapshotType() string               { return TypeEngineering }
func (MainScreen3d) SnapshotType() string              { return TypeMainScreen3d }
func (MainScreenShortRangeScope) SnapshotType() string { return TypeMainScreenShortRangeScope }

func (s ShipSelection) MarshalJSON() ([]byte, error) {
	type plain ShipSelection
	return tagged(TypeShipSelection, plain(s))
}

func (s ShipDestroyed) MarshalJSON() ([]byte, error) {
	type plain ShipDestroyed
	return tagged(TypeShipDestroyed, plain(s))
}

func (s Helm) MarshalJSON() ([]byte, error) {
	type plain Helm
	return tagged(TypeHelm, plain(s))
}

func (s Weapons) MarshalJSON() ([]byte, error) {
	type plain Weapons
	return tagged(TypeWeapons, plain(s))
}

func (s Navigation) MarshalJSON() ([]byte, error) {
	type plain Navigation
	return tagged(TypeNavigation, plain(s))
}

func (s Engineering) MarshalJSON() ([]byte, error) {
	type plain Engineering
	return tagged(TypeEngineering, plain(s))
}

func (s MainScreen3d) MarshalJSON() ([]byte, error) {
	type plain MainScreen3d
	return tagged(TypeMainScreen3d, plain(s))
}

func (s MainScreenShortRangeScope) MarshalJSON() ([]byte, error) {
	type plain MainScreenShortRangeScope
	return tagged(TypeMainScreenShortRangeScope, plain(s))
}

// DecodeFrame parses a server frame. Used by test clients.
func DecodeFrame(payload []byte) (int64, Snapshot, error) {
	var raw struct {
		Counter  int64           `json:"counter"`
		Snapshot json.RawMessage `json:"snapshot"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	snapshot, err := DecodeSnapshot(raw.Snapshot)
	return raw.Counter, snapshot, err
}

// DecodeSnapshot parses a tagged snapshot.
func DecodeSnapshot(payload []byte) (Snapshot, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch envelope.Type {
	case TypeShipSelection:
		return decodeSnapshotAs[ShipSelection](payload)
	case TypeShipDestroyed:
		return ShipDestroyed{}, nil
	case TypeHelm:
		return decodeSnapshotAs[Helm](payload)
	case TypeWeapons:
		return decodeSnapshotAs[Weapons](payload)
	case TypeNavigation:
		return decodeSnapshotAs[Navigation](payload)
	case TypeEngineering:
		return decodeSnapshotAs[Engineering](payload)
	case TypeMainScreen3d:
		return decodeSnapshotAs[MainScreen3d](payload)
	case TypeMainScreenShortRangeScope:
		return decodeSnapshotAs[MainScreenShortRangeScope](payload)
	default:
		return nil, fmt.Errorf("proto: unknown snapshot type %q", envelope.Type)
	}
}

func decodeSnapshotAs[T Snapshot](payload []byte) (Snapshot, error) {
	var snapshot T
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return snapshot, nil
}

// tagged marshals v and prepends the "type" discriminant to the object.
func tagged(typ string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("proto: %s does not encode as an object", typ)
	}
	name, err := json.Marshal(typ)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(len(body) + len(name) + 10)
	buf.WriteString(`{"type":`)
	buf.Write(name)
	if !bytes.Equal(body, []byte("{}")) {
		buf.WriteByte(',')
	}
	buf.Write(body[1:])
	return buf.Bytes(), nil
}
