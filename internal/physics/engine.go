// Package physics is the rigid-body world the simulation drives. Bodies are
// circles integrated with damped thrust and torque; broad-phase queries run
// through a resolv spatial grid.
package physics

import (
	"errors"

	"bridgesim/server/internal/geom"
	"bridgesim/server/internal/ids"
)

var (
	ErrDuplicateBody = errors.New("physics: body already exists")
	ErrUnknownBody   = errors.New("physics: unknown body")
)

// Kind tags a body for broad-phase filtering.
type Kind string

const (
	KindShip     Kind = "ship"
	KindAsteroid Kind = "asteroid"
	KindTorpedo  Kind = "torpedo"
)

// Body is the static description of a rigid body.
type Body struct {
	Kind           Kind
	Radius         float64
	Mass           float64 // defaults to 1
	LinearDamping  float64
	AngularDamping float64
	// Sensor bodies report overlaps but receive no collision response.
	Sensor bool
	// Static bodies never move from collisions.
	Static bool
}

// Pose is the dynamic state of a body.
type Pose struct {
	Position        geom.Vector2
	Rotation        float64 // radians, counter-clockwise from +X
	Velocity        geom.Vector2
	AngularVelocity float64
}

// Heading returns the unit vector the body faces.
func (p Pose) Heading() geom.Vector2 {
	return geom.FromAngle(p.Rotation)
}

// Engine is the narrow contract the simulation uses. Implementations are
// driven from a single goroutine and need no synchronization.
type Engine interface {
	AddBody(id ids.ObjectID, body Body, pose Pose) error
	RemoveBody(id ids.ObjectID)
	Step(delta float64)
	ApplyControl(id ids.ObjectID, thrust, torque float64)
	Teleport(id ids.ObjectID, distance float64)
	Pose(id ids.ObjectID) (Pose, bool)
	SetPose(id ids.ObjectID, pose Pose) error
	RaycastObstructions(from, to geom.Vector2, ignore ...ids.ObjectID) []ids.ObjectID
	Overlapping(id ids.ObjectID) []ids.ObjectID
	BodyCount() int
}
