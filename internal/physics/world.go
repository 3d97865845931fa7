package physics

import (
	"fmt"
	"math"
	"sort"

	"github.com/solarlune/resolv"

	"bridgesim/server/internal/geom"
	"bridgesim/server/internal/ids"
)

// Config sizes the broad-phase grid. The grid is a square of side Extent
// that follows the bodies: it is re-centred on their bounding box whenever
// one leaves it. Bodies that still fall outside are checked by brute force.
type Config struct {
	Extent   float64
	CellSize float64
}

// DefaultConfig matches the default settings file.
func DefaultConfig() Config {
	return Config{Extent: 40000, CellSize: 500}
}

type body struct {
	id      ids.ObjectID
	spec    Body
	pose    Pose
	thrust  float64
	torque  float64
	object  *resolv.Object
	inverse float64
}

// World implements Engine.
type World struct {
	cfg    Config
	space  *resolv.Space
	origin geom.Vector2
	bodies map[ids.ObjectID]*body
	order  []ids.ObjectID


	// outside holds bodies not fully covered by the grid.
	outside map[ids.ObjectID]*body
}

var _ Engine = (*World)(nil)

func NewWorld(cfg Config) *World {
	if cfg.Extent <= 0 || cfg.CellSize <= 0 {
		cfg = DefaultConfig()
	}
	cells := int(math.Ceil(cfg.Extent))
	cell := int(math.Ceil(cfg.CellSize))
	return &World{
		cfg:     cfg,
		space:   resolv.NewSpace(cells, cells, cell, cell),
		bodies:  make(map[ids.ObjectID]*body),
		outside: make(map[ids.ObjectID]*body),
	}
}

func (w *World) AddBody(id ids.ObjectID, spec Body, pose Pose) error {
	if _, exists := w.bodies[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateBody, id)
	}
	if spec.Mass <= 0 {
		spec.Mass = 1
	}
	size := spec.Radius * 2
	b := &body{
		id:     id,
		spec:   spec,
		pose:   pose,
		object: resolv.NewObject(0, 0, size, size, string(spec.Kind)),
	}
	if !spec.Static {
		b.inverse = 1 / spec.Mass
	}
	b.object.Data = id
	w.space.Add(b.object)
	w.place(b)
	w.bodies[id] = b
	w.order = append(w.order, id)
	return nil
}

func (w *World) RemoveBody(id ids.ObjectID) {
	b, ok := w.bodies[id]
	if !ok {
		return
	}
	w.space.Remove(b.object)
	delete(w.bodies, id)
	delete(w.outside, id)
	for i, other := range w.order {
		if other == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

func (w *World) BodyCount() int { return len(w.bodies) }

// ApplyControl sets the forward thrust and torque held until the next call.
func (w *World) ApplyControl(id ids.ObjectID, thrust, torque float64) {
	if b, ok := w.bodies[id]; ok {
		b.thrust = thrust
		b.torque = torque
	}
}

// Teleport moves a body along its current heading. Velocity is kept.
func (w *World) Teleport(id ids.ObjectID, distance float64) {
	b, ok := w.bodies[id]
	if !ok {
		return
	}
	b.pose.Position = b.pose.Position.Add(b.pose.Heading().Scale(distance))
	w.place(b)
}

func (w *World) Pose(id ids.ObjectID) (Pose, bool) {
	b, ok := w.bodies[id]
	if !ok {
		return Pose{}, false
	}
	return b.pose, true
}

func (w *World) SetPose(id ids.ObjectID, pose Pose) error {
	b, ok := w.bodies[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBody, id)
	}
	b.pose = pose
	w.place(b)
	return nil
}

// Step integrates every body and then separates overlapping solids.
func (w *World) Step(delta float64) {
	if delta <= 0 {
		return
	}
	for _, id := range w.order {
		w.integrate(w.bodies[id], delta)
	}
	w.recenter()
	for _, id := range w.order {
		w.separate(w.bodies[id])
	}
}

func (w *World) integrate(b *body, delta float64) {
	if b.spec.Static {
		return
	}
	pose := &b.pose
	accel := pose.Heading().Scale(b.thrust * b.inverse)
	pose.Velocity = pose.Velocity.Add(accel.Scale(delta)).Scale(1 / (1 + delta*b.spec.LinearDamping))
	pose.Position = pose.Position.Add(pose.Velocity.Scale(delta))

	pose.AngularVelocity = (pose.AngularVelocity + b.torque*b.inverse*delta) / (1 + delta*b.spec.AngularDamping)
	pose.Rotation = geom.NormalizeAngle(pose.Rotation + pose.AngularVelocity*delta)
	w.place(b)
}

// separate pushes overlapping solid bodies apart along the contact normal,
// split by inverse mass, and removes the closing velocity.
func (w *World) separate(b *body) {
	if b.spec.Sensor {
		return
	}
	for _, other := range w.candidates(b) {
		if other.spec.Sensor || other.id <= b.id {
			continue
		}
		normal := other.pose.Position.Sub(b.pose.Position)
		distance := normal.Length()
		overlap := b.spec.Radius + other.spec.Radius - distance
		total := b.inverse + other.inverse
		if overlap <= 0 || total == 0 {
			continue
		}
		if distance == 0 {
			normal = geom.Vec(1, 0)
		} else {
			normal = normal.Scale(1 / distance)
		}
		b.pose.Position = b.pose.Position.Sub(normal.Scale(overlap * b.inverse / total))
		other.pose.Position = other.pose.Position.Add(normal.Scale(overlap * other.inverse / total))

		closing := other.pose.Velocity.Sub(b.pose.Velocity).Dot(normal)
		if closing < 0 {
			impulse := normal.Scale(closing / total)
			b.pose.Velocity = b.pose.Velocity.Add(impulse.Scale(b.inverse))
			other.pose.Velocity = other.pose.Velocity.Sub(impulse.Scale(other.inverse))
		}
		w.place(b)
		w.place(other)
	}
}

// Overlapping returns the bodies whose circles intersect id's, ordered by id.
func (w *World) Overlapping(id ids.ObjectID) []ids.ObjectID {
	b, ok := w.bodies[id]
	if !ok {
		return nil
	}
	var out []ids.ObjectID
	for _, other := range w.candidates(b) {
		reach := b.spec.Radius + other.spec.Radius
		if b.pose.Position.Distance(other.pose.Position) < reach {
			out = append(out, other.id)
		}
	}
	return out
}

// RaycastObstructions returns the bodies the segment from..to passes
// through, nearest first, skipping ignored ids.
func (w *World) RaycastObstructions(from, to geom.Vector2, ignore ...ids.ObjectID) []ids.ObjectID {
	skip := make(map[ids.ObjectID]struct{}, len(ignore))
	for _, id := range ignore {
		skip[id] = struct{}{}
	}

	type hit struct {
		id       ids.ObjectID
		distance float64
	}
	var hits []hit
	for _, other := range w.segmentCandidates(from, to) {
		if _, ignored := skip[other.id]; ignored {
			continue
		}
		if geom.SegmentDistance(other.pose.Position, from, to) <= other.spec.Radius {
			hits = append(hits, hit{id: other.id, distance: from.Distance(other.pose.Position)})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].distance == hits[j].distance {
			return hits[i].id < hits[j].id
		}
		return hits[i].distance < hits[j].distance
	})
	out := make([]ids.ObjectID, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.id)
	}
	return out
}

// candidates returns the broad-phase neighbours of b, ordered by id. A body
// the grid does not cover is compared against every other body.
func (w *World) candidates(b *body) []*body {
	if _, out := w.outside[b.id]; out {
		return w.everyBodyExcept(b.id)
	}
	return w.collect(b.object.Check(0, 0), b.id)
}

// segmentCandidates returns the bodies that may touch the segment from..to.
func (w *World) segmentCandidates(from, to geom.Vector2) []*body {
	if !w.covers(from, 0) || !w.covers(to, 0) {
		return w.everyBodyExcept("")
	}
	minX, maxX := math.Min(from.X, to.X), math.Max(from.X, to.X)
	minY, maxY := math.Min(from.Y, to.Y), math.Max(from.Y, to.Y)
	half := w.cfg.Extent / 2
	probe := resolv.NewObject(minX-w.origin.X+half, minY-w.origin.Y+half, math.Max(maxX-minX, 1), math.Max(maxY-minY, 1))
	w.space.Add(probe)
	defer w.space.Remove(probe)
	return w.collect(probe.Check(0, 0), "")
}

// collect resolves a broad-phase result to bodies and adds the bodies the
// grid does not cover.
func (w *World) collect(collision *resolv.Collision, self ids.ObjectID) []*body {
	seen := make(map[ids.ObjectID]struct{})
	var out []*body
	add := func(other *body) {
		if other.id == self {
			return
		}
		if _, dup := seen[other.id]; dup {
			return
		}
		seen[other.id] = struct{}{}
		out = append(out, other)
	}
	if collision != nil {
		for _, object := range collision.Objects {
			id, ok := object.Data.(ids.ObjectID)
			if !ok {
				continue
			}
			if other, ok := w.bodies[id]; ok {
				add(other)
			}
		}
	}
	for _, other := range w.outside {
		add(other)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (w *World) everyBodyExcept(self ids.ObjectID) []*body {
	out := make([]*body, 0, len(w.order))
	for _, id := range w.order {
		if id != self {
			out = append(out, w.bodies[id])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// covers reports whether a circle lies entirely inside the grid.
func (w *World) covers(position geom.Vector2, radius float64) bool {
	half := w.cfg.Extent / 2
	return math.Abs(position.X-w.origin.X)+radius < half &&
		math.Abs(position.Y-w.origin.Y)+radius < half
}

// recenter moves the grid onto the centre of the bodies' bounding box once
// any body has left it.
func (w *World) recenter() {
	if len(w.outside) == 0 || len(w.order) == 0 {
		return
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, id := range w.order {
		b := w.bodies[id]
		minX = math.Min(minX, b.pose.Position.X-b.spec.Radius)
		minY = math.Min(minY, b.pose.Position.Y-b.spec.Radius)
		maxX = math.Max(maxX, b.pose.Position.X+b.spec.Radius)
		maxY = math.Max(maxY, b.pose.Position.Y+b.spec.Radius)
	}
	center := geom.Vec((minX+maxX)/2, (minY+maxY)/2)
	if center == w.origin {
		return
	}
	w.origin = center
	for _, id := range w.order {
		w.place(w.bodies[id])
	}
}

// place syncs the broad-phase object with the body's pose. The grid has no
// negative cells, so positions are taken relative to the grid's lower
// corner.
func (w *World) place(b *body) {
	half := w.cfg.Extent / 2
	b.object.X = b.pose.Position.X - w.origin.X - b.spec.Radius + half
	b.object.Y = b.pose.Position.Y - w.origin.Y - b.spec.Radius + half
	b.object.Update()
	if w.covers(b.pose.Position, b.spec.Radius) {
		delete(w.outside, b.id)
	} else {
		w.outside[b.id] = b
	}
}
