// Package ship composes the subsystem handlers into player and NPC ships.
package ship

import (
	"math/rand"

	"bridgesim/server/internal/geom"
	"bridgesim/server/internal/ids"
	"bridgesim/server/internal/physics"
	"bridgesim/server/internal/sim"
	"bridgesim/server/internal/template"
)

// Ship is the behaviour GameState drives every tick.
type Ship interface {
	ID() ids.ObjectID
	Designation() string
	Template() *template.ShipTemplate
	Faction() template.Faction
	Pose() physics.Pose
	Body() physics.Body
	Hull() float64
	Destroyed() bool
	Observation() Observation

	SyncPose(engine physics.Engine)
	Update(ctx *UpdateContext)
	ApplyDamage(amount float64)
	TargetDestroyed(id ids.ObjectID)

	TakeDamage() []Damage
	TakeLaunches() []Launch
	TakeEvents() []Event
}

// UpdateContext is the world as seen by ships during one tick.
type UpdateContext struct {
	Time         *sim.GameTime
	Physics      physics.Engine
	Observations []Observation
}

// Damage is beam damage dealt this tick, applied by the world at end of tick.
type Damage struct {
	Source ids.ObjectID
	Target ids.ObjectID
	Amount float64
}

// Launch is a torpedo fired this tick.
type Launch struct {
	Shooter ids.ObjectID
	Faction template.Faction
	Tube    int
	Pose    physics.Pose
	Target  ids.ObjectID
	Spec    template.Torpedo
}

// EventKind names a gameplay milestone reported by a ship.
type EventKind string

const (
	EventJumpCompleted EventKind = "jump_completed"
	EventScanCompleted EventKind = "scan_completed"
	EventLockAcquired  EventKind = "lock_acquired"
)

type Event struct {
	Kind   EventKind
	Target ids.ObjectID
	Detail string
}

// core is the handler composition shared by player and NPC ships.
type core struct {
	id          ids.ObjectID
	designation string
	tmpl        *template.ShipTemplate
	faction     template.Faction
	rng         *rand.Rand

	pose physics.Pose
	hull float64

	throttle *sim.ThrottleHandler
	rudder   int
	jump     *sim.JumpHandler
	shields  *sim.ShieldHandler
	power    *sim.PowerHandler
	beams    []*sim.BeamHandler
	tubes    *sim.TubeHandlerContainer
	lock     *sim.LockHandler
	scan     *sim.ScanHandler
	scans    map[ids.ObjectID]sim.ScanLevel
	history  *History

	contacts *ContactList

	damage   []Damage
	launches []Launch
	events   []Event
}

const (
	MinRudder = -100
	MaxRudder = 100

	steeringGain = 2.0
)

func newCore(id ids.ObjectID, designation string, tmpl *template.ShipTemplate, faction template.Faction, pose physics.Pose, rng *rand.Rand) core {
	beams := make([]*sim.BeamHandler, 0, len(tmpl.Beams))
	for _, mount := range tmpl.Beams {
		beams = append(beams, sim.NewBeamHandler(mount))
	}
	return core{
		id:          id,
		designation: designation,
		tmpl:        tmpl,
		faction:     faction,
		rng:         rng,
		pose:        pose,
		hull:        tmpl.Hull,
		throttle:    sim.NewThrottleHandler(tmpl.ThrottleResponsiveness),
		jump:        sim.NewJumpHandler(tmpl.JumpDrive),
		shields:     sim.NewShieldHandler(tmpl.Shields),
		power:       sim.NewPowerHandler(tmpl.Reactor),
		beams:       beams,
		tubes:       sim.NewTubeHandlerContainer(tmpl.Tubes, tmpl.Magazine),
		lock:        sim.NewLockHandler(tmpl.LockingSpeed),
		scans:       make(map[ids.ObjectID]sim.ScanLevel),
		history:     NewHistory(DefaultHistoryLength, DefaultHistoryInterval),
		contacts:    emptyContacts(),
	}
}

func (c *core) ID() ids.ObjectID                 { return c.id }
func (c *core) Designation() string              { return c.designation }
func (c *core) Template() *template.ShipTemplate { return c.tmpl }
func (c *core) Faction() template.Faction        { return c.faction }
func (c *core) Pose() physics.Pose               { return c.pose }
func (c *core) Hull() float64                    { return c.hull }

// Destroyed reports a hull at or below zero. The world removes destroyed
// ships at end of tick.
func (c *core) Destroyed() bool { return c.hull <= 0 }

func (c *core) Contacts() *ContactList { return c.contacts }

func (c *core) Body() physics.Body {
	return physics.Body{
		Kind:           physics.KindShip,
		Radius:         c.tmpl.Radius,
		LinearDamping:  c.tmpl.LinearDamping,
		AngularDamping: c.tmpl.AngularDamping,
	}
}

func (c *core) Throttle() *sim.ThrottleHandler { return c.throttle }
func (c *core) Jump() *sim.JumpHandler         { return c.jump }
func (c *core) Shields() *sim.ShieldHandler    { return c.shields }
func (c *core) Power() *sim.PowerHandler       { return c.power }
func (c *core) Beams() []*sim.BeamHandler      { return c.beams }
func (c *core) Tubes() *sim.TubeHandlerContainer {
	return c.tubes
}
func (c *core) Lock() *sim.LockHandler { return c.lock }
func (c *core) Rudder() int            { return c.rudder }

// ScanLevel returns what this ship knows about target.
func (c *core) ScanLevel(target ids.ObjectID) sim.ScanLevel {
	if level, ok := c.scans[target]; ok {
		return level
	}
	return sim.ScanNone
}

// ActiveScan returns the running scan, if any.
func (c *core) ActiveScan() (*sim.ScanHandler, bool) {
	return c.scan, c.scan != nil
}

func (c *core) Observation() Observation {
	damage := make(map[string]float64, len(sim.PoweredSystems))
	for _, system := range c.power.Systems() {
		damage[string(system.Type)] = system.Damage
	}
	return Observation{
		ID:            c.id,
		Kind:          physics.KindShip,
		Position:      c.pose.Position,
		Rotation:      c.pose.Rotation,
		Velocity:      c.pose.Velocity,
		Radius:        c.tmpl.Radius,
		Faction:       c.faction,
		Designation:   c.designation,
		ClassName:     c.tmpl.ClassName,
		HullPercent:   percent(c.hull, c.tmpl.Hull),
		ShieldPercent: percent(c.shields.Strength(), c.shields.Max()),
		ShieldsUp:     c.shields.Up(),
		SystemDamage:  damage,
	}
}

func percent(value, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return geom.Clamp(value/max*100, 0, 100)
}

// ChangeThrottle is ignored while jumping.
func (c *core) ChangeThrottle(value int) {
	if c.jump.Jumping() {
		return
	}
	c.throttle.Request(value)
}

// ChangeRudder is ignored while jumping.
func (c *core) ChangeRudder(value int) {
	if c.jump.Jumping() {
		return
	}
	c.rudder = geom.ClampInt(value, MinRudder, MaxRudder)
}

func (c *core) ChangeJumpDistance(ratio float64) { c.jump.ChangeDistance(ratio) }

func (c *core) StartJump() bool { return c.jump.StartJump() }

func (c *core) SetPower(system string, level int) {
	c.power.SetPower(sim.PoweredSystemType(system), level)
}

func (c *core) SetCoolant(system string, coolant float64) {
	c.power.SetCoolant(sim.PoweredSystemType(system), coolant)
}

func (c *core) Repair(system string) bool {
	return c.power.StartRepair(sim.PoweredSystemType(system))
}

func (c *core) ToggleShieldsUp() { c.shields.Toggle() }

// LockTarget starts a weapons lock on a ship currently in sensor range.
func (c *core) LockTarget(target ids.ObjectID) bool {
	if _, ok := c.contacts.Sensed(target); !ok {
		return false
	}
	c.lock.SetTarget(target)
	return true
}

// ScanShip starts a scan on a sensed ship that is not fully scanned. A scan
// already running on the same target keeps its progress.
func (c *core) ScanShip(target ids.ObjectID) bool {
	if _, ok := c.contacts.Sensed(target); !ok {
		return false
	}
	if c.ScanLevel(target) == sim.ScanDetailed {
		return false
	}
	if c.scan != nil && c.scan.Target() == target {
		return true
	}
	c.scan = sim.NewScanHandler(target, c.tmpl.Scan, c.rng)
	return true
}

func (c *core) AdjustScan(index int, value float64) {
	if c.scan != nil {
		c.scan.Adjust(index, value)
	}
}

// SteerTowards sets the rudder to turn towards point and returns the
// relative bearing in degrees.
func (c *core) SteerTowards(point geom.Vector2) float64 {
	bearing := geom.RelativeBearing(c.pose.Position, c.pose.Rotation, point)
	c.ChangeRudder(int(-bearing * steeringGain))
	return bearing
}

func (c *core) StartReload(index int) bool { return c.tubes.StartReload(index) }

func (c *core) LaunchTorpedo(index int) bool { return c.tubes.Launch(index) }

// ApplyDamage routes damage through the shields. Whatever reaches the hull
// also damages a random system in proportion to the hull fraction lost.
func (c *core) ApplyDamage(amount float64) {
	remainder := c.shields.TakeDamage(amount)
	if remainder <= 0 {
		return
	}
	c.hull -= remainder
	if c.tmpl.Hull <= 0 || c.tmpl.Reactor.SystemDamageFactor <= 0 {
		return
	}
	system := sim.PoweredSystems[c.rng.Intn(len(sim.PoweredSystems))]
	c.power.Damage(system, remainder/c.tmpl.Hull*c.tmpl.Reactor.SystemDamageFactor)
}

// TargetDestroyed drops every reference this ship holds to id.
func (c *core) TargetDestroyed(id ids.ObjectID) {
	c.lock.TargetDestroyed(id)
	if c.scan != nil && c.scan.Target() == id {
		c.scan = nil
	}
	delete(c.scans, id)
	c.contacts.remove(id)
}

func (c *core) TakeDamage() []Damage {
	out := c.damage
	c.damage = nil
	return out
}

func (c *core) TakeLaunches() []Launch {
	out := c.launches
	c.launches = nil
	return out
}

func (c *core) TakeEvents() []Event {
	out := c.events
	c.events = nil
	return out
}

// observe refreshes the pose and rebuilds the contact list.
func (c *core) observe(ctx *UpdateContext) {
	c.SyncPose(ctx.Physics)
	c.contacts = BuildContactList(c, ctx.Observations)
}

// update runs the handlers in their fixed order: power, weapons, shields,
// jump, scan, lock, movement intent, history.
func (c *core) update(ctx *UpdateContext) {
	t := ctx.Time

	c.power.Update(t)
	c.updateWeapons(ctx)
	c.shields.Update(t, c.power.BoostLevel(sim.SystemShields))
	c.updateJump(ctx)
	c.updateScan(t)
	c.updateLock(t)
	c.updateMovement(ctx)
	c.history.Record(t, c.pose.Position)

	c.SyncPose(ctx.Physics)
}

// SyncPose pulls the body state back from the physics engine.
func (c *core) SyncPose(engine physics.Engine) {
	if pose, ok := engine.Pose(c.id); ok {
		c.pose = pose
	}
}

func (c *core) updateWeapons(ctx *UpdateContext) {
	t := ctx.Time
	boost := c.power.BoostLevel(sim.SystemWeapons)

	target, hasTarget := c.lock.Target()
	contact, sensed := c.contacts.Sensed(target)
	locked := hasTarget && sensed && c.lock.IsComplete()

	for _, beam := range c.beams {
		canFire := locked && c.hasFiringSolution(ctx.Physics, beam, contact)
		if dealt := beam.Update(t, boost, canFire); dealt > 0 {
			c.damage = append(c.damage, Damage{Source: c.id, Target: target, Amount: dealt})
		}
	}

	c.tubes.Update(t, boost)
	for _, index := range c.tubes.PendingLaunches() {
		launch := Launch{
			Shooter: c.id,
			Faction: c.faction,
			Tube:    index,
			Pose:    c.pose,
			Spec:    c.tmpl.Torpedo,
		}
		if locked {
			launch.Target = target
		}
		c.launches = append(c.launches, launch)
	}
}

// hasFiringSolution checks range and arc from the mount and a clear line of
// sight to the target.
func (c *core) hasFiringSolution(engine physics.Engine, beam *sim.BeamHandler, target Contact) bool {
	mount := beam.Mount()
	origin := c.pose.Position.Add(mount.Position.Rotate(c.pose.Rotation))
	if !beam.InRange(origin.Distance(target.Position)) {
		return false
	}
	if !beam.InArc(geom.RelativeBearing(origin, c.pose.Rotation, target.Position)) {
		return false
	}
	return len(engine.RaycastObstructions(origin, target.Position, c.id, target.ID)) == 0
}

func (c *core) updateJump(ctx *UpdateContext) {
	c.jump.Update(ctx.Time, c.power.BoostLevel(sim.SystemJump))
	if !c.jump.JumpComplete() {
		return
	}
	distance := c.jump.Distance()
	ctx.Physics.Teleport(c.id, distance)
	c.jump.EndJump()
	c.SyncPose(ctx.Physics)
	c.events = append(c.events, Event{Kind: EventJumpCompleted})
}

func (c *core) updateScan(t *sim.GameTime) {
	if c.scan == nil {
		return
	}
	target := c.scan.Target()
	if _, ok := c.contacts.Sensed(target); !ok {
		c.scan = nil
		return
	}
	c.scan.Update(t, c.power.BoostLevel(sim.SystemSensors))
	if !c.scan.IsComplete() {
		return
	}
	level := c.ScanLevel(target).Next()
	c.scans[target] = level
	c.contacts.setScanLevel(c, target, level)
	c.scan = nil
	c.events = append(c.events, Event{Kind: EventScanCompleted, Target: target, Detail: string(level)})
}

func (c *core) updateLock(t *sim.GameTime) {
	target, ok := c.lock.Target()
	if !ok {
		return
	}
	if _, sensed := c.contacts.Sensed(target); !sensed {
		c.lock.Clear()
		return
	}
	wasComplete := c.lock.IsComplete()
	c.lock.Update(t, c.power.BoostLevel(sim.SystemWeapons))
	if !wasComplete && c.lock.IsComplete() {
		c.events = append(c.events, Event{Kind: EventLockAcquired, Target: target})
	}
}

func (c *core) updateMovement(ctx *UpdateContext) {
	c.throttle.Update(ctx.Time)
	if c.jump.Jumping() {
		ctx.Physics.ApplyControl(c.id, 0, 0)
		return
	}
	thrust := c.throttle.EffectiveThrust(c.tmpl.AheadThrustFactor, c.tmpl.ReverseThrustFactor, c.power.BoostLevel(sim.SystemImpulse))
	// Positive rudder turns to starboard, which is clockwise.
	torque := -float64(c.rudder) / MaxRudder * c.tmpl.RudderFactor * c.power.BoostLevel(sim.SystemManeuver)
	ctx.Physics.ApplyControl(c.id, thrust, torque)
}
