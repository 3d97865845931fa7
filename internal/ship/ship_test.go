package ship

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridgesim/server/internal/geom"
	"bridgesim/server/internal/ids"
	"bridgesim/server/internal/net/proto"
	"bridgesim/server/internal/physics"
	"bridgesim/server/internal/sim"
	"bridgesim/server/internal/template"
)

type harness struct {
	t     *testing.T
	world *physics.World
	clock *sim.GameTime
	ships []Ship
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{t: t, world: physics.NewWorld(physics.Config{Extent: 20000, CellSize: 250}), clock: sim.FixedTime(0, 0)}
}

func (h *harness) add(s Ship) {
	h.t.Helper()
	require.NoError(h.t, h.world.AddBody(s.ID(), s.Body(), s.Pose()))
	h.ships = append(h.ships, s)
}

func (h *harness) move(s Ship, position geom.Vector2) {
	h.t.Helper()
	pose := s.Pose()
	pose.Position = position
	require.NoError(h.t, h.world.SetPose(s.ID(), pose))
}

// tick mirrors the world pipeline without a physics step: sync, observe,
// update in order, then apply queued damage.
func (h *harness) tick(delta float64) {
	h.clock.Advance(delta)
	observations := make([]Observation, 0, len(h.ships))
	for _, s := range h.ships {
		s.SyncPose(h.world)
		observations = append(observations, s.Observation())
	}
	ctx := &UpdateContext{Time: h.clock, Physics: h.world, Observations: observations}
	for _, s := range h.ships {
		s.Update(ctx)
	}
	for _, s := range h.ships {
		for _, dmg := range s.TakeDamage() {
			for _, target := range h.ships {
				if target.ID() == dmg.Target {
					target.ApplyDamage(dmg.Amount)
				}
			}
		}
	}
}

func testTemplate() *template.ShipTemplate {
	tmpl := template.Cruiser()
	tmpl.Beams = []template.BeamWeapon{{
		Name: "test", MinRange: 25, MaxRange: 200, LeftArc: 180, RightArc: 180,
		RechargeSpeed: 1, FiringSpeed: 1, Damage: 5,
	}}
	return tmpl
}

func newPlayer(id ids.ObjectID, faction template.Faction, position geom.Vector2) *PlayerShip {
	return NewPlayerShip(id, "Test-"+string(id), testTemplate(), faction, physics.Pose{Position: position}, rand.New(rand.NewSource(1)))
}

func TestBeamDamageAfterLock(t *testing.T) {
	h := newHarness(t)
	shooter := newPlayer("ship1", template.FactionFederation, geom.Zero)
	target := newPlayer("ship2", template.FactionPirates, geom.Vec(50, 0))
	h.add(shooter)
	h.add(target)

	h.tick(0.001)
	require.True(t, shooter.LockTarget("ship2"))
	h.tick(1)
	h.tick(1)
	require.True(t, shooter.Lock().IsComplete())
	require.Equal(t, target.Shields().Max(), target.Shields().Strength())

	h.tick(1)
	assert.Equal(t, target.Shields().Max()-5, target.Shields().Strength())
	assert.Equal(t, target.Template().Hull, target.Hull())

	h.move(target, geom.Vec(500, 0))
	h.tick(0.5)
	assert.Equal(t, sim.BeamRecharging, shooter.Beams()[0].State())
	assert.Empty(t, shooter.TakeDamage())
	assert.Equal(t, target.Shields().Max()-5+target.Template().Shields.RechargeSpeed*0.5, target.Shields().Strength())
}

func TestBeamLeavesFiringWhenTargetLeavesRange(t *testing.T) {
	h := newHarness(t)
	shooter := newPlayer("ship1", template.FactionFederation, geom.Zero)
	target := newPlayer("ship2", template.FactionPirates, geom.Vec(50, 0))
	h.add(shooter)
	h.add(target)

	h.tick(0.001)
	shooter.LockTarget("ship2")
	h.tick(2)
	h.tick(0.5)
	require.Equal(t, sim.BeamFiring, shooter.Beams()[0].State())

	h.move(target, geom.Vec(300, 0))
	h.tick(0.1)
	assert.Equal(t, sim.BeamRecharging, shooter.Beams()[0].State())
}

func TestBeamBlockedByObstruction(t *testing.T) {
	h := newHarness(t)
	shooter := newPlayer("ship1", template.FactionFederation, geom.Zero)
	target := newPlayer("ship2", template.FactionPirates, geom.Vec(150, 0))
	h.add(shooter)
	h.add(target)
	require.NoError(t, h.world.AddBody("rock", physics.Body{Kind: physics.KindAsteroid, Radius: 20, Static: true}, physics.Pose{Position: geom.Vec(75, 0)}))

	h.tick(0.001)
	shooter.LockTarget("ship2")
	h.tick(2)
	h.tick(1)
	assert.Equal(t, sim.BeamIdle, shooter.Beams()[0].State())
	assert.Equal(t, target.Shields().Max(), target.Shields().Strength())
}

func TestJumpTeleportsOnce(t *testing.T) {
	h := newHarness(t)
	s := newPlayer("ship", template.FactionFederation, geom.Zero)
	h.add(s)
	h.tick(0.001)

	s.ChangeJumpDistance(0.2)
	require.True(t, s.StartJump())
	assert.False(t, s.StartJump())

	s.ChangeThrottle(100)
	s.ChangeRudder(50)
	assert.Zero(t, s.Throttle().Requested(), "throttle is locked while jumping")
	assert.Zero(t, s.Rudder())

	completed := 0
	for i := 0; i < 6; i++ {
		h.tick(1)
		for _, event := range s.TakeEvents() {
			if event.Kind == EventJumpCompleted {
				completed++
			}
		}
	}
	assert.Equal(t, 1, completed)
	assert.InDelta(t, 3000, s.Pose().Position.X, 1e-6)
	assert.Equal(t, sim.JumpRecharging, s.Jump().State())
}

func TestContactDetailFollowsScanLevel(t *testing.T) {
	h := newHarness(t)
	scanner := newPlayer("scanner", template.FactionFederation, geom.Zero)
	pirate := newPlayer("pirate", template.FactionPirates, geom.Vec(100, 0))
	trader := newPlayer("trader", template.FactionTraders, geom.Vec(0, 100))
	wing := newPlayer("wing", template.FactionFederation, geom.Vec(-100, 0))
	for _, s := range []Ship{scanner, pirate, trader, wing} {
		h.add(s)
	}
	h.tick(0.001)

	contact, ok := scanner.Contacts().Sensed("pirate")
	require.True(t, ok)
	view := contact.ToProto()
	assert.Equal(t, proto.ContactUnknown, view.ContactType)
	assert.Empty(t, view.Designation)
	assert.Nil(t, view.HullPercent)
	assert.Nil(t, view.ShieldPercent)
	assert.Nil(t, view.SystemDamage)

	friend, _ := scanner.Contacts().Sensed("wing")
	assert.Equal(t, proto.ContactFriendly, friend.ToProto().ContactType)
	assert.Equal(t, "Test-wing", friend.ToProto().Designation)
	assert.Nil(t, friend.ToProto().HullPercent)

	completeScan(t, h, scanner, "pirate")
	contact, _ = scanner.Contacts().Sensed("pirate")
	view = contact.ToProto()
	assert.Equal(t, proto.ContactEnemy, view.ContactType)
	require.NotNil(t, view.HullPercent)
	assert.Equal(t, 100.0, *view.HullPercent)
	assert.Nil(t, view.ShieldPercent)

	completeScan(t, h, scanner, "pirate")
	contact, _ = scanner.Contacts().Sensed("pirate")
	view = contact.ToProto()
	require.NotNil(t, view.ShieldPercent)
	assert.Contains(t, view.SystemDamage, "Impulse")
	assert.False(t, scanner.ScanShip("pirate"), "nothing left to reveal")

	completeScan(t, h, scanner, "trader")
	contact, _ = scanner.Contacts().Sensed("trader")
	assert.Equal(t, proto.ContactNeutral, contact.Type)
}

func completeScan(t *testing.T, h *harness, s *PlayerShip, target ids.ObjectID) {
	t.Helper()
	require.True(t, s.ScanShip(target))
	scan, ok := s.ActiveScan()
	require.True(t, ok)
	for i, value := range scan.Minigame().Solution() {
		s.AdjustScan(i, value)
	}
	for i := 0; i < 3; i++ {
		h.tick(0.25)
	}
	_, running := s.ActiveScan()
	require.False(t, running)
}

func TestScanAbortsWhenTargetLeavesSensors(t *testing.T) {
	h := newHarness(t)
	s := newPlayer("scanner", template.FactionFederation, geom.Zero)
	other := newPlayer("other", template.FactionPirates, geom.Vec(100, 0))
	h.add(s)
	h.add(other)
	h.tick(0.001)

	require.True(t, s.ScanShip("other"))
	h.move(other, geom.Vec(5000, 0))
	h.tick(0.1)
	_, running := s.ActiveScan()
	assert.False(t, running)
	assert.False(t, s.ScanShip("other"))
}

func TestSelectionClearedOutOfSensorRange(t *testing.T) {
	h := newHarness(t)
	s := newPlayer("nav", template.FactionFederation, geom.Zero)
	other := newPlayer("other", template.FactionPirates, geom.Vec(100, 0))
	h.add(s)
	h.add(other)
	h.tick(0.001)

	assert.False(t, s.MapSelectShip("missing"))
	require.True(t, s.MapSelectShip("other"))
	require.True(t, s.LockTarget("other"))

	h.move(other, geom.Vec(2500, 0))
	h.tick(0.1)
	assert.Equal(t, SelectNone, s.Selection().Kind)
	_, locked := s.Lock().Target()
	assert.False(t, locked)
}

func TestTargetDestroyedClearsReferences(t *testing.T) {
	h := newHarness(t)
	s := newPlayer("nav", template.FactionFederation, geom.Zero)
	other := newPlayer("other", template.FactionPirates, geom.Vec(100, 0))
	h.add(s)
	h.add(other)
	h.tick(0.001)

	require.True(t, s.MapSelectShip("other"))
	require.True(t, s.LockTarget("other"))
	require.True(t, s.ScanShip("other"))

	s.TargetDestroyed("other")
	assert.Equal(t, SelectNone, s.Selection().Kind)
	_, locked := s.Lock().Target()
	assert.False(t, locked)
	_, scanning := s.ActiveScan()
	assert.False(t, scanning)
	_, sensed := s.Contacts().Ship("other")
	assert.False(t, sensed)
}

func TestWaypointSelectionFollowsDeletion(t *testing.T) {
	s := newPlayer("nav", template.FactionFederation, geom.Zero)
	for i := 0; i < 3; i++ {
		require.True(t, s.AddWaypoint(geom.Vec(float64(i*100), 0)))
	}
	require.True(t, s.MapSelectWaypoint(2))
	assert.False(t, s.MapSelectWaypoint(3))

	require.True(t, s.DeleteWaypoint(0))
	assert.Equal(t, MapSelection{Kind: SelectWaypoint, Index: 1}, s.Selection())

	require.True(t, s.DeleteWaypoint(1))
	assert.Equal(t, SelectNone, s.Selection().Kind)
	assert.False(t, s.DeleteWaypoint(5))
	assert.Len(t, s.Waypoints(), 1)

	for i := 0; i < MaxWaypoints; i++ {
		s.AddWaypoint(geom.Zero)
	}
	assert.Len(t, s.Waypoints(), MaxWaypoints)
}

func TestApplyDamageSpillsIntoHullAndSystems(t *testing.T) {
	s := newPlayer("ship", template.FactionFederation, geom.Zero)
	s.ApplyDamage(s.Shields().Max() + 20)

	assert.False(t, s.Shields().Up())
	assert.Equal(t, s.Template().Hull-20, s.Hull())
	total := 0.0
	for _, system := range s.Power().Systems() {
		total += system.Damage
	}
	assert.InDelta(t, 20/s.Template().Hull, total, 1e-9)

	s.ApplyDamage(1000)
	assert.True(t, s.Destroyed())
	assert.Equal(t, 0.0, s.status().Hull, "projections clamp the hull")
}

func TestTorpedoLaunchCarriesLockTarget(t *testing.T) {
	h := newHarness(t)
	s := newPlayer("ship", template.FactionFederation, geom.Zero)
	other := newPlayer("other", template.FactionPirates, geom.Vec(100, 0))
	h.add(s)
	h.add(other)
	h.tick(0.001)

	require.True(t, s.StartReload(0))
	s.LockTarget("other")
	h.tick(5)
	h.tick(0.01)
	require.True(t, s.LaunchTorpedo(0))
	h.tick(0.01)

	launches := s.TakeLaunches()
	require.Len(t, launches, 1)
	assert.Equal(t, ids.ObjectID("other"), launches[0].Target)
	assert.Equal(t, 0, launches[0].Tube)
	assert.Equal(t, s.Template().Torpedo, launches[0].Spec)
	assert.Empty(t, s.TakeLaunches())
}

func TestThrottleDrivesPhysics(t *testing.T) {
	h := newHarness(t)
	s := newPlayer("ship", template.FactionFederation, geom.Zero)
	h.add(s)

	s.ChangeThrottle(100)
	s.ChangeThrottle(100)
	assert.Equal(t, 100, s.Throttle().Requested())
	for i := 0; i < 10; i++ {
		h.tick(0.02)
	}
	assert.InDelta(t, s.Template().ThrottleResponsiveness*0.2, s.Throttle().Actual(), 1e-9)

	h.world.Step(1)
	s.SyncPose(h.world)
	assert.Greater(t, s.Pose().Position.X, 0.0)
}

func TestStationMessages(t *testing.T) {
	h := newHarness(t)
	s := newPlayer("ship", template.FactionFederation, geom.Zero)
	other := newPlayer("other", template.FactionPirates, geom.Vec(400, 0))
	far := newPlayer("far", template.FactionPirates, geom.Vec(1500, 0))
	h.add(s)
	h.add(other)
	h.add(far)
	h.tick(0.001)

	helm := s.StationMessage(proto.StationHelm, false).(proto.Helm)
	assert.Len(t, helm.Contacts, 2)
	assert.Equal(t, 1000.0, helm.Jump.Distance)

	engineering := s.StationMessage(proto.StationEngineering, true).(proto.Engineering)
	assert.Len(t, engineering.Systems, len(sim.PoweredSystems))
	assert.True(t, engineering.Paused)

	_, is3d := s.StationMessage(proto.StationMainScreen, false).(proto.MainScreen3d)
	assert.True(t, is3d)
	s.SetMainScreenView("Hologram")
	s.SetMainScreenView(proto.ViewShortRangeScope)
	scope := s.StationMessage(proto.StationMainScreen, false).(proto.MainScreenShortRangeScope)
	assert.Len(t, scope.Contacts, 1, "scope range is shorter than sensor range")
	assert.NotEmpty(t, scope.Trail)

	weapons := s.StationMessage(proto.StationWeapons, false).(proto.Weapons)
	assert.Len(t, weapons.Beams, 1)
	assert.Len(t, weapons.Tubes, 2)

	nav := s.StationMessage(proto.StationNavigation, false).(proto.Navigation)
	assert.Equal(t, "None", nav.MapSelection.Kind)
	assert.Nil(t, nav.Scan)
}

type recordingBehaviour struct{ calls int }

func (b *recordingBehaviour) Name() string { return "recording" }

func (b *recordingBehaviour) Decide(s *NonPlayerShip, _ *sim.GameTime) {
	b.calls++
	s.ChangeThrottle(40)
	s.SteerTowards(geom.Vec(0, 100))
}

func TestNonPlayerShipRunsBehaviour(t *testing.T) {
	h := newHarness(t)
	behaviour := &recordingBehaviour{}
	npc := NewNonPlayerShip("npc", "Pirate-001", template.Frigate(), template.FactionPirates, physics.Pose{}, rand.New(rand.NewSource(2)), behaviour)
	h.add(npc)

	h.tick(0.02)
	assert.Equal(t, 1, behaviour.calls)
	assert.Equal(t, 40, npc.Throttle().Requested())
	assert.Less(t, npc.Rudder(), 0, "target to port turns the rudder to port")
	assert.Equal(t, "recording", npc.Behaviour().Name())
}

func TestHistorySamplesAtInterval(t *testing.T) {
	history := NewHistory(3, 1)
	clock := sim.FixedTime(0, 0)
	for i := 0; i < 10; i++ {
		history.Record(clock, geom.Vec(float64(i), 0))
		clock.Advance(0.5)
	}
	points := history.Points()
	require.Len(t, points, 3)
	assert.Equal(t, []geom.Vector2{geom.Vec(4, 0), geom.Vec(6, 0), geom.Vec(8, 0)}, points)
}
