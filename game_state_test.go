package server

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridgesim/server/internal/geom"
	"bridgesim/server/internal/ids"
	"bridgesim/server/internal/net/proto"
	"bridgesim/server/internal/physics"
	"bridgesim/server/internal/scenario"
	"bridgesim/server/internal/ship"
	"bridgesim/server/internal/sim"
	"bridgesim/server/internal/template"
	"bridgesim/server/logging"
	"bridgesim/server/logging/combat"
	"bridgesim/server/logging/lifecycle"
	"bridgesim/server/logging/simulation"
)

type recorder struct {
	events []logging.Event
}

func (r *recorder) Publish(_ context.Context, event logging.Event) {
	r.events = append(r.events, event)
}

func (r *recorder) ofType(eventType logging.EventType) []logging.Event {
	var out []logging.Event
	for _, event := range r.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

func newTestState(t *testing.T) (*GameState, *recorder) {
	t.Helper()
	rec := &recorder{}
	g := NewGameState(Config{Seed: 1, Physics: physics.Config{Extent: 20000, CellSize: 250}}, zerolog.Nop(), rec)
	return g, rec
}

func testTemplate() *template.ShipTemplate {
	tmpl := template.Cruiser()
	tmpl.Beams = []template.BeamWeapon{{
		Name: "test", MinRange: 25, MaxRange: 200, LeftArc: 180, RightArc: 180,
		RechargeSpeed: 1, FiringSpeed: 1, Damage: 5,
	}}
	return tmpl
}

// board spawns a player ship and puts a fresh client aboard at station.
func board(t *testing.T, g *GameState, clientID ids.ClientID, tmpl *template.ShipTemplate, faction template.Faction, position geom.Vector2, station proto.Station) *ship.PlayerShip {
	t.Helper()
	id := g.spawnPlayerShip(tmpl, faction, physics.Pose{Position: position})
	require.NotEmpty(t, id)
	g.ClientConnected(clientID)
	g.HandleCommand(clientID, proto.CommandJoinShip{ObjectID: id, Station: station})
	client, ok := g.Client(clientID)
	require.True(t, ok)
	require.Equal(t, StateInShip, client.State.Kind)
	player, ok := g.playerShip(id)
	require.True(t, ok)
	return player
}

func TestThrottleRampsThroughCommands(t *testing.T) {
	g, _ := newTestState(t)
	player := board(t, g, "helm", template.Cruiser(), template.FactionFederation, geom.Zero, proto.StationHelm)

	g.HandleCommand("helm", proto.CommandChangeThrottle{Value: 100})
	for i := 0; i < 10; i++ {
		g.step(0.02)
		assert.LessOrEqual(t, player.Throttle().Actual(), 100.0)
	}
	assert.InDelta(t, 10.0, player.Throttle().Actual(), 1e-9)
	assert.Equal(t, uint64(10), g.Tick())
}

func TestChangeThrottleIsIdempotent(t *testing.T) {
	g, _ := newTestState(t)
	player := board(t, g, "helm", template.Cruiser(), template.FactionFederation, geom.Zero, proto.StationHelm)

	g.HandleCommand("helm", proto.CommandChangeThrottle{Value: 50})
	g.HandleCommand("helm", proto.CommandChangeThrottle{Value: 50})
	assert.Equal(t, 50, player.Throttle().Requested())
}

func TestBeamDamageAndRangeLossThroughGameState(t *testing.T) {
	g, _ := newTestState(t)
	shooter := board(t, g, "weapons", testTemplate(), template.FactionFederation, geom.Zero, proto.StationWeapons)
	targetID := g.SpawnNPC(testTemplate(), template.FactionPirates, physics.Pose{Position: geom.Vec(50, 0)}, nil)
	target, ok := g.Ship(targetID)
	require.True(t, ok)

	g.step(0.001)
	g.HandleCommand("weapons", proto.CommandLockTarget{TargetID: targetID})
	g.step(1)
	g.step(1)
	require.True(t, shooter.Lock().IsComplete())

	npc := target.(*ship.NonPlayerShip)
	shields := npc.Shields().Max()
	require.Equal(t, shields, npc.Shields().Strength())

	g.step(1)
	assert.Equal(t, shields-5, npc.Shields().Strength())
	assert.Equal(t, npc.Template().Hull, npc.Hull())

	require.NoError(t, g.physics.SetPose(targetID, physics.Pose{Position: geom.Vec(500, 0)}))
	g.step(0.5)
	assert.Equal(t, sim.BeamRecharging, shooter.Beams()[0].State())
	assert.Equal(t, shields-5+npc.Template().Shields.RechargeSpeed*0.5, npc.Shields().Strength())
}

func TestJumpDistanceCommand(t *testing.T) {
	g, _ := newTestState(t)
	player := board(t, g, "helm", template.Cruiser(), template.FactionFederation, geom.Zero, proto.StationHelm)

	g.HandleCommand("helm", proto.CommandChangeJumpDistance{Value: 0.2})
	assert.Equal(t, 3000.0, player.Jump().Distance())
}

func TestStaleReferencesAreIgnored(t *testing.T) {
	g, _ := newTestState(t)
	npc := g.SpawnNPC(template.Frigate(), template.FactionPirates, physics.Pose{}, nil)

	assert.NotPanics(t, func() {
		g.HandleCommand("ghost", proto.CommandChangeThrottle{Value: 80})
		g.ClientDisconnected("ghost", "never registered")
		g.TogglePause("ghost")
	})
	assert.False(t, g.Paused())

	g.ClientConnected("c1")
	g.HandleCommand("c1", proto.CommandChangeThrottle{Value: 80})
	g.HandleCommand("c1", proto.CommandJoinShip{ObjectID: "missing", Station: proto.StationHelm})
	g.HandleCommand("c1", proto.CommandJoinShip{ObjectID: npc, Station: proto.StationHelm})
	client, _ := g.Client("c1")
	assert.Equal(t, StateShipSelection, client.State.Kind)

	player := g.spawnPlayerShip(template.Cruiser(), template.FactionFederation, physics.Pose{})
	g.HandleCommand("c1", proto.CommandJoinShip{ObjectID: player, Station: "Bridge"})
	client, _ = g.Client("c1")
	assert.Equal(t, StateShipSelection, client.State.Kind)
}

func TestSpawnShipOnlyFromSelection(t *testing.T) {
	g, _ := newTestState(t)
	g.ClientConnected("c1")
	g.HandleCommand("c1", proto.CommandSpawnShip{})
	require.Equal(t, 1, g.Diagnostics().PlayerShips)

	selection, ok := g.ToMessage("c1").(proto.ShipSelection)
	require.True(t, ok)
	require.Len(t, selection.Ships, 1)

	g.HandleCommand("c1", proto.CommandJoinShip{ObjectID: selection.Ships[0].ID, Station: proto.StationNavigation})
	g.HandleCommand("c1", proto.CommandSpawnShip{})
	assert.Equal(t, 1, g.Diagnostics().PlayerShips)
}

func TestToMessageFollowsStationState(t *testing.T) {
	g, _ := newTestState(t)
	g.SpawnNPC(template.Frigate(), template.FactionPirates, physics.Pose{Position: geom.Vec(3000, 0)}, nil)
	board(t, g, "c1", template.Cruiser(), template.FactionFederation, geom.Zero, proto.StationHelm)
	g.step(0.02)

	assert.Nil(t, g.ToMessage("nobody"))
	assert.IsType(t, proto.Helm{}, g.ToMessage("c1"))

	g.HandleCommand("c1", proto.CommandChangeStation{Station: proto.StationEngineering})
	assert.IsType(t, proto.Engineering{}, g.ToMessage("c1"))

	g.HandleCommand("c1", proto.CommandChangeStation{Station: proto.StationMainScreen})
	g.HandleCommand("c1", proto.CommandMainScreenView{View: proto.ViewShortRangeScope})
	assert.IsType(t, proto.MainScreenShortRangeScope{}, g.ToMessage("c1"))

	g.HandleCommand("c1", proto.CommandExitShip{})
	selection, ok := g.ToMessage("c1").(proto.ShipSelection)
	require.True(t, ok)
	assert.Len(t, selection.Ships, 1, "npc ships are not selectable")
}

func TestDestroyedShipIsResolvedAtEndOfTick(t *testing.T) {
	g, rec := newTestState(t)
	victim := board(t, g, "victim-helm", template.Cruiser(), template.FactionFederation, geom.Zero, proto.StationHelm)
	hunter := board(t, g, "hunter-helm", template.Cruiser(), template.FactionPirates, geom.Vec(150, 0), proto.StationWeapons)

	g.step(0.02)
	require.True(t, hunter.LockTarget(victim.ID()))
	require.True(t, hunter.MapSelectShip(victim.ID()))

	victim.ApplyDamage(1000)
	require.True(t, victim.Destroyed())
	g.step(0.02)

	_, ok := g.Ship(victim.ID())
	assert.False(t, ok)
	assert.Equal(t, 1, g.physics.BodyCount())
	_, locked := hunter.Lock().Target()
	assert.False(t, locked)
	assert.Equal(t, ship.SelectNone, hunter.Selection().Kind)
	assert.Equal(t, proto.ShipDestroyed{}, g.ToMessage("victim-helm"))

	destroyed := rec.ofType(lifecycle.EventShipDestroyed)
	require.Len(t, destroyed, 1)
	assert.Equal(t, victim.ID().String(), destroyed[0].Actor.ID)
	assert.Equal(t, 1, destroyed[0].Payload.(lifecycle.ShipDestroyedPayload).Observers)

	assert.NotPanics(t, func() {
		g.HandleCommand("victim-helm", proto.CommandChangeThrottle{Value: 100})
	})
	g.HandleCommand("victim-helm", proto.CommandExitShip{})
	selection, ok := g.ToMessage("victim-helm").(proto.ShipSelection)
	require.True(t, ok)
	require.Len(t, selection.Ships, 1)
	assert.Equal(t, hunter.ID(), selection.Ships[0].ID)
}

func TestPauseFreezesTheWorld(t *testing.T) {
	g, rec := newTestState(t)
	board(t, g, "c1", template.Cruiser(), template.FactionFederation, geom.Zero, proto.StationHelm)
	g.step(0.02)

	g.HandleCommand("c1", proto.CommandTogglePause{})
	require.True(t, g.Paused())
	g.step(0.02)
	assert.Equal(t, uint64(1), g.Tick())
	helm, ok := g.ToMessage("c1").(proto.Helm)
	require.True(t, ok)
	assert.True(t, helm.Paused)

	g.TogglePause("c1")
	g.step(0.02)
	assert.Equal(t, uint64(2), g.Tick())
	assert.Len(t, rec.ofType(simulation.EventPauseToggled), 2)
}

func TestTorpedoDetonatesOnEnemy(t *testing.T) {
	g, rec := newTestState(t)
	tmpl := template.Cruiser()
	tmpl.Beams = nil
	shooter := board(t, g, "weapons", tmpl, template.FactionFederation, geom.Zero, proto.StationWeapons)
	targetID := g.SpawnNPC(template.Freighter(), template.FactionPirates, physics.Pose{Position: geom.Vec(100, 0)}, nil)

	g.HandleCommand("weapons", proto.CommandStartReload{Index: 0})
	assert.Equal(t, tmpl.Magazine-1, shooter.Tubes().Magazine())
	g.step(5)
	require.Equal(t, sim.TubeReady, shooter.Tubes().Tubes()[0].State())

	g.HandleCommand("weapons", proto.CommandLaunchTorpedo{Index: 0})
	g.step(0.02)
	require.Equal(t, 1, g.Diagnostics().Torpedoes)
	require.Len(t, rec.ofType(combat.EventTorpedoLaunched), 1)

	for i := 0; i < 200 && g.Diagnostics().Torpedoes > 0; i++ {
		g.step(0.02)
	}
	assert.Zero(t, g.Diagnostics().Torpedoes)

	detonations := rec.ofType(combat.EventTorpedoDetonated)
	require.Len(t, detonations, 1)
	require.Len(t, detonations[0].Targets, 1)
	assert.Equal(t, targetID.String(), detonations[0].Targets[0].ID)

	target, ok := g.Ship(targetID)
	require.True(t, ok)
	assert.Less(t, target.(*ship.NonPlayerShip).Shields().Strength(), target.Template().Shields.Strength)
}

func TestPopulateDefaultScenario(t *testing.T) {
	g, rec := newTestState(t)
	sc, err := scenario.ByName("default")
	require.NoError(t, err)

	g.Populate(sc)
	diagnostics := g.Diagnostics()
	assert.Equal(t, 2, diagnostics.Ships)
	assert.Equal(t, 25, diagnostics.Asteroids)
	assert.Equal(t, 27, diagnostics.Bodies)
	require.Len(t, rec.ofType(simulation.EventScenarioLoaded), 1)
	assert.Len(t, rec.ofType(lifecycle.EventShipSpawned), 2)

	g.step(0.02)
	assert.Equal(t, 2, g.Diagnostics().Ships)
}

func TestApplyDispatchesChanges(t *testing.T) {
	g, _ := newTestState(t)
	g.Apply(ClientConnected{ClientID: "c1"})
	g.Apply(ChangeFromCommand("c1", proto.CommandSpawnShip{}))
	g.Apply(ChangeFromCommand("c1", proto.CommandTogglePause{}))

	response := make(chan proto.Snapshot, 1)
	g.Apply(GetSnapshot{ClientID: "c1", Response: response})
	selection, ok := (<-response).(proto.ShipSelection)
	require.True(t, ok)
	assert.Len(t, selection.Ships, 1)
	assert.True(t, selection.Paused)

	diagnostics := make(chan Diagnostics, 1)
	g.Apply(GetDiagnostics{Response: diagnostics})
	assert.Equal(t, 1, (<-diagnostics).Clients)

	g.Apply(ClientDisconnected{ClientID: "c1"})
	_, ok = g.Client("c1")
	assert.False(t, ok)
}
