package scenario

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridgesim/server/internal/geom"
	"bridgesim/server/internal/ids"
	"bridgesim/server/internal/physics"
	"bridgesim/server/internal/ship"
	"bridgesim/server/internal/sim"
	"bridgesim/server/internal/template"
)

type fakeWorld struct {
	npcs      []ship.Behaviour
	asteroids int
}

func (w *fakeWorld) SpawnNPC(_ *template.ShipTemplate, _ template.Faction, _ physics.Pose, behaviour ship.Behaviour) ids.ObjectID {
	w.npcs = append(w.npcs, behaviour)
	return ids.ObjectID(fmt.Sprintf("npc-%d", len(w.npcs)))
}

func (w *fakeWorld) SpawnAsteroid(geom.Vector2, float64) ids.ObjectID {
	w.asteroids++
	return ids.ObjectID(fmt.Sprintf("rock-%d", w.asteroids))
}

func TestByName(t *testing.T) {
	for _, name := range Names() {
		s, err := ByName(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
	}
	_, err := ByName("armada")
	assert.Error(t, err)
}

func TestDefaultScenarioPopulates(t *testing.T) {
	s, err := ByName("default")
	require.NoError(t, err)

	world := &fakeWorld{}
	s.Populate(world, rand.New(rand.NewSource(1)))
	assert.Equal(t, 25, world.asteroids)
	require.Len(t, world.npcs, 2)
	assert.Equal(t, "aggressive", world.npcs[0].Name())
	assert.Equal(t, "patrol", world.npcs[1].Name())
}

type rig struct {
	world *physics.World
	clock *sim.GameTime
	ships []ship.Ship
}

func newRig(t *testing.T, ships ...ship.Ship) *rig {
	r := &rig{world: physics.NewWorld(physics.DefaultConfig()), clock: sim.FixedTime(0, 0), ships: ships}
	for _, s := range ships {
		require.NoError(t, r.world.AddBody(s.ID(), s.Body(), s.Pose()))
	}
	return r
}

func (r *rig) tick(delta float64) {
	r.clock.Advance(delta)
	r.world.Step(delta)
	observations := make([]ship.Observation, 0, len(r.ships))
	for _, s := range r.ships {
		s.SyncPose(r.world)
		observations = append(observations, s.Observation())
	}
	ctx := &ship.UpdateContext{Time: r.clock, Physics: r.world, Observations: observations}
	for _, s := range r.ships {
		s.Update(ctx)
	}
}

func TestAggressiveScansThenLocksEnemy(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	npc := ship.NewNonPlayerShip("pirate", "Raider-1", template.Frigate(), template.FactionPirates, physics.Pose{}, rng, Aggressive{})
	victim := ship.NewPlayerShip("victim", "Orion-1", template.Cruiser(), template.FactionFederation, physics.Pose{Position: geom.Vec(600, 0)}, rng)
	r := newRig(t, npc, victim)

	r.tick(0.02)
	scan, ok := npc.ActiveScan()
	require.True(t, ok)
	assert.Equal(t, ids.ObjectID("victim"), scan.Target())

	for i := 0; i < 40; i++ {
		r.tick(0.02)
	}
	assert.Equal(t, sim.ScanBasic, npc.ScanLevel("victim"))
	target, locked := npc.Lock().Target()
	require.True(t, locked)
	assert.Equal(t, ids.ObjectID("victim"), target)
	assert.Equal(t, 60, npc.Throttle().Requested())
}

func TestAggressiveIdlesWithoutEnemies(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	npc := ship.NewNonPlayerShip("pirate", "Raider-1", template.Frigate(), template.FactionPirates, physics.Pose{}, rng, Aggressive{})
	wing := ship.NewNonPlayerShip("wing", "Raider-2", template.Frigate(), template.FactionPirates, physics.Pose{Position: geom.Vec(100, 0)}, rng, Aggressive{})
	r := newRig(t, npc, wing)

	r.tick(0.02)
	_, scanning := npc.ActiveScan()
	assert.False(t, scanning)
	assert.Zero(t, npc.Throttle().Requested())
}

func TestPatrolAdvancesAlongRoute(t *testing.T) {
	patrol := &Patrol{Route: []geom.Vector2{geom.Vec(50, 0), geom.Vec(0, 1000)}}
	npc := ship.NewNonPlayerShip("trader", "Hauler-1", template.Freighter(), template.FactionTraders, physics.Pose{}, rand.New(rand.NewSource(1)), patrol)
	r := newRig(t, npc)

	r.tick(0.02)
	assert.Equal(t, 1, patrol.Waypoint(), "already within arrival distance of the first point")
	assert.Equal(t, 50, npc.Throttle().Requested())
	assert.Less(t, npc.Rudder(), 0)
}
