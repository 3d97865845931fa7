// Package scenario seeds the world with NPC ships and asteroids and holds
// the behaviours that fly them.
package scenario

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"bridgesim/server/internal/geom"
	"bridgesim/server/internal/ids"
	"bridgesim/server/internal/physics"
	"bridgesim/server/internal/ship"
	"bridgesim/server/internal/template"
)

// World is the spawning surface a scenario populates.
type World interface {
	SpawnNPC(tmpl *template.ShipTemplate, faction template.Faction, pose physics.Pose, behaviour ship.Behaviour) ids.ObjectID
	SpawnAsteroid(position geom.Vector2, radius float64) ids.ObjectID
}

// Scenario seeds a fresh world.
type Scenario interface {
	Name() string
	Populate(world World, rng *rand.Rand)
}

type scenarioFunc struct {
	name     string
	populate func(World, *rand.Rand)
}

func (s scenarioFunc) Name() string { return s.name }

func (s scenarioFunc) Populate(world World, rng *rand.Rand) { s.populate(world, rng) }

var registry = map[string]Scenario{
	"empty":    scenarioFunc{name: "empty", populate: func(World, *rand.Rand) {}},
	"default":  scenarioFunc{name: "default", populate: populateDefault},
	"skirmish": scenarioFunc{name: "skirmish", populate: populateSkirmish},
}

// ByName looks up a registered scenario.
func ByName(name string) (Scenario, error) {
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q (have %v)", name, Names())
	}
	return s, nil
}

// Names lists the registered scenarios.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func populateDefault(world World, rng *rand.Rand) {
	asteroidField(world, rng, geom.Vec(1500, 1500), 800, 25)
	world.SpawnNPC(template.Frigate(), template.FactionPirates, randomPose(rng, geom.Vec(2500, -1500), 300), Aggressive{})
	world.SpawnNPC(template.Freighter(), template.FactionTraders, randomPose(rng, geom.Vec(-1200, 0), 200), &Patrol{
		Route: []geom.Vector2{geom.Vec(-1200, 0), geom.Vec(-1200, 2000), geom.Vec(800, 2000)},
	})
}

func populateSkirmish(world World, rng *rand.Rand) {
	asteroidField(world, rng, geom.Zero, 1200, 12)
	for i := 0; i < 3; i++ {
		world.SpawnNPC(template.Frigate(), template.FactionPirates, randomPose(rng, geom.Vec(900, 0), 250), Aggressive{Standoff: 100})
	}
}

func asteroidField(world World, rng *rand.Rand, center geom.Vector2, radius float64, count int) {
	for i := 0; i < count; i++ {
		world.SpawnAsteroid(scatter(rng, center, radius), 10+rng.Float64()*30)
	}
}

func randomPose(rng *rand.Rand, center geom.Vector2, radius float64) physics.Pose {
	return physics.Pose{
		Position: scatter(rng, center, radius),
		Rotation: geom.NormalizeAngle(rng.Float64() * 2 * math.Pi),
	}
}

func scatter(rng *rand.Rand, center geom.Vector2, radius float64) geom.Vector2 {
	offset := geom.FromAngle(rng.Float64() * 2 * math.Pi).Scale(math.Sqrt(rng.Float64()) * radius)
	return center.Add(offset)
}
