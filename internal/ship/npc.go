package ship

import (
	"math/rand"

	"bridgesim/server/internal/ids"
	"bridgesim/server/internal/physics"
	"bridgesim/server/internal/sim"
	"bridgesim/server/internal/template"
)

// Behaviour steers an NPC. Decide runs after the contact list is rebuilt
// and before the handlers, using the same controls a crew would.
type Behaviour interface {
	Name() string
	Decide(ship *NonPlayerShip, t *sim.GameTime)
}

// NonPlayerShip is a scenario-controlled ship.
type NonPlayerShip struct {
	core
	behaviour Behaviour
}

var _ Ship = (*NonPlayerShip)(nil)

func NewNonPlayerShip(id ids.ObjectID, designation string, tmpl *template.ShipTemplate, faction template.Faction, pose physics.Pose, rng *rand.Rand, behaviour Behaviour) *NonPlayerShip {
	return &NonPlayerShip{
		core:      newCore(id, designation, tmpl, faction, pose, rng),
		behaviour: behaviour,
	}
}

func (n *NonPlayerShip) Behaviour() Behaviour { return n.behaviour }

func (n *NonPlayerShip) Update(ctx *UpdateContext) {
	n.observe(ctx)
	if n.behaviour != nil {
		n.behaviour.Decide(n, ctx.Time)
	}
	n.update(ctx)
}
