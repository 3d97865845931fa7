package server

import (
	"bridgesim/server/internal/geom"
	"bridgesim/server/internal/ids"
	"bridgesim/server/internal/physics"
	"bridgesim/server/internal/ship"
	"bridgesim/server/internal/template"
	"bridgesim/server/logging"
	"bridgesim/server/logging/combat"
)

const (
	torpedoMass      = 0.1
	torpedoClearance = 1.0
)

// Torpedo is a launched warhead. It homes on Target while the motor burns
// and is removed when the burn ends or it hits something.
type Torpedo struct {
	ID      ids.ObjectID
	Shooter ids.ObjectID
	Faction template.Faction
	Target  ids.ObjectID
	Spec    template.Torpedo
	Pose    physics.Pose
	Age     float64
}

func (t *Torpedo) body() physics.Body {
	return physics.Body{
		Kind:   physics.KindTorpedo,
		Radius: t.Spec.Radius,
		Mass:   torpedoMass,
		Sensor: true,
	}
}

func (t *Torpedo) observation() ship.Observation {
	return ship.Observation{
		ID:       t.ID,
		Kind:     physics.KindTorpedo,
		Position: t.Pose.Position,
		Rotation: t.Pose.Rotation,
		Velocity: t.Pose.Velocity,
		Radius:   t.Spec.Radius,
		Faction:  t.Faction,
	}
}

// launchTorpedoes spawns the torpedoes fired this tick just ahead of each
// shooter's bow.
func (g *GameState) launchTorpedoes() {
	for _, id := range g.shipOrder {
		s := g.ships[id]
		for _, launch := range s.TakeLaunches() {
			g.spawnTorpedo(launch, s.Template().Radius)
		}
	}
}

func (g *GameState) spawnTorpedo(launch ship.Launch, shooterRadius float64) {
	offset := shooterRadius + launch.Spec.Radius + torpedoClearance
	torpedo := &Torpedo{
		ID:      ids.NewObjectID(),
		Shooter: launch.Shooter,
		Faction: launch.Faction,
		Target:  launch.Target,
		Spec:    launch.Spec,
		Pose: physics.Pose{
			Position: launch.Pose.Position.Add(launch.Pose.Heading().Scale(offset)),
			Rotation: launch.Pose.Rotation,
			Velocity: launch.Pose.Velocity,
		},
	}
	if err := g.physics.AddBody(torpedo.ID, torpedo.body(), torpedo.Pose); err != nil {
		g.logger.Error().Err(err).Str("shooter", launch.Shooter.String()).Msg("failed to add torpedo body")
		return
	}
	g.torpedoes[torpedo.ID] = torpedo
	g.torpedoOrder = append(g.torpedoOrder, torpedo.ID)
	combat.TorpedoLaunched(g.ctx, g.publisher, g.tick, shipRef(launch.Shooter), torpedoRef(torpedo.ID), combat.TorpedoPayload{Tube: launch.Tube})
}

func (g *GameState) syncTorpedoes() {
	for _, id := range g.torpedoOrder {
		if pose, ok := g.physics.Pose(id); ok {
			g.torpedoes[id].Pose = pose
		}
	}
}

// updateTorpedoes ages, steers and detonates every torpedo.
func (g *GameState) updateTorpedoes(delta float64) {
	var spent []ids.ObjectID
	for _, id := range g.torpedoOrder {
		torpedo := g.torpedoes[id]
		torpedo.Age += delta

		if hits, detonated := g.detonation(torpedo); detonated {
			refs := make([]logging.EntityRef, 0, len(hits))
			for _, hit := range hits {
				g.ships[hit].ApplyDamage(torpedo.Spec.Damage)
				refs = append(refs, shipRef(hit))
			}
			combat.TorpedoDetonated(g.ctx, g.publisher, g.tick, torpedoRef(id), refs, combat.TorpedoPayload{Damage: torpedo.Spec.Damage})
			spent = append(spent, id)
			continue
		}
		if torpedo.Age >= torpedo.Spec.BurnTime {
			combat.TorpedoBurnedOut(g.ctx, g.publisher, g.tick, torpedoRef(id))
			spent = append(spent, id)
			continue
		}
		g.steerTorpedo(torpedo, delta)
	}

	for _, id := range spent {
		g.physics.RemoveBody(id)
		delete(g.torpedoes, id)
	}
	if len(spent) > 0 {
		g.torpedoOrder = compact(g.torpedoOrder, func(id ids.ObjectID) bool {
			_, ok := g.torpedoes[id]
			return ok
		})
	}
}

// detonation reports the ships a torpedo hits. Touching an asteroid
// detonates it without damage; friendly ships and other torpedoes are
// passed through.
func (g *GameState) detonation(torpedo *Torpedo) ([]ids.ObjectID, bool) {
	var hits []ids.ObjectID
	detonated := false
	for _, other := range g.physics.Overlapping(torpedo.ID) {
		if _, ok := g.asteroids[other]; ok {
			detonated = true
			continue
		}
		s, ok := g.ships[other]
		if !ok || other == torpedo.Shooter || s.Faction() == torpedo.Faction {
			continue
		}
		hits = append(hits, other)
		detonated = true
	}
	return hits, detonated
}

// steerTorpedo turns toward the target at the warhead turn rate, carrying the
// velocity with the nose, then fires the motor.
func (g *GameState) steerTorpedo(torpedo *Torpedo, delta float64) {
	if target, ok := g.ships[torpedo.Target]; ok {
		bearing := geom.Radians(geom.RelativeBearing(torpedo.Pose.Position, torpedo.Pose.Rotation, target.Pose().Position))
		limit := torpedo.Spec.TurnRate * delta
		turn := geom.Clamp(bearing, -limit, limit)
		pose := torpedo.Pose
		pose.Rotation = geom.NormalizeAngle(pose.Rotation + turn)
		pose.Velocity = pose.Velocity.Rotate(turn)
		pose.AngularVelocity = 0
		if err := g.physics.SetPose(torpedo.ID, pose); err == nil {
			torpedo.Pose = pose
		}
	}
	g.physics.ApplyControl(torpedo.ID, torpedo.Spec.Thrust, 0)
}

func torpedoRef(id ids.ObjectID) logging.EntityRef {
	return logging.Ref(id, logging.EntityKindTorpedo)
}
