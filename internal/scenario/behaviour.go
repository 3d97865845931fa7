package scenario

import (
	"bridgesim/server/internal/geom"
	"bridgesim/server/internal/net/proto"
	"bridgesim/server/internal/ship"
	"bridgesim/server/internal/sim"
)

// Aggressive identifies contacts by scanning them, then closes on the
// nearest enemy and engages it with beams and torpedoes.
type Aggressive struct {
	// Standoff is the distance the ship tries to hold from its target.
	Standoff float64
}

func (Aggressive) Name() string { return "aggressive" }

func (a Aggressive) Decide(s *ship.NonPlayerShip, _ *sim.GameTime) {
	contacts := s.Contacts()
	var target *ship.Contact
	for i := range contacts.Ships {
		contact := &contacts.Ships[i]
		if !contact.InSensorRange {
			continue
		}
		if contact.Type == proto.ContactUnknown {
			a.identify(s, contact)
			continue
		}
		if contact.Type == proto.ContactEnemy {
			target = contact
			break
		}
	}
	if target == nil {
		s.ChangeThrottle(0)
		s.ChangeRudder(0)
		return
	}

	s.LockTarget(target.ID)
	s.SteerTowards(target.Position)
	if target.Distance > a.standoff() {
		s.ChangeThrottle(60)
	} else {
		s.ChangeThrottle(10)
	}

	for i, tube := range s.Tubes().Tubes() {
		switch tube.State() {
		case sim.TubeEmpty:
			s.StartReload(i)
		case sim.TubeReady:
			if s.Lock().IsComplete() {
				s.LaunchTorpedo(i)
			}
		}
	}
}

// identify runs a scan with a perfect operator.
func (a Aggressive) identify(s *ship.NonPlayerShip, contact *ship.Contact) {
	if scan, ok := s.ActiveScan(); ok && scan.Target() != contact.ID {
		return
	}
	if !s.ScanShip(contact.ID) {
		return
	}
	if scan, ok := s.ActiveScan(); ok {
		for i, value := range scan.Minigame().Solution() {
			s.AdjustScan(i, value)
		}
	}
}

func (a Aggressive) standoff() float64 {
	if a.Standoff > 0 {
		return a.Standoff
	}
	return 120
}

// Patrol cycles through a fixed route.
type Patrol struct {
	Route    []geom.Vector2
	Throttle int
	Arrival  float64

	next int
}

func (p *Patrol) Name() string { return "patrol" }

func (p *Patrol) Decide(s *ship.NonPlayerShip, _ *sim.GameTime) {
	if len(p.Route) == 0 {
		s.ChangeThrottle(0)
		return
	}
	arrival := p.Arrival
	if arrival <= 0 {
		arrival = 100
	}
	if s.Pose().Position.Distance(p.Route[p.next]) <= arrival {
		p.next = (p.next + 1) % len(p.Route)
	}
	s.SteerTowards(p.Route[p.next])
	throttle := p.Throttle
	if throttle == 0 {
		throttle = 50
	}
	s.ChangeThrottle(throttle)
}

// Waypoint returns the index of the route point being approached.
func (p *Patrol) Waypoint() int { return p.next }
