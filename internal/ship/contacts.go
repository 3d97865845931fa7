package ship

import (
	"sort"

	"bridgesim/server/internal/geom"
	"bridgesim/server/internal/ids"
	"bridgesim/server/internal/net/proto"
	"bridgesim/server/internal/physics"
	"bridgesim/server/internal/sim"
	"bridgesim/server/internal/template"
)

// Observation is the public state of one entity at the start of a tick.
// Ships fill every field; asteroids and torpedoes only the physical ones.
type Observation struct {
	ID            ids.ObjectID
	Kind          physics.Kind
	Position      geom.Vector2
	Rotation      float64
	Velocity      geom.Vector2
	Radius        float64
	Faction       template.Faction
	Designation   string
	ClassName     string
	HullPercent   float64
	ShieldPercent float64
	ShieldsUp     bool
	SystemDamage  map[string]float64
}

// Contact is an observation as perceived by one ship.
type Contact struct {
	Observation
	Distance      float64
	Bearing       float64
	InSensorRange bool
	ScanLevel     sim.ScanLevel
	Type          proto.ContactType
}

// ContactList is built fresh for each ship every tick. Entries are ordered
// by distance.
type ContactList struct {
	Ships     []Contact
	Asteroids []Contact
	Torpedoes []Contact

	byID map[ids.ObjectID]int
}

func emptyContacts() *ContactList {
	return &ContactList{byID: map[ids.ObjectID]int{}}
}

type observer interface {
	ID() ids.ObjectID
	Pose() physics.Pose
	Faction() template.Faction
	Template() *template.ShipTemplate
	ScanLevel(ids.ObjectID) sim.ScanLevel
}

// BuildContactList classifies every observation relative to self.
func BuildContactList(self observer, observations []Observation) *ContactList {
	list := emptyContacts()
	pose := self.Pose()
	sensorRange := self.Template().SensorRange
	for _, obs := range observations {
		if obs.ID == self.ID() {
			continue
		}
		distance := pose.Position.Distance(obs.Position)
		contact := Contact{
			Observation:   obs,
			Distance:      distance,
			Bearing:       geom.RelativeBearing(pose.Position, pose.Rotation, obs.Position),
			InSensorRange: distance <= sensorRange,
		}
		switch obs.Kind {
		case physics.KindShip:
			contact.ScanLevel = self.ScanLevel(obs.ID)
			contact.Type = Classify(self.Faction(), obs.Faction, contact.ScanLevel)
			list.Ships = append(list.Ships, contact)
		case physics.KindAsteroid:
			list.Asteroids = append(list.Asteroids, contact)
		case physics.KindTorpedo:
			list.Torpedoes = append(list.Torpedoes, contact)
		}
	}
	for _, group := range [][]Contact{list.Ships, list.Asteroids, list.Torpedoes} {
		sortContacts(group)
	}
	list.reindex()
	return list
}

func sortContacts(contacts []Contact) {
	sort.SliceStable(contacts, func(i, j int) bool {
		if contacts[i].Distance == contacts[j].Distance {
			return contacts[i].ID < contacts[j].ID
		}
		return contacts[i].Distance < contacts[j].Distance
	})
}

func (l *ContactList) reindex() {
	l.byID = make(map[ids.ObjectID]int, len(l.Ships))
	for i, contact := range l.Ships {
		l.byID[contact.ID] = i
	}
}

// Ship returns the ship contact with id, in sensor range or not.
func (l *ContactList) Ship(id ids.ObjectID) (Contact, bool) {
	if l == nil || id == "" {
		return Contact{}, false
	}
	i, ok := l.byID[id]
	if !ok {
		return Contact{}, false
	}
	return l.Ships[i], true
}

// Sensed returns the ship contact with id only if it is in sensor range.
func (l *ContactList) Sensed(id ids.ObjectID) (Contact, bool) {
	contact, ok := l.Ship(id)
	if !ok || !contact.InSensorRange {
		return Contact{}, false
	}
	return contact, true
}

func (l *ContactList) remove(id ids.ObjectID) {
	if _, ok := l.byID[id]; !ok {
		return
	}
	kept := l.Ships[:0]
	for _, contact := range l.Ships {
		if contact.ID != id {
			kept = append(kept, contact)
		}
	}
	l.Ships = kept
	l.reindex()
}

func (l *ContactList) setScanLevel(self observer, id ids.ObjectID, level sim.ScanLevel) {
	i, ok := l.byID[id]
	if !ok {
		return
	}
	l.Ships[i].ScanLevel = level
	l.Ships[i].Type = Classify(self.Faction(), l.Ships[i].Faction, level)
}

// Classify derives the contact type. Factions are only identified by a scan,
// except one's own.
func Classify(own, other template.Faction, level sim.ScanLevel) proto.ContactType {
	switch {
	case own == other:
		return proto.ContactFriendly
	case level == sim.ScanNone || level == "":
		return proto.ContactUnknown
	case own.HostileTo(other):
		return proto.ContactEnemy
	default:
		return proto.ContactNeutral
	}
}

// ToProto projects a contact, revealing only what its scan level allows.
func (c Contact) ToProto() proto.Contact {
	out := proto.Contact{
		ID:            c.ID,
		ContactType:   c.Type,
		Position:      c.Position,
		Rotation:      c.Rotation,
		Heading:       geom.ToHeading(c.Rotation),
		Speed:         c.Velocity.Length(),
		Distance:      c.Distance,
		Bearing:       c.Bearing,
		InSensorRange: c.InSensorRange,
		ScanLevel:     string(c.ScanLevel),
	}
	if c.Type == proto.ContactFriendly || c.ScanLevel != sim.ScanNone {
		out.Designation = c.Designation
		out.ClassName = c.ClassName
		out.Faction = string(c.Faction)
	}
	if c.ScanLevel == sim.ScanBasic || c.ScanLevel == sim.ScanDetailed {
		hull := c.HullPercent
		out.HullPercent = &hull
	}
	if c.ScanLevel == sim.ScanDetailed {
		shields := c.ShieldPercent
		up := c.ShieldsUp
		out.ShieldPercent = &shields
		out.ShieldsUp = &up
		out.SystemDamage = make(map[string]float64, len(c.SystemDamage))
		for system, damage := range c.SystemDamage {
			out.SystemDamage[system] = damage
		}
	}
	return out
}

// SensedShips projects the ships within maxRange that are in sensor range.
func (l *ContactList) SensedShips(maxRange float64) []proto.Contact {
	out := make([]proto.Contact, 0, len(l.Ships))
	for _, contact := range l.Ships {
		if contact.InSensorRange && contact.Distance <= maxRange {
			out = append(out, contact.ToProto())
		}
	}
	return out
}

func (l *ContactList) AsteroidViews(maxRange float64) []proto.Asteroid {
	out := make([]proto.Asteroid, 0, len(l.Asteroids))
	for _, contact := range l.Asteroids {
		if contact.Distance > maxRange {
			continue
		}
		out = append(out, proto.Asteroid{
			ID:       contact.ID,
			Position: contact.Position,
			Rotation: contact.Rotation,
			Radius:   contact.Radius,
			Distance: contact.Distance,
		})
	}
	return out
}

func (l *ContactList) TorpedoViews(maxRange float64) []proto.Torpedo {
	out := make([]proto.Torpedo, 0, len(l.Torpedoes))
	for _, contact := range l.Torpedoes {
		if contact.Distance > maxRange {
			continue
		}
		out = append(out, proto.Torpedo{
			ID:       contact.ID,
			Position: contact.Position,
			Rotation: contact.Rotation,
			Faction:  string(contact.Faction),
		})
	}
	return out
}
