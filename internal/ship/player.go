package ship

import (
	"math/rand"

	"bridgesim/server/internal/geom"
	"bridgesim/server/internal/ids"
	"bridgesim/server/internal/net/proto"
	"bridgesim/server/internal/physics"
	"bridgesim/server/internal/template"
)

// MaxWaypoints caps the navigation plot.
const MaxWaypoints = 16

// SelectionKind is the navigation map selection variant.
type SelectionKind string

const (
	SelectNone     SelectionKind = "None"
	SelectWaypoint SelectionKind = "Waypoint"
	SelectShip     SelectionKind = "Ship"
)

// MapSelection is the transient navigation selection. It is cleared when
// the referenced waypoint or ship goes away.
type MapSelection struct {
	Kind   SelectionKind
	Index  int
	Target ids.ObjectID
}

// PlayerShip is a ship crewed by clients.
type PlayerShip struct {
	core

	waypoints []geom.Vector2
	selection MapSelection
	view      proto.MainScreenView
}

var _ Ship = (*PlayerShip)(nil)

func NewPlayerShip(id ids.ObjectID, designation string, tmpl *template.ShipTemplate, faction template.Faction, pose physics.Pose, rng *rand.Rand) *PlayerShip {
	return &PlayerShip{
		core:      newCore(id, designation, tmpl, faction, pose, rng),
		selection: MapSelection{Kind: SelectNone},
		view:      proto.ViewMain3d,
	}
}

func (p *PlayerShip) Update(ctx *UpdateContext) {
	p.observe(ctx)
	p.update(ctx)
	p.validateSelection()
}

func (p *PlayerShip) TargetDestroyed(id ids.ObjectID) {
	p.core.TargetDestroyed(id)
	if p.selection.Kind == SelectShip && p.selection.Target == id {
		p.selection = MapSelection{Kind: SelectNone}
	}
}

func (p *PlayerShip) validateSelection() {
	switch p.selection.Kind {
	case SelectShip:
		if _, ok := p.contacts.Sensed(p.selection.Target); !ok {
			p.selection = MapSelection{Kind: SelectNone}
		}
	case SelectWaypoint:
		if p.selection.Index < 0 || p.selection.Index >= len(p.waypoints) {
			p.selection = MapSelection{Kind: SelectNone}
		}
	}
}

func (p *PlayerShip) Waypoints() []geom.Vector2 {
	return append([]geom.Vector2(nil), p.waypoints...)
}

func (p *PlayerShip) Selection() MapSelection { return p.selection }

func (p *PlayerShip) MainScreenView() proto.MainScreenView { return p.view }

func (p *PlayerShip) AddWaypoint(position geom.Vector2) bool {
	if len(p.waypoints) >= MaxWaypoints {
		return false
	}
	p.waypoints = append(p.waypoints, position)
	return true
}

// DeleteWaypoint removes a waypoint and keeps a waypoint selection pointing
// at the same point.
func (p *PlayerShip) DeleteWaypoint(index int) bool {
	if index < 0 || index >= len(p.waypoints) {
		return false
	}
	p.waypoints = append(p.waypoints[:index], p.waypoints[index+1:]...)
	if p.selection.Kind == SelectWaypoint {
		switch {
		case p.selection.Index == index:
			p.selection = MapSelection{Kind: SelectNone}
		case p.selection.Index > index:
			p.selection.Index--
		}
	}
	return true
}

func (p *PlayerShip) MapSelectShip(target ids.ObjectID) bool {
	if _, ok := p.contacts.Sensed(target); !ok {
		return false
	}
	p.selection = MapSelection{Kind: SelectShip, Target: target}
	return true
}

func (p *PlayerShip) MapSelectWaypoint(index int) bool {
	if index < 0 || index >= len(p.waypoints) {
		return false
	}
	p.selection = MapSelection{Kind: SelectWaypoint, Index: index}
	return true
}

func (p *PlayerShip) MapClearSelection() {
	p.selection = MapSelection{Kind: SelectNone}
}

func (p *PlayerShip) SetMainScreenView(view proto.MainScreenView) {
	switch view {
	case proto.ViewMain3d, proto.ViewShortRangeScope:
		p.view = view
	}
}

// StationMessage projects the view for one station.
func (p *PlayerShip) StationMessage(station proto.Station, paused bool) proto.Snapshot {
	switch station {
	case proto.StationHelm:
		return p.HelmMessage(paused)
	case proto.StationWeapons:
		return p.WeaponsMessage(paused)
	case proto.StationNavigation:
		return p.NavigationMessage(paused)
	case proto.StationEngineering:
		return p.EngineeringMessage(paused)
	default:
		return p.MainScreenMessage(paused)
	}
}

func (p *PlayerShip) status() proto.ShipStatus {
	return proto.ShipStatus{
		ID:          p.id,
		Designation: p.designation,
		ClassName:   p.tmpl.ClassName,
		Position:    p.pose.Position,
		Rotation:    p.pose.Rotation,
		Heading:     geom.ToHeading(p.pose.Rotation),
		Speed:       p.pose.Velocity.Length(),
		Hull:        geom.Clamp(p.hull, 0, p.tmpl.Hull),
		HullMax:     p.tmpl.Hull,
		ShieldsUp:   p.shields.Up(),
		Shields:     p.shields.Strength(),
		ShieldsMax:  p.shields.Max(),
	}
}

func (p *PlayerShip) waypointViews() []proto.Waypoint {
	out := make([]proto.Waypoint, 0, len(p.waypoints))
	for i, position := range p.waypoints {
		out = append(out, proto.Waypoint{
			Index:    i,
			Position: position,
			Distance: p.pose.Position.Distance(position),
			Bearing:  geom.RelativeBearing(p.pose.Position, p.pose.Rotation, position),
		})
	}
	return out
}

func (p *PlayerShip) HelmMessage(paused bool) proto.Helm {
	drive := p.tmpl.JumpDrive
	return proto.Helm{
		Ship:         p.status(),
		Throttle:     p.throttle.Requested(),
		ActualThrust: p.throttle.Actual(),
		Rudder:       p.rudder,
		Jump: proto.Jump{
			State:         string(p.jump.State()),
			Progress:      p.jump.Progress(),
			Distance:      p.jump.Distance(),
			DistanceRatio: p.jump.DistanceRatio(),
			MinDistance:   drive.MinDistance,
			MaxDistance:   drive.MaxDistance,
		},
		Contacts:  p.contacts.SensedShips(p.tmpl.SensorRange),
		Asteroids: p.contacts.AsteroidViews(p.tmpl.SensorRange),
		Waypoints: p.waypointViews(),
		Paused:    paused,
	}
}

func (p *PlayerShip) WeaponsMessage(paused bool) proto.Weapons {
	lock := proto.Lock{Progress: p.lock.Progress(), Complete: p.lock.IsComplete()}
	if target, ok := p.lock.Target(); ok {
		lock.TargetID = target
	}
	beams := make([]proto.Beam, 0, len(p.beams))
	for _, beam := range p.beams {
		mount := beam.Mount()
		beams = append(beams, proto.Beam{
			Name:     mount.Name,
			State:    string(beam.State()),
			Progress: beam.Progress(),
			LeftArc:  mount.LeftArc,
			RightArc: mount.RightArc,
			MinRange: mount.MinRange,
			MaxRange: mount.MaxRange,
		})
	}
	tubes := make([]proto.Tube, 0, len(p.tubes.Tubes()))
	for i, tube := range p.tubes.Tubes() {
		tubes = append(tubes, proto.Tube{Index: i, State: string(tube.State()), Progress: tube.Progress()})
	}
	return proto.Weapons{
		Ship:        p.status(),
		Lock:        lock,
		Beams:       beams,
		Tubes:       tubes,
		Magazine:    p.tubes.Magazine(),
		MagazineMax: p.tubes.MagazineMax(),
		Contacts:    p.contacts.SensedShips(p.tmpl.SensorRange),
		Asteroids:   p.contacts.AsteroidViews(p.tmpl.SensorRange),
		Torpedoes:   p.contacts.TorpedoViews(p.tmpl.SensorRange),
		Paused:      paused,
	}
}

func (p *PlayerShip) NavigationMessage(paused bool) proto.Navigation {
	selection := proto.MapSelection{Kind: string(p.selection.Kind)}
	switch p.selection.Kind {
	case SelectWaypoint:
		index := p.selection.Index
		selection.Index = &index
	case SelectShip:
		selection.TargetID = p.selection.Target
	}
	msg := proto.Navigation{
		Ship:         p.status(),
		SensorRange:  p.tmpl.SensorRange,
		Contacts:     p.contacts.SensedShips(p.tmpl.SensorRange),
		Asteroids:    p.contacts.AsteroidViews(p.tmpl.SensorRange),
		Waypoints:    p.waypointViews(),
		MapSelection: selection,
		Paused:       paused,
	}
	if scan, ok := p.ActiveScan(); ok {
		msg.Scan = &proto.Scan{
			TargetID: scan.Target(),
			Progress: scan.Progress(),
			Inputs:   scan.Minigame().Inputs(),
			Signals:  scan.Minigame().Signals(),
		}
	}
	return msg
}

func (p *PlayerShip) EngineeringMessage(paused bool) proto.Engineering {
	systems := p.power.Systems()
	views := make([]proto.PoweredSystem, 0, len(systems))
	used := 0.0
	for _, system := range systems {
		used += system.Coolant
		views = append(views, proto.PoweredSystem{
			Type:    string(system.Type),
			Level:   system.Level,
			Heat:    system.Heat,
			Coolant: system.Coolant,
			Damage:  system.Damage,
			Boost:   p.power.BoostLevel(system.Type),
		})
	}
	msg := proto.Engineering{
		Ship:            p.status(),
		Systems:         views,
		CoolantCapacity: p.power.CoolantCapacity(),
		CoolantUsed:     used,
		Paused:          paused,
	}
	if job, ok := p.power.Repair(); ok {
		msg.Repair = &proto.Repair{SystemType: string(job.System), Progress: job.Progress}
	}
	return msg
}

func (p *PlayerShip) MainScreenMessage(paused bool) proto.Snapshot {
	if p.view == proto.ViewShortRangeScope {
		scope := p.tmpl.ShortRangeScopeRange
		return proto.MainScreenShortRangeScope{
			Ship:      p.status(),
			Range:     scope,
			Contacts:  p.contacts.SensedShips(scope),
			Asteroids: p.contacts.AsteroidViews(scope),
			Torpedoes: p.contacts.TorpedoViews(scope),
			Waypoints: p.waypointViews(),
			Trail:     p.history.Points(),
			Paused:    paused,
		}
	}
	return proto.MainScreen3d{
		Ship:      p.status(),
		Contacts:  p.contacts.SensedShips(p.tmpl.SensorRange),
		Asteroids: p.contacts.AsteroidViews(p.tmpl.SensorRange),
		Torpedoes: p.contacts.TorpedoViews(p.tmpl.SensorRange),
		Paused:    paused,
	}
}
