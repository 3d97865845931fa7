// Package template holds the static balance data ships are built from.
package template

import "bridgesim/server/internal/geom"

// ShipTemplate describes a ship class. Templates are read-only once built.
type ShipTemplate struct {
	ClassName string

	AheadThrustFactor      float64
	ReverseThrustFactor    float64
	RudderFactor           float64
	ThrottleResponsiveness float64 // throttle units per second
	LinearDamping          float64
	AngularDamping         float64

	Hull                 float64
	Radius               float64
	SensorRange          float64
	ShortRangeScopeRange float64
	LockingSpeed         float64

	Shields   Shields
	JumpDrive JumpDrive
	Beams     []BeamWeapon
	Tubes     []Tube
	Magazine  int
	Torpedo   Torpedo
	Reactor   Reactor
	Scan      Scan
}

type Shields struct {
	Strength           float64
	RechargeSpeed      float64
	FailureStrength    float64
	ActivationStrength float64
}

type JumpDrive struct {
	MinDistance       int
	MaxDistance       int
	DistanceIncrement int
	JumpingSpeed      float64
	RechargeSpeed     float64
}

// BeamWeapon is one beam mount. Arcs are in degrees measured from the bow;
// LeftArc counter-clockwise and RightArc clockwise.
type BeamWeapon struct {
	Name          string
	Position      geom.Vector2
	MinRange      float64
	MaxRange      float64
	LeftArc       float64
	RightArc      float64
	RechargeSpeed float64
	FiringSpeed   float64
	Damage        float64 // per second of firing
}

type Tube struct {
	ReloadSpeed float64
}

type Torpedo struct {
	Thrust   float64
	BurnTime float64
	Damage   float64
	Radius   float64
	TurnRate float64 // radians per second
}

type Reactor struct {
	CoolantCapacity    float64
	HeatRate           float64
	CoolRate           float64
	DamageHeatRate     float64
	OverheatDamageRate float64
	RepairSpeed        float64
	RepairAmount       float64
	SystemDamageFactor float64
}

type Scan struct {
	Dimensions        int
	Tolerance         float64
	Noise             float64
	MinSolvedDuration float64
}

// Cruiser is the default player ship class.
func Cruiser() *ShipTemplate {
	return &ShipTemplate{
		ClassName:              "Cruiser",
		AheadThrustFactor:      40,
		ReverseThrustFactor:    15,
		RudderFactor:           6,
		ThrottleResponsiveness: 50,
		LinearDamping:          0.3,
		AngularDamping:         2,
		Hull:                   100,
		Radius:                 12,
		SensorRange:            2000,
		ShortRangeScopeRange:   500,
		LockingSpeed:           0.5,
		Shields: Shields{
			Strength:           100,
			RechargeSpeed:      2,
			FailureStrength:    5,
			ActivationStrength: 20,
		},
		JumpDrive: JumpDrive{
			MinDistance:       1000,
			MaxDistance:       11000,
			DistanceIncrement: 500,
			JumpingSpeed:      0.25,
			RechargeSpeed:     0.05,
		},
		Beams: []BeamWeapon{
			{Name: "port", Position: geom.Vec(2, 6), MinRange: 25, MaxRange: 200, LeftArc: 90, RightArc: 10, RechargeSpeed: 0.5, FiringSpeed: 1, Damage: 5},
			{Name: "starboard", Position: geom.Vec(2, -6), MinRange: 25, MaxRange: 200, LeftArc: 10, RightArc: 90, RechargeSpeed: 0.5, FiringSpeed: 1, Damage: 5},
		},
		Tubes:    []Tube{{ReloadSpeed: 0.2}, {ReloadSpeed: 0.2}},
		Magazine: 8,
		Torpedo: Torpedo{
			Thrust:   120,
			BurnTime: 8,
			Damage:   30,
			Radius:   2,
			TurnRate: 1.5,
		},
		Reactor: Reactor{
			CoolantCapacity:    2,
			HeatRate:           0.1,
			CoolRate:           0.15,
			DamageHeatRate:     0.05,
			OverheatDamageRate: 0.05,
			RepairSpeed:        0.2,
			RepairAmount:       0.25,
			SystemDamageFactor: 1,
		},
		Scan: Scan{
			Dimensions:        4,
			Tolerance:         0.05,
			Noise:             0.03,
			MinSolvedDuration: 0.5,
		},
	}
}

// Frigate is a light combat NPC class.
func Frigate() *ShipTemplate {
	tmpl := Cruiser()
	tmpl.ClassName = "Frigate"
	tmpl.AheadThrustFactor = 30
	tmpl.Hull = 60
	tmpl.Radius = 9
	tmpl.SensorRange = 1500
	tmpl.Shields.Strength = 50
	tmpl.Shields.RechargeSpeed = 1
	tmpl.Beams = []BeamWeapon{
		{Name: "bow", Position: geom.Vec(6, 0), MinRange: 0, MaxRange: 150, LeftArc: 45, RightArc: 45, RechargeSpeed: 0.4, FiringSpeed: 1, Damage: 3},
	}
	tmpl.Tubes = nil
	tmpl.Magazine = 0
	return tmpl
}

// Freighter is an unarmed NPC class.
func Freighter() *ShipTemplate {
	tmpl := Cruiser()
	tmpl.ClassName = "Freighter"
	tmpl.AheadThrustFactor = 15
	tmpl.RudderFactor = 3
	tmpl.Hull = 150
	tmpl.Radius = 18
	tmpl.Shields.Strength = 30
	tmpl.Beams = nil
	tmpl.Tubes = nil
	tmpl.Magazine = 0
	return tmpl
}

// ByName returns a template by class name.
func ByName(name string) (*ShipTemplate, bool) {
	switch name {
	case "Cruiser":
		return Cruiser(), true
	case "Frigate":
		return Frigate(), true
	case "Freighter":
		return Freighter(), true
	}
	return nil, false
}
