// Package server owns the authoritative game state and the actor that
// serializes every change to it.
package server

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

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

const (
	playerFaction     = template.FactionFederation
	playerSpawnRadius = 500.0
)

// Config seeds a GameState.
type Config struct {
	// Seed drives designations, spawn points and system damage rolls. Zero
	// picks a time based seed.
	Seed    int64
	Physics physics.Config
}

func DefaultConfig() Config {
	return Config{Physics: physics.DefaultConfig()}
}

// StationStateKind is what a client is currently looking at.
type StationStateKind string

const (
	StateShipSelection StationStateKind = "ship_selection"
	StateInShip        StationStateKind = "in_ship"
	StateShipDestroyed StationStateKind = "ship_destroyed"
)

type StationState struct {
	Kind    StationStateKind
	Ship    ids.ObjectID
	Station proto.Station
}

// Client is one connection's station state.
type Client struct {
	ID    ids.ClientID
	State StationState
}

// Asteroid is passive; its pose comes from the physics engine.
type Asteroid struct {
	ID       ids.ObjectID
	Position geom.Vector2
	Rotation float64
	Radius   float64
}

// Diagnostics summarises the world for the /diagnostics endpoint.
type Diagnostics struct {
	Tick        uint64  `json:"tick"`
	Time        float64 `json:"time"`
	Paused      bool    `json:"paused"`
	Clients     int     `json:"clients"`
	Ships       int     `json:"ships"`
	PlayerShips int     `json:"playerShips"`
	Asteroids   int     `json:"asteroids"`
	Torpedoes   int     `json:"torpedoes"`
	Bodies      int     `json:"bodies"`
}

// GameState is the single owner of every mutable entity. It is not safe
// for concurrent use; the Actor serializes access.
type GameState struct {
	logger    zerolog.Logger
	publisher logging.Publisher
	ctx       context.Context
	rng       *rand.Rand
	time      *sim.GameTime
	tick      uint64
	physics   physics.Engine

	ships         map[ids.ObjectID]ship.Ship
	shipOrder     []ids.ObjectID
	asteroids     map[ids.ObjectID]*Asteroid
	asteroidOrder []ids.ObjectID
	torpedoes     map[ids.ObjectID]*Torpedo
	torpedoOrder  []ids.ObjectID
	clients       map[ids.ClientID]*Client
}

var _ scenario.World = (*GameState)(nil)

func NewGameState(cfg Config, logger zerolog.Logger, publisher logging.Publisher) *GameState {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &GameState{
		logger:    logger.With().Str("component", "game_state").Logger(),
		publisher: publisher,
		ctx:       context.Background(),
		rng:       rand.New(rand.NewSource(seed)),
		time:      sim.NewGameTime(),
		physics:   physics.NewWorld(cfg.Physics),
		ships:     make(map[ids.ObjectID]ship.Ship),
		asteroids: make(map[ids.ObjectID]*Asteroid),
		torpedoes: make(map[ids.ObjectID]*Torpedo),
		clients:   make(map[ids.ClientID]*Client),
	}
}

// Populate runs a scenario against the empty world.
func (g *GameState) Populate(sc scenario.Scenario) {
	sc.Populate(g, g.rng)
	simulation.ScenarioLoaded(g.ctx, g.publisher, simulation.ScenarioLoadedPayload{
		Name:      sc.Name(),
		Ships:     len(g.ships),
		Asteroids: len(g.asteroids),
	})
	g.logger.Info().Str("scenario", sc.Name()).Int("ships", len(g.ships)).Int("asteroids", len(g.asteroids)).Msg("scenario loaded")
}

func (g *GameState) Tick() uint64 { return g.tick }

func (g *GameState) Time() *sim.GameTime { return g.time }

func (g *GameState) Paused() bool { return g.time.Paused }

func (g *GameState) Physics() physics.Engine { return g.physics }

func (g *GameState) Ship(id ids.ObjectID) (ship.Ship, bool) {
	s, ok := g.ships[id]
	return s, ok
}

func (g *GameState) Client(id ids.ClientID) (Client, bool) {
	c, ok := g.clients[id]
	if !ok {
		return Client{}, false
	}
	return *c, true
}

// Spawning

func (g *GameState) SpawnNPC(tmpl *template.ShipTemplate, faction template.Faction, pose physics.Pose, behaviour ship.Behaviour) ids.ObjectID {
	id := ids.NewObjectID()
	npc := ship.NewNonPlayerShip(id, template.RandomDesignation(g.rng), tmpl, faction, pose, g.rng, behaviour)
	if !g.addShip(npc) {
		return ""
	}
	payload := g.spawnPayload(npc)
	if behaviour != nil {
		payload.Behaviour = behaviour.Name()
	}
	lifecycle.ShipSpawned(g.ctx, g.publisher, g.tick, shipRef(id), payload)
	return id
}

func (g *GameState) spawnPlayerShip(tmpl *template.ShipTemplate, faction template.Faction, pose physics.Pose) ids.ObjectID {
	id := ids.NewObjectID()
	player := ship.NewPlayerShip(id, template.RandomDesignation(g.rng), tmpl, faction, pose, g.rng)
	if !g.addShip(player) {
		return ""
	}
	lifecycle.ShipSpawned(g.ctx, g.publisher, g.tick, shipRef(id), g.spawnPayload(player))
	return id
}

func (g *GameState) addShip(s ship.Ship) bool {
	if err := g.physics.AddBody(s.ID(), s.Body(), s.Pose()); err != nil {
		g.logger.Error().Err(err).Str("ship", s.ID().String()).Msg("failed to add ship body")
		return false
	}
	g.ships[s.ID()] = s
	g.shipOrder = append(g.shipOrder, s.ID())
	return true
}

func (g *GameState) spawnPayload(s ship.Ship) lifecycle.ShipSpawnedPayload {
	pose := s.Pose()
	return lifecycle.ShipSpawnedPayload{
		Designation: s.Designation(),
		ClassName:   s.Template().ClassName,
		Faction:     string(s.Faction()),
		X:           pose.Position.X,
		Y:           pose.Position.Y,
	}
}

func (g *GameState) SpawnAsteroid(position geom.Vector2, radius float64) ids.ObjectID {
	id := ids.NewObjectID()
	rotation := geom.NormalizeAngle(g.rng.Float64() * 2 * math.Pi)
	body := physics.Body{
		Kind:           physics.KindAsteroid,
		Radius:         radius,
		Mass:           radius * radius,
		LinearDamping:  0.5,
		AngularDamping: 0.5,
	}
	if err := g.physics.AddBody(id, body, physics.Pose{Position: position, Rotation: rotation}); err != nil {
		g.logger.Error().Err(err).Str("asteroid", id.String()).Msg("failed to add asteroid body")
		return ""
	}
	g.asteroids[id] = &Asteroid{ID: id, Position: position, Rotation: rotation, Radius: radius}
	g.asteroidOrder = append(g.asteroidOrder, id)
	return id
}

// Clients

func (g *GameState) ClientConnected(clientID ids.ClientID) {
	if _, ok := g.clients[clientID]; ok {
		return
	}
	g.clients[clientID] = &Client{ID: clientID, State: StationState{Kind: StateShipSelection}}
	lifecycle.ClientConnected(g.ctx, g.publisher, g.tick, clientRef(clientID))
}

func (g *GameState) ClientDisconnected(clientID ids.ClientID, reason string) {
	if _, ok := g.clients[clientID]; !ok {
		return
	}
	delete(g.clients, clientID)
	lifecycle.ClientDisconnected(g.ctx, g.publisher, g.tick, clientRef(clientID), lifecycle.ClientDisconnectedPayload{Reason: reason})
}

func (g *GameState) TogglePause(clientID ids.ClientID) {
	if _, ok := g.clients[clientID]; !ok {
		return
	}
	g.time.SetPaused(!g.time.Paused)
	simulation.PauseToggled(g.ctx, g.publisher, g.tick, clientRef(clientID), simulation.PauseToggledPayload{Paused: g.time.Paused})
}

// SpawnShip launches a new player ship near the origin. The client stays
// in ship selection and joins with a separate command.
func (g *GameState) SpawnShip(clientID ids.ClientID) {
	client, ok := g.clients[clientID]
	if !ok || client.State.Kind != StateShipSelection {
		return
	}
	angle := g.rng.Float64() * 2 * math.Pi
	pose := physics.Pose{
		Position: geom.FromAngle(angle).Scale(math.Sqrt(g.rng.Float64()) * playerSpawnRadius),
		Rotation: geom.NormalizeAngle(g.rng.Float64() * 2 * math.Pi),
	}
	g.spawnPlayerShip(template.Cruiser(), playerFaction, pose)
}

func (g *GameState) JoinShip(clientID ids.ClientID, shipID ids.ObjectID, station proto.Station) {
	client, ok := g.clients[clientID]
	if !ok || client.State.Kind != StateShipSelection || !station.Valid() {
		return
	}
	if _, ok := g.playerShip(shipID); !ok {
		return
	}
	client.State = StationState{Kind: StateInShip, Ship: shipID, Station: station}
	lifecycle.ShipJoined(g.ctx, g.publisher, g.tick, clientRef(clientID), shipRef(shipID), lifecycle.ShipJoinedPayload{Station: string(station)})
}

func (g *GameState) ChangeStation(clientID ids.ClientID, station proto.Station) {
	client, ok := g.clients[clientID]
	if !ok || client.State.Kind != StateInShip || !station.Valid() {
		return
	}
	client.State.Station = station
}

func (g *GameState) ExitShip(clientID ids.ClientID) {
	client, ok := g.clients[clientID]
	if !ok || client.State.Kind == StateShipSelection {
		return
	}
	client.State = StationState{Kind: StateShipSelection}
}

// HandleCommand applies a ship command for the client's current ship.
// Commands from clients not aboard a live ship are dropped.
func (g *GameState) HandleCommand(clientID ids.ClientID, cmd proto.Command) {
	switch c := cmd.(type) {
	case proto.CommandSpawnShip:
		g.SpawnShip(clientID)
		return
	case proto.CommandJoinShip:
		g.JoinShip(clientID, c.ObjectID, c.Station)
		return
	case proto.CommandChangeStation:
		g.ChangeStation(clientID, c.Station)
		return
	case proto.CommandExitShip:
		g.ExitShip(clientID)
		return
	case proto.CommandTogglePause:
		g.TogglePause(clientID)
		return
	}

	s, ok := g.clientShip(clientID)
	if !ok {
		return
	}
	switch c := cmd.(type) {
	case proto.CommandChangeThrottle:
		s.ChangeThrottle(c.Value)
	case proto.CommandChangeRudder:
		s.ChangeRudder(c.Value)
	case proto.CommandChangeJumpDistance:
		s.ChangeJumpDistance(c.Value)
	case proto.CommandStartJump:
		s.StartJump()
	case proto.CommandSetPower:
		s.SetPower(c.SystemType, c.Power)
	case proto.CommandSetCoolant:
		s.SetCoolant(c.SystemType, c.Coolant)
	case proto.CommandRepair:
		s.Repair(c.SystemType)
	case proto.CommandLockTarget:
		s.LockTarget(c.TargetID)
	case proto.CommandScanShip:
		s.ScanShip(c.TargetID)
	case proto.CommandAdjustScan:
		s.AdjustScan(c.Index, c.Value)
	case proto.CommandAddWaypoint:
		s.AddWaypoint(c.Position)
	case proto.CommandDeleteWaypoint:
		s.DeleteWaypoint(c.Index)
	case proto.CommandMapSelectShip:
		s.MapSelectShip(c.TargetID)
	case proto.CommandMapSelectWaypoint:
		s.MapSelectWaypoint(c.Index)
	case proto.CommandMapClearSelection:
		s.MapClearSelection()
	case proto.CommandToggleShieldsUp:
		s.ToggleShieldsUp()
	case proto.CommandMainScreenView:
		s.SetMainScreenView(c.View)
	case proto.CommandStartReload:
		s.StartReload(c.Index)
	case proto.CommandLaunchTorpedo:
		s.LaunchTorpedo(c.Index)
	}
}

func (g *GameState) playerShip(id ids.ObjectID) (*ship.PlayerShip, bool) {
	s, ok := g.ships[id]
	if !ok {
		return nil, false
	}
	player, ok := s.(*ship.PlayerShip)
	return player, ok
}

func (g *GameState) clientShip(clientID ids.ClientID) (*ship.PlayerShip, bool) {
	client, ok := g.clients[clientID]
	if !ok || client.State.Kind != StateInShip {
		return nil, false
	}
	return g.playerShip(client.State.Ship)
}

// Update advances the world to now. Paused worlds do not move.
func (g *GameState) Update(now time.Time) {
	if g.time.Paused {
		return
	}
	g.time.Update(now)
	g.advance()
}

// step advances by a fixed delta.
func (g *GameState) step(delta float64) {
	if g.time.Paused {
		return
	}
	g.time.Advance(delta)
	g.advance()
}

func (g *GameState) advance() {
	g.tick++
	g.physics.Step(g.time.Delta)

	for _, id := range g.shipOrder {
		g.ships[id].SyncPose(g.physics)
	}
	g.syncTorpedoes()

	ctx := &ship.UpdateContext{
		Time:         g.time,
		Physics:      g.physics,
		Observations: g.observations(),
	}
	for _, id := range g.shipOrder {
		g.ships[id].Update(ctx)
	}

	g.drainShipOutputs()
	g.launchTorpedoes()
	g.updateTorpedoes(g.time.Delta)
	g.resolveDestroyed()
	g.syncAsteroids()
}

// observations snapshots every entity before any ship updates.
func (g *GameState) observations() []ship.Observation {
	out := make([]ship.Observation, 0, len(g.ships)+len(g.asteroids)+len(g.torpedoes))
	for _, id := range g.shipOrder {
		out = append(out, g.ships[id].Observation())
	}
	for _, id := range g.asteroidOrder {
		a := g.asteroids[id]
		out = append(out, ship.Observation{
			ID:       a.ID,
			Kind:     physics.KindAsteroid,
			Position: a.Position,
			Rotation: a.Rotation,
			Radius:   a.Radius,
		})
	}
	for _, id := range g.torpedoOrder {
		out = append(out, g.torpedoes[id].observation())
	}
	return out
}

// drainShipOutputs publishes ship events and applies beam damage queued
// during the ship updates.
func (g *GameState) drainShipOutputs() {
	for _, id := range g.shipOrder {
		s := g.ships[id]
		for _, event := range s.TakeEvents() {
			g.publishShipEvent(s, event)
		}
		for _, hit := range s.TakeDamage() {
			target, ok := g.ships[hit.Target]
			if !ok {
				continue
			}
			target.ApplyDamage(hit.Amount)
			combat.BeamHit(g.ctx, g.publisher, g.tick, shipRef(hit.Source), shipRef(hit.Target), combat.BeamHitPayload{
				Amount: hit.Amount,
				Hull:   target.Hull(),
			})
		}
	}
}

func (g *GameState) publishShipEvent(s ship.Ship, event ship.Event) {
	switch event.Kind {
	case ship.EventJumpCompleted:
		pose := s.Pose()
		simulation.JumpCompleted(g.ctx, g.publisher, g.tick, shipRef(s.ID()), simulation.JumpCompletedPayload{X: pose.Position.X, Y: pose.Position.Y})
	case ship.EventScanCompleted:
		combat.ScanCompleted(g.ctx, g.publisher, g.tick, shipRef(s.ID()), shipRef(event.Target), combat.ScanCompletedPayload{Level: event.Detail})
	case ship.EventLockAcquired:
		combat.LockAcquired(g.ctx, g.publisher, g.tick, shipRef(s.ID()), shipRef(event.Target))
	}
}

// resolveDestroyed removes every ship whose hull reached zero this tick.
// Detection finishes before any removal.
func (g *GameState) resolveDestroyed() {
	var destroyed []ids.ObjectID
	for _, id := range g.shipOrder {
		if g.ships[id].Destroyed() {
			destroyed = append(destroyed, id)
		}
	}
	if len(destroyed) == 0 {
		return
	}

	for _, id := range destroyed {
		s := g.ships[id]
		for _, otherID := range g.shipOrder {
			if otherID != id {
				g.ships[otherID].TargetDestroyed(id)
			}
		}
		for _, torpedo := range g.torpedoes {
			if torpedo.Target == id {
				torpedo.Target = ""
			}
		}
		observers := 0
		for _, client := range g.clients {
			if client.State.Kind == StateInShip && client.State.Ship == id {
				client.State = StationState{Kind: StateShipDestroyed}
				observers++
			}
		}
		g.physics.RemoveBody(id)
		delete(g.ships, id)
		lifecycle.ShipDestroyed(g.ctx, g.publisher, g.tick, shipRef(id), lifecycle.ShipDestroyedPayload{
			Designation: s.Designation(),
			Observers:   observers,
		})
	}
	g.shipOrder = compact(g.shipOrder, func(id ids.ObjectID) bool {
		_, ok := g.ships[id]
		return ok
	})
}

func (g *GameState) syncAsteroids() {
	for _, id := range g.asteroidOrder {
		if pose, ok := g.physics.Pose(id); ok {
			a := g.asteroids[id]
			a.Position = pose.Position
			a.Rotation = pose.Rotation
		}
	}
}

// ToMessage projects the client's current view. Unknown clients get nil.
func (g *GameState) ToMessage(clientID ids.ClientID) proto.Snapshot {
	client, ok := g.clients[clientID]
	if !ok {
		return nil
	}
	switch client.State.Kind {
	case StateInShip:
		if s, ok := g.playerShip(client.State.Ship); ok {
			return s.StationMessage(client.State.Station, g.time.Paused)
		}
		return proto.ShipDestroyed{}
	case StateShipDestroyed:
		return proto.ShipDestroyed{}
	default:
		return g.shipSelection()
	}
}

func (g *GameState) shipSelection() proto.ShipSelection {
	ships := make([]proto.SelectableShip, 0)
	for _, id := range g.shipOrder {
		if player, ok := g.playerShip(id); ok {
			ships = append(ships, proto.SelectableShip{
				ID:          id,
				Designation: player.Designation(),
				ClassName:   player.Template().ClassName,
				Faction:     string(player.Faction()),
			})
		}
	}
	return proto.ShipSelection{Ships: ships, Paused: g.time.Paused}
}

func (g *GameState) Diagnostics() Diagnostics {
	players := 0
	for _, id := range g.shipOrder {
		if _, ok := g.playerShip(id); ok {
			players++
		}
	}
	return Diagnostics{
		Tick:        g.tick,
		Time:        g.time.Current,
		Paused:      g.time.Paused,
		Clients:     len(g.clients),
		Ships:       len(g.ships),
		PlayerShips: players,
		Asteroids:   len(g.asteroids),
		Torpedoes:   len(g.torpedoes),
		Bodies:      g.physics.BodyCount(),
	}
}

func shipRef(id ids.ObjectID) logging.EntityRef {
	return logging.Ref(id, logging.EntityKindShip)
}

func clientRef(id ids.ClientID) logging.EntityRef {
	return logging.Ref(id, logging.EntityKindClient)
}

func compact(order []ids.ObjectID, keep func(ids.ObjectID) bool) []ids.ObjectID {
	out := order[:0]
	for _, id := range order {
		if keep(id) {
			out = append(out, id)
		}
	}
	return out
}
