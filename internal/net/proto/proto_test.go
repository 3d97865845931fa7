package proto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridgesim/server/internal/geom"
)

func TestDecodeCommand(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    Command
	}{
		{"acknowledge", `{"type":"UpdateAcknowledge","counter":42}`, UpdateAcknowledge{Counter: 42}},
		{"spawn", `{"type":"CommandSpawnShip"}`, CommandSpawnShip{}},
		{"join", `{"type":"CommandJoinShip","objectId":"abc","station":"Helm"}`, CommandJoinShip{ObjectID: "abc", Station: StationHelm}},
		{"throttle", `{"type":"CommandChangeThrottle","value":-40}`, CommandChangeThrottle{Value: -40}},
		{"jump distance", `{"type":"CommandChangeJumpDistance","value":0.2}`, CommandChangeJumpDistance{Value: 0.2}},
		{"power", `{"type":"CommandSetPower","systemType":"Impulse","power":150}`, CommandSetPower{SystemType: "Impulse", Power: 150}},
		{"waypoint", `{"type":"CommandAddWaypoint","position":{"x":10,"y":-5}}`, CommandAddWaypoint{Position: geom.Vec(10, -5)}},
		{"view", `{"type":"CommandMainScreenView","view":"ShortRangeScope"}`, CommandMainScreenView{View: ViewShortRangeScope}},
		{"reload", `{"type":"CommandStartReload","index":1}`, CommandStartReload{Index: 1}},
		{"pause", `{"type":"CommandTogglePause"}`, CommandTogglePause{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := DecodeCommand([]byte(tc.payload))
			require.NoError(t, err)
			assert.Equal(t, tc.want, cmd)
		})
	}
}

func TestDecodeCommandErrors(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"type":"CommandSelfDestruct"}`))
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = DecodeCommand([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeCommand([]byte(`{"counter":1}`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeCommand([]byte(`{"type":"CommandChangeThrottle","value":"fast"}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEncodeCommandRoundTripsThroughDecode(t *testing.T) {
	payload, err := EncodeCommand(CommandLockTarget{TargetID: "target"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"CommandLockTarget","targetId":"target"}`, string(payload))

	payload, err = EncodeCommand(CommandExitShip{})
	require.NoError(t, err)
	assert.Equal(t, `{"type":"CommandExitShip"}`, string(payload))
}

func TestSnapshotsCarryTypeDiscriminant(t *testing.T) {
	payload, err := EncodeSnapshot(ShipDestroyed{})
	require.NoError(t, err)
	assert.Equal(t, `{"type":"ShipDestroyed"}`, string(payload))

	payload, err = EncodeSnapshot(Helm{Throttle: 50, Jump: Jump{State: "Ready"}})
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "Helm", decoded["type"])
	assert.Equal(t, float64(50), decoded["throttle"])
}

func TestFrameRoundTrip(t *testing.T) {
	snapshot := ShipSelection{Ships: []SelectableShip{{ID: "a", Designation: "ISS-001", ClassName: "Cruiser", Faction: "Federation"}}}
	payload, err := EncodeFrame(7, snapshot)
	require.NoError(t, err)

	counter, decoded, err := DecodeFrame(payload)
	require.NoError(t, err)
	assert.Equal(t, int64(7), counter)
	assert.Equal(t, snapshot, decoded)
}

func TestUnscannedContactOmitsDetail(t *testing.T) {
	payload, err := json.Marshal(Contact{ID: "x", ContactType: ContactUnknown, ScanLevel: "None"})
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	for _, key := range []string{"hullPercent", "shieldPercent", "systemDamage", "designation"} {
		assert.NotContains(t, decoded, key)
	}
}

func TestStationValid(t *testing.T) {
	assert.True(t, StationEngineering.Valid())
	assert.False(t, Station("Galley").Valid())
}
