package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridgesim/server/logging"
)

func sampleEvent() logging.Event {
	return logging.Event{
		Type:     "combat.beam_hit",
		Tick:     7,
		Time:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Actor:    logging.Ref("ship-1", logging.EntityKindShip),
		Targets:  []logging.EntityRef{logging.Ref("ship-2", logging.EntityKindShip)},
		Severity: logging.SeverityWarn,
		Category: logging.CategoryCombat,
		Payload:  map[string]float64{"amount": 5},
	}
}

func TestJSONWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, 0)
	require.NoError(t, sink.Write(sampleEvent()))
	require.NoError(t, sink.Write(sampleEvent()))
	require.NoError(t, sink.Close(context.Background()))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &decoded))
	assert.Equal(t, "combat.beam_hit", decoded["type"])
	assert.Equal(t, "warn", decoded["severity"])
	assert.EqualValues(t, 7, decoded["tick"])
	assert.Equal(t, map[string]any{"amount": float64(5)}, decoded["payload"])
}

func TestZerologWritesAtEventLevel(t *testing.T) {
	var buf bytes.Buffer
	sink := NewZerolog(zerolog.New(&buf))
	require.NoError(t, sink.Write(sampleEvent()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "warn", decoded["level"])
	assert.Equal(t, "combat.beam_hit", decoded["message"])
	assert.Equal(t, "ship-1", decoded["actor"])
	assert.Equal(t, []any{"ship-2"}, decoded["targets"])
}

func TestMemorySinkOfTypeAndReset(t *testing.T) {
	sink := NewMemorySink()
	require.NoError(t, sink.Write(sampleEvent()))
	require.NoError(t, sink.Write(logging.Event{Type: "other"}))

	assert.Len(t, sink.OfType("combat.beam_hit"), 1)
	sink.Reset()
	assert.Empty(t, sink.Events())
}

func TestFromConfig(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = []string{"zerolog", "json", "memory"}
	cfg.JSON.FilePath = filepath.Join(t.TempDir(), "events.jsonl")

	named, err := FromConfig(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, named, 3)
	assert.Equal(t, "json", named[1].Name)
	for _, n := range named {
		require.NoError(t, n.Sink.Close(context.Background()))
	}

	cfg.EnabledSinks = []string{"carrier-pigeon"}
	_, err = FromConfig(cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "carrier-pigeon")
}
