package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	server "bridgesim/server"
	"bridgesim/server/internal/config"
	"bridgesim/server/internal/net/proto"
)

func testSettings() config.Settings {
	return config.Settings{
		LogLevel: "debug",
		Server:   config.ServerConfig{Addr: "127.0.0.1:0"},
		Simulation: config.SimulationConfig{
			TickInterval:   10 * time.Millisecond,
			TickBudgetWarn: 1.5,
			Seed:           11,
			Scenario:       "default",
		},
		Session: config.SessionConfig{
			SnapshotInterval: 5 * time.Millisecond,
			MaxInFlight:      3,
			CommandRate:      120,
			CommandBurst:     60,
			PingInterval:     time.Second,
			ReadTimeout:      5 * time.Second,
		},
		Physics: config.PhysicsConfig{Extent: 40000, CellSize: 500},
		Log:     config.LogConfig{Sinks: []string{"memory"}},
	}
}

func startApp(t *testing.T, settings config.Settings) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ready := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{
			Settings: settings,
			Output:   io.Discard,
			Ready:    func(addr net.Addr) { ready <- addr },
		})
	}()
	select {
	case addr := <-ready:
		return addr.String(), cancel, done
	case err := <-done:
		t.Fatalf("app exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not start")
	}
	return "", cancel, done
}

func TestRunServesAndShutsDown(t *testing.T) {
	addr, cancel, done := startApp(t, testSettings())

	resp, err := http.Get("http://" + addr + "/health")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get("http://" + addr + "/diagnostics")
	require.NoError(t, err)
	var payload struct {
		Game server.Diagnostics `json:"game"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()
	assert.Equal(t, 2, payload.Game.Ships)
	assert.Equal(t, 25, payload.Game.Asteroids)

	conn, wsResp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	require.NoError(t, err)
	defer wsResp.Body.Close()
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	counter, snapshot, err := proto.DecodeFrame(frame)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counter)
	assert.IsType(t, proto.ShipSelection{}, snapshot)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not shut down")
	}

	// The open session is closed with the server.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for err == nil {
		_, _, err = conn.ReadMessage()
	}
	assert.Error(t, err)
}

func TestRunExposesMetricsWhenEnabled(t *testing.T) {
	settings := testSettings()
	settings.Metrics.Enabled = true
	addr, _, _ := startApp(t, settings)

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/diagnostics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var payload struct {
			Metrics map[string]float64 `json:"metrics"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return false
		}
		return payload.Metrics["simulation.ticks"] > 0
	}, 3*time.Second, 20*time.Millisecond)
}

func TestRunRejectsUnknownScenario(t *testing.T) {
	settings := testSettings()
	settings.Simulation.Scenario = "armada"

	err := Run(context.Background(), Config{Settings: settings, Output: io.Discard})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "armada")
}

func TestRunRejectsUnknownSink(t *testing.T) {
	settings := testSettings()
	settings.Log.Sinks = []string{"graylog"}

	err := Run(context.Background(), Config{Settings: settings, Output: io.Discard})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graylog")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	settings := testSettings()
	settings.LogLevel = "warn"

	logger := NewLogger(settings, &buf)
	logger.Info().Msg("hidden")
	logger.Warn().Str("component", "test").Msg("shown")

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record))
	assert.Equal(t, "warn", record["level"])
	assert.Equal(t, "shown", record["message"])
	assert.Equal(t, "test", record["component"])
}
