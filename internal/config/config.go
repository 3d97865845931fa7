// Package config loads server settings with viper: defaults, an optional
// bridgesim.{yaml,json,toml} file and BRIDGESIM_ environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configName = "bridgesim"
	envPrefix  = "BRIDGESIM"
)

type Settings struct {
	LogLevel   string           `json:"logLevel" mapstructure:"logLevel"`
	Server     ServerConfig     `json:"server" mapstructure:"server"`
	Simulation SimulationConfig `json:"simulation" mapstructure:"simulation"`
	Session    SessionConfig    `json:"session" mapstructure:"session"`
	Physics    PhysicsConfig    `json:"physics" mapstructure:"physics"`
	Log        LogConfig        `json:"log" mapstructure:"log"`
	Metrics    MetricsConfig    `json:"metrics" mapstructure:"metrics"`
	Debug      DebugConfig      `json:"debug" mapstructure:"debug"`
}

type ServerConfig struct {
	Addr      string `json:"addr" mapstructure:"addr"`
	ClientDir string `json:"clientDir" mapstructure:"clientDir"`
}

type SimulationConfig struct {
	TickInterval time.Duration `json:"tickInterval" mapstructure:"tickInterval"`
	// TickBudgetWarn is a multiple of TickInterval.
	TickBudgetWarn float64 `json:"tickBudgetWarn" mapstructure:"tickBudgetWarn"`
	// Seed 0 seeds from the clock.
	Seed     int64  `json:"seed" mapstructure:"seed"`
	Scenario string `json:"scenario" mapstructure:"scenario"`
}

type SessionConfig struct {
	SnapshotInterval time.Duration `json:"snapshotInterval" mapstructure:"snapshotInterval"`
	MaxInFlight      int           `json:"maxInFlight" mapstructure:"maxInFlight"`
	CommandRate      float64       `json:"commandRate" mapstructure:"commandRate"`
	CommandBurst     int           `json:"commandBurst" mapstructure:"commandBurst"`
	PingInterval     time.Duration `json:"pingInterval" mapstructure:"pingInterval"`
	ReadTimeout      time.Duration `json:"readTimeout" mapstructure:"readTimeout"`
}

type PhysicsConfig struct {
	Extent   float64 `json:"extent" mapstructure:"extent"`
	CellSize float64 `json:"cellSize" mapstructure:"cellSize"`
}

type LogConfig struct {
	Console  bool     `json:"console" mapstructure:"console"`
	Sinks    []string `json:"sinks" mapstructure:"sinks"`
	JSONPath string   `json:"jsonPath" mapstructure:"jsonPath"`
}

type MetricsConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

type DebugConfig struct {
	Pprof bool `json:"pprof" mapstructure:"pprof"`
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.clientDir", "../client")

	viper.SetDefault("simulation.tickInterval", 20*time.Millisecond)
	viper.SetDefault("simulation.tickBudgetWarn", 1.5)
	viper.SetDefault("simulation.seed", 0)
	viper.SetDefault("simulation.scenario", "default")

	viper.SetDefault("session.snapshotInterval", 10*time.Millisecond)
	viper.SetDefault("session.maxInFlight", 3)
	viper.SetDefault("session.commandRate", 120.0)
	viper.SetDefault("session.commandBurst", 60)
	viper.SetDefault("session.pingInterval", 25*time.Second)
	viper.SetDefault("session.readTimeout", 60*time.Second)

	viper.SetDefault("physics.extent", 40000.0)
	viper.SetDefault("physics.cellSize", 500.0)

	viper.SetDefault("log.console", true)
	viper.SetDefault("log.sinks", []string{"zerolog"})
	viper.SetDefault("log.jsonPath", "")

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("debug.pprof", false)
}

// Load reads settings. configDir is searched for the config file before
// the working directory; a missing file is not an error.
func Load(configDir string) (Settings, error) {
	setDefaults()

	viper.SetConfigName(configName)
	if configDir != "" {
		viper.AddConfigPath(configDir)
	}
	viper.AddConfigPath(".")

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var settings Settings
	if err := viper.Unmarshal(&settings); err != nil {
		return Settings{}, fmt.Errorf("error decoding config: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Validate rejects settings the server cannot run with.
func (s Settings) Validate() error {
	switch {
	case s.Simulation.TickInterval <= 0:
		return fmt.Errorf("simulation.tickInterval must be positive, got %s", s.Simulation.TickInterval)
	case s.Session.SnapshotInterval <= 0:
		return fmt.Errorf("session.snapshotInterval must be positive, got %s", s.Session.SnapshotInterval)
	case s.Session.MaxInFlight < 1:
		return fmt.Errorf("session.maxInFlight must be at least 1, got %d", s.Session.MaxInFlight)
	case s.Physics.Extent <= 0 || s.Physics.CellSize <= 0:
		return fmt.Errorf("physics extent and cellSize must be positive")
	}
	return nil
}

// flagKeys maps command line flags to the settings they override.
var flagKeys = map[string]string{
	"addr":       "server.addr",
	"client-dir": "server.clientDir",
	"log-level":  "logLevel",
	"scenario":   "simulation.scenario",
	"seed":       "simulation.seed",
}

// RegisterFlags adds the overridable settings to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("addr", "", "listen address")
	fs.String("client-dir", "", "directory served at /")
	fs.String("log-level", "", "debug, info, warn or error")
	fs.String("scenario", "", "scenario to populate the sector with")
	fs.Int64("seed", 0, "random seed, 0 seeds from the clock")
}

// BindFlags makes flags set on the command line take precedence over the
// config file and environment.
func BindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

// ConfigFile is the file Load read, if any.
func ConfigFile() string {
	return viper.ConfigFileUsed()
}
