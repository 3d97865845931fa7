package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	server "bridgesim/server"
	"bridgesim/server/internal/config"
	servernet "bridgesim/server/internal/net"
	"bridgesim/server/internal/net/ws"
	"bridgesim/server/internal/observability"
	"bridgesim/server/internal/physics"
	"bridgesim/server/internal/scenario"
	"bridgesim/server/logging"
	loggingSinks "bridgesim/server/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	Settings config.Settings
	// Output receives operational logs. Defaults to stderr.
	Output io.Writer
	// Ready is called with the bound address once the listener is open.
	Ready func(addr net.Addr)
}

// NewLogger builds the operational logger from settings.
func NewLogger(settings config.Settings, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	if settings.Log.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}
	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func loggingConfig(settings config.Settings) logging.Config {
	cfg := logging.DefaultConfig()
	if len(settings.Log.Sinks) > 0 {
		cfg.EnabledSinks = settings.Log.Sinks
	}
	cfg.MinimumSeverity = logging.ParseSeverity(settings.LogLevel)
	cfg.JSON.FilePath = settings.Log.JSONPath
	cfg.Fields = map[string]any{"scenario": settings.Simulation.Scenario}
	return cfg
}

// Run serves the simulation until ctx is cancelled, then shuts the HTTP
// server down, stops the actor and flushes the event router.
func Run(ctx context.Context, cfg Config) error {
	settings := cfg.Settings
	logger := NewLogger(settings, cfg.Output)

	logConfig := loggingConfig(settings)
	sinks, err := loggingSinks.FromConfig(logConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to construct log sinks: %w", err)
	}
	router := logging.NewRouter(nil, logConfig, sinks, logger)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			logger.Warn().Err(cerr).Msg("failed to close logging router")
		}
	}()

	observabilityCfg := observability.Config{
		EnableMetrics: settings.Metrics.Enabled,
		EnablePprof:   settings.Debug.Pprof,
	}
	metrics, metricsProvider, err := observabilityCfg.Metrics()
	if err != nil {
		return fmt.Errorf("failed to construct metrics: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if cerr := metricsProvider.Shutdown(closeCtx); cerr != nil {
			logger.Warn().Err(cerr).Msg("failed to shut down metrics")
		}
	}()

	sc, err := scenario.ByName(settings.Simulation.Scenario)
	if err != nil {
		return err
	}
	state := server.NewGameState(server.Config{
		Seed: settings.Simulation.Seed,
		Physics: physics.Config{
			Extent:   settings.Physics.Extent,
			CellSize: settings.Physics.CellSize,
		},
	}, logger, router)
	state.Populate(sc)

	actor := server.NewActor(state, server.ActorConfig{
		TickInterval:   settings.Simulation.TickInterval,
		TickBudgetWarn: settings.Simulation.TickBudgetWarn,
	}, logger, router, metrics)

	clientDir, ok := resolveClientDir(settings.Server.ClientDir)
	if !ok {
		logger.Warn().Str("clientDir", settings.Server.ClientDir).Msg("client assets not found, serving API only")
	}
	handler := servernet.NewHTTPHandler(actor, servernet.HTTPHandlerConfig{
		ClientDir:    clientDir,
		TickInterval: settings.Simulation.TickInterval,
		Session: ws.Config{
			SnapshotInterval: settings.Session.SnapshotInterval,
			MaxInFlight:      settings.Session.MaxInFlight,
			CommandRate:      settings.Session.CommandRate,
			CommandBurst:     settings.Session.CommandBurst,
			PingInterval:     settings.Session.PingInterval,
			ReadTimeout:      settings.Session.ReadTimeout,
		},
		Logger:        logger,
		Publisher:     router,
		Metrics:       metrics,
		Telemetry:     metricsProvider,
		Observability: observabilityCfg,
	})

	listener, err := net.Listen("tcp", settings.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", settings.Server.Addr, err)
	}

	group, ctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Sessions hang off this context, so cancelling it closes them.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	group.Go(func() error {
		return actor.Run(ctx)
	})
	group.Go(func() error {
		logger.Info().Str("addr", listener.Addr().String()).Str("scenario", sc.Name()).Msg("server listening")
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		logger.Info().Msg("server stopped")
		return nil
	})
	if cfg.Ready != nil {
		cfg.Ready(listener.Addr())
	}

	return group.Wait()
}
