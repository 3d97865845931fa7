package net

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/pprof"
	"time"

	"github.com/rs/zerolog"

	"bridgesim/server"
	"bridgesim/server/internal/net/ws"
	"bridgesim/server/internal/observability"
	"bridgesim/server/internal/telemetry"
	"bridgesim/server/logging"
)

const diagnosticsTimeout = 2 * time.Second

// GameActor is what the HTTP surface needs from the game state actor.
type GameActor interface {
	ws.GameActor
	Diagnostics(ctx context.Context) (server.Diagnostics, error)
}

type HTTPHandlerConfig struct {
	ClientDir     string
	TickInterval  time.Duration
	Session       ws.Config
	Logger        zerolog.Logger
	Publisher     logging.Publisher
	Metrics       *telemetry.Metrics
	Telemetry     *telemetry.Provider
	Observability observability.Config
}

func NewHTTPHandler(actor GameActor, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger.With().Str("component", "http").Logger()
	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), diagnosticsTimeout)
		defer cancel()

		game, err := actor.Diagnostics(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("diagnostics query failed")
			httpError(w, "simulation unavailable", nethttp.StatusServiceUnavailable)
			return
		}

		summary, err := cfg.Telemetry.Collect(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("metrics collection failed")
		}

		payload := struct {
			Status       string             `json:"status"`
			ServerTime   int64              `json:"serverTime"`
			TickInterval int64              `json:"tickIntervalMillis"`
			Game         server.Diagnostics `json:"game"`
			Metrics      telemetry.Summary  `json:"metrics,omitempty"`
		}{
			Status:       "ok",
			ServerTime:   time.Now().UnixMilli(),
			TickInterval: cfg.TickInterval.Milliseconds(),
			Game:         game,
			Metrics:      summary,
		}

		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	sessions := ws.NewHandler(actor, ws.HandlerConfig{
		Session:   cfg.Session,
		Logger:    cfg.Logger,
		Publisher: cfg.Publisher,
		Metrics:   cfg.Metrics,
	})
	mux.HandleFunc("/ws", sessions.Handle)

	if cfg.Observability.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	if cfg.ClientDir != "" {
		fs := nethttp.FileServer(nethttp.Dir(cfg.ClientDir))
		mux.Handle("/", fs)
	}

	return mux
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
