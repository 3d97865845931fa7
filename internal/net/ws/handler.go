package ws

import (
	nethttp "net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"bridgesim/server/internal/ids"
	"bridgesim/server/internal/telemetry"
	"bridgesim/server/logging"
)

type HandlerConfig struct {
	Session   Config
	Logger    zerolog.Logger
	Publisher logging.Publisher
	Metrics   *telemetry.Metrics
}

// Handler upgrades requests to websocket sessions, one client per
// connection.
type Handler struct {
	actor    GameActor
	cfg      HandlerConfig
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(actor GameActor, cfg HandlerConfig) *Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		actor:    actor,
		cfg:      cfg,
		logger:   cfg.Logger.With().Str("component", "ws").Logger(),
		upgrader: upgrader,
	}
}

// Handle serves one connection until the session ends. The session lives
// on the request context, so cancelling the server's base context closes
// every session.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("upgrade failed")
		return
	}
	defer conn.Close()

	clientID := ids.NewClientID()
	ctx := r.Context()
	h.cfg.Metrics.SessionOpened(ctx)
	defer h.cfg.Metrics.SessionClosed(ctx)

	h.logger.Info().Str("client", clientID.String()).Str("remote", r.RemoteAddr).Msg("session started")
	session := NewSession(clientID, conn, h.actor, h.cfg.Session, h.logger, h.cfg.Publisher, h.cfg.Metrics)
	if err := session.Run(ctx); err != nil {
		h.logger.Warn().Err(err).Str("client", clientID.String()).Msg("session ended")
		return
	}
	h.logger.Info().Str("client", clientID.String()).Msg("session ended")
}
