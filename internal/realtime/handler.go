package realtime

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/mcoot/lobbyhub/internal/dependencies/random"
	"github.com/mcoot/lobbyhub/internal/model"
)

// Handler upgrades HTTP requests to websocket connections served by a Router
type Handler struct {
	router   *Router
	random   random.Random
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a websocket Handler
func NewHandler(router *Router, random random.Random, logger *slog.Logger) *Handler {
	return &Handler{
		router: router,
		random: random,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The lobby is served to browsers on other origins of the LAN
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "websocket")),
	}
}

// ServeHTTP handles GET /ws
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	conn := newConn(model.ConnectionID(h.random.UUID()), ws, h.logger)
	h.router.Connect(conn)

	go conn.writePump()
	go conn.readPump(h.router)
}
