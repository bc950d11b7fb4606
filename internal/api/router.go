package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/lobbyhub/internal/api/handler"
	"github.com/mcoot/lobbyhub/internal/api/middleware"
	"github.com/mcoot/lobbyhub/internal/dependencies/random"
	"github.com/mcoot/lobbyhub/internal/monitor"
	"github.com/mcoot/lobbyhub/internal/services/matchmaking"
	"github.com/mcoot/lobbyhub/internal/services/snapshot"
	"github.com/mcoot/lobbyhub/internal/web/sse"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Snapshot    *snapshot.Service
	Matchmaking *matchmaking.Service
	Hub         *sse.Hub
	Counters    handler.Counters
	Random      random.Random
	Metrics     *monitor.Metrics
	// Realtime serves the websocket endpoint
	Realtime http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.Snapshot, cfg.Hub, cfg.Random)
	gameHandler := handler.NewGameHandler(cfg.Matchmaking)
	healthHandler := handler.NewHealthHandler(cfg.Snapshot, cfg.Counters, cfg.Logger)

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger, cfg.Metrics)
	recoveryMiddleware := middleware.Recovery(cfg.Logger, cfg.Metrics)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Player routes; /watch is registered before /{id} so it is not captured
	api.HandleFunc("/players", playerHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/players/watch", playerHandler.Watch).Methods(http.MethodGet)
	api.HandleFunc("/players/{id}", playerHandler.Get).Methods(http.MethodGet)

	// Game routes
	api.HandleFunc("/games", gameHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}", gameHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}/end", gameHandler.End).Methods(http.MethodPost)

	// Health check endpoint
	api.HandleFunc("/health", healthHandler.Check).Methods(http.MethodGet)

	// Realtime lobby
	if cfg.Realtime != nil {
		r.Handle("/ws", loggingMiddleware(cfg.Realtime)).Methods(http.MethodGet)
	}

	// Prometheus scrape endpoint
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}

	return r
}
