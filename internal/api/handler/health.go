package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/lobbyhub/internal/api/response"
	"github.com/mcoot/lobbyhub/internal/services/snapshot"
)

const healthCheckTimeout = 2 * time.Second

// Counters reports live lobby sizes for the health endpoint
type Counters interface {
	SessionCount() int
	PlayerCount() int
}

// HealthHandler handles the health endpoint
type HealthHandler struct {
	snapshot *snapshot.Service
	counters Counters
	logger   *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(snapshot *snapshot.Service, counters Counters, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		snapshot: snapshot,
		counters: counters,
		logger:   logger,
	}
}

// Check handles GET /api/v1/health. The realtime lobby keeps working without
// the snapshot backend, so an unreachable backend reports degraded with 503.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := response.HealthResponse{
		Status:      "ok",
		Storage:     "ok",
		Connections: h.counters.SessionCount(),
		Players:     h.counters.PlayerCount(),
	}
	status := http.StatusOK
	if err := h.snapshot.Healthy(ctx); err != nil {
		h.logger.Warn("snapshot storage unhealthy", slog.String("error", err.Error()))
		resp.Status = "degraded"
		resp.Storage = "unreachable"
		status = http.StatusServiceUnavailable
	}

	response.JSON(w, status, resp)
}
