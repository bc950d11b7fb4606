package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/lobbyhub/internal/api/apierr"
	"github.com/mcoot/lobbyhub/internal/api/response"
	"github.com/mcoot/lobbyhub/internal/dependencies/random"
	"github.com/mcoot/lobbyhub/internal/model"
	"github.com/mcoot/lobbyhub/internal/services/snapshot"
	"github.com/mcoot/lobbyhub/internal/web/sse"
)

// PlayerHandler handles player-related endpoints
type PlayerHandler struct {
	snapshot *snapshot.Service
	hub      *sse.Hub
	random   random.Random
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(snapshot *snapshot.Service, hub *sse.Hub, random random.Random) *PlayerHandler {
	return &PlayerHandler{
		snapshot: snapshot,
		hub:      hub,
		random:   random,
	}
}

// List handles GET /api/v1/players
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	players, err := h.snapshot.All(r.Context())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayersResponseFromModel(players))
}

// Get handles GET /api/v1/players/{id}
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.PlayerID(mux.Vars(r)["id"])

	player, err := h.snapshot.ByID(r.Context(), id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromModel(player))
}

// Watch handles GET /api/v1/players/watch
func (h *PlayerHandler) Watch(w http.ResponseWriter, r *http.Request) {
	sse.ServeSSE(w, r, h.hub, h.random.UUID())
}
