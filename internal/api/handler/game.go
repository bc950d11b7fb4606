package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/lobbyhub/internal/api/apierr"
	"github.com/mcoot/lobbyhub/internal/api/response"
	"github.com/mcoot/lobbyhub/internal/model"
	"github.com/mcoot/lobbyhub/internal/services/matchmaking"
)

// GameHandler handles game-related endpoints
type GameHandler struct {
	matchmaking *matchmaking.Service
}

// NewGameHandler creates a new game handler
func NewGameHandler(matchmaking *matchmaking.Service) *GameHandler {
	return &GameHandler{matchmaking: matchmaking}
}

// List handles GET /api/v1/games
func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.GamesResponseFromModel(h.matchmaking.Games()))
}

// Get handles GET /api/v1/games/{id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	g, err := h.matchmaking.Game(model.GameID(mux.Vars(r)["id"]))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameFromModel(g))
}

// End handles POST /api/v1/games/{id}/end
func (h *GameHandler) End(w http.ResponseWriter, r *http.Request) {
	g, err := h.matchmaking.EndGame(model.GameID(mux.Vars(r)["id"]))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameFromModel(g))
}
