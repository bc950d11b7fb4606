package response

import (
	"time"

	"github.com/mcoot/lobbyhub/internal/model"
)

// Player represents a player in API responses. Credentials are never included.
type Player struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Status    string    `json:"status"`
	Connected bool      `json:"connected"`
	JoinedAt  time.Time `json:"joined_at"`
}

// PlayerFromModel converts a model.SecuredPlayer to a response Player
func PlayerFromModel(p model.SecuredPlayer) Player {
	return Player{
		ID:        string(p.ID),
		Username:  p.Username,
		Status:    string(p.Status),
		Connected: p.Connected,
		JoinedAt:  p.JoinedAt,
	}
}

// PlayersResponse lists the roster
type PlayersResponse struct {
	Players []Player `json:"players"`
	Count   int      `json:"count"`
}

// PlayersResponseFromModel converts a secured roster
func PlayersResponseFromModel(players []model.SecuredPlayer) PlayersResponse {
	resp := PlayersResponse{
		Players: make([]Player, 0, len(players)),
		Count:   len(players),
	}
	for _, p := range players {
		resp.Players = append(resp.Players, PlayerFromModel(p))
	}
	return resp
}

// Game represents a game in API responses
type Game struct {
	ID        string     `json:"id"`
	PlayerIDs []string   `json:"player_ids"`
	Status    string     `json:"status"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// GameFromModel converts a model.Game
func GameFromModel(g model.Game) Game {
	ids := make([]string, 0, len(g.PlayerIDs))
	for _, id := range g.PlayerIDs {
		ids = append(ids, string(id))
	}
	return Game{
		ID:        string(g.ID),
		PlayerIDs: ids,
		Status:    string(g.Status),
		StartedAt: g.StartedAt,
		EndedAt:   g.EndedAt,
	}
}

// GamesResponse lists games
type GamesResponse struct {
	Games []Game `json:"games"`
}

// GamesResponseFromModel converts a list of games
func GamesResponseFromModel(games []model.Game) GamesResponse {
	resp := GamesResponse{Games: make([]Game, 0, len(games))}
	for _, g := range games {
		resp.Games = append(resp.Games, GameFromModel(g))
	}
	return resp
}

// HealthResponse is the response for the health endpoint
type HealthResponse struct {
	Status      string `json:"status"`
	Storage     string `json:"storage"`
	Connections int    `json:"connections"`
	Players     int    `json:"players"`
}
