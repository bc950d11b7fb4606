package model

import "time"

// MaxPlayersPerGame is the number of players a game needs before it starts
const MaxPlayersPerGame = 2

// GameID uniquely identifies a game
type GameID string

// GameStatus represents the lifecycle state of a game
type GameStatus string

const (
	GameStatusStarted GameStatus = "started"
	GameStatusEnded   GameStatus = "ended"
)

// Game groups players pulled out of the lobby to play together
type Game struct {
	ID        GameID     `json:"id"`
	PlayerIDs []PlayerID `json:"player_ids"`
	Status    GameStatus `json:"status"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Active reports whether the game is still running
func (g Game) Active() bool {
	return g.Status == GameStatusStarted
}

// Full reports whether the game has reached its player count
func (g Game) Full() bool {
	return len(g.PlayerIDs) >= MaxPlayersPerGame
}
