package model

import "time"

// PlayerID uniquely identifies a player for the lifetime of the process
type PlayerID string

// ConnectionID identifies one live transport-level session.
// The zero value means "no connection".
type ConnectionID string

// Credential is the opaque secret that lets a new connection reclaim a player
type Credential string

// PlayerStatus is the lobby state of a player
type PlayerStatus string

const (
	StatusIdling  PlayerStatus = "idling"
	StatusReady   PlayerStatus = "ready"
	StatusPlaying PlayerStatus = "playing"
)

// Player is a registered lobby participant, independent of any single connection
type Player struct {
	ID           PlayerID
	ConnectionID ConnectionID // empty when unlinked
	Credential   Credential
	Username     string
	Status       PlayerStatus
	JoinedAt     time.Time
}

// Linked reports whether a live connection currently owns the player
func (p Player) Linked() bool {
	return p.ConnectionID != ""
}

// IsReady reports whether the player is flagged ready
func (p Player) IsReady() bool {
	return p.Status == StatusReady
}

// Secured returns the view of the player that is safe to show to anyone
func (p Player) Secured() SecuredPlayer {
	return SecuredPlayer{
		ID:        p.ID,
		Username:  p.Username,
		Status:    p.Status,
		Connected: p.Linked(),
		JoinedAt:  p.JoinedAt,
	}
}

// Own returns the view sent to the owning client right after joining.
// This is the only place the credential leaves the server.
func (p Player) Own() OwnPlayer {
	return OwnPlayer{
		SecuredPlayer: p.Secured(),
		Credential:    p.Credential,
	}
}

// SecuredPlayer is a Player without its credential
type SecuredPlayer struct {
	ID        PlayerID     `json:"id"`
	Username  string       `json:"username"`
	Status    PlayerStatus `json:"status"`
	Connected bool         `json:"connected"`
	JoinedAt  time.Time    `json:"joined_at"`
}

// OwnPlayer is a SecuredPlayer plus the credential, for the owner only
type OwnPlayer struct {
	SecuredPlayer
	Credential Credential `json:"credential"`
}

// SecureAll maps a roster to its secured views
func SecureAll(players []Player) []SecuredPlayer {
	secured := make([]SecuredPlayer, 0, len(players))
	for _, p := range players {
		secured = append(secured, p.Secured())
	}
	return secured
}
