package storage

import (
	"context"

	"github.com/mcoot/lobbyhub/internal/model"
)

// Storage holds the latest mirrored snapshot of the roster.
// Only the secured view is stored; credentials never leave the registry.
type Storage interface {
	// SaveRoster replaces the stored snapshot with players
	SaveRoster(ctx context.Context, players []model.SecuredPlayer) error
	// GetRoster returns the stored snapshot, empty if nothing was saved yet
	GetRoster(ctx context.Context) ([]model.SecuredPlayer, error)
	// GetPlayer returns one player from the snapshot or model.ErrPlayerNotFound
	GetPlayer(ctx context.Context, id model.PlayerID) (model.SecuredPlayer, error)
	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error
}
