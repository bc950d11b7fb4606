package snapshot

import (
	"context"

	"github.com/mcoot/lobbyhub/internal/model"
	"github.com/mcoot/lobbyhub/internal/storage"
)

// Service answers roster queries from the mirrored snapshot
type Service struct {
	storage storage.Storage
}

// New creates a snapshot query service
func New(storage storage.Storage) *Service {
	return &Service{storage: storage}
}

// All returns every player in the snapshot
func (s *Service) All(ctx context.Context) ([]model.SecuredPlayer, error) {
	return s.storage.GetRoster(ctx)
}

// ByID returns one player or model.ErrPlayerNotFound
func (s *Service) ByID(ctx context.Context, id model.PlayerID) (model.SecuredPlayer, error) {
	return s.storage.GetPlayer(ctx, id)
}

// Healthy reports whether the snapshot backend is reachable
func (s *Service) Healthy(ctx context.Context) error {
	return s.storage.Ping(ctx)
}
