package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/mcoot/lobbyhub/internal/model"
	"github.com/mcoot/lobbyhub/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	roster []model.SecuredPlayer
	byID   map[model.PlayerID]int
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		roster: []model.SecuredPlayer{},
		byID:   make(map[model.PlayerID]int),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) SaveRoster(ctx context.Context, players []model.SecuredPlayer) error {
	roster := slices.Clone(players)
	if roster == nil {
		roster = []model.SecuredPlayer{}
	}
	byID := make(map[model.PlayerID]int, len(roster))
	for i, p := range roster {
		byID[p.ID] = i
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster = roster
	s.byID = byID
	return nil
}

func (s *Storage) GetRoster(ctx context.Context) ([]model.SecuredPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.roster), nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (model.SecuredPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return model.SecuredPlayer{}, model.ErrPlayerNotFound
	}
	return s.roster[idx], nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return nil
}
