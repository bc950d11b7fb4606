package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/lobbyhub/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

func roster() []model.SecuredPlayer {
	joined := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return []model.SecuredPlayer{
		{ID: "player-1", Username: "alice", Status: model.StatusIdling, Connected: true, JoinedAt: joined},
		{ID: "player-2", Username: "bob", Status: model.StatusReady, Connected: false, JoinedAt: joined},
	}
}

func (s *StorageSuite) TestEmptyRoster() {
	players, err := s.storage.GetRoster(s.ctx)
	s.Require().NoError(err)
	s.Empty(players)
	s.NotNil(players)
}

func (s *StorageSuite) TestSaveAndGetRoster() {
	err := s.storage.SaveRoster(s.ctx, roster())
	s.Require().NoError(err)

	players, err := s.storage.GetRoster(s.ctx)
	s.Require().NoError(err)
	s.Equal(roster(), players)
}

func (s *StorageSuite) TestSaveReplacesSnapshot() {
	_ = s.storage.SaveRoster(s.ctx, roster())
	_ = s.storage.SaveRoster(s.ctx, roster()[1:])

	players, err := s.storage.GetRoster(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(players, 1)
	s.Equal("bob", players[0].Username)

	_, err = s.storage.GetPlayer(s.ctx, "player-1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestGetPlayer() {
	_ = s.storage.SaveRoster(s.ctx, roster())

	p, err := s.storage.GetPlayer(s.ctx, "player-2")
	s.Require().NoError(err)
	s.Equal("bob", p.Username)
	s.Equal(model.StatusReady, p.Status)
}

func (s *StorageSuite) TestGetPlayerNotFound() {
	_, err := s.storage.GetPlayer(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestReturnedRosterIsACopy() {
	_ = s.storage.SaveRoster(s.ctx, roster())

	players, _ := s.storage.GetRoster(s.ctx)
	players[0].Username = "mallory"

	again, _ := s.storage.GetRoster(s.ctx)
	s.Equal("alice", again[0].Username)
}
