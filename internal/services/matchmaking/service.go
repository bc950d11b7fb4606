package matchmaking

import (
	"context"
	"log/slog"
	"slices"

	"github.com/mcoot/lobbyhub/internal/dependencies/clock"
	"github.com/mcoot/lobbyhub/internal/dependencies/random"
	"github.com/mcoot/lobbyhub/internal/model"
	"github.com/mcoot/lobbyhub/internal/monitor"
	"github.com/mcoot/lobbyhub/internal/services/players"
	"github.com/mcoot/lobbyhub/internal/store"
)

// endedHistory is how many ended games are kept for listing
const endedHistory = 50

// Notifier is told about players whose status changed outside their own
// requests
type Notifier interface {
	Notify(players []model.Player)
}

// Service pairs ready players into games.
//
// It listens to the roster but never writes to it from the listener: the
// listener only wakes Run, which claims players on its own goroutine.
type Service struct {
	registry *players.Registry
	games    *store.Store[[]model.Game]
	clock    clock.Clock
	random   random.Random
	metrics  *monitor.Metrics
	logger   *slog.Logger
	notifier Notifier

	listener store.ListenerID
	wake     chan struct{}
}

// New creates a matchmaking Service. metrics may be nil.
func New(
	registry *players.Registry,
	clock clock.Clock,
	random random.Random,
	metrics *monitor.Metrics,
	logger *slog.Logger,
) *Service {
	logger = logger.With(slog.String("component", "matchmaking"))
	s := &Service{
		registry: registry,
		games:    store.New([]model.Game{}, logger),
		clock:    clock,
		random:   random,
		metrics:  metrics,
		logger:   logger,
		wake:     make(chan struct{}, 1),
	}
	s.listener = registry.Roster().Subscribe(s.onRosterChange)
	s.games.Subscribe(s.onGamesChange)
	return s
}

// SetNotifier sets who is told when players enter or leave a game. It must
// be called before Run.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *Service) notify(changed []model.Player) {
	if s.notifier != nil && len(changed) > 0 {
		s.notifier.Notify(changed)
	}
}

// Close stops listening to the roster
func (s *Service) Close() {
	s.registry.Roster().Unsubscribe(s.listener)
}

// GameStore exposes the games store for listeners
func (s *Service) GameStore() *store.Store[[]model.Game] {
	return s.games
}

func (s *Service) onRosterChange(current []model.Player) {
	ready := 0
	for _, p := range current {
		if p.IsReady() && p.Linked() {
			ready++
		}
	}
	if ready < model.MaxPlayersPerGame {
		return
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Service) onGamesChange(current []model.Game) {
	if s.metrics == nil {
		return
	}
	active := 0
	for _, g := range current {
		if g.Active() {
			active++
		}
	}
	s.metrics.ActiveGames.Set(float64(active))
}

// Run starts games whenever enough players are ready, until ctx is cancelled
func (s *Service) Run(ctx context.Context) {
	s.logger.Info("matchmaking started")
	s.Match()
	for {
		select {
		case <-s.wake:
			s.Match()
		case <-ctx.Done():
			s.logger.Info("matchmaking stopped")
			return
		}
	}
}

// Match starts as many games as the ready players allow and returns them
func (s *Service) Match() []model.Game {
	var started []model.Game
	for {
		claimed := s.registry.ClaimReady(model.MaxPlayersPerGame)
		if claimed == nil {
			break
		}

		ids := make([]model.PlayerID, 0, len(claimed))
		for _, p := range claimed {
			ids = append(ids, p.ID)
		}
		game := model.Game{
			ID:        model.GameID(s.random.UUID()),
			PlayerIDs: ids,
			Status:    model.GameStatusStarted,
			StartedAt: s.clock.Now(),
		}
		s.games.Update(func(old []model.Game) []model.Game {
			return append(slices.Clone(old), game)
		})
		started = append(started, game)
		s.notify(claimed)

		s.logger.Info("game started",
			slog.String("game_id", string(game.ID)),
			slog.Any("player_ids", ids))
	}
	return started
}

// Games returns every running game and the most recently ended ones
func (s *Service) Games() []model.Game {
	return s.games.Get()
}

// Game returns one game or model.ErrGameNotFound
func (s *Service) Game(id model.GameID) (model.Game, error) {
	for _, g := range s.games.Get() {
		if g.ID == id {
			return g, nil
		}
	}
	return model.Game{}, model.ErrGameNotFound
}

// EndGame ends a running game and returns its players to the lobby
func (s *Service) EndGame(id model.GameID) (model.Game, error) {
	var (
		ended model.Game
		err   error
	)
	s.games.Update(func(old []model.Game) []model.Game {
		idx := slices.IndexFunc(old, func(g model.Game) bool { return g.ID == id })
		if idx < 0 {
			err = model.ErrGameNotFound
			return old
		}
		if !old[idx].Active() {
			err = model.ErrGameEnded
			return old
		}

		next := slices.Clone(old)
		now := s.clock.Now()
		next[idx].Status = model.GameStatusEnded
		next[idx].EndedAt = &now
		ended = next[idx]
		return pruneEnded(next)
	})
	if err != nil {
		return model.Game{}, err
	}

	s.notify(s.registry.Release(ended.PlayerIDs))
	s.logger.Info("game ended", slog.String("game_id", string(ended.ID)))
	return ended, nil
}

// pruneEnded drops the oldest ended games beyond endedHistory
func pruneEnded(games []model.Game) []model.Game {
	ended := 0
	for _, g := range games {
		if !g.Active() {
			ended++
		}
	}
	excess := ended - endedHistory
	if excess <= 0 {
		return games
	}
	return slices.DeleteFunc(games, func(g model.Game) bool {
		if excess > 0 && !g.Active() {
			excess--
			return true
		}
		return false
	})
}
