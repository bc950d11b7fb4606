package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/mcoot/lobbyhub/internal/api"
	"github.com/mcoot/lobbyhub/internal/dependencies/clock"
	"github.com/mcoot/lobbyhub/internal/dependencies/random"
	"github.com/mcoot/lobbyhub/internal/monitor"
	"github.com/mcoot/lobbyhub/internal/presence"
	"github.com/mcoot/lobbyhub/internal/realtime"
	"github.com/mcoot/lobbyhub/internal/services/matchmaking"
	"github.com/mcoot/lobbyhub/internal/services/players"
	"github.com/mcoot/lobbyhub/internal/services/snapshot"
	"github.com/mcoot/lobbyhub/internal/storage"
	"github.com/mcoot/lobbyhub/internal/storage/memory"
	redisstorage "github.com/mcoot/lobbyhub/internal/storage/redis"
	"github.com/mcoot/lobbyhub/internal/web/sse"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock   clock.Clock
	Random  random.Random
	Metrics *monitor.Metrics
	Logger  *slog.Logger

	// Lobby core
	Registry *players.Registry
	Room     *presence.Room
	Router   *realtime.Router
	Realtime *realtime.Handler

	// Services
	Snapshot    *snapshot.Service
	Publisher   *snapshot.Publisher
	Matchmaking *matchmaking.Service
	Hub         *sse.Hub

	matchmakingEnabled bool
	presence           *presence.Broadcaster
	hubBroadcaster     *sse.Broadcaster
	wg                 sync.WaitGroup
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the snapshot backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// MatchmakingEnabled starts pairing ready players into games
	MatchmakingEnabled bool
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	app := newWithDependencies(store, clock.New(), random.New(), logger)
	app.matchmakingEnabled = cfg.MatchmakingEnabled
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, logger *slog.Logger) *App {
	metrics := monitor.NewMetrics()

	roster := players.NewRoster(logger)
	registry := players.NewRegistry(roster, clk, rnd, logger)
	room := presence.NewRoom(registry.Count(), logger)
	router := realtime.NewRouter(registry, room, metrics, logger)
	hub := sse.NewHub(logger)
	mm := matchmaking.New(registry, clk, rnd, metrics, logger)
	mm.SetNotifier(router)

	return &App{
		Storage:        store,
		Clock:          clk,
		Random:         rnd,
		Metrics:        metrics,
		Logger:         logger,
		Registry:       registry,
		Room:           room,
		Router:         router,
		Realtime:       realtime.NewHandler(router, rnd, logger),
		Snapshot:       snapshot.New(store),
		Publisher:      snapshot.NewPublisher(store, roster, logger),
		Matchmaking:    mm,
		Hub:            hub,
		presence:       presence.NewBroadcaster(room, roster, metrics, logger),
		hubBroadcaster: sse.NewBroadcaster(hub, roster, logger),
	}
}

// Start runs the background workers until ctx is cancelled
func (a *App) Start(ctx context.Context) {
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.Hub.Run()
	}()
	go func() {
		defer a.wg.Done()
		a.Publisher.Run(ctx)
	}()

	if a.matchmakingEnabled {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.Matchmaking.Run(ctx)
		}()
	}

	go func() {
		<-ctx.Done()
		a.Hub.Close()
		a.Router.CloseAll()
	}()
}

// Wait blocks until the workers started by Start have stopped
func (a *App) Wait() {
	a.wg.Wait()
}

// Close detaches every roster listener and releases the storage backend
func (a *App) Close() error {
	a.presence.Close()
	a.hubBroadcaster.Close()
	a.Publisher.Close()
	a.Matchmaking.Close()
	a.Hub.Close()
	if closer, ok := a.Storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SessionCount returns the number of open realtime connections
func (a *App) SessionCount() int {
	return a.Router.SessionCount()
}

// PlayerCount returns the roster size
func (a *App) PlayerCount() int {
	return a.Registry.Count()
}

// Handler returns the HTTP handler serving the API, the websocket endpoint
// and the metrics endpoint
func (a *App) Handler() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:      a.Logger,
		Snapshot:    a.Snapshot,
		Matchmaking: a.Matchmaking,
		Hub:         a.Hub,
		Counters:    a,
		Random:      a.Random,
		Metrics:     a.Metrics,
		Realtime:    a.Realtime,
	})
}
