package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/lobbyhub/internal/model"
	"github.com/mcoot/lobbyhub/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// The roster is kept twice: as one JSON list preserving join order, and as
// a hash for lookups by id.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) SaveRoster(ctx context.Context, players []model.SecuredPlayer) error {
	if players == nil {
		players = []model.SecuredPlayer{}
	}
	data, err := json.Marshal(players)
	if err != nil {
		return err
	}

	fields := make([]any, 0, len(players)*2)
	for _, p := range players {
		pdata, err := json.Marshal(p)
		if err != nil {
			return err
		}
		fields = append(fields, string(p.ID), pdata)
	}

	// MULTI/EXEC so readers never see the list and hash disagree
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, rosterKey(), data, s.cfg.RosterTTL)
	pipe.Del(ctx, playersKey())
	if len(fields) > 0 {
		pipe.HSet(ctx, playersKey(), fields...)
		if s.cfg.RosterTTL > 0 {
			pipe.Expire(ctx, playersKey(), s.cfg.RosterTTL)
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetRoster(ctx context.Context) ([]model.SecuredPlayer, error) {
	data, err := s.client.Get(ctx, rosterKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []model.SecuredPlayer{}, nil
		}
		return nil, err
	}

	var players []model.SecuredPlayer
	if err := json.Unmarshal(data, &players); err != nil {
		return nil, err
	}
	return players, nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (model.SecuredPlayer, error) {
	data, err := s.client.HGet(ctx, playersKey(), string(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.SecuredPlayer{}, model.ErrPlayerNotFound
		}
		return model.SecuredPlayer{}, err
	}

	var player model.SecuredPlayer
	if err := json.Unmarshal(data, &player); err != nil {
		return model.SecuredPlayer{}, err
	}
	return player, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
