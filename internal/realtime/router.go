package realtime

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/lobbyhub/internal/model"
	"github.com/mcoot/lobbyhub/internal/monitor"
	"github.com/mcoot/lobbyhub/internal/presence"
	"github.com/mcoot/lobbyhub/internal/services/players"
)

// Session is one live connection as seen by the router
type Session = presence.Member

// User-facing messages for failures that are not domain errors
const (
	msgInvalidRequest = "invalid request"
	msgInternal       = "something went wrong, please try again"
	msgReclaimed      = "your player was reclaimed from another connection"
)

// Router binds inbound connection events to registry operations and sends
// the outcome back to the originating connection.
//
// Each handled request yields either a player:update for the sender or a
// player:error, except link with an unknown credential which yields nothing.
type Router struct {
	registry *players.Registry
	room     *presence.Room
	metrics  *monitor.Metrics
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[model.ConnectionID]Session

	// deliverMu orders request replies against Notify, so a connection never
	// sees an older state of its player after a newer one
	deliverMu sync.Mutex
}

// NewRouter creates a Router. metrics may be nil.
func NewRouter(registry *players.Registry, room *presence.Room, metrics *monitor.Metrics, logger *slog.Logger) *Router {
	return &Router{
		registry: registry,
		room:     room,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "router")),
		sessions: make(map[model.ConnectionID]Session),
	}
}

// Connect registers a new connection
func (r *Router) Connect(s Session) {
	r.mu.Lock()
	r.sessions[s.ID()] = s
	count := len(r.sessions)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.Connections.Set(float64(count))
	}
	r.logger.Info("connection opened",
		slog.String("connection_id", string(s.ID())),
		slog.Int("connections", count))
}

// Disconnect releases everything held by a closed connection. The player it
// owned, if any, stays in the roster unlinked.
func (r *Router) Disconnect(s Session) {
	id := s.ID()
	r.room.Unwatch(id)
	r.registry.Unlink(id)

	r.mu.Lock()
	delete(r.sessions, id)
	count := len(r.sessions)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.Connections.Set(float64(count))
		r.metrics.Watchers.Set(float64(r.room.Size()))
	}
	r.logger.Info("connection closed",
		slog.String("connection_id", string(id)),
		slog.Int("connections", count))
}

// SessionCount returns the number of open connections
func (r *Router) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll asks every connection that can be closed to go away, e.g. on
// shutdown. Each one disconnects through its own read loop. It returns the
// number of connections asked.
func (r *Router) CloseAll() int {
	r.mu.RLock()
	closers := make([]interface{ Close() }, 0, len(r.sessions))
	for _, s := range r.sessions {
		if c, ok := s.(interface{ Close() }); ok {
			closers = append(closers, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range closers {
		c.Close()
	}
	return len(closers)
}

// HandleFrame decodes a raw frame and handles it
func (r *Router) HandleFrame(s Session, raw []byte) {
	req, err := DecodeRequest(raw)
	if err != nil {
		r.logger.Debug("rejected frame",
			slog.String("connection_id", string(s.ID())),
			slog.String("error", err.Error()))
		s.Send(model.ErrorEvent(msgInvalidRequest))
		return
	}
	r.Handle(s, req)
}

// Handle processes one request from s
func (r *Router) Handle(s Session, req model.Request) {
	start := time.Now()
	r.deliverMu.Lock()
	err := r.dispatch(s, req)
	if err != nil {
		s.Send(model.ErrorEvent(r.errorMessage(s, req, err)))
	}
	r.deliverMu.Unlock()
	if r.metrics != nil {
		r.metrics.ObserveEvent(req.Event(), err != nil, time.Since(start))
	}
}

func (r *Router) dispatch(s Session, req model.Request) error {
	cid := s.ID()

	switch req := req.(type) {
	case model.WatchRequest:
		if req.Watching {
			r.room.Watch(s)
		} else {
			r.room.Unwatch(cid)
		}
		if r.metrics != nil {
			r.metrics.Watchers.Set(float64(r.room.Size()))
		}
		return nil

	case model.JoinRequest:
		player, err := r.registry.Join(req.Username, cid)
		if err != nil {
			return err
		}
		s.Send(model.UpdateEvent(player.Own()))
		return nil

	case model.EditRequest:
		player, err := r.registry.Edit(req.Username, cid)
		if err != nil {
			return err
		}
		s.Send(model.UpdateEvent(player.Secured()))
		return nil

	case model.LinkRequest:
		result, err := r.registry.Link(req.Credential, cid)
		if err != nil {
			return err
		}
		if !result.Linked {
			return nil
		}
		if result.Displaced != "" {
			r.evict(result.Displaced)
		}
		s.Send(model.UpdateEvent(result.Player.Secured()))
		return nil

	case model.QuitRequest:
		r.registry.Quit(cid)
		s.Send(model.UpdateEvent(nil))
		return nil

	case model.ReadyRequest:
		player, err := r.registry.Ready(req.Ready, cid)
		if err != nil {
			return err
		}
		s.Send(model.UpdateEvent(player.Secured()))
		return nil

	default:
		return ErrUnknownEvent
	}
}

// evict tells a connection it no longer owns its player
func (r *Router) evict(id model.ConnectionID) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	s.Send(model.UpdateEvent(nil))
	s.Send(model.ErrorEvent(msgReclaimed))
	r.logger.Info("connection displaced by link", slog.String("connection_id", string(id)))
}

// Notify sends a player:update to each connection still bound to one of
// the given players, for changes made outside its own requests such as a
// game starting or ending. The update carries the player's current state.
func (r *Router) Notify(changed []model.Player) {
	r.deliverMu.Lock()
	defer r.deliverMu.Unlock()

	for _, p := range changed {
		if !p.Linked() {
			continue
		}
		current, ok := r.registry.ByConnection(p.ConnectionID)
		if !ok || current.ID != p.ID {
			continue
		}

		r.mu.RLock()
		s, ok := r.sessions[p.ConnectionID]
		r.mu.RUnlock()
		if !ok {
			continue
		}
		s.Send(model.UpdateEvent(current.Secured()))
	}
}

func (r *Router) errorMessage(s Session, req model.Request, err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidUsername),
		errors.Is(err, model.ErrConnectionAlreadyBound),
		errors.Is(err, model.ErrPlayerNotFound),
		errors.Is(err, model.ErrInvalidTransition):
		return err.Error()
	case errors.Is(err, ErrUnknownEvent):
		return msgInvalidRequest
	default:
		r.logger.Error("request failed",
			slog.String("connection_id", string(s.ID())),
			slog.String("event", string(req.Event())),
			slog.String("error", err.Error()))
		return msgInternal
	}
}
