package presence

import (
	"log/slog"
	"sync"

	"github.com/mcoot/lobbyhub/internal/model"
)

// Member is a connection that can receive events.
// Send must not block; it reports false when the event was dropped.
type Member interface {
	ID() model.ConnectionID
	Send(event model.OutboundEvent) bool
}

// Room is the set of connections watching the roster size.
//
// It remembers the last published count so a connection entering the room
// is caught up with a value that no later broadcast can precede.
type Room struct {
	mu      sync.RWMutex
	members map[model.ConnectionID]Member
	count   int
	logger  *slog.Logger
}

// NewRoom creates an empty room whose catch-up count starts at initialCount
func NewRoom(initialCount int, logger *slog.Logger) *Room {
	return &Room{
		members: make(map[model.ConnectionID]Member),
		count:   initialCount,
		logger:  logger.With(slog.String("component", "presence")),
	}
}

// Watch adds a member and sends it the current count.
// Watching again is harmless and re-sends the count.
func (r *Room) Watch(m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.members[m.ID()] = m
	m.Send(model.CountEvent(r.count))
	r.logger.Debug("watcher added",
		slog.String("connection_id", string(m.ID())),
		slog.Int("watchers", len(r.members)))
}

// Unwatch removes a member. Unknown ids are ignored.
func (r *Room) Unwatch(id model.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[id]; !ok {
		return
	}
	delete(r.members, id)
	r.logger.Debug("watcher removed",
		slog.String("connection_id", string(id)),
		slog.Int("watchers", len(r.members)))
}

// Publish records count and sends it to every member
func (r *Room) Publish(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.count = count
	event := model.CountEvent(count)
	sent, dropped := 0, 0
	for _, m := range r.members {
		if m.Send(event) {
			sent++
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		r.logger.Warn("count broadcast partial failure",
			slog.Int("sent", sent),
			slog.Int("dropped", dropped))
	}
}

// IsWatching reports whether id is in the room
func (r *Room) IsWatching(id model.ConnectionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[id]
	return ok
}

// Size returns the number of watchers
func (r *Room) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Count returns the last published roster size
func (r *Room) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}
