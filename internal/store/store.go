package store

import (
	"log/slog"
	"runtime/debug"
	"sync"
)

// Listener is called with the new value after every write
type Listener[T any] func(value T)

// ListenerID identifies a registered listener so it can be removed later
type ListenerID uint64

type subscription[T any] struct {
	id ListenerID
	fn Listener[T]
}

// Store holds a single value and notifies listeners whenever it is replaced.
//
// Writes are serialized: the new value is stored and then every listener
// registered at that moment is called synchronously, in registration order,
// before Set or Update returns. A listener must not write to the store it is
// listening on.
type Store[T any] struct {
	writeMu sync.Mutex // serializes write+notify cycles

	mu        sync.RWMutex // guards value and listeners
	value     T
	listeners []subscription[T]
	nextID    ListenerID

	logger *slog.Logger
}

// New creates a Store holding initial
func New[T any](initial T, logger *slog.Logger) *Store[T] {
	return &Store[T]{
		value:  initial,
		logger: logger.With(slog.String("component", "store")),
	}
}

// Get returns the current value
func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the value and notifies listeners
func (s *Store[T]) Set(value T) {
	s.Update(func(T) T { return value })
}

// Update computes the new value from the old one, stores it and notifies
// listeners. fn must not mutate its argument. The new value is returned.
func (s *Store[T]) Update(fn func(old T) T) T {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.value = fn(s.value)
	value := s.value
	listeners := make([]subscription[T], len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		s.notify(l, value)
	}
	return value
}

// Subscribe registers fn to be called after every write
func (s *Store[T]) Subscribe(fn Listener[T]) ListenerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.listeners = append(s.listeners, subscription[T]{id: s.nextID, fn: fn})
	return s.nextID
}

// Unsubscribe removes a listener. Unknown ids are ignored.
// Removal during a notification takes effect from the next write.
func (s *Store[T]) Unsubscribe(id ListenerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.listeners {
		if l.id == id {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return
		}
	}
}

// ListenerCount returns the number of registered listeners
func (s *Store[T]) ListenerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

// notify calls one listener, containing any panic so the rest still run
func (s *Store[T]) notify(l subscription[T], value T) {
	defer func() {
		if err := recover(); err != nil {
			s.logger.Error("store listener panicked",
				slog.Uint64("listener_id", uint64(l.id)),
				slog.Any("error", err),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	l.fn(value)
}
