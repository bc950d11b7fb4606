package testutil

import (
	"sync"

	"github.com/mcoot/lobbyhub/internal/model"
)

// RecordingSession is an in-memory connection that records every event sent to it
type RecordingSession struct {
	id model.ConnectionID

	mu     sync.Mutex
	events []model.OutboundEvent
	// Refuse makes Send drop events, as a full client buffer would
	Refuse bool
}

// NewRecordingSession creates a session with the given connection id
func NewRecordingSession(id model.ConnectionID) *RecordingSession {
	return &RecordingSession{id: id}
}

// ID returns the connection id
func (s *RecordingSession) ID() model.ConnectionID {
	return s.id
}

// Send records the event
func (s *RecordingSession) Send(event model.OutboundEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Refuse {
		return false
	}
	s.events = append(s.events, event)
	return true
}

// Events returns a copy of everything received so far
func (s *RecordingSession) Events() []model.OutboundEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.OutboundEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Named returns the payloads of received events with the given name
func (s *RecordingSession) Named(name model.EventName) []any {
	var out []any
	for _, e := range s.Events() {
		if e.Name == name {
			out = append(out, e.Data)
		}
	}
	return out
}

// Last returns the most recent event, or the zero event if none
func (s *RecordingSession) Last() model.OutboundEvent {
	events := s.Events()
	if len(events) == 0 {
		return model.OutboundEvent{}
	}
	return events[len(events)-1]
}

// Reset forgets received events
func (s *RecordingSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
