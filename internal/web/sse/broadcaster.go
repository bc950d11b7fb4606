package sse

import (
	"encoding/json"
	"log/slog"

	"github.com/mcoot/lobbyhub/internal/model"
	"github.com/mcoot/lobbyhub/internal/services/players"
	"github.com/mcoot/lobbyhub/internal/store"
)

// RosterEvent is the SSE event name carrying the secured roster
const RosterEvent = "roster"

// Broadcaster pushes the secured roster to the hub on every roster write
type Broadcaster struct {
	hub      *Hub
	roster   *players.Roster
	listener store.ListenerID
	logger   *slog.Logger
}

// NewBroadcaster subscribes to roster and primes the hub with its current value
func NewBroadcaster(hub *Hub, roster *players.Roster, logger *slog.Logger) *Broadcaster {
	b := &Broadcaster{
		hub:    hub,
		roster: roster,
		logger: logger.With(slog.String("component", "sse-broadcaster")),
	}
	b.listener = roster.Subscribe(b.onRosterChange)
	b.onRosterChange(roster.Get())
	return b
}

// Close stops listening to the roster
func (b *Broadcaster) Close() {
	b.roster.Unsubscribe(b.listener)
}

func (b *Broadcaster) onRosterChange(current []model.Player) {
	data, err := json.Marshal(model.SecureAll(current))
	if err != nil {
		b.logger.Error("sse failed to encode roster", slog.Any("error", err))
		return
	}
	b.hub.BroadcastEvent(RosterEvent, string(data))
}
