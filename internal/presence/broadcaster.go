package presence

import (
	"log/slog"

	"github.com/mcoot/lobbyhub/internal/model"
	"github.com/mcoot/lobbyhub/internal/monitor"
	"github.com/mcoot/lobbyhub/internal/services/players"
	"github.com/mcoot/lobbyhub/internal/store"
)

// Broadcaster publishes the roster size to the watching room on every
// roster write
type Broadcaster struct {
	room     *Room
	roster   *players.Roster
	metrics  *monitor.Metrics
	listener store.ListenerID
	logger   *slog.Logger
}

// NewBroadcaster subscribes to roster. metrics may be nil.
func NewBroadcaster(room *Room, roster *players.Roster, metrics *monitor.Metrics, logger *slog.Logger) *Broadcaster {
	b := &Broadcaster{
		room:    room,
		roster:  roster,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "presence-broadcaster")),
	}
	b.listener = roster.Subscribe(b.onRosterChange)
	return b
}

// Close stops listening to the roster
func (b *Broadcaster) Close() {
	b.roster.Unsubscribe(b.listener)
}

func (b *Broadcaster) onRosterChange(current []model.Player) {
	b.room.Publish(len(current))
	if b.metrics != nil {
		b.metrics.ObserveRoster(current)
		b.metrics.Watchers.Set(float64(b.room.Size()))
	}
	b.logger.Debug("roster count published", slog.Int("count", len(current)))
}
