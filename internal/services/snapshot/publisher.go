package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/lobbyhub/internal/model"
	"github.com/mcoot/lobbyhub/internal/services/players"
	"github.com/mcoot/lobbyhub/internal/storage"
	"github.com/mcoot/lobbyhub/internal/store"
)

// saveTimeout bounds a single mirror write
const saveTimeout = 5 * time.Second

// Failed writes are retried with exponential backoff between these bounds
const (
	defaultRetryMin = 250 * time.Millisecond
	defaultRetryMax = 30 * time.Second
)

// Publisher mirrors the secured roster into storage.
//
// Roster writes only record the latest snapshot and signal Run; bursts of
// writes collapse into one storage write of the newest value.
type Publisher struct {
	storage  storage.Storage
	roster   *players.Roster
	listener store.ListenerID
	logger   *slog.Logger
	retryMin time.Duration
	retryMax time.Duration

	mu      sync.Mutex
	pending []model.SecuredPlayer
	dirty   bool
	signal  chan struct{}
}

// NewPublisher subscribes to roster. Nothing is written until Run is called.
func NewPublisher(storage storage.Storage, roster *players.Roster, logger *slog.Logger) *Publisher {
	p := &Publisher{
		storage:  storage,
		roster:   roster,
		logger:   logger.With(slog.String("component", "snapshot")),
		signal:   make(chan struct{}, 1),
		retryMin: defaultRetryMin,
		retryMax: defaultRetryMax,
	}
	p.listener = roster.Subscribe(p.onRosterChange)
	p.onRosterChange(roster.Get())
	return p
}

// Close stops listening to the roster
func (p *Publisher) Close() {
	p.roster.Unsubscribe(p.listener)
}

func (p *Publisher) onRosterChange(current []model.Player) {
	p.mu.Lock()
	p.pending = model.SecureAll(current)
	p.dirty = true
	p.mu.Unlock()

	select {
	case p.signal <- struct{}{}:
	default:
	}
}

// Run writes pending snapshots until ctx is cancelled, then flushes once more.
// A failed write is retried on a backoff timer until one succeeds, so the
// mirror recovers even if the roster never changes again.
func (p *Publisher) Run(ctx context.Context) {
	p.logger.Info("snapshot publisher started")

	var (
		retry   *time.Timer
		retryC  <-chan time.Time
		backoff = p.retryMin
	)
	for {
		select {
		case <-p.signal:
		case <-retryC:
			retryC = nil
		case <-ctx.Done():
			if retry != nil {
				retry.Stop()
			}
			// Final flush with a fresh context so shutdown still persists
			flushCtx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			_ = p.flush(flushCtx)
			cancel()
			p.logger.Info("snapshot publisher stopped")
			return
		}

		if err := p.flush(ctx); err != nil {
			if retryC == nil {
				p.logger.Debug("retrying roster snapshot", slog.Duration("after", backoff))
				retry = time.NewTimer(backoff)
				retryC = retry.C
				backoff = min(backoff*2, p.retryMax)
			}
			continue
		}
		if retry != nil {
			retry.Stop()
			retry, retryC = nil, nil
		}
		backoff = p.retryMin
	}
}

// flush writes the pending snapshot, if any. On failure the snapshot stays
// pending unless a newer one replaced it meanwhile.
func (p *Publisher) flush(ctx context.Context) error {
	p.mu.Lock()
	if !p.dirty {
		p.mu.Unlock()
		return nil
	}
	snapshot := p.pending
	p.dirty = false
	p.mu.Unlock()

	saveCtx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()
	if err := p.storage.SaveRoster(saveCtx, snapshot); err != nil {
		p.logger.Error("failed to save roster snapshot",
			slog.Int("players", len(snapshot)),
			slog.String("error", err.Error()))
		p.mu.Lock()
		if !p.dirty {
			p.pending = snapshot
			p.dirty = true
		}
		p.mu.Unlock()
		return err
	}
	p.logger.Debug("roster snapshot saved", slog.Int("players", len(snapshot)))
	return nil
}
