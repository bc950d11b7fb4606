package players

import (
	"crypto/subtle"
	"log/slog"
	"slices"
	"sync"
	"unicode/utf8"

	"github.com/mcoot/lobbyhub/internal/dependencies/clock"
	"github.com/mcoot/lobbyhub/internal/dependencies/random"
	"github.com/mcoot/lobbyhub/internal/model"
	"github.com/mcoot/lobbyhub/internal/store"
)

// Roster is the listenable store holding every player
type Roster = store.Store[[]model.Player]

// NewRoster creates an empty roster store
func NewRoster(logger *slog.Logger) *Roster {
	return store.New([]model.Player{}, logger)
}

// Registry is the player state machine over the roster.
//
// Every operation holds mu across its whole read-validate-write cycle, so
// username uniqueness and the one-player-per-connection rule hold under
// concurrent callers. The roster slice is never modified in place.
type Registry struct {
	mu     sync.Mutex
	roster *Roster
	clock  clock.Clock
	random random.Random
	logger *slog.Logger
}

// NewRegistry creates a Registry over roster
func NewRegistry(roster *Roster, clock clock.Clock, random random.Random, logger *slog.Logger) *Registry {
	return &Registry{
		roster: roster,
		clock:  clock,
		random: random,
		logger: logger.With(slog.String("component", "players")),
	}
}

// Roster returns the underlying store so observers can subscribe
func (r *Registry) Roster() *Roster {
	return r.roster
}

// LinkResult describes the outcome of Link
type LinkResult struct {
	// Linked is false when no player holds the credential
	Linked bool
	Player model.Player
	// Displaced is the live connection the player was taken from, if any
	Displaced model.ConnectionID
}

// Join creates a player bound to cid. The returned player carries its credential.
func (r *Registry) Join(username string, cid model.ConnectionID) (model.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.roster.Get()
	if indexByConnection(current, cid) >= 0 {
		return model.Player{}, model.ErrConnectionAlreadyBound
	}
	if err := validateUsername(current, username); err != nil {
		return model.Player{}, err
	}

	player := model.Player{
		ID:           model.PlayerID(r.random.UUID()),
		ConnectionID: cid,
		Credential:   model.Credential(r.random.UUID()),
		Username:     username,
		Status:       model.StatusIdling,
		JoinedAt:     r.clock.Now(),
	}

	r.roster.Update(func(old []model.Player) []model.Player {
		next := make([]model.Player, 0, len(old)+1)
		next = append(next, old...)
		return append(next, player)
	})

	r.logger.Info("player joined",
		slog.String("player_id", string(player.ID)),
		slog.String("connection_id", string(cid)),
		slog.String("username", username))
	return player, nil
}

// Edit renames the player bound to cid.
// The new name is checked against the full roster, including the player's
// own current name.
func (r *Registry) Edit(username string, cid model.ConnectionID) (model.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.roster.Get()
	idx := indexByConnection(current, cid)
	if idx < 0 {
		return model.Player{}, model.ErrPlayerNotFound
	}
	if err := validateUsername(current, username); err != nil {
		return model.Player{}, err
	}

	updated := r.replace(idx, func(p *model.Player) { p.Username = username })
	r.logger.Info("player renamed",
		slog.String("player_id", string(updated.ID)),
		slog.String("username", username))
	return updated, nil
}

// Link binds the player holding credential to cid, replacing any previous
// binding of that player. An unknown credential is not an error: the result
// simply reports Linked == false.
func (r *Registry) Link(credential model.Credential, cid model.ConnectionID) (LinkResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.roster.Get()
	own := indexByConnection(current, cid)
	target := indexByCredential(current, credential)

	// A connection owning a player may only relink that same player.
	// Checked before the lookup result is used, so the error says nothing
	// about whether the credential exists.
	if own >= 0 && own != target {
		return LinkResult{}, model.ErrConnectionAlreadyBound
	}
	if target < 0 {
		return LinkResult{}, nil
	}

	previous := current[target].ConnectionID
	updated := r.replace(target, func(p *model.Player) { p.ConnectionID = cid })

	result := LinkResult{Linked: true, Player: updated}
	if previous != "" && previous != cid {
		result.Displaced = previous
	}

	r.logger.Info("player linked",
		slog.String("player_id", string(updated.ID)),
		slog.String("connection_id", string(cid)),
		slog.Bool("displaced", result.Displaced != ""))
	return result, nil
}

// Unlink detaches the player bound to cid, leaving it in the roster.
// It reports false when no player was bound.
func (r *Registry) Unlink(cid model.ConnectionID) (model.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := indexByConnection(r.roster.Get(), cid)
	if idx < 0 {
		return model.Player{}, false
	}

	updated := r.replace(idx, func(p *model.Player) { p.ConnectionID = "" })
	r.logger.Info("player unlinked", slog.String("player_id", string(updated.ID)))
	return updated, true
}

// Quit removes the player bound to cid from the roster.
// It reports false, without touching the roster, when no player was bound.
func (r *Registry) Quit(cid model.ConnectionID) (model.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.roster.Get()
	idx := indexByConnection(current, cid)
	if idx < 0 {
		return model.Player{}, false
	}
	removed := current[idx]

	r.roster.Update(func(old []model.Player) []model.Player {
		next := make([]model.Player, 0, len(old)-1)
		next = append(next, old[:idx]...)
		return append(next, old[idx+1:]...)
	})

	r.logger.Info("player quit", slog.String("player_id", string(removed.ID)))
	return removed, true
}

// Ready sets the readiness of the player bound to cid. A nil requested
// value toggles it. Requests that would not change anything are rejected.
func (r *Registry) Ready(requested *bool, cid model.ConnectionID) (model.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.roster.Get()
	idx := indexByConnection(current, cid)
	if idx < 0 {
		return model.Player{}, model.ErrPlayerNotFound
	}

	player := current[idx]
	if player.Status == model.StatusPlaying {
		return model.Player{}, model.ErrPlayerInGame
	}

	target := !player.IsReady()
	if requested != nil {
		target = *requested
	}
	if target == player.IsReady() {
		if target {
			return model.Player{}, model.ErrAlreadyReady
		}
		return model.Player{}, model.ErrNotReady
	}

	status := model.StatusIdling
	if target {
		status = model.StatusReady
	}
	return r.replace(idx, func(p *model.Player) { p.Status = status }), nil
}

// ClaimReady atomically moves the first n ready and connected players, in
// roster order, to playing. It claims nobody and returns nil if fewer than
// n qualify. Ready players without a connection wait until they relink.
func (r *Registry) ClaimReady(n int) []model.Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	var picked []int
	for i, p := range r.roster.Get() {
		if p.IsReady() && p.Linked() {
			picked = append(picked, i)
			if len(picked) == n {
				break
			}
		}
	}
	if n <= 0 || len(picked) < n {
		return nil
	}

	var claimed []model.Player
	r.roster.Update(func(old []model.Player) []model.Player {
		next := slices.Clone(old)
		for _, i := range picked {
			next[i].Status = model.StatusPlaying
			claimed = append(claimed, next[i])
		}
		return next
	})
	return claimed
}

// Release returns the given playing players to idling and returns the
// players it moved. Ids no longer in the roster are skipped.
func (r *Registry) Release(ids []model.PlayerID) []model.Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := false
	for _, p := range r.roster.Get() {
		if p.Status == model.StatusPlaying && slices.Contains(ids, p.ID) {
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}

	var released []model.Player
	r.roster.Update(func(old []model.Player) []model.Player {
		next := slices.Clone(old)
		for i := range next {
			if next[i].Status == model.StatusPlaying && slices.Contains(ids, next[i].ID) {
				next[i].Status = model.StatusIdling
				released = append(released, next[i])
			}
		}
		return next
	})
	return released
}

// All returns the secured view of every player
func (r *Registry) All() []model.SecuredPlayer {
	return model.SecureAll(r.roster.Get())
}

// ByID returns the secured view of one player
func (r *Registry) ByID(id model.PlayerID) (model.SecuredPlayer, error) {
	for _, p := range r.roster.Get() {
		if p.ID == id {
			return p.Secured(), nil
		}
	}
	return model.SecuredPlayer{}, model.ErrPlayerNotFound
}

// ByConnection returns the player bound to cid, if any
func (r *Registry) ByConnection(cid model.ConnectionID) (model.Player, bool) {
	current := r.roster.Get()
	idx := indexByConnection(current, cid)
	if idx < 0 {
		return model.Player{}, false
	}
	return current[idx], true
}

// Count returns the roster size, orphaned players included
func (r *Registry) Count() int {
	return len(r.roster.Get())
}

// replace writes a modified copy of the element at idx into a new roster
// and returns the modified player. Must be called with mu held.
func (r *Registry) replace(idx int, modify func(p *model.Player)) model.Player {
	var updated model.Player
	r.roster.Update(func(old []model.Player) []model.Player {
		next := slices.Clone(old)
		modify(&next[idx])
		updated = next[idx]
		return next
	})
	return updated
}

func validateUsername(players []model.Player, username string) error {
	for _, p := range players {
		if p.Username == username {
			return model.ErrUsernameTaken
		}
	}
	length := utf8.RuneCountInString(username)
	if length < model.MinUsernameLength {
		return model.ErrUsernameTooShort
	}
	if length >= model.MaxUsernameLength {
		return model.ErrUsernameTooLong
	}
	return nil
}

func indexByConnection(players []model.Player, cid model.ConnectionID) int {
	if cid == "" {
		return -1
	}
	for i, p := range players {
		if p.ConnectionID == cid {
			return i
		}
	}
	return -1
}

func indexByCredential(players []model.Player, credential model.Credential) int {
	if credential == "" {
		return -1
	}
	for i, p := range players {
		if subtle.ConstantTimeCompare([]byte(p.Credential), []byte(credential)) == 1 {
			return i
		}
	}
	return -1
}
