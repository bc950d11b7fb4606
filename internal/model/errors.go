package model

import (
	"errors"
	"fmt"
)

// Error families surfaced to clients
var (
	ErrInvalidUsername        = errors.New("invalid username")
	ErrConnectionAlreadyBound = errors.New("connection already owns a player")
	ErrPlayerNotFound         = errors.New("player not found")
	ErrInvalidTransition      = errors.New("invalid transition")
)

// Username errors
var (
	ErrUsernameTaken    = fmt.Errorf("%w: username is already taken", ErrInvalidUsername)
	ErrUsernameTooShort = fmt.Errorf("%w: username is too short (%d characters min)", ErrInvalidUsername, MinUsernameLength)
	ErrUsernameTooLong  = fmt.Errorf("%w: username is too long (%d characters max)", ErrInvalidUsername, MaxUsernameLength-1)
)

// Ready errors
var (
	ErrAlreadyReady = fmt.Errorf("%w: player is already ready", ErrInvalidTransition)
	ErrNotReady     = fmt.Errorf("%w: player is not ready", ErrInvalidTransition)
	ErrPlayerInGame = fmt.Errorf("%w: player is in a game", ErrInvalidTransition)
)

// Game errors
var (
	ErrGameNotFound = errors.New("game not found")
	ErrGameEnded    = errors.New("game has already ended")
)

const (
	// MinUsernameLength is the shortest accepted username, in characters
	MinUsernameLength = 3
	// MaxUsernameLength is the exclusive upper bound on username length, in characters
	MaxUsernameLength = 15
)
