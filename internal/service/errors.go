package service

import (
	"errors"
	"fmt"

	"sketchrooms/internal/cache"
)

// Error kinds. Match any error of a kind with errors.Is(err, ErrPrecondition).
var (
	ErrValidation   = errors.New("validation error")
	ErrPrecondition = errors.New("precondition failed")
	ErrContention   = errors.New("concurrent update")
	ErrNotFound     = errors.New("not found")
)

// GameError is a failure the caller can show to the player as is
type GameError struct {
	kind error
	msg  string
}

func (e *GameError) Error() string {
	return e.msg
}

// Is lets errors.Is match both the exact value and its kind
func (e *GameError) Is(target error) bool {
	return target == e.kind
}

// Kind returns the taxonomy sentinel of the error
func (e *GameError) Kind() error {
	return e.kind
}

func validationError(msg string) *GameError {
	return &GameError{kind: ErrValidation, msg: msg}
}

func preconditionError(msg string) *GameError {
	return &GameError{kind: ErrPrecondition, msg: msg}
}

func notFoundError(msg string) *GameError {
	return &GameError{kind: ErrNotFound, msg: msg}
}

var (
	ErrRoomNotFound   = notFoundError("Room not found")
	ErrPlayerNotFound = notFoundError("Player not found")

	ErrRoomFull          = preconditionError("Room is full")
	ErrGameInProgress    = preconditionError("Game already in progress")
	ErrNotAllReady       = preconditionError("Not all players are ready")
	ErrNotEnoughPlayers  = preconditionError("At least 2 players are needed to start")
	ErrNotHost           = preconditionError("Only the host can do that")
	ErrNotMember         = preconditionError("You are not in this room")
	ErrSelfKick          = preconditionError("You cannot kick yourself")
	ErrWrongPhase        = preconditionError("Not allowed in the current phase")
	ErrNotDrawer         = preconditionError("Only the drawer can do that")
	ErrDrawerCannotGuess = preconditionError("The drawer cannot guess")
	ErrNoActiveTurn      = preconditionError("No active turn")

	ErrInvalidRoomCode   = validationError("Invalid room code")
	ErrInvalidWord       = validationError("Invalid word choice")
	ErrInvalidDifficulty = validationError("Invalid difficulty")
	ErrInvalidName       = validationError("Name must be 1-24 characters")
	ErrEmptyMessage      = validationError("Message cannot be empty")
	ErrMessageTooLong    = validationError("Message is too long")

	ErrBusy = &GameError{kind: ErrContention, msg: "Too many simultaneous updates, please retry"}
)

// translateStoreError maps store sentinels onto the taxonomy and wraps anything else
func translateStoreError(op string, err error) error {
	var gerr *GameError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &gerr):
		return gerr
	case errors.Is(err, cache.ErrNotFound):
		return ErrRoomNotFound
	case errors.Is(err, cache.ErrConflict):
		return ErrBusy
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
