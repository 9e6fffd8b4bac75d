/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

import "errors"

// GameError is an engine error. The messages of the public ones are shown to
// players as is.
type GameError string

func (e GameError) Error() string {
	return string(e)
}

const (
	ErrGameNotFound       GameError = "Game not found"
	ErrGameOver           GameError = "Game has already ended"
	ErrQuizNotFound       GameError = "Quiz not found"
	ErrInvalidTransition  GameError = "command not valid in current state"
	ErrStaleTimer         GameError = "stale timer"
	ErrCodeSpaceExhausted GameError = "unable to allocate a unique game code"
	ErrUnknownCommand     GameError = "unknown command"
)

// Public reports whether err should be sent back to the client that caused
// it. Everything else is dropped after logging.
func Public(err error) bool {
	return errors.Is(err, ErrGameNotFound) ||
		errors.Is(err, ErrGameOver) ||
		errors.Is(err, ErrQuizNotFound)
}

// ignored reports whether err is a benign race rather than a fault.
func ignored(err error) bool {
	return errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrStaleTimer)
}
