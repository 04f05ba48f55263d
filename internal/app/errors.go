package app

import (
	"errors"
)

var (
	// ErrQuit is returned by key commands that end the edit session.
	ErrQuit = errors.New("app: quit requested")

	// ErrNoPosition is returned when a completion request names no
	// position in the buffer.
	ErrNoPosition = errors.New("app: no completion position")
)

// InitError reports a component that could not be set up.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}
