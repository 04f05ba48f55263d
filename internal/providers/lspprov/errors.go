package lspprov

import "errors"

var (
	// ErrNoCommand is returned when no server command is configured and no
	// client was supplied.
	ErrNoCommand = errors.New("lspprov: no server command configured")

	// ErrNoCompletion is returned when the server does not offer completion.
	ErrNoCompletion = errors.New("lspprov: server does not support completion")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("lspprov: client closed")
)
