package snippets

import "errors"

var (
	// ErrNoTrigger is returned for snippets without a trigger.
	ErrNoTrigger = errors.New("snippets: missing trigger")

	// ErrNoBody is returned for snippets without a body.
	ErrNoBody = errors.New("snippets: missing body")
)
