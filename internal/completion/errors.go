package completion

import (
	"context"
	"errors"
)

var (
	// ErrNotSupported is returned by providers that decline to complete in
	// the given context. It is treated like cancellation.
	ErrNotSupported = errors.New("completion: not supported")

	// ErrNoSuchProvider is returned when a provider is not part of a context.
	ErrNoSuchProvider = errors.New("completion: provider not registered")
)

// IsIgnorable reports whether err is an expected, silent outcome of a
// populate request: cancellation, deadline expiry or ErrNotSupported.
func IsIgnorable(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrNotSupported)
}
