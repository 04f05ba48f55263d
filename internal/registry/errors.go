package registry

import "errors"

var (
	// ErrAlreadyRegistered is returned when a name is registered twice.
	ErrAlreadyRegistered = errors.New("registry: provider already registered")

	// ErrNotRegistered is returned when a name is unknown.
	ErrNotRegistered = errors.New("registry: provider not registered")

	// ErrNilProvider is returned when a registration has no provider.
	ErrNilProvider = errors.New("registry: nil provider")
)
