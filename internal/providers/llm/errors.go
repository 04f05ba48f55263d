package llm

import "errors"

var (
	// ErrUnknownBackend is returned for backend names other than anthropic,
	// openai and gemini.
	ErrUnknownBackend = errors.New("llm: unknown backend")

	// ErrNoAPIKey is returned when the API key environment variable is unset.
	ErrNoAPIKey = errors.New("llm: API key not set")

	// ErrBadResponse is returned when the model's reply holds no completion
	// list.
	ErrBadResponse = errors.New("llm: response holds no completions")
)
