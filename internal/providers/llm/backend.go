package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Backend asks a model for completions.
type Backend interface {
	Name() string
	Complete(ctx context.Context, req Request) ([]string, error)
}

// BackendConfig selects and configures a backend.
type BackendConfig struct {
	// Name is "anthropic", "openai" or "gemini".
	Name  string
	Model string
	// APIKeyEnv names the environment variable holding the key. Empty uses
	// the backend's usual variable.
	APIKeyEnv string
	// BaseURL overrides the API endpoint.
	BaseURL   string
	MaxTokens int
}

var defaultKeyEnv = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

var defaultModel = map[string]string{
	"anthropic": "claude-3-5-haiku-latest",
	"openai":    "gpt-4o-mini",
	"gemini":    "gemini-1.5-flash",
}

// Backends lists the supported backend names.
func Backends() []string {
	return []string{"anthropic", "openai", "gemini"}
}

// NewBackend creates the backend cfg names.
func NewBackend(ctx context.Context, cfg BackendConfig) (Backend, error) {
	name := strings.ToLower(cfg.Name)
	envName, ok := defaultKeyEnv[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Name)
	}
	if cfg.APIKeyEnv != "" {
		envName = cfg.APIKeyEnv
	}
	key := os.Getenv(envName)
	if key == "" {
		return nil, fmt.Errorf("%w: $%s", ErrNoAPIKey, envName)
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel[name]
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 256
	}

	switch name {
	case "anthropic":
		return newAnthropic(key, cfg), nil
	case "openai":
		return newOpenAI(key, cfg), nil
	default:
		return newGemini(ctx, key, cfg)
	}
}
