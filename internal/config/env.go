package config

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/knadh/koanf/v2"
)

// EnvPrefix starts every environment variable the configuration reads.
const EnvPrefix = "KSENSE_"

// envMapping maps short variable names to setting paths.
var envMapping = map[string]string{
	"KSENSE_LOG_LEVEL":   "logging.level",
	"KSENSE_LOG_FORMAT":  "logging.format",
	"KSENSE_N_ROWS":      "completion.n_rows",
	"KSENSE_DEBOUNCE_MS": "completion.debounce_ms",
	"KSENSE_LSP_COMMAND": "providers.lsp.command",
	"KSENSE_LLM_BACKEND": "providers.llm.backend",
	"KSENSE_LLM_MODEL":   "providers.llm.model",
}

// applyEnv sets the mapped variables, then any variable naming a path with
// double underscores: KSENSE_PROVIDERS__LLM__ENABLED sets
// providers.llm.enabled. Empty variables count as unset.
func applyEnv(k *koanf.Koanf, environ []string) error {
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		path, ok := envMapping[name]
		if !ok {
			path, ok = envToPath(name)
		}
		if !ok {
			continue
		}
		if err := k.Set(path, parseEnvValue(value)); err != nil {
			return err
		}
	}
	return nil
}

func envToPath(name string) (string, bool) {
	rest := strings.TrimPrefix(name, EnvPrefix)
	if !strings.Contains(rest, "__") {
		return "", false
	}
	parts := strings.Split(strings.ToLower(rest), "__")
	for _, p := range parts {
		if p == "" {
			return "", false
		}
	}
	return strings.Join(parts, "."), true
}

// parseEnvValue converts s to an int, bool, float or JSON array/object
// when it looks like one, and leaves it a string otherwise.
func parseEnvValue(s string) any {
	if s == "" {
		return s
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	return s
}
