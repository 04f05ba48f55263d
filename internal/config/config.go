package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsonparser "github.com/knadh/koanf/parsers/json"
	tomlparser "github.com/knadh/koanf/parsers/toml"
	yamlparser "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/ksense/internal/display/popup"
)

//go:embed defaults.toml
var defaultsTOML []byte

// Config is the complete ksense configuration.
type Config struct {
	Completion CompletionConfig `koanf:"completion" toml:"completion"`
	Logging    LoggingConfig    `koanf:"logging" toml:"logging"`
	Display    DisplayConfig    `koanf:"display" toml:"display"`
	Providers  ProvidersConfig  `koanf:"providers" toml:"providers"`
}

// CompletionConfig holds engine settings.
type CompletionConfig struct {
	// NRows is the number of rows the popup shows.
	NRows int `koanf:"n_rows" toml:"n_rows"`
	// DebounceMS is the delay before a burst of typing is re-queried.
	DebounceMS int `koanf:"debounce_ms" toml:"debounce_ms"`
	// Interactive enables completion while typing. When false only the
	// request key opens the popup.
	Interactive bool `koanf:"interactive" toml:"interactive"`
}

// Debounce returns DebounceMS as a duration.
func (c CompletionConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level" toml:"level"`
	Format string `koanf:"format" toml:"format"`
}

// DisplayConfig holds popup settings.
type DisplayConfig struct {
	MaxWidth int         `koanf:"max_width" toml:"max_width"`
	Theme    popup.Theme `koanf:"theme" toml:"theme"`
}

// ProvidersConfig holds one section per provider.
type ProvidersConfig struct {
	Words    WordsConfig    `koanf:"words" toml:"words"`
	Snippets SnippetsConfig `koanf:"snippets" toml:"snippets"`
	Lua      LuaConfig      `koanf:"lua" toml:"lua"`
	LSP      LSPConfig      `koanf:"lsp" toml:"lsp"`
	LLM      LLMConfig      `koanf:"llm" toml:"llm"`
}

// WordsConfig configures the buffer words provider.
type WordsConfig struct {
	Enabled      bool `koanf:"enabled" toml:"enabled"`
	Priority     int  `koanf:"priority" toml:"priority"`
	MinWordSize  int  `koanf:"min_word_size" toml:"min_word_size"`
	MaxScanBytes int  `koanf:"max_scan_bytes" toml:"max_scan_bytes"`
}

// SnippetsConfig configures the snippets provider. An empty Path uses
// snippets.yaml next to the configuration file.
type SnippetsConfig struct {
	Enabled  bool   `koanf:"enabled" toml:"enabled"`
	Priority int    `koanf:"priority" toml:"priority"`
	Path     string `koanf:"path" toml:"path"`
}

// LuaConfig configures script providers. Each script is one provider.
type LuaConfig struct {
	Enabled   bool     `koanf:"enabled" toml:"enabled"`
	Priority  int      `koanf:"priority" toml:"priority"`
	Scripts   []string `koanf:"scripts" toml:"scripts"`
	TimeoutMS int      `koanf:"timeout_ms" toml:"timeout_ms"`
}

// LSPConfig configures the language server provider.
type LSPConfig struct {
	Enabled  bool     `koanf:"enabled" toml:"enabled"`
	Priority int      `koanf:"priority" toml:"priority"`
	Command  string   `koanf:"command" toml:"command"`
	Args     []string `koanf:"args" toml:"args"`
	// Languages restricts the server to these buffer languages. Empty
	// means every language.
	Languages []string `koanf:"languages" toml:"languages"`
	TimeoutMS int      `koanf:"timeout_ms" toml:"timeout_ms"`
}

// LLMConfig configures the model-backed provider.
type LLMConfig struct {
	Enabled  bool   `koanf:"enabled" toml:"enabled"`
	Priority int    `koanf:"priority" toml:"priority"`
	Backend  string `koanf:"backend" toml:"backend"`
	Model    string `koanf:"model" toml:"model"`
	// APIKeyEnv names the variable holding the API key. The key itself is
	// never stored in configuration.
	APIKeyEnv    string `koanf:"api_key_env" toml:"api_key_env"`
	BaseURL      string `koanf:"base_url" toml:"base_url"`
	MaxProposals int    `koanf:"max_proposals" toml:"max_proposals"`
	TimeoutMS    int    `koanf:"timeout_ms" toml:"timeout_ms"`
}

// Millis converts a millisecond setting to a duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := load(nil, "", false)
	if err != nil {
		panic(fmt.Sprintf("config: built-in defaults: %v", err))
	}
	return cfg
}

// DefaultPath returns $XDG_CONFIG_HOME/ksense/config.toml (or the
// platform equivalent) when that file exists, and "" otherwise.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, "ksense", "config.toml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// Load reads the file at path over the defaults and applies the
// environment. An empty path loads the defaults and environment only.
func Load(path string) (*Config, error) {
	if path == "" {
		return load(nil, "", true)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := load(data, filepath.Ext(path), true)
	var ve *ValidationError
	if errors.As(err, &ve) {
		ve.Source = path
	}
	return cfg, err
}

// Parse reads data in the format named by ext (".toml", ".yaml", ".yml"
// or ".json") over the defaults. The environment is not consulted.
func Parse(data []byte, ext string) (*Config, error) {
	return load(data, ext, false)
}

func parserFor(ext string) (koanf.Parser, error) {
	switch strings.ToLower(ext) {
	case ".toml":
		return tomlparser.Parser(), nil
	case ".yaml", ".yml":
		return yamlparser.Parser(), nil
	case ".json":
		return jsonparser.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func load(data []byte, ext string, env bool) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaultsTOML), tomlparser.Parser()); err != nil {
		return nil, err
	}

	if data != nil {
		parser, err := parserFor(ext)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return nil, fmt.Errorf("config: parse: %w", err)
		}
	}

	if env {
		if err := applyEnv(k, os.Environ()); err != nil {
			return nil, err
		}
	}

	if problems, err := validateSchema(k.Raw()); err != nil {
		return nil, err
	} else if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// TOML encodes the configuration as a TOML document.
func (c *Config) TOML() ([]byte, error) {
	return toml.Marshal(c)
}
