package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dshills/ksense/internal/completion"
	"github.com/dshills/ksense/internal/providers/llm"
)

// Validate checks the rules the schema does not cover, and the engine
// limits again for configurations built in code.
func (c *Config) Validate() error {
	var problems []Problem
	add := func(path, format string, args ...any) {
		problems = append(problems, Problem{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if n := c.Completion.NRows; n < completion.MinNRows || n > completion.MaxNRows {
		add("completion.n_rows", "must be between %d and %d, got %d", completion.MinNRows, completion.MaxNRows, n)
	}
	if d := c.Completion.DebounceMS; d < 1 || d > 1000 {
		add("completion.debounce_ms", "must be between 1 and 1000, got %d", d)
	}

	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		add("logging.level", "unknown level %q", c.Logging.Level)
	}
	if f := c.Logging.Format; f != "text" && f != "json" {
		add("logging.format", "must be text or json, got %q", f)
	}

	if _, err := c.Display.Theme.Styles(); err != nil {
		add("display.theme", "%v", err)
	}

	p := c.Providers
	if p.LSP.Enabled && strings.TrimSpace(p.LSP.Command) == "" {
		add("providers.lsp.command", "required when the provider is enabled")
	}
	if !slices.Contains(llm.Backends(), strings.ToLower(p.LLM.Backend)) {
		add("providers.llm.backend", "must be one of %s, got %q", strings.Join(llm.Backends(), ", "), p.LLM.Backend)
	}
	for path, ms := range map[string]int{
		"providers.lua.timeout_ms": p.Lua.TimeoutMS,
		"providers.lsp.timeout_ms": p.LSP.TimeoutMS,
		"providers.llm.timeout_ms": p.LLM.TimeoutMS,
	} {
		if ms <= 0 {
			add(path, "must be positive, got %d", ms)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	slices.SortFunc(problems, func(a, b Problem) int { return strings.Compare(a.Path, b.Path) })
	return &ValidationError{Problems: problems}
}
