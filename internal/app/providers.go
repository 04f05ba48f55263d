package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/ksense/internal/completion"
	"github.com/dshills/ksense/internal/config"
	"github.com/dshills/ksense/internal/providers/llm"
	"github.com/dshills/ksense/internal/providers/lspprov"
	"github.com/dshills/ksense/internal/providers/luaprov"
	"github.com/dshills/ksense/internal/providers/snippets"
	"github.com/dshills/ksense/internal/providers/words"
	"github.com/dshills/ksense/internal/registry"
)

// DefaultSnippetsFile is looked up in the config directory when no
// snippet path is configured.
const DefaultSnippetsFile = "snippets.yaml"

func (a *App) setupProviders(ctx context.Context) {
	p := a.cfg.Providers

	if p.Words.Enabled {
		a.register("words", nil, words.New(words.Config{
			Priority:    p.Words.Priority,
			MinWordSize: p.Words.MinWordSize,
			MaxScan:     p.Words.MaxScanBytes,
		}, a.log))
	}

	if p.Snippets.Enabled {
		a.register("snippets", nil, snippets.New(a.snippetsPath(), p.Snippets.Priority, a.log))
	}

	if p.Lua.Enabled {
		for _, script := range p.Lua.Scripts {
			path := a.resolve(script)
			prov, err := luaprov.LoadFile(path, luaprov.Config{
				Priority: p.Lua.Priority,
				Timeout:  config.Millis(p.Lua.TimeoutMS),
			}, a.log)
			if err != nil {
				a.skip("lua", &InitError{Component: "lua script " + script, Err: err})
				continue
			}
			a.register("lua:"+strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), nil, prov)
		}
	}

	if p.LSP.Enabled {
		a.register("lsp", p.LSP.Languages, lspprov.New(lspprov.Config{
			Command:  p.LSP.Command,
			Args:     p.LSP.Args,
			Root:     a.root,
			Priority: p.LSP.Priority,
			Timeout:  config.Millis(p.LSP.TimeoutMS),
		}, a.log))
	}

	if p.LLM.Enabled {
		backend, err := llm.NewBackend(ctx, llm.BackendConfig{
			Name:      p.LLM.Backend,
			Model:     p.LLM.Model,
			APIKeyEnv: p.LLM.APIKeyEnv,
			BaseURL:   p.LLM.BaseURL,
		})
		if err != nil {
			a.skip("llm", &InitError{Component: "llm backend", Err: err})
		} else {
			a.register("llm", nil, llm.New(backend, llm.Config{
				Priority:     p.LLM.Priority,
				MaxProposals: p.LLM.MaxProposals,
				Timeout:      config.Millis(p.LLM.TimeoutMS),
			}, a.log))
		}
	}

	a.entry.WithField("providers", a.set.Names()).Debug("providers registered")
}

func (a *App) register(name string, languages []string, p completion.Provider) {
	err := a.set.Register(registry.Registration{Name: name, Languages: languages, Provider: p})
	if err != nil {
		a.skip(name, err)
		if c, ok := p.(io.Closer); ok {
			_ = c.Close()
		}
		return
	}
	if c, ok := p.(io.Closer); ok {
		a.closers = append(a.closers, namedCloser{name: name, c: c})
	}
}

func (a *App) skip(name string, err error) {
	a.entry.WithError(err).WithField("provider", name).Warn("provider disabled")
}

// configDir is the directory relative paths resolve against: the config
// file's directory, or the user config directory.
func (a *App) configDir() string {
	if a.configPath != "" {
		return filepath.Dir(a.configPath)
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "ksense")
}

func (a *App) resolve(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(a.configDir(), path)
}

// snippetsPath returns the configured snippet file, or the default file
// when it exists.
func (a *App) snippetsPath() string {
	if p := a.cfg.Providers.Snippets.Path; p != "" {
		return a.resolve(p)
	}
	path := filepath.Join(a.configDir(), DefaultSnippetsFile)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
