package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ksense/internal/config"
	"github.com/dshills/ksense/internal/editor"
	"github.com/dshills/ksense/internal/logging"
	"github.com/dshills/ksense/internal/textbuf"
)

const keywordsScript = `
title = "Go keywords"

function complete(word, language, line)
  return { "func", "for", "fallthrough" }
end
`

// newApp creates an App whose relative paths resolve inside a temp dir,
// so the user's own config directory is never read.
func newApp(t *testing.T, cfg *config.Config, opts ...Option) *App {
	t.Helper()
	opts = append([]Option{
		WithLogger(logging.Null()),
		WithConfigPath(filepath.Join(t.TempDir(), "ksense.toml")),
	}, opts...)
	a, err := New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })
	return a
}

func TestNewDefaultProviders(t *testing.T) {
	a := newApp(t, nil)
	assert.Equal(t, []string{"snippets", "words"}, a.Providers().Names())
	assert.Equal(t, config.Default(), a.Config())
}

func TestNewProvidersFromConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keywords.lua"), []byte(keywordsScript), 0o644))
	t.Setenv("KSENSE_TEST_NO_KEY", "")

	cfg := config.Default()
	cfg.Providers.Words.Enabled = false
	cfg.Providers.Lua.Enabled = true
	cfg.Providers.Lua.Scripts = []string{"keywords.lua", "missing.lua"}
	cfg.Providers.LSP.Enabled = true
	cfg.Providers.LSP.Command = "gopls"
	cfg.Providers.LSP.Languages = []string{"go"}
	cfg.Providers.LLM.Enabled = true
	cfg.Providers.LLM.APIKeyEnv = "KSENSE_TEST_NO_KEY"

	a := newApp(t, cfg, WithConfigPath(filepath.Join(dir, "ksense.toml")))
	assert.Equal(t, []string{"lsp", "lua:keywords", "snippets"}, a.Providers().Names(),
		"a missing script and a keyless backend are skipped")

	p, ok := a.Providers().Lookup("lua:keywords")
	require.True(t, ok)
	assert.Equal(t, "Go keywords", p.(interface{ Title() string }).Title())
}

func TestNewRegistersLLMWithKey(t *testing.T) {
	t.Setenv("KSENSE_TEST_KEY", "sk-test")

	cfg := config.Default()
	cfg.Providers.LLM.Enabled = true
	cfg.Providers.LLM.Backend = "openai"
	cfg.Providers.LLM.APIKeyEnv = "KSENSE_TEST_KEY"
	cfg.Providers.LLM.BaseURL = "http://127.0.0.1:1"

	a := newApp(t, cfg)
	assert.Contains(t, a.Providers().Names(), "llm")
}

func TestNewRejectsBadTheme(t *testing.T) {
	cfg := config.Default()
	cfg.Display.Theme.Fg = "chartreuse-ish"

	_, err := New(context.Background(), cfg, WithLogger(logging.Null()))
	var initErr *InitError
	require.True(t, errors.As(err, &initErr))
	assert.Equal(t, "display", initErr.Component)
}

func TestSnippetsPath(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ksense.toml")

	a := newApp(t, nil, WithConfigPath(cfgPath))
	assert.Empty(t, a.snippetsPath(), "the default file is only used when present")

	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultSnippetsFile), []byte("[]\n"), 0o644))
	assert.Equal(t, filepath.Join(dir, DefaultSnippetsFile), a.snippetsPath())

	a.cfg.Providers.Snippets.Path = "more/go.yaml"
	assert.Equal(t, filepath.Join(dir, "more", "go.yaml"), a.snippetsPath())

	a.cfg.Providers.Snippets.Path = "/etc/ksense/snippets.yaml"
	assert.Equal(t, "/etc/ksense/snippets.yaml", a.snippetsPath())
}

func TestApplyUpdatesLiveEngines(t *testing.T) {
	a := newApp(t, nil)
	e, release := a.NewEngine(editor.New(textbuf.New("")), nil)
	assert.Equal(t, 5, e.NRows())

	cfg := config.Default()
	cfg.Completion.NRows = 9
	cfg.Completion.DebounceMS = 50
	cfg.Completion.Interactive = false
	a.Apply(cfg)

	assert.Equal(t, 9, e.NRows())
	assert.Equal(t, 50*time.Millisecond, e.Debounce())
	assert.False(t, e.Interactive())
	assert.Same(t, cfg, a.Config())

	release()
	a.Apply(config.Default())
	assert.Equal(t, 9, e.NRows(), "released engines are left alone")
}

func TestWatchAppliesChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ksense.toml")
	require.NoError(t, os.WriteFile(path, []byte("[completion]\nn_rows = 7\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	a := newApp(t, cfg, WithConfigPath(path))

	e, release := a.NewEngine(editor.New(textbuf.New("")), nil)
	defer release()
	assert.Equal(t, 7, e.NRows())

	w, err := a.Watch()
	require.NoError(t, err)
	require.NotNil(t, w)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("[completion]\nn_rows = 3\n"), 0o644))
	require.Eventually(t, func() bool {
		a.Loop().RunPending()
		return e.NRows() == 3
	}, 3*time.Second, 10*time.Millisecond)
}

func TestWatchWithoutConfigFile(t *testing.T) {
	a, err := New(context.Background(), nil, WithLogger(logging.Null()))
	require.NoError(t, err)
	defer a.Close()

	w, err := a.Watch()
	assert.NoError(t, err)
	assert.Nil(t, w)
}

func TestInitError(t *testing.T) {
	err := &InitError{Component: "terminal", Err: os.ErrPermission}
	assert.Equal(t, "init terminal: permission denied", err.Error())
	assert.ErrorIs(t, err, os.ErrPermission)
}
