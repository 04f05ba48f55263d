// Package app wires configuration, the main loop, the completion providers
// and the terminal together. It backs both the interactive editor and the
// headless completer of the ksense command.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/dshills/ksense/internal/completion"
	"github.com/dshills/ksense/internal/config"
	"github.com/dshills/ksense/internal/display/popup"
	"github.com/dshills/ksense/internal/logging"
	"github.com/dshills/ksense/internal/mainloop"
	"github.com/dshills/ksense/internal/registry"
	"github.com/dshills/ksense/internal/text"
)

// App owns the state shared by every view: the loop, the provider set and
// the effective configuration. All methods except New, Watch and Close run
// on the loop.
type App struct {
	cfg    *config.Config
	log    logrus.FieldLogger
	entry  *logrus.Entry
	loop   *mainloop.Loop
	set    *registry.Set
	styles popup.Styles

	configPath string
	root       string

	engines []*completion.Engine
	closers []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger handed to every component.
func WithLogger(log logrus.FieldLogger) Option {
	return func(a *App) {
		if log != nil {
			a.log = log
		}
	}
}

// WithLoop runs the App on an existing loop.
func WithLoop(loop *mainloop.Loop) Option {
	return func(a *App) {
		if loop != nil {
			a.loop = loop
		}
	}
}

// WithConfigPath records the file the configuration came from. Relative
// snippet and script paths resolve against its directory.
func WithConfigPath(path string) Option {
	return func(a *App) { a.configPath = path }
}

// WithRoot sets the workspace root reported to language servers.
func WithRoot(dir string) Option {
	return func(a *App) { a.root = dir }
}

// New creates an App from cfg and registers the enabled providers. A
// provider that fails to start is logged and skipped; only display setup
// errors are fatal.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	a := &App{
		cfg: cfg,
		log: logging.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.loop == nil {
		a.loop = mainloop.New()
	}
	a.entry = logging.Component(a.log, "app")
	a.set = registry.New(a.log)

	styles, err := cfg.Display.Theme.Styles()
	if err != nil {
		return nil, &InitError{Component: "display", Err: err}
	}
	a.styles = styles

	a.setupProviders(ctx)
	return a, nil
}

// Config returns the effective configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Loop returns the main loop.
func (a *App) Loop() *mainloop.Loop { return a.loop }

// Providers returns the provider set.
func (a *App) Providers() *registry.Set { return a.set }

// NewEngine creates a completion engine for view using the configured
// popup, rows, debounce and interaction mode, and binds it to the provider
// set. onPopup, when non-nil, receives the popup once it is created.
// release unbinds and disposes the engine.
func (a *App) NewEngine(view text.View, onPopup func(*popup.Popup)) (e *completion.Engine, release func()) {
	c := a.cfg.Completion
	e = completion.New(view, a.loop,
		completion.WithLogger(a.log),
		completion.WithNRows(c.NRows),
		completion.WithDebounce(c.Debounce()),
		completion.WithInteractive(c.Interactive),
		completion.WithDisplayFactory(popup.Factory(onPopup,
			popup.WithStyles(a.styles),
			popup.WithMaxWidth(a.cfg.Display.MaxWidth),
		)),
	)
	unbind := a.set.Bind(e)
	a.engines = append(a.engines, e)

	return e, func() {
		unbind()
		a.engines = slices.DeleteFunc(a.engines, func(x *completion.Engine) bool { return x == e })
		e.Dispose()
	}
}

// Apply switches live engines to cfg. Rows, debounce, interaction mode and
// the log level change in place; provider settings take effect on the
// next start.
func (a *App) Apply(cfg *config.Config) {
	if cfg == nil {
		return
	}
	for _, e := range a.engines {
		e.SetNRows(cfg.Completion.NRows)
		e.SetDebounce(cfg.Completion.Debounce())
		e.SetInteractive(cfg.Completion.Interactive)
	}
	if l, ok := a.log.(*logrus.Logger); ok {
		l.SetLevel(logging.ParseLevel(cfg.Logging.Level))
	}
	a.cfg = cfg
	a.entry.WithFields(logrus.Fields{
		"n_rows":      cfg.Completion.NRows,
		"debounce_ms": cfg.Completion.DebounceMS,
		"interactive": cfg.Completion.Interactive,
	}).Info("configuration applied")
}

// Watch reloads the configuration file whenever it changes and applies
// the result on the loop. It returns nil when the App has no config file.
func (a *App) Watch() (*config.Watcher, error) {
	if a.configPath == "" {
		return nil, nil
	}
	w, err := config.Watch(a.configPath, func(cfg *config.Config) {
		a.loop.Post(func() { a.Apply(cfg) })
	}, config.WithWatchLogger(a.log))
	if err != nil {
		return nil, fmt.Errorf("watch config: %w", err)
	}
	return w, nil
}

// Close shuts down providers holding external resources, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", nc.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
