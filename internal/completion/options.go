package completion

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dshills/ksense/internal/key"
)

// Engine defaults.
const (
	DefaultNRows    = 5
	MinNRows        = 1
	MaxNRows        = 32
	DefaultDebounce = 20 * time.Millisecond
)

// DefaultRequestKey is the key that asks for completion explicitly.
var DefaultRequestKey = key.NewRuneEvent(' ', key.ModCtrl)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used by the engine and its contexts.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) {
		if log != nil {
			e.baseLog = log
		}
	}
}

// WithDebounce sets the delay between a deletion and the refilter it causes.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.debounce = d
		}
	}
}

// WithNRows sets the number of visible rows. Out of range values are ignored.
func WithNRows(n int) Option {
	return func(e *Engine) {
		if n >= MinNRows && n <= MaxNRows {
			e.nRows = n
		}
	}
}

// WithDisplayFactory sets how the display is created on first use.
func WithDisplayFactory(f DisplayFactory) Option {
	return func(e *Engine) {
		e.factory = f
	}
}

// WithRequestKey replaces the Ctrl+Space binding. A zero event disables it.
func WithRequestKey(ev key.Event) Option {
	return func(e *Engine) {
		e.requestKey = ev
	}
}

// WithInteractive turns completion while typing on or off.
func WithInteractive(on bool) Option {
	return func(e *Engine) {
		e.interactive = on
	}
}

// WithProviders registers providers at construction.
func WithProviders(providers ...Provider) Option {
	return func(e *Engine) {
		e.initial = append(e.initial, providers...)
	}
}
