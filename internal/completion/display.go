package completion

import (
	"github.com/dshills/ksense/internal/key"
	"github.com/dshills/ksense/internal/text"
)

// Display presents the current Context. The engine only drives it; it
// never inspects what the display draws.
type Display interface {
	// Attach binds the display to the view it overlays.
	Attach(view text.View)
	// SetContext replaces the Context being shown. nil detaches.
	SetContext(cc *Context)
	// SetNRows sets the number of visible rows, 1 to 32.
	SetNRows(n int)
	// KeyPressEvent handles ev while visible and reports whether it was
	// consumed.
	KeyPressEvent(ev key.Event) bool
	// MoveCursor moves the row selection by count units of step. Negative
	// counts move up.
	MoveCursor(step text.Movement, count int)

	Show()
	Hide()
	IsVisible() bool
}

// DisplayFactory creates the display of an engine.
type DisplayFactory func(e *Engine) Display

// headlessDisplay is used when no factory is configured. It only tracks
// state so callers can read results straight from the Context.
type headlessDisplay struct {
	view    text.View
	context *Context
	nRows   int
	visible bool
}

func (d *headlessDisplay) Attach(view text.View)         { d.view = view }
func (d *headlessDisplay) SetContext(cc *Context)        { d.context = cc }
func (d *headlessDisplay) SetNRows(n int)                { d.nRows = n }
func (d *headlessDisplay) KeyPressEvent(key.Event) bool  { return false }
func (d *headlessDisplay) MoveCursor(text.Movement, int) {}
func (d *headlessDisplay) Show()                         { d.visible = true }
func (d *headlessDisplay) Hide()                         { d.visible = false }
func (d *headlessDisplay) IsVisible() bool               { return d.visible }
