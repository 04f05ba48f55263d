package editor

import (
	"strings"

	"github.com/dshills/ksense/internal/key"
	"github.com/dshills/ksense/internal/signal"
	"github.com/dshills/ksense/internal/text"
	"github.com/dshills/ksense/internal/textbuf"
)

// DefaultTabWidth is the number of columns a tab advances to.
const DefaultTabWidth = 4

type moveEvent struct {
	step   text.Movement
	count  int
	extend bool
}

// View is a single-cursor text view.
type View struct {
	buf *textbuf.Buffer

	focused    bool
	visible    bool
	processing int
	pasting    int

	hooks hookChain

	moveCursor  signal.Signal[moveEvent]
	focusOut    signal.Signal[struct{}]
	buttonPress signal.Signal[struct{}]
	pasteBegin  signal.Signal[struct{}]
	pasteEnd    signal.Signal[struct{}]

	// Layout, in cells. top is the first visible line.
	x, y          int
	width, height int
	top           int
	tabWidth      int

	// column the caret tries to keep when moving vertically.
	goalColumn int
}

var _ text.View = (*View)(nil)

// Option configures a View.
type Option func(*View)

// WithTabWidth sets the tab width in columns.
func WithTabWidth(n int) Option {
	return func(v *View) {
		if n > 0 {
			v.tabWidth = n
		}
	}
}

// WithSize sets the initial size in cells.
func WithSize(width, height int) Option {
	return func(v *View) {
		v.width, v.height = width, height
	}
}

// New creates a focused, visible view over buf.
func New(buf *textbuf.Buffer, opts ...Option) *View {
	v := &View{
		buf:        buf,
		focused:    true,
		visible:    true,
		tabWidth:   DefaultTabWidth,
		width:      80,
		height:     24,
		goalColumn: -1,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Buffer returns the buffer as a text.Buffer.
func (v *View) Buffer() text.Buffer { return v.buf }

// TextBuffer returns the concrete buffer.
func (v *View) TextBuffer() *textbuf.Buffer { return v.buf }

// HasFocus reports whether the view has keyboard focus.
func (v *View) HasFocus() bool { return v.focused }

// IsVisible reports whether the view is shown.
func (v *View) IsVisible() bool { return v.visible }

// IsProcessingKey reports whether HandleKey is running.
func (v *View) IsProcessingKey() bool { return v.processing > 0 }

// HasMultipleCursors is always false; the view has one caret.
func (v *View) HasMultipleCursors() bool { return false }

// IsPasting reports whether a bracketed paste is in progress.
func (v *View) IsPasting() bool { return v.pasting > 0 }

// AddKeyHook registers a named hook at the given priority.
func (v *View) AddKeyHook(name string, priority HookPriority, hook KeyHook) HookID {
	return v.hooks.add(name, priority, hook)
}

// RemoveKeyHook unregisters a hook.
func (v *View) RemoveKeyHook(id HookID) bool {
	return v.hooks.remove(id)
}

// KeyHookNames lists hooks in dispatch order.
func (v *View) KeyHookNames() []string {
	return v.hooks.names()
}

// OnKeyPress registers fn as a normal priority key hook.
func (v *View) OnKeyPress(fn func(ev key.Event) bool) func() {
	id := v.hooks.add("", HookPriorityNormal, fn)
	return func() { v.hooks.remove(id) }
}

// OnMoveCursor registers fn for caret navigation.
func (v *View) OnMoveCursor(fn func(step text.Movement, count int, extend bool)) func() {
	id := v.moveCursor.Connect(func(ev moveEvent) { fn(ev.step, ev.count, ev.extend) })
	return func() { v.moveCursor.Disconnect(id) }
}

// OnFocusOut registers fn for focus loss.
func (v *View) OnFocusOut(fn func()) func() { return connectVoid(&v.focusOut, fn) }

// OnButtonPress registers fn for mouse clicks in the view.
func (v *View) OnButtonPress(fn func()) func() { return connectVoid(&v.buttonPress, fn) }

// OnPasteBegin registers fn for the start of a paste.
func (v *View) OnPasteBegin(fn func()) func() { return connectVoid(&v.pasteBegin, fn) }

// OnPasteEnd registers fn for the end of a paste.
func (v *View) OnPasteEnd(fn func()) func() { return connectVoid(&v.pasteEnd, fn) }

func connectVoid(s *signal.Signal[struct{}], fn func()) func() {
	id := s.Connect(func(struct{}) { fn() })
	return func() { s.Disconnect(id) }
}

// Focus gives the view keyboard focus.
func (v *View) Focus() { v.focused = true }

// Blur removes focus.
func (v *View) Blur() {
	if !v.focused {
		return
	}
	v.focused = false
	v.focusOut.Emit(struct{}{})
}

// SetVisible shows or hides the view.
func (v *View) SetVisible(visible bool) { v.visible = visible }

// HandleKey runs the hook chain and then the view's own editing commands.
// It reports whether anything handled ev.
func (v *View) HandleKey(ev key.Event) bool {
	v.processing++
	defer func() { v.processing-- }()

	if v.hooks.dispatch(ev) {
		return true
	}
	return v.defaultKey(ev)
}

func (v *View) defaultKey(ev key.Event) bool {
	ctrl := ev.Modifiers.HasCtrl()

	switch ev.Key {
	case key.KeyRune:
		if ctrl || ev.Modifiers.HasAlt() {
			return false
		}
		v.insert(string(ev.Rune))
	case key.KeyEnter:
		v.insert("\n")
	case key.KeyTab:
		v.insert("\t")
	case key.KeyBackspace:
		v.deleteBackward()
	case key.KeyDelete:
		v.deleteForward()
	case key.KeyLeft:
		v.move(text.MoveSteps, -1, v.buf.Cursor()-1)
	case key.KeyRight:
		v.move(text.MoveSteps, 1, v.buf.Cursor()+1)
	case key.KeyUp:
		v.moveLines(text.MoveSteps, -1)
	case key.KeyDown:
		v.moveLines(text.MoveSteps, 1)
	case key.KeyPageUp:
		v.moveLines(text.MovePages, -1)
	case key.KeyPageDown:
		v.moveLines(text.MovePages, 1)
	case key.KeyHome:
		if ctrl {
			v.move(text.MoveBufferEnds, -1, 0)
		} else {
			v.move(text.MoveSteps, -1, v.buf.LineStart(v.buf.Cursor()))
		}
	case key.KeyEnd:
		if ctrl {
			v.move(text.MoveBufferEnds, 1, v.buf.Len())
		} else {
			v.move(text.MoveSteps, 1, v.buf.LineEnd(v.buf.Cursor()))
		}
	default:
		return false
	}
	return true
}

func (v *View) insert(s string) {
	v.goalColumn = -1
	v.buf.InsertAtCursor(s)
}

func (v *View) deleteBackward() {
	v.goalColumn = -1
	if v.buf.HasSelection() {
		lo, hi := v.buf.Selection()
		v.buf.Delete(lo, hi)
		return
	}
	c := v.buf.Cursor()
	if c > 0 {
		v.buf.Delete(c-1, c)
	}
}

func (v *View) deleteForward() {
	v.goalColumn = -1
	if v.buf.HasSelection() {
		lo, hi := v.buf.Selection()
		v.buf.Delete(lo, hi)
		return
	}
	c := v.buf.Cursor()
	if c < v.buf.Len() {
		v.buf.Delete(c, c+1)
	}
}

func (v *View) move(step text.Movement, count, offset int) {
	v.goalColumn = -1
	v.moveCursor.Emit(moveEvent{step: step, count: count})
	v.buf.SetCursor(offset)
}

// moveLines moves count lines, or count pages with MovePages, keeping the
// goal column.
func (v *View) moveLines(step text.Movement, count int) {
	pos := v.buf.PositionAt(v.buf.Cursor())
	if v.goalColumn < 0 {
		v.goalColumn = pos.Column
	}
	lines := count
	if step == text.MovePages {
		lines = count * max(v.height-1, 1)
	}
	line := max(pos.Line+lines, 0)
	offset := v.buf.OffsetAt(textbuf.Position{Line: line, Column: v.goalColumn})

	goal := v.goalColumn
	v.moveCursor.Emit(moveEvent{step: step, count: count})
	v.buf.SetCursor(offset)
	v.goalColumn = goal
}

// BeginPaste marks the start of a bracketed paste. Keys handled until
// EndPaste are inserted literally.
func (v *View) BeginPaste() {
	v.pasting++
	if v.pasting == 1 {
		v.pasteBegin.Emit(struct{}{})
	}
}

// EndPaste marks the end of a bracketed paste.
func (v *View) EndPaste() {
	if v.pasting == 0 {
		return
	}
	v.pasting--
	if v.pasting == 0 {
		v.pasteEnd.Emit(struct{}{})
	}
}

// Paste inserts s at the cursor as one paste.
func (v *View) Paste(s string) {
	v.BeginPaste()
	v.processing++
	v.insert(strings.ReplaceAll(s, "\r\n", "\n"))
	v.processing--
	v.EndPaste()
}

// Click places the caret at a cell of the view.
func (v *View) Click(x, y int) {
	v.buttonPress.Emit(struct{}{})
	v.goalColumn = -1
	v.buf.SetCursor(v.OffsetAtCell(x, y))
}
