package popup

import (
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/ksense/internal/completion"
	"github.com/dshills/ksense/internal/key"
	"github.com/dshills/ksense/internal/signal"
	"github.com/dshills/ksense/internal/text"
)

// DefaultMaxWidth caps the popup width in cells.
const DefaultMaxWidth = 60

// Anchor is implemented by views that can report the caret's screen cell.
type Anchor interface {
	CursorCell() (x, y int)
}

// Popup is a list display for a completion engine.
type Popup struct {
	engine  *completion.Engine
	view    text.View
	context *completion.Context
	changed signal.HandlerID

	nRows    int
	selected int
	offset   int
	visible  bool

	maxWidth int
	styles   Styles

	invalidated signal.Signal[struct{}]
}

var _ completion.Display = (*Popup)(nil)

// Option configures a Popup.
type Option func(*Popup)

// WithStyles sets the drawing styles.
func WithStyles(s Styles) Option {
	return func(p *Popup) { p.styles = s }
}

// WithMaxWidth caps the popup width in cells.
func WithMaxWidth(n int) Option {
	return func(p *Popup) {
		if n > 0 {
			p.maxWidth = n
		}
	}
}

// New creates a hidden popup for e.
func New(e *completion.Engine, opts ...Option) *Popup {
	styles, _ := DefaultTheme().Styles()
	p := &Popup{
		engine:   e,
		nRows:    completion.DefaultNRows,
		maxWidth: DefaultMaxWidth,
		styles:   styles,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Factory returns a completion.DisplayFactory creating popups with opts.
// created, when non-nil, receives each popup.
func Factory(created func(*Popup), opts ...Option) completion.DisplayFactory {
	return func(e *completion.Engine) completion.Display {
		p := New(e, opts...)
		if created != nil {
			created(p)
		}
		return p
	}
}

// Invalidated is emitted whenever the popup needs to be redrawn.
func (p *Popup) Invalidated() *signal.Signal[struct{}] { return &p.invalidated }

// Attach sets the view the popup is anchored to.
func (p *Popup) Attach(view text.View) {
	p.view = view
	p.invalidate()
}

// SetContext switches to cc, resetting the selection.
func (p *Popup) SetContext(cc *completion.Context) {
	if p.context == cc {
		return
	}
	if p.context != nil {
		p.context.Changed().Disconnect(p.changed)
	}
	p.context = cc
	p.selected, p.offset = 0, 0
	if cc != nil {
		p.changed = cc.Changed().Connect(func(completion.ItemsChanged) { p.itemsChanged() })
	}
	p.invalidate()
}

// Context returns the displayed Context.
func (p *Popup) Context() *completion.Context { return p.context }

// SetNRows sets the number of visible rows.
func (p *Popup) SetNRows(n int) {
	p.nRows = max(n, 1)
	p.scrollToSelection()
	p.invalidate()
}

// NRows returns the number of visible rows.
func (p *Popup) NRows() int { return p.nRows }

// Show makes the popup visible.
func (p *Popup) Show() {
	if p.visible {
		return
	}
	p.visible = true
	p.invalidate()
}

// Hide hides the popup.
func (p *Popup) Hide() {
	if !p.visible {
		return
	}
	p.visible = false
	p.invalidate()
}

// IsVisible reports whether the popup is shown.
func (p *Popup) IsVisible() bool { return p.visible }

// Selected returns the selected row index.
func (p *Popup) Selected() int { return p.selected }

// Offset returns the index of the first visible row.
func (p *Popup) Offset() int { return p.offset }

// Selection returns the selected proposal and its provider.
func (p *Popup) Selection() (completion.Provider, completion.Proposal, bool) {
	if p.context == nil {
		return nil, nil, false
	}
	return p.context.ItemAt(p.selected)
}

// MoveCursor moves the selection. Steps moves count rows, Pages moves
// count pages of NRows rows and BufferEnds jumps to the first (count < 0)
// or last row. The selection is clamped to the list.
func (p *Popup) MoveCursor(step text.Movement, count int) {
	if p.context == nil {
		return
	}
	n := p.context.Len()
	if n == 0 {
		return
	}

	sel := p.selected
	switch step {
	case text.MoveSteps:
		sel += count
	case text.MovePages:
		sel += count * p.nRows
	case text.MoveBufferEnds:
		if count < 0 {
			sel = 0
		} else {
			sel = n - 1
		}
	}
	p.selected = clamp(sel, 0, n-1)
	p.scrollToSelection()
	p.invalidate()
}

// KeyPressEvent handles navigation and activation keys while visible.
func (p *Popup) KeyPressEvent(ev key.Event) bool {
	if !p.visible || p.context == nil {
		return false
	}
	ctrl := ev.Modifiers.HasCtrl()

	switch {
	case ev.Key == key.KeyUp, ev.IsRune() && ctrl && ev.Rune == 'p':
		p.MoveCursor(text.MoveSteps, -1)
	case ev.Key == key.KeyDown, ev.IsRune() && ctrl && ev.Rune == 'n':
		p.MoveCursor(text.MoveSteps, 1)
	case ev.Key == key.KeyPageUp:
		p.MoveCursor(text.MovePages, -1)
	case ev.Key == key.KeyPageDown:
		p.MoveCursor(text.MovePages, 1)
	case ev.Key == key.KeyHome && ctrl:
		p.MoveCursor(text.MoveBufferEnds, -1)
	case ev.Key == key.KeyEnd && ctrl:
		p.MoveCursor(text.MoveBufferEnds, 1)
	case ev.Key == key.KeyEnter, ev.Key == key.KeyTab:
		return p.activateSelected()
	case ev.Key == key.KeyEscape:
		p.engine.Hide()
	case ev.IsRune() && !ctrl:
		provider, proposal, ok := p.Selection()
		if ok && provider.KeyActivates(proposal, ev) {
			p.activateSelected()
		}
		return false
	default:
		return false
	}
	return true
}

func (p *Popup) activateSelected() bool {
	provider, proposal, ok := p.Selection()
	if !ok {
		return false
	}
	p.engine.Activate(p.context, provider, proposal)
	p.engine.Hide()
	return true
}

func (p *Popup) itemsChanged() {
	if p.context == nil {
		return
	}
	n := p.context.Len()
	p.selected = clamp(p.selected, 0, max(n-1, 0))
	p.scrollToSelection()
	p.invalidate()
}

func (p *Popup) scrollToSelection() {
	if p.selected < p.offset {
		p.offset = p.selected
	}
	if p.selected >= p.offset+p.nRows {
		p.offset = p.selected - p.nRows + 1
	}
	n := 0
	if p.context != nil {
		n = p.context.Len()
	}
	p.offset = clamp(p.offset, 0, max(n-p.nRows, 0))
}

func (p *Popup) invalidate() {
	p.invalidated.Emit(struct{}{})
}

// Draw paints the popup onto screen below the caret, or above it when
// there is no room below.
func (p *Popup) Draw(screen tcell.Screen) {
	if !p.visible || p.context == nil || p.context.Len() == 0 {
		return
	}
	anchor, ok := p.view.(Anchor)
	if !ok {
		return
	}

	rows := p.visibleRows()
	layout := measure(rows, p.maxWidth)
	sw, sh := screen.Size()
	layout.width = min(layout.width, sw)

	cx, cy := anchor.CursorCell()
	x := cx - cellWidth(p.context.Word())
	x = clamp(x, 0, max(sw-layout.width, 0))
	y := cy + 1
	if y+len(rows) > sh && cy-len(rows) >= 0 {
		y = cy - len(rows)
	}

	word := p.context.Word()
	for i, row := range rows {
		selected := p.offset+i == p.selected
		p.drawRow(screen, x, y+i, layout, row, word, selected)
	}
}

// Rows returns the rendered rows currently in view.
func (p *Popup) Rows() []completion.Row {
	return p.visibleRows()
}

func (p *Popup) visibleRows() []completion.Row {
	if p.context == nil {
		return nil
	}
	end := min(p.offset+p.nRows, p.context.Len())
	rows := make([]completion.Row, 0, end-p.offset)
	for i := p.offset; i < end; i++ {
		provider, proposal, ok := p.context.ItemAt(i)
		if !ok {
			break
		}
		rows = append(rows, completion.FormatRow(p.context, provider, proposal))
	}
	return rows
}

func (p *Popup) drawRow(screen tcell.Screen, x, y int, l layout, row completion.Row, word string, selected bool) {
	base, detail, match := p.styles.Normal, p.styles.Detail, p.styles.Match
	if selected {
		base, detail, match = p.styles.Selected, p.styles.Selected, p.styles.SelectedMatch
	}

	for i := 0; i < l.width; i++ {
		screen.SetContent(x+i, y, ' ', nil, base)
	}

	col := x + 1
	if l.icon > 0 {
		drawText(screen, col, y, l.icon, row.Icon, nil, detail, detail)
		col += l.icon + 1
	}
	if row.Left != "" {
		drawText(screen, col, y, l.left, row.Left, nil, detail, detail)
	}
	if l.left > 0 {
		col += l.left + 1
	}

	mask := completion.FuzzyMask(row.Center, word)
	centerEnd := x + l.width - 1
	if l.right > 0 {
		centerEnd -= l.right + 1
	}
	drawText(screen, col, y, max(centerEnd-col, 0), row.Center, mask, base, match)

	if row.Right != "" && l.right > 0 {
		rw := min(cellWidth(row.Right), l.right)
		drawText(screen, x+l.width-1-rw, y, rw, row.Right, nil, detail, detail)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
