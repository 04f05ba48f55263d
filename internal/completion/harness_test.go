package completion

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dshills/ksense/internal/check"
	"github.com/dshills/ksense/internal/key"
	"github.com/dshills/ksense/internal/logging"
	"github.com/dshills/ksense/internal/mainloop"
	"github.com/dshills/ksense/internal/text"
	"github.com/dshills/ksense/internal/textbuf"
)

// fakeView is a text.View whose state the tests set directly.
type fakeView struct {
	buf        *textbuf.Buffer
	focus      bool
	visible    bool
	processing bool
	multi      bool

	keyPress   []func(key.Event) bool
	moveCursor []func(text.Movement, int, bool)
	focusOut   []func()
	button     []func()
	pasteBegin []func()
	pasteEnd   []func()
}

func newFakeView(buf *textbuf.Buffer) *fakeView {
	return &fakeView{buf: buf, focus: true, visible: true}
}

func (v *fakeView) Buffer() text.Buffer              { return v.buf }
func (v *fakeView) HasFocus() bool                   { return v.focus }
func (v *fakeView) IsVisible() bool                  { return v.visible }
func (v *fakeView) IsProcessingKey() bool            { return v.processing }
func (v *fakeView) HasMultipleCursors() bool         { return v.multi }
func (v *fakeView) OnFocusOut(fn func()) func()      { return addHandler(&v.focusOut, fn) }
func (v *fakeView) OnButtonPress(fn func()) func()   { return addHandler(&v.button, fn) }
func (v *fakeView) OnPasteBegin(fn func()) func()    { return addHandler(&v.pasteBegin, fn) }
func (v *fakeView) OnPasteEnd(fn func()) func()      { return addHandler(&v.pasteEnd, fn) }

func (v *fakeView) OnKeyPress(fn func(key.Event) bool) func() {
	return addHandler(&v.keyPress, fn)
}

func (v *fakeView) OnMoveCursor(fn func(text.Movement, int, bool)) func() {
	return addHandler(&v.moveCursor, fn)
}

func addHandler[F any](list *[]F, fn F) func() {
	*list = append(*list, fn)
	i := len(*list) - 1
	return func() {
		var zero F
		(*list)[i] = zero
	}
}

// press dispatches ev to the key handlers and reports whether one consumed it.
func (v *fakeView) press(ev key.Event) bool {
	v.processing = true
	defer func() { v.processing = false }()
	for _, fn := range v.keyPress {
		if fn != nil && fn(ev) {
			return true
		}
	}
	return false
}

func (v *fakeView) emit(list []func()) {
	for _, fn := range list {
		if fn != nil {
			fn()
		}
	}
}

// fakeDisplay records what the engine asks of it.
type fakeDisplay struct {
	engine   *Engine
	view     text.View
	context  *Context
	nRows    int
	visible  bool
	selected int
	shows    int
	hides    int
}

func (d *fakeDisplay) Attach(view text.View)  { d.view = view }
func (d *fakeDisplay) SetContext(cc *Context) { d.context = cc; d.selected = 0 }
func (d *fakeDisplay) SetNRows(n int)         { d.nRows = n }
func (d *fakeDisplay) Show()                  { d.visible = true; d.shows++ }
func (d *fakeDisplay) Hide()                  { d.visible = false; d.hides++ }
func (d *fakeDisplay) IsVisible() bool        { return d.visible }

func (d *fakeDisplay) MoveCursor(step text.Movement, count int) {
	d.selected += count
}

func (d *fakeDisplay) KeyPressEvent(ev key.Event) bool {
	if d.context == nil {
		return false
	}
	switch {
	case ev.Key == key.KeyDown:
		d.MoveCursor(text.MoveSteps, 1)
		return true
	case ev.Key == key.KeyEnter:
		provider, proposal, ok := d.context.ItemAt(d.selected)
		if !ok {
			return false
		}
		d.engine.Activate(d.context, provider, proposal)
		d.engine.Hide()
		return true
	case ev.IsRune():
		provider, proposal, ok := d.context.ItemAt(d.selected)
		if ok && provider.KeyActivates(proposal, ev) {
			d.engine.Activate(d.context, provider, proposal)
			d.engine.Hide()
		}
		return false
	}
	return false
}

// words returns the labels the display would draw.
func (d *fakeDisplay) words() []string {
	if d.context == nil {
		return nil
	}
	out := make([]string, 0, d.context.Len())
	for i := 0; i < d.context.Len(); i++ {
		out = append(out, d.context.At(i).(*Item).Label)
	}
	return out
}

type heldPopulate struct {
	ctx  context.Context
	cc   *Context
	done func(ListModel, error)
}

// fakeProvider completes from a fixed word list filtered by prefix.
type fakeProvider struct {
	ProviderBase

	name      string
	priority  int
	words     []string
	manual    bool
	refuse    bool // Refilter always fails
	userOnly  bool // declines anything but user requested queries
	err       error
	trigger   rune
	activates rune

	populates int
	refilters int
	held      []heldPopulate
	activated []Proposal
	lastEvent *key.Event
}

func newFakeProvider(name string, words ...string) *fakeProvider {
	return &fakeProvider{name: name, words: words}
}

func (p *fakeProvider) Title() string         { return p.name }
func (p *fakeProvider) Priority(*Context) int { return p.priority }

func (p *fakeProvider) PopulateAsync(ctx context.Context, cc *Context, done func(ListModel, error)) {
	p.populates++
	if p.manual {
		p.held = append(p.held, heldPopulate{ctx: ctx, cc: cc, done: done})
		return
	}
	if p.err != nil {
		done(nil, p.err)
		return
	}
	if p.userOnly && cc.Activation() != UserRequested {
		done(nil, ErrNotSupported)
		return
	}
	done(p.results(cc), nil)
}

func (p *fakeProvider) results(cc *Context) *FilteredResults {
	items := make([]Proposal, len(p.words))
	for i, w := range p.words {
		items[i] = &Item{Label: w}
	}
	return NewFilteredResults(items, prefixFilter(cc), nil)
}

// release completes the i'th held populate with the provider's words.
func (p *fakeProvider) release(i int) {
	h := p.held[i]
	h.done(p.results(h.cc), nil)
}

func (p *fakeProvider) Refilter(cc *Context, results ListModel) bool {
	p.refilters++
	f, ok := results.(*FilteredResults)
	if !ok || p.refuse {
		return false
	}
	f.SetFilter(prefixFilter(cc))
	return true
}

func (p *fakeProvider) IsTrigger(_ TriggerBuffer, _ int, ch rune) bool {
	return p.trigger != 0 && ch == p.trigger
}

func (p *fakeProvider) KeyActivates(_ Proposal, ev key.Event) bool {
	return p.activates != 0 && ev.IsRune() && ev.Rune == p.activates
}

func (p *fakeProvider) ActivateProposal(cc *Context, proposal Proposal, ev *key.Event) {
	p.activated = append(p.activated, proposal)
	p.lastEvent = ev
	p.ProviderBase.ActivateProposal(cc, proposal, ev)
}

func prefixFilter(cc *Context) func(Proposal) bool {
	word := cc.Word()
	return func(p Proposal) bool {
		return strings.HasPrefix(p.(*Item).Label, word)
	}
}

// harness wires an engine to a fake view over a real buffer and a loop
// driven by a manual clock.
type harness struct {
	t       *testing.T
	clock   *mainloop.ManualClock
	loop    *mainloop.Loop
	buf     *textbuf.Buffer
	view    *fakeView
	display *fakeDisplay
	engine  *Engine
}

func newHarness(t *testing.T, content string, providers ...Provider) *harness {
	t.Helper()
	h := &harness{t: t}
	h.clock = mainloop.NewManualClock(time.Unix(0, 0))
	h.loop = mainloop.New(mainloop.WithClock(h.clock))
	h.buf = textbuf.New(content, textbuf.WithCursor(len([]rune(content))))
	h.view = newFakeView(h.buf)
	h.display = &fakeDisplay{}
	h.engine = New(h.view, h.loop,
		WithLogger(logging.Null()),
		WithDisplayFactory(func(e *Engine) Display {
			h.display.engine = e
			return h.display
		}),
		WithProviders(providers...),
	)
	t.Cleanup(h.engine.Dispose)
	return h
}

// typeText inserts s one rune at a time as key presses.
func (h *harness) typeText(s string) {
	for _, r := range s {
		if h.view.press(key.NewRuneEvent(r, key.ModNone)) {
			continue
		}
		h.view.processing = true
		h.buf.InsertAtCursor(string(r))
		h.view.processing = false
		h.loop.RunPending()
	}
}

// backspace deletes the rune before the cursor as a key press.
func (h *harness) backspace() {
	c := h.buf.Cursor()
	h.view.processing = true
	h.buf.Delete(c-1, c)
	h.view.processing = false
	h.loop.RunPending()
}

func (h *harness) press(ev key.Event) bool {
	handled := h.view.press(ev)
	h.loop.RunPending()
	return handled
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.loop.RunPending()
}

// checkPanics reports whether precondition failures panic in this build.
func checkPanics() bool { return check.Debug }
