package completion

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/dshills/ksense/internal/check"
	"github.com/dshills/ksense/internal/key"
	"github.com/dshills/ksense/internal/logging"
	"github.com/dshills/ksense/internal/mainloop"
	"github.com/dshills/ksense/internal/signal"
	"github.com/dshills/ksense/internal/text"
)

// ActivatedEvent describes a committed proposal.
type ActivatedEvent struct {
	Context  *Context
	Provider Provider
	Proposal Proposal
}

// Engine decides when completion starts, refines, restarts and stops for
// one view, and keeps the display in sync with the current Context.
//
// All methods must be called on the loop goroutine that sched serves.
type Engine struct {
	baseLog logrus.FieldLogger
	log     *logrus.Entry
	sched   Scheduler

	view   text.View
	buffer text.Buffer

	providers []Provider
	initial   []Provider
	context   *Context
	display   Display
	factory   DisplayFactory

	// ctx is the cancellation token handed to populates. Cancel replaces it.
	ctx    context.Context
	cancel context.CancelFunc

	queued     *mainloop.Deferred
	debounce   time.Duration
	nRows      int
	requestKey key.Event

	// currentEvent is the key being dispatched to the display, if any.
	currentEvent *key.Event

	// interactive allows typing to start a Context. When false only the
	// request key does, and typing only narrows an open Context.
	interactive bool

	blockCount        int
	showing           int
	waitingForResults bool
	needsRefilter     bool
	disposed          bool

	conns        signal.Group
	contextConns signal.Group

	shown           signal.Signal[struct{}]
	hidden          signal.Signal[struct{}]
	activated       signal.Signal[ActivatedEvent]
	providerAdded   signal.Signal[Provider]
	providerRemoved signal.Signal[Provider]
}

// New creates an engine for view. Edits, key presses and focus changes of
// the view are observed until Dispose.
func New(view text.View, sched Scheduler, opts ...Option) *Engine {
	e := &Engine{
		baseLog:     logging.Default(),
		sched:       sched,
		view:        view,
		debounce:    DefaultDebounce,
		nRows:       DefaultNRows,
		requestKey:  DefaultRequestKey,
		interactive: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = logging.Component(e.baseLog, "completion")
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.queued = mainloop.NewDeferred(sched)

	if view != nil {
		e.buffer = view.Buffer()
		e.connect()
	}

	for _, p := range e.initial {
		e.AddProvider(p)
	}
	e.initial = nil

	return e
}

func (e *Engine) connect() {
	e.conns.AddFunc(e.view.OnKeyPress(e.onKeyPress))
	e.conns.AddFunc(e.view.OnMoveCursor(e.onMoveCursor))
	e.conns.AddFunc(e.view.OnFocusOut(e.Hide))
	e.conns.AddFunc(e.view.OnButtonPress(e.Hide))
	e.conns.AddFunc(e.view.OnPasteBegin(e.Block))
	e.conns.AddFunc(e.view.OnPasteEnd(e.Unblock))

	if e.buffer == nil {
		return
	}
	e.conns.AddFunc(e.buffer.OnInsertText(e.onInsertText))
	e.conns.AddFunc(e.buffer.OnDeleteRange(e.onDeleteRange))
	e.conns.AddFunc(e.buffer.OnCursorSet(e.onCursorSet))
}

// View returns the observed view.
func (e *Engine) View() text.View { return e.view }

// Buffer returns the view's buffer.
func (e *Engine) Buffer() text.Buffer { return e.buffer }

// Context returns the current Context, or nil when idle.
func (e *Engine) Context() *Context { return e.context }

// Providers returns a copy of the registered providers.
func (e *Engine) Providers() []Provider {
	return append([]Provider(nil), e.providers...)
}

// Shown is emitted after Show has run.
func (e *Engine) Shown() *signal.Signal[struct{}] { return &e.shown }

// Hidden is emitted after Hide has run.
func (e *Engine) Hidden() *signal.Signal[struct{}] { return &e.hidden }

// Activated is emitted after a proposal has been applied.
func (e *Engine) Activated() *signal.Signal[ActivatedEvent] { return &e.activated }

// ProviderAdded is emitted when a provider is registered.
func (e *Engine) ProviderAdded() *signal.Signal[Provider] { return &e.providerAdded }

// ProviderRemoved is emitted when a provider is unregistered.
func (e *Engine) ProviderRemoved() *signal.Signal[Provider] { return &e.providerRemoved }

// AddProvider registers p for future Contexts. A Context already in flight
// keeps its own provider list.
func (e *Engine) AddProvider(p Provider) {
	if p == nil {
		return
	}
	for _, existing := range e.providers {
		if existing == p {
			return
		}
	}
	if l, ok := p.(Loader); ok {
		l.Load(e)
	}
	e.providers = append(e.providers, p)
	e.log.WithField("provider", ProviderTitle(p)).Debug("provider added")
	e.providerAdded.Emit(p)
}

// RemoveProvider unregisters p. Its populate in the current Context, if
// still running, is cancelled.
func (e *Engine) RemoveProvider(p Provider) {
	for i, existing := range e.providers {
		if existing != p {
			continue
		}
		e.providers = append(e.providers[:i], e.providers[i+1:]...)
		if e.context != nil {
			e.context.cancelProvider(p)
		}
		e.log.WithField("provider", ProviderTitle(p)).Debug("provider removed")
		e.providerRemoved.Emit(p)
		return
	}
}

// NRows returns the number of visible rows.
func (e *Engine) NRows() int { return e.nRows }

// SetNRows sets the number of visible rows, 1 to 32.
func (e *Engine) SetNRows(n int) {
	if !check.Precondition(n >= MinNRows && n <= MaxNRows, "n_rows %d out of range", n) {
		return
	}
	if e.nRows == n {
		return
	}
	e.nRows = n
	if e.display != nil {
		e.display.SetNRows(n)
	}
}

// Debounce returns the deletion debounce delay.
func (e *Engine) Debounce() time.Duration { return e.debounce }

// SetDebounce changes the deletion debounce delay for future deletions.
func (e *Engine) SetDebounce(d time.Duration) {
	if d > 0 {
		e.debounce = d
	}
}

// Interactive reports whether typing starts completion.
func (e *Engine) Interactive() bool { return e.interactive }

// SetInteractive turns completion while typing on or off. The request key
// works either way.
func (e *Engine) SetInteractive(on bool) { e.interactive = on }

// Display returns the display, creating and attaching it on first use.
func (e *Engine) Display() Display {
	if e.display != nil {
		return e.display
	}
	if e.factory != nil {
		e.display = e.factory(e)
	}
	if e.display == nil {
		e.display = &headlessDisplay{}
	}
	e.display.SetNRows(e.nRows)
	e.display.Attach(e.view)
	e.display.SetContext(e.context)
	return e.display
}

// IsVisible reports whether the display is showing.
func (e *Engine) IsVisible() bool {
	return e.display != nil && e.display.IsVisible()
}

// IsBlocked reports whether interactive completion is suppressed.
func (e *Engine) IsBlocked() bool {
	return e.blockCount > 0 ||
		e.view == nil ||
		e.buffer == nil ||
		len(e.providers) == 0 ||
		!e.view.IsVisible() ||
		!e.view.HasFocus() ||
		e.buffer.HasSelection() ||
		e.view.HasMultipleCursors() ||
		!e.view.IsProcessingKey()
}

// Block suppresses completion and cancels the current one. Calls nest.
func (e *Engine) Block() {
	e.blockCount++
	e.Cancel()
}

// Unblock undoes one Block. Completion is not resumed.
func (e *Engine) Unblock() {
	if !check.Precondition(e.blockCount > 0, "unblock without block") {
		return
	}
	e.blockCount--
}

// Show displays completion for the word at the cursor. A Context started
// by typing or a trigger is replaced by a user requested one, so providers
// that declined the earlier query are asked again.
func (e *Engine) Show() {
	e.show(true)
}

func (e *Engine) show(requested bool) {
	if e.IsBlocked() {
		return
	}

	e.showing++
	if e.showing == 1 {
		e.realShow(requested)
		e.shown.Emit(struct{}{})
	}
	e.showing--
}

func (e *Engine) realShow(requested bool) {
	display := e.Display()

	switch {
	case e.context == nil:
		e.start(UserRequested)
	case requested && e.context.Activation() != UserRequested:
		e.reset(UserRequested)
	default:
		e.update(UserRequested)
	}

	display.SetContext(e.context)
	e.syncDisplay(display)
}

// Hide hides the display and keeps the Context.
func (e *Engine) Hide() {
	if e.display != nil {
		e.display.Hide()
	}
	e.hidden.Emit(struct{}{})
}

// Cancel destroys the current Context and hides the display.
func (e *Engine) Cancel() {
	e.waitingForResults = false
	e.needsRefilter = false

	if e.context != nil {
		e.cancel()
		e.ctx, e.cancel = context.WithCancel(context.Background())

		old := e.context
		e.setContext(nil)
		old.Destroy()
		e.log.WithField("context_id", old.ID()).Debug("cancelled")
	}

	if e.display != nil {
		e.display.SetContext(nil)
		e.display.Hide()
	}
}

// Activate applies proposal through its provider. The engine is blocked
// meanwhile so the edit does not start another completion.
func (e *Engine) Activate(cc *Context, provider Provider, proposal Proposal) {
	if cc == nil || provider == nil {
		return
	}

	e.blockCount++
	provider.ActivateProposal(cc, proposal, e.currentEvent)
	e.blockCount--

	e.log.WithField("provider", ProviderTitle(provider)).Debug("proposal activated")
	e.activated.Emit(ActivatedEvent{Context: cc, Provider: provider, Proposal: proposal})
}

// MoveCursor moves the display selection.
func (e *Engine) MoveCursor(step text.Movement, count int) {
	if e.display != nil {
		e.display.MoveCursor(step, count)
	}
}

// Dispose cancels completion and stops observing the view.
func (e *Engine) Dispose() {
	if e.disposed {
		return
	}
	e.disposed = true
	e.queued.Cancel()
	e.Cancel()
	e.cancel()
	e.conns.DisconnectAll()
	e.contextConns.DisconnectAll()
	if e.display != nil {
		e.display.Attach(nil)
	}
}

func (e *Engine) computeBounds() (begin, end int, ok bool) {
	return ComputeBounds(e.buffer)
}

func (e *Engine) setContext(cc *Context) {
	e.contextConns.DisconnectAll()
	e.context = cc
	if cc == nil {
		return
	}
	cc.engine = e
	e.contextConns.Add(signal.Bind(cc.EmptyChanged(), func(bool) {
		e.onContextEmpty(cc)
	}))
}

func (e *Engine) start(activation Activation) {
	if !check.Precondition(e.context == nil, "start while context %s is live", contextID(e.context)) {
		return
	}

	e.queued.Cancel()

	begin, end, ok := e.computeBounds()
	if !ok {
		if activation == Interactive {
			return
		}
		begin = end
	}

	cc := NewContext(e.buffer, e.sched, e.baseLog)
	for _, p := range e.providers {
		cc.AddProvider(p)
	}
	e.setContext(cc)

	e.waitingForResults = true
	e.needsRefilter = false

	e.log.WithFields(logrus.Fields{
		"context_id": cc.ID(),
		"activation": activation.String(),
	}).Debug("starting")

	cc.CompleteAsync(e.ctx, activation, begin, end, func(err error) {
		e.completed(cc, err)
	})

	if e.display != nil && e.context == cc {
		e.display.SetContext(cc)
		e.syncDisplay(e.display)
	}
}

func (e *Engine) update(activation Activation) {
	if e.context == nil {
		return
	}

	begin, end, _ := e.computeBounds()

	if e.context.CanRefilter(begin, end) {
		display := e.Display()
		if !e.context.Refilter() {
			e.reset(e.context.Activation())
			return
		}
		e.log.WithField("context_id", e.context.ID()).Trace("refiltered")

		if e.waitingForResults {
			e.needsRefilter = true
			return
		}
		e.syncDisplay(display)
		return
	}

	cbegin, cend, ok := e.context.Bounds()
	if !ok || cbegin == cend {
		if activation == Interactive {
			e.Hide()
			return
		}
		e.reset(activation)
		return
	}

	if e.buffer.Cursor() == cend {
		e.show(false)
		return
	}

	e.reset(activation)
}

func (e *Engine) reset(activation Activation) {
	e.log.Debug("requery")
	e.Cancel()
	e.start(activation)
}

func (e *Engine) completed(cc *Context, err error) {
	if cc == e.context {
		e.waitingForResults = false
	}
	if err != nil {
		e.log.WithError(err).WithField("context_id", cc.ID()).Trace("populate discarded")
		return
	}
	if cc != e.context {
		return
	}

	if e.needsRefilter {
		e.needsRefilter = false
		if !cc.Refilter() {
			e.reset(cc.Activation())
			return
		}
	}

	e.syncDisplay(e.Display())
}

func (e *Engine) syncDisplay(display Display) {
	if IsEmpty(e.context) {
		display.Hide()
	} else {
		display.Show()
	}
}

func (e *Engine) onContextEmpty(cc *Context) {
	if cc != e.context {
		return
	}
	if cc.Empty() {
		if e.display != nil {
			e.display.Hide()
		}
		return
	}
	e.Display().Show()
}

func (e *Engine) onInsertText(_ int, s string) {
	if e.buffer.IsLoading() {
		return
	}

	e.queued.Cancel()

	if e.IsBlocked() || utf8.RuneCountInString(s) != 1 {
		e.Cancel()
		return
	}

	activation := Interactive
	_, end, ok := e.computeBounds()
	if !ok {
		if !e.triggeredAt(end) {
			e.Cancel()
			return
		}
		e.Cancel()
		activation = Triggered
	}

	if e.context == nil {
		if e.interactive {
			e.start(activation)
		}
	} else {
		e.update(activation)
	}
}

func (e *Engine) triggeredAt(end int) bool {
	if end <= 0 {
		return false
	}
	ch := e.buffer.RuneAt(end - 1)
	for _, p := range e.providers {
		if p.IsTrigger(e.buffer, end, ch) {
			return true
		}
	}
	return false
}

func (e *Engine) onDeleteRange(int, int) {
	if e.context == nil || e.IsBlocked() {
		return
	}

	if e.collapsed() {
		e.queued.Cancel()
		e.Cancel()
		return
	}

	e.queued.Arm(e.debounce, e.queuedUpdate)
}

func (e *Engine) queuedUpdate() {
	if e.context == nil {
		return
	}
	if e.collapsed() {
		e.Cancel()
		return
	}
	e.update(Interactive)
}

func (e *Engine) collapsed() bool {
	begin, end, ok := e.context.Bounds()
	return !ok || begin == end
}

func (e *Engine) onCursorSet(offset int) {
	if e.context != nil && e.context.InvalidatedBy(offset) {
		e.Cancel()
	}
}

func (e *Engine) onKeyPress(ev key.Event) bool {
	handled := false

	e.currentEvent = &ev
	if e.display != nil && e.display.IsVisible() && e.display.KeyPressEvent(ev) {
		handled = true
	}
	e.currentEvent = nil

	if !handled && e.requestKey.Key != key.KeyNone && ev.Equals(e.requestKey) {
		e.Show()
		handled = true
	}

	return handled
}

func (e *Engine) onMoveCursor(text.Movement, int, bool) {
	if e.IsVisible() {
		e.Cancel()
	}
}

func contextID(cc *Context) string {
	if cc == nil {
		return ""
	}
	return cc.ID()
}
