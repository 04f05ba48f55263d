package completion

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dshills/ksense/internal/check"
	"github.com/dshills/ksense/internal/logging"
	"github.com/dshills/ksense/internal/signal"
	"github.com/dshills/ksense/internal/text"
)

// slot is the per-provider bookkeeping of a Context.
type slot struct {
	provider Provider
	priority int

	ctx     context.Context
	cancel  context.CancelFunc
	pending bool

	results ListModel
	handler signal.HandlerID
	err     error
}

// Context is the aggregate state of one completion attempt.
//
// It is created idle, populated once by CompleteAsync, may then be
// refiltered in place any number of times, and is finally destroyed.
// A Context is never reused for a second query.
type Context struct {
	id     string
	engine *Engine
	buffer text.Buffer
	sched  Scheduler
	log    *logrus.Entry

	slots      []*slot
	begin      text.Mark
	end        text.Mark
	activation Activation

	parent       context.Context
	onDone       func(error)
	nActive      int
	hasPopulated bool
	finished     bool
	destroyed    bool
	busy         bool
	empty        bool

	itemsChanged signal.Signal[ItemsChanged]
	busyChanged  signal.Signal[bool]
	emptyChanged signal.Signal[bool]
}

// NewContext creates an idle Context over buffer. Callbacks that must reach
// the loop are posted through sched.
func NewContext(buffer text.Buffer, sched Scheduler, log logrus.FieldLogger) *Context {
	id := uuid.NewString()
	return &Context{
		id:     id,
		buffer: buffer,
		sched:  sched,
		log:    logging.Component(log, "completion.context").WithField("context_id", id),
		empty:  true,
	}
}

// ID returns a unique identifier used in logs.
func (c *Context) ID() string { return c.id }

// Engine returns the owning engine, or nil for a standalone Context.
func (c *Context) Engine() *Engine { return c.engine }

// Buffer returns the buffer being completed.
func (c *Context) Buffer() text.Buffer { return c.buffer }

// View returns the engine's view, if any.
func (c *Context) View() text.View {
	if c.engine == nil {
		return nil
	}
	return c.engine.View()
}

// Activation returns how the Context was started.
func (c *Context) Activation() Activation { return c.activation }

// Busy reports whether any provider is still populating.
func (c *Context) Busy() bool { return c.busy }

// Empty reports whether no provider has any proposals.
func (c *Context) Empty() bool { return c.empty }

// Changed reports structural changes of the flattened list.
func (c *Context) Changed() *signal.Signal[ItemsChanged] { return &c.itemsChanged }

// BusyChanged reports transitions of Busy.
func (c *Context) BusyChanged() *signal.Signal[bool] { return &c.busyChanged }

// EmptyChanged reports transitions of Empty.
func (c *Context) EmptyChanged() *signal.Signal[bool] { return &c.emptyChanged }

// IsEmpty reports whether cc has no proposals. A nil Context is empty.
func IsEmpty(cc *Context) bool {
	return cc == nil || cc.empty
}

// Post runs fn on the loop. Without a scheduler fn runs immediately.
func (c *Context) Post(fn func()) {
	if c.sched == nil {
		fn()
		return
	}
	c.sched.Post(fn)
}

// AddProvider registers a provider. Only legal before CompleteAsync.
func (c *Context) AddProvider(p Provider) {
	if !check.Precondition(!c.hasPopulated && !c.destroyed,
		"context %s: AddProvider after populate", c.id) {
		return
	}
	c.slots = append(c.slots, &slot{provider: p})
	c.sortSlots()
}

// RemoveProvider unregisters a provider. Only legal before CompleteAsync.
func (c *Context) RemoveProvider(p Provider) {
	if !check.Precondition(!c.hasPopulated && !c.destroyed,
		"context %s: RemoveProvider after populate", c.id) {
		return
	}
	for i, s := range c.slots {
		if s.provider == p {
			c.slots = append(c.slots[:i], c.slots[i+1:]...)
			return
		}
	}
}

// Providers returns the providers in flattening order.
func (c *Context) Providers() []Provider {
	out := make([]Provider, len(c.slots))
	for i, s := range c.slots {
		out[i] = s.provider
	}
	return out
}

// CompleteAsync populates every provider in parallel. The marks are
// created at [begin, end]; onDone runs on the loop once every provider has
// reported, receiving ctx.Err() when the request was cancelled. Individual
// provider failures never reach onDone.
func (c *Context) CompleteAsync(ctx context.Context, activation Activation, begin, end int, onDone func(error)) {
	if !check.Precondition(!c.hasPopulated && !c.destroyed,
		"context %s: CompleteAsync called twice", c.id) {
		return
	}

	c.hasPopulated = true
	c.activation = activation
	c.parent = ctx
	c.onDone = onDone
	c.begin = c.buffer.CreateMark(begin, true)
	c.end = c.buffer.CreateMark(end, false)
	c.nActive = len(c.slots)
	c.setBusy(true)

	c.log.WithFields(logrus.Fields{
		"activation": activation.String(),
		"providers":  len(c.slots),
		"begin":      begin,
		"end":        end,
	}).Debug("populating")

	for _, s := range append([]*slot(nil), c.slots...) {
		s.ctx, s.cancel = context.WithCancel(ctx)
		s.pending = true
		s.provider.PopulateAsync(s.ctx, c, c.populated(s))
		if c.destroyed {
			return
		}
	}

	// Priorities may depend on the marks, which now exist.
	c.sortSlots()
	n := c.Len()
	c.itemsChanged.Emit(ItemsChanged{Position: 0, Removed: n, Added: n})

	if c.nActive == 0 {
		c.finish()
	}
}

func (c *Context) populated(s *slot) func(ListModel, error) {
	return func(results ListModel, err error) {
		if c.destroyed || !s.pending {
			return
		}
		s.pending = false

		switch {
		case err != nil && IsIgnorable(err):
		case err != nil:
			s.err = err
			c.log.WithError(err).WithField("provider", ProviderTitle(s.provider)).Warn("provider failed")
		default:
			if results != nil {
				c.SetProposalsForProvider(s.provider, results)
			}
		}

		c.nActive--
		c.updateEmpty()
		if c.nActive == 0 {
			c.finish()
		}
	}
}

func (c *Context) finish() {
	if c.finished {
		return
	}
	c.finished = true
	c.setBusy(false)

	if c.onDone == nil {
		return
	}
	onDone := c.onDone
	err := c.parent.Err()
	c.Post(func() { onDone(err) })
}

// SetProposalsForProvider replaces a provider's results. Providers call it
// to publish results incrementally before completing their populate.
func (c *Context) SetProposalsForProvider(p Provider, results ListModel) {
	if c.destroyed {
		return
	}
	s := c.slotFor(p)
	if s == nil || s.results == results {
		return
	}

	position := c.offsetOf(s)
	removed := 0
	if s.results != nil {
		removed = s.results.Len()
		s.results.Changed().Disconnect(s.handler)
		s.handler = 0
	}

	s.results = results
	added := 0
	if results != nil {
		added = results.Len()
		model := results
		s.handler = results.Changed().Connect(func(ch ItemsChanged) {
			c.slotChanged(s, model, ch)
		})
	}

	if removed != 0 || added != 0 {
		c.itemsChanged.Emit(ItemsChanged{Position: position, Removed: removed, Added: added})
	}
	c.updateEmpty()
}

// ProposalsForProvider returns the provider's current results, if any.
func (c *Context) ProposalsForProvider(p Provider) ListModel {
	if s := c.slotFor(p); s != nil {
		return s.results
	}
	return nil
}

// ProviderError returns the sticky populate failure of a provider.
func (c *Context) ProviderError(p Provider) error {
	s := c.slotFor(p)
	if s == nil {
		return ErrNoSuchProvider
	}
	return s.err
}

func (c *Context) slotChanged(s *slot, model ListModel, ch ItemsChanged) {
	if c.destroyed || s.results != model {
		return
	}
	c.itemsChanged.Emit(ItemsChanged{
		Position: c.offsetOf(s) + ch.Position,
		Removed:  ch.Removed,
		Added:    ch.Added,
	})
	c.updateEmpty()
}

// offsetOf sums the current sizes of the slots before s.
func (c *Context) offsetOf(s *slot) int {
	offset := 0
	for _, other := range c.slots {
		if other == s {
			break
		}
		if other.results != nil {
			offset += other.results.Len()
		}
	}
	return offset
}

func (c *Context) slotFor(p Provider) *slot {
	for _, s := range c.slots {
		if s.provider == p {
			return s
		}
	}
	return nil
}

func (c *Context) sortSlots() {
	for _, s := range c.slots {
		s.priority = s.provider.Priority(c)
	}
	sort.SliceStable(c.slots, func(i, j int) bool {
		return c.slots[i].priority < c.slots[j].priority
	})
}

// CanRefilter reports whether [begin, end] only extends the current word.
// On success the marks move to the new bounds.
func (c *Context) CanRefilter(begin, end int) bool {
	if c.destroyed || c.begin == nil {
		return false
	}
	if begin != c.begin.Offset() || end < c.end.Offset() {
		return false
	}
	c.buffer.MoveMark(c.begin, begin)
	c.buffer.MoveMark(c.end, end)
	return true
}

// Refilter asks every provider holding results to narrow them. It returns
// false when a provider could not, in which case the results are stale and
// the query has to be run again.
func (c *Context) Refilter() bool {
	if c.destroyed {
		return false
	}
	ok := true
	for _, s := range append([]*slot(nil), c.slots...) {
		if s.err != nil || s.results == nil {
			continue
		}
		if !s.provider.Refilter(c, s.results) {
			c.log.WithField("provider", ProviderTitle(s.provider)).Trace("refilter refused")
			ok = false
		}
	}
	return ok
}

// Len returns the total number of proposals across providers.
func (c *Context) Len() int {
	n := 0
	for _, s := range c.slots {
		if s.results != nil {
			n += s.results.Len()
		}
	}
	return n
}

// At returns the proposal at flattened index i, or nil if out of range.
func (c *Context) At(i int) Proposal {
	_, p, _ := c.ItemAt(i)
	return p
}

// ItemAt resolves a flattened index to its provider and proposal.
func (c *Context) ItemAt(i int) (Provider, Proposal, bool) {
	if i < 0 {
		return nil, nil, false
	}
	for _, s := range c.slots {
		if s.results == nil {
			continue
		}
		n := s.results.Len()
		if i < n {
			return s.provider, s.results.At(i), true
		}
		i -= n
	}
	return nil, nil, false
}

// Bounds returns the word range. ok is false before CompleteAsync.
func (c *Context) Bounds() (begin, end int, ok bool) {
	if c.begin == nil || c.end == nil || c.begin.Deleted() {
		return 0, 0, false
	}
	return c.begin.Offset(), c.end.Offset(), true
}

// StartOffset returns the beginning of the word.
func (c *Context) StartOffset() int {
	begin, _, _ := c.Bounds()
	return begin
}

// Word returns the text being completed.
func (c *Context) Word() string {
	begin, end, ok := c.Bounds()
	if !ok {
		return ""
	}
	return c.buffer.Slice(begin, end)
}

// LineText returns the line up to the end of the word.
func (c *Context) LineText() string {
	_, end, ok := c.Bounds()
	if !ok {
		return ""
	}
	return c.buffer.Slice(c.buffer.LineStart(end), end)
}

// Language returns the buffer language id.
func (c *Context) Language() string {
	if c.buffer == nil {
		return ""
	}
	return c.buffer.Language()
}

// IsLanguage reports whether the buffer language is id.
func (c *Context) IsLanguage(id string) bool {
	return c.Language() == id
}

// InvalidatedBy reports whether placing the cursor at offset makes the
// word bounds meaningless, which is any position other than the word end.
func (c *Context) InvalidatedBy(offset int) bool {
	_, end, ok := c.Bounds()
	return ok && offset != end
}

// cancelProvider stops a provider's in-flight populate.
func (c *Context) cancelProvider(p Provider) {
	if s := c.slotFor(p); s != nil && s.cancel != nil {
		s.cancel()
	}
}

// Destroy cancels outstanding populates and releases the marks. Callbacks
// arriving afterwards are ignored.
func (c *Context) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true

	for _, s := range c.slots {
		if s.cancel != nil {
			s.cancel()
		}
		if s.results != nil {
			s.results.Changed().Disconnect(s.handler)
		}
	}
	if c.buffer != nil {
		if c.begin != nil {
			c.buffer.DeleteMark(c.begin)
		}
		if c.end != nil {
			c.buffer.DeleteMark(c.end)
		}
	}
	c.log.Debug("destroyed")
}

// Destroyed reports whether Destroy has run.
func (c *Context) Destroyed() bool { return c.destroyed }

func (c *Context) setBusy(busy bool) {
	if c.busy == busy {
		return
	}
	c.busy = busy
	c.busyChanged.Emit(busy)
}

func (c *Context) updateEmpty() {
	empty := true
	for _, s := range c.slots {
		if s.results != nil && s.results.Len() > 0 {
			empty = false
			break
		}
	}
	if c.empty == empty {
		return
	}
	c.empty = empty
	c.emptyChanged.Emit(empty)
}
