package completion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ksense/internal/key"
	"github.com/dshills/ksense/internal/text"
)

var ctrlSpace = key.NewRuneEvent(' ', key.ModCtrl)

func TestTypingRefinesWithoutRequery(t *testing.T) {
	p := newFakeProvider("words", "foo", "foobar", "food", "bar")
	h := newHarness(t, "", p)

	h.typeText("fo")
	cc := h.engine.Context()
	require.NotNil(t, cc)
	assert.Equal(t, Interactive, cc.Activation())
	assert.True(t, h.display.IsVisible())
	assert.Equal(t, []string{"foo", "foobar", "food"}, h.display.words())

	h.typeText("o")
	assert.Same(t, cc, h.engine.Context(), "extending the word keeps the context")
	assert.Equal(t, 1, p.populates)
	assert.Equal(t, 2, p.refilters)
	assert.Equal(t, []string{"foo", "foobar", "food"}, h.display.words())

	h.typeText("d")
	assert.Equal(t, []string{"food"}, h.display.words())

	h.typeText("x")
	assert.False(t, h.display.IsVisible(), "no matches hides the display")
	assert.Same(t, cc, h.engine.Context())
	assert.Equal(t, 1, p.populates)
}

func TestRefilterWhilePopulatingWaitsForResults(t *testing.T) {
	p := newFakeProvider("slow", "foo", "fob", "fun")
	p.manual = true
	h := newHarness(t, "", p)

	h.typeText("f")
	require.Len(t, p.held, 1)
	assert.False(t, h.display.IsVisible())

	h.typeText("o")
	assert.True(t, h.engine.needsRefilter)
	assert.Zero(t, p.refilters, "nothing to refilter yet")

	p.release(0)
	h.loop.RunPending()

	assert.False(t, h.engine.needsRefilter)
	assert.Equal(t, 1, p.refilters)
	assert.True(t, h.display.IsVisible())
	assert.Equal(t, []string{"foo", "fob"}, h.display.words())
}

func TestRefusedRefilterRequeries(t *testing.T) {
	p := newFakeProvider("remote", "foo", "fob", "fun")
	p.refuse = true
	h := newHarness(t, "", p)

	h.typeText("f")
	first := h.engine.Context()
	require.NotNil(t, first)
	assert.Equal(t, []string{"foo", "fob", "fun"}, h.display.words())

	h.typeText("o")
	assert.Equal(t, 1, p.refilters)
	assert.Equal(t, 2, p.populates, "stale results are fetched again")
	require.NotNil(t, h.engine.Context())
	assert.NotSame(t, first, h.engine.Context())
	assert.True(t, first.Destroyed())
	assert.Equal(t, Interactive, h.engine.Context().Activation())
	assert.Equal(t, []string{"foo", "fob"}, h.display.words())
}

func TestRefusedRefilterAfterPopulateRequeries(t *testing.T) {
	p := newFakeProvider("remote", "foo", "fob", "fun")
	p.manual = true
	p.refuse = true
	h := newHarness(t, "", p)

	h.typeText("f")
	h.typeText("o")
	require.True(t, h.engine.needsRefilter)

	p.release(0)
	h.loop.RunPending()
	require.Len(t, p.held, 2, "the refused refilter starts a new populate")
	assert.False(t, h.display.IsVisible())

	p.release(1)
	h.loop.RunPending()
	assert.True(t, h.display.IsVisible())
	assert.Equal(t, []string{"foo", "fob"}, h.display.words())
}

func TestDeletionIsDebounced(t *testing.T) {
	p := newFakeProvider("words", "foo", "fob")
	h := newHarness(t, "", p)

	h.typeText("foo")
	require.Equal(t, []string{"foo"}, h.display.words())
	refilters := p.refilters

	h.backspace()
	assert.Equal(t, refilters, p.refilters)
	assert.Equal(t, []string{"foo"}, h.display.words())

	h.advance(DefaultDebounce - time.Millisecond)
	assert.Equal(t, refilters, p.refilters)

	h.advance(time.Millisecond)
	assert.Equal(t, refilters+1, p.refilters)
	assert.Equal(t, []string{"foo", "fob"}, h.display.words())
	assert.True(t, h.display.IsVisible())
}

func TestDeletingWholeWordCancels(t *testing.T) {
	p := newFakeProvider("words", "foo")
	h := newHarness(t, "", p)

	h.typeText("fo")
	require.True(t, h.display.IsVisible())

	h.backspace()
	require.NotNil(t, h.engine.Context())

	h.backspace()
	assert.Nil(t, h.engine.Context())
	assert.False(t, h.display.IsVisible())
	assert.Nil(t, h.display.context)

	shows := h.display.shows
	h.advance(time.Second)
	assert.Equal(t, shows, h.display.shows, "no unfiltered list flashes up")
	assert.Nil(t, h.engine.Context())
}

func TestStaleCompletionIsIgnored(t *testing.T) {
	p := newFakeProvider("words", "foo", "goo")
	h := newHarness(t, "", p)

	// Insert without running the loop so the first context's completion
	// is still queued when it is replaced.
	h.view.processing = true
	h.buf.InsertAtCursor("f")
	first := h.engine.Context()
	require.NotNil(t, first)
	h.buf.InsertAtCursor(" ")
	h.buf.InsertAtCursor("g")
	h.view.processing = false

	second := h.engine.Context()
	require.NotNil(t, second)
	require.NotSame(t, first, second)
	assert.True(t, first.Destroyed())

	h.loop.RunPending()
	assert.Same(t, second, h.display.context)
	assert.Equal(t, []string{"goo"}, h.display.words())
	assert.False(t, h.engine.waitingForResults)
}

func TestLatePopulateAfterCancelIsIgnored(t *testing.T) {
	p := newFakeProvider("slow", "foo")
	p.manual = true
	h := newHarness(t, "", p)

	h.typeText("f")
	first := h.engine.Context()
	h.typeText(" g")
	second := h.engine.Context()
	require.Len(t, p.held, 2)
	assert.Error(t, p.held[0].ctx.Err(), "superseded populate is cancelled")

	p.release(0)
	h.loop.RunPending()
	assert.True(t, first.Destroyed())
	assert.Same(t, second, h.engine.Context())
	assert.True(t, h.engine.waitingForResults)
	assert.False(t, h.display.IsVisible())
}

func TestTriggerCharacterStartsTriggered(t *testing.T) {
	p := newFakeProvider("members", "len", "cap", "xylophone")
	p.trigger = '.'
	h := newHarness(t, "", p)

	h.typeText("xy")
	first := h.engine.Context()
	require.NotNil(t, first)

	h.typeText(".")
	cc := h.engine.Context()
	require.NotNil(t, cc)
	assert.NotSame(t, first, cc)
	assert.True(t, first.Destroyed())
	assert.Equal(t, Triggered, cc.Activation())
	assert.Equal(t, "", cc.Word())
	assert.Equal(t, []string{"len", "cap", "xylophone"}, h.display.words())
}

func TestNonTriggerPunctuationCancels(t *testing.T) {
	p := newFakeProvider("words", "foo")
	h := newHarness(t, "", p)

	h.typeText("fo")
	require.NotNil(t, h.engine.Context())
	h.typeText("-")
	assert.Nil(t, h.engine.Context())
	assert.False(t, h.display.IsVisible())
}

func TestMultiRuneInsertCancels(t *testing.T) {
	p := newFakeProvider("words", "foo")
	h := newHarness(t, "", p)

	h.typeText("fo")
	h.view.processing = true
	h.buf.InsertAtCursor("ob")
	h.view.processing = false

	assert.Nil(t, h.engine.Context())
}

func TestPasteBlocksCompletion(t *testing.T) {
	p := newFakeProvider("words", "foo", "bar")
	h := newHarness(t, "", p)

	h.typeText("fo")
	require.True(t, h.display.IsVisible())

	h.view.emit(h.view.pasteBegin)
	assert.Nil(t, h.engine.Context(), "blocking tears down the active context")
	assert.False(t, h.display.IsVisible())

	h.typeText(" b")
	assert.Nil(t, h.engine.Context(), "no context while blocked")
	assert.Zero(t, h.display.context)

	h.view.emit(h.view.pasteEnd)
	assert.Nil(t, h.engine.Context(), "unblocking does not resume")

	h.typeText("a")
	require.NotNil(t, h.engine.Context())
	assert.Equal(t, []string{"bar"}, h.display.words())
}

func TestBlockedViewStates(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
	}{
		{"unfocused", func(h *harness) { h.view.focus = false }},
		{"hidden", func(h *harness) { h.view.visible = false }},
		{"multiple cursors", func(h *harness) { h.view.multi = true }},
		{"selection", func(h *harness) { h.buf.Select(0, 1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "x ", newFakeProvider("words", "foo"))
			tt.setup(h)
			h.view.processing = true
			h.buf.Insert(h.buf.Len(), "f")
			h.view.processing = false
			assert.Nil(t, h.engine.Context())
		})
	}

	t.Run("programmatic edit", func(t *testing.T) {
		h := newHarness(t, "", newFakeProvider("words", "foo"))
		h.buf.InsertAtCursor("f")
		assert.Nil(t, h.engine.Context())
	})

	t.Run("no providers", func(t *testing.T) {
		h := newHarness(t, "")
		h.typeText("f")
		assert.Nil(t, h.engine.Context())
	})
}

func TestLoadingBufferIsIgnored(t *testing.T) {
	p := newFakeProvider("words", "foo")
	h := newHarness(t, "", p)

	h.view.processing = true
	h.buf.SetText("f")
	h.view.processing = false

	assert.Nil(t, h.engine.Context())
	assert.Zero(t, p.populates)
}

func TestRequestKeyShowsUserRequested(t *testing.T) {
	p := newFakeProvider("words", "foo", "foobar", "bar")
	h := newHarness(t, "fo", p)

	shown := 0
	h.engine.Shown().Connect(func(struct{}) {
		shown++
		h.engine.Show()
	})

	assert.True(t, h.press(ctrlSpace))
	cc := h.engine.Context()
	require.NotNil(t, cc)
	assert.Equal(t, UserRequested, cc.Activation())
	assert.Equal(t, 1, shown, "show does not re-enter")
	assert.True(t, h.display.IsVisible())
	assert.Equal(t, []string{"foo", "foobar"}, h.display.words())
	assert.Same(t, h.view, h.display.view)
}

func TestRequestKeyUpgradesTypedContext(t *testing.T) {
	p := newFakeProvider("assistant", "foo", "foobar", "bar")
	p.userOnly = true
	h := newHarness(t, "", p)

	h.typeText("fo")
	typed := h.engine.Context()
	require.NotNil(t, typed)
	assert.Equal(t, Interactive, typed.Activation())
	assert.True(t, typed.Empty())
	assert.False(t, h.display.IsVisible())

	assert.True(t, h.press(ctrlSpace))
	cc := h.engine.Context()
	require.NotNil(t, cc)
	assert.NotSame(t, typed, cc)
	assert.Equal(t, UserRequested, cc.Activation())
	assert.Equal(t, 2, p.populates)
	assert.Equal(t, []string{"foo", "foobar"}, h.display.words())

	h.press(ctrlSpace)
	assert.Same(t, cc, h.engine.Context(), "a user requested context is kept")
	assert.Equal(t, 2, p.populates)
}

func TestRequestKeyWithoutWordListsEverything(t *testing.T) {
	p := newFakeProvider("words", "foo", "bar")
	h := newHarness(t, "x ", p)

	h.press(ctrlSpace)
	require.NotNil(t, h.engine.Context())
	assert.Equal(t, []string{"foo", "bar"}, h.display.words())
}

func TestShowIsNoopWhenBlocked(t *testing.T) {
	p := newFakeProvider("words", "foo")
	h := newHarness(t, "f", p)

	h.engine.Show()
	assert.Nil(t, h.engine.Context(), "not processing a key")

	h.engine.Block()
	h.press(ctrlSpace)
	assert.Nil(t, h.engine.Context())
	h.engine.Unblock()
}

func TestFocusOutAndClickHide(t *testing.T) {
	p := newFakeProvider("words", "foo")
	h := newHarness(t, "", p)

	hidden := 0
	h.engine.Hidden().Connect(func(struct{}) { hidden++ })

	h.typeText("fo")
	cc := h.engine.Context()
	require.True(t, h.display.IsVisible())

	h.view.emit(h.view.focusOut)
	assert.False(t, h.display.IsVisible())
	assert.Same(t, cc, h.engine.Context(), "hiding keeps the context")

	h.press(ctrlSpace)
	require.True(t, h.display.IsVisible())
	h.view.emit(h.view.button)
	assert.False(t, h.display.IsVisible())
	assert.Equal(t, 2, hidden)
}

func TestCaretMovementCancels(t *testing.T) {
	p := newFakeProvider("words", "foo")
	h := newHarness(t, "", p)

	h.typeText("fo")
	require.True(t, h.display.IsVisible())

	for _, fn := range h.view.moveCursor {
		fn(text.MoveSteps, -1, false)
	}
	assert.Nil(t, h.engine.Context())
	assert.False(t, h.display.IsVisible())
}

func TestCursorPlacementCancels(t *testing.T) {
	p := newFakeProvider("words", "foo")
	h := newHarness(t, "", p)

	h.typeText("fo")
	h.buf.SetCursor(2)
	assert.NotNil(t, h.engine.Context(), "placing the cursor at the word end is harmless")

	h.buf.SetCursor(0)
	assert.Nil(t, h.engine.Context())
}

func TestActivationReplacesWord(t *testing.T) {
	p := newFakeProvider("words", "foobar")
	h := newHarness(t, "x = ", p)

	var got []ActivatedEvent
	h.engine.Activated().Connect(func(ev ActivatedEvent) { got = append(got, ev) })

	h.typeText("fo")
	require.True(t, h.display.IsVisible())

	assert.True(t, h.press(key.NewSpecialEvent(key.KeyEnter, key.ModNone)))
	assert.Equal(t, "x = foobar", h.buf.Text())
	assert.Equal(t, 10, h.buf.Cursor())
	require.Len(t, p.activated, 1)
	require.NotNil(t, p.lastEvent)
	assert.Equal(t, key.KeyEnter, p.lastEvent.Key)
	require.Len(t, got, 1)
	assert.Same(t, p, got[0].Provider)

	assert.Nil(t, h.engine.Context(), "the activation edit does not restart completion")
	assert.False(t, h.display.IsVisible())
	assert.Zero(t, h.engine.blockCount)
	assert.Nil(t, h.engine.currentEvent)
}

func TestActivatingKeyIsStillInserted(t *testing.T) {
	p := newFakeProvider("funcs", "foo")
	p.activates = '('
	h := newHarness(t, "", p)

	h.typeText("fo")
	h.typeText("(")

	assert.Equal(t, "foo(", h.buf.Text())
	require.Len(t, p.activated, 1)
	assert.Equal(t, '(', p.lastEvent.Rune)
	assert.Nil(t, h.engine.Context())
}

func TestDisplayConsumesNavigation(t *testing.T) {
	p := newFakeProvider("words", "foo", "fob")
	h := newHarness(t, "", p)

	down := key.NewSpecialEvent(key.KeyDown, key.ModNone)
	assert.False(t, h.press(down), "hidden display does not consume keys")

	h.typeText("fo")
	assert.True(t, h.press(down))
	assert.Equal(t, 1, h.display.selected)

	h.press(key.NewSpecialEvent(key.KeyEnter, key.ModNone))
	assert.Equal(t, "fob", h.buf.Text())
}

func TestHungProviderShowsPartialResults(t *testing.T) {
	hung := newFakeProvider("hung", "fog")
	hung.manual = true
	quick := newFakeProvider("quick", "foo")
	quick.priority = 1
	h := newHarness(t, "", hung, quick)

	h.typeText("f")
	cc := h.engine.Context()
	require.NotNil(t, cc)
	assert.True(t, cc.Busy())
	assert.False(t, cc.Empty())
	assert.True(t, h.display.IsVisible())
	assert.Equal(t, []string{"foo"}, h.display.words())
	assert.True(t, h.engine.waitingForResults)
}

func TestRemoveProviderCancelsItsPopulate(t *testing.T) {
	slow := newFakeProvider("slow", "foo")
	slow.manual = true
	other := newFakeProvider("other", "fun")
	h := newHarness(t, "", slow, other)

	var removed []Provider
	h.engine.ProviderRemoved().Connect(func(p Provider) { removed = append(removed, p) })

	h.typeText("f")
	cc := h.engine.Context()
	h.engine.RemoveProvider(slow)

	assert.Error(t, slow.held[0].ctx.Err())
	assert.Equal(t, []Provider{other}, h.engine.Providers())
	assert.Len(t, cc.Providers(), 2, "the live context keeps its slots")
	assert.Equal(t, []Provider{slow}, removed)

	h.typeText(" f")
	assert.Len(t, h.engine.Context().Providers(), 1)
}

type loadingProvider struct {
	*fakeProvider
	loads int
}

func (p *loadingProvider) Load(*Engine) { p.loads++ }

func TestAddProviderLoadsOnce(t *testing.T) {
	h := newHarness(t, "")
	p := &loadingProvider{fakeProvider: newFakeProvider("loaded", "foo")}

	var added []Provider
	h.engine.ProviderAdded().Connect(func(p Provider) { added = append(added, p) })

	h.engine.AddProvider(p)
	h.engine.AddProvider(p)

	assert.Equal(t, 1, p.loads)
	assert.Len(t, h.engine.Providers(), 1)
	assert.Len(t, added, 1)
}

func TestSetNRows(t *testing.T) {
	h := newHarness(t, "fo", newFakeProvider("words", "foo"))
	assert.Equal(t, DefaultNRows, h.engine.NRows())

	h.engine.SetNRows(10)
	h.press(ctrlSpace)
	assert.Equal(t, 10, h.display.nRows)

	h.engine.SetNRows(MaxNRows)
	assert.Equal(t, MaxNRows, h.display.nRows)

	if checkPanics() {
		assert.Panics(t, func() { h.engine.SetNRows(0) })
		return
	}
	h.engine.SetNRows(0)
	h.engine.SetNRows(MaxNRows + 1)
	assert.Equal(t, MaxNRows, h.engine.NRows())
}

func TestUnblockNeverGoesNegative(t *testing.T) {
	h := newHarness(t, "")
	if checkPanics() {
		assert.Panics(t, h.engine.Unblock)
		return
	}
	h.engine.Unblock()
	assert.Zero(t, h.engine.blockCount)
}

func TestCancelReplacesToken(t *testing.T) {
	p := newFakeProvider("slow", "foo")
	p.manual = true
	h := newHarness(t, "", p)

	h.typeText("f")
	h.engine.Cancel()
	assert.Error(t, p.held[0].ctx.Err())

	h.typeText("o")
	require.Len(t, p.held, 2)
	assert.NoError(t, p.held[1].ctx.Err(), "a new query is not born cancelled")
}

func TestDisposeStopsObserving(t *testing.T) {
	p := newFakeProvider("words", "foo")
	h := newHarness(t, "", p)

	h.typeText("f")
	h.engine.Dispose()
	assert.Nil(t, h.engine.Context())

	h.typeText("o")
	assert.Nil(t, h.engine.Context())
	assert.Equal(t, 1, p.populates)
}

func TestManualOnlyWaitsForRequestKey(t *testing.T) {
	p := newFakeProvider("words", "foo", "foobar", "bar")
	h := newHarness(t, "", p)
	h.engine.SetInteractive(false)
	assert.False(t, h.engine.Interactive())

	h.typeText("fo")
	assert.Nil(t, h.engine.Context(), "typing alone does not start completion")
	assert.Zero(t, p.populates)

	h.press(ctrlSpace)
	require.NotNil(t, h.engine.Context())
	assert.Equal(t, []string{"foo", "foobar"}, h.display.words())

	h.typeText("ob")
	assert.Equal(t, []string{"foobar"}, h.display.words(), "an open context still narrows")
	assert.Equal(t, 1, p.populates)
}
