package editor

import (
	"sync"

	"github.com/gdamore/tcell/v2"
)

// Terminal owns the tcell screen. PollEvent may run on its own goroutine
// while the loop draws.
type Terminal struct {
	screen tcell.Screen
	mu     sync.Mutex
}

// NewTerminal creates a terminal over the real TTY.
func NewTerminal() (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return &Terminal{screen: screen}, nil
}

// NewTerminalWithScreen wraps an existing screen, typically a
// tcell.SimulationScreen in tests.
func NewTerminalWithScreen(screen tcell.Screen) *Terminal {
	return &Terminal{screen: screen}
}

// Init initializes the screen with mouse and bracketed paste enabled.
func (t *Terminal) Init() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.screen.Init(); err != nil {
		return err
	}
	t.screen.EnableMouse()
	t.screen.EnablePaste()
	return nil
}

// Shutdown restores the terminal.
func (t *Terminal) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.screen.Fini()
}

// Size returns the screen size in cells.
func (t *Terminal) Size() (int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.screen.Size()
}

// Draw runs fn with exclusive access to the screen and then shows it.
func (t *Terminal) Draw(fn func(screen tcell.Screen)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.screen.Clear()
	fn(t.screen)
	t.screen.Show()
}

// Sync redraws the whole screen, used after resizes.
func (t *Terminal) Sync() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.screen.Sync()
}

// PollEvent blocks for the next event. It returns nil after Shutdown.
func (t *Terminal) PollEvent() tcell.Event {
	return t.screen.PollEvent()
}

// PostEvent injects an event into the queue, used to wake PollEvent.
func (t *Terminal) PostEvent(ev tcell.Event) {
	_ = t.screen.PostEvent(ev) // best-effort; queue may be full
}

// RequestClipboard asks the terminal for the system clipboard. The contents
// arrive later as a *tcell.EventClipboard.
func (t *Terminal) RequestClipboard() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.screen.GetClipboard()
}
