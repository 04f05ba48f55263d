package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"
	"github.com/sirupsen/logrus"

	"github.com/dshills/ksense/internal/completion"
	"github.com/dshills/ksense/internal/display/popup"
	"github.com/dshills/ksense/internal/editor"
	"github.com/dshills/ksense/internal/key"
	"github.com/dshills/ksense/internal/logging"
	"github.com/dshills/ksense/internal/textbuf"
)

// Editor key bindings. Ctrl+Space is the completion engine's own.
var (
	QuitKey  = key.MustParse("Ctrl+q")
	SaveKey  = key.MustParse("Ctrl+s")
	PasteKey = key.MustParse("Ctrl+v")
)

// Edit opens path in a full-screen editor with the completion popup and
// runs until the user quits or ctx is done. A missing file starts empty
// and is created on save.
func (a *App) Edit(ctx context.Context, path string) error {
	buf, err := textbuf.Load(path)
	if err != nil {
		return err
	}
	term, err := editor.NewTerminal()
	if err != nil {
		return &InitError{Component: "terminal", Err: err}
	}
	if err := term.Init(); err != nil {
		return &InitError{Component: "terminal", Err: err}
	}
	defer term.Shutdown()

	return a.runEditor(ctx, term, buf)
}

// session is one buffer on one terminal.
type session struct {
	app    *App
	term   *editor.Terminal
	buf    *textbuf.Buffer
	view   *editor.View
	engine *completion.Engine
	popup  *popup.Popup
	styles editor.Styles
	log    *logrus.Entry

	saved       uint64
	status      string
	drawPending bool

	stop func()
	err  error
}

func (a *App) runEditor(ctx context.Context, term *editor.Terminal, buf *textbuf.Buffer) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := &session{
		app:    a,
		term:   term,
		buf:    buf,
		view:   editor.New(buf),
		styles: editor.DefaultStyles(),
		saved:  buf.Revision(),
		stop:   cancel,
		log:    logging.Component(a.log, "editor").WithField("file", buf.Filename()),
	}
	engine, release := a.NewEngine(s.view, s.attachPopup)
	defer release()
	s.engine = engine

	s.view.AddKeyHook("commands", editor.HookPriorityHigh, s.command)
	s.resize()
	s.invalidate()

	go s.poll(runCtx)

	s.log.Info("editing")
	err := a.loop.Run(runCtx)
	switch {
	case errors.Is(s.err, ErrQuit):
		return nil
	case s.err != nil:
		return s.err
	case errors.Is(err, context.Canceled) && ctx.Err() == nil:
		return nil
	}
	return err
}

func (s *session) attachPopup(p *popup.Popup) {
	s.popup = p
	p.Invalidated().Connect(func(struct{}) { s.invalidate() })
}

// poll forwards terminal events to the loop until the terminal shuts down.
func (s *session) poll(ctx context.Context) {
	for {
		ev := s.term.PollEvent()
		if ev == nil || ctx.Err() != nil {
			return
		}
		s.app.loop.Post(func() { s.handle(ev) })
	}
}

func (s *session) handle(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		s.term.Sync()
		s.resize()
	case *tcell.EventKey:
		s.status = ""
		s.view.HandleKey(key.FromTcell(ev))
	case *tcell.EventMouse:
		if ev.Buttons()&tcell.Button1 != 0 {
			x, y := ev.Position()
			s.view.Click(x, y)
		}
	case *tcell.EventPaste:
		if ev.Start() {
			s.view.BeginPaste()
		} else {
			s.view.EndPaste()
		}
	case *tcell.EventClipboard:
		s.view.Paste(string(ev.Data()))
	case *tcell.EventFocus:
		if ev.Focused {
			s.view.Focus()
		} else {
			s.view.Blur()
		}
	default:
		return
	}
	s.invalidate()
}

// command handles the editor's own chords ahead of the view and the engine.
func (s *session) command(ev key.Event) bool {
	switch {
	case ev.Equals(QuitKey):
		s.quit(ErrQuit)
	case ev.Equals(SaveKey):
		s.save()
	case ev.Equals(PasteKey):
		s.term.RequestClipboard()
	default:
		return false
	}
	return true
}

func (s *session) quit(err error) {
	s.err = err
	s.stop()
}

func (s *session) save() {
	if err := s.buf.Save(); err != nil {
		s.log.WithError(err).Error("save failed")
		s.status = err.Error()
		return
	}
	s.saved = s.buf.Revision()
	s.status = fmt.Sprintf("wrote %d bytes", len(s.buf.Text()))
	s.log.Info("saved")
}

func (s *session) modified() bool { return s.buf.Revision() != s.saved }

// resize gives the view every row but the status line.
func (s *session) resize() {
	w, h := s.term.Size()
	s.view.Resize(0, 0, w, max(h-1, 1))
}

// invalidate schedules one redraw for however many changes happen before
// the loop gets to it.
func (s *session) invalidate() {
	if s.drawPending {
		return
	}
	s.drawPending = true
	s.app.loop.Post(s.redraw)
}

func (s *session) redraw() {
	s.drawPending = false
	s.term.Draw(func(screen tcell.Screen) {
		s.view.Draw(screen, s.styles)
		if s.popup != nil {
			s.popup.Draw(screen)
		}
		s.drawStatus(screen)
		screen.ShowCursor(s.view.CursorCell())
	})
}

func (s *session) drawStatus(screen tcell.Screen) {
	w, h := screen.Size()
	y := h - 1
	style := tcell.StyleDefault.Reverse(true)
	for x := 0; x < w; x++ {
		screen.SetContent(x, y, ' ', nil, style)
	}

	left := " " + filepath.Base(s.buf.Filename())
	if s.modified() {
		left += " [+]"
	}
	if s.status != "" {
		left += "  " + s.status
	}
	right := s.buf.Language()
	if cc := s.engine.Context(); cc != nil && cc.Busy() {
		right = "… " + right
	}
	right += " "

	putString(screen, 0, y, w, left, style)
	rw := uniseg.StringWidth(right)
	if rw < w {
		putString(screen, w-rw, y, rw, right, style)
	}
}

// putString draws s from (x, y), clipped to width cells.
func putString(screen tcell.Screen, x, y, width int, s string, style tcell.Style) {
	col := 0
	state := -1
	for s != "" {
		var cluster string
		var w int
		cluster, s, w, state = uniseg.FirstGraphemeClusterInString(s, state)
		if col+w > width {
			return
		}
		runes := []rune(cluster)
		screen.SetContent(x+col, y, runes[0], runes[1:], style)
		col += w
	}
}
