package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dshills/ksense/internal/completion"
	"github.com/dshills/ksense/internal/editor"
	"github.com/dshills/ksense/internal/textbuf"
)

// DefaultCompleteTimeout bounds a headless completion request.
const DefaultCompleteTimeout = 5 * time.Second

// Request names a position in a file to complete at.
type Request struct {
	Path string
	// Offset is a rune offset, used when Line is zero.
	Offset int
	// Line and Column are 1-based; Column counts runes.
	Line   int
	Column int
	// Timeout bounds the wait for providers. Zero means
	// DefaultCompleteTimeout.
	Timeout time.Duration
}

// Result is one proposal as the command line prints it.
type Result struct {
	Provider string
	Kind     string
	Label    string
	Detail   string
}

// Completion is the outcome of a headless request.
type Completion struct {
	Word  string
	Begin int
	End   int
	// Results are in display order.
	Results []Result
	// Failures maps provider titles to the error that emptied their slot.
	Failures map[string]error
	// TimedOut is set when some providers had not answered in time.
	TimedOut bool
}

// Complete runs one user-requested completion over the file in req without
// a terminal and returns the flattened list.
func (a *App) Complete(ctx context.Context, req Request) (*Completion, error) {
	buf, err := textbuf.Load(req.Path)
	if err != nil {
		return nil, err
	}
	offset, err := resolveOffset(buf, req)
	if err != nil {
		return nil, err
	}
	buf.SetCursor(offset)

	view := editor.New(buf)
	engine, release := a.NewEngine(view, nil)
	defer release()

	begin, end, ok := completion.ComputeBounds(buf)
	if !ok {
		begin = end
	}

	cc := completion.NewContext(buf, a.loop, a.log)
	defer cc.Destroy()
	providers := engine.Providers()
	for _, p := range providers {
		cc.AddProvider(p)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultCompleteTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	runCtx, stop := context.WithCancel(reqCtx)
	defer stop()

	started := time.Now()
	cc.CompleteAsync(reqCtx, completion.UserRequested, begin, end, func(error) { stop() })
	if err := a.loop.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &Completion{
		Word:     cc.Word(),
		Begin:    begin,
		End:      end,
		TimedOut: errors.Is(reqCtx.Err(), context.DeadlineExceeded),
	}
	for i := 0; i < cc.Len(); i++ {
		p, prop, ok := cc.ItemAt(i)
		if !ok {
			break
		}
		row := completion.FormatRow(cc, p, prop)
		out.Results = append(out.Results, Result{
			Provider: completion.ProviderTitle(p),
			Kind:     row.Icon,
			Label:    row.Center,
			Detail:   row.Right,
		})
	}
	for _, p := range providers {
		if err := cc.ProviderError(p); err != nil {
			if out.Failures == nil {
				out.Failures = make(map[string]error)
			}
			out.Failures[completion.ProviderTitle(p)] = err
		}
	}

	a.entry.WithFields(logrus.Fields{
		"file":      req.Path,
		"offset":    offset,
		"results":   len(out.Results),
		"timed_out": out.TimedOut,
		"elapsed":   time.Since(started),
	}).Debug("headless completion")
	return out, nil
}

func resolveOffset(buf *textbuf.Buffer, req Request) (int, error) {
	offset := req.Offset
	if req.Line > 0 {
		if req.Column < 1 {
			return 0, fmt.Errorf("%w: column %d", ErrNoPosition, req.Column)
		}
		last := buf.PositionAt(buf.Len()).Line + 1
		if req.Line > last {
			return 0, fmt.Errorf("%w: line %d past end (%d lines)", ErrNoPosition, req.Line, last)
		}
		offset = buf.OffsetAt(textbuf.Position{Line: req.Line - 1, Column: req.Column - 1})
	}
	if offset < 0 || offset > buf.Len() {
		return 0, fmt.Errorf("%w: offset %d outside 0..%d", ErrNoPosition, offset, buf.Len())
	}
	return offset, nil
}
