package completion

import (
	"context"
	"time"
)

// Scheduler runs callbacks on the loop goroutine that owns the engine.
// *mainloop.Loop implements it.
type Scheduler interface {
	// Post queues fn. Safe to call from any goroutine.
	Post(fn func())
	// After runs fn once d has elapsed. stop cancels it.
	After(d time.Duration, fn func()) (stop func() bool)
}

// RunAsync runs work on a new goroutine and delivers its result to done on
// the Context's loop. It is the usual body of a PopulateAsync that calls a
// blocking backend.
func RunAsync(ctx context.Context, cc *Context, work func(ctx context.Context) (ListModel, error), done func(ListModel, error)) {
	go func() {
		results, err := work(ctx)
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		cc.Post(func() { done(results, err) })
	}()
}
