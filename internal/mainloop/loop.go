package mainloop

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLoopStopped is returned by Call when the loop stops before running fn.
var ErrLoopStopped = errors.New("mainloop: loop stopped")

// Loop is a cooperative single-threaded scheduler.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	timers  timerHeap
	seq     uint64
	wake    chan struct{}
	clock   Clock
	running bool
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock replaces the system clock, typically with a ManualClock in tests.
func WithClock(c Clock) Option {
	return func(l *Loop) {
		if c != nil {
			l.clock = c
		}
	}
}

// New creates an idle loop.
func New(opts ...Option) *Loop {
	l := &Loop{
		wake:  make(chan struct{}, 1),
		clock: systemClock{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Clock returns the loop clock.
func (l *Loop) Clock() Clock {
	return l.clock
}

// Post queues fn to run on the loop goroutine. Safe for concurrent use.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
}

// After schedules fn to run on the loop once d has elapsed on the loop
// clock. The returned stop function cancels the timer and reports whether
// it was still pending.
func (l *Loop) After(d time.Duration, fn func()) (stop func() bool) {
	l.mu.Lock()
	l.seq++
	t := &timer{deadline: l.clock.Now().Add(d), seq: l.seq, fn: fn}
	heap.Push(&l.timers, t)
	l.mu.Unlock()
	l.signal()

	return func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		if t.index < 0 {
			return false
		}
		heap.Remove(&l.timers, t.index)
		return true
	}
}

// Call runs fn on the loop and waits for it to return.
// It must not be called from the loop goroutine.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunPending runs queued callbacks and due timers until none are ready,
// returning how many callbacks ran.
func (l *Loop) RunPending() int {
	ran := 0
	for {
		n := l.runQueue() + l.runDueTimers()
		if n == 0 {
			return ran
		}
		ran += n
	}
}

// Run processes callbacks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return errors.New("mainloop: already running")
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	for {
		l.RunPending()

		var timeout <-chan time.Time
		var t *time.Timer
		if wait, ok := l.nextWait(); ok {
			t = time.NewTimer(wait)
			timeout = t.C
		}

		select {
		case <-ctx.Done():
			if t != nil {
				t.Stop()
			}
			return ctx.Err()
		case <-l.wake:
		case <-timeout:
		}
		if t != nil {
			t.Stop()
		}
	}
}

func (l *Loop) runQueue() int {
	l.mu.Lock()
	batch := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

func (l *Loop) runDueTimers() int {
	ran := 0
	for {
		l.mu.Lock()
		if len(l.timers) == 0 || l.timers[0].deadline.After(l.clock.Now()) {
			l.mu.Unlock()
			return ran
		}
		t := heap.Pop(&l.timers).(*timer)
		l.mu.Unlock()

		t.fn()
		ran++
	}
}

func (l *Loop) nextWait() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.timers) == 0 {
		return 0, false
	}
	wait := l.timers[0].deadline.Sub(l.clock.Now())
	if wait < 0 {
		wait = 0
	}
	return wait, true
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

type timer struct {
	deadline time.Time
	seq      uint64
	fn       func()
	index    int
}

type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
