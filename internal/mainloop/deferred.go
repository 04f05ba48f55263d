package mainloop

import "time"

// Timers is the subset of Loop that Deferred needs.
type Timers interface {
	After(d time.Duration, fn func()) (stop func() bool)
}

// Deferred holds at most one pending callback. Arming it again replaces
// the pending callback, which makes it a debouncer.
//
// Deferred is not safe for concurrent use; arm and cancel it from the loop.
type Deferred struct {
	timers Timers
	stop   func() bool
	gen    uint64
}

// NewDeferred creates a Deferred scheduling through timers.
func NewDeferred(timers Timers) *Deferred {
	return &Deferred{timers: timers}
}

// Arm cancels any pending callback and schedules fn after delay.
func (d *Deferred) Arm(delay time.Duration, fn func()) {
	d.Cancel()
	d.gen++
	gen := d.gen
	d.stop = d.timers.After(delay, func() {
		if gen != d.gen || d.stop == nil {
			return
		}
		d.stop = nil
		fn()
	})
}

// Cancel drops the pending callback. It reports whether one was pending.
func (d *Deferred) Cancel() bool {
	if d.stop == nil {
		return false
	}
	d.stop()
	d.stop = nil
	return true
}

// Pending reports whether a callback is armed.
func (d *Deferred) Pending() bool {
	return d.stop != nil
}
