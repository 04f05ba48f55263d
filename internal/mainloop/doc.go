// Package mainloop provides the single-threaded event loop that owns all
// completion engine state.
//
// Any goroutine may Post work or arm a timer; the callbacks always run on
// the goroutine executing Run (or RunPending), so state touched only from
// loop callbacks needs no locking. Deferred wraps a timer into the
// arm/cancel primitive used for debouncing.
package mainloop
