// Package completion implements the completion engine: it coordinates
// asynchronous proposal providers, merges their results into one ordered
// list, decides when to refilter existing results and when to requery, and
// drives a popup display in step with edits to the text buffer.
//
// # Threading
//
// Engine and Context state belongs to a single event-loop goroutine. Every
// exported method must be called from that goroutine. Providers may do work
// on other goroutines but must deliver their populate callback on the loop,
// usually through Context.Post or RunAsync.
//
// # Flow
//
// A buffer edit reaches the Engine, which either starts a new Context
// (firing PopulateAsync on every provider) or asks the current Context
// whether it can refilter. The Context aggregates each provider's ListModel
// into one flattened list, emitting ItemsChanged with freshly computed
// offsets, and tracks busy and empty state. The Engine shows or hides its
// Display according to emptiness; the Display reads rows from the Context.
package completion
