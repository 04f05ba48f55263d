// Package textbuf implements the text buffer the completion engine edits
// and observes: a rune gap buffer with gravity-aware marks, a cursor and
// selection, change notifications, and comment/string classification.
//
// A Buffer is not safe for concurrent use. It is owned by the event loop
// goroutine; background work must copy text with Text or Slice first.
package textbuf
