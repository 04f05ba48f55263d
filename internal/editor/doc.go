// Package editor provides the terminal view that hosts completion: a
// single-cursor text view over a textbuf.Buffer with a prioritised key hook
// chain, caret navigation, bracketed paste and tcell drawing.
//
// View implements text.View. It is owned by the event loop goroutine.
package editor
