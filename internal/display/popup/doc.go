// Package popup draws the completion list as a tcell overlay anchored at
// the caret of an editor view.
//
// A Popup implements completion.Display. It keeps a selection and a scroll
// offset over the engine's current Context, follows the Context's item
// changes, and translates navigation keys into list movement:
//
//	Up, Ctrl+P          previous proposal
//	Down, Ctrl+N        next proposal
//	PgUp, PgDn          one page
//	Ctrl+Home, Ctrl+End first and last proposal
//	Enter, Tab          activate the selection
//	Escape              hide
//
// Any other key is offered to the selected proposal's provider through
// KeyActivates and then passed on to the view.
package popup
