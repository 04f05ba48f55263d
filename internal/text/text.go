// Package text defines the editor collaborators the completion engine
// consumes: a text buffer with marks and change notifications, and the view
// that displays it. Positions are rune offsets into the buffer.
package text

import "github.com/dshills/ksense/internal/key"

// Lexical context classes understood by Buffer.HasContextClass.
const (
	ClassComment = "comment"
	ClassString  = "string"
)

// Mark is a position that follows edits. A left-gravity mark stays before
// text inserted at its offset; a right-gravity mark moves after it.
type Mark interface {
	// Offset returns the current rune offset of the mark.
	Offset() int
	// Deleted reports whether the mark has been removed from its buffer.
	Deleted() bool
}

// Buffer is the text storage the engine observes and edits.
//
// Notifications are delivered synchronously after the change has been
// applied, on the goroutine that performed the change.
type Buffer interface {
	Len() int
	// RuneAt returns the rune at offset, or 0 outside [0, Len()).
	RuneAt(offset int) rune
	Slice(begin, end int) string
	// LineStart returns the offset of the first rune on offset's line.
	LineStart(offset int) int

	Cursor() int
	SetCursor(offset int)
	HasSelection() bool

	Insert(offset int, s string)
	Delete(begin, end int)

	CreateMark(offset int, leftGravity bool) Mark
	MoveMark(m Mark, offset int)
	DeleteMark(m Mark)

	// HasContextClass reports whether the rune at offset belongs to a
	// lexical region of the given class (ClassComment, ClassString).
	HasContextClass(offset int, class string) bool
	Language() string
	IsLoading() bool

	// OnInsertText is called with the offset where s was inserted.
	OnInsertText(fn func(offset int, s string)) (disconnect func())
	// OnDeleteRange is called with the deleted range in pre-deletion offsets.
	OnDeleteRange(fn func(begin, end int)) (disconnect func())
	// OnCursorSet is called when the cursor is placed explicitly rather
	// than carried along by an edit.
	OnCursorSet(fn func(offset int)) (disconnect func())
	OnLanguageChanged(fn func(language string)) (disconnect func())
}

// Movement is the unit of a cursor or selection move.
type Movement int

const (
	// MoveSteps moves by single rows or characters.
	MoveSteps Movement = iota
	// MovePages moves by a page of rows.
	MovePages
	// MoveBufferEnds jumps to the first or last row.
	MoveBufferEnds
)

// String returns the movement name.
func (m Movement) String() string {
	switch m {
	case MoveSteps:
		return "steps"
	case MovePages:
		return "pages"
	case MoveBufferEnds:
		return "buffer-ends"
	default:
		return "unknown"
	}
}

// View is the widget presenting a Buffer.
type View interface {
	Buffer() Buffer

	HasFocus() bool
	IsVisible() bool
	// IsProcessingKey reports whether the view is currently handling a user
	// key press, so programmatic edits can be told apart from typing.
	IsProcessingKey() bool
	HasMultipleCursors() bool

	// OnKeyPress handlers run before the view's own key handling, in
	// connection order. A handler returning true consumes the event.
	OnKeyPress(fn func(ev key.Event) bool) (disconnect func())
	// OnMoveCursor is called when the caret is moved by navigation keys.
	OnMoveCursor(fn func(step Movement, count int, extend bool)) (disconnect func())
	OnFocusOut(fn func()) (disconnect func())
	OnButtonPress(fn func()) (disconnect func())
	OnPasteBegin(fn func()) (disconnect func())
	OnPasteEnd(fn func()) (disconnect func())
}
