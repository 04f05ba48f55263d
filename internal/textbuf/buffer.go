package textbuf

import (
	"strings"

	"github.com/dshills/ksense/internal/signal"
	"github.com/dshills/ksense/internal/syntax"
	"github.com/dshills/ksense/internal/text"
)

// Insertion describes inserted text.
type Insertion struct {
	Offset int
	Text   string
}

// Deletion describes a deleted range in pre-deletion offsets.
type Deletion struct {
	Begin int
	End   int
	Text  string
}

// Buffer is a rune buffer implementing text.Buffer.
type Buffer struct {
	gap   gapBuffer
	marks []*Mark

	cursor    *Mark
	selection *Mark

	language string
	filename string
	loading  bool

	revision      uint64
	regions       syntax.Regions
	regionsRev    uint64
	regionsLoaded bool

	inserted        signal.Signal[Insertion]
	deleted         signal.Signal[Deletion]
	cursorSet       signal.Signal[int]
	languageChanged signal.Signal[string]
}

var _ text.Buffer = (*Buffer)(nil)

// New creates a buffer holding s with the cursor at the start.
func New(s string, opts ...Option) *Buffer {
	b := &Buffer{gap: newGapBuffer([]rune(s))}
	b.cursor = b.newMark(0, false)
	b.selection = b.newMark(0, false)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Len returns the number of runes in the buffer.
func (b *Buffer) Len() int { return b.gap.Len() }

// Revision increments on every modification.
func (b *Buffer) Revision() uint64 { return b.revision }

// Text returns the full contents.
func (b *Buffer) Text() string { return string(b.gap.Runes()) }

// RuneAt returns the rune at offset, or 0 when out of range.
func (b *Buffer) RuneAt(offset int) rune {
	r, _ := b.gap.RuneAt(offset)
	return r
}

// Slice returns the text in [begin, end).
func (b *Buffer) Slice(begin, end int) string {
	return string(b.gap.Slice(begin, end))
}

// LineStart returns the offset of the first rune of offset's line.
func (b *Buffer) LineStart(offset int) int {
	offset = clamp(offset, 0, b.Len())
	for offset > 0 && b.RuneAt(offset-1) != '\n' {
		offset--
	}
	return offset
}

// LineEnd returns the offset of the newline ending offset's line, or Len.
func (b *Buffer) LineEnd(offset int) int {
	offset = clamp(offset, 0, b.Len())
	for offset < b.Len() && b.RuneAt(offset) != '\n' {
		offset++
	}
	return offset
}

// Cursor returns the insertion point.
func (b *Buffer) Cursor() int { return b.cursor.offset }

// SetCursor places the cursor, clearing the selection.
func (b *Buffer) SetCursor(offset int) {
	offset = clamp(offset, 0, b.Len())
	b.cursor.offset = offset
	b.selection.offset = offset
	b.cursorSet.Emit(offset)
}

// Select selects [anchor, offset) and places the cursor at offset.
func (b *Buffer) Select(anchor, offset int) {
	b.selection.offset = clamp(anchor, 0, b.Len())
	b.cursor.offset = clamp(offset, 0, b.Len())
	b.cursorSet.Emit(b.cursor.offset)
}

// HasSelection reports whether a non-empty range is selected.
func (b *Buffer) HasSelection() bool {
	return b.cursor.offset != b.selection.offset
}

// Selection returns the ordered selection bounds.
func (b *Buffer) Selection() (int, int) {
	lo, hi := b.selection.offset, b.cursor.offset
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

// Insert inserts s at offset and notifies listeners.
func (b *Buffer) Insert(offset int, s string) {
	if s == "" {
		return
	}
	offset = clamp(offset, 0, b.Len())
	rs := []rune(s)
	b.gap.Insert(offset, rs)
	b.revision++

	n := len(rs)
	for _, m := range b.marks {
		if m.offset > offset || (m.offset == offset && !m.leftGravity) {
			m.offset += n
		}
	}
	b.inserted.Emit(Insertion{Offset: offset, Text: s})
}

// InsertAtCursor replaces the selection, if any, then inserts s at the cursor.
func (b *Buffer) InsertAtCursor(s string) {
	if b.HasSelection() {
		lo, hi := b.Selection()
		b.Delete(lo, hi)
	}
	b.Insert(b.Cursor(), s)
}

// Delete removes [begin, end) and notifies listeners.
func (b *Buffer) Delete(begin, end int) {
	begin = clamp(begin, 0, b.Len())
	end = clamp(end, 0, b.Len())
	if end <= begin {
		return
	}
	removed := b.Slice(begin, end)
	b.gap.Delete(begin, end)
	b.revision++

	n := end - begin
	for _, m := range b.marks {
		switch {
		case m.offset >= end:
			m.offset -= n
		case m.offset > begin:
			m.offset = begin
		}
	}
	b.deleted.Emit(Deletion{Begin: begin, End: end, Text: removed})
}

// Replace swaps [begin, end) for s.
func (b *Buffer) Replace(begin, end int, s string) {
	b.Delete(begin, end)
	b.Insert(begin, s)
}

// SetText replaces the whole buffer while marked as loading, so observers
// that honour IsLoading ignore the change.
func (b *Buffer) SetText(s string) {
	b.loading = true
	defer func() { b.loading = false }()

	b.Delete(0, b.Len())
	b.Insert(0, s)
	b.cursor.offset = 0
	b.selection.offset = 0
}

// IsLoading reports whether the buffer is being filled from storage.
func (b *Buffer) IsLoading() bool { return b.loading }

// Language returns the language id.
func (b *Buffer) Language() string { return b.language }

// SetLanguage changes the language id and notifies listeners.
func (b *Buffer) SetLanguage(language string) {
	language = strings.ToLower(language)
	if language == b.language {
		return
	}
	b.language = language
	b.regionsLoaded = false
	b.languageChanged.Emit(language)
}

// Filename returns the file the buffer was loaded from, if any.
func (b *Buffer) Filename() string { return b.filename }

// HasContextClass reports whether the rune at offset lies in a comment or
// string region. Regions are recomputed lazily after modifications.
func (b *Buffer) HasContextClass(offset int, class string) bool {
	if !b.regionsLoaded || b.regionsRev != b.revision {
		regions, err := syntax.Classify(b.language, b.Text())
		if err != nil {
			regions = nil
		}
		b.regions = regions
		b.regionsRev = b.revision
		b.regionsLoaded = true
	}
	return b.regions.Has(offset, class)
}

// OnInsertText registers fn for insertions.
func (b *Buffer) OnInsertText(fn func(offset int, s string)) func() {
	id := b.inserted.Connect(func(ins Insertion) { fn(ins.Offset, ins.Text) })
	return func() { b.inserted.Disconnect(id) }
}

// OnDeleteRange registers fn for deletions.
func (b *Buffer) OnDeleteRange(fn func(begin, end int)) func() {
	id := b.deleted.Connect(func(d Deletion) { fn(d.Begin, d.End) })
	return func() { b.deleted.Disconnect(id) }
}

// OnCursorSet registers fn for explicit cursor placement.
func (b *Buffer) OnCursorSet(fn func(offset int)) func() {
	id := b.cursorSet.Connect(fn)
	return func() { b.cursorSet.Disconnect(id) }
}

// OnLanguageChanged registers fn for language changes.
func (b *Buffer) OnLanguageChanged(fn func(language string)) func() {
	id := b.languageChanged.Connect(fn)
	return func() { b.languageChanged.Disconnect(id) }
}
