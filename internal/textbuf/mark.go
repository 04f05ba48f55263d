package textbuf

import "github.com/dshills/ksense/internal/text"

// Mark is a position that follows edits.
type Mark struct {
	offset      int
	leftGravity bool
	deleted     bool
}

var _ text.Mark = (*Mark)(nil)

// Offset returns the current offset.
func (m *Mark) Offset() int { return m.offset }

// Deleted reports whether the mark was removed from its buffer.
func (m *Mark) Deleted() bool { return m.deleted }

// LeftGravity reports whether the mark stays before text inserted at it.
func (m *Mark) LeftGravity() bool { return m.leftGravity }

func (b *Buffer) newMark(offset int, leftGravity bool) *Mark {
	m := &Mark{offset: clamp(offset, 0, b.Len()), leftGravity: leftGravity}
	b.marks = append(b.marks, m)
	return m
}

// CreateMark adds a mark at offset.
func (b *Buffer) CreateMark(offset int, leftGravity bool) text.Mark {
	return b.newMark(offset, leftGravity)
}

// MoveMark moves a mark created by this buffer.
func (b *Buffer) MoveMark(tm text.Mark, offset int) {
	m, ok := tm.(*Mark)
	if !ok || m.deleted {
		return
	}
	m.offset = clamp(offset, 0, b.Len())
}

// DeleteMark removes a mark. Deleting twice is a no-op.
func (b *Buffer) DeleteMark(tm text.Mark) {
	m, ok := tm.(*Mark)
	if !ok || m.deleted || m == b.cursor || m == b.selection {
		return
	}
	for i, other := range b.marks {
		if other == m {
			b.marks = append(b.marks[:i], b.marks[i+1:]...)
			break
		}
	}
	m.deleted = true
}

// MarkCount returns the number of live marks, including cursor and selection.
func (b *Buffer) MarkCount() int { return len(b.marks) }
