package textbuf

import "unicode/utf16"

// Position is a zero-based line and rune column.
type Position struct {
	Line   int
	Column int
}

// Compare returns -1, 0 or 1 ordering p against other.
func (p Position) Compare(other Position) int {
	switch {
	case p.Line < other.Line:
		return -1
	case p.Line > other.Line:
		return 1
	case p.Column < other.Column:
		return -1
	case p.Column > other.Column:
		return 1
	default:
		return 0
	}
}

// PositionAt converts an offset to a line and column.
func (b *Buffer) PositionAt(offset int) Position {
	offset = clamp(offset, 0, b.Len())
	var pos Position
	for i := 0; i < offset; i++ {
		if b.RuneAt(i) == '\n' {
			pos.Line++
			pos.Column = 0
		} else {
			pos.Column++
		}
	}
	return pos
}

// OffsetAt converts a line and column to an offset, clamping the column to
// the line length and the line to the last line.
func (b *Buffer) OffsetAt(pos Position) int {
	offset := 0
	for line := 0; line < pos.Line; line++ {
		end := b.LineEnd(offset)
		if end >= b.Len() {
			return end
		}
		offset = end + 1
	}
	end := b.LineEnd(offset)
	return clamp(offset+pos.Column, offset, end)
}

// UTF16Column returns offset's column measured in UTF-16 code units, the
// unit language servers use.
func (b *Buffer) UTF16Column(offset int) int {
	offset = clamp(offset, 0, b.Len())
	col := 0
	for i := b.LineStart(offset); i < offset; i++ {
		col += utf16.RuneLen(b.RuneAt(i))
	}
	return col
}
