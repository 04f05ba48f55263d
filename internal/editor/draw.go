package editor

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/dshills/ksense/internal/text"
	"github.com/dshills/ksense/internal/textbuf"
)

// Styles holds the styles the view draws with.
type Styles struct {
	Text    tcell.Style
	Comment tcell.Style
	String  tcell.Style
}

// DefaultStyles returns styles using the terminal's palette.
func DefaultStyles() Styles {
	return Styles{
		Text:    tcell.StyleDefault,
		Comment: tcell.StyleDefault.Foreground(tcell.ColorGray),
		String:  tcell.StyleDefault.Foreground(tcell.ColorGreen),
	}
}

// Resize places the view at (x, y) with the given size in cells.
func (v *View) Resize(x, y, width, height int) {
	v.x, v.y = x, y
	v.width, v.height = max(width, 1), max(height, 1)
	v.scrollToCursor()
}

// Bounds returns the view's origin and size in cells.
func (v *View) Bounds() (x, y, width, height int) {
	return v.x, v.y, v.width, v.height
}

// runeWidth returns the cells r occupies at column col.
func (v *View) runeWidth(r rune, col int) int {
	if r == '\t' {
		return v.tabWidth - col%v.tabWidth
	}
	w := uniseg.StringWidth(string(r))
	if w < 1 {
		return 1
	}
	return w
}

// columnOf returns the display column of offset within its line.
func (v *View) columnOf(offset int) int {
	col := 0
	for i := v.buf.LineStart(offset); i < offset; i++ {
		col += v.runeWidth(v.buf.RuneAt(i), col)
	}
	return col
}

func (v *View) scrollToCursor() {
	line := v.buf.PositionAt(v.buf.Cursor()).Line
	if line < v.top {
		v.top = line
	}
	if line >= v.top+v.height {
		v.top = line - v.height + 1
	}
}

// CursorCell returns the screen cell of the caret.
func (v *View) CursorCell() (x, y int) {
	v.scrollToCursor()
	c := v.buf.Cursor()
	line := v.buf.PositionAt(c).Line
	return v.x + v.columnOf(c), v.y + line - v.top
}

// OffsetAtCell maps a screen cell to the nearest buffer offset.
func (v *View) OffsetAtCell(x, y int) int {
	line := max(v.top+y-v.y, 0)
	start := v.buf.OffsetAt(textbuf.Position{Line: line})
	end := v.buf.LineEnd(start)

	target := x - v.x
	col := 0
	for i := start; i < end; i++ {
		w := v.runeWidth(v.buf.RuneAt(i), col)
		if col+w > target {
			return i
		}
		col += w
	}
	return end
}

// Draw paints the visible lines onto screen and places the terminal cursor.
func (v *View) Draw(screen tcell.Screen, styles Styles) {
	v.scrollToCursor()

	for row := 0; row < v.height; row++ {
		for col := 0; col < v.width; col++ {
			screen.SetContent(v.x+col, v.y+row, ' ', nil, styles.Text)
		}
	}

	lines := v.buf.PositionAt(v.buf.Len()).Line + 1
	for row := 0; row < v.height && v.top+row < lines; row++ {
		start := v.buf.OffsetAt(textbuf.Position{Line: v.top + row})
		end := v.buf.LineEnd(start)
		col := 0
		for i := start; i < end && col < v.width; i++ {
			r := v.buf.RuneAt(i)
			if r != '\t' {
				screen.SetContent(v.x+col, v.y+row, r, nil, v.styleAt(i, styles))
			}
			col += v.runeWidth(r, col)
		}
	}

	if v.focused {
		x, y := v.CursorCell()
		screen.ShowCursor(x, y)
	}
}

func (v *View) styleAt(offset int, styles Styles) tcell.Style {
	switch {
	case v.buf.HasContextClass(offset, text.ClassComment):
		return styles.Comment
	case v.buf.HasContextClass(offset, text.ClassString):
		return styles.String
	default:
		return styles.Text
	}
}
