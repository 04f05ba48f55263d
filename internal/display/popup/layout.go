package popup

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/dshills/ksense/internal/completion"
)

// layout holds column widths in cells. width includes one cell of padding
// on either side and one between columns.
type layout struct {
	icon, left, center, right int
	width                     int
}

func measure(rows []completion.Row, maxWidth int) layout {
	var l layout
	for _, r := range rows {
		l.icon = max(l.icon, cellWidth(r.Icon))
		l.left = max(l.left, cellWidth(r.Left))
		l.center = max(l.center, cellWidth(r.Center))
		l.right = max(l.right, cellWidth(r.Right))
	}

	l.width = 2 + l.center
	for _, w := range []int{l.icon, l.left, l.right} {
		if w > 0 {
			l.width += w + 1
		}
	}
	if maxWidth > 0 && l.width > maxWidth {
		// Detail gives way first, then the centre column.
		over := l.width - maxWidth
		cut := min(over, max(l.right-4, 0))
		l.right -= cut
		l.width -= cut
		if l.width > maxWidth {
			l.center = max(l.center-(l.width-maxWidth), 1)
			l.width = maxWidth
		}
	}
	return l
}

func cellWidth(s string) int {
	return uniseg.StringWidth(s)
}

// drawText draws s from (x, y) within width cells, grapheme by grapheme.
// mask marks runes drawn with hl instead of style; it may be nil.
func drawText(screen tcell.Screen, x, y, width int, s string, mask []bool, style, hl tcell.Style) int {
	col := 0
	idx := 0
	state := -1
	for s != "" {
		var cluster string
		var w int
		cluster, s, w, state = uniseg.FirstGraphemeClusterInString(s, state)
		runes := []rune(cluster)
		if col+w > width {
			break
		}
		st := style
		if idx < len(mask) && mask[idx] {
			st = hl
		}
		screen.SetContent(x+col, y, runes[0], runes[1:], st)
		col += w
		idx += len(runes)
	}
	return col
}
