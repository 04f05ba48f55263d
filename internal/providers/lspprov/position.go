package lspprov

import (
	"unicode/utf16"

	"go.lsp.dev/protocol"
)

// lineIndex converts between rune offsets and LSP positions for one text
// snapshot. LSP characters count UTF-16 code units.
type lineIndex struct {
	text  []rune
	lines []int
}

func newLineIndex(s string) *lineIndex {
	li := &lineIndex{text: []rune(s), lines: []int{0}}
	for i, r := range li.text {
		if r == '\n' {
			li.lines = append(li.lines, i+1)
		}
	}
	return li
}

func (li *lineIndex) lineEnd(line int) int {
	if line+1 < len(li.lines) {
		return li.lines[line+1] - 1
	}
	return len(li.text)
}

// position returns the LSP position of offset, clamped to the text.
func (li *lineIndex) position(offset int) protocol.Position {
	offset = min(max(offset, 0), len(li.text))
	line := 0
	for line+1 < len(li.lines) && li.lines[line+1] <= offset {
		line++
	}
	char := 0
	for _, r := range li.text[li.lines[line]:offset] {
		char += utf16.RuneLen(r)
	}
	return protocol.Position{Line: uint32(line), Character: uint32(char)}
}

// offset returns the rune offset of pos. Characters past the line end, or
// in the middle of a surrogate pair, land on the next rune boundary.
func (li *lineIndex) offset(pos protocol.Position) int {
	line := int(pos.Line)
	if line >= len(li.lines) {
		return len(li.text)
	}
	start, end := li.lines[line], li.lineEnd(line)
	units := 0
	for i := start; i < end; i++ {
		if units >= int(pos.Character) {
			return i
		}
		units += utf16.RuneLen(li.text[i])
	}
	return end
}
