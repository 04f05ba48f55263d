package completion

import (
	"unicode"

	"github.com/dshills/ksense/internal/text"
)

func isSymbolChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// ComputeBounds finds the word before the cursor. ok is false when there is
// no word or it starts or ends inside a comment or string; begin and end
// are still set so callers can look at the rune before end.
func ComputeBounds(buf text.Buffer) (begin, end int, ok bool) {
	end = buf.Cursor()
	begin = end
	for begin > 0 && isSymbolChar(buf.RuneAt(begin-1)) {
		begin--
	}
	if begin == end {
		return begin, end, false
	}
	for _, class := range []string{text.ClassComment, text.ClassString} {
		if buf.HasContextClass(begin, class) || buf.HasContextClass(end-1, class) {
			return begin, end, false
		}
	}
	return begin, end, true
}
