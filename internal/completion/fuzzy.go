package completion

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// FoldNeedle case-folds a query for FuzzyMatch.
func FoldNeedle(s string) string {
	return folder.String(s)
}

// FuzzyMatch reports whether the runes of casefoldNeedle appear in order in
// haystack. Lower priorities are better matches: every skipped rune costs
// two, a match found only through upper-casing costs one more, and the
// unmatched tail of haystack is added at the end.
func FuzzyMatch(haystack, casefoldNeedle string) (priority int, ok bool) {
	if haystack == "" {
		return 0, false
	}

	hay := []rune(haystack)
	pos := 0
	score := 0
	for _, ch := range casefoldNeedle {
		up := unicode.ToUpper(ch)
		found := -1
		for i := pos; i < len(hay); i++ {
			if hay[i] == ch || hay[i] == up {
				found = i
				break
			}
		}
		if found < 0 {
			return 0, false
		}

		score += (found - pos) * 2
		if up != ch && hay[found] == up {
			score++
		}
		pos = found + 1
	}

	return score + len(hay) - pos, true
}

// FuzzyMask marks the runes of haystack that a greedy left-to-right match
// of needle consumes.
func FuzzyMask(haystack, needle string) []bool {
	hay := []rune(haystack)
	query := []rune(needle)
	mask := make([]bool, len(hay))
	q := 0
	for i, ch := range hay {
		if q >= len(query) {
			break
		}
		if ch == query[q] || unicode.ToLower(ch) == unicode.ToLower(query[q]) {
			mask[i] = true
			q++
		}
	}
	return mask
}

// FuzzyHighlight wraps each run of matched runes in <b></b>.
func FuzzyHighlight(haystack, needle string) string {
	mask := FuzzyMask(haystack, needle)
	var sb strings.Builder
	open := false
	for i, ch := range []rune(haystack) {
		if mask[i] != open {
			if open {
				sb.WriteString("</b>")
			} else {
				sb.WriteString("<b>")
			}
			open = mask[i]
		}
		sb.WriteRune(ch)
	}
	if open {
		sb.WriteString("</b>")
	}
	return sb.String()
}
