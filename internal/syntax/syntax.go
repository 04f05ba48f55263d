// Package syntax classifies buffer positions into lexical context classes
// (comments and strings) using chroma lexers.
package syntax

import (
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/dshills/ksense/internal/text"
)

// Region is a half-open rune range [Start, End) belonging to one class.
type Region struct {
	Start int
	End   int
	Class string
}

// Regions is a list of non-overlapping regions sorted by Start.
type Regions []Region

// ClassAt returns the class of the region containing offset, or "".
func (rs Regions) ClassAt(offset int) string {
	i := sort.Search(len(rs), func(i int) bool { return rs[i].End > offset })
	if i < len(rs) && rs[i].Start <= offset {
		return rs[i].Class
	}
	return ""
}

// Has reports whether offset lies in a region of the given class.
func (rs Regions) Has(offset int, class string) bool {
	return class != "" && rs.ClassAt(offset) == class
}

// Classify tokenises src with the lexer for language and returns its
// comment and string regions. Unknown languages produce no regions.
func Classify(language, src string) (Regions, error) {
	lexer := lexerFor(language)
	if lexer == nil {
		return nil, nil
	}

	it, err := chroma.Coalesce(lexer).Tokenise(nil, src)
	if err != nil {
		return nil, err
	}

	var regions Regions
	offset := 0
	for tok := it(); tok != chroma.EOF; tok = it() {
		if tok.Value == "" {
			continue
		}
		start := offset
		offset += utf8.RuneCountInString(tok.Value)

		class := classOf(tok.Type)
		if class == "" {
			continue
		}
		if n := len(regions); n > 0 && regions[n-1].End == start && regions[n-1].Class == class {
			regions[n-1].End = offset
			continue
		}
		regions = append(regions, Region{Start: start, End: offset, Class: class})
	}
	return regions, nil
}

func classOf(t chroma.TokenType) string {
	switch {
	case t.InCategory(chroma.Comment) && !t.InSubCategory(chroma.CommentPreproc):
		return text.ClassComment
	case t.InSubCategory(chroma.LiteralString):
		return text.ClassString
	default:
		return ""
	}
}

func lexerFor(language string) chroma.Lexer {
	if language == "" {
		return nil
	}
	return lexers.Get(language)
}

// DetectLanguage returns the language id for a file name, or "" when no
// lexer claims it. The id is the lexer's first alias, lowercased.
func DetectLanguage(filename string) string {
	lexer := lexers.Match(filepath.Base(filename))
	if lexer == nil {
		return ""
	}
	return languageID(lexer)
}

func languageID(lexer chroma.Lexer) string {
	cfg := lexer.Config()
	if len(cfg.Aliases) > 0 {
		return strings.ToLower(cfg.Aliases[0])
	}
	return strings.ToLower(cfg.Name)
}
