package completion

import "fmt"

// Proposal is one completion candidate. Providers define the concrete type;
// the engine never looks inside.
type Proposal any

// Kind classifies an Item for display.
type Kind int

const (
	KindText Kind = iota
	KindKeyword
	KindFunction
	KindMethod
	KindVariable
	KindField
	KindType
	KindModule
	KindSnippet
	KindConstant
)

var kindNames = [...]string{
	KindText:     "text",
	KindKeyword:  "keyword",
	KindFunction: "func",
	KindMethod:   "method",
	KindVariable: "var",
	KindField:    "field",
	KindType:     "type",
	KindModule:   "module",
	KindSnippet:  "snippet",
	KindConstant: "const",
}

// String returns the short kind name shown in the icon column.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Item is a general-purpose Proposal used by the bundled providers.
type Item struct {
	// Label is shown in the list and matched against the typed word.
	Label string
	// Text is inserted on activation. Empty means Label.
	Text string
	// Detail is shown in the right-hand column.
	Detail string
	Kind   Kind
	// Score orders items within one provider; lower sorts first.
	Score int
}

// InsertText returns the text inserted on activation.
func (it *Item) InsertText() string {
	if it.Text != "" {
		return it.Text
	}
	return it.Label
}

// String returns the label.
func (it *Item) String() string {
	return it.Label
}
