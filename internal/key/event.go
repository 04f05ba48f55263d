package key

import (
	"fmt"
	"strings"
	"unicode"
)

// Event is one key press as the completion engine sees it.
type Event struct {
	Key       Key
	Rune      rune // set when Key is KeyRune
	Modifiers Modifier
}

// NewRuneEvent returns the event for typing r.
func NewRuneEvent(r rune, mods Modifier) Event {
	return Event{Key: KeyRune, Rune: r, Modifiers: mods}
}

// NewSpecialEvent returns the event for a non-character key.
func NewSpecialEvent(k Key, mods Modifier) Event {
	return Event{Key: k, Modifiers: mods}
}

// IsRune reports whether the event carries a character.
func (e Event) IsRune() bool {
	return e.Key == KeyRune && e.Rune != 0
}

// IsChar reports whether the event would insert a printable character.
func (e Event) IsChar() bool {
	return e.IsRune() && !e.IsModified() && unicode.IsPrint(e.Rune)
}

// IsModified reports whether a modifier is held. Shift on a character is
// already folded into the rune, so it does not count.
func (e Event) IsModified() bool {
	if e.IsRune() {
		return e.Modifiers.Has(ModCtrl | ModAlt | ModMeta)
	}
	return e.Modifiers != ModNone
}

// IsEnter reports an unmodified Enter.
func (e Event) IsEnter() bool {
	return e.Key == KeyEnter && e.Modifiers == ModNone
}

// Equals compares key, rune and modifiers.
func (e Event) Equals(other Event) bool {
	return e == other
}

// Matches reports whether e is the key described by spec. An invalid spec
// matches nothing.
func (e Event) Matches(spec string) bool {
	want, err := Parse(spec)
	return err == nil && e == want
}

var shortNames = map[Key]string{
	KeyEscape:    "Esc",
	KeyBackspace: "BS",
	KeyDelete:    "Del",
	KeyPageUp:    "PgUp",
	KeyPageDown:  "PgDn",
}

// String renders the event in the compact form used in logs and key hints,
// e.g. "a", "C-Space" or "C-S-Up".
func (e Event) String() string {
	var b strings.Builder
	for _, m := range []struct {
		mod  Modifier
		abbr string
	}{{ModCtrl, "C-"}, {ModAlt, "A-"}, {ModMeta, "M-"}} {
		if e.Modifiers.Has(m.mod) {
			b.WriteString(m.abbr)
		}
	}
	if e.Modifiers.HasShift() && !e.IsRune() {
		b.WriteString("S-")
	}

	switch {
	case e.Key == KeyRune && e.Rune == ' ':
		b.WriteString("Space")
	case e.Key == KeyRune:
		b.WriteRune(e.Rune)
	case shortNames[e.Key] != "":
		b.WriteString(shortNames[e.Key])
	default:
		b.WriteString(e.Key.String())
	}
	return b.String()
}

func (e Event) GoString() string {
	return fmt.Sprintf("key.Event{%s %q %s}", e.Key, e.Rune, e.Modifiers)
}
