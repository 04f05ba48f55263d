package key

import (
	"fmt"
	"strconv"
	"strings"
)

// Key identifies a keyboard key. Characters are all KeyRune, with the
// character in Event.Rune.
type Key uint16

const (
	KeyNone Key = iota
	KeyEscape
	KeyEnter
	KeyTab
	KeyBacktab
	KeyBackspace
	KeyDelete
	KeyInsert
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyRune
)

// names lists the canonical name of each special key first, then the
// aliases Parse also accepts.
var names = map[Key][]string{
	KeyEscape:    {"Escape", "esc"},
	KeyEnter:     {"Enter", "return", "cr"},
	KeyTab:       {"Tab"},
	KeyBacktab:   {"Backtab"},
	KeyBackspace: {"Backspace", "bs"},
	KeyDelete:    {"Delete", "del"},
	KeyInsert:    {"Insert", "ins"},
	KeyHome:      {"Home"},
	KeyEnd:       {"End"},
	KeyPageUp:    {"PageUp", "pgup"},
	KeyPageDown:  {"PageDown", "pgdn"},
	KeyUp:        {"Up"},
	KeyDown:      {"Down"},
	KeyLeft:      {"Left"},
	KeyRight:     {"Right"},
}

var byName = func() map[string]Key {
	m := make(map[string]Key)
	for k, aliases := range names {
		for _, a := range aliases {
			m[strings.ToLower(a)] = k
		}
	}
	for k := KeyF1; k <= KeyF12; k++ {
		m[strings.ToLower(k.String())] = k
	}
	return m
}()

func (k Key) String() string {
	switch {
	case k == KeyNone:
		return "None"
	case k == KeyRune:
		return "Rune"
	case k >= KeyF1 && k <= KeyF12:
		return "F" + strconv.Itoa(int(k-KeyF1)+1)
	}
	if n, ok := names[k]; ok {
		return n[0]
	}
	return fmt.Sprintf("Key(%d)", k)
}

// KeyFromName looks a special key up by name, ignoring case. Unknown names
// return KeyNone.
func KeyFromName(name string) Key {
	return byName[strings.ToLower(strings.TrimSpace(name))]
}
