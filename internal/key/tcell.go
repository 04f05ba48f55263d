package key

import (
	"unicode"

	"github.com/gdamore/tcell/v2"
)

// FromTcell converts a tcell key event into an Event.
// Control characters that tcell reports as KeyCtrlA..KeyCtrlZ and
// KeyCtrlSpace become rune events carrying ModCtrl.
func FromTcell(ev *tcell.EventKey) Event {
	mods := convertModifiers(ev.Modifiers())
	k := ev.Key()

	switch k {
	case tcell.KeyRune:
		r := ev.Rune()
		if mods.HasCtrl() {
			r = unicode.ToLower(r)
		}
		return Event{Key: KeyRune, Rune: r, Modifiers: mods}
	case tcell.KeyCtrlSpace:
		return Event{Key: KeyRune, Rune: ' ', Modifiers: mods.With(ModCtrl)}
	}

	if special := convertKey(k); special != KeyNone {
		return Event{Key: special, Modifiers: mods}
	}

	if k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ {
		r := rune('a' + int(k-tcell.KeyCtrlA))
		return Event{Key: KeyRune, Rune: r, Modifiers: mods.With(ModCtrl)}
	}

	return Event{Key: KeyNone, Modifiers: mods}
}

func convertKey(k tcell.Key) Key {
	switch k {
	case tcell.KeyEscape:
		return KeyEscape
	case tcell.KeyEnter:
		return KeyEnter
	case tcell.KeyTab:
		return KeyTab
	case tcell.KeyBacktab:
		return KeyBacktab
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return KeyBackspace
	case tcell.KeyDelete:
		return KeyDelete
	case tcell.KeyInsert:
		return KeyInsert
	case tcell.KeyHome:
		return KeyHome
	case tcell.KeyEnd:
		return KeyEnd
	case tcell.KeyPgUp:
		return KeyPageUp
	case tcell.KeyPgDn:
		return KeyPageDown
	case tcell.KeyUp:
		return KeyUp
	case tcell.KeyDown:
		return KeyDown
	case tcell.KeyLeft:
		return KeyLeft
	case tcell.KeyRight:
		return KeyRight
	case tcell.KeyF1:
		return KeyF1
	case tcell.KeyF2:
		return KeyF2
	case tcell.KeyF3:
		return KeyF3
	case tcell.KeyF4:
		return KeyF4
	case tcell.KeyF5:
		return KeyF5
	case tcell.KeyF6:
		return KeyF6
	case tcell.KeyF7:
		return KeyF7
	case tcell.KeyF8:
		return KeyF8
	case tcell.KeyF9:
		return KeyF9
	case tcell.KeyF10:
		return KeyF10
	case tcell.KeyF11:
		return KeyF11
	case tcell.KeyF12:
		return KeyF12
	default:
		return KeyNone
	}
}

func convertModifiers(m tcell.ModMask) Modifier {
	var mods Modifier
	if m&tcell.ModShift != 0 {
		mods = mods.With(ModShift)
	}
	if m&tcell.ModCtrl != 0 {
		mods = mods.With(ModCtrl)
	}
	if m&tcell.ModAlt != 0 {
		mods = mods.With(ModAlt)
	}
	if m&tcell.ModMeta != 0 {
		mods = mods.With(ModMeta)
	}
	return mods
}
