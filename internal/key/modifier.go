package key

import "strings"

// Modifier is a set of held modifier keys.
type Modifier uint8

const (
	ModNone  Modifier = 0
	ModShift Modifier = 1 << (iota - 1)
	ModCtrl
	ModAlt
	ModMeta // Cmd on macOS
)

// Has reports whether any of the modifiers in mod are held.
func (m Modifier) Has(mod Modifier) bool { return m&mod != 0 }

func (m Modifier) HasShift() bool { return m.Has(ModShift) }
func (m Modifier) HasCtrl() bool  { return m.Has(ModCtrl) }
func (m Modifier) HasAlt() bool   { return m.Has(ModAlt) }
func (m Modifier) HasMeta() bool  { return m.Has(ModMeta) }

// With adds mod to the set.
func (m Modifier) With(mod Modifier) Modifier { return m | mod }

// String joins the held modifiers, e.g. "Ctrl+Shift".
func (m Modifier) String() string {
	names := make([]string, 0, 4)
	for _, n := range []struct {
		mod  Modifier
		name string
	}{{ModCtrl, "Ctrl"}, {ModAlt, "Alt"}, {ModShift, "Shift"}, {ModMeta, "Meta"}} {
		if m.Has(n.mod) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "+")
}

// lookupModifier accepts the long names used in configuration files and
// the single letters of the angle-bracket form.
func lookupModifier(name string) (Modifier, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ctrl", "control", "c":
		return ModCtrl, true
	case "alt", "option", "a":
		return ModAlt, true
	case "shift", "s":
		return ModShift, true
	case "meta", "cmd", "super", "m", "d":
		return ModMeta, true
	}
	return ModNone, false
}
