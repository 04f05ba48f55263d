package key

import (
	"errors"
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestParse(t *testing.T) {
	tests := []struct {
		spec string
		want Event
	}{
		{"a", Event{Key: KeyRune, Rune: 'a'}},
		{".", Event{Key: KeyRune, Rune: '.'}},
		{"Enter", Event{Key: KeyEnter}},
		{"esc", Event{Key: KeyEscape}},
		{"Ctrl+Space", Event{Key: KeyRune, Rune: ' ', Modifiers: ModCtrl}},
		{"<C-Space>", Event{Key: KeyRune, Rune: ' ', Modifiers: ModCtrl}},
		{"<C-N>", Event{Key: KeyRune, Rune: 'n', Modifiers: ModCtrl}},
		{"Shift+Tab", Event{Key: KeyTab, Modifiers: ModShift}},
		{"<CR>", Event{Key: KeyEnter}},
		{"+", Event{Key: KeyRune, Rune: '+'}},
		{"PgDn", Event{Key: KeyPageDown}},
	}

	for _, tt := range tests {
		got, err := Parse(tt.spec)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", tt.spec, err)
			continue
		}
		if !got.Equals(tt.want) {
			t.Errorf("Parse(%q) = %#v, want %#v", tt.spec, got, tt.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse("  "); !errors.Is(err, ErrEmptySpec) {
		t.Errorf("Parse(blank) error = %v, want ErrEmptySpec", err)
	}
	if _, err := Parse("Hyper+x"); !errors.Is(err, ErrInvalidSpec) {
		t.Errorf("Parse(Hyper+x) error = %v, want ErrInvalidSpec", err)
	}
	if _, err := Parse("banana"); !errors.Is(err, ErrInvalidSpec) {
		t.Errorf("Parse(banana) error = %v, want ErrInvalidSpec", err)
	}
}

func TestEventPredicates(t *testing.T) {
	if !NewRuneEvent('x', ModNone).IsChar() {
		t.Error("plain rune should be a char")
	}
	if NewRuneEvent('x', ModCtrl).IsChar() {
		t.Error("Ctrl+x should not be a char")
	}
	if NewRuneEvent('X', ModShift).IsModified() {
		t.Error("Shift on a rune should not count as modified")
	}
	if !NewSpecialEvent(KeyEnter, ModNone).IsEnter() {
		t.Error("IsEnter failed")
	}
	if NewSpecialEvent(KeyEnter, ModCtrl).IsEnter() {
		t.Error("Ctrl+Enter should not be IsEnter")
	}
	if !NewRuneEvent(' ', ModCtrl).Matches("Ctrl+Space") {
		t.Error("Ctrl+Space should match")
	}
}

func TestEventString(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{NewRuneEvent('a', ModNone), "a"},
		{NewRuneEvent(' ', ModCtrl), "C-Space"},
		{NewSpecialEvent(KeyUp, ModShift|ModCtrl), "C-S-Up"},
		{NewSpecialEvent(KeyPageDown, ModNone), "PgDn"},
	}
	for _, tt := range tests {
		if got := tt.event.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestFromTcell(t *testing.T) {
	tests := []struct {
		name string
		in   *tcell.EventKey
		want Event
	}{
		{"rune", tcell.NewEventKey(tcell.KeyRune, 'f', tcell.ModNone), Event{Key: KeyRune, Rune: 'f'}},
		{"enter", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), Event{Key: KeyEnter}},
		{"backspace2", tcell.NewEventKey(tcell.KeyBackspace2, 0, tcell.ModNone), Event{Key: KeyBackspace}},
		{"down", tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone), Event{Key: KeyDown}},
		{"pgup", tcell.NewEventKey(tcell.KeyPgUp, 0, tcell.ModNone), Event{Key: KeyPageUp}},
		{"ctrl-space", tcell.NewEventKey(tcell.KeyCtrlSpace, 0, tcell.ModCtrl), Event{Key: KeyRune, Rune: ' ', Modifiers: ModCtrl}},
		{"ctrl-q", tcell.NewEventKey(tcell.KeyCtrlQ, 0, tcell.ModCtrl), Event{Key: KeyRune, Rune: 'q', Modifiers: ModCtrl}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromTcell(tt.in)
			if !got.Equals(tt.want) {
				t.Errorf("FromTcell = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestKeyNames(t *testing.T) {
	for k := KeyEscape; k < KeyRune; k++ {
		if got := KeyFromName(k.String()); got != k {
			t.Errorf("KeyFromName(%q) = %v, want %v", k.String(), got, k)
		}
	}
	if got := KeyFromName(" RETURN "); got != KeyEnter {
		t.Errorf("KeyFromName(RETURN) = %v", got)
	}
	if got := KeyF10.String(); got != "F10" {
		t.Errorf("KeyF10.String() = %q", got)
	}
	if got := Key(200).String(); got != "Key(200)" {
		t.Errorf("Key(200).String() = %q", got)
	}
}
