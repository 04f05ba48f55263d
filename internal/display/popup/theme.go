package popup

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// Theme holds the popup colours as hex strings ("#rrggbb"). "default"
// or an empty string selects the terminal's default colour.
type Theme struct {
	Fg         string `koanf:"fg" toml:"fg"`
	Bg         string `koanf:"bg" toml:"bg"`
	SelectedFg string `koanf:"selected_fg" toml:"selected_fg"`
	SelectedBg string `koanf:"selected_bg" toml:"selected_bg"`
	MatchFg    string `koanf:"match_fg" toml:"match_fg"`
}

// DefaultTheme returns the built-in dark theme.
func DefaultTheme() Theme {
	return Theme{
		Fg:         "#d0d0d0",
		Bg:         "#303030",
		SelectedFg: "#ffffff",
		SelectedBg: "#005f87",
		MatchFg:    "#ffaf00",
	}
}

// Styles is a Theme resolved to tcell styles.
type Styles struct {
	Normal        tcell.Style
	Detail        tcell.Style
	Match         tcell.Style
	Selected      tcell.Style
	SelectedMatch tcell.Style
}

// Styles resolves the theme. Details are drawn in the foreground blended
// toward the background; matches on the selected row are blended toward
// the selected foreground so they stay readable.
func (t Theme) Styles() (Styles, error) {
	fg, err := parseColor(t.Fg)
	if err != nil {
		return Styles{}, err
	}
	bg, err := parseColor(t.Bg)
	if err != nil {
		return Styles{}, err
	}
	selFg, err := parseColor(t.SelectedFg)
	if err != nil {
		return Styles{}, err
	}
	selBg, err := parseColor(t.SelectedBg)
	if err != nil {
		return Styles{}, err
	}
	match, err := parseColor(t.MatchFg)
	if err != nil {
		return Styles{}, err
	}

	base := tcell.StyleDefault.Foreground(toTcell(fg)).Background(toTcell(bg))
	selected := tcell.StyleDefault.Foreground(toTcell(selFg)).Background(toTcell(selBg))

	detail := fg
	if fg != nil && bg != nil {
		blended := fg.BlendLab(*bg, 0.4).Clamped()
		detail = &blended
	}
	selMatch := match
	if match != nil && selFg != nil {
		blended := match.BlendLab(*selFg, 0.3).Clamped()
		selMatch = &blended
	}

	return Styles{
		Normal:        base,
		Detail:        base.Foreground(toTcell(detail)),
		Match:         base.Foreground(toTcell(match)).Bold(true),
		Selected:      selected,
		SelectedMatch: selected.Foreground(toTcell(selMatch)).Bold(true),
	}, nil
}

// parseColor returns nil for the terminal default.
func parseColor(s string) (*colorful.Color, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "default") {
		return nil, nil
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return &c, nil
}

func toTcell(c *colorful.Color) tcell.Color {
	if c == nil {
		return tcell.ColorDefault
	}
	r, g, b := c.RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
