// Package plot renders per-chromosome coverage plots and the
// multi-chromosome overview.
package plot

import (
	"fmt"
	"image/color"
	"sort"
	"strings"
)

// Theme is a plot color palette. Themes are plain values passed to the
// renderer; there is no package-level current theme.
type Theme struct {
	Name    string
	Primary color.RGBA // coverage bars and areas
	Accent  color.RGBA // mean lines, highlights
	High    color.RGBA // high coverage
	Low     color.RGBA // low coverage
	Base    color.RGBA // background
	Overlay color.RGBA // grid and boxes
	Text    color.RGBA
}

func rgb(r, g, b uint8) color.RGBA {
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

var (
	// Latte is Catppuccin Latte, the default light theme
	Latte = Theme{
		Name:    "latte",
		Primary: rgb(30, 102, 245),
		Accent:  rgb(136, 57, 239),
		High:    rgb(234, 83, 83),
		Low:     rgb(64, 160, 43),
		Base:    rgb(239, 241, 245),
		Overlay: rgb(220, 224, 232),
		Text:    rgb(76, 79, 105),
	}

	// Frappe is Catppuccin Frappé, a dark theme
	Frappe = Theme{
		Name:    "frappe",
		Primary: rgb(140, 170, 238),
		Accent:  rgb(186, 187, 241),
		High:    rgb(231, 130, 132),
		Low:     rgb(166, 209, 137),
		Base:    rgb(48, 52, 70),
		Overlay: rgb(65, 69, 89),
		Text:    rgb(198, 208, 245),
	}

	Nord = Theme{
		Name:    "nord",
		Primary: rgb(94, 129, 172),
		Accent:  rgb(180, 142, 173),
		High:    rgb(191, 97, 106),
		Low:     rgb(163, 190, 140),
		Base:    rgb(236, 239, 244),
		Overlay: rgb(229, 233, 240),
		Text:    rgb(46, 52, 64),
	}

	Gruvbox = Theme{
		Name:    "gruvbox",
		Primary: rgb(69, 133, 136),
		Accent:  rgb(177, 98, 134),
		High:    rgb(204, 36, 29),
		Low:     rgb(152, 151, 26),
		Base:    rgb(251, 241, 199),
		Overlay: rgb(235, 219, 178),
		Text:    rgb(60, 56, 54),
	}
)

var themes = map[string]Theme{
	"latte":   Latte,
	"frappe":  Frappe,
	"nord":    Nord,
	"gruvbox": Gruvbox,
}

// ThemeByName looks up a theme; the empty name selects Latte
func ThemeByName(name string) (Theme, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Latte, nil
	}
	t, ok := themes[name]
	if !ok {
		return Theme{}, fmt.Errorf("unknown theme %q (available: %s)", name, strings.Join(ThemeNames(), ", "))
	}
	return t, nil
}

// ThemeNames lists the available themes
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CoverageColor shades a value relative to max: blends Low into Primary
// below 30%, Primary into High above 70%.
func (t Theme) CoverageColor(value, max float64) color.RGBA {
	if max <= 0 {
		return t.Primary
	}
	rel := value / max
	switch {
	case rel < 0.3:
		return blend(t.Low, t.Primary, rel/0.3)
	case rel > 0.7:
		return blend(t.Primary, t.High, (rel-0.7)/0.3)
	}
	return t.Primary
}

func blend(a, b color.RGBA, f float64) color.RGBA {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x)*(1-f) + float64(y)*f)
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}
