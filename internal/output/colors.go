package output

import (
	"github.com/fatih/color"
)

// ColorScheme defines the colors used in journey reports and listings
type ColorScheme struct {
	Title     *color.Color
	Name      *color.Color
	Detail    *color.Color
	Pass      *color.Color
	Fail      *color.Color
	Warn      *color.Color
	Highlight *color.Color
}

// DefaultColorScheme returns the default color scheme. Colors still follow
// color.NoColor, so they vanish when stdout is not a terminal.
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Title:     color.New(color.Bold),
		Name:      color.New(color.FgCyan),
		Detail:    color.New(color.Faint),
		Pass:      color.New(color.FgGreen, color.Bold),
		Fail:      color.New(color.FgRed, color.Bold),
		Warn:      color.New(color.FgYellow),
		Highlight: color.New(color.FgMagenta, color.Bold),
	}
}

// NoColorScheme returns a color scheme with all colors disabled
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	for _, c := range scheme.all() {
		c.DisableColor()
	}
	return scheme
}

// Scheme picks NoColorScheme when noColor is set.
func Scheme(noColor bool) *ColorScheme {
	if noColor {
		return NoColorScheme()
	}
	return DefaultColorScheme()
}

func (s *ColorScheme) all() []*color.Color {
	return []*color.Color{s.Title, s.Name, s.Detail, s.Pass, s.Fail, s.Warn, s.Highlight}
}

// Status returns a colored check mark or cross.
func (s *ColorScheme) Status(ok bool) string {
	if ok {
		return s.Pass.Sprint("✓")
	}
	return s.Fail.Sprint("✗")
}

// Warning returns a colored warning sign.
func (s *ColorScheme) Warning() string {
	return s.Warn.Sprint("⚠")
}
