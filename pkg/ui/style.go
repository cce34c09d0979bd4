// Package ui contains types that may be used by different frontends.
package ui

import (
	"strconv"
	"strings"
)

// Color is a terminal color. The zero value means the terminal default.
type Color int

// Colors.
const (
	Default Color = iota
	Black
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	White
)

var colorNames = []string{
	"default", "black", "red", "green", "yellow", "blue", "magenta", "cyan", "white",
}

func (c Color) String() string {
	if 0 <= int(c) && int(c) < len(colorNames) {
		return colorNames[c]
	}
	return "color(" + strconv.Itoa(int(c)) + ")"
}

// ParseColor parses a color name. It returns Default and false if the name is
// not recognized.
func ParseColor(s string) (Color, bool) {
	for i, name := range colorNames {
		if name == s {
			return Color(i), true
		}
	}
	return Default, false
}

// Style specifies how something (mostly a string) shall be displayed.
type Style struct {
	Fg         Color
	Bg         Color
	Bold       bool
	Dim        bool
	Italic     bool
	Underlined bool
	Inverse    bool
}

// SGR returns SGR sequence for the style.
func (s Style) SGR() string {
	var sgr []string

	addIf := func(b bool, code string) {
		if b {
			sgr = append(sgr, code)
		}
	}
	addIf(s.Bold, "1")
	addIf(s.Dim, "2")
	addIf(s.Italic, "3")
	addIf(s.Underlined, "4")
	addIf(s.Inverse, "7")
	if s.Fg != Default {
		sgr = append(sgr, strconv.Itoa(29+int(s.Fg)))
	}
	if s.Bg != Default {
		sgr = append(sgr, strconv.Itoa(39+int(s.Bg)))
	}

	return strings.Join(sgr, ";")
}

// Styling specifies how to change a Style.
type Styling func(*Style)

// Common stylings.
var (
	Bold       Styling = func(s *Style) { s.Bold = true }
	Dim        Styling = func(s *Style) { s.Dim = true }
	Italic     Styling = func(s *Style) { s.Italic = true }
	Underlined Styling = func(s *Style) { s.Underlined = true }
	Inverse    Styling = func(s *Style) { s.Inverse = true }
)

// Fg returns a Styling that sets the foreground color.
func Fg(c Color) Styling { return func(s *Style) { s.Fg = c } }

// ApplyStyling returns a new Style with the given Styling's applied.
func ApplyStyling(s Style, ts ...Styling) Style {
	for _, t := range ts {
		if t != nil {
			t(&s)
		}
	}
	return s
}
