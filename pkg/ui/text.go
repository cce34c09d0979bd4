package ui

import "strings"

// Segment is a string that has some style applied to it.
type Segment struct {
	Style
	Text string
}

// Text contains of a list of styled Segments.
type Text []*Segment

// T constructs a new Text with the given content and the given Styling's
// applied. An empty string yields a nil Text.
func T(s string, ts ...Styling) Text {
	if s == "" {
		return nil
	}
	return Text{&Segment{Text: s, Style: ApplyStyling(Style{}, ts...)}}
}

// StyleText returns a new Text with the given Styling's applied. It does not
// modify the given Text.
func StyleText(t Text, ts ...Styling) Text {
	newt := make(Text, len(t))
	for i, seg := range t {
		newt[i] = &Segment{Text: seg.Text, Style: ApplyStyling(seg.Style, ts...)}
	}
	return newt
}

// Concat returns a new Text with the segments of t2 appended.
func (t Text) Concat(t2 Text) Text {
	newt := make(Text, 0, len(t)+len(t2))
	newt = append(newt, t...)
	return append(newt, t2...)
}

// String returns the content of the text, without any styling.
func (t Text) String() string {
	var sb strings.Builder
	for _, seg := range t {
		sb.WriteString(seg.Text)
	}
	return sb.String()
}

// VTString renders the styled text using VT-style escape sequences.
func (t Text) VTString() string {
	var sb strings.Builder
	for _, seg := range t {
		sgr := seg.SGR()
		if sgr == "" {
			sb.WriteString(seg.Text)
			continue
		}
		sb.WriteString("\033[" + sgr + "m" + seg.Text + "\033[m")
	}
	return sb.String()
}
