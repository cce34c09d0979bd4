// Package retained describes the capability a retained-mode widget toolkit
// offers to the bridge: creating widgets, mutating their properties and
// arranging them into a tree.
package retained

import "fmt"

// Handle refers to a native widget. Handles are minted by the Backend and
// never reused while the widget is alive.
type Handle uint32

// NoHandle is the zero Handle. It never refers to a widget.
const NoHandle Handle = 0

// Blueprint identifies a kind of native widget.
type Blueprint int

// Blueprints supported by the bridge.
const (
	// View is a container laying out its children vertically.
	View Blueprint = iota
	// Label is a paragraph of text.
	Label
	Heading1
	Heading3
	// Button is an activatable text widget.
	Button
	// Text is a bare run of text inside a container.
	Text
	// Placeholder is an empty container that occupies no space until
	// something is attached to it.
	Placeholder
)

var blueprintNames = [...]string{
	View: "view", Label: "label", Heading1: "heading1", Heading3: "heading3",
	Button: "button", Text: "text", Placeholder: "placeholder",
}

func (bp Blueprint) String() string {
	if 0 <= bp && int(bp) < len(blueprintNames) {
		return blueprintNames[bp]
	}
	return fmt.Sprintf("blueprint(%d)", int(bp))
}

// ParseBlueprint parses the name of a blueprint, as returned by String.
func ParseBlueprint(s string) (Blueprint, bool) {
	for i, name := range blueprintNames {
		if name == s {
			return Blueprint(i), true
		}
	}
	return 0, false
}

// TextBearing returns whether widgets of the blueprint carry text content.
func (bp Blueprint) TextBearing() bool {
	switch bp {
	case Label, Heading1, Heading3, Button, Text:
		return true
	}
	return false
}

// Container returns whether widgets of the blueprint can have children.
func (bp Blueprint) Container() bool {
	return bp == View || bp == Placeholder
}

// Property names a native widget property.
type Property string

// Properties understood by backends.
const (
	// PropAlign takes an Align.
	PropAlign Property = "align"
	// PropMarginTop takes an int in rows, from 0 to MaxLength.
	PropMarginTop Property = "margin-top"
)

// MaxLength is the largest length a backend accepts.
const MaxLength = 1<<16 - 1

// Align is the value of PropAlign.
type Align int

// Alignments.
const (
	AlignStart Align = iota
	AlignCenter
	AlignEnd
)

func (a Align) String() string {
	switch a {
	case AlignStart:
		return "start"
	case AlignCenter:
		return "center"
	case AlignEnd:
		return "end"
	}
	return fmt.Sprintf("align(%d)", int(a))
}

// PropertyWrite is a single property assignment.
type PropertyWrite struct {
	Name  Property
	Value any
}

// Action is an activation of a widget by the user, such as a click.
type Action struct {
	Handle Handle
	Name   string
}

// AppendPosition can be passed to Backend.AttachChildren to append children.
const AppendPosition = -1

// Backend is the capability of a retained widget tree.
type Backend interface {
	// CreateWidget creates a detached widget. The parent is a hint for
	// backends that need it for resource ownership; the widget does not
	// become visible until attached.
	CreateWidget(bp Blueprint, parent Handle) (Handle, error)
	// SetText replaces the text content of a text-bearing widget.
	SetText(h Handle, text string) error
	// SetProperty writes one property of a widget.
	SetProperty(h Handle, name Property, value any) error
	// AttachChildren inserts children into parent, starting at the given child
	// position, or at the end if pos is AppendPosition. Children that are
	// currently attached elsewhere are moved.
	AttachChildren(parent Handle, children []Handle, pos int) error
	// Detach removes a widget from its parent and destroys it together with
	// its descendants.
	Detach(h Handle) error
	// RequestRedraw asks the backend to repaint at the next opportunity.
	RequestRedraw()
}
