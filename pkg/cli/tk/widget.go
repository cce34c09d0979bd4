// Package tk is the toolkit for the terminal UI: a retained widget tree that
// renders into term.Buffer values and turns terminal events into actions.
package tk

import (
	"src.vbridge.sh/pkg/cli/term"
	"src.vbridge.sh/pkg/ui"
)

// Renderer wraps the Render method.
type Renderer interface {
	// Render renders onto a region of bound width and height.
	Render(width, height int) *term.Buffer
}

// Handler wraps the Handle method.
type Handler interface {
	// Try to handle a terminal event and returns whether the event has been
	// handled.
	Handle(event term.Event) bool
}

// Widget is the basic component of UI; it knows how to handle events and how
// to render itself.
type Widget interface {
	Renderer
	Handler
}

// Label is a Renderer that writes out a text.
type Label struct {
	Content ui.Text
}

// Render shows the content. If the given box is too small, the text is cropped.
func (l Label) Render(width, height int) *term.Buffer {
	b := term.NewBufferBuilder(width).WriteStyled(l.Content).Buffer()
	b.TrimToLines(0, height)
	return b
}

// Handle always returns false.
func (l Label) Handle(event term.Event) bool {
	return false
}
