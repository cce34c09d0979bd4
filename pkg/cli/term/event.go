package term

import "src.vbridge.sh/pkg/ui"

// Event represents an event that can be read from the terminal.
type Event interface {
	isEvent()
}

// KeyEvent represents a key press.
type KeyEvent ui.Key

func (KeyEvent) isEvent() {}

// K constructs a new KeyEvent.
func K(r rune, mods ...ui.Mod) KeyEvent {
	return KeyEvent(ui.K(r, mods...))
}

// MouseEvent represents a mouse event (either pressing or releasing).
type MouseEvent struct {
	Pos
	Down bool
	// Number of the Button, 0-based. -1 for unknown.
	Button int
	Mod    ui.Mod
}

func (MouseEvent) isEvent() {}

// NonfatalErrorEvent represents an error that can be gradually recovered.
type NonfatalErrorEvent struct{ Err error }

func (NonfatalErrorEvent) isEvent() {}

// FatalErrorEvent represents an error that affects the Reader's ability to
// continue reading events. After sending a FatalError, the Reader makes no
// more attempts at continuing to read events and wait for Stop to be called.
type FatalErrorEvent struct{ Err error }

func (FatalErrorEvent) isEvent() {}
