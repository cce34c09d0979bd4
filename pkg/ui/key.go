package ui

import "fmt"

// Key represents a single keyboard input, typically assembled from a escape
// sequence.
type Key struct {
	Rune rune
	Mod  Mod
}

// K constructs a new Key.
func K(r rune, mods ...Mod) Key {
	var mod Mod
	for _, m := range mods {
		mod |= m
	}
	return Key{r, mod}
}

// Mod represents a modifier key.
type Mod byte

// Values for Mod.
const (
	// Shift is the shift modifier. It is only applied to special keys (e.g.
	// Shift-Tab). For instance 'A' and '@' which are typically entered with the
	// shift key pressed, are not considered to be shift-modified.
	Shift Mod = 1 << iota
	// Alt is the alt modifier, traditionally known as the meta modifier.
	Alt
	Ctrl
)

// Special negative runes to represent function keys, used in the Rune field
// of the Key struct.
const (
	Up rune = -iota - 1
	Down
	Right
	Left
	Home
	End
	Insert
	Delete
	PageUp
	PageDown
)

// Keys that are represented by their control character.
const (
	Tab       = '\t'
	Enter     = '\n'
	Backspace = 0x7f
)

var keyNames = map[rune]string{
	Up: "Up", Down: "Down", Right: "Right", Left: "Left",
	Home: "Home", End: "End", Insert: "Insert", Delete: "Delete",
	PageUp: "PageUp", PageDown: "PageDown",
	Tab: "Tab", Enter: "Enter", Backspace: "Backspace", ' ': "Space",
}

func (k Key) String() string {
	var s string
	if k.Mod&Ctrl != 0 {
		s += "Ctrl-"
	}
	if k.Mod&Alt != 0 {
		s += "Alt-"
	}
	if k.Mod&Shift != 0 {
		s += "Shift-"
	}
	if name, ok := keyNames[k.Rune]; ok {
		return s + name
	}
	if k.Rune < 0 {
		return s + fmt.Sprintf("(bad function key %d)", k.Rune)
	}
	return s + string(k.Rune)
}
