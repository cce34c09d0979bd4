package tk

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mattn/go-runewidth"
	"src.vbridge.sh/pkg/cli/term"
	"src.vbridge.sh/pkg/logutil"
	"src.vbridge.sh/pkg/retained"
	"src.vbridge.sh/pkg/ui"
)

var logger = logutil.GetLogger("[cli/tk] ")

// Errors returned by Tree.
var (
	ErrNoWidget     = errors.New("no such widget")
	ErrNotContainer = errors.New("widget cannot have children")
	ErrNotText      = errors.New("widget has no text")
	ErrBadProperty  = errors.New("bad property")
	ErrCycle        = errors.New("attaching would create a cycle")
	ErrRoot         = errors.New("the root cannot be moved or detached")
)

// Tree is a retained widget tree rendered onto the terminal. It implements
// retained.Backend and Widget.
//
// A Tree is not safe for concurrent use; it is meant to be owned by the UI
// loop.
type Tree struct {
	// OnRedraw, if not nil, is called by RequestRedraw.
	OnRedraw func()

	nodes   map[retained.Handle]*node
	next    retained.Handle
	root    retained.Handle
	focus   retained.Handle
	actions []retained.Action
	redraws int
	// Maps rendered lines to the button drawn on them, from the last Render.
	hits map[int]retained.Handle
}

type node struct {
	bp        retained.Blueprint
	text      string
	align     retained.Align
	marginTop int
	parent    retained.Handle
	children  []retained.Handle
}

var _ retained.Backend = (*Tree)(nil)

// NewTree creates a Tree with an empty root view.
func NewTree() *Tree {
	t := &Tree{nodes: make(map[retained.Handle]*node)}
	t.root = t.newNode(retained.View)
	return t
}

func (t *Tree) newNode(bp retained.Blueprint) retained.Handle {
	t.next++
	t.nodes[t.next] = &node{bp: bp}
	return t.next
}

// Root returns the handle of the root view.
func (t *Tree) Root() retained.Handle { return t.root }

// Len returns the number of live widgets, including the root and widgets
// that are created but not attached.
func (t *Tree) Len() int { return len(t.nodes) }

func (t *Tree) get(h retained.Handle) (*node, error) {
	n, ok := t.nodes[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoWidget, h)
	}
	return n, nil
}

// CreateWidget creates a detached widget.
func (t *Tree) CreateWidget(bp retained.Blueprint, parent retained.Handle) (retained.Handle, error) {
	if _, ok := t.nodes[parent]; parent != retained.NoHandle && !ok {
		return retained.NoHandle, fmt.Errorf("%w: parent %d", ErrNoWidget, parent)
	}
	return t.newNode(bp), nil
}

// SetText sets the text of a text-bearing widget.
func (t *Tree) SetText(h retained.Handle, text string) error {
	n, err := t.get(h)
	if err != nil {
		return err
	}
	if !n.bp.TextBearing() {
		return fmt.Errorf("%w: %d is a %v", ErrNotText, h, n.bp)
	}
	n.text = text
	return nil
}

// SetProperty sets retained.PropAlign (a retained.Align) or
// retained.PropMarginTop (a non-negative int).
func (t *Tree) SetProperty(h retained.Handle, name retained.Property, value any) error {
	n, err := t.get(h)
	if err != nil {
		return err
	}
	switch name {
	case retained.PropAlign:
		a, ok := value.(retained.Align)
		if !ok || a < retained.AlignStart || a > retained.AlignEnd {
			return fmt.Errorf("%w: align %v", ErrBadProperty, value)
		}
		n.align = a
	case retained.PropMarginTop:
		m, ok := value.(int)
		if !ok || m < 0 || m > retained.MaxLength {
			return fmt.Errorf("%w: margin-top %v", ErrBadProperty, value)
		}
		n.marginTop = m
	default:
		return fmt.Errorf("%w: unknown property %q", ErrBadProperty, name)
	}
	return nil
}

// AttachChildren inserts children into parent at pos, or at the end if pos is
// retained.AppendPosition or beyond the end.
func (t *Tree) AttachChildren(parent retained.Handle, children []retained.Handle, pos int) error {
	p, err := t.get(parent)
	if err != nil {
		return err
	}
	if !p.bp.Container() {
		return fmt.Errorf("%w: %d is a %v", ErrNotContainer, parent, p.bp)
	}
	for _, c := range children {
		if _, err := t.get(c); err != nil {
			return err
		}
		if c == t.root {
			return ErrRoot
		}
		for a := parent; a != retained.NoHandle; a = t.nodes[a].parent {
			if a == c {
				return fmt.Errorf("%w: %d into %d", ErrCycle, c, parent)
			}
		}
	}
	for _, c := range children {
		cn := t.nodes[c]
		if cn.parent == retained.NoHandle {
			continue
		}
		old := t.nodes[cn.parent]
		i := slices.Index(old.children, c)
		old.children = slices.Delete(old.children, i, i+1)
		if cn.parent == parent && i < pos {
			pos--
		}
		cn.parent = retained.NoHandle
	}
	if pos < 0 || pos > len(p.children) {
		pos = len(p.children)
	}
	p.children = slices.Insert(p.children, pos, children...)
	for _, c := range children {
		t.nodes[c].parent = parent
	}
	return nil
}

// Detach removes a widget from its parent and destroys its subtree.
func (t *Tree) Detach(h retained.Handle) error {
	n, err := t.get(h)
	if err != nil {
		return err
	}
	if h == t.root {
		return ErrRoot
	}
	if n.parent != retained.NoHandle {
		p := t.nodes[n.parent]
		i := slices.Index(p.children, h)
		p.children = slices.Delete(p.children, i, i+1)
	}
	t.destroy(h)
	return nil
}

func (t *Tree) destroy(h retained.Handle) {
	n := t.nodes[h]
	for _, c := range n.children {
		t.destroy(c)
	}
	delete(t.nodes, h)
	if t.focus == h {
		t.focus = retained.NoHandle
	}
}

// RequestRedraw records a redraw request and calls OnRedraw.
func (t *Tree) RequestRedraw() {
	t.redraws++
	if t.OnRedraw != nil {
		t.OnRedraw()
	}
}

// Redraws returns the number of times RequestRedraw has been called.
func (t *Tree) Redraws() int { return t.redraws }

// Blueprint returns the blueprint of a widget.
func (t *Tree) Blueprint(h retained.Handle) (retained.Blueprint, bool) {
	n, ok := t.nodes[h]
	if !ok {
		return 0, false
	}
	return n.bp, true
}

// Text returns the text of a widget.
func (t *Tree) Text(h retained.Handle) string {
	if n, ok := t.nodes[h]; ok {
		return n.text
	}
	return ""
}

// Property returns the value of a property of a widget.
func (t *Tree) Property(h retained.Handle, name retained.Property) any {
	n, ok := t.nodes[h]
	if !ok {
		return nil
	}
	switch name {
	case retained.PropAlign:
		return n.align
	case retained.PropMarginTop:
		return n.marginTop
	}
	return nil
}

// Parent returns the parent of a widget, or retained.NoHandle.
func (t *Tree) Parent(h retained.Handle) retained.Handle {
	if n, ok := t.nodes[h]; ok {
		return n.parent
	}
	return retained.NoHandle
}

// Children returns a copy of the children of a widget.
func (t *Tree) Children(h retained.Handle) []retained.Handle {
	if n, ok := t.nodes[h]; ok {
		return slices.Clone(n.children)
	}
	return nil
}

// Describe returns an indented outline of the tree, one widget per line. It
// is mostly useful in tests and for debugging.
func (t *Tree) Describe() string {
	var sb []byte
	var walk func(h retained.Handle, depth int)
	walk = func(h retained.Handle, depth int) {
		n := t.nodes[h]
		for i := 0; i < depth; i++ {
			sb = append(sb, "  "...)
		}
		sb = append(sb, n.bp.String()...)
		if n.bp.TextBearing() {
			sb = fmt.Appendf(sb, " %q", n.text)
		}
		sb = append(sb, '\n')
		for _, c := range n.children {
			walk(c, depth+1)
		}
	}
	walk(t.root, 0)
	return string(sb)
}

// FindButton returns the first attached button, in document order, whose text
// is the given string.
func (t *Tree) FindButton(text string) (retained.Handle, bool) {
	for _, h := range t.buttons() {
		if t.nodes[h].text == text {
			return h, true
		}
	}
	return retained.NoHandle, false
}

// Buttons in document order.
func (t *Tree) buttons() []retained.Handle {
	var hs []retained.Handle
	var walk func(h retained.Handle)
	walk = func(h retained.Handle) {
		n := t.nodes[h]
		if n.bp == retained.Button {
			hs = append(hs, h)
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)
	return hs
}

// Focus returns the focused button, or retained.NoHandle.
func (t *Tree) Focus() retained.Handle { return t.focus }

// Activate records a "click" action on a widget, as if the user activated it.
func (t *Tree) Activate(h retained.Handle) error {
	if _, err := t.get(h); err != nil {
		return err
	}
	t.actions = append(t.actions, retained.Action{Handle: h, Name: "click"})
	return nil
}

// TakeActions returns and clears the actions recorded since the last call.
func (t *Tree) TakeActions() []retained.Action {
	actions := t.actions
	t.actions = nil
	return actions
}

// Handle moves the focus among buttons with Tab, Shift-Tab, Up and Down, and
// activates the focused button with Enter or Space. A mouse press on a line
// showing a button activates it.
func (t *Tree) Handle(event term.Event) bool {
	switch event := event.(type) {
	case term.KeyEvent:
		switch ui.Key(event) {
		case ui.K(ui.Tab), ui.K(ui.Down):
			return t.moveFocus(1)
		case ui.K(ui.Tab, ui.Shift), ui.K(ui.Up):
			return t.moveFocus(-1)
		case ui.K(ui.Enter), ui.K(' '):
			if t.focus == retained.NoHandle {
				return false
			}
			t.Activate(t.focus)
			return true
		}
	case term.MouseEvent:
		if !event.Down {
			return false
		}
		if h, ok := t.hits[event.Line]; ok {
			t.focus = h
			t.Activate(h)
			return true
		}
	}
	return false
}

func (t *Tree) moveFocus(delta int) bool {
	buttons := t.buttons()
	if len(buttons) == 0 {
		return false
	}
	i := slices.Index(buttons, t.focus)
	switch {
	case i == -1 && delta > 0:
		i = 0
	case i == -1:
		i = len(buttons) - 1
	default:
		i = (i + delta + len(buttons)) % len(buttons)
	}
	t.focus = buttons[i]
	logger.Printf("focus moved to %d", t.focus)
	return true
}

// Render renders the tree from the root. Widgets are laid out vertically; the
// dot is placed on the first line of the focused button.
func (t *Tree) Render(width, height int) *term.Buffer {
	t.hits = make(map[int]retained.Handle)
	b := &term.Buffer{Width: width}
	t.render(t.root, b, height)
	if len(b.Lines) == 0 {
		b = term.NewBuffer(width)
	}
	b.TrimToLines(0, height)
	return b
}

// Renders a widget and its descendants, stopping once b has height lines.
func (t *Tree) render(h retained.Handle, b *term.Buffer, height int) {
	if len(b.Lines) >= height {
		return
	}
	n := t.nodes[h]
	for i := 0; i < n.marginTop && len(b.Lines) < height; i++ {
		b.Lines = append(b.Lines, []term.Cell{})
	}
	if n.bp.Container() {
		for _, c := range n.children {
			t.render(c, b, height)
		}
		return
	}
	if len(b.Lines) >= height {
		return
	}

	top := len(b.Lines)
	bb := term.NewBufferBuilder(b.Width)
	switch n.bp {
	case retained.Heading1:
		bb.Write(n.text, ui.Bold)
	case retained.Heading3:
		bb.Write(n.text, ui.Underlined)
	case retained.Button:
		var ts []ui.Styling
		if h == t.focus {
			ts = append(ts, ui.Inverse)
		}
		bb.Write("[ "+n.text+" ]", ts...)
	default:
		bb.Write(n.text)
	}
	wb := bb.Buffer()
	align(wb, n.align)
	if h == t.focus {
		b.Dot = term.Pos{Line: top}
	}
	b.Lines = append(b.Lines, wb.Lines...)
	if n.bp == retained.Button {
		for i := top; i < len(b.Lines); i++ {
			t.hits[i] = h
		}
	}
}

// Pads lines on the left to honor alignment.
func align(b *term.Buffer, a retained.Align) {
	if a == retained.AlignStart {
		return
	}
	for i, line := range b.Lines {
		free := b.Width - cellsWidth(line)
		if a == retained.AlignCenter {
			free /= 2
		}
		if free <= 0 {
			continue
		}
		padded := make([]term.Cell, 0, free+len(line))
		for j := 0; j < free; j++ {
			padded = append(padded, term.Cell{Text: " "})
		}
		b.Lines[i] = append(padded, line...)
	}
}

func cellsWidth(cs []term.Cell) int {
	w := 0
	for _, c := range cs {
		w += runewidth.StringWidth(c.Text)
	}
	return w
}
