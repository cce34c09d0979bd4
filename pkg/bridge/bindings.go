package bridge

import (
	"sort"

	"src.vbridge.sh/pkg/retained"
	"src.vbridge.sh/pkg/vdom"
)

// Binding routes a named event on a native widget to a virtual node.
type Binding struct {
	Event  string
	Handle retained.Handle
	ID     vdom.ID
}

// Bindings is the event binding registry. A widget has at most one binding
// per event name.
type Bindings struct {
	byHandle map[retained.Handle]map[string]Binding
}

// NewBindings creates an empty registry.
func NewBindings() *Bindings {
	return &Bindings{byHandle: make(map[retained.Handle]map[string]Binding)}
}

// Register adds a binding, replacing any binding for the same event on the
// same widget.
func (bs *Bindings) Register(b Binding) {
	m, ok := bs.byHandle[b.Handle]
	if !ok {
		m = make(map[string]Binding)
		bs.byHandle[b.Handle] = m
	}
	m[b.Event] = b
}

// Unregister removes the binding for an event on a widget, and returns whether
// there was one.
func (bs *Bindings) Unregister(event string, h retained.Handle) bool {
	m, ok := bs.byHandle[h]
	if !ok {
		return false
	}
	if _, ok := m[event]; !ok {
		return false
	}
	delete(m, event)
	if len(m) == 0 {
		delete(bs.byHandle, h)
	}
	return true
}

// PurgeHandle removes all bindings of a widget and returns how many there
// were.
func (bs *Bindings) PurgeHandle(h retained.Handle) int {
	n := len(bs.byHandle[h])
	delete(bs.byHandle, h)
	return n
}

// BindingsFor returns the bindings of a widget, sorted by event name.
func (bs *Bindings) BindingsFor(h retained.Handle) []Binding {
	m := bs.byHandle[h]
	if len(m) == 0 {
		return nil
	}
	list := make([]Binding, 0, len(m))
	for _, b := range m {
		list = append(list, b)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Event < list[j].Event })
	return list
}

// Lookup finds the binding for an event on a widget.
func (bs *Bindings) Lookup(event string, h retained.Handle) (Binding, bool) {
	b, ok := bs.byHandle[h][event]
	return b, ok
}

// All returns all bindings, sorted by handle and then event name.
func (bs *Bindings) All() []Binding {
	var list []Binding
	for _, m := range bs.byHandle {
		for _, b := range m {
			list = append(list, b)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Handle != list[j].Handle {
			return list[i].Handle < list[j].Handle
		}
		return list[i].Event < list[j].Event
	})
	return list
}

// Len returns the number of bindings.
func (bs *Bindings) Len() int {
	n := 0
	for _, m := range bs.byHandle {
		n += len(m)
	}
	return n
}

// Reset removes all bindings.
func (bs *Bindings) Reset() {
	clear(bs.byHandle)
}
