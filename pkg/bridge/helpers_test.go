package bridge

import (
	"testing"

	"src.vbridge.sh/pkg/cli/tk"
	"src.vbridge.sh/pkg/vdom"
)

func el(tag string, children ...vdom.Node) *vdom.Element {
	return &vdom.Element{Tag: tag, Children: children}
}

func styled(tag, style string, children ...vdom.Node) *vdom.Element {
	return &vdom.Element{Tag: tag, Attrs: []vdom.Attr{{Name: "style", Value: style}}, Children: children}
}

func text(s string) *vdom.StaticText { return &vdom.StaticText{Text: s} }

func dyn(i int) *vdom.DynamicSlot { return &vdom.DynamicSlot{Index: i} }

func tmpl(name string, roots ...vdom.Node) vdom.Template {
	return vdom.Template{Name: name, Roots: roots}
}

type fixture struct {
	tree     *tk.Tree
	table    *Table
	bindings *Bindings
	registry *Registry
	machine  *Machine
}

func setup(templates ...vdom.Template) *fixture {
	tree := tk.NewTree()
	f := &fixture{
		tree:     tree,
		table:    NewTable(tree.Root()),
		bindings: NewBindings(),
		registry: NewRegistry(nil),
	}
	for _, t := range templates {
		f.registry.Register(t)
	}
	f.machine = NewMachine(tree, f.table, f.bindings, f.registry)
	return f
}

func (f *fixture) apply(t *testing.T, edits ...vdom.Instruction) {
	t.Helper()
	if err := f.machine.Apply(edits); err != nil {
		t.Fatalf("Apply: %v", err)
	}
}

func (f *fixture) lookup(t *testing.T, id vdom.ID) *NodeRecord {
	t.Helper()
	rec, err := f.table.LookupByID(id)
	if err != nil {
		t.Fatalf("LookupByID(%d): %v", id, err)
	}
	return rec
}

// A snapshot of all observable state.
type snapshot struct {
	describe string
	widgets  int
	records  int
	bindings []Binding
	render   string
}

func (f *fixture) snapshot() snapshot {
	return snapshot{
		describe: f.tree.Describe(),
		widgets:  f.tree.Len(),
		records:  f.table.Len(),
		bindings: f.bindings.All(),
		render:   f.tree.Render(40, 40).String(),
	}
}
