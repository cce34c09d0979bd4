package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"src.vbridge.sh/pkg/bridge"
	"src.vbridge.sh/pkg/cli/tk"
	"src.vbridge.sh/pkg/retained"
	"src.vbridge.sh/pkg/vdom"
)

// An engine with canned answers that records dispatched events.
type fakeEngine struct {
	initial    vdom.Mutations
	initialErr error
	answers    map[vdom.Event][]vdom.Mutations
	dispatched []vdom.Event
}

func (e *fakeEngine) InitialBatch(context.Context) (vdom.Mutations, error) {
	return e.initial, e.initialErr
}

func (e *fakeEngine) DispatchEvent(_ context.Context, ev vdom.Event) (vdom.Mutations, error) {
	e.dispatched = append(e.dispatched, ev)
	queue := e.answers[ev]
	if len(queue) == 0 {
		return vdom.Mutations{}, nil
	}
	e.answers[ev] = queue[1:]
	return queue[0], nil
}

var button = vdom.Template{Name: "b", Roots: []vdom.Node{
	&vdom.Element{Tag: "div", Children: []vdom.Node{
		&vdom.Element{Tag: "h1", Children: []vdom.Node{&vdom.DynamicSlot{}}},
		&vdom.Element{Tag: "button", Children: []vdom.Node{&vdom.StaticText{Text: "go"}}},
	}},
}}

func newEngine() *fakeEngine {
	return &fakeEngine{
		initial: vdom.Mutations{
			Templates: []vdom.Template{button},
			Edits: vdom.Edits{
				&vdom.LoadTemplate{Name: "b", Index: 0},
				&vdom.HydrateText{Path: vdom.Path{0}, Value: "0", ID: 2},
				&vdom.AssignID{Path: vdom.Path{1}, ID: 3},
				&vdom.NewEventListener{Name: "click", ID: 3},
				&vdom.AppendChildren{ID: vdom.RootID, M: 1},
			},
		},
		answers: make(map[vdom.Event][]vdom.Mutations),
	}
}

func live(t *testing.T, e Engine, opts ...Option) (*Driver, *tk.Tree) {
	t.Helper()
	tree := tk.NewTree()
	d := New(e, tree, tree.Root(), opts...)
	if err := d.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	return d, tree
}

func click(t *testing.T, tree *tk.Tree, text string) []retained.Action {
	t.Helper()
	h, ok := tree.FindButton(text)
	if !ok {
		t.Fatalf("no button %q", text)
	}
	tree.Activate(h)
	return tree.TakeActions()
}

func TestRebuild(t *testing.T) {
	d, tree := live(t, newEngine())
	if d.State() != Live {
		t.Errorf("state is %v after Rebuild", d.State())
	}
	want := "view\n  view\n    heading1 \"0\"\n    button \"go\"\n"
	if got := tree.Describe(); got != want {
		t.Errorf("tree is\n%s\nwant\n%s", got, want)
	}
	if tree.Redraws() != 1 {
		t.Errorf("got %d redraws, want 1", tree.Redraws())
	}
}

func TestRebuild_ResetsEverything(t *testing.T) {
	e := newEngine()
	d, tree := live(t, e)
	if err := d.Rebuild(context.Background()); err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}
	// The ids of the first build would collide if anything survived.
	want := "view\n  view\n    heading1 \"0\"\n    button \"go\"\n"
	if got := tree.Describe(); got != want {
		t.Errorf("tree is\n%s\nwant\n%s", got, want)
	}
	if d.Bindings().Len() != 1 || tree.Len() != 4 || d.Table().Len() != 4 {
		t.Errorf("%d bindings, %d widgets and %d records after rebuild",
			d.Bindings().Len(), tree.Len(), d.Table().Len())
	}
}

func TestRebuild_Failure(t *testing.T) {
	e := newEngine()
	e.initial.Edits = append(e.initial.Edits, &vdom.SetText{ID: 99, Value: "x"})
	tree := tk.NewTree()
	d := New(e, tree, tree.Root())
	if err := d.Rebuild(context.Background()); !errors.Is(err, bridge.ErrUnboundID) {
		t.Errorf("got %v, want ErrUnboundID", err)
	}
	if d.State() != Uninitialized {
		t.Errorf("state is %v after a failed build", d.State())
	}
	if err := d.HandleActions(context.Background(), nil); err != ErrNotLive {
		t.Errorf("HandleActions got %v, want ErrNotLive", err)
	}

	e.initialErr = errors.New("engine down")
	if err := d.Rebuild(context.Background()); err != e.initialErr {
		t.Errorf("got %v, want the engine error", err)
	}
}

func TestHandleActions_DispatchesOnce(t *testing.T) {
	e := newEngine()
	d, tree := live(t, e)
	if err := d.HandleActions(context.Background(), click(t, tree, "go")); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]vdom.Event{{Name: "click", ID: 3}}, e.dispatched); diff != "" {
		t.Errorf("dispatched (-want +got):\n%s", diff)
	}
}

func TestHandleActions_EmptyPatchDoesNotRedraw(t *testing.T) {
	d, tree := live(t, newEngine())
	before := tree.Redraws()
	if err := d.HandleActions(context.Background(), click(t, tree, "go")); err != nil {
		t.Fatal(err)
	}
	if tree.Redraws() != before {
		t.Errorf("empty patch caused %d redraws", tree.Redraws()-before)
	}
}

func TestHandleActions_AppliesPatch(t *testing.T) {
	e := newEngine()
	ev := vdom.Event{Name: "click", ID: 3}
	e.answers[ev] = []vdom.Mutations{
		{Edits: vdom.Edits{&vdom.SetText{ID: 2, Value: "1"}}},
		{Edits: vdom.Edits{&vdom.SetText{ID: 2, Value: "2"}}},
	}
	d, tree := live(t, e)
	before := tree.Redraws()
	for i := 0; i < 3; i++ {
		if err := d.HandleActions(context.Background(), click(t, tree, "go")); err != nil {
			t.Fatal(err)
		}
	}
	if got := tree.Describe(); got != "view\n  view\n    heading1 \"2\"\n    button \"go\"\n" {
		t.Errorf("tree is\n%s", got)
	}
	if tree.Redraws()-before != 2 {
		t.Errorf("got %d redraws for two patches", tree.Redraws()-before)
	}
}

func TestHandleActions_UnboundAndFailing(t *testing.T) {
	e := newEngine()
	ev := vdom.Event{Name: "click", ID: 3}
	e.answers[ev] = []vdom.Mutations{
		{Edits: vdom.Edits{&vdom.Remove{ID: 42}}},
	}
	var outcomes []Outcome
	d, tree := live(t, e, WithObserver(func(o Outcome) { outcomes = append(outcomes, o) }))

	h, _ := tree.FindButton("go")
	actions := []retained.Action{
		{Handle: h, Name: "mouseover"},
		{Handle: tree.Root(), Name: "click"},
		{Handle: h, Name: "click"},
	}
	err := d.HandleActions(context.Background(), actions)
	if !errors.Is(err, bridge.ErrUnboundID) {
		t.Errorf("got %v, want ErrUnboundID", err)
	}
	if d.State() != Live {
		t.Errorf("driver left Live after a failed patch")
	}
	if len(e.dispatched) != 1 {
		t.Errorf("dispatched %v, want only the bound click", e.dispatched)
	}
	if len(outcomes) != 2 || outcomes[0].Event != nil || outcomes[1].Event == nil || outcomes[1].Err == nil {
		t.Errorf("got outcomes %+v", outcomes)
	}
}

func TestNew_Tags(t *testing.T) {
	e := newEngine()
	e.initial.Templates[0].Roots = []vdom.Node{&vdom.Element{Tag: "section"}}
	e.initial.Edits = vdom.Edits{
		&vdom.LoadTemplate{Name: "b", Index: 0},
		&vdom.AppendChildren{ID: vdom.RootID, M: 1},
	}
	_, tree := live(t, e, WithTags(map[string]retained.Blueprint{"section": retained.View}))
	if got := tree.Describe(); got != "view\n  view\n" {
		t.Errorf("tree is %q", got)
	}
}
