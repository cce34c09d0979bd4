package script

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"src.vbridge.sh/pkg/bridge"
	"src.vbridge.sh/pkg/cli/tk"
	"src.vbridge.sh/pkg/reconcile"
	"src.vbridge.sh/pkg/vdom"
)

var bg = context.Background()

func TestLoad(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "counter.yaml"))
	require.NoError(t, err)
	assert.Len(t, p.Templates, 2)
	assert.Len(t, p.Initial, 8)
	require.Len(t, p.Handlers, 2)
	assert.Equal(t, "click", p.Handlers[1].Event)
	assert.True(t, p.Handlers[1].Cycle)
	assert.Equal(t, &vdom.LoadTemplate{Name: "counter", Index: 0}, p.Initial[0])
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_Errors(t *testing.T) {
	for name, src := range map[string]string{
		"duplicate template": "templates: [{name: a, roots: []}, {name: a, roots: []}]",
		"duplicate handler":  "handlers: [{event: click, id: 1}, {event: click, id: 1}]",
		"handler sans event": "handlers: [{id: 1}]",
		"bad instruction":    "initial: [{type: Frobnicate}]",
		"missing field":      "initial: [{type: SetText, id: 1}]",
		"bad node":           "templates: [{name: a, roots: [{text: x, dynamic: 0}]}]",
		"not yaml":           "initial: [",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			assert.Error(t, err)
		})
	}
}

func TestEngine_Sequencing(t *testing.T) {
	p, err := Parse([]byte(`
handlers:
  - event: click
    id: 1
    batches:
      - [{type: SetText, id: 1, value: a}]
      - [{type: SetText, id: 1, value: b}]
  - event: click
    id: 2
    cycle: true
    batches:
      - [{type: Remove, id: 2}]
`))
	require.NoError(t, err)
	e := New(p)

	once := vdom.Event{Name: "click", ID: 1}
	cycling := vdom.Event{Name: "click", ID: 2}
	next := func(ev vdom.Event) vdom.Edits {
		m, err := e.DispatchEvent(bg, ev)
		require.NoError(t, err)
		return m.Edits
	}
	assert.Equal(t, vdom.Edits{&vdom.SetText{ID: 1, Value: "a"}}, next(once))
	assert.Equal(t, vdom.Edits{&vdom.SetText{ID: 1, Value: "b"}}, next(once))
	assert.Empty(t, next(once))
	for i := 0; i < 3; i++ {
		assert.Equal(t, vdom.Edits{&vdom.Remove{ID: 2}}, next(cycling))
	}
	assert.Empty(t, next(vdom.Event{Name: "keydown", ID: 1}))

	// The initial batch starts over.
	_, err = e.InitialBatch(bg)
	require.NoError(t, err)
	assert.Equal(t, vdom.Edits{&vdom.SetText{ID: 1, Value: "a"}}, next(once))
}

func TestEngine_Canceled(t *testing.T) {
	e := New(&Program{})
	ctx, cancel := context.WithCancel(bg)
	cancel()
	_, err := e.InitialBatch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = e.DispatchEvent(ctx, vdom.Event{Name: "click"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_DrivesTree(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "counter.yaml"))
	require.NoError(t, err)
	tree := tk.NewTree()
	d := reconcile.New(New(p), tree, tree.Root())
	require.NoError(t, d.Rebuild(bg))

	click := func(label string) {
		h, ok := tree.FindButton(label)
		require.True(t, ok, "no button %q", label)
		require.NoError(t, tree.Activate(h))
		require.NoError(t, d.HandleActions(bg, tree.TakeActions()))
	}
	count := func() string {
		rec, err := d.Table().LookupByID(1)
		require.NoError(t, err)
		return tree.Text(rec.Handle)
	}

	assert.Equal(t, "Count: 0", count())
	click("+")
	click("+")
	assert.Equal(t, "Count: 2", count())

	click("toggle footer")
	assert.Contains(t, tree.Describe(), `label "footer"`)
	click("toggle footer")
	assert.NotContains(t, tree.Describe(), `label "footer"`)
	_, err = d.Table().LookupByID(5)
	assert.ErrorIs(t, err, bridge.ErrUnboundID)
	click("toggle footer")
	assert.Contains(t, tree.Describe(), `label "footer"`)
}
