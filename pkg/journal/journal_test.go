package journal

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"src.vbridge.sh/pkg/reconcile"
	"src.vbridge.sh/pkg/vdom"
)

func open(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestAppendAndEntries(t *testing.T) {
	j := open(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return now }

	s, err := j.NewSession()
	require.NoError(t, err)

	edits := vdom.Edits{
		&vdom.LoadTemplate{Name: "t", Index: 0},
		&vdom.AppendChildren{ID: vdom.RootID, M: 1},
	}
	seq, err := j.Append(s, Entry{Kind: KindInitial, Templates: []string{"t"}, Edits: edits})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq)
	seq, err = j.Append(s, Entry{Kind: KindEvent, Event: "click", ID: 3, Error: "boom"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), seq)

	entries, err := j.Entries(s)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(1), entries[0].Seq)
	assert.True(t, now.Equal(entries[0].Time))
	assert.Equal(t, edits, entries[0].Edits)
	assert.Equal(t, []string{"t"}, entries[0].Templates)
	assert.Equal(t, "click", entries[1].Event)
	assert.Equal(t, vdom.ID(3), entries[1].ID)
	assert.Equal(t, "boom", entries[1].Error)
}

func TestUnknownSession(t *testing.T) {
	j := open(t)
	_, err := j.Append("nope", Entry{})
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = j.Entries("nope")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionsAndFind(t *testing.T) {
	j := open(t)
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time { clock = clock.Add(time.Minute); return clock }

	empty, err := j.NewSession()
	require.NoError(t, err)
	second, _ := j.NewSession()
	first, _ := j.NewSession()
	j.Append(first, Entry{Kind: KindInitial})
	j.Append(second, Entry{Kind: KindInitial})
	j.Append(second, Entry{Kind: KindEvent, Error: "x"})

	sessions, err := j.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, []string{first, second, empty},
		[]string{sessions[0].ID, sessions[1].ID, sessions[2].ID})
	assert.Equal(t, 2, sessions[1].Entries)
	assert.Equal(t, 1, sessions[1].Failed)

	found, err := j.Find(second[:8])
	if err != nil {
		// Random UUIDs sharing 8 leading characters are possible but rare.
		assert.ErrorIs(t, err, ErrAmbiguousSession)
	} else {
		assert.Equal(t, second, found)
	}
	found, err = j.Find(second)
	require.NoError(t, err)
	assert.Equal(t, second, found)
	_, err = j.Find("zzz")
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = j.Find("")
	assert.ErrorIs(t, err, ErrAmbiguousSession)
}

func TestObserver(t *testing.T) {
	j := open(t)
	s, _ := j.NewSession()
	observe := j.Observer(s)

	observe(reconcile.Outcome{Mutations: vdom.Mutations{
		Templates: []vdom.Template{{Name: "counter"}},
		Edits:     vdom.Edits{&vdom.PushRoot{ID: 1}},
	}})
	observe(reconcile.Outcome{
		Event: &vdom.Event{Name: "click", ID: 2},
		Err:   errors.New("edit 0 Remove(9): unbound id 9"),
	})

	entries, err := j.Entries(s)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, KindInitial, entries[0].Kind)
	assert.Equal(t, []string{"counter"}, entries[0].Templates)
	assert.Equal(t, KindEvent, entries[1].Kind)
	assert.Equal(t, "edit 0 Remove(9): unbound id 9", entries[1].Error)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	s, _ := j.NewSession()
	j.Append(s, Entry{Kind: KindInitial})
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()
	entries, err := j.Entries(s)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFormat(t *testing.T) {
	var buf bytes.Buffer
	WriteSessions(&buf, []Session{{ID: "abc", Entries: 2, Failed: 1}})
	assert.Contains(t, buf.String(), "abc")
	assert.Contains(t, buf.String(), "Batches")

	buf.Reset()
	WriteEntries(&buf, []Entry{
		{Seq: 1, Kind: KindInitial, Templates: []string{"t"},
			Edits: vdom.Edits{&vdom.PushRoot{ID: 1}}},
		{Seq: 2, Kind: KindEvent, Event: "click", ID: 3, Error: "boom"},
	}, true)
	out := buf.String()
	for _, want := range []string{"initial +t", "PushRoot(1)", "click@3", "boom"} {
		assert.Contains(t, out, want)
	}
}
