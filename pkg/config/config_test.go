package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"src.vbridge.sh/pkg/env"
	"src.vbridge.sh/pkg/must"
	"src.vbridge.sh/pkg/retained"
	"src.vbridge.sh/pkg/tt"
)

func TestParse(t *testing.T) {
	c, err := Parse([]byte(`
log: /tmp/vbridge.log
journal: /tmp/journal.db
watch: false
debounce: 50ms
tags:
  section: view
  H2: heading1
width: 80
`))
	if err != nil {
		t.Fatal(err)
	}
	if c.Log != "/tmp/vbridge.log" || c.Journal != "/tmp/journal.db" {
		t.Errorf("got %+v", c)
	}
	if c.WatchEnabled() || !c.MouseEnabled() {
		t.Errorf("WatchEnabled() = %v, MouseEnabled() = %v", c.WatchEnabled(), c.MouseEnabled())
	}
	if c.DebounceInterval() != 50*time.Millisecond {
		t.Errorf("DebounceInterval() = %v", c.DebounceInterval())
	}
	tags, _ := c.Blueprints()
	want := map[string]retained.Blueprint{"section": retained.View, "H2": retained.Heading1}
	if !tt.Equal(tags, want) {
		t.Errorf("Blueprints() = %v, want %v", tags, want)
	}
	tt.Test(t, tt.Fn("Size", c.Size), tt.Args().Rets(80, DefaultHeight))
}

func TestParse_Empty(t *testing.T) {
	c, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !c.WatchEnabled() || c.DebounceInterval() != DefaultDebounce {
		t.Errorf("defaults not applied: %+v", c)
	}
}

func TestParse_Errors(t *testing.T) {
	for _, src := range []string{
		"colour: red",
		"tags: {p: paragraph}",
		"width: -1",
		"width: [",
	} {
		if _, err := Parse([]byte(src)); err == nil {
			t.Errorf("Parse(%q) succeeded", src)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	must.WriteFile(path, "height: 7\n")

	c, err := Load(path)
	if err != nil || c.Height != 7 {
		t.Errorf("Load got %+v, %v", c, err)
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); !os.IsNotExist(err) {
		t.Errorf("explicit missing file: got %v", err)
	}

	t.Setenv(env.VBRIDGE_CONFIG, filepath.Join(dir, "missing.yaml"))
	c, err = Load("")
	if err != nil || c.Height != 0 {
		t.Errorf("missing default file: got %+v, %v", c, err)
	}
	t.Setenv(env.VBRIDGE_CONFIG, path)
	if c, err := Load(""); err != nil || c.Height != 7 {
		t.Errorf("default file from env: got %+v, %v", c, err)
	}
}

func TestJournalPath(t *testing.T) {
	t.Setenv(env.XDG_STATE_HOME, "/state")
	t.Setenv(env.HOME, "/home/u")
	tt.Test(t, tt.Fn("DefaultJournalPath", DefaultJournalPath),
		tt.Args().Rets(filepath.Join("/state", "vbridge", "journal.db")))

	t.Setenv(env.XDG_STATE_HOME, "")
	tt.Test(t, tt.Fn("DefaultJournalPath", DefaultJournalPath),
		tt.Args().Rets(filepath.Join("/home/u", ".local", "state", "vbridge", "journal.db")))

	c := &Config{Journal: "j.db"}
	if got := c.JournalPath(); got != "j.db" {
		t.Errorf("JournalPath() = %q", got)
	}
}
