package journal

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

const timeFormat = "2006-01-02 15:04:05"

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

// WriteSessions writes a table of sessions.
func WriteSessions(w io.Writer, sessions []Session) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Session", "Started", "Batches", "Failed"})
	for _, s := range sessions {
		started := "-"
		if !s.Started.IsZero() {
			started = s.Started.Local().Format(timeFormat)
		}
		t.AppendRow(table.Row{s.ID, started, s.Entries, s.Failed})
	}
	t.Render()
}

// WriteEntries writes a table of entries. With verbose set, each instruction is
// listed; otherwise only their number is.
func WriteEntries(w io.Writer, entries []Entry, verbose bool) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Time", "Source", "Edits", "Error"})
	for _, e := range entries {
		source := e.Kind
		if e.Kind == KindEvent {
			source = fmt.Sprintf("%s@%d", e.Event, e.ID)
		}
		if len(e.Templates) > 0 {
			source += " +" + strings.Join(e.Templates, ",")
		}
		edits := fmt.Sprint(len(e.Edits))
		if verbose && len(e.Edits) > 0 {
			lines := make([]string, len(e.Edits))
			for i, ins := range e.Edits {
				lines[i] = fmt.Sprint(ins)
			}
			edits = strings.Join(lines, "\n")
		}
		t.AppendRow(table.Row{e.Seq, e.Time.Local().Format(time.TimeOnly), source, edits, e.Error})
	}
	t.Render()
}
