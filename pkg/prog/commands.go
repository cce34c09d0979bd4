package prog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"src.vbridge.sh/pkg/bridge"
	"src.vbridge.sh/pkg/buildinfo"
	"src.vbridge.sh/pkg/cli/tk"
	"src.vbridge.sh/pkg/engine/rpcengine"
	"src.vbridge.sh/pkg/engine/script"
	"src.vbridge.sh/pkg/journal"
	"src.vbridge.sh/pkg/logutil"
	"src.vbridge.sh/pkg/reconcile"
	"src.vbridge.sh/pkg/sys"
	"src.vbridge.sh/pkg/termapp"
	"src.vbridge.sh/pkg/vdom"
	"src.vbridge.sh/pkg/watch"
)

func loadScript(path string) (*script.Engine, error) {
	p, err := script.Load(path)
	if err != nil {
		return nil, err
	}
	return script.New(p), nil
}

// Creates a driver for a tree, recording to a journal if journalPath or the
// configuration names one. The returned function closes the journal.
func (p *program) newDriver(e reconcile.Engine, tree *tk.Tree, journalPath string) (*reconcile.Driver, func(), error) {
	tags, err := p.cfg.Blueprints()
	if err != nil {
		return nil, nil, err
	}
	opts := []reconcile.Option{reconcile.WithTags(tags)}
	cleanup := func() {}

	if journalPath == "" {
		journalPath = p.cfg.Journal
	}
	if journalPath != "" {
		if err := os.MkdirAll(filepath.Dir(journalPath), 0700); err != nil {
			return nil, nil, err
		}
		j, err := journal.Open(journalPath)
		if err != nil {
			return nil, nil, err
		}
		session, err := j.NewSession()
		if err != nil {
			j.Close()
			return nil, nil, err
		}
		logutil.Log(logger, "recording", logutil.Fields{"journal": journalPath, "session": session})
		opts = append(opts, reconcile.WithObserver(j.Observer(session)))
		cleanup = func() { j.Close() }
	}
	return reconcile.New(e, tree, tree.Root(), opts...), cleanup, nil
}

func (p *program) runCommand() *cobra.Command {
	var (
		engineCmd, journalPath string
		noWatch, noMouse       bool
	)
	cmd := &cobra.Command{
		Use:   "run program.yaml | run --engine-cmd command [args...]",
		Short: "Run a program in the terminal",
		Long: "Run a program in the terminal. The program is either a script file," +
			" reloaded when it changes, or an engine command speaking JSON-RPC on" +
			" its standard input and output.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !sys.IsATTY(p.fds[0].Fd()) || !sys.IsATTY(p.fds[1].Fd()) {
				return errors.New("run needs a terminal; use render for headless output")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			var (
				engine reconcile.Engine
				load   func(context.Context) (reconcile.Engine, error)
				reload <-chan struct{}
				title  string
			)
			if engineCmd != "" {
				c, err := rpcengine.Start(ctx, engineCmd, args...)
				if err != nil {
					return err
				}
				defer c.Close()
				engine, title = c, filepath.Base(engineCmd)
			} else {
				if len(args) != 1 {
					return BadUsage("expected a program file or --engine-cmd")
				}
				path := args[0]
				e, err := loadScript(path)
				if err != nil {
					return err
				}
				engine, title = e, filepath.Base(path)
				load = func(context.Context) (reconcile.Engine, error) { return loadScript(path) }
				if !noWatch && p.cfg.WatchEnabled() {
					ch, err := watch.File(ctx, path, p.cfg.DebounceInterval())
					if err != nil {
						return err
					}
					reload = ch
				}
			}

			tree := tk.NewTree()
			driver, closeJournal, err := p.newDriver(engine, tree, journalPath)
			if err != nil {
				return err
			}
			defer closeJournal()

			return termapp.Run(ctx, termapp.Spec{
				In: p.fds[0], Out: p.fds[1], Mouse: !noMouse && p.cfg.MouseEnabled(),
				Tree: tree, Driver: driver,
				Reload: reload, Load: load, Title: title,
			})
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&engineCmd, "engine-cmd", "", "run this command as the engine; the arguments are passed to it")
	fs.StringVar(&journalPath, "journal", "", "record batches to this journal database")
	fs.BoolVar(&noWatch, "no-watch", false, "don't reload the program when it changes")
	fs.BoolVar(&noMouse, "no-mouse", false, "don't enable mouse reporting")
	return cmd
}

func (p *program) renderCommand() *cobra.Command {
	var (
		clicks        []string
		width, height int
		styled        bool
		journalPath   string
	)
	cmd := &cobra.Command{
		Use:   "render program.yaml",
		Short: "Build a program headlessly and print the resulting screen",
		Args:  exactArgs(1, "a program file"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := loadScript(args[0])
			if err != nil {
				return err
			}
			tree := tk.NewTree()
			driver, closeJournal, err := p.newDriver(e, tree, journalPath)
			if err != nil {
				return err
			}
			defer closeJournal()

			if err := driver.Rebuild(ctx); err != nil {
				return err
			}
			for _, text := range clicks {
				h, ok := tree.FindButton(text)
				if !ok {
					return fmt.Errorf("no button %q", text)
				}
				tree.Activate(h)
				if err := driver.HandleActions(ctx, tree.TakeActions()); err != nil {
					return err
				}
			}

			w, h := p.cfg.Size()
			if width > 0 {
				w = width
			}
			if height > 0 {
				h = height
			}
			buf := tree.Render(w, h)
			if styled {
				fmt.Fprint(cmd.OutOrStdout(), buf.TTYString())
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), buf.String())
			}
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringArrayVar(&clicks, "click", nil, "click the button with this text; may be repeated")
	fs.IntVar(&width, "width", 0, "screen width")
	fs.IntVar(&height, "height", 0, "screen height")
	fs.BoolVar(&styled, "styled", false, "show styles and the screen border")
	fs.StringVar(&journalPath, "journal", "", "record batches to this journal database")
	return cmd
}

func (p *program) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check program.yaml",
		Short: "Apply every batch of a program and report the ones that fail",
		Long: "Apply the initial batch of a program, then for each handler rebuild" +
			" the UI and apply the handler's batches in order.",
		Args: exactArgs(1, "a program file"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			prog, err := script.Load(args[0])
			if err != nil {
				return err
			}
			tree := tk.NewTree()
			driver, cleanup, err := p.newDriver(script.New(prog), tree, "")
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"Batch", "Edits", "Result"})
			failed := 0
			result := func(err error) string {
				if err != nil {
					failed++
					return err.Error()
				}
				return "ok"
			}

			err = driver.Rebuild(ctx)
			t.AppendRow(table.Row{"initial", len(prog.Initial), result(err)})
			var unheard []vdom.Event
			if err == nil {
				for _, h := range prog.Handlers {
					ev := vdom.Event{Name: h.Event, ID: h.ID}
					if err := driver.Rebuild(ctx); err != nil {
						t.AppendRow(table.Row{ev.String(), "-", result(err)})
						continue
					}
					if !listening(driver.Bindings(), ev) {
						unheard = append(unheard, ev)
					}
					for i, batch := range h.Batches {
						err := driver.Dispatch(ctx, ev)
						t.AppendRow(table.Row{fmt.Sprintf("%s #%d", ev, i+1), len(batch), result(err)})
						if err != nil {
							break
						}
					}
				}
			}
			t.Render()

			for _, ev := range unheard {
				fmt.Fprintf(out, "note: nothing listens for %s after the initial batch\n", ev)
			}
			if failed > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d batches failed\n", failed)
				return Exit(1)
			}
			return nil
		},
	}
}

func listening(bs *bridge.Bindings, ev vdom.Event) bool {
	for _, b := range bs.All() {
		if b.Event == ev.Name && b.ID == ev.ID {
			return true
		}
	}
	return false
}

func (p *program) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve program.yaml",
		Short: "Serve a program as an engine over standard input and output",
		Args:  exactArgs(1, "a program file"),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadScript(args[0])
			if err != nil {
				return err
			}
			return rpcengine.ServeStdio(cmd.Context(), p.fds[0], p.fds[1], e)
		},
	}
}

func (p *program) journalCommand() *cobra.Command {
	var path string
	open := func() (*journal.Journal, error) {
		if path == "" {
			path = p.cfg.JournalPath()
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("no journal: %w", err)
		}
		return journal.Open(path)
	}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect recorded sessions",
	}
	cmd.PersistentFlags().StringVar(&path, "journal", "", "path to the journal database")

	list := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		Args:  exactArgs(0, "no arguments"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			j, err := open()
			if err != nil {
				return err
			}
			defer j.Close()
			sessions, err := j.Sessions()
			if err != nil {
				return err
			}
			journal.WriteSessions(cmd.OutOrStdout(), sessions)
			return nil
		},
	}

	var verbose bool
	show := &cobra.Command{
		Use:   "show session",
		Short: "Show the batches of a session, given a prefix of its ID",
		Args:  exactArgs(1, "a session ID"),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open()
			if err != nil {
				return err
			}
			defer j.Close()
			id, err := j.Find(args[0])
			if err != nil {
				return err
			}
			entries, err := j.Entries(id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session", id)
			journal.WriteEntries(cmd.OutOrStdout(), entries, verbose)
			return nil
		},
	}
	show.Flags().BoolVarP(&verbose, "verbose", "v", false, "list the instructions of each batch")

	cmd.AddCommand(list, show)
	return cmd
}

func (p *program) versionCommand() *cobra.Command {
	var jsonOut, all bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the version and build information",
		Args:  exactArgs(0, "no arguments"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			switch {
			case jsonOut:
				return json.NewEncoder(out).Encode(buildinfo.Value)
			case all:
				fmt.Fprintln(out, "Version:", buildinfo.Value.Version)
				fmt.Fprintln(out, "Go version:", buildinfo.Value.GoVersion)
				fmt.Fprintln(out, "Reproducible build:", buildinfo.Value.Reproducible)
			default:
				fmt.Fprintln(out, buildinfo.Value.Version)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "show build information as JSON")
	cmd.Flags().BoolVar(&all, "buildinfo", false, "show all build information")
	return cmd
}
