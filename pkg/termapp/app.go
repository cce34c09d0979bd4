// Package termapp runs a reconciled UI interactively in a terminal.
//
// Terminal input, resize signals and reload requests are read by their own
// goroutines, which only feed the main loop. All handling, including every
// batch applied to the tree, and all drawing happen serially in the loop.
package termapp

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"src.vbridge.sh/pkg/cli/term"
	"src.vbridge.sh/pkg/cli/tk"
	"src.vbridge.sh/pkg/logutil"
	"src.vbridge.sh/pkg/reconcile"
	"src.vbridge.sh/pkg/sys"
	"src.vbridge.sh/pkg/ui"
)

var logger = logutil.GetLogger("[termapp] ")

// Spec specifies an App.
type Spec struct {
	In, Out *os.File
	Mouse   bool

	Tree   *tk.Tree
	Driver *reconcile.Driver

	// Reload, if not nil, delivers requests to reload the engine.
	Reload <-chan struct{}
	// Load is called to get a new engine on reload requests. If it is nil,
	// reloading rebuilds the UI with the current engine.
	Load func(ctx context.Context) (reconcile.Engine, error)
	// Title is shown in the status line.
	Title string
}

// Fed to the loop when the engine should be reloaded.
type reloadEvent struct{}

// App is an interactive terminal session.
type App struct {
	spec   Spec
	loop   *loop
	writer term.Writer
	ctx    context.Context
	status string
	failed bool
}

// Run runs an App until the user quits, the input fails, or ctx is done. The
// UI is built when the App starts.
func Run(ctx context.Context, spec Spec) error {
	restore, err := term.Setup(spec.In, spec.Out, spec.Mouse)
	if err != nil {
		return err
	}
	defer restore()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a := &App{spec: spec, loop: newLoop(), writer: term.NewWriter(spec.Out), ctx: ctx}
	spec.Tree.OnRedraw = func() { a.loop.Redraw(false) }
	a.loop.HandleCb(a.handle)
	a.loop.RedrawCb(a.redraw)

	reader := term.NewReader(spec.In)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.readInput(reader) })
	g.Go(func() error { return a.relay(gctx) })

	a.writer.ClearScreen()
	a.rebuild()
	err = a.loop.Run()
	cancel()
	reader.Close()
	if gerr := g.Wait(); err == nil {
		err = gerr
	}
	return err
}

func (a *App) readInput(r term.Reader) error {
	for {
		ev, err := r.ReadEvent()
		switch {
		case errors.Is(err, term.ErrStopped):
			return nil
		case err == nil:
			a.loop.Input(ev)
		case term.IsReadErrorRecoverable(err):
			a.loop.Input(term.NonfatalErrorEvent{Err: err})
		default:
			a.loop.Input(term.FatalErrorEvent{Err: err})
			return nil
		}
	}
}

// Relays resize signals, reload requests and cancellation to the loop.
func (a *App) relay(ctx context.Context) error {
	resize, stop := sys.NotifyResize()
	defer stop()
	reload := a.spec.Reload
	for {
		select {
		case <-ctx.Done():
			a.loop.Return(nil)
			return nil
		case <-resize:
			a.loop.Redraw(true)
		case _, ok := <-reload:
			if !ok {
				reload = nil
				continue
			}
			a.loop.Input(reloadEvent{})
		}
	}
}

func (a *App) handle(e event) {
	switch e := e.(type) {
	case term.KeyEvent:
		switch ui.Key(e) {
		case ui.K('q'), ui.K('D', ui.Ctrl):
			a.loop.Return(nil)
			return
		case ui.K('L', ui.Ctrl):
			a.loop.Redraw(true)
			return
		case ui.K('r'):
			a.rebuild()
			return
		}
		if a.spec.Tree.Handle(e) {
			a.loop.Redraw(false)
		}
	case term.MouseEvent:
		// Mouse lines are 1-based, and the UI is drawn from the top.
		e.Line--
		a.spec.Tree.Handle(e)
	case term.NonfatalErrorEvent:
		logutil.Log(logger, "input error", logutil.Fields{"err": e.Err})
	case term.FatalErrorEvent:
		a.loop.Return(e.Err)
		return
	case reloadEvent:
		a.reload()
	}
	if actions := a.spec.Tree.TakeActions(); len(actions) > 0 {
		if err := a.spec.Driver.HandleActions(a.ctx, actions); err != nil {
			a.setStatus(true, err.Error())
		} else {
			a.setStatus(false, "")
		}
		a.loop.Redraw(false)
	}
}

func (a *App) rebuild() {
	if err := a.spec.Driver.Rebuild(a.ctx); err != nil {
		a.setStatus(true, "build failed: "+err.Error())
	} else {
		a.setStatus(false, "")
	}
}

func (a *App) reload() {
	if a.spec.Load != nil {
		e, err := a.spec.Load(a.ctx)
		if err != nil {
			a.setStatus(true, "reload failed: "+err.Error())
			a.loop.Redraw(false)
			return
		}
		a.spec.Driver.SetEngine(e)
	}
	a.rebuild()
	if !a.failed {
		a.setStatus(false, "reloaded")
	}
}

func (a *App) setStatus(failed bool, s string) {
	a.failed, a.status = failed, s
}

func (a *App) redraw(flag redrawFlag) {
	height, width := sys.WinSize(a.spec.Out)
	if height <= 0 || width <= 0 {
		height, width = 24, 80
	}
	buf := a.Render(width, height)
	if flag&finalRedraw != 0 {
		// Leave the cursor below the UI.
		buf.Dot = term.Pos{Line: len(buf.Lines) - 1}
	}
	if err := a.writer.UpdateBuffer(buf, flag&fullRedraw != 0); err != nil {
		logutil.Log(logger, "update buffer failed", logutil.Fields{"err": err})
	}
	if flag&finalRedraw != 0 {
		fmt.Fprintln(a.spec.Out)
		a.writer.ResetBuffer()
	}
}

// Render renders the tree above a status line.
func (a *App) Render(width, height int) *term.Buffer {
	buf := a.spec.Tree.Render(width, max(height-1, 1))
	return buf.ExtendDown(a.statusLine().Render(width, 1), false)
}

func (a *App) statusLine() tk.Label {
	if a.status != "" && a.failed {
		return tk.Label{Content: ui.T(a.status, ui.Fg(ui.Red))}
	}
	s := fmt.Sprintf("%s  %s  tab:focus enter:activate r:rebuild q:quit",
		a.spec.Title, a.spec.Driver.State())
	if a.status != "" {
		s = a.status + "  " + s
	}
	return tk.Label{Content: ui.T(s, ui.Inverse)}
}
