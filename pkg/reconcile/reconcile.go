// Package reconcile drives a virtual-tree engine against a retained widget
// tree: it performs the initial build, and turns activations of native widgets
// into engine events and the engine's answers into incremental patches.
package reconcile

import (
	"context"
	"errors"

	"src.vbridge.sh/pkg/bridge"
	"src.vbridge.sh/pkg/logutil"
	"src.vbridge.sh/pkg/retained"
	"src.vbridge.sh/pkg/vdom"
)

var logger = logutil.GetLogger("[reconcile] ")

// ErrNotLive is returned by HandleActions before a successful Rebuild.
var ErrNotLive = errors.New("driver is not live")

// Engine is a virtual-tree engine.
type Engine interface {
	// InitialBatch returns all templates and the edits that build the UI from
	// an empty root.
	InitialBatch(ctx context.Context) (vdom.Mutations, error)
	// DispatchEvent delivers an event and returns the resulting patch.
	DispatchEvent(ctx context.Context, ev vdom.Event) (vdom.Mutations, error)
}

// State is the state of a Driver.
type State int

// Possible values of State.
const (
	Uninitialized State = iota
	Live
)

func (s State) String() string {
	if s == Live {
		return "live"
	}
	return "uninitialized"
}

// Outcome describes one batch received from the engine and what became of it.
type Outcome struct {
	// Event that produced the batch, or nil for an initial batch.
	Event     *vdom.Event
	Mutations vdom.Mutations
	// Error from the engine or from applying the batch.
	Err error
}

// Observer is notified of every batch outcome.
type Observer func(Outcome)

// Option configures a Driver.
type Option func(*Driver)

// WithTags overrides and extends the default mapping from element tags to
// blueprints.
func WithTags(tags map[string]retained.Blueprint) Option {
	return func(d *Driver) { d.tags = tags }
}

// WithObserver sets the observer of batch outcomes.
func WithObserver(o Observer) Option {
	return func(d *Driver) { d.observer = o }
}

// Driver owns the node address table, the event bindings and the template
// registry of one UI. It must be used from a single goroutine.
type Driver struct {
	engine   Engine
	backend  retained.Backend
	root     retained.Handle
	tags     map[string]retained.Blueprint
	observer Observer

	state     State
	table     *bridge.Table
	bindings  *bridge.Bindings
	templates *bridge.Registry
	machine   *bridge.Machine
}

// New creates a Driver in the Uninitialized state. The root widget must be an
// existing view of the backend.
func New(e Engine, b retained.Backend, root retained.Handle, opts ...Option) *Driver {
	d := &Driver{engine: e, backend: b, root: root}
	for _, opt := range opts {
		opt(d)
	}
	d.table = bridge.NewTable(root)
	d.bindings = bridge.NewBindings()
	d.templates = bridge.NewRegistry(d.tags)
	d.machine = bridge.NewMachine(b, d.table, d.bindings, d.templates)
	return d
}

// State returns the state of the driver.
func (d *Driver) State() State { return d.state }

// Bindings returns the event bindings. They must not be modified.
func (d *Driver) Bindings() *bridge.Bindings { return d.bindings }

// Table returns the node address table. It must not be modified.
func (d *Driver) Table() *bridge.Table { return d.table }

// SetEngine replaces the engine. It takes effect for the next Rebuild; until
// then, events still go to the old engine.
func (d *Driver) SetEngine(e Engine) { d.engine = e }

// Rebuild clears the root and all state, and builds the UI from the engine's
// initial batch. It may be called again at any time, for example when the UI
// description is reloaded. The driver is Live after Rebuild succeeds.
func (d *Driver) Rebuild(ctx context.Context) error {
	for _, c := range d.table.Root().Children {
		if err := d.backend.Detach(c.Handle); err != nil {
			logutil.Log(logger, "detach failed", logutil.Fields{"handle": c.Handle, "err": err})
		}
	}
	d.table.Reset(d.root)
	d.bindings.Reset()
	d.templates.Reset()
	d.state = Uninitialized
	defer d.backend.RequestRedraw()

	muts, err := d.engine.InitialBatch(ctx)
	if err == nil {
		err = d.apply(muts)
	}
	d.observe(Outcome{Mutations: muts, Err: err})
	if err != nil {
		logutil.Log(logger, "initial build failed", logutil.Fields{"err": err})
		return err
	}
	d.state = Live
	logutil.Log(logger, "live", logutil.Fields{
		"templates": d.templates.Len(), "records": d.table.Len(), "bindings": d.bindings.Len()})
	return nil
}

// HandleActions routes activations of native widgets to the engine. Each
// activation matching a binding is dispatched exactly once, and the resulting
// patch is applied before the next activation is considered. A redraw is
// requested for every patch that applied edits.
//
// Failures of single dispatches or patches don't stop the remaining actions;
// they are joined into the returned error, and the driver stays Live.
func (d *Driver) HandleActions(ctx context.Context, actions []retained.Action) error {
	if d.state != Live {
		return ErrNotLive
	}
	var errs []error
	for _, a := range actions {
		b, ok := d.bindings.Lookup(a.Name, a.Handle)
		if !ok {
			logutil.Log(logger, "action without binding",
				logutil.Fields{"event": a.Name, "handle": a.Handle})
			continue
		}
		if err := d.Dispatch(ctx, vdom.Event{Name: b.Event, ID: b.ID}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dispatch sends one event to the engine and applies the resulting patch.
func (d *Driver) Dispatch(ctx context.Context, ev vdom.Event) error {
	if d.state != Live {
		return ErrNotLive
	}
	muts, err := d.engine.DispatchEvent(ctx, ev)
	if err == nil {
		err = d.apply(muts)
	}
	d.observe(Outcome{Event: &ev, Mutations: muts, Err: err})
	if err != nil {
		logutil.Log(logger, "event failed", logutil.Fields{"event": ev, "err": err})
		return err
	}
	if len(muts.Edits) > 0 {
		d.backend.RequestRedraw()
	}
	return nil
}

func (d *Driver) apply(muts vdom.Mutations) error {
	for _, t := range muts.Templates {
		d.templates.Register(t)
	}
	return d.machine.Apply(muts.Edits)
}

func (d *Driver) observe(o Outcome) {
	if d.observer != nil {
		d.observer(o)
	}
}
