// Package bridge interprets mutation batches from a virtual-tree engine
// against a retained widget tree.
//
// The interpreter is a stack machine. It keeps no durable state of its own:
// the node address table, the event binding registry and the template
// registry are owned by the caller and passed in at construction.
//
// A batch is applied atomically. Instructions are first interpreted against
// the table, which journals its changes, while writes to the live widget tree
// and binding changes are queued. Only the creation of new, still detached
// widgets reaches the backend immediately. If every instruction succeeds, the
// queue is flushed in order; otherwise the table is rolled back, the new
// widgets are destroyed and nothing visible changes. A write the backend
// rejects during the flush doesn't stop the writes after it.
package bridge

import (
	"errors"
	"fmt"
	"slices"

	"src.vbridge.sh/pkg/attr"
	"src.vbridge.sh/pkg/logutil"
	"src.vbridge.sh/pkg/retained"
	"src.vbridge.sh/pkg/vdom"
)

var logger = logutil.GetLogger("[bridge] ")

// Machine is the mutation stack machine.
type Machine struct {
	backend   retained.Backend
	table     *Table
	bindings  *Bindings
	templates *Registry
}

// NewMachine creates a Machine.
func NewMachine(b retained.Backend, t *Table, bs *Bindings, r *Registry) *Machine {
	return &Machine{b, t, bs, r}
}

// A write to the live tree, queued until the batch commits.
type op struct {
	index int
	ins   vdom.Instruction
	do    func() error
}

// State of one batch. It lives for exactly one call to Apply.
type batch struct {
	m     *Machine
	stack []*NodeRecord
	ops   []op
	// Widgets created during the batch, in creation order.
	created []retained.Handle

	// The last LoadTemplate, which path-addressed instructions refer to.
	loaded    bool
	instance  int
	rootIndex int

	index int
	ins   vdom.Instruction
}

// Apply interprets a batch. On failure, it returns an *Error identifying the
// offending instruction, and the table, the bindings and the live tree are
// left as they were before the call.
//
// Once every instruction has been interpreted, the batch is committed. A
// backend failure while flushing is returned as an ErrBackend *Error naming
// the first failed instruction; the remaining writes are still flushed.
func (m *Machine) Apply(edits vdom.Edits) error {
	b := &batch{m: m}
	m.table.Begin()
	for i, ins := range edits {
		b.index, b.ins = i, ins
		if err := b.exec(ins); err != nil {
			e := annotate(err, i, ins)
			m.table.Rollback()
			b.release()
			logError("batch aborted", e)
			return e
		}
	}
	m.table.Commit()
	if len(b.stack) > 0 {
		logutil.Log(logger, "batch left nodes on the stack",
			logutil.Fields{"count": len(b.stack), "edits": len(edits)})
	}
	// The table already reflects every op, so a failed op must not stop the
	// ones after it. The first failure identifies the error.
	var first *Error
	var errs []error
	for _, op := range b.ops {
		if err := op.do(); err != nil {
			e := &Error{Kind: ErrBackend, Index: op.index, Instruction: op.ins, Err: err}
			logError("queued write failed", e)
			if first == nil {
				first = e
			}
			errs = append(errs, err)
		}
	}
	if first == nil {
		return nil
	}
	first.Err = errors.Join(errs...)
	return first
}

func annotate(err error, index int, ins vdom.Instruction) *Error {
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: ErrBackend, Err: err}
	}
	e.Index, e.Instruction = index, ins
	return e
}

func logError(msg string, e *Error) {
	fs := logutil.Fields{"index": e.Index, "kind": e.Kind, "instruction": e.Instruction}
	if e.HasID {
		fs["id"] = e.ID
	}
	if e.Path != nil {
		fs["path"] = e.Path
	}
	if e.Err != nil {
		fs["err"] = e.Err
	}
	logutil.Log(logger, msg, fs)
}

// Destroys the widgets created during an aborted batch. None of them has been
// attached to the live tree, since attachments are queued.
func (b *batch) release() {
	for i := len(b.created) - 1; i >= 0; i-- {
		// Descendants are destroyed along with their parents, so errors about
		// widgets that no longer exist are expected.
		b.m.backend.Detach(b.created[i])
	}
}

func (b *batch) queue(f func() error) {
	b.ops = append(b.ops, op{b.index, b.ins, f})
}

func (b *batch) push(rec *NodeRecord) { b.stack = append(b.stack, rec) }

// Pops the top n records, returning them in the order they were pushed.
func (b *batch) pop(n int) ([]*NodeRecord, error) {
	if n < 0 || n > len(b.stack) {
		return nil, kindError(ErrStackUnderflow, "need %d, have %d", n, len(b.stack))
	}
	recs := slices.Clone(b.stack[len(b.stack)-n:])
	b.stack = b.stack[:len(b.stack)-n]
	return recs, nil
}

func (b *batch) path(p vdom.Path) (vdom.Path, error) {
	if !b.loaded {
		return nil, kindError(ErrUnknownPath, "no template loaded in this batch")
	}
	return NormalizePath(b.rootIndex, p), nil
}

func (b *batch) create(bp retained.Blueprint, id vdom.ID) (*NodeRecord, error) {
	h, err := b.m.backend.CreateWidget(bp, b.m.table.Root().Handle)
	if err != nil {
		return nil, err
	}
	b.created = append(b.created, h)
	rec := b.m.table.Insert(h, bp)
	if err := b.m.table.BindID(rec, id); err != nil {
		return nil, err
	}
	return rec, nil
}

func handles(recs []*NodeRecord) []retained.Handle {
	hs := make([]retained.Handle, len(recs))
	for i, rec := range recs {
		hs[i] = rec.Handle
	}
	return hs
}

func textTarget(rec *NodeRecord) error {
	if !rec.Blueprint.TextBearing() {
		return kindError(ErrBadTarget, "%v widget has no text", rec.Blueprint)
	}
	return nil
}

func (b *batch) exec(ins vdom.Instruction) error {
	m := b.m
	switch ins := ins.(type) {
	case *vdom.LoadTemplate:
		h, ok := m.templates.Lookup(ins.Name)
		if !ok {
			return kindError(ErrUnknownTemplate, "%q is not registered", ins.Name)
		}
		instance, recs, err := m.templates.Instantiate(m.backend, m.table, h, ins.Index, m.table.Root().Handle)
		for _, rec := range recs {
			b.created = append(b.created, rec.Handle)
		}
		if err != nil {
			return err
		}
		b.push(recs[0])
		b.loaded, b.instance, b.rootIndex = true, instance, ins.Index

	case *vdom.CreatePlaceholder:
		rec, err := b.create(retained.Placeholder, ins.ID)
		if err != nil {
			return err
		}
		b.push(rec)

	case *vdom.CreateTextNode:
		rec, err := b.create(retained.Text, ins.ID)
		if err != nil {
			return err
		}
		if ins.Value != "" {
			// The widget is still detached, so this is not a live write.
			if err := m.backend.SetText(rec.Handle, ins.Value); err != nil {
				return err
			}
		}
		b.push(rec)

	case *vdom.AssignID:
		path, err := b.path(ins.Path)
		if err != nil {
			return err
		}
		_, err = m.table.AssignID(b.instance, path, ins.ID)
		return err

	case *vdom.HydrateText:
		path, err := b.path(ins.Path)
		if err != nil {
			return err
		}
		rec, err := m.table.AssignID(b.instance, path, ins.ID)
		if err != nil {
			return err
		}
		if err := textTarget(rec); err != nil {
			return err
		}
		h, value := rec.Handle, ins.Value
		b.queue(func() error { return m.backend.SetText(h, value) })

	case *vdom.SetText:
		rec, err := m.table.LookupByID(ins.ID)
		if err != nil {
			return err
		}
		if err := textTarget(rec); err != nil {
			return err
		}
		h, value := rec.Handle, ins.Value
		b.queue(func() error { return m.backend.SetText(h, value) })

	case *vdom.SetAttribute:
		rec, err := m.table.LookupByID(ins.ID)
		if err != nil {
			return err
		}
		writes, err := attr.Translate(ins.Name, ins.Value, ins.NS)
		if err != nil {
			// Rejected declarations are skipped; the rest still apply.
			logutil.Log(logger, "attribute declarations skipped",
				logutil.Fields{"index": b.index, "id": ins.ID, "err": err})
		}
		for _, w := range writes {
			h, w := rec.Handle, w
			b.queue(func() error { return m.backend.SetProperty(h, w.Name, w.Value) })
		}

	case *vdom.NewEventListener:
		rec, err := m.table.LookupByID(ins.ID)
		if err != nil {
			return err
		}
		binding := Binding{Event: ins.Name, Handle: rec.Handle, ID: ins.ID}
		b.queue(func() error {
			m.bindings.Register(binding)
			return nil
		})

	case *vdom.RemoveEventListener:
		rec, err := m.table.LookupByID(ins.ID)
		if err != nil {
			return err
		}
		event, h := ins.Name, rec.Handle
		b.queue(func() error {
			m.bindings.Unregister(event, h)
			return nil
		})

	case *vdom.AppendChildren:
		target, err := m.table.LookupByID(ins.ID)
		if err != nil {
			return err
		}
		recs, err := b.pop(ins.M)
		if err != nil {
			return err
		}
		return b.attach(target, retained.AppendPosition, recs)

	case *vdom.ReplaceWith:
		target, err := m.table.LookupByID(ins.ID)
		if err != nil {
			return err
		}
		return b.replace(target, ins.M)

	case *vdom.ReplacePlaceholder:
		path, err := b.path(ins.Path)
		if err != nil {
			return err
		}
		target, err := m.table.LookupPath(b.instance, path)
		if err != nil {
			return err
		}
		return b.replace(target, ins.M)

	case *vdom.InsertBefore:
		return b.insert(ins.ID, ins.M, 0)

	case *vdom.InsertAfter:
		return b.insert(ins.ID, ins.M, 1)

	case *vdom.Remove:
		target, err := m.table.LookupByID(ins.ID)
		if err != nil {
			return err
		}
		return b.remove(target)

	case *vdom.PushRoot:
		rec, err := m.table.LookupByID(ins.ID)
		if err != nil {
			return err
		}
		b.push(rec)

	default:
		// Only a nil instruction gets here.
		return kindError(ErrUnknownInstruction, "%T", ins)
	}
	return nil
}

func (b *batch) attach(parent *NodeRecord, pos int, recs []*NodeRecord) error {
	if err := b.m.table.Attach(parent, pos, recs); err != nil {
		return err
	}
	p, hs := parent.Handle, handles(recs)
	b.queue(func() error { return b.m.backend.AttachChildren(p, hs, pos) })
	return nil
}

func (b *batch) replace(target *NodeRecord, n int) error {
	recs, err := b.pop(n)
	if err != nil {
		return err
	}
	parent, pos, err := b.m.table.IndexInParent(target)
	if err != nil {
		return err
	}
	if err := b.attach(parent, pos, recs); err != nil {
		return err
	}
	return b.remove(target)
}

func (b *batch) insert(id vdom.ID, n, offset int) error {
	target, err := b.m.table.LookupByID(id)
	if err != nil {
		return err
	}
	recs, err := b.pop(n)
	if err != nil {
		return err
	}
	parent, pos, err := b.m.table.IndexInParent(target)
	if err != nil {
		return err
	}
	return b.attach(parent, pos+offset, recs)
}

func (b *batch) remove(target *NodeRecord) error {
	removed, err := b.m.table.Remove(target)
	if err != nil {
		return err
	}
	h := target.Handle
	b.queue(func() error {
		for _, rec := range removed {
			b.m.bindings.PurgeHandle(rec.Handle)
		}
		return b.m.backend.Detach(h)
	})
	return nil
}

// String returns a short description of the state of the machine for
// diagnostics.
func (m *Machine) String() string {
	return fmt.Sprintf("machine(records=%d bindings=%d templates=%d)",
		m.table.Len(), m.bindings.Len(), m.templates.Len())
}
