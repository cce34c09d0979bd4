package bridge

import (
	"fmt"
	"slices"

	"src.vbridge.sh/pkg/retained"
	"src.vbridge.sh/pkg/vdom"
)

// NodeRecord binds a virtual node to its native widget.
type NodeRecord struct {
	Handle    retained.Handle
	Blueprint retained.Blueprint
	// Instance is the template instantiation the record was created by, or 0.
	Instance int
	// Path is the structural path the record was created at, with the root
	// index first. It is nil for records not created from a template.
	Path vdom.Path
	// ID is valid when HasID is true. Once set, it never changes.
	ID    vdom.ID
	HasID bool

	// The shape of the native tree, as last attached.
	Parent   *NodeRecord
	Children []*NodeRecord

	paths []pathKey
}

type pathKey struct {
	instance int
	path     string
}

func keyOf(instance int, path vdom.Path) pathKey {
	return pathKey{instance, path.String()}
}

// Table is the node address table: it maps structural paths and virtual ids to
// records, and mirrors the shape of the native tree.
//
// Changes made between Begin and Commit are journaled, and can be undone with
// Rollback.
type Table struct {
	root      *NodeRecord
	byID      map[vdom.ID]*NodeRecord
	byPath    map[pathKey]*NodeRecord
	byHandle  map[retained.Handle]*NodeRecord
	instances int

	journaling bool
	undo       []func()
}

// NewTable creates a table with a root record bound to vdom.RootID.
func NewTable(root retained.Handle) *Table {
	t := &Table{}
	t.Reset(root)
	return t
}

// Reset discards all records and the journal, and binds a fresh root record
// for the given handle to vdom.RootID.
func (t *Table) Reset(root retained.Handle) {
	t.root = &NodeRecord{Handle: root, Blueprint: retained.View, ID: vdom.RootID, HasID: true}
	t.byID = map[vdom.ID]*NodeRecord{vdom.RootID: t.root}
	t.byPath = make(map[pathKey]*NodeRecord)
	t.byHandle = map[retained.Handle]*NodeRecord{root: t.root}
	t.instances = 0
	t.journaling = false
	t.undo = nil
}

// Root returns the root record.
func (t *Table) Root() *NodeRecord { return t.root }

// Len returns the number of records, including the root.
func (t *Table) Len() int { return len(t.byHandle) }

// Begin starts journaling changes.
func (t *Table) Begin() {
	t.journaling = true
	t.undo = t.undo[:0]
}

// Commit stops journaling and keeps all changes.
func (t *Table) Commit() {
	t.journaling = false
	t.undo = t.undo[:0]
}

// Rollback undoes all changes since Begin.
func (t *Table) Rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.Commit()
}

func (t *Table) record(f func()) {
	if t.journaling {
		t.undo = append(t.undo, f)
	}
}

// NewInstance allocates a number for a template instantiation.
func (t *Table) NewInstance() int {
	t.instances++
	t.record(func() { t.instances-- })
	return t.instances
}

// Insert adds a record that is not addressed by a path.
func (t *Table) Insert(h retained.Handle, bp retained.Blueprint) *NodeRecord {
	rec := &NodeRecord{Handle: h, Blueprint: bp}
	t.byHandle[h] = rec
	t.record(func() { delete(t.byHandle, h) })
	return rec
}

// BindPath returns the record at the given path of an instantiation,
// inserting one for the handle if there is none.
func (t *Table) BindPath(instance int, path vdom.Path, h retained.Handle, bp retained.Blueprint) *NodeRecord {
	key := keyOf(instance, path)
	if rec, ok := t.byPath[key]; ok {
		return rec
	}
	rec := t.Insert(h, bp)
	rec.Instance = instance
	rec.Path = slices.Clone(path)
	t.addPath(key, rec)
	return rec
}

// AliasPath makes a path of an instantiation resolve to an existing record.
// It is used for text slots, which are folded into their text-bearing parent.
func (t *Table) AliasPath(instance int, path vdom.Path, rec *NodeRecord) {
	key := keyOf(instance, path)
	if _, ok := t.byPath[key]; ok {
		return
	}
	t.addPath(key, rec)
}

func (t *Table) addPath(key pathKey, rec *NodeRecord) {
	t.byPath[key] = rec
	rec.paths = append(rec.paths, key)
	t.record(func() {
		delete(t.byPath, key)
		rec.paths = rec.paths[:len(rec.paths)-1]
	})
}

// LookupPath finds the record at a path of an instantiation.
func (t *Table) LookupPath(instance int, path vdom.Path) (*NodeRecord, error) {
	rec, ok := t.byPath[keyOf(instance, path)]
	if !ok {
		return nil, pathError(ErrUnknownPath, path)
	}
	return rec, nil
}

// AssignID binds an id to the record at a path of an instantiation.
func (t *Table) AssignID(instance int, path vdom.Path, id vdom.ID) (*NodeRecord, error) {
	rec, err := t.LookupPath(instance, path)
	if err != nil {
		return nil, err
	}
	if err := t.BindID(rec, id); err != nil {
		return nil, err
	}
	return rec, nil
}

// BindID binds an id to a record. It fails with ErrDuplicateID if the id is
// bound to another record, or the record already has a different id.
func (t *Table) BindID(rec *NodeRecord, id vdom.ID) error {
	if rec.HasID {
		if rec.ID == id {
			return nil
		}
		return idError(ErrDuplicateID, id)
	}
	if _, ok := t.byID[id]; ok {
		return idError(ErrDuplicateID, id)
	}
	t.byID[id] = rec
	rec.ID, rec.HasID = id, true
	t.record(func() {
		delete(t.byID, id)
		rec.ID, rec.HasID = 0, false
	})
	return nil
}

// LookupByID finds the record bound to an id.
func (t *Table) LookupByID(id vdom.ID) (*NodeRecord, error) {
	rec, ok := t.byID[id]
	if !ok {
		return nil, idError(ErrUnboundID, id)
	}
	return rec, nil
}

// LookupHandle finds the record of a native widget.
func (t *Table) LookupHandle(h retained.Handle) (*NodeRecord, bool) {
	rec, ok := t.byHandle[h]
	return rec, ok
}

// Saves the shape around rec so that it can be restored on rollback.
func (t *Table) saveShape(rec *NodeRecord) {
	if !t.journaling {
		return
	}
	parent, children := rec.Parent, slices.Clone(rec.Children)
	t.record(func() {
		rec.Parent, rec.Children = parent, children
	})
}

// Attach inserts children into parent at pos, or at the end if pos is
// retained.AppendPosition or beyond the end. Children attached elsewhere are
// moved; when moved within parent, pos refers to positions before the move.
// This matches retained.Backend.AttachChildren.
func (t *Table) Attach(parent *NodeRecord, pos int, children []*NodeRecord) error {
	if !parent.Blueprint.Container() {
		return kindError(ErrBadTarget, "%v widget cannot have children", parent.Blueprint)
	}
	for _, c := range children {
		if c == t.root {
			return kindError(ErrBadTarget, "cannot attach the root")
		}
		for a := parent; a != nil; a = a.Parent {
			if a == c {
				return kindError(ErrBadTarget, "attaching would create a cycle")
			}
		}
	}
	t.saveShape(parent)
	for _, c := range children {
		t.saveShape(c)
		old := c.Parent
		if old == nil {
			continue
		}
		t.saveShape(old)
		i := slices.Index(old.Children, c)
		old.Children = slices.Delete(old.Children, i, i+1)
		if old == parent && i < pos {
			pos--
		}
		c.Parent = nil
	}
	if pos < 0 || pos > len(parent.Children) {
		pos = len(parent.Children)
	}
	parent.Children = slices.Insert(parent.Children, pos, children...)
	for _, c := range children {
		c.Parent = parent
	}
	return nil
}

// IndexInParent returns the position of rec among its siblings. It fails with
// ErrBadTarget if rec is not attached.
func (t *Table) IndexInParent(rec *NodeRecord) (*NodeRecord, int, error) {
	if rec.Parent == nil {
		return nil, 0, kindError(ErrBadTarget, "widget %d is not attached", rec.Handle)
	}
	return rec.Parent, slices.Index(rec.Parent.Children, rec), nil
}

// Remove erases a record and all records attached beneath it, and detaches it
// from its parent. It returns the erased records, in preorder.
func (t *Table) Remove(rec *NodeRecord) ([]*NodeRecord, error) {
	if rec == t.root {
		return nil, kindError(ErrBadTarget, "cannot remove the root")
	}
	if _, ok := t.byHandle[rec.Handle]; !ok {
		return nil, kindError(ErrBadTarget, "widget %d is already removed", rec.Handle)
	}
	if parent := rec.Parent; parent != nil {
		t.saveShape(parent)
		t.saveShape(rec)
		i := slices.Index(parent.Children, rec)
		parent.Children = slices.Delete(parent.Children, i, i+1)
		rec.Parent = nil
	}
	var removed []*NodeRecord
	var walk func(r *NodeRecord)
	walk = func(r *NodeRecord) {
		removed = append(removed, r)
		for _, c := range r.Children {
			walk(c)
		}
	}
	walk(rec)
	for _, r := range removed {
		t.erase(r)
	}
	return removed, nil
}

func (t *Table) erase(r *NodeRecord) {
	delete(t.byHandle, r.Handle)
	if r.HasID {
		delete(t.byID, r.ID)
	}
	for _, key := range r.paths {
		if t.byPath[key] == r {
			delete(t.byPath, key)
		}
	}
	t.record(func() {
		t.byHandle[r.Handle] = r
		if r.HasID {
			t.byID[r.ID] = r
		}
		for _, key := range r.paths {
			t.byPath[key] = r
		}
	})
}

// String returns a one-line description of the record for diagnostics.
func (r *NodeRecord) String() string {
	s := fmt.Sprintf("%v#%d", r.Blueprint, r.Handle)
	if r.HasID {
		s += fmt.Sprintf(" id=%d", r.ID)
	}
	if r.Path != nil {
		s += fmt.Sprintf(" path=%d:%v", r.Instance, r.Path)
	}
	return s
}
