// Package vdom contains the data model shared with virtual-tree engines:
// templates, mutation instructions and events.
package vdom

import (
	"fmt"
	"strconv"
	"strings"
)

// ID is a durable identity minted by the virtual-tree engine.
type ID uint64

// RootID names the root view. It is bound before any batch is applied.
const RootID ID = 0

// Path is a structural address inside a template: a sequence of child
// indices starting from a template root.
type Path []int

func (p Path) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, x := range p {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.Itoa(x))
	}
	sb.WriteByte(']')
	return sb.String()
}

// Template is a named, immutable tree description. Its roots are instantiated
// one at a time by LoadTemplate.
type Template struct {
	Name  string
	Roots []Node
}

// Node is a node of a template. It is implemented by *Element, *StaticText
// and *DynamicSlot.
type Node interface {
	isNode()
}

// Element is a tagged template node with attributes and children.
type Element struct {
	Tag       string
	Namespace string
	Attrs     []Attr
	Children  []Node
}

// Attr is a static attribute of an Element.
type Attr struct {
	Name      string `json:"name" yaml:"name"`
	Value     string `json:"value" yaml:"value"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// StaticText is literal text in a template.
type StaticText struct {
	Text string
}

// DynamicSlot is a placeholder for a value computed by the engine.
type DynamicSlot struct {
	Index int
}

func (*Element) isNode()     {}
func (*StaticText) isNode()  {}
func (*DynamicSlot) isNode() {}

// Instruction is one step of a mutation batch. The set of implementations is
// closed; they are the types in this package named after the instruction.
type Instruction interface {
	// Op returns the name of the instruction as it appears on the wire.
	Op() string
	isInstruction()
}

// LoadTemplate instantiates root Index of template Name and pushes it.
type LoadTemplate struct {
	Name  string
	Index int
}

// CreatePlaceholder creates an empty container bound to ID and pushes it.
type CreatePlaceholder struct {
	ID ID
}

// CreateTextNode creates a text node bound to ID and pushes it.
type CreateTextNode struct {
	Value string
	ID    ID
}

// AssignID binds ID to the node at Path in the last loaded template.
type AssignID struct {
	Path Path
	ID   ID
}

// HydrateText is like AssignID, and also sets the text of the node. Path
// addresses the text slot or its text-bearing parent.
type HydrateText struct {
	Path  Path
	Value string
	ID    ID
}

// SetText sets the text of the node bound to ID.
type SetText struct {
	ID    ID
	Value string
}

// SetAttribute sets an attribute of the node bound to ID.
type SetAttribute struct {
	ID    ID
	Name  string
	Value string
	NS    string
}

// NewEventListener starts routing the named event on the node bound to ID.
type NewEventListener struct {
	Name string
	ID   ID
}

// RemoveEventListener stops routing the named event on the node bound to ID.
type RemoveEventListener struct {
	Name string
	ID   ID
}

// AppendChildren pops M nodes and appends them to the node bound to ID.
type AppendChildren struct {
	ID ID
	M  int
}

// ReplaceWith pops M nodes and puts them in the place of the node bound to
// ID, which is removed.
type ReplaceWith struct {
	ID ID
	M  int
}

// ReplacePlaceholder is like ReplaceWith, with the target addressed by Path.
type ReplacePlaceholder struct {
	Path Path
	M    int
}

// InsertBefore pops M nodes and inserts them before the node bound to ID.
type InsertBefore struct {
	ID ID
	M  int
}

// InsertAfter pops M nodes and inserts them after the node bound to ID.
type InsertAfter struct {
	ID ID
	M  int
}

// Remove removes the node bound to ID.
type Remove struct {
	ID ID
}

// PushRoot pushes the node bound to ID.
type PushRoot struct {
	ID ID
}

func (*LoadTemplate) Op() string        { return "LoadTemplate" }
func (*CreatePlaceholder) Op() string   { return "CreatePlaceholder" }
func (*CreateTextNode) Op() string      { return "CreateTextNode" }
func (*AssignID) Op() string            { return "AssignId" }
func (*HydrateText) Op() string         { return "HydrateText" }
func (*SetText) Op() string             { return "SetText" }
func (*SetAttribute) Op() string        { return "SetAttribute" }
func (*NewEventListener) Op() string    { return "NewEventListener" }
func (*RemoveEventListener) Op() string { return "RemoveEventListener" }
func (*AppendChildren) Op() string      { return "AppendChildren" }
func (*ReplaceWith) Op() string         { return "ReplaceWith" }
func (*ReplacePlaceholder) Op() string  { return "ReplacePlaceholder" }
func (*InsertBefore) Op() string        { return "InsertBefore" }
func (*InsertAfter) Op() string         { return "InsertAfter" }
func (*Remove) Op() string              { return "Remove" }
func (*PushRoot) Op() string            { return "PushRoot" }

func (*LoadTemplate) isInstruction()        {}
func (*CreatePlaceholder) isInstruction()   {}
func (*CreateTextNode) isInstruction()      {}
func (*AssignID) isInstruction()            {}
func (*HydrateText) isInstruction()         {}
func (*SetText) isInstruction()             {}
func (*SetAttribute) isInstruction()        {}
func (*NewEventListener) isInstruction()    {}
func (*RemoveEventListener) isInstruction() {}
func (*AppendChildren) isInstruction()      {}
func (*ReplaceWith) isInstruction()         {}
func (*ReplacePlaceholder) isInstruction()  {}
func (*InsertBefore) isInstruction()        {}
func (*InsertAfter) isInstruction()         {}
func (*Remove) isInstruction()              {}
func (*PushRoot) isInstruction()            {}

func (i *LoadTemplate) String() string      { return fmt.Sprintf("LoadTemplate(%q, %d)", i.Name, i.Index) }
func (i *CreatePlaceholder) String() string { return fmt.Sprintf("CreatePlaceholder(%d)", i.ID) }
func (i *CreateTextNode) String() string {
	return fmt.Sprintf("CreateTextNode(%q, %d)", i.Value, i.ID)
}
func (i *AssignID) String() string { return fmt.Sprintf("AssignId(%v, %d)", i.Path, i.ID) }
func (i *HydrateText) String() string {
	return fmt.Sprintf("HydrateText(%v, %q, %d)", i.Path, i.Value, i.ID)
}
func (i *SetText) String() string { return fmt.Sprintf("SetText(%d, %q)", i.ID, i.Value) }
func (i *SetAttribute) String() string {
	return fmt.Sprintf("SetAttribute(%d, %q, %q, %q)", i.ID, i.Name, i.Value, i.NS)
}
func (i *NewEventListener) String() string {
	return fmt.Sprintf("NewEventListener(%q, %d)", i.Name, i.ID)
}
func (i *RemoveEventListener) String() string {
	return fmt.Sprintf("RemoveEventListener(%q, %d)", i.Name, i.ID)
}
func (i *AppendChildren) String() string { return fmt.Sprintf("AppendChildren(%d, %d)", i.ID, i.M) }
func (i *ReplaceWith) String() string    { return fmt.Sprintf("ReplaceWith(%d, %d)", i.ID, i.M) }
func (i *ReplacePlaceholder) String() string {
	return fmt.Sprintf("ReplacePlaceholder(%v, %d)", i.Path, i.M)
}
func (i *InsertBefore) String() string { return fmt.Sprintf("InsertBefore(%d, %d)", i.ID, i.M) }
func (i *InsertAfter) String() string  { return fmt.Sprintf("InsertAfter(%d, %d)", i.ID, i.M) }
func (i *Remove) String() string       { return fmt.Sprintf("Remove(%d)", i.ID) }
func (i *PushRoot) String() string     { return fmt.Sprintf("PushRoot(%d)", i.ID) }

// Edits is an ordered mutation batch.
type Edits []Instruction

// Mutations is what an engine produces from one render pass: templates first
// used in the pass, and the edits to apply.
type Mutations struct {
	Templates []Template `json:"templates,omitempty" yaml:"templates,omitempty"`
	Edits     Edits      `json:"edits" yaml:"edits"`
}

// Empty returns whether the mutations change nothing.
func (m Mutations) Empty() bool {
	return len(m.Templates) == 0 && len(m.Edits) == 0
}

// Event is a user event routed to the engine.
type Event struct {
	Name string `json:"name" yaml:"name"`
	ID   ID     `json:"id" yaml:"id"`
}

func (e Event) String() string { return fmt.Sprintf("%s@%d", e.Name, e.ID) }
