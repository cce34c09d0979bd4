package vdom

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrUnknownInstruction is returned when decoding an instruction whose type
// is not recognized.
var ErrUnknownInstruction = errors.New("unknown instruction")

// The wire form of an instruction: an object tagged by type. Fields that can
// legitimately be zero are pointers so that missing fields can be detected.
type wireInstruction struct {
	Type  string  `json:"type" yaml:"type"`
	Name  *string `json:"name,omitempty" yaml:"name,omitempty"`
	Index *int    `json:"index,omitempty" yaml:"index,omitempty"`
	ID    *ID     `json:"id,omitempty" yaml:"id,omitempty"`
	Path  Path    `json:"path,omitempty" yaml:"path,omitempty,flow"`
	Value *string `json:"value,omitempty" yaml:"value,omitempty"`
	M     *int    `json:"m,omitempty" yaml:"m,omitempty"`
	NS    string  `json:"ns,omitempty" yaml:"ns,omitempty"`
}

func ptr[T any](v T) *T { return &v }

func toWire(ins Instruction) wireInstruction {
	w := wireInstruction{Type: ins.Op()}
	switch ins := ins.(type) {
	case *LoadTemplate:
		w.Name, w.Index = ptr(ins.Name), ptr(ins.Index)
	case *CreatePlaceholder:
		w.ID = ptr(ins.ID)
	case *CreateTextNode:
		w.Value, w.ID = ptr(ins.Value), ptr(ins.ID)
	case *AssignID:
		w.Path, w.ID = ins.Path, ptr(ins.ID)
	case *HydrateText:
		w.Path, w.Value, w.ID = ins.Path, ptr(ins.Value), ptr(ins.ID)
	case *SetText:
		w.ID, w.Value = ptr(ins.ID), ptr(ins.Value)
	case *SetAttribute:
		w.ID, w.Name, w.Value, w.NS = ptr(ins.ID), ptr(ins.Name), ptr(ins.Value), ins.NS
	case *NewEventListener:
		w.Name, w.ID = ptr(ins.Name), ptr(ins.ID)
	case *RemoveEventListener:
		w.Name, w.ID = ptr(ins.Name), ptr(ins.ID)
	case *AppendChildren:
		w.ID, w.M = ptr(ins.ID), ptr(ins.M)
	case *ReplaceWith:
		w.ID, w.M = ptr(ins.ID), ptr(ins.M)
	case *ReplacePlaceholder:
		w.Path, w.M = ins.Path, ptr(ins.M)
	case *InsertBefore:
		w.ID, w.M = ptr(ins.ID), ptr(ins.M)
	case *InsertAfter:
		w.ID, w.M = ptr(ins.ID), ptr(ins.M)
	case *Remove:
		w.ID = ptr(ins.ID)
	case *PushRoot:
		w.ID = ptr(ins.ID)
	}
	return w
}

func fromWire(w wireInstruction) (Instruction, error) {
	var missing []string
	str := func(field string, p *string) string {
		if p == nil {
			missing = append(missing, field)
			return ""
		}
		return *p
	}
	num := func(field string, p *int) int {
		if p == nil {
			missing = append(missing, field)
			return 0
		}
		return *p
	}
	id := func() ID {
		if w.ID == nil {
			missing = append(missing, "id")
			return 0
		}
		return *w.ID
	}
	path := func() Path {
		if w.Path == nil {
			return Path{}
		}
		return w.Path
	}

	var ins Instruction
	switch w.Type {
	case "LoadTemplate":
		ins = &LoadTemplate{Name: str("name", w.Name), Index: num("index", w.Index)}
	case "CreatePlaceholder":
		ins = &CreatePlaceholder{ID: id()}
	case "CreateTextNode":
		ins = &CreateTextNode{Value: str("value", w.Value), ID: id()}
	case "AssignId":
		ins = &AssignID{Path: path(), ID: id()}
	case "HydrateText":
		ins = &HydrateText{Path: path(), Value: str("value", w.Value), ID: id()}
	case "SetText":
		ins = &SetText{ID: id(), Value: str("value", w.Value)}
	case "SetAttribute":
		ins = &SetAttribute{ID: id(), Name: str("name", w.Name), Value: str("value", w.Value), NS: w.NS}
	case "NewEventListener":
		ins = &NewEventListener{Name: str("name", w.Name), ID: id()}
	case "RemoveEventListener":
		ins = &RemoveEventListener{Name: str("name", w.Name), ID: id()}
	case "AppendChildren":
		ins = &AppendChildren{ID: id(), M: num("m", w.M)}
	case "ReplaceWith":
		ins = &ReplaceWith{ID: id(), M: num("m", w.M)}
	case "ReplacePlaceholder":
		ins = &ReplacePlaceholder{Path: path(), M: num("m", w.M)}
	case "InsertBefore":
		ins = &InsertBefore{ID: id(), M: num("m", w.M)}
	case "InsertAfter":
		ins = &InsertAfter{ID: id(), M: num("m", w.M)}
	case "Remove":
		ins = &Remove{ID: id()}
	case "PushRoot":
		ins = &PushRoot{ID: id()}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownInstruction, w.Type)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: missing field %v", w.Type, missing)
	}
	return ins, nil
}

func (es Edits) toWire() []wireInstruction {
	ws := make([]wireInstruction, len(es))
	for i, ins := range es {
		ws[i] = toWire(ins)
	}
	return ws
}

func editsFromWire(ws []wireInstruction) (Edits, error) {
	es := make(Edits, len(ws))
	for i, w := range ws {
		ins, err := fromWire(w)
		if err != nil {
			return nil, fmt.Errorf("edit %d: %w", i, err)
		}
		es[i] = ins
	}
	return es, nil
}

// MarshalJSON implements json.Marshaler.
func (es Edits) MarshalJSON() ([]byte, error) { return json.Marshal(es.toWire()) }

// UnmarshalJSON implements json.Unmarshaler.
func (es *Edits) UnmarshalJSON(data []byte) error {
	var ws []wireInstruction
	if err := json.Unmarshal(data, &ws); err != nil {
		return err
	}
	decoded, err := editsFromWire(ws)
	if err != nil {
		return err
	}
	*es = decoded
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (es Edits) MarshalYAML() (any, error) { return es.toWire(), nil }

// UnmarshalYAML implements yaml.Unmarshaler.
func (es *Edits) UnmarshalYAML(value *yaml.Node) error {
	var ws []wireInstruction
	if err := value.Decode(&ws); err != nil {
		return err
	}
	decoded, err := editsFromWire(ws)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*es = decoded
	return nil
}

// The wire form of a template node. Exactly one of Element, Text and Dynamic
// is set.
type wireNode struct {
	Element   string     `json:"element,omitempty" yaml:"element,omitempty"`
	Namespace string     `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Attrs     []Attr     `json:"attrs,omitempty" yaml:"attrs,omitempty"`
	Children  []wireNode `json:"children,omitempty" yaml:"children,omitempty"`
	Text      *string    `json:"text,omitempty" yaml:"text,omitempty"`
	Dynamic   *int       `json:"dynamic,omitempty" yaml:"dynamic,omitempty"`
}

type wireTemplate struct {
	Name  string     `json:"name" yaml:"name"`
	Roots []wireNode `json:"roots" yaml:"roots"`
}

func nodeToWire(n Node) wireNode {
	switch n := n.(type) {
	case *Element:
		w := wireNode{Element: n.Tag, Namespace: n.Namespace, Attrs: n.Attrs}
		for _, c := range n.Children {
			w.Children = append(w.Children, nodeToWire(c))
		}
		return w
	case *StaticText:
		return wireNode{Text: ptr(n.Text)}
	case *DynamicSlot:
		return wireNode{Dynamic: ptr(n.Index)}
	}
	panic(fmt.Sprintf("unexpected node type %T", n))
}

func nodeFromWire(w wireNode) (Node, error) {
	set := 0
	if w.Element != "" {
		set++
	}
	if w.Text != nil {
		set++
	}
	if w.Dynamic != nil {
		set++
	}
	if set != 1 {
		return nil, errors.New("node must have exactly one of element, text and dynamic")
	}
	switch {
	case w.Text != nil:
		return &StaticText{*w.Text}, nil
	case w.Dynamic != nil:
		return &DynamicSlot{*w.Dynamic}, nil
	}
	e := &Element{Tag: w.Element, Namespace: w.Namespace, Attrs: w.Attrs}
	for _, wc := range w.Children {
		c, err := nodeFromWire(wc)
		if err != nil {
			return nil, err
		}
		e.Children = append(e.Children, c)
	}
	return e, nil
}

func (t Template) toWire() wireTemplate {
	w := wireTemplate{Name: t.Name, Roots: make([]wireNode, len(t.Roots))}
	for i, n := range t.Roots {
		w.Roots[i] = nodeToWire(n)
	}
	return w
}

func (t *Template) fromWire(w wireTemplate) error {
	if w.Name == "" {
		return errors.New("template has no name")
	}
	roots := make([]Node, len(w.Roots))
	for i, wn := range w.Roots {
		n, err := nodeFromWire(wn)
		if err != nil {
			return fmt.Errorf("template %s root %d: %w", w.Name, i, err)
		}
		roots[i] = n
	}
	*t = Template{Name: w.Name, Roots: roots}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Template) MarshalJSON() ([]byte, error) { return json.Marshal(t.toWire()) }

// UnmarshalJSON implements json.Unmarshaler.
func (t *Template) UnmarshalJSON(data []byte) error {
	var w wireTemplate
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	return t.fromWire(w)
}

// MarshalYAML implements yaml.Marshaler.
func (t Template) MarshalYAML() (any, error) { return t.toWire(), nil }

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Template) UnmarshalYAML(value *yaml.Node) error {
	var w wireTemplate
	if err := value.Decode(&w); err != nil {
		return err
	}
	if err := t.fromWire(w); err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	return nil
}
