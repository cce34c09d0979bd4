package bridge

import (
	"errors"
	"strings"

	"src.vbridge.sh/pkg/attr"
	"src.vbridge.sh/pkg/logutil"
	"src.vbridge.sh/pkg/retained"
	"src.vbridge.sh/pkg/vdom"
)

// DefaultTags maps element tags to blueprints.
var DefaultTags = map[string]retained.Blueprint{
	"div":    retained.View,
	"p":      retained.Label,
	"span":   retained.Label,
	"label":  retained.Label,
	"h1":     retained.Heading1,
	"h2":     retained.Heading3,
	"h3":     retained.Heading3,
	"button": retained.Button,
}

// TemplateHandle refers to a registered template.
type TemplateHandle struct {
	tmpl *vdom.Template
}

// Name returns the name of the template.
func (h TemplateHandle) Name() string { return h.tmpl.Name }

// Roots returns the number of roots of the template.
func (h TemplateHandle) Roots() int { return len(h.tmpl.Roots) }

// Registry is the template registry.
type Registry struct {
	tags      map[string]retained.Blueprint
	templates map[string]*vdom.Template
}

// NewRegistry creates a registry. The tag table overrides and extends
// DefaultTags.
func NewRegistry(tags map[string]retained.Blueprint) *Registry {
	merged := make(map[string]retained.Blueprint, len(DefaultTags)+len(tags))
	for tag, bp := range DefaultTags {
		merged[tag] = bp
	}
	for tag, bp := range tags {
		merged[strings.ToLower(tag)] = bp
	}
	return &Registry{tags: merged, templates: make(map[string]*vdom.Template)}
}

// Register adds a template, replacing any template with the same name for
// future instantiations.
func (r *Registry) Register(t vdom.Template) TemplateHandle {
	tmpl := t
	r.templates[t.Name] = &tmpl
	return TemplateHandle{&tmpl}
}

// Lookup finds a registered template.
func (r *Registry) Lookup(name string) (TemplateHandle, bool) {
	t, ok := r.templates[name]
	return TemplateHandle{t}, ok
}

// Len returns the number of registered templates.
func (r *Registry) Len() int { return len(r.templates) }

// Reset forgets all templates.
func (r *Registry) Reset() { clear(r.templates) }

// Blueprint returns the blueprint for an element tag.
func (r *Registry) Blueprint(tag string) (retained.Blueprint, bool) {
	bp, ok := r.tags[strings.ToLower(tag)]
	return bp, ok
}

// Instantiate creates the native widgets for one root of a template and binds
// a record for each of them at its path in the table, under a new
// instantiation number. It returns the instantiation number and the records,
// the one for the root first. On error, the records created so far are
// returned so that the caller can release them.
//
// The widgets are created detached from the live tree. Children are attached
// to their template parents, both natively and in the table.
func (r *Registry) Instantiate(b retained.Backend, t *Table, h TemplateHandle, rootIndex int, parent retained.Handle) (int, []*NodeRecord, error) {
	if rootIndex < 0 || rootIndex >= len(h.tmpl.Roots) {
		return 0, nil, kindError(ErrUnknownTemplate,
			"template %s has no root %d", h.tmpl.Name, rootIndex)
	}
	in := &instantiation{r: r, b: b, t: t, instance: t.NewInstance(), parent: parent}
	if _, err := in.node(h.tmpl.Roots[rootIndex], vdom.Path{rootIndex}); err != nil {
		return 0, in.records, err
	}
	return in.instance, in.records, nil
}

type instantiation struct {
	r        *Registry
	b        retained.Backend
	t        *Table
	instance int
	parent   retained.Handle
	records  []*NodeRecord
}

func (in *instantiation) create(bp retained.Blueprint, path vdom.Path) (*NodeRecord, error) {
	h, err := in.b.CreateWidget(bp, in.parent)
	if err != nil {
		return nil, &Error{Kind: ErrBackend, Index: -1, Path: path, Err: err}
	}
	rec := in.t.BindPath(in.instance, path, h, bp)
	in.records = append(in.records, rec)
	return rec, nil
}

func (in *instantiation) setText(rec *NodeRecord, text string) error {
	if text == "" {
		return nil
	}
	if err := in.b.SetText(rec.Handle, text); err != nil {
		return &Error{Kind: ErrBackend, Index: -1, Path: rec.Path, Err: err}
	}
	return nil
}

func (in *instantiation) node(n vdom.Node, path vdom.Path) (*NodeRecord, error) {
	switch n := n.(type) {
	case *vdom.StaticText:
		rec, err := in.create(retained.Text, path)
		if err != nil {
			return nil, err
		}
		return rec, in.setText(rec, n.Text)
	case *vdom.DynamicSlot:
		return in.create(retained.Text, path)
	case *vdom.Element:
		return in.element(n, path)
	}
	return nil, kindError(ErrUnknownTemplate, "unexpected node %T", n)
}

func (in *instantiation) element(e *vdom.Element, path vdom.Path) (*NodeRecord, error) {
	// An unknown tag becomes a placeholder, which takes no space of its own
	// but keeps the path bound and holds the descendants.
	bp, known := in.r.Blueprint(e.Tag)
	if !known {
		logutil.Log(logger, "unknown tag", logutil.Fields{"tag": e.Tag, "path": path})
		bp = retained.Placeholder
	}

	rec, err := in.create(bp, path)
	if err != nil {
		return nil, err
	}
	attrs := e.Attrs
	if !known {
		attrs = nil
	}
	for _, a := range attrs {
		err := attr.Apply(in.b, rec.Handle, a.Name, a.Value, a.Namespace)
		if err != nil {
			if !errors.Is(err, attr.ErrMalformedLength) {
				return nil, &Error{Kind: ErrBackend, Index: -1, Path: path, Err: err}
			}
			logutil.Log(logger, "attribute skipped",
				logutil.Fields{"path": path, "attr": a.Name, "err": err})
		}
	}

	if bp.TextBearing() {
		var sb strings.Builder
		for i, c := range e.Children {
			cp := childPath(path, i)
			switch c := c.(type) {
			case *vdom.StaticText:
				sb.WriteString(c.Text)
				in.t.AliasPath(in.instance, cp, rec)
			case *vdom.DynamicSlot:
				in.t.AliasPath(in.instance, cp, rec)
			default:
				logutil.Log(logger, "element inside text widget skipped",
					logutil.Fields{"path": cp})
			}
		}
		return rec, in.setText(rec, sb.String())
	}

	var children []*NodeRecord
	for i, c := range e.Children {
		crec, err := in.node(c, childPath(path, i))
		if err != nil {
			return nil, err
		}
		children = append(children, crec)
	}
	if len(children) == 0 {
		return rec, nil
	}
	handles := make([]retained.Handle, len(children))
	for i, c := range children {
		handles[i] = c.Handle
	}
	if err := in.b.AttachChildren(rec.Handle, handles, retained.AppendPosition); err != nil {
		return nil, &Error{Kind: ErrBackend, Index: -1, Path: path, Err: err}
	}
	if err := in.t.Attach(rec, retained.AppendPosition, children); err != nil {
		return nil, err
	}
	return rec, nil
}

func childPath(path vdom.Path, i int) vdom.Path {
	p := make(vdom.Path, len(path), len(path)+1)
	copy(p, path)
	return append(p, i)
}
