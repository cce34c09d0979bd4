// Package script implements a virtual-tree engine that replays batches from a
// YAML program.
//
// A program lists templates, the initial batch and handlers. A handler answers
// an event on a node with its batches in order, one per event; when they are
// exhausted it answers with empty batches, or starts over if it cycles:
//
//	templates:
//	  - name: counter
//	    roots:
//	      - element: div
//	        children:
//	          - element: h1
//	            children: [{dynamic: 0}]
//	          - element: button
//	            children: [{text: "+"}]
//	initial:
//	  - {type: LoadTemplate, name: counter, index: 0}
//	  - {type: HydrateText, path: [0, 0], value: "Count: 0", id: 1}
//	  - {type: AssignId, path: [1], id: 2}
//	  - {type: NewEventListener, name: click, id: 2}
//	  - {type: AppendChildren, id: 0, m: 1}
//	handlers:
//	  - event: click
//	    id: 2
//	    batches:
//	      - [{type: SetText, id: 1, value: "Count: 1"}]
package script

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"src.vbridge.sh/pkg/logutil"
	"src.vbridge.sh/pkg/vdom"
)

var logger = logutil.GetLogger("[engine/script] ")

// Program is a parsed program.
type Program struct {
	Templates []vdom.Template `yaml:"templates"`
	Initial   vdom.Edits      `yaml:"initial"`
	Handlers  []Handler       `yaml:"handlers"`
}

// Handler answers one event on one node.
type Handler struct {
	Event   string       `yaml:"event"`
	ID      vdom.ID      `yaml:"id"`
	Cycle   bool         `yaml:"cycle"`
	Batches []vdom.Edits `yaml:"batches"`
}

// Parse parses a program.
func Parse(data []byte) (*Program, error) {
	var p Program
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	names := make(map[string]bool)
	for _, t := range p.Templates {
		if names[t.Name] {
			return nil, fmt.Errorf("template %s defined twice", t.Name)
		}
		names[t.Name] = true
	}
	events := make(map[vdom.Event]bool)
	for _, h := range p.Handlers {
		ev := vdom.Event{Name: h.Event, ID: h.ID}
		if h.Event == "" {
			return nil, fmt.Errorf("handler for id %d has no event", h.ID)
		}
		if events[ev] {
			return nil, fmt.Errorf("more than one handler for %v", ev)
		}
		events[ev] = true
	}
	return &p, nil
}

// Load reads and parses a program file.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Engine replays a Program. It implements reconcile.Engine.
type Engine struct {
	prog     *Program
	handlers map[vdom.Event]*Handler
	next     map[vdom.Event]int
}

// New creates an Engine for a program.
func New(p *Program) *Engine {
	e := &Engine{prog: p, handlers: make(map[vdom.Event]*Handler)}
	for i := range p.Handlers {
		h := &p.Handlers[i]
		e.handlers[vdom.Event{Name: h.Event, ID: h.ID}] = h
	}
	e.rewind()
	return e
}

func (e *Engine) rewind() { e.next = make(map[vdom.Event]int) }

// InitialBatch returns all templates and the initial edits. It also rewinds
// all handlers, since the UI starts over.
func (e *Engine) InitialBatch(ctx context.Context) (vdom.Mutations, error) {
	if err := ctx.Err(); err != nil {
		return vdom.Mutations{}, err
	}
	e.rewind()
	return vdom.Mutations{Templates: e.prog.Templates, Edits: e.prog.Initial}, nil
}

// DispatchEvent returns the next batch of the handler for the event. Events
// without a handler get an empty batch.
func (e *Engine) DispatchEvent(ctx context.Context, ev vdom.Event) (vdom.Mutations, error) {
	if err := ctx.Err(); err != nil {
		return vdom.Mutations{}, err
	}
	h, ok := e.handlers[ev]
	if !ok {
		logutil.Log(logger, "no handler", logutil.Fields{"event": ev})
		return vdom.Mutations{}, nil
	}
	i := e.next[ev]
	if i >= len(h.Batches) {
		if !h.Cycle || len(h.Batches) == 0 {
			return vdom.Mutations{}, nil
		}
		i = 0
	}
	e.next[ev] = i + 1
	return vdom.Mutations{Edits: h.Batches[i]}, nil
}
