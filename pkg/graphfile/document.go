// Package graphfile reads, writes and renders persisted editor graphs.
package graphfile

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ha1tch/fsm-canvas/pkg/geom"
	"github.com/ha1tch/fsm-canvas/pkg/graph"
)

// Document is the persisted form of a graph. Rendering references and the
// transition in progress are never stored.
type Document struct {
	Starting    *string            `json:"starting"`
	States      []StateRecord      `json:"states"`
	Transitions []TransitionRecord `json:"transitions"`
}

type StateRecord struct {
	ID       graph.ID   `json:"id"`
	Ending   bool       `json:"ending"`
	Location geom.Point `json:"location"`
}

type TransitionRecord struct {
	ID     graph.ID       `json:"id"`
	Start  graph.Endpoint `json:"start"`
	End    graph.Endpoint `json:"end"`
	Symbol string         `json:"symbol"`
}

// FromGraph captures the persistent part of g.
func FromGraph(g graph.Graph) Document {
	d := Document{
		States:      make([]StateRecord, 0, len(g.States)),
		Transitions: make([]TransitionRecord, 0, len(g.Transitions)),
	}
	if g.Starting != nil {
		s := *g.Starting
		d.Starting = &s
	}
	for _, s := range g.States {
		d.States = append(d.States, StateRecord{ID: s.ID, Ending: s.Ending, Location: s.Location})
	}
	for _, t := range g.Transitions {
		d.Transitions = append(d.Transitions, TransitionRecord{
			ID:     t.ID,
			Start:  t.Start,
			End:    t.End,
			Symbol: t.Symbol,
		})
	}
	return d
}

// Graph rebuilds a graph from d by feeding it through the reducer, so
// unassigned ids are allocated and a start naming no state is dropped.
func (d Document) Graph() graph.Graph {
	var add graph.Add
	for _, s := range d.States {
		add.States = append(add.States, graph.PatchFromState(graph.State{
			ID:       s.ID,
			Ending:   s.Ending,
			Location: s.Location,
		}))
	}
	for _, t := range d.Transitions {
		add.Transitions = append(add.Transitions, graph.PatchFromTransition(graph.Transition{
			ID:     t.ID,
			Start:  t.Start,
			End:    t.End,
			Symbol: t.Symbol,
		}))
	}

	g := graph.Reduce(graph.Blank(), add)
	return graph.Reduce(g, graph.SetStart{ID: d.Starting})
}

// Apply replaces the contents of s with d as a single undoable change.
func (d Document) Apply(s *graph.Store) {
	s.Replace(d.Graph())
}

// StateIDs returns the assigned state ids in order.
func (d Document) StateIDs() []string {
	ids := make([]string, 0, len(d.States))
	for _, s := range d.States {
		if v, ok := s.ID.Value(); ok {
			ids = append(ids, v)
		}
	}
	return ids
}

// Validate reports every structural problem in d.
func (d Document) Validate() error {
	var errs []error

	states := make(map[string]bool)
	for i, s := range d.States {
		id, ok := s.ID.Value()
		if !ok {
			continue
		}
		if states[id] {
			errs = append(errs, fmt.Errorf("state %d: duplicate id %q", i, id))
		}
		states[id] = true
	}

	transitions := make(map[string]bool)
	for i, t := range d.Transitions {
		if id, ok := t.ID.Value(); ok {
			if transitions[id] {
				errs = append(errs, fmt.Errorf("transition %d: duplicate id %q", i, id))
			}
			transitions[id] = true
		}
		if !states[t.Start.State] {
			errs = append(errs, fmt.Errorf("transition %s: start state %q not found", t.ID, t.Start.State))
		}
		if !states[t.End.State] {
			errs = append(errs, fmt.Errorf("transition %s: end state %q not found", t.ID, t.End.State))
		}
	}

	if d.Starting != nil && !states[*d.Starting] {
		errs = append(errs, fmt.Errorf("starting state %q not found", *d.Starting))
	}

	return errors.Join(errs...)
}

// ParseJSON parses a document from JSON.
func ParseJSON(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("parse graph: %w", err)
	}
	if d.States == nil {
		d.States = []StateRecord{}
	}
	if d.Transitions == nil {
		d.Transitions = []TransitionRecord{}
	}
	return d, nil
}

// ToJSON converts a document to JSON.
func ToJSON(d Document, pretty bool) ([]byte, error) {
	if d.States == nil {
		d.States = []StateRecord{}
	}
	if d.Transitions == nil {
		d.Transitions = []TransitionRecord{}
	}
	if pretty {
		return json.MarshalIndent(d, "", "  ")
	}
	return json.Marshal(d)
}
