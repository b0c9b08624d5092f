package graph

import (
	"reflect"
	"slices"
)

// change records which parts of a graph an action touched.
type change uint8

const (
	changedModel     change = 1 << iota // states, transitions or start
	changedTransient                    // transition in progress
	changedView                         // size or root
)

// Reduce applies a to g and returns the resulting graph. It never fails:
// nil or malformed actions return g unchanged.
func Reduce(g Graph, a Action) Graph {
	out, _ := reduce(g, a)
	return out
}

func reduce(g Graph, a Action) (Graph, change) {
	switch a := a.(type) {
	case Add:
		return reduceAdd(g, a)
	case *Add:
		if a != nil {
			return reduceAdd(g, *a)
		}
	case Remove:
		return reduceRemove(g, a)
	case *Remove:
		if a != nil {
			return reduceRemove(g, *a)
		}
	case Clear, *Clear:
		if len(g.States) == 0 && len(g.Transitions) == 0 {
			return g, 0
		}
		g.States = []State{}
		g.Transitions = []Transition{}
		return g, changedModel
	case SetStart:
		return reduceSetStart(g, a)
	case *SetStart:
		if a != nil {
			return reduceSetStart(g, *a)
		}
	case SetRoot:
		return reduceSetRoot(g, a)
	case *SetRoot:
		if a != nil {
			return reduceSetRoot(g, *a)
		}
	case SetSize:
		return reduceSetSize(g, a)
	case *SetSize:
		if a != nil {
			return reduceSetSize(g, *a)
		}
	}
	return g, 0
}

func reduceAdd(g Graph, a Add) (Graph, change) {
	if len(a.States) == 0 && len(a.Transitions) == 0 && a.TransitionInProgress == nil {
		return g, 0
	}
	var ch change
	if states, changed := upsertStates(g.States, a.States); changed {
		g.States = states
		ch |= changedModel
	}
	if transitions, changed := upsertTransitions(g.Transitions, a.Transitions); changed {
		g.Transitions = transitions
		ch |= changedModel
	}
	if p := a.TransitionInProgress; p != nil {
		g.TransitionInProgress = mergeTIP(g.TransitionInProgress, *p)
		ch |= changedTransient
	}
	return g, ch
}

// upsertStates merges patches into existing and reports whether any state
// was added or had a field changed. Unassigned patches never take an id
// that another patch of the batch names explicitly.
func upsertStates(existing []State, patches []StatePatch) ([]State, bool) {
	if len(patches) == 0 {
		return existing, false
	}
	out := slices.Clone(existing)
	ids := make([]string, 0, len(out)+len(patches))
	for _, s := range out {
		if v, ok := s.ID.Value(); ok {
			ids = append(ids, v)
		}
	}
	for _, p := range patches {
		if v, ok := p.ID.Value(); ok {
			ids = append(ids, v)
		}
	}

	changed := false
	for _, p := range patches {
		if v, ok := p.ID.Value(); ok {
			if i := indexOfState(out, v); i >= 0 {
				merged := mergeState(out[i], p)
				if !sameState(out[i], merged) {
					out[i] = merged
					changed = true
				}
				continue
			}
		} else {
			p.ID = Assigned(NextAvailableID(ids, StatePrefix))
			v, _ := p.ID.Value()
			ids = append(ids, v)
		}
		out = append(out, mergeState(State{ID: p.ID}, p))
		changed = true
	}
	return out, changed
}

// upsertTransitions is upsertStates for transitions.
func upsertTransitions(existing []Transition, patches []TransitionPatch) ([]Transition, bool) {
	if len(patches) == 0 {
		return existing, false
	}
	out := slices.Clone(existing)
	ids := make([]string, 0, len(out)+len(patches))
	for _, t := range out {
		if v, ok := t.ID.Value(); ok {
			ids = append(ids, v)
		}
	}
	for _, p := range patches {
		if v, ok := p.ID.Value(); ok {
			ids = append(ids, v)
		}
	}

	changed := false
	for _, p := range patches {
		if v, ok := p.ID.Value(); ok {
			if i := indexOfTransition(out, v); i >= 0 {
				merged := mergeTransition(out[i], p)
				if !sameTransition(out[i], merged) {
					out[i] = merged
					changed = true
				}
				continue
			}
		} else {
			p.ID = Assigned(NextAvailableID(ids, TransitionPrefix))
			v, _ := p.ID.Value()
			ids = append(ids, v)
		}
		out = append(out, mergeTransition(Transition{ID: p.ID}, p))
		changed = true
	}
	return out, changed
}

// sameState compares states field by field; boundary refs by identity.
func sameState(a, b State) bool {
	return a.ID == b.ID && a.Ending == b.Ending && a.Location == b.Location &&
		sameRef(a.Boundary, b.Boundary)
}

// sameTransition compares transitions field by field; line refs by identity.
func sameTransition(a, b Transition) bool {
	return a.ID == b.ID && a.Start == b.Start && a.End == b.End &&
		a.Symbol == b.Symbol && sameRef(a.Line, b.Line)
}

// sameModel reports whether a and b agree on every persisted field and on
// the boundary refs attached to their states.
func sameModel(a, b Graph) bool {
	if (a.Starting == nil) != (b.Starting == nil) || a.StartID() != b.StartID() ||
		len(a.States) != len(b.States) || len(a.Transitions) != len(b.Transitions) {
		return false
	}
	for i := range a.States {
		if !sameState(a.States[i], b.States[i]) {
			return false
		}
	}
	for i := range a.Transitions {
		if !sameTransition(a.Transitions[i], b.Transitions[i]) {
			return false
		}
	}
	return true
}

func indexOfState(states []State, id string) int {
	for i, s := range states {
		if v, ok := s.ID.Value(); ok && v == id {
			return i
		}
	}
	return -1
}

func indexOfTransition(transitions []Transition, id string) int {
	for i, t := range transitions {
		if v, ok := t.ID.Value(); ok && v == id {
			return i
		}
	}
	return -1
}

func mergeState(s State, p StatePatch) State {
	if p.Ending != nil {
		s.Ending = *p.Ending
	}
	if p.Location != nil {
		s.Location = *p.Location
	}
	if p.Boundary != nil {
		s.Boundary = p.Boundary
	}
	return s
}

func mergeTransition(t Transition, p TransitionPatch) Transition {
	if p.Start != nil {
		t.Start = *p.Start
	}
	if p.End != nil {
		t.End = *p.End
	}
	if p.Symbol != nil {
		t.Symbol = *p.Symbol
	}
	if p.Line != nil {
		t.Line = p.Line
	}
	return t
}

func mergeTIP(tip TransitionInProgress, p TIPPatch) TransitionInProgress {
	if p.Active != nil {
		tip.Active = *p.Active
	}
	if p.ClearStart {
		tip.Start = nil
	}
	if p.Start != nil {
		start := *p.Start
		tip.Start = &start
	}
	if p.End != nil {
		tip.End = *p.End
	}
	if p.Line != nil {
		tip.Line = p.Line
	}
	return tip
}

func reduceRemove(g Graph, a Remove) (Graph, change) {
	if len(a.IDs) == 0 {
		return g, 0
	}
	doomed := make(map[string]bool, len(a.IDs))
	for _, id := range a.IDs {
		doomed[id] = true
	}

	states := make([]State, 0, len(g.States))
	for _, s := range g.States {
		if v, ok := s.ID.Value(); ok && doomed[v] {
			continue
		}
		states = append(states, s)
	}

	transitions := make([]Transition, 0, len(g.Transitions))
	for _, t := range g.Transitions {
		v, ok := t.ID.Value()
		if (ok && doomed[v]) || doomed[t.Start.State] || doomed[t.End.State] {
			continue
		}
		transitions = append(transitions, t)
	}

	clearStart := g.Starting != nil && doomed[*g.Starting]
	if len(states) == len(g.States) && len(transitions) == len(g.Transitions) && !clearStart {
		return g, 0
	}

	g.States = states
	g.Transitions = transitions
	if clearStart {
		g.Starting = nil
	}
	return g, changedModel
}

func reduceSetStart(g Graph, a SetStart) (Graph, change) {
	var next *string
	if a.ID != nil && g.StateIndex(*a.ID) >= 0 {
		next = strPtr(*a.ID)
	}
	if g.StartID() == "" && next == nil {
		return g, 0
	}
	if next != nil && g.IsStart(*next) {
		return g, 0
	}
	g.Starting = next
	return g, changedModel
}

func reduceSetRoot(g Graph, a SetRoot) (Graph, change) {
	if sameRef(g.Root, a.Root) {
		return g, 0
	}
	g.Root = a.Root
	return g, changedView
}

func reduceSetSize(g Graph, a SetSize) (Graph, change) {
	next := g.Size
	switch {
	case a.Size != nil:
		next = *a.Size
	case a.Update != nil:
		next = a.Update(g.Size)
	default:
		return g, 0
	}
	if next.Equal(g.Size) {
		return g, 0
	}
	g.Size = next
	return g, changedView
}

// sameRef reports identity of two renderer handles without panicking on
// handles whose dynamic type is not comparable.
func sameRef(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
