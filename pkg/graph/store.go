package graph

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/ha1tch/fsm-canvas/pkg/geom"
)

// DefaultHistory is the number of undo levels a Store keeps.
const DefaultHistory = 50

// Reasons CompleteTransition adds nothing.
var (
	ErrNoTransitionInProgress = errors.New("no transition in progress")
	ErrUnknownState           = errors.New("unknown state")
	ErrTransitionExists       = errors.New("transition already exists")
)

// Store owns the current graph snapshot. Dispatches are applied one at a
// time, so the sequence of snapshots is totally ordered. Subscribers are
// called after each dispatch that produced a different snapshot, outside
// the store's lock, in subscription order.
type Store struct {
	mu      sync.Mutex
	graph   Graph
	logger  *slog.Logger
	subs    []subscriber
	nextSub int

	maxHistory  int
	undo        []Graph
	redo        []Graph
	gesture     bool
	gestureBase Graph
}

type subscriber struct {
	id int
	fn func(Graph)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for dispatch tracing.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHistory sets the number of undo levels. Zero disables undo.
func WithHistory(n int) StoreOption {
	return func(s *Store) {
		if n >= 0 {
			s.maxHistory = n
		}
	}
}

// WithGraph sets the initial snapshot.
func WithGraph(g Graph) StoreOption {
	return func(s *Store) {
		s.graph = g
	}
}

// NewStore returns a store holding a blank graph.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		graph:      Blank(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxHistory: DefaultHistory,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current graph.
func (s *Store) Snapshot() Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph
}

// Subscribe registers fn to receive every new snapshot. The returned
// function cancels the subscription.
func (s *Store) Subscribe(fn func(Graph)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Dispatch applies a to the current graph and returns the new snapshot.
func (s *Store) Dispatch(a Action) Graph {
	s.mu.Lock()
	prev := s.graph
	next, ch := reduce(prev, a)
	if ch == 0 {
		s.mu.Unlock()
		return prev
	}
	if ch&changedModel != 0 && !s.gesture {
		s.pushUndo(prev)
	}
	s.graph = next
	subs := s.subscribers()
	s.mu.Unlock()

	if a != nil {
		s.logger.Debug("dispatch",
			"action", string(a.Type()),
			"states", len(next.States),
			"transitions", len(next.Transitions))
	}
	notify(subs, next)
	return next
}

func (s *Store) subscribers() []func(Graph) {
	fns := make([]func(Graph), len(s.subs))
	for i, sub := range s.subs {
		fns[i] = sub.fn
	}
	return fns
}

func notify(fns []func(Graph), g Graph) {
	for _, fn := range fns {
		fn(g)
	}
}

func (s *Store) pushUndo(g Graph) {
	s.redo = nil
	if s.maxHistory == 0 {
		return
	}
	s.undo = append(s.undo, g)
	if len(s.undo) > s.maxHistory {
		s.undo = s.undo[1:]
	}
}

// BeginGesture suspends history until EndGesture, so a drag that
// dispatches many moves undoes in one step.
func (s *Store) BeginGesture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gesture {
		return
	}
	s.gestureBase = s.graph
	s.gesture = true
}

// EndGesture resumes history recording. The graph as it was at
// BeginGesture becomes one undo level if the gesture changed the model.
func (s *Store) EndGesture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.gesture {
		return
	}
	s.gesture = false
	if !sameModel(s.gestureBase, s.graph) {
		s.pushUndo(s.gestureBase)
	}
	s.gestureBase = Graph{}
}

// CanUndo reports whether Undo would change the graph.
func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo) > 0
}

// CanRedo reports whether Redo would change the graph.
func (s *Store) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redo) > 0
}

// Undo restores the states, transitions and start state of the previous
// history entry. The viewport and transition in progress are kept.
func (s *Store) Undo() bool {
	return s.travel(&s.undo, &s.redo, "undo")
}

// Redo reapplies the last undone change.
func (s *Store) Redo() bool {
	return s.travel(&s.redo, &s.undo, "redo")
}

func (s *Store) travel(from, to *[]Graph, name string) bool {
	s.mu.Lock()
	if len(*from) == 0 {
		s.mu.Unlock()
		return false
	}
	target := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]
	*to = append(*to, s.graph)

	next := s.graph
	next.States = target.States
	next.Transitions = target.Transitions
	next.Starting = target.Starting
	s.graph = next
	subs := s.subscribers()
	s.mu.Unlock()

	s.logger.Debug(name, "states", len(next.States), "transitions", len(next.Transitions))
	notify(subs, next)
	return true
}

// DeleteElement removes a state or transition by id.
func (s *Store) DeleteElement(id string) Graph {
	return s.Dispatch(Remove{IDs: []string{id}})
}

// ModifyState upserts a single state.
func (s *Store) ModifyState(p StatePatch) Graph {
	return s.Dispatch(AddState(p))
}

// ModifyTransition upserts a single transition.
func (s *Store) ModifyTransition(p TransitionPatch) Graph {
	return s.Dispatch(AddTransition(p))
}

// SetStartState sets or, with nil, clears the start state.
func (s *Store) SetStartState(id *string) Graph {
	return s.Dispatch(SetStart{ID: id})
}

// SetRoot replaces the viewport reference.
func (s *Store) SetRoot(root ViewportRef) Graph {
	return s.Dispatch(SetRoot{Root: root})
}

// SetSize replaces the viewport size.
func (s *Store) SetSize(size geom.Size) Graph {
	return s.Dispatch(SetSize{Size: &size})
}

// SetTransitionInProgress patches the transition in progress.
func (s *Store) SetTransitionInProgress(p TIPPatch) Graph {
	return s.Dispatch(Add{TransitionInProgress: &p})
}

// BeginTransition starts drawing a transition from a state toward a client
// point. Unknown states are ignored.
func (s *Store) BeginTransition(stateID string, client geom.Point) Graph {
	if _, ok := s.Snapshot().State(stateID); !ok {
		return s.Snapshot()
	}
	active := true
	return s.SetTransitionInProgress(TIPPatch{
		Active:     &active,
		ClearStart: true,
		Start:      &Endpoint{State: stateID},
		End:        &client,
	})
}

// CancelTransition deactivates the transition in progress.
func (s *Store) CancelTransition() Graph {
	inactive := false
	origin := geom.Origin()
	return s.SetTransitionInProgress(TIPPatch{Active: &inactive, ClearStart: true, End: &origin})
}

// CompleteTransition turns the transition in progress into a real,
// unlabelled transition ending at targetID, then cancels the transition in
// progress. Nothing is added without an active start
// (ErrNoTransitionInProgress), for a start or target that is not in the
// graph (ErrUnknownState), or when an edge between the same pair already
// exists (ErrTransitionExists).
func (s *Store) CompleteTransition(targetID string) error {
	g := s.Snapshot()
	tip := g.TransitionInProgress
	defer s.CancelTransition()

	if !tip.Active || tip.Start == nil {
		return ErrNoTransitionInProgress
	}
	if _, ok := g.State(tip.Start.State); !ok {
		return ErrUnknownState
	}
	if _, ok := g.State(targetID); !ok {
		return ErrUnknownState
	}
	if g.HasTransitionBetween(tip.Start.State, targetID) {
		return ErrTransitionExists
	}
	start := *tip.Start
	end := Endpoint{State: targetID}
	empty := ""
	s.Dispatch(AddTransition(TransitionPatch{ID: Unassigned, Start: &start, End: &end, Symbol: &empty}))
	return nil
}

// Replace swaps in the states, transitions and start state of g as one
// undoable change, keeping the viewport. Replacing with an equal model is a
// no-op.
func (s *Store) Replace(g Graph) Graph {
	s.mu.Lock()
	prev := s.graph
	next := prev
	next.States = g.States
	next.Transitions = g.Transitions
	next.Starting = g.Starting
	if sameModel(prev, next) {
		s.mu.Unlock()
		return prev
	}
	if !s.gesture {
		s.pushUndo(prev)
	}
	s.graph = next
	subs := s.subscribers()
	s.mu.Unlock()

	s.logger.Debug("replace", "states", len(next.States), "transitions", len(next.Transitions))
	notify(subs, next)
	return next
}
