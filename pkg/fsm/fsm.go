// Package fsm provides the machine model that the editor's graphs are
// simulated as, and a runner that feeds a tape through it.
package fsm

import (
	"fmt"
	"strings"
)

// Type represents the kind of FSM.
type Type string

const (
	TypeDFA Type = "DFA"
)

// Transition represents a state transition. Symbol lists the characters the
// transition consumes; an empty Symbol consumes nothing.
type Transition struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Symbol string `json:"symbol"`
}

// Matches reports whether the transition consumes r.
func (t Transition) Matches(r rune) bool {
	return strings.ContainsRune(t.Symbol, r)
}

// FSM represents a finite state machine.
type FSM struct {
	Type        Type         `json:"type"`
	States      []string     `json:"states"`
	Alphabet    []rune       `json:"alphabet"`
	Initial     string       `json:"initial"`
	Accepting   []string     `json:"accepting"`
	Transitions []Transition `json:"transitions"`
}

// New creates a new FSM with the given type.
func New(t Type) *FSM {
	return &FSM{
		Type:        t,
		States:      make([]string, 0),
		Alphabet:    make([]rune, 0),
		Accepting:   make([]string, 0),
		Transitions: make([]Transition, 0),
	}
}

// AddState adds a state to the FSM.
func (f *FSM) AddState(name string) {
	if f.StateIndex(name) >= 0 {
		return
	}
	f.States = append(f.States, name)
}

// AddInput adds every character of symbols to the alphabet.
func (f *FSM) AddInput(symbols string) {
	for _, r := range symbols {
		if !f.InAlphabet(r) {
			f.Alphabet = append(f.Alphabet, r)
		}
	}
}

// AddTransition adds a transition to the FSM.
func (f *FSM) AddTransition(from, to, symbol string) {
	f.Transitions = append(f.Transitions, Transition{From: from, To: to, Symbol: symbol})
}

// SetInitial sets the initial state.
func (f *FSM) SetInitial(state string) {
	f.Initial = state
}

// SetAccepting marks a state as accepting.
func (f *FSM) SetAccepting(state string) {
	if !f.IsAccepting(state) {
		f.Accepting = append(f.Accepting, state)
	}
}

// Validate checks if the FSM is well-formed.
func (f *FSM) Validate() error {
	if f.Type != TypeDFA {
		return fmt.Errorf("unsupported machine type %q", f.Type)
	}

	if len(f.States) == 0 {
		return fmt.Errorf("FSM has no states")
	}

	if f.Initial == "" {
		return fmt.Errorf("FSM has no initial state")
	}

	if f.StateIndex(f.Initial) < 0 {
		return fmt.Errorf("initial state %q not in states", f.Initial)
	}

	for _, acc := range f.Accepting {
		if f.StateIndex(acc) < 0 {
			return fmt.Errorf("accepting state %q not in states", acc)
		}
	}

	for i, t := range f.Transitions {
		if f.StateIndex(t.From) < 0 {
			return fmt.Errorf("transition %d: from state %q not in states", i, t.From)
		}
		if f.StateIndex(t.To) < 0 {
			return fmt.Errorf("transition %d: to state %q not in states", i, t.To)
		}
		for _, r := range t.Symbol {
			if !f.InAlphabet(r) {
				return fmt.Errorf("transition %d: symbol %q not in alphabet", i, r)
			}
		}
	}

	return nil
}

// StateIndex returns the index of a state, or -1 if not found.
func (f *FSM) StateIndex(state string) int {
	for i, s := range f.States {
		if s == state {
			return i
		}
	}
	return -1
}

// InAlphabet reports whether r is an input symbol.
func (f *FSM) InAlphabet(r rune) bool {
	for _, a := range f.Alphabet {
		if a == r {
			return true
		}
	}
	return false
}

// IsAccepting returns true if the state is an accepting state.
func (f *FSM) IsAccepting(state string) bool {
	for _, acc := range f.Accepting {
		if acc == state {
			return true
		}
	}
	return false
}

// GetTransitions returns all transitions from a state that consume r.
func (f *FSM) GetTransitions(from string, r rune) []Transition {
	var result []Transition
	for _, t := range f.Transitions {
		if t.From == from && t.Matches(r) {
			result = append(result, t)
		}
	}
	return result
}

// String returns a string representation of the FSM.
func (f *FSM) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("FSM[%s]\n", f.Type))
	sb.WriteString(fmt.Sprintf("  States: %v\n", f.States))
	sb.WriteString(fmt.Sprintf("  Alphabet: %q\n", string(f.Alphabet)))
	sb.WriteString(fmt.Sprintf("  Initial: %s\n", f.Initial))
	sb.WriteString(fmt.Sprintf("  Accepting: %v\n", f.Accepting))
	sb.WriteString(fmt.Sprintf("  Transitions: %d\n", len(f.Transitions)))
	return sb.String()
}
