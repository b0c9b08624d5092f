package fsm

import "sort"

// UnreachableStates returns the states that cannot be reached from the
// initial state, in declaration order.
func (f *FSM) UnreachableStates() []string {
	reached := map[string]bool{f.Initial: true}
	queue := []string{f.Initial}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, t := range f.Transitions {
			if t.From == s && t.Symbol != "" && !reached[t.To] {
				reached[t.To] = true
				queue = append(queue, t.To)
			}
		}
	}

	var out []string
	for _, s := range f.States {
		if !reached[s] {
			out = append(out, s)
		}
	}
	return out
}

// DeadStates returns the non-accepting states with no way out.
func (f *FSM) DeadStates() []string {
	var out []string
	for _, s := range f.States {
		if f.IsAccepting(s) {
			continue
		}
		escapes := false
		for _, t := range f.Transitions {
			if t.From == s && t.To != s && t.Symbol != "" {
				escapes = true
				break
			}
		}
		if !escapes {
			out = append(out, s)
		}
	}
	return out
}

// NonDeterministicStates returns the states with more than one target for
// some input symbol.
func (f *FSM) NonDeterministicStates() []string {
	var out []string
	for _, s := range f.States {
		for _, r := range f.Alphabet {
			if len(targets(f.GetTransitions(s, r))) > 1 {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// IncompleteStates maps each state lacking a transition for some symbol to
// the missing symbols, in alphabet order.
func (f *FSM) IncompleteStates() map[string][]rune {
	out := make(map[string][]rune)
	for _, s := range f.States {
		for _, r := range f.Alphabet {
			if len(f.GetTransitions(s, r)) == 0 {
				out[s] = append(out[s], r)
			}
		}
	}
	return out
}

// targets returns the distinct, sorted destinations of ts.
func targets(ts []Transition) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range ts {
		if !seen[t.To] {
			seen[t.To] = true
			out = append(out, t.To)
		}
	}
	sort.Strings(out)
	return out
}
