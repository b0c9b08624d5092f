package fsm

import (
	"fmt"
	"strings"
)

// NondeterministicError reports a step with more than one possible target.
type NondeterministicError struct {
	State   string
	Symbol  rune
	Targets []string
}

func (e *NondeterministicError) Error() string {
	return fmt.Sprintf("state %s has %d transitions on %q: %s",
		e.State, len(e.Targets), e.Symbol, strings.Join(e.Targets, ", "))
}

// Runner executes an FSM one symbol at a time.
type Runner struct {
	fsm     *FSM
	current string
	history []Step
}

// Step records one step of execution.
type Step struct {
	FromState string
	Input     rune
	ToState   string
}

// Result is the outcome of running a whole tape.
type Result struct {
	Accepted       bool
	Path           []string
	RemainingInput string
}

// NewRunner creates a runner for the given FSM.
func NewRunner(f *FSM) (*Runner, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid FSM: %w", err)
	}
	return &Runner{
		fsm:     f,
		current: f.Initial,
		history: make([]Step, 0),
	}, nil
}

// CurrentState returns the current state.
func (r *Runner) CurrentState() string {
	return r.current
}

// IsAccepting returns true if the current state is accepting.
func (r *Runner) IsAccepting() bool {
	return r.fsm.IsAccepting(r.current)
}

// AvailableInputs returns the symbols that lead somewhere from the current
// state, in alphabet order.
func (r *Runner) AvailableInputs() []rune {
	var inputs []rune
	for _, a := range r.fsm.Alphabet {
		if len(r.fsm.GetTransitions(r.current, a)) > 0 {
			inputs = append(inputs, a)
		}
	}
	return inputs
}

// Step consumes one symbol. ok is false when no transition consumes it, in
// which case the runner does not move.
func (r *Runner) Step(input rune) (ok bool, err error) {
	next := targets(r.fsm.GetTransitions(r.current, input))
	switch len(next) {
	case 0:
		return false, nil
	case 1:
	default:
		return false, &NondeterministicError{State: r.current, Symbol: input, Targets: next}
	}

	r.history = append(r.history, Step{FromState: r.current, Input: input, ToState: next[0]})
	r.current = next[0]
	return true, nil
}

// Reset returns the runner to the initial state.
func (r *Runner) Reset() {
	r.current = r.fsm.Initial
	r.history = make([]Step, 0)
}

// History returns the execution history.
func (r *Runner) History() []Step {
	return r.history
}

// Path returns the visited states, starting with the initial state.
func (r *Runner) Path() []string {
	path := []string{r.fsm.Initial}
	for _, s := range r.history {
		path = append(path, s.ToState)
	}
	return path
}

// Run resets the runner and consumes tape. Running stops at the first
// symbol with no transition; the tape is then rejected and the unconsumed
// suffix is reported.
func (r *Runner) Run(tape string) (Result, error) {
	r.Reset()
	for i, c := range tape {
		ok, err := r.Step(c)
		if err != nil {
			return Result{Path: r.Path(), RemainingInput: tape[i:]}, err
		}
		if !ok {
			return Result{Accepted: false, Path: r.Path(), RemainingInput: tape[i:]}, nil
		}
	}
	return Result{Accepted: r.IsAccepting(), Path: r.Path()}, nil
}

// Status returns a status string for the current state.
func (r *Runner) Status() string {
	status := fmt.Sprintf("State: %s", r.current)
	if r.IsAccepting() {
		status += " [accepting]"
	}
	return status
}
