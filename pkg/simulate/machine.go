// Package simulate turns editor graphs into simulation requests and talks to
// the /simulate endpoint that runs them.
package simulate

import (
	"strings"

	"github.com/ha1tch/fsm-canvas/pkg/fsm"
	"github.com/ha1tch/fsm-canvas/pkg/graph"
)

// MachineType is the only machine kind the editor produces.
const MachineType = string(fsm.TypeDFA)

// PreppedMachine is the request payload of a simulation.
type PreppedMachine struct {
	Type        string              `json:"Type"`
	Alphabet    string              `json:"Alphabet"`
	Start       string              `json:"Start"`
	States      []PreppedState      `json:"States"`
	Transitions []PreppedTransition `json:"Transitions"`
}

type PreppedState struct {
	Id     string `json:"Id"`
	Ending bool   `json:"Ending"`
}

type PreppedTransition struct {
	Start  string `json:"Start"`
	End    string `json:"End"`
	Symbol string `json:"Symbol"`
}

// SimulationResponse is the outcome of running a tape.
type SimulationResponse struct {
	Accepted       bool     `json:"Accepted"`
	Path           []string `json:"Path"`
	RemainingInput string   `json:"RemainingInput"`
}

// PrepareMachine converts g into a simulation payload. The alphabet is every
// distinct symbol character in first-seen order.
func PrepareMachine(g graph.Graph) PreppedMachine {
	m := PreppedMachine{
		Type:        MachineType,
		Start:       g.StartID(),
		States:      make([]PreppedState, 0, len(g.States)),
		Transitions: make([]PreppedTransition, 0, len(g.Transitions)),
	}

	var alpha strings.Builder
	for _, t := range g.Transitions {
		for _, r := range t.Symbol {
			if !strings.ContainsRune(alpha.String(), r) {
				alpha.WriteRune(r)
			}
		}
		m.Transitions = append(m.Transitions, PreppedTransition{
			Start:  t.Start.State,
			End:    t.End.State,
			Symbol: t.Symbol,
		})
	}
	m.Alphabet = alpha.String()

	for _, s := range g.States {
		id, _ := s.ID.Value()
		m.States = append(m.States, PreppedState{Id: id, Ending: s.Ending})
	}
	return m
}

// Machine builds the runnable model of m. Transitions without a symbol are
// left out since they can never be taken.
func (m PreppedMachine) Machine() *fsm.FSM {
	f := fsm.New(fsm.Type(m.Type))
	f.AddInput(m.Alphabet)
	for _, s := range m.States {
		f.AddState(s.Id)
		if s.Ending {
			f.SetAccepting(s.Id)
		}
	}
	f.SetInitial(m.Start)
	for _, t := range m.Transitions {
		if t.Symbol == "" {
			continue
		}
		f.AddTransition(t.Start, t.End, t.Symbol)
	}
	return f
}

// Run simulates tape locally.
func (m PreppedMachine) Run(tape string) (SimulationResponse, error) {
	r, err := fsm.NewRunner(m.Machine())
	if err != nil {
		return SimulationResponse{}, err
	}
	res, err := r.Run(tape)
	if err != nil {
		return SimulationResponse{}, err
	}
	return SimulationResponse{
		Accepted:       res.Accepted,
		Path:           res.Path,
		RemainingInput: res.RemainingInput,
	}, nil
}
