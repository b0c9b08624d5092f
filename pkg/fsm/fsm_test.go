package fsm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evenAs accepts strings over {a,b} with an even number of a's.
func evenAs() *FSM {
	f := New(TypeDFA)
	f.AddState("even")
	f.AddState("odd")
	f.AddInput("ab")
	f.SetInitial("even")
	f.SetAccepting("even")
	f.AddTransition("even", "odd", "a")
	f.AddTransition("odd", "even", "a")
	f.AddTransition("even", "even", "b")
	f.AddTransition("odd", "odd", "b")
	return f
}

func TestValidate(t *testing.T) {
	require.NoError(t, evenAs().Validate())

	tests := []struct {
		name   string
		mutate func(f *FSM)
		want   string
	}{
		{"type", func(f *FSM) { f.Type = "NFA" }, "unsupported machine type"},
		{"no states", func(f *FSM) { f.States = nil }, "no states"},
		{"no initial", func(f *FSM) { f.Initial = "" }, "no initial state"},
		{"unknown initial", func(f *FSM) { f.Initial = "zz" }, `initial state "zz"`},
		{"unknown accepting", func(f *FSM) { f.Accepting = []string{"zz"} }, `accepting state "zz"`},
		{"unknown from", func(f *FSM) { f.AddTransition("zz", "odd", "a") }, `from state "zz"`},
		{"unknown to", func(f *FSM) { f.AddTransition("odd", "zz", "a") }, `to state "zz"`},
		{"foreign symbol", func(f *FSM) { f.AddTransition("odd", "odd", "c") }, `symbol 'c'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := evenAs()
			tt.mutate(f)
			err := f.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAddIsIdempotent(t *testing.T) {
	f := New(TypeDFA)
	f.AddState("a")
	f.AddState("a")
	f.AddInput("xyx")
	f.SetAccepting("a")
	f.SetAccepting("a")
	assert.Equal(t, []string{"a"}, f.States)
	assert.Equal(t, []rune("xy"), f.Alphabet)
	assert.Equal(t, []string{"a"}, f.Accepting)
}

func TestRun(t *testing.T) {
	r, err := NewRunner(evenAs())
	require.NoError(t, err)

	tests := []struct {
		tape      string
		accepted  bool
		path      []string
		remaining string
	}{
		{"", true, []string{"even"}, ""},
		{"a", false, []string{"even", "odd"}, ""},
		{"abba", true, []string{"even", "odd", "odd", "odd", "even"}, ""},
		{"abca", false, []string{"even", "odd", "odd"}, "ca"},
	}
	for _, tt := range tests {
		t.Run(tt.tape, func(t *testing.T) {
			res, err := r.Run(tt.tape)
			require.NoError(t, err)
			assert.Equal(t, tt.accepted, res.Accepted)
			assert.Equal(t, tt.path, res.Path)
			assert.Equal(t, tt.remaining, res.RemainingInput)
		})
	}
}

func TestMultiCharacterSymbol(t *testing.T) {
	f := New(TypeDFA)
	f.AddState("q0")
	f.AddState("q1")
	f.AddInput("01")
	f.SetInitial("q0")
	f.SetAccepting("q1")
	f.AddTransition("q0", "q1", "01")

	r, err := NewRunner(f)
	require.NoError(t, err)
	for _, tape := range []string{"0", "1"} {
		res, err := r.Run(tape)
		require.NoError(t, err)
		assert.True(t, res.Accepted, tape)
	}
	r.Reset()
	assert.Equal(t, []rune("01"), r.AvailableInputs())
}

func TestRunNondeterministic(t *testing.T) {
	f := evenAs()
	f.AddTransition("even", "even", "a")

	r, err := NewRunner(f)
	require.NoError(t, err)
	res, err := r.Run("ba")

	var nd *NondeterministicError
	require.True(t, errors.As(err, &nd))
	assert.Equal(t, "even", nd.State)
	assert.Equal(t, 'a', nd.Symbol)
	assert.Equal(t, []string{"even", "odd"}, nd.Targets)
	assert.Equal(t, []string{"even", "even"}, res.Path)
	assert.Equal(t, "a", res.RemainingInput)
}

func TestDuplicateTargetIsDeterministic(t *testing.T) {
	f := evenAs()
	f.AddTransition("even", "odd", "a")
	r, err := NewRunner(f)
	require.NoError(t, err)
	res, err := r.Run("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"even", "odd"}, res.Path)
}

func TestRunnerStepAndStatus(t *testing.T) {
	r, err := NewRunner(evenAs())
	require.NoError(t, err)
	assert.Equal(t, "State: even [accepting]", r.Status())

	ok, err := r.Step('a')
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "odd", r.CurrentState())
	assert.Equal(t, "State: odd", r.Status())
	assert.Equal(t, []Step{{FromState: "even", Input: 'a', ToState: "odd"}}, r.History())

	ok, err = r.Step('z')
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "odd", r.CurrentState())

	r.Reset()
	assert.Equal(t, "even", r.CurrentState())
	assert.Empty(t, r.History())
}

func TestNewRunnerRejectsInvalid(t *testing.T) {
	_, err := NewRunner(New(TypeDFA))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid FSM")
}

func TestAnalysis(t *testing.T) {
	f := evenAs()
	f.AddState("island")
	f.AddState("trap")
	f.AddTransition("odd", "trap", "b")
	f.AddTransition("trap", "trap", "a")

	assert.Equal(t, []string{"island"}, f.UnreachableStates())
	assert.Equal(t, []string{"island", "trap"}, f.DeadStates())
	assert.Equal(t, []string{"odd"}, f.NonDeterministicStates())
	assert.Equal(t, map[string][]rune{
		"island": []rune("ab"),
		"trap":   []rune("b"),
	}, f.IncompleteStates())
}
