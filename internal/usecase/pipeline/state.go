package pipeline

import "fmt"

// State is a pipeline run's lifecycle position.
type State string

// Run states.
const (
	StateIdle           State = "idle"
	StateRetrieving     State = "retrieving"
	StateRanking        State = "ranking"
	StatePromptBuilding State = "prompt_building"
	StateGenerating     State = "generating"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

// next is the single forward transition out of each working state.
var next = map[State]State{
	StateIdle:           StateRetrieving,
	StateRetrieving:     StateRanking,
	StateRanking:        StatePromptBuilding,
	StatePromptBuilding: StateGenerating,
	StateGenerating:     StateDone,
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// CanTransition reports whether from -> to is allowed.
// Failed is reachable from every non-terminal state.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	return next[from] == to
}

// machine tracks one run. It is never shared between runs.
type machine struct {
	state State
}

func (m *machine) advance(to State) error {
	if !CanTransition(m.state, to) {
		return fmt.Errorf("invalid pipeline transition %s -> %s", m.state, to)
	}
	m.state = to
	return nil
}
