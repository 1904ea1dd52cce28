package dispatch

// State is a step in the invocation state machine.
type State int

const (
	StateParsed State = iota
	StateToolsChecked
	StateResolving
	StateRunning
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateParsed:
		return "Parsed"
	case StateToolsChecked:
		return "ToolsChecked"
	case StateResolving:
		return "Resolving"
	case StateRunning:
		return "Running"
	case StateLoading:
		return "Loading"
	case StateReady:
		return "Ready"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed
}

// Transition describes a state change for observers.
type Transition struct {
	Command string
	From    State
	To      State
	// Section is the index of the section being processed, or -1.
	Section int
	// Err is set on the transition to StateFailed.
	Err error
}

// Observer receives every state transition of every invocation.
type Observer func(Transition)
