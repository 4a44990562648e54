package streamworker

// State is the lifecycle of a session. Transitions are monotonic, no state is
// ever revisited: Created -> Running -> Draining -> Terminated, plus
// Created -> Terminated for a session closed before it starts.
type State int32

const (
	// StateCreated means the session is constructed but no goroutine runs yet.
	StateCreated State = iota
	// StateRunning means the worker goroutine is executing and messages flow.
	StateRunning
	// StateDraining means Execute has returned and buffered output is being
	// flushed ahead of the terminal callback.
	StateDraining
	// StateTerminated means the worker is joined, the terminal callback has
	// fired, and the inbox is closed.
	StateTerminated
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
