package vm

import "fmt"

// State is a domain state code. Values 0-7 mirror libvirt's virDomainState;
// StateHostDown and StateMiss are produced only by Status.
type State int32

const (
	StateNoState     State = 0
	StateRunning     State = 1
	StateBlocked     State = 2
	StatePaused      State = 3
	StateShutdown    State = 4
	StateShutoff     State = 5
	StateCrashed     State = 6
	StatePMSuspended State = 7

	// StateHostDown means the host could not be reached.
	StateHostDown State = 9
	// StateMiss means the host was reachable but the domain does not exist.
	StateMiss State = 10
)

var stateLabels = map[State]string{
	StateNoState:     "no state",
	StateRunning:     "running",
	StateBlocked:     "blocked",
	StatePaused:      "paused",
	StateShutdown:    "shut down",
	StateShutoff:     "shut off",
	StateCrashed:     "crashed",
	StatePMSuspended: "suspended",
	StateHostDown:    "host connect failed",
	StateMiss:        "miss",
}

// String returns the human-readable label for the state.
func (s State) String() string {
	if label, ok := stateLabels[s]; ok {
		return label
	}
	return fmt.Sprintf("unknown(%d)", int32(s))
}

// IsRunning reports whether the state counts as running. Blocked, paused and
// suspended domains still hold their resources and count as running.
func (s State) IsRunning() bool {
	switch s {
	case StateRunning, StateBlocked, StatePaused, StatePMSuspended:
		return true
	default:
		return false
	}
}

// IsShutoff reports whether the domain is defined but not running.
func (s State) IsShutoff() bool {
	return s == StateShutoff
}

// IsSynthetic reports whether the state was produced locally rather than read
// from the hypervisor.
func (s State) IsSynthetic() bool {
	return s == StateHostDown || s == StateMiss
}
