package querying

import "fmt"

// State is the lifecycle position of a query.
type State int32

const (
	// StateStarting covers the spawn and the initialize handshake.
	StateStarting State = iota
	// StateStreaming forwards worker output to the caller.
	StateStreaming
	// StateToolPending is arbitrating a can_use_tool request.
	StateToolPending
	// StateCompleted follows a result message. A client may send again.
	StateCompleted
	// StateFailed ends the session with a structured cause.
	StateFailed
	// StateCancelled ends the session after an interrupt or an
	// interrupting denial.
	StateCancelled
)

var stateNames = [...]string{
	StateStarting:    "starting",
	StateStreaming:   "streaming",
	StateToolPending: "tool_pending",
	StateCompleted:   "completed",
	StateFailed:      "failed",
	StateCancelled:   "cancelled",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}

	return fmt.Sprintf("state(%d)", int32(s))
}

// Terminal reports whether the state ends the session for good.
func (s State) Terminal() bool {
	return s == StateFailed || s == StateCancelled
}
