package relay

import "time"

// State is the lifecycle state of a relay session.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateRelaying   State = "relaying"
	StateClosed     State = "closed"
)

// validTransitions lists the allowed moves. Closed is terminal.
var validTransitions = map[State][]State{
	StateIdle:       {StateConnecting, StateClosed},
	StateConnecting: {StateRelaying, StateClosed},
	StateRelaying:   {StateClosed},
}

func canTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition records a single state change.
type Transition struct {
	From      State     `json:"from"`
	To        State     `json:"to"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
}
