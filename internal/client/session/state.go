package session

import "time"

// State is the lifecycle state of the session slot.
type State int

const (
	StateLoggedOut State = iota
	StateActive
	StateWarning
	// StateExpired is transient: it is only observed inside the expiry
	// transition before the slot returns to StateLoggedOut.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "logged out"
	case StateActive:
		return "active"
	case StateWarning:
		return "expiring"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Status is a point-in-time view of the session slot.
type Status struct {
	State     State
	Identity  string
	ExpiresAt time.Time
	Remaining time.Duration
}
