package models

type State int

const (
	StateUnknown State = iota
	StatePending
	StateFired
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFired:
		return "fired"
	default:
		return "unknown"
	}
}

// State reports the lifecycle position of the reminder. Fired is terminal.
func (r *Reminder) State() State {
	if r.Sent {
		return StateFired
	}
	return StatePending
}
