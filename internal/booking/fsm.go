// Package booking drives the three-step appointment wizard: service,
// barber, date and time, ending in exactly one creation request.
package booking

// State represents the current state of the booking wizard.
type State string

const (
	StateSelectingService  State = "selecting_service"
	StateSelectingBarber   State = "selecting_barber"
	StateSelectingDateTime State = "selecting_datetime"
	StateSubmitting        State = "submitting"
	StateSucceeded         State = "succeeded"
	StateFailed            State = "failed"
)

// Step returns the wizard step (1..3) a state belongs to. Submission
// states report the final step.
func (s State) Step() int {
	switch s {
	case StateSelectingService:
		return 1
	case StateSelectingBarber:
		return 2
	default:
		return 3
	}
}

// FSM holds the allowed wizard transitions.
type FSM struct {
	transitions map[State][]State
}

// NewFSM creates the wizard FSM. Forward transitions require a valid
// selection (enforced by the wizard, not here); every selection state
// can also step back one, preserving selections.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[State][]State{
			StateSelectingService:  {StateSelectingBarber},
			StateSelectingBarber:   {StateSelectingDateTime, StateSelectingService},
			StateSelectingDateTime: {StateSubmitting, StateSelectingBarber},
			StateSubmitting:        {StateSucceeded, StateFailed},
			StateSucceeded:         {StateSelectingService},
			StateFailed:            {StateSelectingDateTime},
		},
	}
}

// CanTransition checks if the transition is allowed.
func (f *FSM) CanTransition(from, to State) bool {
	for _, s := range f.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition updates the session state if the transition is allowed.
func (f *FSM) Transition(session *Session, to State) bool {
	if f.CanTransition(session.GetState(), to) {
		session.SetState(to)
		return true
	}
	return false
}
