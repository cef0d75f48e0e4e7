package booking

import "fmt"

// StateMachine validates and executes booking state transitions.
type StateMachine struct {
	transitions map[Status][]Status
}

// NewStateMachine creates a new booking state machine. `cancelling` is the
// transient claim a cancellation holds while the refund is in flight; it can
// roll back to the state it came from if the gateway rejects the refund.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		transitions: map[Status][]Status{
			StatusPending:    {StatusConfirmed, StatusCancelling, StatusCancelled, StatusRejected},
			StatusConfirmed:  {StatusCompleted, StatusCancelling, StatusCancelled},
			StatusCancelling: {StatusCancelled, StatusPending, StatusConfirmed},
			StatusCompleted:  {}, // Terminal state
			StatusCancelled:  {}, // Terminal state
			StatusRejected:   {}, // Terminal state
		},
	}
}

// CanTransition checks if a transition from `from` to `to` is valid.
func (sm *StateMachine) CanTransition(from, to Status) bool {
	allowed, ok := sm.transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Transition attempts to transition a booking to a new state.
func (sm *StateMachine) Transition(b *Booking, to Status) error {
	if !sm.CanTransition(b.Status, to) {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, b.Status, to)
	}
	b.Status = to
	return nil
}

// AllowedTransitions returns all allowed transitions from the current state.
func (sm *StateMachine) AllowedTransitions(from Status) []Status {
	allowed, ok := sm.transitions[from]
	if !ok {
		return []Status{}
	}
	result := make([]Status, len(allowed))
	copy(result, allowed)
	return result
}
