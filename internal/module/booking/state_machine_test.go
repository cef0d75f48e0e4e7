package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMachine_CanTransition(t *testing.T) {
	sm := NewStateMachine()

	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"pending to confirmed", StatusPending, StatusConfirmed, true},
		{"pending to cancelling", StatusPending, StatusCancelling, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"pending to rejected", StatusPending, StatusRejected, true},
		{"pending to completed", StatusPending, StatusCompleted, false},
		{"confirmed to completed", StatusConfirmed, StatusCompleted, true},
		{"confirmed to cancelling", StatusConfirmed, StatusCancelling, true},
		{"confirmed to rejected", StatusConfirmed, StatusRejected, false},
		{"cancelling to cancelled", StatusCancelling, StatusCancelled, true},
		{"cancelling rollback to pending", StatusCancelling, StatusPending, true},
		{"cancelling rollback to confirmed", StatusCancelling, StatusConfirmed, true},
		{"completed is terminal", StatusCompleted, StatusCancelled, false},
		{"cancelled is terminal", StatusCancelled, StatusPending, false},
		{"rejected is terminal", StatusRejected, StatusConfirmed, false},
		{"unknown state", Status("bogus"), StatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, sm.CanTransition(tt.from, tt.to))
		})
	}
}

func TestStateMachine_Transition(t *testing.T) {
	sm := NewStateMachine()

	b := &Booking{Status: StatusPending}
	require.NoError(t, sm.Transition(b, StatusConfirmed))
	assert.Equal(t, StatusConfirmed, b.Status)

	err := sm.Transition(b, StatusRejected)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusConfirmed, b.Status)
}

func TestStateMachine_AllowedTransitions(t *testing.T) {
	sm := NewStateMachine()

	assert.Empty(t, sm.AllowedTransitions(StatusCompleted))
	assert.ElementsMatch(t,
		[]Status{StatusCompleted, StatusCancelling, StatusCancelled},
		sm.AllowedTransitions(StatusConfirmed))
}
