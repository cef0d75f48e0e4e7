package booking

import "errors"

var (
	// ErrBookingNotFound is returned when a booking does not exist.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrInvalidTransition is returned for a disallowed status transition.
	ErrInvalidTransition = errors.New("invalid booking state transition")
	// ErrNotCancellable is returned when a booking cannot be cancelled, either
	// because its status is terminal or because a concurrent cancellation
	// already claimed it.
	ErrNotCancellable = errors.New("booking is not cancellable")
	// ErrNotBookingParty is returned when the requester is neither the client
	// nor the worker of the booking.
	ErrNotBookingParty = errors.New("user is not a party to this booking")
	// ErrNotWorker is returned when a worker-only transition is attempted by
	// someone else.
	ErrNotWorker = errors.New("only the assigned worker may perform this action")
)
