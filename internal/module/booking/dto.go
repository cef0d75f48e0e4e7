package booking

import (
	"time"

	"github.com/google/uuid"
)

// CreateBookingRequest is the request to create a booking.
type CreateBookingRequest struct {
	WorkerID    uuid.UUID `json:"worker_id" binding:"required"`
	ServiceID   uuid.UUID `json:"service_id" binding:"required"`
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	Address     string    `json:"address" binding:"required"`
	Notes       string    `json:"notes"`
	TotalAmount int64     `json:"total_amount" binding:"required,gt=0"`
}

// CancelBookingRequest is the request to cancel a booking.
type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RefundResult describes the refund portion of a cancellation.
type RefundResult struct {
	RefundID     string `json:"refund_id,omitempty"`
	RefundAmount int64  `json:"refund_amount"`
	FeeAmount    int64  `json:"fee_amount"`
	Currency     string `json:"currency"`
	ManualPayout bool   `json:"manual_payout,omitempty"`
}

// CancellationResult is the composite outcome of a cancellation. Refund is
// nil when the booking had no completed payment.
type CancellationResult struct {
	BookingID uuid.UUID     `json:"booking_id"`
	BookingNo string        `json:"booking_no"`
	Status    Status        `json:"status"`
	Refund    *RefundResult `json:"refund,omitempty"`
	Message   string        `json:"message"`
}

// ListBookingsQuery filters a booking listing.
type ListBookingsQuery struct {
	Role   string `form:"role" binding:"omitempty,oneof=client worker"`
	Status string `form:"status"`
}
