package events

import "time"

// Routing keys for published events.
const (
	BookingCreated         = "booking.created"
	BookingConfirmed       = "booking.confirmed"
	BookingRejected        = "booking.rejected"
	BookingCompleted       = "booking.completed"
	BookingCancelled       = "booking.cancelled"
	RefundIssued           = "refund.issued"
	ReconciliationRequired = "refund.reconciliation_required"
)

// BookingEvent is the payload for booking lifecycle events.
type BookingEvent struct {
	BookingID string    `json:"booking_id"`
	ClientID  string    `json:"client_id"`
	WorkerID  string    `json:"worker_id"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// RefundEvent is the payload for refund events.
type RefundEvent struct {
	BookingID    string    `json:"booking_id"`
	PaymentID    string    `json:"payment_id"`
	RefundID     string    `json:"refund_id,omitempty"`
	RefundAmount int64     `json:"refund_amount"`
	FeeAmount    int64     `json:"fee_amount"`
	Currency     string    `json:"currency"`
	Reason       string    `json:"reason,omitempty"`
	At           time.Time `json:"at"`
}
