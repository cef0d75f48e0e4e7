package booking

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the status of a booking.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusCancelling Status = "cancelling"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusRejected   Status = "rejected"
)

// Booking is a client's reservation of a worker's service.
type Booking struct {
	ID                 uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BookingNo          string     `json:"booking_no" gorm:"uniqueIndex;not null"`
	ClientID           uuid.UUID  `json:"client_id" gorm:"type:uuid;not null;index"`
	WorkerID           uuid.UUID  `json:"worker_id" gorm:"type:uuid;not null;index"`
	ServiceID          uuid.UUID  `json:"service_id" gorm:"type:uuid;not null"`
	Status             Status     `json:"status" gorm:"not null;default:pending;index"`
	ScheduledAt        time.Time  `json:"scheduled_at" gorm:"not null"`
	Address            string     `json:"address"`
	Notes              string     `json:"notes,omitempty"`
	TotalAmount        int64      `json:"total_amount"` // minor units (cents)
	Currency           string     `json:"currency" gorm:"default:eur"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	PaidAt             *time.Time `json:"paid_at,omitempty"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TableName returns the database table name.
func (Booking) TableName() string {
	return "bookings"
}

// IsCancellable returns true if the booking can still be cancelled by a party.
func (b *Booking) IsCancellable() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// IsTerminal returns true if the booking is in a terminal state.
func (b *Booking) IsTerminal() bool {
	return b.Status == StatusCompleted || b.Status == StatusCancelled || b.Status == StatusRejected
}

// IsParty returns true if the user is the booking's client or worker.
func (b *Booking) IsParty(userID uuid.UUID) bool {
	return b.ClientID == userID || b.WorkerID == userID
}
