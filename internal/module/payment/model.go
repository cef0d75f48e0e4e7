package payment

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the status of a payment record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Method represents how a payment was made, or what kind of ledger row it is.
type Method string

const (
	MethodCreditCard      Method = "credit_card"
	MethodCrypto          Method = "crypto"
	MethodCancellationFee Method = "cancellation_fee"
)

// Payment is an immutable ledger row. A captured booking charge is one row;
// a cancellation fee is a separate row referencing the same booking, never a
// mutation of the original.
type Payment struct {
	ID                    uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BookingID             uuid.UUID `json:"booking_id" gorm:"type:uuid;not null;index"`
	PayerID               uuid.UUID `json:"payer_id" gorm:"type:uuid;not null;index"`
	Amount                int64     `json:"amount"` // minor units (cents)
	Currency              string    `json:"currency" gorm:"default:eur"`
	Method                Method    `json:"method" gorm:"not null"`
	Status                Status    `json:"status" gorm:"not null;default:pending"`
	Provider              string    `json:"provider"`
	StripePaymentIntentID string    `json:"-" gorm:"index"`
	CoinbaseChargeID      string    `json:"-" gorm:"index"`
	GatewayRefundID       string    `json:"-" gorm:"index"`
	Reason                string    `json:"reason,omitempty"`
	Metadata              string    `json:"-" gorm:"type:jsonb;default:'{}'"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
	FailedAt              *time.Time `json:"failed_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// TableName returns the database table name.
func (Payment) TableName() string {
	return "payments"
}

// IsCompleted returns true if the payment completed.
func (p *Payment) IsCompleted() bool {
	return p.Status == StatusCompleted
}

// IsRefundable returns true if this row is a gateway-refundable charge.
func (p *Payment) IsRefundable() bool {
	return p.IsCompleted() && p.Method == MethodCreditCard && p.StripePaymentIntentID != ""
}

// WebhookEvent is a stored gateway webhook event, used to deduplicate
// deliveries.
type WebhookEvent struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Provider    string    `gorm:"not null;index"`
	EventID     string    `gorm:"uniqueIndex:idx_provider_event_id;not null"`
	Type        string    `gorm:"not null"`
	Data        string    `gorm:"type:jsonb"`
	Processed   bool      `gorm:"default:false"`
	ProcessedAt *time.Time
	Error       *string
	CreatedAt   time.Time
}

// TableName returns the database table name.
func (WebhookEvent) TableName() string {
	return "webhook_events"
}

// Reconciliation records a refund that succeeded at the gateway but whose
// local persistence failed. Money has moved and state has not; these rows are
// worked off manually, never retried automatically.
type Reconciliation struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BookingID       uuid.UUID `gorm:"type:uuid;not null;index"`
	PaymentID       uuid.UUID `gorm:"type:uuid;not null"`
	GatewayRefundID string    `gorm:"not null"`
	RefundAmount    int64     `gorm:"not null"`
	FeeAmount       int64     `gorm:"not null"`
	Currency        string    `gorm:"not null"`
	Reason          string
	Detail          string
	Resolved        bool `gorm:"default:false;index"`
	ResolvedAt      *time.Time
	CreatedAt       time.Time
}

// TableName returns the database table name.
func (Reconciliation) TableName() string {
	return "refund_reconciliations"
}
