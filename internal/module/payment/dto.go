package payment

import "github.com/google/uuid"

// CreateCardPaymentRequest is the request to start a card payment.
type CreateCardPaymentRequest struct {
	BookingID uuid.UUID `json:"booking_id" binding:"required"`
	Amount    int64     `json:"amount" binding:"required,gt=0"`
}

// CreateCryptoPaymentRequest is the request to start a crypto payment.
type CreateCryptoPaymentRequest struct {
	BookingID   uuid.UUID `json:"booking_id" binding:"required"`
	Amount      int64     `json:"amount" binding:"required,gt=0"`
	Description string    `json:"description"`
}

// PaymentIntentResponse is returned when a card payment intent is created.
type PaymentIntentResponse struct {
	PaymentID       uuid.UUID `json:"payment_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	ClientSecret    string    `json:"client_secret"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
}

// CryptoChargeResponse is returned when a crypto charge is created.
type CryptoChargeResponse struct {
	PaymentID  uuid.UUID `json:"payment_id"`
	ChargeID   string    `json:"charge_id"`
	ChargeCode string    `json:"charge_code"`
	HostedURL  string    `json:"hosted_url"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	ExpiresAt  int64     `json:"expires_at,omitempty"`
}
