package provider

import (
	"context"
	"errors"
)

// Gateway error classification. Transient failures are safe to retry with the
// same idempotency key; rejections are terminal and must not be retried.
var (
	ErrTransient = errors.New("gateway transient failure")
	ErrRejected  = errors.New("gateway rejected request")
)

// PaymentIntent represents a payment intent at the card gateway.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       string
	Metadata     map[string]string
}

// Refund represents a refund issued at the card gateway.
type Refund struct {
	ID              string
	PaymentIntentID string
	Amount          int64
	Currency        string
	Status          string
	Reason          string
}

// RefundParams carries everything needed to issue a refund.
// IdempotencyKey must be stable across retries of the same logical refund.
type RefundParams struct {
	PaymentIntentID string
	Amount          int64
	IdempotencyKey  string
	Reason          string
	Metadata        map[string]string
}

// Provider is the card payment gateway interface.
type Provider interface {
	Name() string
	CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error)
	CreateRefund(ctx context.Context, params *RefundParams) (*Refund, error)
	VerifyWebhookSignature(payload []byte, signature string) error
}

// CryptoCharge represents a hosted crypto charge.
type CryptoCharge struct {
	ID         string
	Code       string
	HostedURL  string
	Amount     int64
	Currency   string
	Status     string
	Metadata   map[string]string
	ExpiresAt  int64
	ResolvedAt int64
}

// CryptoProvider is the crypto charge gateway interface.
// Crypto charges settle asynchronously and are observed by polling or webhook.
type CryptoProvider interface {
	Name() string
	CreateCharge(ctx context.Context, amount int64, currency, description string, metadata map[string]string) (*CryptoCharge, error)
	GetCharge(ctx context.Context, chargeID string) (*CryptoCharge, error)
	VerifyWebhookSignature(payload []byte, signature string) error
}
