package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/refund"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeProvider implements the Provider interface for Stripe.
type StripeProvider struct {
	apiKey        string
	webhookSecret string
}

// StripeConfig holds Stripe configuration.
type StripeConfig struct {
	APIKey        string
	WebhookSecret string
}

// NewStripeProvider creates a new Stripe provider.
func NewStripeProvider(config *StripeConfig) *StripeProvider {
	stripe.Key = config.APIKey
	return &StripeProvider{
		apiKey:        config.APIKey,
		webhookSecret: config.WebhookSecret,
	}
}

// Name returns the provider name.
func (p *StripeProvider) Name() string {
	return "stripe"
}

// CreatePaymentIntent creates a payment intent for a booking charge.
func (p *StripeProvider) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if len(metadata) > 0 {
		params.Metadata = make(map[string]string)
		for k, v := range metadata {
			params.Metadata[k] = v
		}
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, classifyStripeError("create payment intent", err)
	}

	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
	}, nil
}

// GetPaymentIntent retrieves a payment intent.
func (p *StripeProvider) GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(paymentIntentID, params)
	if err != nil {
		return nil, classifyStripeError("get payment intent", err)
	}

	result := &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
	}
	if pi.Metadata != nil {
		result.Metadata = pi.Metadata
	}
	return result, nil
}

// CreateRefund issues a partial refund against a captured payment intent.
// The idempotency key makes a timed-out call safe to retry: Stripe deduplicates
// on the key and returns the original refund instead of debiting twice.
func (p *StripeProvider) CreateRefund(ctx context.Context, rp *RefundParams) (*Refund, error) {
	if rp.IdempotencyKey == "" {
		return nil, fmt.Errorf("%w: refund without idempotency key", ErrRejected)
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(rp.PaymentIntentID),
		Amount:        stripe.Int64(rp.Amount),
	}
	params.Context = ctx
	params.SetIdempotencyKey(rp.IdempotencyKey)
	if rp.Reason != "" {
		params.AddMetadata("cancellation_reason", rp.Reason)
	}
	for k, v := range rp.Metadata {
		params.AddMetadata(k, v)
	}

	r, err := refund.New(params)
	if err != nil {
		return nil, classifyStripeError("create refund", err)
	}

	result := &Refund{
		ID:              r.ID,
		Amount:          r.Amount,
		Currency:        string(r.Currency),
		Status:          string(r.Status),
		Reason:          string(r.Reason),
		PaymentIntentID: rp.PaymentIntentID,
	}
	if r.PaymentIntent != nil {
		result.PaymentIntentID = r.PaymentIntent.ID
	}
	return result, nil
}

// VerifyWebhookSignature verifies a Stripe webhook signature.
func (p *StripeProvider) VerifyWebhookSignature(payload []byte, signature string) error {
	_, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	return err
}

// classifyStripeError maps a Stripe error to the transient/rejected taxonomy.
func classifyStripeError(op string, err error) error {
	if err == nil {
		return nil
	}

	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		// Network level failure (DNS, connect, timeout): retryable.
		return fmt.Errorf("%s: %w: %v", op, ErrTransient, err)
	}

	if stripeErr.HTTPStatusCode >= http.StatusInternalServerError ||
		stripeErr.HTTPStatusCode == http.StatusTooManyRequests ||
		stripeErr.Type == stripe.ErrorTypeAPI {
		return fmt.Errorf("%s: %w: %s", op, ErrTransient, stripeErr.Msg)
	}

	// invalid_request_error, card_error, idempotency_error: terminal.
	return fmt.Errorf("%s: %w: %s (%s)", op, ErrRejected, stripeErr.Msg, stripeErr.Code)
}
