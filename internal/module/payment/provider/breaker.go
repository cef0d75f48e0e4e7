package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
)

// breakerProvider wraps a Provider with a circuit breaker and per-call
// timeout. A rejection does not count as a breaker failure: the gateway
// answered, it just said no.
type breakerProvider struct {
	inner       Provider
	callTimeout time.Duration
	intents     *gobreaker.CircuitBreaker[*PaymentIntent]
	refunds     *gobreaker.CircuitBreaker[*Refund]
}

// WithBreaker decorates a card gateway with circuit breaking.
func WithBreaker(inner Provider, callTimeout time.Duration) Provider {
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &breakerProvider{
		inner:       inner,
		callTimeout: callTimeout,
		intents:     newBreaker[*PaymentIntent](inner.Name() + "-intents"),
		refunds:     newBreaker[*Refund](inner.Name() + "-refunds"),
	}
}

func newBreaker[T any](name string) *gobreaker.CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRejected)
		},
	}
	return gobreaker.NewCircuitBreaker[T](settings)
}

func (b *breakerProvider) Name() string {
	return b.inner.Name()
}

func (b *breakerProvider) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, b.callTimeout)
	defer cancel()

	pi, err := b.intents.Execute(func() (*PaymentIntent, error) {
		return b.inner.CreatePaymentIntent(ctx, amount, currency, metadata)
	})
	return pi, translateBreakerErr(err)
}

func (b *breakerProvider) GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, b.callTimeout)
	defer cancel()

	pi, err := b.intents.Execute(func() (*PaymentIntent, error) {
		return b.inner.GetPaymentIntent(ctx, paymentIntentID)
	})
	return pi, translateBreakerErr(err)
}

func (b *breakerProvider) CreateRefund(ctx context.Context, params *RefundParams) (*Refund, error) {
	ctx, cancel := context.WithTimeout(ctx, b.callTimeout)
	defer cancel()

	r, err := b.refunds.Execute(func() (*Refund, error) {
		return b.inner.CreateRefund(ctx, params)
	})
	return r, translateBreakerErr(err)
}

func (b *breakerProvider) VerifyWebhookSignature(payload []byte, signature string) error {
	return b.inner.VerifyWebhookSignature(payload, signature)
}

// translateBreakerErr maps breaker states onto the transient classification so
// callers see one taxonomy.
func translateBreakerErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: circuit breaker open", ErrTransient)
	}
	return err
}
