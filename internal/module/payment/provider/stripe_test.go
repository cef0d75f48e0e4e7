package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

func TestClassifyStripeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "network failure is transient",
			err:  errors.New("dial tcp: i/o timeout"),
			want: ErrTransient,
		},
		{
			name: "5xx is transient",
			err:  &stripe.Error{HTTPStatusCode: http.StatusInternalServerError, Msg: "server error"},
			want: ErrTransient,
		},
		{
			name: "rate limit is transient",
			err:  &stripe.Error{HTTPStatusCode: http.StatusTooManyRequests, Msg: "slow down"},
			want: ErrTransient,
		},
		{
			name: "api error type is transient",
			err:  &stripe.Error{Type: stripe.ErrorTypeAPI, Msg: "internal"},
			want: ErrTransient,
		},
		{
			name: "invalid request is rejected",
			err: &stripe.Error{
				HTTPStatusCode: http.StatusBadRequest,
				Type:           stripe.ErrorTypeInvalidRequest,
				Code:           stripe.ErrorCodeChargeAlreadyRefunded,
				Msg:            "charge already refunded",
			},
			want: ErrRejected,
		},
		{
			name: "card error is rejected",
			err: &stripe.Error{
				HTTPStatusCode: http.StatusPaymentRequired,
				Type:           stripe.ErrorTypeCard,
				Msg:            "card declined",
			},
			want: ErrRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyStripeError("op", tt.err)
			require.ErrorIs(t, got, tt.want)
		})
	}
}

func TestStripeCreateRefund_RequiresIdempotencyKey(t *testing.T) {
	p := NewStripeProvider(&StripeConfig{APIKey: "sk_test", WebhookSecret: "whsec"})

	_, err := p.CreateRefund(context.Background(), &RefundParams{
		PaymentIntentID: "pi_123",
		Amount:          8000,
	})
	require.ErrorIs(t, err, ErrRejected)
}
