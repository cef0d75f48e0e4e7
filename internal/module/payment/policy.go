package payment

import (
	"fmt"
)

// Split is the outcome of applying the cancellation refund policy.
type Split struct {
	RefundAmount int64 // minor units returned to the payer
	FeeAmount    int64 // minor units retained as the cancellation fee
	Currency     string
}

// Policy computes the refund/fee split applied on cancellation.
// It is pure: no I/O, no clock, deterministic for a given input.
type Policy struct {
	refundPercent int64
}

// NewPolicy creates a refund policy. Percent must be within (0, 100].
func NewPolicy(refundPercent int) (*Policy, error) {
	if refundPercent <= 0 || refundPercent > 100 {
		return nil, fmt.Errorf("refund percent out of range: %d", refundPercent)
	}
	return &Policy{refundPercent: int64(refundPercent)}, nil
}

// ComputeRefundSplit splits a captured total into the refunded part and the
// retained fee. Both components are rounded half-up to the cent
// independently; if the roundings do not sum back to the total, the fee
// absorbs the difference so refund + fee == total always holds and the payer
// is never refunded less than the advertised percentage.
func (p *Policy) ComputeRefundSplit(total int64, currency string) (Split, error) {
	if total <= 0 {
		return Split{}, fmt.Errorf("%w: total must be positive, got %d", ErrInvalidAmount, total)
	}

	refund := roundHalfUpPercent(total, p.refundPercent)
	fee := roundHalfUpPercent(total, 100-p.refundPercent)

	if refund+fee != total {
		fee = total - refund
	}

	return Split{
		RefundAmount: refund,
		FeeAmount:    fee,
		Currency:     currency,
	}, nil
}

// roundHalfUpPercent computes percent% of amount in minor units, rounding
// half-up. Inputs are non-negative.
func roundHalfUpPercent(amount, percent int64) int64 {
	return (amount*percent + 50) / 100
}
