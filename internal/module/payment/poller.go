package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Poll is one observation of an asynchronous crypto charge.
type Poll struct {
	PaymentID  uuid.UUID `json:"payment_id"`
	ChargeID   string    `json:"charge_id"`
	Status     Status    `json:"status"`
	Settled    bool      `json:"settled"`
	NextPollAt time.Time `json:"next_poll_at"`
}

// ChargePoller tracks the settlement of crypto charges by polling the
// gateway on a fixed interval. It replaces ad hoc client-side timers with a
// single cancellable loop per charge.
type ChargePoller struct {
	service  *Service
	interval time.Duration
	logger   *zap.Logger
}

// NewChargePoller creates a new charge poller.
func NewChargePoller(service *Service, interval time.Duration, logger *zap.Logger) *ChargePoller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &ChargePoller{
		service:  service,
		interval: interval,
		logger:   logger,
	}
}

// Once performs a single poll of a crypto payment: it fetches the charge from
// the gateway, reconciles the local ledger row, and reports the status plus
// when the next poll is due.
func (cp *ChargePoller) Once(ctx context.Context, paymentID uuid.UUID) (*Poll, error) {
	p, err := cp.service.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	poll := &Poll{
		PaymentID:  p.ID,
		ChargeID:   p.CoinbaseChargeID,
		Status:     p.Status,
		Settled:    p.Status != StatusPending,
		NextPollAt: time.Now().Add(cp.interval),
	}
	if poll.Settled || p.Method != MethodCrypto {
		return poll, nil
	}

	gateway, err := cp.service.registry.Crypto(p.Provider)
	if err != nil {
		return nil, err
	}

	charge, err := gateway.GetCharge(ctx, p.CoinbaseChargeID)
	if err != nil {
		// Transient gateway trouble leaves the payment pending; the caller
		// polls again at NextPollAt.
		cp.logger.Warn("crypto charge poll failed",
			zap.String("payment_id", p.ID.String()), zap.Error(err))
		return poll, nil
	}

	switch charge.Status {
	case "COMPLETED", "RESOLVED":
		if err := cp.service.MarkPaymentCompleted(ctx, p); err != nil {
			return nil, err
		}
	case "EXPIRED", "CANCELED":
		if err := cp.service.MarkPaymentFailed(ctx, p); err != nil {
			return nil, err
		}
	}

	poll.Status = p.Status
	poll.Settled = p.Status != StatusPending
	return poll, nil
}

// Watch polls a crypto payment until it settles or ctx is cancelled. Each
// observation is sent on the returned channel, which is closed when the loop
// exits.
func (cp *ChargePoller) Watch(ctx context.Context, paymentID uuid.UUID) <-chan Poll {
	out := make(chan Poll, 1)

	go func() {
		defer close(out)
		timer := time.NewTimer(0)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			poll, err := cp.Once(ctx, paymentID)
			if err != nil {
				cp.logger.Warn("charge watch aborted",
					zap.String("payment_id", paymentID.String()), zap.Error(err))
				return
			}

			select {
			case out <- *poll:
			case <-ctx.Done():
				return
			}

			if poll.Settled {
				return
			}
			timer.Reset(time.Until(poll.NextPollAt))
		}
	}()

	return out
}
