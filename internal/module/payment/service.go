package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/bricollano/server/internal/module/payment/provider"
	"github.com/bricollano/server/internal/shared/events"
	"github.com/bricollano/server/internal/utils/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher publishes domain events. Satisfied by *events.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event interface{})
}

// Service implements payment operations.
type Service struct {
	repo      Repository
	registry  *ProviderRegistry
	policy    *Policy
	currency  string
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewService creates a new payment service.
func NewService(
	repo Repository,
	registry *ProviderRegistry,
	policy *Policy,
	currency string,
	publisher EventPublisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		registry:  registry,
		policy:    policy,
		currency:  currency,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// Currency returns the platform currency code.
func (s *Service) Currency() string {
	return s.currency
}

// CreateCardPaymentIntent creates a Stripe PaymentIntent for a booking and a
// pending ledger row tracking it.
func (s *Service) CreateCardPaymentIntent(ctx context.Context, bookingID, payerID uuid.UUID, amount int64) (*PaymentIntentResponse, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}

	gateway, err := s.registry.Card("stripe")
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		"booking_id": bookingID.String(),
		"payer_id":   payerID.String(),
	}

	start := time.Now()
	pi, err := gateway.CreatePaymentIntent(ctx, amount, s.currency, metadata)
	s.observeGatewayCall(gateway.Name(), "create_payment_intent", start, err)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	payment := &Payment{
		ID:                    uuid.New(),
		BookingID:             bookingID,
		PayerID:               payerID,
		Amount:                amount,
		Currency:              s.currency,
		Method:                MethodCreditCard,
		Status:                StatusPending,
		Provider:              gateway.Name(),
		StripePaymentIntentID: pi.ID,
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		s.logger.Error("failed to create payment record",
			zap.String("booking_id", bookingID.String()), zap.Error(err))
		return nil, err
	}

	return &PaymentIntentResponse{
		PaymentID:       payment.ID,
		PaymentIntentID: pi.ID,
		ClientSecret:    pi.ClientSecret,
		Amount:          pi.Amount,
		Currency:        pi.Currency,
	}, nil
}

// CreateCryptoCharge creates a Coinbase Commerce hosted charge for a booking.
func (s *Service) CreateCryptoCharge(ctx context.Context, bookingID, payerID uuid.UUID, amount int64, description string) (*CryptoChargeResponse, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}

	gateway, err := s.registry.Crypto("coinbase")
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		"booking_id": bookingID.String(),
		"payer_id":   payerID.String(),
	}

	start := time.Now()
	charge, err := gateway.CreateCharge(ctx, amount, s.currency, description, metadata)
	s.observeGatewayCall(gateway.Name(), "create_charge", start, err)
	if err != nil {
		return nil, fmt.Errorf("create crypto charge: %w", err)
	}

	payment := &Payment{
		ID:               uuid.New(),
		BookingID:        bookingID,
		PayerID:          payerID,
		Amount:           amount,
		Currency:         s.currency,
		Method:           MethodCrypto,
		Status:           StatusPending,
		Provider:         gateway.Name(),
		CoinbaseChargeID: charge.ID,
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		s.logger.Error("failed to create payment record",
			zap.String("booking_id", bookingID.String()), zap.Error(err))
		return nil, err
	}

	return &CryptoChargeResponse{
		PaymentID:  payment.ID,
		ChargeID:   charge.ID,
		ChargeCode: charge.Code,
		HostedURL:  charge.HostedURL,
		Amount:     amount,
		Currency:   s.currency,
		ExpiresAt:  charge.ExpiresAt,
	}, nil
}

// GetPayment returns a payment by ID.
func (s *Service) GetPayment(ctx context.Context, paymentID uuid.UUID) (*Payment, error) {
	return s.repo.GetPayment(ctx, paymentID)
}

// ListPaymentsByBooking returns the ledger rows for a booking. Every row for
// a booking belongs to the client who paid; callers other than that payer get
// ErrNotPayer.
func (s *Service) ListPaymentsByBooking(ctx context.Context, bookingID, payerID uuid.UUID) ([]*Payment, error) {
	rows, err := s.repo.ListPaymentsByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	for _, p := range rows {
		if p.PayerID != payerID {
			return nil, ErrNotPayer
		}
	}
	return rows, nil
}

// GetCompletedPayment returns the completed primary charge for a booking.
func (s *Service) GetCompletedPayment(ctx context.Context, bookingID uuid.UUID) (*Payment, error) {
	return s.repo.GetCompletedPaymentForBooking(ctx, bookingID)
}

// ComputeRefundSplit applies the cancellation refund policy.
func (s *Service) ComputeRefundSplit(total int64, currency string) (Split, error) {
	return s.policy.ComputeRefundSplit(total, currency)
}

// IssueRefund issues a partial refund for a captured card payment. The
// idempotency key is derived from (bookingID, paymentIntentID), so retrying
// after a timeout reuses the gateway's first refund instead of creating a
// second one.
func (s *Service) IssueRefund(ctx context.Context, bookingID uuid.UUID, p *Payment, amount int64, reason string) (*provider.Refund, error) {
	if !p.IsRefundable() {
		return nil, fmt.Errorf("%w: payment %s (method %s, status %s)",
			ErrNotRefundable, p.ID, p.Method, p.Status)
	}
	if amount <= 0 || amount > p.Amount {
		return nil, fmt.Errorf("%w: refund %d against captured %d", ErrInvalidAmount, amount, p.Amount)
	}

	gateway, err := s.registry.ByMethod(p.Method)
	if err != nil {
		return nil, err
	}

	params := &provider.RefundParams{
		PaymentIntentID: p.StripePaymentIntentID,
		Amount:          amount,
		IdempotencyKey:  RefundIdempotencyKey(bookingID, p.StripePaymentIntentID),
		Reason:          reason,
		Metadata: map[string]string{
			"booking_id": bookingID.String(),
			"payment_id": p.ID.String(),
		},
	}

	start := time.Now()
	refund, err := gateway.CreateRefund(ctx, params)
	s.observeGatewayCall(gateway.Name(), "create_refund", start, err)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RefundsFailedTotal.WithLabelValues(classifyKind(err)).Inc()
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RefundsIssuedTotal.Inc()
	}
	s.logger.Info("refund issued at gateway",
		zap.String("booking_id", bookingID.String()),
		zap.String("refund_id", refund.ID),
		zap.Int64("amount", refund.Amount),
	)
	return refund, nil
}

// BuildFeeRecord builds the immutable cancellation fee ledger row for a
// cancelled booking. The caller persists it atomically with the booking
// status transition.
func (s *Service) BuildFeeRecord(bookingID, payerID uuid.UUID, split Split, refundID, reason string) *Payment {
	now := time.Now()
	return &Payment{
		ID:              uuid.New(),
		BookingID:       bookingID,
		PayerID:         payerID,
		Amount:          split.FeeAmount,
		Currency:        split.Currency,
		Method:          MethodCancellationFee,
		Status:          StatusCompleted,
		GatewayRefundID: refundID,
		Reason:          reason,
		CompletedAt:     &now,
	}
}

// RecordReconciliation records a refund that moved money at the gateway but
// could not be persisted locally. This is the loudest path in the service:
// it logs at error level, bumps the reconciliation counter and publishes an
// event for operational alerting. It must never trigger an automatic retry
// of the refund.
func (s *Service) RecordReconciliation(ctx context.Context, bookingID uuid.UUID, p *Payment, split Split, refundID, reason string, cause error) {
	s.logger.Error("REFUND RECONCILIATION REQUIRED: gateway refund succeeded but local persistence failed",
		zap.String("booking_id", bookingID.String()),
		zap.String("payment_id", p.ID.String()),
		zap.String("gateway_refund_id", refundID),
		zap.Int64("refund_amount", split.RefundAmount),
		zap.Int64("fee_amount", split.FeeAmount),
		zap.Error(cause),
	)
	if s.metrics != nil {
		s.metrics.ReconciliationRequiredTotal.Inc()
	}

	rec := &Reconciliation{
		BookingID:       bookingID,
		PaymentID:       p.ID,
		GatewayRefundID: refundID,
		RefundAmount:    split.RefundAmount,
		FeeAmount:       split.FeeAmount,
		Currency:        split.Currency,
		Reason:          reason,
		Detail:          cause.Error(),
	}
	if err := s.repo.CreateReconciliation(ctx, rec); err != nil {
		// Both writes failed; the log line above is the last trace.
		s.logger.Error("failed to record reconciliation row", zap.Error(err))
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, events.ReconciliationRequired, events.RefundEvent{
			BookingID:    bookingID.String(),
			PaymentID:    p.ID.String(),
			RefundID:     refundID,
			RefundAmount: split.RefundAmount,
			FeeAmount:    split.FeeAmount,
			Currency:     split.Currency,
			Reason:       reason,
			At:           time.Now(),
		})
	}
}

// MarkPaymentCompleted marks a pending payment as completed.
func (s *Service) MarkPaymentCompleted(ctx context.Context, p *Payment) error {
	now := time.Now()
	p.Status = StatusCompleted
	p.CompletedAt = &now
	return s.repo.UpdatePayment(ctx, p)
}

// MarkPaymentFailed marks a pending payment as failed.
func (s *Service) MarkPaymentFailed(ctx context.Context, p *Payment) error {
	now := time.Now()
	p.Status = StatusFailed
	p.FailedAt = &now
	return s.repo.UpdatePayment(ctx, p)
}

func (s *Service) observeGatewayCall(providerName, op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.GatewayCallDuration.WithLabelValues(providerName, op).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.GatewayErrorsTotal.WithLabelValues(providerName, op, classifyKind(err)).Inc()
	}
}

// RefundIdempotencyKey derives the stable refund idempotency key for a
// booking/payment-intent pair.
func RefundIdempotencyKey(bookingID uuid.UUID, paymentIntentID string) string {
	sum := sha256.Sum256([]byte("refund:" + bookingID.String() + ":" + paymentIntentID))
	return hex.EncodeToString(sum[:])
}

func classifyKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrGatewayTransient):
		return "transient"
	case errors.Is(err, ErrGatewayRejected):
		return "rejected"
	default:
		return "other"
	}
}
