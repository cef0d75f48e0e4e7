package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bricollano/server/internal/module/payment"
	"github.com/bricollano/server/internal/module/payment/provider"
	"github.com/bricollano/server/internal/shared/events"
	"github.com/bricollano/server/internal/utils/metrics"
	"github.com/bricollano/server/internal/utils/random"
)

// PaymentService is the payment surface the booking coordinator depends on.
// Satisfied by *payment.Service.
type PaymentService interface {
	Currency() string
	GetCompletedPayment(ctx context.Context, bookingID uuid.UUID) (*payment.Payment, error)
	ComputeRefundSplit(total int64, currency string) (payment.Split, error)
	IssueRefund(ctx context.Context, bookingID uuid.UUID, p *payment.Payment, amount int64, reason string) (*provider.Refund, error)
	BuildFeeRecord(bookingID, payerID uuid.UUID, split payment.Split, refundID, reason string) *payment.Payment
	RecordReconciliation(ctx context.Context, bookingID uuid.UUID, p *payment.Payment, split payment.Split, refundID, reason string, cause error)
}

// EventPublisher publishes domain events. Satisfied by *events.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event interface{})
}

// Service implements booking operations, including the cancellation and
// refund coordinator.
type Service struct {
	repo      Repository
	payments  PaymentService
	machine   *StateMachine
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewService creates a new booking service.
func NewService(
	repo Repository,
	payments PaymentService,
	publisher EventPublisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		payments:  payments,
		machine:   NewStateMachine(),
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// CreateBooking creates a pending booking for a client.
func (s *Service) CreateBooking(ctx context.Context, clientID uuid.UUID, req *CreateBookingRequest) (*Booking, error) {
	b := &Booking{
		ID:          uuid.New(),
		BookingNo:   random.BookingNo(),
		ClientID:    clientID,
		WorkerID:    req.WorkerID,
		ServiceID:   req.ServiceID,
		Status:      StatusPending,
		ScheduledAt: req.ScheduledAt,
		Address:     req.Address,
		Notes:       req.Notes,
		TotalAmount: req.TotalAmount,
		Currency:    s.payments.Currency(),
	}
	if err := s.repo.CreateBooking(ctx, b); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	if s.metrics != nil {
		s.metrics.BookingsCreatedTotal.Inc()
	}
	s.publishBookingEvent(ctx, events.BookingCreated, b, "")
	s.logger.Info("booking created",
		zap.String("booking_id", b.ID.String()),
		zap.String("booking_no", b.BookingNo))
	return b, nil
}

// GetBooking returns a booking; only the client or worker may read it.
func (s *Service) GetBooking(ctx context.Context, bookingID, userID uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsParty(userID) {
		return nil, ErrNotBookingParty
	}
	return b, nil
}

// ListClientBookings returns a client's bookings.
func (s *Service) ListClientBookings(ctx context.Context, clientID uuid.UUID, status *Status) ([]*Booking, error) {
	return s.repo.ListByClient(ctx, clientID, status)
}

// ListWorkerBookings returns a worker's bookings.
func (s *Service) ListWorkerBookings(ctx context.Context, workerID uuid.UUID, status *Status) ([]*Booking, error) {
	return s.repo.ListByWorker(ctx, workerID, status)
}

// ConfirmBooking transitions a pending booking to confirmed. Worker only.
func (s *Service) ConfirmBooking(ctx context.Context, bookingID, workerID uuid.UUID) (*Booking, error) {
	return s.workerTransition(ctx, bookingID, workerID, StatusConfirmed, events.BookingConfirmed)
}

// RejectBooking transitions a pending booking to rejected. Worker only.
func (s *Service) RejectBooking(ctx context.Context, bookingID, workerID uuid.UUID) (*Booking, error) {
	return s.workerTransition(ctx, bookingID, workerID, StatusRejected, events.BookingRejected)
}

// CompleteBooking transitions a confirmed booking to completed. Worker only.
func (s *Service) CompleteBooking(ctx context.Context, bookingID, workerID uuid.UUID) (*Booking, error) {
	return s.workerTransition(ctx, bookingID, workerID, StatusCompleted, events.BookingCompleted)
}

func (s *Service) workerTransition(ctx context.Context, bookingID, workerID uuid.UUID, to Status, routingKey string) (*Booking, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.WorkerID != workerID {
		return nil, ErrNotWorker
	}

	from := b.Status
	if err := s.machine.Transition(b, to); err != nil {
		return nil, err
	}

	now := time.Now()
	switch to {
	case StatusConfirmed:
		b.ConfirmedAt = &now
	case StatusCompleted:
		b.CompletedAt = &now
	}

	if err := s.repo.UpdateBooking(ctx, b); err != nil {
		return nil, fmt.Errorf("update booking: %w", err)
	}

	s.observeTransition(from, to)
	s.publishBookingEvent(ctx, routingKey, b, "")
	s.logger.Info("booking status changed",
		zap.String("booking_id", b.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return b, nil
}

// CancelBooking cancels a booking and, when the booking was paid by card,
// refunds 80% of the payment while retaining a 20% cancellation fee.
//
// The refund is issued at the gateway before local state is finalized, so the
// failure handling is asymmetric: a gateway rejection rolls the booking back
// to its previous status, while a persistence failure after a successful
// refund is reported as payment.ErrPersistenceFailed and queued for manual
// reconciliation. The refund is never retried automatically once the gateway
// accepted it.
func (s *Service) CancelBooking(ctx context.Context, bookingID, userID uuid.UUID, reason string) (*CancellationResult, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsParty(userID) {
		return nil, ErrNotBookingParty
	}
	if !b.IsCancellable() {
		return nil, fmt.Errorf("%w: booking is %s", ErrNotCancellable, b.Status)
	}

	// Claim the booking before touching the gateway. The conditional update
	// serializes concurrent cancellations: the loser sees ErrNotCancellable
	// without ever making a network call.
	prev, err := s.repo.ClaimForCancellation(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	b.Status = StatusCancelling
	b.CancellationReason = reason

	pay, err := s.payments.GetCompletedPayment(ctx, bookingID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound) {
			return s.finalizeUnpaidCancellation(ctx, b, prev, reason)
		}
		s.release(ctx, b.ID, prev)
		return nil, fmt.Errorf("load payment: %w", err)
	}

	split, err := s.payments.ComputeRefundSplit(pay.Amount, pay.Currency)
	if err != nil {
		s.release(ctx, b.ID, prev)
		return nil, err
	}

	if pay.Method == payment.MethodCrypto {
		return s.finalizeCryptoCancellation(ctx, b, prev, pay, split, reason)
	}

	refund, err := s.payments.IssueRefund(ctx, bookingID, pay, split.RefundAmount, reason)
	if err != nil {
		// No money has moved. Roll the booking back so the client can retry
		// (transient) or keep the booking (rejected); it must not end up
		// cancelled without its refund.
		s.release(ctx, b.ID, prev)
		s.logger.Warn("refund failed, booking restored",
			zap.String("booking_id", bookingID.String()),
			zap.String("restored_status", string(prev)),
			zap.Error(err))
		return nil, fmt.Errorf("issue refund: %w", err)
	}

	fee := s.payments.BuildFeeRecord(bookingID, pay.PayerID, split, refund.ID, reason)
	if err := s.repo.FinalizeCancellation(ctx, b, fee); err != nil {
		// The gateway refund succeeded and the local write did not. Money has
		// moved without matching state; hand the case to reconciliation and
		// leave the claim in place so nothing else touches the booking.
		s.payments.RecordReconciliation(ctx, bookingID, pay, split, refund.ID, reason, err)
		return nil, fmt.Errorf("%w: refund %s issued but cancellation not persisted",
			payment.ErrPersistenceFailed, refund.ID)
	}

	s.observeTransition(prev, StatusCancelled)
	s.publishBookingEvent(ctx, events.BookingCancelled, b, reason)
	if s.publisher != nil {
		s.publisher.Publish(ctx, events.RefundIssued, events.RefundEvent{
			BookingID:    bookingID.String(),
			PaymentID:    pay.ID.String(),
			RefundID:     refund.ID,
			RefundAmount: split.RefundAmount,
			FeeAmount:    split.FeeAmount,
			Currency:     split.Currency,
			Reason:       reason,
			At:           time.Now(),
		})
	}
	s.logger.Info("booking cancelled with refund",
		zap.String("booking_id", bookingID.String()),
		zap.String("refund_id", refund.ID),
		zap.Int64("refund_amount", split.RefundAmount),
		zap.Int64("fee_amount", split.FeeAmount))

	return &CancellationResult{
		BookingID: b.ID,
		BookingNo: b.BookingNo,
		Status:    b.Status,
		Refund: &RefundResult{
			RefundID:     refund.ID,
			RefundAmount: split.RefundAmount,
			FeeAmount:    split.FeeAmount,
			Currency:     split.Currency,
		},
		Message: refundMessage(split),
	}, nil
}

// finalizeUnpaidCancellation completes a cancellation for a booking with no
// completed payment: no refund, no fee, just the status transition.
func (s *Service) finalizeUnpaidCancellation(ctx context.Context, b *Booking, prev Status, reason string) (*CancellationResult, error) {
	if err := s.repo.FinalizeCancellation(ctx, b, nil); err != nil {
		s.release(ctx, b.ID, prev)
		return nil, fmt.Errorf("finalize cancellation: %w", err)
	}

	s.observeTransition(prev, StatusCancelled)
	s.publishBookingEvent(ctx, events.BookingCancelled, b, reason)
	s.logger.Info("booking cancelled without payment",
		zap.String("booking_id", b.ID.String()))

	return &CancellationResult{
		BookingID: b.ID,
		BookingNo: b.BookingNo,
		Status:    b.Status,
		Message:   "Booking cancelled.",
	}, nil
}

// finalizeCryptoCancellation completes a cancellation for a crypto-paid
// booking. Coinbase Commerce charges cannot be refunded through the gateway,
// so the fee row is written with no gateway refund id and the result carries
// a manual-payout marker for the operations team.
func (s *Service) finalizeCryptoCancellation(ctx context.Context, b *Booking, prev Status, pay *payment.Payment, split payment.Split, reason string) (*CancellationResult, error) {
	fee := s.payments.BuildFeeRecord(b.ID, pay.PayerID, split, "", reason)
	if err := s.repo.FinalizeCancellation(ctx, b, fee); err != nil {
		s.release(ctx, b.ID, prev)
		return nil, fmt.Errorf("finalize cancellation: %w", err)
	}

	s.observeTransition(prev, StatusCancelled)
	s.publishBookingEvent(ctx, events.BookingCancelled, b, reason)
	s.logger.Info("crypto booking cancelled, manual payout required",
		zap.String("booking_id", b.ID.String()),
		zap.Int64("refund_amount", split.RefundAmount))

	return &CancellationResult{
		BookingID: b.ID,
		BookingNo: b.BookingNo,
		Status:    b.Status,
		Refund: &RefundResult{
			RefundAmount: split.RefundAmount,
			FeeAmount:    split.FeeAmount,
			Currency:     split.Currency,
			ManualPayout: true,
		},
		Message: refundMessage(split) + " Crypto refunds are paid out manually within 5 business days.",
	}, nil
}

// OnPaymentCompleted records that the booking's charge settled.
func (s *Service) OnPaymentCompleted(ctx context.Context, bookingID uuid.UUID) error {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.PaidAt != nil {
		return nil
	}
	now := time.Now()
	b.PaidAt = &now
	if err := s.repo.UpdateBooking(ctx, b); err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	s.logger.Info("booking payment settled", zap.String("booking_id", bookingID.String()))
	return nil
}

// OnPaymentFailed records that the booking's charge failed.
func (s *Service) OnPaymentFailed(ctx context.Context, bookingID uuid.UUID) error {
	s.logger.Warn("booking payment failed", zap.String("booking_id", bookingID.String()))
	return nil
}

func (s *Service) release(ctx context.Context, bookingID uuid.UUID, prev Status) {
	if err := s.repo.ReleaseCancellationClaim(ctx, bookingID, prev); err != nil {
		s.logger.Error("failed to release cancellation claim",
			zap.String("booking_id", bookingID.String()),
			zap.String("prev_status", string(prev)),
			zap.Error(err))
	}
}

func (s *Service) observeTransition(from, to Status) {
	if s.metrics == nil {
		return
	}
	s.metrics.BookingTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
}

func (s *Service) publishBookingEvent(ctx context.Context, routingKey string, b *Booking, reason string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, routingKey, events.BookingEvent{
		BookingID: b.ID.String(),
		ClientID:  b.ClientID.String(),
		WorkerID:  b.WorkerID.String(),
		Status:    string(b.Status),
		Reason:    reason,
		At:        time.Now(),
	})
}

// refundMessage formats the user-facing cancellation summary, e.g.
// "Refund of €80.00 processed. Cancellation fee: €20.00."
func refundMessage(split payment.Split) string {
	return fmt.Sprintf("Refund of %s processed. Cancellation fee: %s.",
		formatAmount(split.RefundAmount, split.Currency),
		formatAmount(split.FeeAmount, split.Currency))
}

func formatAmount(minor int64, currency string) string {
	symbol := strings.ToUpper(currency) + " "
	switch strings.ToLower(currency) {
	case "eur":
		symbol = "€"
	case "usd":
		symbol = "$"
	case "gbp":
		symbol = "£"
	}
	return fmt.Sprintf("%s%d.%02d", symbol, minor/100, minor%100)
}
