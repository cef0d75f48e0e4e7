package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bricollano/server/internal/module/payment"
	"github.com/bricollano/server/internal/module/payment/provider"
)

// MockRepository implements Repository for testing.
type MockRepository struct {
	bookings map[uuid.UUID]*Booking
	fees     []*payment.Payment

	claimErr     error
	finalizeErr  error
	releaseCalls int
	claimCalls   int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{bookings: make(map[uuid.UUID]*Booking)}
}

func (m *MockRepository) CreateBooking(_ context.Context, b *Booking) error {
	m.bookings[b.ID] = b
	return nil
}

func (m *MockRepository) GetBooking(_ context.Context, id uuid.UUID) (*Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	copied := *b
	return &copied, nil
}

func (m *MockRepository) GetBookingByNo(_ context.Context, bookingNo string) (*Booking, error) {
	for _, b := range m.bookings {
		if b.BookingNo == bookingNo {
			copied := *b
			return &copied, nil
		}
	}
	return nil, ErrBookingNotFound
}

func (m *MockRepository) ListByClient(_ context.Context, clientID uuid.UUID, status *Status) ([]*Booking, error) {
	var out []*Booking
	for _, b := range m.bookings {
		if b.ClientID == clientID && (status == nil || b.Status == *status) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *MockRepository) ListByWorker(_ context.Context, workerID uuid.UUID, status *Status) ([]*Booking, error) {
	var out []*Booking
	for _, b := range m.bookings {
		if b.WorkerID == workerID && (status == nil || b.Status == *status) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *MockRepository) UpdateBooking(_ context.Context, b *Booking) error {
	m.bookings[b.ID] = b
	return nil
}

func (m *MockRepository) ClaimForCancellation(_ context.Context, id uuid.UUID) (Status, error) {
	m.claimCalls++
	if m.claimErr != nil {
		return "", m.claimErr
	}
	b, ok := m.bookings[id]
	if !ok {
		return "", ErrBookingNotFound
	}
	if !b.IsCancellable() {
		return "", ErrNotCancellable
	}
	prev := b.Status
	b.Status = StatusCancelling
	return prev, nil
}

func (m *MockRepository) ReleaseCancellationClaim(_ context.Context, id uuid.UUID, prev Status) error {
	m.releaseCalls++
	b, ok := m.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	if b.Status != StatusCancelling {
		return ErrInvalidTransition
	}
	b.Status = prev
	return nil
}

func (m *MockRepository) FinalizeCancellation(_ context.Context, b *Booking, fee *payment.Payment) error {
	if m.finalizeErr != nil {
		return m.finalizeErr
	}
	stored, ok := m.bookings[b.ID]
	if !ok || stored.Status != StatusCancelling {
		return ErrInvalidTransition
	}
	if fee != nil {
		m.fees = append(m.fees, fee)
	}
	now := time.Now()
	stored.Status = StatusCancelled
	stored.CancellationReason = b.CancellationReason
	stored.CancelledAt = &now
	b.Status = StatusCancelled
	b.CancelledAt = &now
	return nil
}

// MockPaymentService implements PaymentService for testing.
type MockPaymentService struct {
	policy *payment.Policy

	completedPayment *payment.Payment
	getPaymentErr    error

	refundErr       error
	refundCalls     int
	refundedAmounts []int64

	reconciliations int
}

func NewMockPaymentService(t *testing.T) *MockPaymentService {
	t.Helper()
	policy, err := payment.NewPolicy(80)
	require.NoError(t, err)
	return &MockPaymentService{policy: policy}
}

func (m *MockPaymentService) Currency() string { return "eur" }

func (m *MockPaymentService) GetCompletedPayment(_ context.Context, _ uuid.UUID) (*payment.Payment, error) {
	if m.getPaymentErr != nil {
		return nil, m.getPaymentErr
	}
	if m.completedPayment == nil {
		return nil, payment.ErrPaymentNotFound
	}
	return m.completedPayment, nil
}

func (m *MockPaymentService) ComputeRefundSplit(total int64, currency string) (payment.Split, error) {
	return m.policy.ComputeRefundSplit(total, currency)
}

func (m *MockPaymentService) IssueRefund(_ context.Context, _ uuid.UUID, _ *payment.Payment, amount int64, _ string) (*provider.Refund, error) {
	m.refundCalls++
	if m.refundErr != nil {
		return nil, m.refundErr
	}
	m.refundedAmounts = append(m.refundedAmounts, amount)
	return &provider.Refund{ID: "re_test_123", Amount: amount, Status: "succeeded"}, nil
}

func (m *MockPaymentService) BuildFeeRecord(bookingID, payerID uuid.UUID, split payment.Split, refundID, reason string) *payment.Payment {
	return &payment.Payment{
		ID:              uuid.New(),
		BookingID:       bookingID,
		PayerID:         payerID,
		Amount:          split.FeeAmount,
		Currency:        split.Currency,
		Method:          payment.MethodCancellationFee,
		Status:          payment.StatusCompleted,
		GatewayRefundID: refundID,
		Reason:          reason,
	}
}

func (m *MockPaymentService) RecordReconciliation(_ context.Context, _ uuid.UUID, _ *payment.Payment, _ payment.Split, _, _ string, _ error) {
	m.reconciliations++
}

func newTestService(repo *MockRepository, payments *MockPaymentService) *Service {
	return NewService(repo, payments, nil, nil, zap.NewNop())
}

func seedBooking(repo *MockRepository, status Status, total int64) *Booking {
	b := &Booking{
		ID:          uuid.New(),
		BookingNo:   "BK-20260830-TEST01",
		ClientID:    uuid.New(),
		WorkerID:    uuid.New(),
		ServiceID:   uuid.New(),
		Status:      status,
		ScheduledAt: time.Now().Add(48 * time.Hour),
		TotalAmount: total,
		Currency:    "eur",
	}
	repo.bookings[b.ID] = b
	return b
}

func completedCardPayment(b *Booking) *payment.Payment {
	return &payment.Payment{
		ID:                    uuid.New(),
		BookingID:             b.ID,
		PayerID:               b.ClientID,
		Amount:                b.TotalAmount,
		Currency:              "eur",
		Method:                payment.MethodCreditCard,
		Status:                payment.StatusCompleted,
		StripePaymentIntentID: "pi_test_123",
	}
}

func TestCancelBooking_RefundsEightyPercent(t *testing.T) {
	repo := NewMockRepository()
	payments := NewMockPaymentService(t)

	b := seedBooking(repo, StatusConfirmed, 10000) // €100.00
	payments.completedPayment = completedCardPayment(b)

	svc := newTestService(repo, payments)
	result, err := svc.CancelBooking(context.Background(), b.ID, b.ClientID, "client requested")
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, result.Status)
	require.NotNil(t, result.Refund)
	assert.Equal(t, int64(8000), result.Refund.RefundAmount)
	assert.Equal(t, int64(2000), result.Refund.FeeAmount)
	assert.Equal(t, "re_test_123", result.Refund.RefundID)
	assert.Equal(t, "Refund of €80.00 processed. Cancellation fee: €20.00.", result.Message)

	assert.Equal(t, StatusCancelled, repo.bookings[b.ID].Status)
	assert.Equal(t, "client requested", repo.bookings[b.ID].CancellationReason)
	require.Len(t, repo.fees, 1)
	assert.Equal(t, payment.MethodCancellationFee, repo.fees[0].Method)
	assert.Equal(t, int64(2000), repo.fees[0].Amount)
	assert.Equal(t, "re_test_123", repo.fees[0].GatewayRefundID)
}

func TestCancelBooking_WorkerMayCancel(t *testing.T) {
	repo := NewMockRepository()
	payments := NewMockPaymentService(t)

	b := seedBooking(repo, StatusPending, 5000)
	payments.completedPayment = completedCardPayment(b)

	svc := newTestService(repo, payments)
	result, err := svc.CancelBooking(context.Background(), b.ID, b.WorkerID, "worker unavailable")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, result.Status)
}

func TestCancelBooking_TerminalStateMakesNoGatewayCall(t *testing.T) {
	for _, status := range []Status{StatusCompleted, StatusCancelled, StatusRejected} {
		t.Run(string(status), func(t *testing.T) {
			repo := NewMockRepository()
			payments := NewMockPaymentService(t)

			b := seedBooking(repo, status, 10000)
			payments.completedPayment = completedCardPayment(b)

			svc := newTestService(repo, payments)
			_, err := svc.CancelBooking(context.Background(), b.ID, b.ClientID, "too late")
			require.ErrorIs(t, err, ErrNotCancellable)

			assert.Zero(t, payments.refundCalls)
			assert.Zero(t, repo.claimCalls)
			assert.Equal(t, status, repo.bookings[b.ID].Status)
		})
	}
}

func TestCancelBooking_StrangerForbidden(t *testing.T) {
	repo := NewMockRepository()
	payments := NewMockPaymentService(t)

	b := seedBooking(repo, StatusConfirmed, 10000)
	payments.completedPayment = completedCardPayment(b)

	svc := newTestService(repo, payments)
	_, err := svc.CancelBooking(context.Background(), b.ID, uuid.New(), "not mine")
	require.ErrorIs(t, err, ErrNotBookingParty)
	assert.Zero(t, payments.refundCalls)
	assert.Equal(t, StatusConfirmed, repo.bookings[b.ID].Status)
}

func TestCancelBooking_NotFound(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestService(repo, NewMockPaymentService(t))

	_, err := svc.CancelBooking(context.Background(), uuid.New(), uuid.New(), "missing")
	require.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCancelBooking_NoPaymentCancelsWithoutRefund(t *testing.T) {
	repo := NewMockRepository()
	payments := NewMockPaymentService(t)

	b := seedBooking(repo, StatusPending, 10000)

	svc := newTestService(repo, payments)
	result, err := svc.CancelBooking(context.Background(), b.ID, b.ClientID, "changed my mind")
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, result.Status)
	assert.Nil(t, result.Refund)
	assert.Equal(t, "Booking cancelled.", result.Message)
	assert.Zero(t, payments.refundCalls)
	assert.Empty(t, repo.fees)
}

func TestCancelBooking_GatewayRejectionRestoresBooking(t *testing.T) {
	repo := NewMockRepository()
	payments := NewMockPaymentService(t)

	b := seedBooking(repo, StatusConfirmed, 10000)
	payments.completedPayment = completedCardPayment(b)
	payments.refundErr = payment.ErrGatewayRejected

	svc := newTestService(repo, payments)
	_, err := svc.CancelBooking(context.Background(), b.ID, b.ClientID, "reason")
	require.ErrorIs(t, err, payment.ErrGatewayRejected)

	assert.Equal(t, StatusConfirmed, repo.bookings[b.ID].Status)
	assert.Equal(t, 1, repo.releaseCalls)
	assert.Empty(t, repo.fees)
	assert.Zero(t, payments.reconciliations)
}

func TestCancelBooking_GatewayTransientRestoresBooking(t *testing.T) {
	repo := NewMockRepository()
	payments := NewMockPaymentService(t)

	b := seedBooking(repo, StatusPending, 10000)
	payments.completedPayment = completedCardPayment(b)
	payments.refundErr = payment.ErrGatewayTransient

	svc := newTestService(repo, payments)
	_, err := svc.CancelBooking(context.Background(), b.ID, b.ClientID, "reason")
	require.ErrorIs(t, err, payment.ErrGatewayTransient)

	assert.Equal(t, StatusPending, repo.bookings[b.ID].Status)
	assert.Equal(t, 1, repo.releaseCalls)
}

func TestCancelBooking_PersistenceFailureAfterRefund(t *testing.T) {
	repo := NewMockRepository()
	payments := NewMockPaymentService(t)

	b := seedBooking(repo, StatusConfirmed, 10000)
	payments.completedPayment = completedCardPayment(b)
	repo.finalizeErr = errors.New("connection reset by peer")

	svc := newTestService(repo, payments)
	_, err := svc.CancelBooking(context.Background(), b.ID, b.ClientID, "reason")
	require.ErrorIs(t, err, payment.ErrPersistenceFailed)
	assert.NotErrorIs(t, err, payment.ErrGatewayTransient)
	assert.NotErrorIs(t, err, payment.ErrGatewayRejected)

	// The refund went through exactly once and must not be retried; the
	// booking stays claimed for manual reconciliation.
	assert.Equal(t, 1, payments.refundCalls)
	assert.Equal(t, 1, payments.reconciliations)
	assert.Zero(t, repo.releaseCalls)
	assert.Equal(t, StatusCancelling, repo.bookings[b.ID].Status)
}

func TestCancelBooking_ConcurrentLoserGetsNotCancellable(t *testing.T) {
	repo := NewMockRepository()
	payments := NewMockPaymentService(t)

	b := seedBooking(repo, StatusConfirmed, 10000)
	payments.completedPayment = completedCardPayment(b)
	repo.claimErr = ErrNotCancellable

	svc := newTestService(repo, payments)
	_, err := svc.CancelBooking(context.Background(), b.ID, b.ClientID, "raced")
	require.ErrorIs(t, err, ErrNotCancellable)
	assert.Zero(t, payments.refundCalls)
}

func TestCancelBooking_CryptoPaymentIsManualPayout(t *testing.T) {
	repo := NewMockRepository()
	payments := NewMockPaymentService(t)

	b := seedBooking(repo, StatusConfirmed, 10000)
	payments.completedPayment = &payment.Payment{
		ID:               uuid.New(),
		BookingID:        b.ID,
		PayerID:          b.ClientID,
		Amount:           b.TotalAmount,
		Currency:         "eur",
		Method:           payment.MethodCrypto,
		Status:           payment.StatusCompleted,
		CoinbaseChargeID: "charge_abc",
	}

	svc := newTestService(repo, payments)
	result, err := svc.CancelBooking(context.Background(), b.ID, b.ClientID, "reason")
	require.NoError(t, err)

	require.NotNil(t, result.Refund)
	assert.True(t, result.Refund.ManualPayout)
	assert.Equal(t, int64(8000), result.Refund.RefundAmount)
	assert.Zero(t, payments.refundCalls)
	require.Len(t, repo.fees, 1)
	assert.Empty(t, repo.fees[0].GatewayRefundID)
}

func TestCancelBooking_RefundAmountMatchesPolicy(t *testing.T) {
	tests := []struct {
		total  int64
		refund int64
		fee    int64
	}{
		{10000, 8000, 2000},
		{9999, 7999, 2000},
		{4550, 3640, 910},
		{1, 1, 0},
	}

	for _, tt := range tests {
		repo := NewMockRepository()
		payments := NewMockPaymentService(t)

		b := seedBooking(repo, StatusConfirmed, tt.total)
		payments.completedPayment = completedCardPayment(b)

		svc := newTestService(repo, payments)
		result, err := svc.CancelBooking(context.Background(), b.ID, b.ClientID, "reason")
		require.NoError(t, err)

		assert.Equal(t, tt.refund, result.Refund.RefundAmount, "total %d", tt.total)
		assert.Equal(t, tt.fee, result.Refund.FeeAmount, "total %d", tt.total)
		assert.Equal(t, tt.total, result.Refund.RefundAmount+result.Refund.FeeAmount)
		require.Len(t, payments.refundedAmounts, 1)
		assert.Equal(t, tt.refund, payments.refundedAmounts[0])
	}
}

func TestConfirmBooking(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestService(repo, NewMockPaymentService(t))

	b := seedBooking(repo, StatusPending, 10000)

	confirmed, err := svc.ConfirmBooking(context.Background(), b.ID, b.WorkerID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	assert.NotNil(t, confirmed.ConfirmedAt)

	_, err = svc.ConfirmBooking(context.Background(), b.ID, b.WorkerID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestConfirmBooking_OnlyWorker(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestService(repo, NewMockPaymentService(t))

	b := seedBooking(repo, StatusPending, 10000)

	_, err := svc.ConfirmBooking(context.Background(), b.ID, b.ClientID)
	require.ErrorIs(t, err, ErrNotWorker)
}

func TestRejectBooking(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestService(repo, NewMockPaymentService(t))

	b := seedBooking(repo, StatusPending, 10000)

	rejected, err := svc.RejectBooking(context.Background(), b.ID, b.WorkerID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
}

func TestCompleteBooking(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestService(repo, NewMockPaymentService(t))

	b := seedBooking(repo, StatusConfirmed, 10000)

	completed, err := svc.CompleteBooking(context.Background(), b.ID, b.WorkerID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)
}

func TestCreateBooking(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestService(repo, NewMockPaymentService(t))

	clientID := uuid.New()
	b, err := svc.CreateBooking(context.Background(), clientID, &CreateBookingRequest{
		WorkerID:    uuid.New(),
		ServiceID:   uuid.New(),
		ScheduledAt: time.Now().Add(24 * time.Hour),
		Address:     "Via Roma 1, Milano",
		TotalAmount: 7500,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, clientID, b.ClientID)
	assert.Equal(t, "eur", b.Currency)
	assert.Regexp(t, `^BK-\d{8}-[A-Z2-9]{6}$`, b.BookingNo)
}
