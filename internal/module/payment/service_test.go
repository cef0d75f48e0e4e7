package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bricollano/server/internal/module/payment/provider"
)

// MockRepository is a mock implementation of Repository.
type MockRepository struct {
	payments        map[uuid.UUID]*Payment
	webhookEvents   map[string]bool
	reconciliations []*Reconciliation
	createErr       error
	reconcileErr    error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		payments:      make(map[uuid.UUID]*Payment),
		webhookEvents: make(map[string]bool),
	}
}

func (m *MockRepository) CreatePayment(ctx context.Context, p *Payment) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.payments[p.ID] = p
	return nil
}

func (m *MockRepository) GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return p, nil
}

func (m *MockRepository) GetPaymentByPaymentIntentID(ctx context.Context, paymentIntentID string) (*Payment, error) {
	for _, p := range m.payments {
		if p.StripePaymentIntentID == paymentIntentID {
			return p, nil
		}
	}
	return nil, ErrPaymentNotFound
}

func (m *MockRepository) GetPaymentByChargeID(ctx context.Context, chargeID string) (*Payment, error) {
	for _, p := range m.payments {
		if p.CoinbaseChargeID == chargeID {
			return p, nil
		}
	}
	return nil, ErrPaymentNotFound
}

func (m *MockRepository) GetCompletedPaymentForBooking(ctx context.Context, bookingID uuid.UUID) (*Payment, error) {
	for _, p := range m.payments {
		if p.BookingID == bookingID && p.Status == StatusCompleted &&
			(p.Method == MethodCreditCard || p.Method == MethodCrypto) {
			return p, nil
		}
	}
	return nil, ErrPaymentNotFound
}

func (m *MockRepository) UpdatePayment(ctx context.Context, p *Payment) error {
	m.payments[p.ID] = p
	return nil
}

func (m *MockRepository) ListPaymentsByBooking(ctx context.Context, bookingID uuid.UUID) ([]*Payment, error) {
	var out []*Payment
	for _, p := range m.payments {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockRepository) CreateWebhookEvent(ctx context.Context, event *WebhookEvent) error {
	key := event.Provider + ":" + event.EventID
	if m.webhookEvents[key] {
		return ErrDuplicateEvent
	}
	m.webhookEvents[key] = true
	return nil
}

func (m *MockRepository) MarkWebhookEventProcessed(ctx context.Context, id uuid.UUID, err error) error {
	return nil
}

func (m *MockRepository) CreateReconciliation(ctx context.Context, rec *Reconciliation) error {
	if m.reconcileErr != nil {
		return m.reconcileErr
	}
	m.reconciliations = append(m.reconciliations, rec)
	return nil
}

// fakeCardGateway records refund calls and returns canned responses.
type fakeCardGateway struct {
	refundParams []*provider.RefundParams
	refundErr    error
}

func (f *fakeCardGateway) Name() string { return "stripe" }

func (f *fakeCardGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*provider.PaymentIntent, error) {
	return &provider.PaymentIntent{
		ID:           "pi_test",
		ClientSecret: "pi_test_secret",
		Amount:       amount,
		Currency:     currency,
		Status:       "requires_payment_method",
	}, nil
}

func (f *fakeCardGateway) GetPaymentIntent(ctx context.Context, paymentIntentID string) (*provider.PaymentIntent, error) {
	return &provider.PaymentIntent{ID: paymentIntentID}, nil
}

func (f *fakeCardGateway) CreateRefund(ctx context.Context, params *provider.RefundParams) (*provider.Refund, error) {
	f.refundParams = append(f.refundParams, params)
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	return &provider.Refund{
		ID:              "re_test",
		PaymentIntentID: params.PaymentIntentID,
		Amount:          params.Amount,
		Currency:        "eur",
		Status:          "succeeded",
	}, nil
}

func (f *fakeCardGateway) VerifyWebhookSignature(payload []byte, signature string) error {
	return nil
}

func newTestService(repo Repository, gateway provider.Provider) *Service {
	registry := NewProviderRegistry()
	registry.RegisterCard(gateway)
	policy, _ := NewPolicy(80)
	return NewService(repo, registry, policy, "eur", nil, nil, zap.NewNop())
}

func completedCardPayment(bookingID uuid.UUID, amount int64) *Payment {
	return &Payment{
		ID:                    uuid.New(),
		BookingID:             bookingID,
		PayerID:               uuid.New(),
		Amount:                amount,
		Currency:              "eur",
		Method:                MethodCreditCard,
		Status:                StatusCompleted,
		Provider:              "stripe",
		StripePaymentIntentID: "pi_123",
	}
}

func TestRefundIdempotencyKey(t *testing.T) {
	bookingID := uuid.New()

	key1 := RefundIdempotencyKey(bookingID, "pi_123")
	key2 := RefundIdempotencyKey(bookingID, "pi_123")
	assert.Equal(t, key1, key2, "same booking and intent must derive the same key")
	assert.Len(t, key1, 64)

	assert.NotEqual(t, key1, RefundIdempotencyKey(uuid.New(), "pi_123"))
	assert.NotEqual(t, key1, RefundIdempotencyKey(bookingID, "pi_456"))
}

func TestIssueRefund_PassesDeterministicIdempotencyKey(t *testing.T) {
	gateway := &fakeCardGateway{}
	service := newTestService(NewMockRepository(), gateway)

	bookingID := uuid.New()
	p := completedCardPayment(bookingID, 10000)

	refund, err := service.IssueRefund(context.Background(), bookingID, p, 8000, "client cancelled")
	require.NoError(t, err)

	assert.Equal(t, "re_test", refund.ID)
	assert.Equal(t, int64(8000), refund.Amount)

	require.Len(t, gateway.refundParams, 1)
	params := gateway.refundParams[0]
	assert.Equal(t, "pi_123", params.PaymentIntentID)
	assert.Equal(t, int64(8000), params.Amount)
	assert.Equal(t, RefundIdempotencyKey(bookingID, "pi_123"), params.IdempotencyKey)
	assert.Equal(t, "client cancelled", params.Reason)
}

func TestIssueRefund_RejectsNonRefundablePayments(t *testing.T) {
	bookingID := uuid.New()

	crypto := completedCardPayment(bookingID, 10000)
	crypto.Method = MethodCrypto
	crypto.StripePaymentIntentID = ""

	pending := completedCardPayment(bookingID, 10000)
	pending.Status = StatusPending

	fee := completedCardPayment(bookingID, 2000)
	fee.Method = MethodCancellationFee

	for name, p := range map[string]*Payment{
		"crypto":  crypto,
		"pending": pending,
		"fee row": fee,
	} {
		t.Run(name, func(t *testing.T) {
			gateway := &fakeCardGateway{}
			service := newTestService(NewMockRepository(), gateway)

			_, err := service.IssueRefund(context.Background(), bookingID, p, 8000, "")
			require.ErrorIs(t, err, ErrNotRefundable)
			assert.Empty(t, gateway.refundParams, "non-refundable payment must not reach the gateway")
		})
	}
}

func TestIssueRefund_RejectsInvalidAmounts(t *testing.T) {
	bookingID := uuid.New()
	p := completedCardPayment(bookingID, 10000)

	for name, amount := range map[string]int64{
		"zero":             0,
		"negative":         -100,
		"exceeds captured": 10001,
	} {
		t.Run(name, func(t *testing.T) {
			gateway := &fakeCardGateway{}
			service := newTestService(NewMockRepository(), gateway)

			_, err := service.IssueRefund(context.Background(), bookingID, p, amount, "")
			require.ErrorIs(t, err, ErrInvalidAmount)
			assert.Empty(t, gateway.refundParams)
		})
	}
}

func TestIssueRefund_PropagatesGatewayClassification(t *testing.T) {
	bookingID := uuid.New()
	p := completedCardPayment(bookingID, 10000)

	for name, gatewayErr := range map[string]error{
		"transient": fmt.Errorf("create refund: %w: status 503", provider.ErrTransient),
		"rejected":  fmt.Errorf("create refund: %w: charge already refunded", provider.ErrRejected),
	} {
		t.Run(name, func(t *testing.T) {
			gateway := &fakeCardGateway{refundErr: gatewayErr}
			service := newTestService(NewMockRepository(), gateway)

			_, err := service.IssueRefund(context.Background(), bookingID, p, 8000, "")
			require.ErrorIs(t, err, gatewayErr)
		})
	}
}

func TestBuildFeeRecord(t *testing.T) {
	service := newTestService(NewMockRepository(), &fakeCardGateway{})

	bookingID := uuid.New()
	payerID := uuid.New()
	split, err := service.ComputeRefundSplit(10000, "eur")
	require.NoError(t, err)

	fee := service.BuildFeeRecord(bookingID, payerID, split, "re_test", "client cancelled")

	assert.NotEqual(t, uuid.Nil, fee.ID)
	assert.Equal(t, bookingID, fee.BookingID)
	assert.Equal(t, payerID, fee.PayerID)
	assert.Equal(t, int64(2000), fee.Amount)
	assert.Equal(t, "eur", fee.Currency)
	assert.Equal(t, MethodCancellationFee, fee.Method)
	assert.Equal(t, StatusCompleted, fee.Status)
	assert.Equal(t, "re_test", fee.GatewayRefundID)
	require.NotNil(t, fee.CompletedAt)
}

func TestRecordReconciliation_PersistsRow(t *testing.T) {
	repo := NewMockRepository()
	service := newTestService(repo, &fakeCardGateway{})

	bookingID := uuid.New()
	p := completedCardPayment(bookingID, 10000)
	split, _ := service.ComputeRefundSplit(10000, "eur")

	service.RecordReconciliation(context.Background(), bookingID, p, split, "re_test", "client cancelled", errors.New("tx aborted"))

	require.Len(t, repo.reconciliations, 1)
	rec := repo.reconciliations[0]
	assert.Equal(t, bookingID, rec.BookingID)
	assert.Equal(t, p.ID, rec.PaymentID)
	assert.Equal(t, "re_test", rec.GatewayRefundID)
	assert.Equal(t, int64(8000), rec.RefundAmount)
	assert.Equal(t, int64(2000), rec.FeeAmount)
	assert.Equal(t, "tx aborted", rec.Detail)
}

func TestRecordReconciliation_SurvivesRepositoryFailure(t *testing.T) {
	repo := NewMockRepository()
	repo.reconcileErr = errors.New("db down")
	service := newTestService(repo, &fakeCardGateway{})

	bookingID := uuid.New()
	p := completedCardPayment(bookingID, 10000)
	split, _ := service.ComputeRefundSplit(10000, "eur")

	// Must not panic: the error log is the last trace when both writes fail.
	service.RecordReconciliation(context.Background(), bookingID, p, split, "re_test", "", errors.New("tx aborted"))
	assert.Empty(t, repo.reconciliations)
}

func TestCreateCardPaymentIntent_PersistsPendingLedgerRow(t *testing.T) {
	repo := NewMockRepository()
	service := newTestService(repo, &fakeCardGateway{})

	bookingID := uuid.New()
	payerID := uuid.New()

	resp, err := service.CreateCardPaymentIntent(context.Background(), bookingID, payerID, 10000)
	require.NoError(t, err)

	assert.Equal(t, "pi_test", resp.PaymentIntentID)
	assert.Equal(t, "pi_test_secret", resp.ClientSecret)

	stored, err := repo.GetPayment(context.Background(), resp.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Equal(t, MethodCreditCard, stored.Method)
	assert.Equal(t, "pi_test", stored.StripePaymentIntentID)
}

func TestCreateCardPaymentIntent_RejectsNonPositiveAmount(t *testing.T) {
	service := newTestService(NewMockRepository(), &fakeCardGateway{})

	_, err := service.CreateCardPaymentIntent(context.Background(), uuid.New(), uuid.New(), 0)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestProviderRegistry_ByMethod(t *testing.T) {
	registry := NewProviderRegistry()
	gateway := &fakeCardGateway{}
	registry.RegisterCard(gateway)

	p, err := registry.ByMethod(MethodCreditCard)
	require.NoError(t, err)
	assert.Equal(t, "stripe", p.Name())

	_, err = registry.ByMethod(MethodCrypto)
	require.ErrorIs(t, err, ErrProviderNotFound)

	_, err = registry.Card("adyen")
	require.ErrorIs(t, err, ErrProviderNotFound)
}

func TestListPaymentsByBooking_RestrictedToPayer(t *testing.T) {
	repo := NewMockRepository()
	service := newTestService(repo, &fakeCardGateway{})

	bookingID := uuid.New()
	p := completedCardPayment(bookingID, 10000)
	repo.payments[p.ID] = p

	rows, err := service.ListPaymentsByBooking(context.Background(), bookingID, p.PayerID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = service.ListPaymentsByBooking(context.Background(), bookingID, uuid.New())
	require.ErrorIs(t, err, ErrNotPayer, "a stranger must not read another client's ledger")
}
