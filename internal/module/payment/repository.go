package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicateEvent is returned when a webhook event was already stored.
var ErrDuplicateEvent = errors.New("webhook event already stored")

// Repository defines the interface for payment data access.
type Repository interface {
	CreatePayment(ctx context.Context, payment *Payment) error
	GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetPaymentByPaymentIntentID(ctx context.Context, paymentIntentID string) (*Payment, error)
	GetPaymentByChargeID(ctx context.Context, chargeID string) (*Payment, error)
	GetCompletedPaymentForBooking(ctx context.Context, bookingID uuid.UUID) (*Payment, error)
	UpdatePayment(ctx context.Context, payment *Payment) error
	ListPaymentsByBooking(ctx context.Context, bookingID uuid.UUID) ([]*Payment, error)

	CreateWebhookEvent(ctx context.Context, event *WebhookEvent) error
	MarkWebhookEventProcessed(ctx context.Context, id uuid.UUID, err error) error

	CreateReconciliation(ctx context.Context, rec *Reconciliation) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new payment repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreatePayment(ctx context.Context, payment *Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return fmt.Errorf("create payment: %w", translatePGError(err))
	}
	return nil
}

func (r *repository) GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error) {
	var payment Payment
	err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", translatePGError(err))
	}
	return &payment, nil
}

func (r *repository) GetPaymentByPaymentIntentID(ctx context.Context, paymentIntentID string) (*Payment, error) {
	var payment Payment
	err := r.db.WithContext(ctx).First(&payment, "stripe_payment_intent_id = ?", paymentIntentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment by payment intent id: %w", translatePGError(err))
	}
	return &payment, nil
}

func (r *repository) GetPaymentByChargeID(ctx context.Context, chargeID string) (*Payment, error) {
	var payment Payment
	err := r.db.WithContext(ctx).First(&payment, "coinbase_charge_id = ?", chargeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment by charge id: %w", translatePGError(err))
	}
	return &payment, nil
}

// GetCompletedPaymentForBooking returns the completed primary charge for a
// booking. Fee rows are excluded: only the original capture is refundable.
func (r *repository) GetCompletedPaymentForBooking(ctx context.Context, bookingID uuid.UUID) (*Payment, error) {
	var payment Payment
	err := r.db.WithContext(ctx).
		Where("booking_id = ? AND status = ? AND method IN ?",
			bookingID, StatusCompleted, []Method{MethodCreditCard, MethodCrypto}).
		Order("created_at ASC").
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get completed payment for booking: %w", translatePGError(err))
	}
	return &payment, nil
}

func (r *repository) UpdatePayment(ctx context.Context, payment *Payment) error {
	if err := r.db.WithContext(ctx).Save(payment).Error; err != nil {
		return fmt.Errorf("update payment: %w", translatePGError(err))
	}
	return nil
}

func (r *repository) ListPaymentsByBooking(ctx context.Context, bookingID uuid.UUID) ([]*Payment, error) {
	var payments []*Payment
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("list payments by booking: %w", translatePGError(err))
	}
	return payments, nil
}

func (r *repository) CreateWebhookEvent(ctx context.Context, event *WebhookEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("create webhook event: %w", translatePGError(err))
	}
	return nil
}

func (r *repository) MarkWebhookEventProcessed(ctx context.Context, id uuid.UUID, processErr error) error {
	updates := map[string]interface{}{
		"processed":    true,
		"processed_at": gorm.Expr("NOW()"),
	}
	if processErr != nil {
		errStr := processErr.Error()
		updates["error"] = errStr
	}
	err := r.db.WithContext(ctx).
		Model(&WebhookEvent{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("mark webhook event processed: %w", translatePGError(err))
	}
	return nil
}

func (r *repository) CreateReconciliation(ctx context.Context, rec *Reconciliation) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create reconciliation: %w", translatePGError(err))
	}
	return nil
}

// isUniqueViolation reports whether err is a postgres unique constraint
// violation (SQLSTATE 23505). The gorm postgres driver is pgx-based, so
// database errors surface as *pgconn.PgError.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// translatePGError keeps driver error types from leaking past the
// repository boundary.
func translatePGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("postgres %s: %s", pgErr.Code, pgErr.Message)
	}
	return err
}
