package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bricollano/server/internal/module/payment"
)

// Repository defines the interface for booking data access.
type Repository interface {
	CreateBooking(ctx context.Context, b *Booking) error
	GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetBookingByNo(ctx context.Context, bookingNo string) (*Booking, error)
	ListByClient(ctx context.Context, clientID uuid.UUID, status *Status) ([]*Booking, error)
	ListByWorker(ctx context.Context, workerID uuid.UUID, status *Status) ([]*Booking, error)
	UpdateBooking(ctx context.Context, b *Booking) error

	// ClaimForCancellation moves a cancellable booking to `cancelling` with a
	// conditional update and returns the status it came from. A booking that
	// is terminal, already cancelling, or claimed by a concurrent caller
	// yields ErrNotCancellable.
	ClaimForCancellation(ctx context.Context, id uuid.UUID) (Status, error)
	// ReleaseCancellationClaim rolls a `cancelling` booking back to the
	// status it was claimed from.
	ReleaseCancellationClaim(ctx context.Context, id uuid.UUID, prev Status) error
	// FinalizeCancellation persists the cancellation outcome in a single
	// transaction: the optional cancellation fee ledger row and the booking's
	// final `cancelled` status with reason and timestamp.
	FinalizeCancellation(ctx context.Context, b *Booking, fee *payment.Payment) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new booking repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateBooking(ctx context.Context, b *Booking) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *repository) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var b Booking
	err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) GetBookingByNo(ctx context.Context, bookingNo string) (*Booking, error) {
	var b Booking
	err := r.db.WithContext(ctx).First(&b, "booking_no = ?", bookingNo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) ListByClient(ctx context.Context, clientID uuid.UUID, status *Status) ([]*Booking, error) {
	return r.list(ctx, "client_id = ?", clientID, status)
}

func (r *repository) ListByWorker(ctx context.Context, workerID uuid.UUID, status *Status) ([]*Booking, error) {
	return r.list(ctx, "worker_id = ?", workerID, status)
}

func (r *repository) list(ctx context.Context, cond string, id uuid.UUID, status *Status) ([]*Booking, error) {
	var bookings []*Booking
	query := r.db.WithContext(ctx).Where(cond, id)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	err := query.Order("scheduled_at DESC").Find(&bookings).Error
	return bookings, err
}

func (r *repository) UpdateBooking(ctx context.Context, b *Booking) error {
	return r.db.WithContext(ctx).Save(b).Error
}

func (r *repository) ClaimForCancellation(ctx context.Context, id uuid.UUID) (Status, error) {
	var prev Status
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b Booking
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&b, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if !b.IsCancellable() {
			return ErrNotCancellable
		}
		prev = b.Status

		res := tx.Model(&Booking{}).
			Where("id = ? AND status IN ?", id, []Status{StatusPending, StatusConfirmed}).
			Update("status", StatusCancelling)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrNotCancellable
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return prev, nil
}

func (r *repository) ReleaseCancellationClaim(ctx context.Context, id uuid.UUID, prev Status) error {
	res := r.db.WithContext(ctx).Model(&Booking{}).
		Where("id = ? AND status = ?", id, StatusCancelling).
		Update("status", prev)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *repository) FinalizeCancellation(ctx context.Context, b *Booking, fee *payment.Payment) error {
	now := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if fee != nil {
			if err := tx.Create(fee).Error; err != nil {
				return err
			}
		}
		res := tx.Model(&Booking{}).
			Where("id = ? AND status = ?", b.ID, StatusCancelling).
			Updates(map[string]interface{}{
				"status":              StatusCancelled,
				"cancellation_reason": b.CancellationReason,
				"cancelled_at":        now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrInvalidTransition
		}
		b.Status = StatusCancelled
		b.CancelledAt = &now
		return nil
	})
}
