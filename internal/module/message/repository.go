package message

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for message data access.
type Repository interface {
	CreateConversation(ctx context.Context, cv *Conversation) error
	GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error)
	GetConversationByBooking(ctx context.Context, bookingID uuid.UUID) (*Conversation, error)
	ListConversations(ctx context.Context, userID uuid.UUID) ([]*Conversation, error)

	CreateMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit int, before *uuid.UUID) ([]*Message, error)
	MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new message repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateConversation(ctx context.Context, cv *Conversation) error {
	return r.db.WithContext(ctx).Create(cv).Error
}

func (r *repository) GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	var cv Conversation
	err := r.db.WithContext(ctx).First(&cv, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &cv, nil
}

func (r *repository) GetConversationByBooking(ctx context.Context, bookingID uuid.UUID) (*Conversation, error) {
	var cv Conversation
	err := r.db.WithContext(ctx).First(&cv, "booking_id = ?", bookingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &cv, nil
}

func (r *repository) ListConversations(ctx context.Context, userID uuid.UUID) ([]*Conversation, error) {
	var conversations []*Conversation
	err := r.db.WithContext(ctx).
		Where("client_id = ? OR worker_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&conversations).Error
	return conversations, err
}

func (r *repository) CreateMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *repository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int, before *uuid.UUID) ([]*Message, error) {
	var messages []*Message
	query := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if before != nil {
		query = query.Where("created_at < (SELECT created_at FROM messages WHERE id = ?)", *before)
	}
	err := query.Order("created_at DESC").Limit(limit).Find(&messages).Error
	return messages, err
}

func (r *repository) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND read_at IS NULL", conversationID, readerID).
		Update("read_at", gorm.Expr("NOW()")).Error
}
