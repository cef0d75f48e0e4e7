package message

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Service implements conversation and message operations. Realtime fanout
// rides on Redis pub/sub: each conversation has its own channel, and every
// persisted message is published to it.
type Service struct {
	repo   Repository
	redis  redis.UniversalClient
	logger *zap.Logger
}

// NewService creates a new message service.
func NewService(repo Repository, rdb redis.UniversalClient, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		redis:  rdb,
		logger: logger,
	}
}

func conversationChannel(conversationID uuid.UUID) string {
	return "chat:conversation:" + conversationID.String()
}

// EnsureConversation returns the conversation for a booking, creating it on
// first use.
func (s *Service) EnsureConversation(ctx context.Context, bookingID, clientID, workerID uuid.UUID) (*Conversation, error) {
	cv, err := s.repo.GetConversationByBooking(ctx, bookingID)
	if err == nil {
		return cv, nil
	}
	if err != ErrConversationNotFound {
		return nil, err
	}

	cv = &Conversation{
		ID:        uuid.New(),
		BookingID: bookingID,
		ClientID:  clientID,
		WorkerID:  workerID,
	}
	if err := s.repo.CreateConversation(ctx, cv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return cv, nil
}

// ListConversations returns the user's conversations, most recent first.
func (s *Service) ListConversations(ctx context.Context, userID uuid.UUID) ([]*Conversation, error) {
	return s.repo.ListConversations(ctx, userID)
}

// SendMessage persists a message and publishes it to the conversation's
// Redis channel for connected listeners.
func (s *Service) SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, body, attachmentURL string) (*Message, error) {
	if strings.TrimSpace(body) == "" && attachmentURL == "" {
		return nil, ErrEmptyMessage
	}

	cv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !cv.IsParticipant(senderID) {
		return nil, ErrNotParticipant
	}

	m := &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		AttachmentURL:  attachmentURL,
	}
	if err := s.repo.CreateMessage(ctx, m); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	if payload, err := json.Marshal(m); err == nil {
		if err := s.redis.Publish(ctx, conversationChannel(conversationID), payload).Err(); err != nil {
			s.logger.Warn("failed to publish chat message",
				zap.String("conversation_id", conversationID.String()), zap.Error(err))
		}
	}

	return m, nil
}

// ListMessages returns a page of messages, newest first.
func (s *Service) ListMessages(ctx context.Context, conversationID, userID uuid.UUID, limit int, before *uuid.UUID) ([]*Message, error) {
	cv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !cv.IsParticipant(userID) {
		return nil, ErrNotParticipant
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListMessages(ctx, conversationID, limit, before)
}

// MarkRead marks the other participant's messages as read.
func (s *Service) MarkRead(ctx context.Context, conversationID, userID uuid.UUID) error {
	cv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if !cv.IsParticipant(userID) {
		return ErrNotParticipant
	}
	return s.repo.MarkRead(ctx, conversationID, userID)
}

// Stream subscribes to a conversation's channel and forwards messages until
// ctx is cancelled. The returned channel is closed when the subscription
// ends.
func (s *Service) Stream(ctx context.Context, conversationID, userID uuid.UUID) (<-chan *Message, error) {
	cv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !cv.IsParticipant(userID) {
		return nil, ErrNotParticipant
	}

	sub := s.redis.Subscribe(ctx, conversationChannel(conversationID))
	out := make(chan *Message, 16)

	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var m Message
				if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
					s.logger.Warn("malformed chat payload", zap.Error(err))
					continue
				}
				select {
				case out <- &m:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
