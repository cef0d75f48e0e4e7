package message

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is the message thread attached to a booking.
type Conversation struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BookingID uuid.UUID `json:"booking_id" gorm:"type:uuid;uniqueIndex;not null"`
	ClientID  uuid.UUID `json:"client_id" gorm:"type:uuid;not null;index"`
	WorkerID  uuid.UUID `json:"worker_id" gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Conversation) TableName() string {
	return "conversations"
}

// IsParticipant returns true if the user belongs to the conversation.
func (cv *Conversation) IsParticipant(userID uuid.UUID) bool {
	return cv.ClientID == userID || cv.WorkerID == userID
}

// Message is a single chat message within a conversation.
type Message struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationID uuid.UUID `json:"conversation_id" gorm:"type:uuid;not null;index"`
	SenderID       uuid.UUID `json:"sender_id" gorm:"type:uuid;not null"`
	Body           string    `json:"body" gorm:"not null"`
	AttachmentURL  string    `json:"attachment_url,omitempty"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// TableName returns the database table name.
func (Message) TableName() string {
	return "messages"
}
