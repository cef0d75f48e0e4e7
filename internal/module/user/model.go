package user

import (
	"time"

	"github.com/google/uuid"
)

// Role distinguishes clients (who book) from workers (who provide services).
type Role string

const (
	RoleClient Role = "client"
	RoleWorker Role = "worker"
)

// User represents a registered account.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone,omitempty"`
	Role         Role      `json:"role" gorm:"not null;default:client"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (User) TableName() string {
	return "users"
}

// RefreshToken is a stored, hashed refresh token.
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	TokenHash string    `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	RevokedAt *time.Time
	CreatedAt time.Time
}

// TableName returns the database table name.
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// Valid returns true if the token is neither revoked nor expired.
func (t *RefreshToken) Valid() bool {
	return t.RevokedAt == nil && time.Now().Before(t.ExpiresAt)
}
