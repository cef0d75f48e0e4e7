package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Category groups services, e.g. plumbing or electrical work.
type Category struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	Slug      string    `json:"slug" gorm:"uniqueIndex;not null"`
	IconURL   string    `json:"icon_url,omitempty"`
	SortOrder int       `json:"sort_order" gorm:"default:0"`
	Active    bool      `json:"active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Category) TableName() string {
	return "categories"
}

// Service is a bookable offering by a worker, priced in minor units.
type Service struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CategoryID  uuid.UUID `json:"category_id" gorm:"type:uuid;not null;index"`
	WorkerID    uuid.UUID `json:"worker_id" gorm:"type:uuid;not null;index"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description"`
	Price       int64     `json:"price"` // minor units (cents)
	Currency    string    `json:"currency" gorm:"default:eur"`
	DurationMin int       `json:"duration_min"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	Active      bool      `json:"active" gorm:"default:true;index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Service) TableName() string {
	return "services"
}

// WorkerProfile is a worker's public listing profile.
type WorkerProfile struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid;uniqueIndex;not null"`
	DisplayName string    `json:"display_name" gorm:"not null"`
	Bio         string    `json:"bio"`
	City        string    `json:"city" gorm:"index"`
	HourlyRate  int64     `json:"hourly_rate"` // minor units (cents)
	Currency    string    `json:"currency" gorm:"default:eur"`
	Rating      float64   `json:"rating" gorm:"default:0"`
	JobsDone    int       `json:"jobs_done" gorm:"default:0"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	Available   bool      `json:"available" gorm:"default:true;index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (WorkerProfile) TableName() string {
	return "worker_profiles"
}
