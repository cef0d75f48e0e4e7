package catalog

import "github.com/google/uuid"

// CreateServiceRequest is the request to create a service offering.
type CreateServiceRequest struct {
	CategoryID  uuid.UUID `json:"category_id" binding:"required"`
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Price       int64     `json:"price" binding:"required,gt=0"`
	DurationMin int       `json:"duration_min" binding:"omitempty,gt=0"`
	PhotoURL    string    `json:"photo_url"`
}

// UpdateServiceRequest is a partial update of a service offering.
type UpdateServiceRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Price       *int64  `json:"price" binding:"omitempty,gt=0"`
	DurationMin *int    `json:"duration_min" binding:"omitempty,gt=0"`
	PhotoURL    *string `json:"photo_url"`
	Active      *bool   `json:"active"`
}

// UpsertProfileRequest creates or replaces a worker's listing profile.
type UpsertProfileRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	Bio         string `json:"bio"`
	City        string `json:"city"`
	HourlyRate  int64  `json:"hourly_rate" binding:"omitempty,gt=0"`
	PhotoURL    string `json:"photo_url"`
	Available   bool   `json:"available"`
}

// SearchQuery is the query string for a service search.
type SearchQuery struct {
	CategoryID string `form:"category_id"`
	Query      string `form:"q"`
	MaxPrice   int64  `form:"max_price"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}
