package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SearchFilter filters a service search.
type SearchFilter struct {
	CategoryID *uuid.UUID
	City       string
	Query      string
	MaxPrice   *int64
}

// Repository defines the interface for catalog data access.
type Repository interface {
	ListCategories(ctx context.Context) ([]*Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)

	CreateService(ctx context.Context, s *Service) error
	GetService(ctx context.Context, id uuid.UUID) (*Service, error)
	UpdateService(ctx context.Context, s *Service) error
	SearchServices(ctx context.Context, filter *SearchFilter, limit, offset int) ([]*Service, int64, error)
	ListServicesByWorker(ctx context.Context, workerID uuid.UUID) ([]*Service, error)

	UpsertWorkerProfile(ctx context.Context, p *WorkerProfile) error
	GetWorkerProfile(ctx context.Context, userID uuid.UUID) (*WorkerProfile, error)
	ListWorkerProfiles(ctx context.Context, city string, limit, offset int) ([]*WorkerProfile, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new catalog repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListCategories(ctx context.Context) ([]*Category, error) {
	var categories []*Category
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("sort_order ASC, name ASC").
		Find(&categories).Error
	return categories, err
}

func (r *repository) GetCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	var c Category
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) CreateService(ctx context.Context, s *Service) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *repository) GetService(ctx context.Context, id uuid.UUID) (*Service, error) {
	var s Service
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) UpdateService(ctx context.Context, s *Service) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *repository) SearchServices(ctx context.Context, filter *SearchFilter, limit, offset int) ([]*Service, int64, error) {
	var services []*Service
	var total int64

	query := r.db.WithContext(ctx).Model(&Service{}).Where("active = ?", true)
	if filter != nil {
		if filter.CategoryID != nil {
			query = query.Where("category_id = ?", *filter.CategoryID)
		}
		if filter.Query != "" {
			like := "%" + filter.Query + "%"
			query = query.Where("title ILIKE ? OR description ILIKE ?", like, like)
		}
		if filter.MaxPrice != nil {
			query = query.Where("price <= ?", *filter.MaxPrice)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&services).Error; err != nil {
		return nil, 0, err
	}
	return services, total, nil
}

func (r *repository) ListServicesByWorker(ctx context.Context, workerID uuid.UUID) ([]*Service, error) {
	var services []*Service
	err := r.db.WithContext(ctx).
		Where("worker_id = ?", workerID).
		Order("created_at DESC").
		Find(&services).Error
	return services, err
}

func (r *repository) UpsertWorkerProfile(ctx context.Context, p *WorkerProfile) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *repository) GetWorkerProfile(ctx context.Context, userID uuid.UUID) (*WorkerProfile, error) {
	var p WorkerProfile
	err := r.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) ListWorkerProfiles(ctx context.Context, city string, limit, offset int) ([]*WorkerProfile, int64, error) {
	var profiles []*WorkerProfile
	var total int64

	query := r.db.WithContext(ctx).Model(&WorkerProfile{}).Where("available = ?", true)
	if city != "" {
		query = query.Where("city ILIKE ?", city)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("rating DESC, jobs_done DESC").Limit(limit).Offset(offset).Find(&profiles).Error; err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}
