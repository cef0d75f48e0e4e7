package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Svc implements catalog operations.
type Svc struct {
	repo     Repository
	currency string
	logger   *zap.Logger
}

// NewService creates a new catalog service.
func NewService(repo Repository, currency string, logger *zap.Logger) *Svc {
	return &Svc{
		repo:     repo,
		currency: currency,
		logger:   logger,
	}
}

// ListCategories returns the active categories.
func (s *Svc) ListCategories(ctx context.Context) ([]*Category, error) {
	return s.repo.ListCategories(ctx)
}

// CreateService creates a new service offering for a worker.
func (s *Svc) CreateService(ctx context.Context, workerID uuid.UUID, req *CreateServiceRequest) (*Service, error) {
	if _, err := s.repo.GetCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	svc := &Service{
		ID:          uuid.New(),
		CategoryID:  req.CategoryID,
		WorkerID:    workerID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Currency:    s.currency,
		DurationMin: req.DurationMin,
		PhotoURL:    req.PhotoURL,
		Active:      true,
	}
	if err := s.repo.CreateService(ctx, svc); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}

	s.logger.Info("service created",
		zap.String("service_id", svc.ID.String()),
		zap.String("worker_id", workerID.String()))
	return svc, nil
}

// GetService returns a service by ID.
func (s *Svc) GetService(ctx context.Context, id uuid.UUID) (*Service, error) {
	return s.repo.GetService(ctx, id)
}

// UpdateService applies a partial update to a worker's own service.
func (s *Svc) UpdateService(ctx context.Context, serviceID, workerID uuid.UUID, req *UpdateServiceRequest) (*Service, error) {
	svc, err := s.repo.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.WorkerID != workerID {
		return nil, ErrNotServiceOwner
	}

	if req.Title != nil {
		svc.Title = *req.Title
	}
	if req.Description != nil {
		svc.Description = *req.Description
	}
	if req.Price != nil {
		svc.Price = *req.Price
	}
	if req.DurationMin != nil {
		svc.DurationMin = *req.DurationMin
	}
	if req.PhotoURL != nil {
		svc.PhotoURL = *req.PhotoURL
	}
	if req.Active != nil {
		svc.Active = *req.Active
	}

	if err := s.repo.UpdateService(ctx, svc); err != nil {
		return nil, fmt.Errorf("update service: %w", err)
	}
	return svc, nil
}

// SearchServices searches active services.
func (s *Svc) SearchServices(ctx context.Context, filter *SearchFilter, limit, offset int) ([]*Service, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.SearchServices(ctx, filter, limit, offset)
}

// ListWorkerServices returns a worker's own services, active or not.
func (s *Svc) ListWorkerServices(ctx context.Context, workerID uuid.UUID) ([]*Service, error) {
	return s.repo.ListServicesByWorker(ctx, workerID)
}

// UpsertWorkerProfile creates or replaces a worker's listing profile.
func (s *Svc) UpsertWorkerProfile(ctx context.Context, userID uuid.UUID, req *UpsertProfileRequest) (*WorkerProfile, error) {
	p, err := s.repo.GetWorkerProfile(ctx, userID)
	if err != nil {
		if err != ErrProfileNotFound {
			return nil, err
		}
		p = &WorkerProfile{
			ID:       uuid.New(),
			UserID:   userID,
			Currency: s.currency,
		}
	}

	p.DisplayName = req.DisplayName
	p.Bio = req.Bio
	p.City = req.City
	p.HourlyRate = req.HourlyRate
	p.PhotoURL = req.PhotoURL
	p.Available = req.Available

	if err := s.repo.UpsertWorkerProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("upsert worker profile: %w", err)
	}
	return p, nil
}

// GetWorkerProfile returns a worker's listing profile.
func (s *Svc) GetWorkerProfile(ctx context.Context, userID uuid.UUID) (*WorkerProfile, error) {
	return s.repo.GetWorkerProfile(ctx, userID)
}

// ListWorkerProfiles lists available workers, best rated first.
func (s *Svc) ListWorkerProfiles(ctx context.Context, city string, limit, offset int) ([]*WorkerProfile, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListWorkerProfiles(ctx, city, limit, offset)
}
