package catalog

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bricollano/server/internal/utils/middleware"
)

// Handler handles HTTP requests for the catalog.
type Handler struct {
	service *Svc
}

// NewHandler creates a new catalog handler.
func NewHandler(service *Svc) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes registers the browse routes (no auth required).
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	catalog := r.Group("/catalog")
	{
		catalog.GET("/categories", h.ListCategories)
		catalog.GET("/services", h.SearchServices)
		catalog.GET("/services/:id", h.GetService)
		catalog.GET("/workers", h.ListWorkers)
		catalog.GET("/workers/:userId", h.GetWorkerProfile)
	}
}

// RegisterRoutes registers the worker-facing catalog routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	catalog := r.Group("/catalog")
	{
		catalog.POST("/services", h.CreateService)
		catalog.PATCH("/services/:id", h.UpdateService)
		catalog.GET("/my-services", h.ListMyServices)
		catalog.PUT("/profile", h.UpsertProfile)
	}
}

// ListCategories returns the active categories.
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// SearchServices searches active services.
func (h *Handler) SearchServices(c *gin.Context) {
	var query SearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filter := &SearchFilter{Query: query.Query}
	if query.CategoryID != "" {
		id, err := uuid.Parse(query.CategoryID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category id"})
			return
		}
		filter.CategoryID = &id
	}
	if query.MaxPrice > 0 {
		filter.MaxPrice = &query.MaxPrice
	}

	services, total, err := h.service.SearchServices(c.Request.Context(), filter, query.Limit, query.Offset)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services, "total": total})
}

// GetService returns a service by ID.
func (h *Handler) GetService(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid service id"})
		return
	}

	svc, err := h.service.GetService(c.Request.Context(), id)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

// ListWorkers lists available worker profiles.
func (h *Handler) ListWorkers(c *gin.Context) {
	profiles, total, err := h.service.ListWorkerProfiles(c.Request.Context(), c.Query("city"), 20, 0)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workers": profiles, "total": total})
}

// GetWorkerProfile returns a worker's listing profile.
func (h *Handler) GetWorkerProfile(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	profile, err := h.service.GetWorkerProfile(c.Request.Context(), userID)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// CreateService creates a service offering for the calling worker.
func (h *Handler) CreateService(c *gin.Context) {
	workerID := middleware.GetUserID(c)
	if workerID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc, err := h.service.CreateService(c.Request.Context(), workerID, &req)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusCreated, svc)
}

// UpdateService applies a partial update to the caller's service.
func (h *Handler) UpdateService(c *gin.Context) {
	workerID := middleware.GetUserID(c)
	if workerID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	serviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid service id"})
		return
	}

	var req UpdateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc, err := h.service.UpdateService(c.Request.Context(), serviceID, workerID, &req)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

// ListMyServices returns the caller's own services.
func (h *Handler) ListMyServices(c *gin.Context) {
	workerID := middleware.GetUserID(c)
	if workerID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	services, err := h.service.ListWorkerServices(c.Request.Context(), workerID)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}

// UpsertProfile creates or replaces the caller's worker profile.
func (h *Handler) UpsertProfile(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req UpsertProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.service.UpsertWorkerProfile(c.Request.Context(), userID, &req)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// handleCatalogError translates catalog errors to HTTP responses.
func handleCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrCategoryNotFound), errors.Is(err, ErrServiceNotFound), errors.Is(err, ErrProfileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotServiceOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
