package media

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bricollano/server/internal/utils/middleware"
)

// Handler handles HTTP requests for media uploads.
type Handler struct {
	service *Service
}

// NewHandler creates a new media handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the media routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/media", h.Upload)
}

// Upload accepts a multipart image upload.
func (h *Handler) Upload(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	kind := Kind(c.DefaultPostForm("kind", string(KindServicePhoto)))
	switch kind {
	case KindServicePhoto, KindAvatar, KindChatAttachment:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid media kind"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer file.Close()

	upload, err := h.service.UploadImage(
		c.Request.Context(),
		userID,
		kind,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		if errors.Is(err, ErrUnsupportedType) {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}

	c.JSON(http.StatusCreated, upload)
}
