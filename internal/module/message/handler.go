package message

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bricollano/server/internal/utils/middleware"
)

// Handler handles HTTP requests for messaging.
type Handler struct {
	service *Service
}

// NewHandler creates a new message handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the messaging routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	conversations := r.Group("/conversations")
	{
		conversations.GET("", h.ListConversations)
		conversations.GET("/:id/messages", h.ListMessages)
		conversations.POST("/:id/messages", h.SendMessage)
		conversations.POST("/:id/read", h.MarkRead)
		conversations.GET("/:id/stream", h.StreamMessages)
	}
}

// SendMessageRequest is the request to send a chat message.
type SendMessageRequest struct {
	Body          string `json:"body"`
	AttachmentURL string `json:"attachment_url"`
}

// ListConversations returns the caller's conversations.
func (h *Handler) ListConversations(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conversations, err := h.service.ListConversations(c.Request.Context(), userID)
	if err != nil {
		handleMessageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// ListMessages returns a page of messages, newest first.
func (h *Handler) ListMessages(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	var before *uuid.UUID
	if raw := c.Query("before"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
			return
		}
		before = &id
	}

	messages, err := h.service.ListMessages(c.Request.Context(), conversationID, userID, 50, before)
	if err != nil {
		handleMessageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// SendMessage sends a chat message.
func (h *Handler) SendMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.service.SendMessage(c.Request.Context(), conversationID, userID, req.Body, req.AttachmentURL)
	if err != nil {
		handleMessageError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// MarkRead marks the other participant's messages as read.
func (h *Handler) MarkRead(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), conversationID, userID); err != nil {
		handleMessageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

// StreamMessages streams new messages over server-sent events.
func (h *Handler) StreamMessages(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	stream, err := h.service.Stream(c.Request.Context(), conversationID, userID)
	if err != nil {
		handleMessageError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		m, ok := <-stream
		if !ok {
			return false
		}
		c.SSEvent("message", m)
		return true
	})
}

// handleMessageError translates messaging errors to HTTP responses.
func handleMessageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
	case errors.Is(err, ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "message body is empty"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
