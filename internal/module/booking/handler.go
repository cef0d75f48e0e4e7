package booking

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bricollano/server/internal/module/payment"
	"github.com/bricollano/server/internal/utils/middleware"
)

// Handler handles HTTP requests for bookings.
type Handler struct {
	service *Service
}

// NewHandler creates a new booking handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the booking routes. The cancel route is expected
// to sit behind the idempotency middleware, wired by the caller.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, idempotency gin.HandlerFunc) {
	bookings := r.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.POST("/:id/confirm", h.ConfirmBooking)
		bookings.POST("/:id/reject", h.RejectBooking)
		bookings.POST("/:id/complete", h.CompleteBooking)
		bookings.POST("/:id/cancel", idempotency, h.CancelBooking)
	}
}

// CreateBooking creates a pending booking.
func (h *Handler) CreateBooking(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), userID, &req)
	if err != nil {
		handleBookingError(c, err)
		return
	}

	c.JSON(http.StatusCreated, b)
}

// ListBookings lists the caller's bookings as client or worker.
func (h *Handler) ListBookings(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var query ListBookingsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var status *Status
	if query.Status != "" {
		s := Status(query.Status)
		status = &s
	}

	var (
		bookings []*Booking
		err      error
	)
	if query.Role == "worker" {
		bookings, err = h.service.ListWorkerBookings(c.Request.Context(), userID, status)
	} else {
		bookings, err = h.service.ListClientBookings(c.Request.Context(), userID, status)
	}
	if err != nil {
		handleBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// GetBooking returns a single booking.
func (h *Handler) GetBooking(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	b, err := h.service.GetBooking(c.Request.Context(), bookingID, userID)
	if err != nil {
		handleBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// ConfirmBooking confirms a pending booking.
func (h *Handler) ConfirmBooking(c *gin.Context) {
	h.workerTransition(c, h.service.ConfirmBooking)
}

// RejectBooking rejects a pending booking.
func (h *Handler) RejectBooking(c *gin.Context) {
	h.workerTransition(c, h.service.RejectBooking)
}

// CompleteBooking completes a confirmed booking.
func (h *Handler) CompleteBooking(c *gin.Context) {
	h.workerTransition(c, h.service.CompleteBooking)
}

func (h *Handler) workerTransition(c *gin.Context, fn func(ctx context.Context, bookingID, workerID uuid.UUID) (*Booking, error)) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	b, err := fn(c.Request.Context(), bookingID, userID)
	if err != nil {
		handleBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// CancelBooking cancels a booking, refunding 80% of a card payment.
func (h *Handler) CancelBooking(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	var req CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.CancelBooking(c.Request.Context(), bookingID, userID, req.Reason)
	if err != nil {
		handleBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleBookingError translates booking and payment errors to HTTP responses.
func handleBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
	case errors.Is(err, ErrNotBookingParty), errors.Is(err, ErrNotWorker):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, ErrNotCancellable), errors.Is(err, ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, payment.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, payment.ErrGatewayRejected):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "the payment gateway rejected the refund; the booking was not cancelled"})
	case errors.Is(err, payment.ErrGatewayTransient):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "the payment gateway is temporarily unavailable; please retry"})
	case errors.Is(err, payment.ErrPersistenceFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "the refund was issued but the cancellation could not be recorded; the booking remains pending cancellation and support has been notified"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
