package payment

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sharederrors "github.com/bricollano/server/internal/shared/errors"
	"github.com/bricollano/server/internal/utils/middleware"
)

// Handler handles HTTP requests for payments.
type Handler struct {
	service *Service
	poller  *ChargePoller
}

// NewHandler creates a new payment handler.
func NewHandler(service *Service, poller *ChargePoller) *Handler {
	return &Handler{service: service, poller: poller}
}

// RegisterRoutes registers the payment routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	{
		payments.POST("/intent", h.CreatePaymentIntent)
		payments.POST("/crypto", h.CreateCryptoCharge)
		payments.GET("/:id", h.GetPayment)
		payments.GET("/:id/status", h.PollPaymentStatus)
		payments.GET("/booking/:bookingId", h.ListBookingPayments)
	}
}

// CreatePaymentIntent creates a Stripe payment intent for a booking.
func (h *Handler) CreatePaymentIntent(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateCardPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.CreateCardPaymentIntent(c.Request.Context(), req.BookingID, userID, req.Amount)
	if err != nil {
		handlePaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreateCryptoCharge creates a Coinbase Commerce hosted charge for a booking.
func (h *Handler) CreateCryptoCharge(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateCryptoPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.CreateCryptoCharge(c.Request.Context(), req.BookingID, userID, req.Amount, req.Description)
	if err != nil {
		handlePaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetPayment returns a payment by ID.
func (h *Handler) GetPayment(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	p, err := h.service.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		handlePaymentError(c, err)
		return
	}
	if p.PayerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	c.JSON(http.StatusOK, p)
}

// PollPaymentStatus polls the settlement status of an asynchronous payment.
// The response carries next_poll_at so clients back off instead of hammering.
func (h *Handler) PollPaymentStatus(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	poll, err := h.poller.Once(c.Request.Context(), paymentID)
	if err != nil {
		handlePaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, poll)
}

// ListBookingPayments returns the ledger rows for a booking.
func (h *Handler) ListBookingPayments(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("bookingId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	rows, err := h.service.ListPaymentsByBooking(c.Request.Context(), bookingID, userID)
	if err != nil {
		handlePaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": rows})
}

// handlePaymentError translates payment errors to HTTP responses.
func handlePaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
	case errors.Is(err, sharederrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotRefundable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrGatewayRejected):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "payment gateway rejected the request"})
	case errors.Is(err, ErrGatewayTransient):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment gateway temporarily unavailable"})
	default:
		c.JSON(sharederrors.GetStatusCode(err), gin.H{"error": "internal server error"})
	}
}
