package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

// BookingNotifier is told when a booking's payment settles. Implemented by the
// booking service; declared here so payment never imports booking.
type BookingNotifier interface {
	OnPaymentCompleted(ctx context.Context, bookingID uuid.UUID) error
	OnPaymentFailed(ctx context.Context, bookingID uuid.UUID) error
}

// WebhookHandler handles gateway webhook deliveries.
type WebhookHandler struct {
	service  *Service
	notifier BookingNotifier
	logger   *zap.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(service *Service, notifier BookingNotifier, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service:  service,
		notifier: notifier,
		logger:   logger,
	}
}

// RegisterRoutes registers the webhook routes.
func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/stripe", h.HandleStripeWebhook)
	r.POST("/coinbase", h.HandleCoinbaseWebhook)
}

// HandleStripeWebhook handles incoming Stripe webhook events.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	gateway, err := h.service.registry.Card("stripe")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if err := gateway.VerifyWebhookSignature(payload, c.GetHeader("Stripe-Signature")); err != nil {
		h.logger.Warn("invalid stripe webhook signature", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("failed to parse stripe webhook event", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event"})
		return
	}

	ctx := c.Request.Context()

	stored := &WebhookEvent{
		ID:       uuid.New(),
		Provider: "stripe",
		EventID:  event.ID,
		Type:     string(event.Type),
		Data:     string(payload),
	}
	if err := h.service.repo.CreateWebhookEvent(ctx, stored); err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			h.logger.Info("stripe webhook event already processed", zap.String("event_id", event.ID))
			c.JSON(http.StatusOK, gin.H{"status": "already_processed"})
			return
		}
		h.logger.Error("failed to store webhook event", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	var processErr error
	switch event.Type {
	case "payment_intent.succeeded":
		processErr = h.handlePaymentIntentSucceeded(ctx, &event)
	case "payment_intent.payment_failed":
		processErr = h.handlePaymentIntentFailed(ctx, &event)
	default:
		h.logger.Debug("ignoring stripe event", zap.String("type", string(event.Type)))
	}

	if err := h.service.repo.MarkWebhookEventProcessed(ctx, stored.ID, processErr); err != nil {
		h.logger.Error("failed to mark webhook event processed", zap.Error(err))
	}
	if processErr != nil {
		h.logger.Error("failed to process stripe webhook event",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Error(processErr))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

func (h *WebhookHandler) handlePaymentIntentSucceeded(ctx context.Context, event *stripe.Event) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return err
	}

	p, err := h.service.repo.GetPaymentByPaymentIntentID(ctx, pi.ID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			h.logger.Warn("stripe event for unknown payment intent", zap.String("payment_intent_id", pi.ID))
			return nil
		}
		return err
	}
	if p.IsCompleted() {
		return nil
	}

	if err := h.service.MarkPaymentCompleted(ctx, p); err != nil {
		return err
	}
	h.logger.Info("card payment completed",
		zap.String("payment_id", p.ID.String()),
		zap.String("booking_id", p.BookingID.String()))

	if h.notifier != nil {
		return h.notifier.OnPaymentCompleted(ctx, p.BookingID)
	}
	return nil
}

func (h *WebhookHandler) handlePaymentIntentFailed(ctx context.Context, event *stripe.Event) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return err
	}

	p, err := h.service.repo.GetPaymentByPaymentIntentID(ctx, pi.ID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return nil
		}
		return err
	}
	if p.Status == StatusFailed {
		return nil
	}

	if err := h.service.MarkPaymentFailed(ctx, p); err != nil {
		return err
	}
	h.logger.Info("card payment failed",
		zap.String("payment_id", p.ID.String()),
		zap.String("booking_id", p.BookingID.String()))

	if h.notifier != nil {
		return h.notifier.OnPaymentFailed(ctx, p.BookingID)
	}
	return nil
}

// coinbaseWebhookEnvelope is the Coinbase Commerce webhook payload shape.
type coinbaseWebhookEnvelope struct {
	Event struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			ID   string `json:"id"`
			Code string `json:"code"`
		} `json:"data"`
	} `json:"event"`
}

// HandleCoinbaseWebhook handles incoming Coinbase Commerce webhook events.
func (h *WebhookHandler) HandleCoinbaseWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	gateway, err := h.service.registry.Crypto("coinbase")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if err := gateway.VerifyWebhookSignature(payload, c.GetHeader("X-CC-Webhook-Signature")); err != nil {
		h.logger.Warn("invalid coinbase webhook signature", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	var envelope coinbaseWebhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		h.logger.Error("failed to parse coinbase webhook event", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event"})
		return
	}

	ctx := c.Request.Context()

	stored := &WebhookEvent{
		ID:       uuid.New(),
		Provider: "coinbase",
		EventID:  envelope.Event.ID,
		Type:     envelope.Event.Type,
		Data:     string(payload),
	}
	if err := h.service.repo.CreateWebhookEvent(ctx, stored); err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			c.JSON(http.StatusOK, gin.H{"status": "already_processed"})
			return
		}
		h.logger.Error("failed to store webhook event", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	var processErr error
	switch envelope.Event.Type {
	case "charge:confirmed", "charge:resolved":
		processErr = h.handleChargeSettled(ctx, envelope.Event.Data.ID, true)
	case "charge:failed":
		processErr = h.handleChargeSettled(ctx, envelope.Event.Data.ID, false)
	default:
		h.logger.Debug("ignoring coinbase event", zap.String("type", envelope.Event.Type))
	}

	if err := h.service.repo.MarkWebhookEventProcessed(ctx, stored.ID, processErr); err != nil {
		h.logger.Error("failed to mark webhook event processed", zap.Error(err))
	}
	if processErr != nil {
		h.logger.Error("failed to process coinbase webhook event",
			zap.String("event_id", envelope.Event.ID),
			zap.Error(processErr))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

func (h *WebhookHandler) handleChargeSettled(ctx context.Context, chargeID string, succeeded bool) error {
	p, err := h.service.repo.GetPaymentByChargeID(ctx, chargeID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			h.logger.Warn("coinbase event for unknown charge", zap.String("charge_id", chargeID))
			return nil
		}
		return err
	}
	if p.Status != StatusPending {
		return nil
	}

	if succeeded {
		if err := h.service.MarkPaymentCompleted(ctx, p); err != nil {
			return err
		}
		if h.notifier != nil {
			return h.notifier.OnPaymentCompleted(ctx, p.BookingID)
		}
		return nil
	}

	if err := h.service.MarkPaymentFailed(ctx, p); err != nil {
		return err
	}
	if h.notifier != nil {
		return h.notifier.OnPaymentFailed(ctx, p.BookingID)
	}
	return nil
}
