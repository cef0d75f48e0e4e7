package payment

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWebhookTestRouter(repo Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	service := newTestService(repo, &fakeCardGateway{})
	handler := NewWebhookHandler(service, nil, zap.NewNop())

	r := gin.New()
	handler.RegisterRoutes(r.Group("/webhooks"))
	return r
}

func postStripeEvent(r *gin.Engine, body []byte) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=test")
	r.ServeHTTP(rec, req)
	return rec
}

func TestStripeWebhook_ProcessesPaymentIntentSucceeded(t *testing.T) {
	repo := NewMockRepository()
	p := completedCardPayment(uuid.New(), 10000)
	p.Status = StatusPending
	repo.payments[p.ID] = p

	r := newWebhookTestRouter(repo)
	body := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`)

	rec := postStripeEvent(r, body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "processed")

	assert.Equal(t, StatusCompleted, repo.payments[p.ID].Status)
	require.NotNil(t, repo.payments[p.ID].CompletedAt)
}

func TestStripeWebhook_DuplicateDeliveryIsAcknowledged(t *testing.T) {
	repo := NewMockRepository()
	p := completedCardPayment(uuid.New(), 10000)
	p.Status = StatusPending
	repo.payments[p.ID] = p

	r := newWebhookTestRouter(repo)
	body := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`)

	first := postStripeEvent(r, body)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, StatusCompleted, repo.payments[p.ID].Status)

	// A redelivery of the same event id must be acknowledged with 200, not
	// 500: a non-2xx answer makes the gateway retry forever.
	second := postStripeEvent(r, body)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Contains(t, second.Body.String(), "already_processed")
}

func TestStripeWebhook_UnknownPaymentIntentIsAcknowledged(t *testing.T) {
	r := newWebhookTestRouter(NewMockRepository())
	body := []byte(`{"id":"evt_2","type":"payment_intent.succeeded","data":{"object":{"id":"pi_unknown"}}}`)

	rec := postStripeEvent(r, body)
	require.Equal(t, http.StatusOK, rec.Code)
}
