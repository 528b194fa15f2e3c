package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/payments"
)

type settlementServiceMock struct {
	provider   string
	body       []byte
	outcome    payments.Outcome
	token      string
	webhookErr error
}

func (m *settlementServiceMock) HandleWebhook(ctx context.Context, provider string, body []byte, headers http.Header) error {
	m.provider = provider
	m.body = body
	return m.webhookErr
}

func (m *settlementServiceMock) CompleteSandboxCheckout(ctx context.Context, token string, outcome payments.Outcome) error {
	m.token = token
	m.outcome = outcome
	return nil
}

func TestPaymentHandlerWebhookForwardsRawBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &settlementServiceMock{}
	handler := NewPaymentHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/payments/webhooks/stripe", bytes.NewBufferString(`{"type":"checkout.session.completed"}`))
	c.Params = gin.Params{{Key: "provider", Value: "stripe"}}

	handler.Webhook(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "stripe", svc.provider)
	assert.JSONEq(t, `{"type":"checkout.session.completed"}`, string(svc.body))
}

func TestPaymentHandlerWebhookRejectsForgery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPaymentHandler(&settlementServiceMock{webhookErr: appErrors.Clone(appErrors.ErrUnauthorized, "invalid webhook signature")})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/payments/webhooks/sandbox", bytes.NewBufferString(`{}`))
	c.Params = gin.Params{{Key: "provider", Value: "sandbox"}}

	handler.Webhook(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPaymentHandlerSandboxCheckoutDefaultsToSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &settlementServiceMock{}
	handler := NewPaymentHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/payments/sandbox/checkout?token=abc", nil)
	handler.SandboxCheckout(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", svc.token)
	assert.Equal(t, payments.OutcomeSucceeded, svc.outcome)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/payments/sandbox/checkout", nil)
	handler.SandboxCheckout(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
