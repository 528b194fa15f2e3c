package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-booking-api/internal/dto"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/payments"
	"github.com/noah-isme/tutor-booking-api/pkg/response"
)

const maxWebhookBody = 1 << 20

type settlementService interface {
	HandleWebhook(ctx context.Context, provider string, body []byte, headers http.Header) error
	CompleteSandboxCheckout(ctx context.Context, token string, outcome payments.Outcome) error
}

// PaymentHandler receives payment provider callbacks.
type PaymentHandler struct {
	service settlementService
}

// NewPaymentHandler builds a new handler.
func NewPaymentHandler(service settlementService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// Webhook godoc
// @Summary Receive a payment provider notification
// @Tags Payments
// @Accept json
// @Produce json
// @Param provider path string true "stripe, midtrans or sandbox"
// @Success 202 {object} response.Envelope
// @Router /payments/webhooks/{provider} [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable webhook body"))
		return
	}
	if err := h.service.HandleWebhook(c.Request.Context(), c.Param("provider"), body, c.Request.Header); err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, gin.H{"received": true})
}

// SandboxCheckout godoc
// @Summary Complete a sandbox checkout link
// @Tags Payments
// @Produce json
// @Param token query string true "Signed checkout token"
// @Param outcome query string false "succeeded (default) or failed"
// @Success 200 {object} response.Envelope
// @Router /payments/sandbox/checkout [get]
func (h *PaymentHandler) SandboxCheckout(c *gin.Context) {
	var query dto.SandboxCheckoutQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "checkout token required"))
		return
	}
	outcome := payments.Outcome(query.Outcome)
	if outcome == "" {
		outcome = payments.OutcomeSucceeded
	}
	if err := h.service.CompleteSandboxCheckout(c.Request.Context(), query.Token, outcome); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"outcome": outcome}, nil)
}
