package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/response"
)

type tokenIssuer interface {
	IssueToken(ctx context.Context, userID string) (*models.TokenResponse, error)
}

// AuthHandler issues development tokens. It is only routed outside production.
type AuthHandler struct {
	issuer tokenIssuer
}

// NewAuthHandler builds a new handler.
func NewAuthHandler(issuer tokenIssuer) *AuthHandler {
	return &AuthHandler{issuer: issuer}
}

type devTokenRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// DevToken godoc
// @Summary Issue an access token for an existing user (development only)
// @Tags Auth
// @Accept json
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /dev/tokens [post]
func (h *AuthHandler) DevToken(c *gin.Context) {
	var req devTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "userId required"))
		return
	}
	token, err := h.issuer.IssueToken(c.Request.Context(), req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, token)
}
