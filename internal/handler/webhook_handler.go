package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/classdesk/classdesk-api/internal/billing"
	"github.com/classdesk/classdesk-api/internal/service"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
	"github.com/classdesk/classdesk-api/pkg/response"
)

// WebhookHandler receives billing provider notifications. The route is
// unauthenticated; the HMAC signature is the only trust anchor.
type WebhookHandler struct {
	subscriptions *service.SubscriptionService
	secret        string
	logger        *zap.Logger
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(subscriptions *service.SubscriptionService, secret string, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{subscriptions: subscriptions, secret: secret, logger: logger}
}

// Handle godoc
// @Summary Receive a billing webhook
// @Tags Billing
// @Accept json
// @Produce json
// @Param X-Billing-Signature header string true "HMAC-SHA256 of the payload"
// @Success 200 {object} response.Envelope
// @Router /webhooks/billing [post]
func (h *WebhookHandler) Handle(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unreadable payload"))
		return
	}

	event, err := billing.ParseWebhook(payload, c.GetHeader(billing.SignatureHeader), h.secret)
	if err != nil {
		h.logger.Warn("rejected billing webhook", zap.Error(err))
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid webhook signature"))
		return
	}

	if err := h.subscriptions.HandleWebhook(c.Request.Context(), event); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"received": true}, nil)
}
