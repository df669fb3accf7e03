package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classdesk/classdesk-api/internal/service"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
	"github.com/classdesk/classdesk-api/pkg/response"
)

// SubscriptionHandler exposes billing endpoints.
type SubscriptionHandler struct {
	subscriptions *service.SubscriptionService
}

// NewSubscriptionHandler constructs SubscriptionHandler.
func NewSubscriptionHandler(subscriptions *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

// Get godoc
// @Summary Get the current subscription
// @Tags Billing
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subscription [get]
func (h *SubscriptionHandler) Get(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	sub, err := h.subscriptions.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// Create godoc
// @Summary Open a subscription
// @Tags Billing
// @Accept json
// @Produce json
// @Param payload body service.CreateSubscriptionRequest true "Subscription payload"
// @Success 201 {object} response.Envelope
// @Router /subscription [post]
func (h *SubscriptionHandler) Create(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	sub, err := h.subscriptions.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sub)
}

// Cancel godoc
// @Summary Cancel at period end
// @Tags Billing
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subscription [delete]
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	sub, err := h.subscriptions.Cancel(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// ChangePlan godoc
// @Summary Change plan or billing cycle
// @Tags Billing
// @Accept json
// @Produce json
// @Param payload body service.ChangePlanRequest true "Plan change payload"
// @Success 200 {object} response.Envelope
// @Router /subscription [put]
func (h *SubscriptionHandler) ChangePlan(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	sub, err := h.subscriptions.ChangePlan(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}
