package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classdesk/classdesk-api/internal/service"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
	"github.com/classdesk/classdesk-api/pkg/response"
)

// AnalyticsHandler exposes aggregation endpoints.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs AnalyticsHandler.
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// StudentPerformance godoc
// @Summary Get a student's average performance
// @Tags Analytics
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /analytics/students/{id} [get]
func (h *AnalyticsHandler) StudentPerformance(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	performance, err := h.analytics.StudentPerformance(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, performance, nil)
}

// ClassOverview godoc
// @Summary Get a class's grade average and distribution
// @Tags Analytics
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /analytics/classes/{id} [get]
func (h *AnalyticsHandler) ClassOverview(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	overview, err := h.analytics.ClassOverview(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}

// RosterCounts godoc
// @Summary Get per-class roster counts
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/roster [get]
func (h *AnalyticsHandler) RosterCounts(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	counts, err := h.analytics.RosterCounts(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}
