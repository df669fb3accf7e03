package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classdesk/classdesk-api/internal/models"
	"github.com/classdesk/classdesk-api/internal/service"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
	"github.com/classdesk/classdesk-api/pkg/response"
)

// LessonPlanHandler exposes lesson plan endpoints.
type LessonPlanHandler struct {
	plans *service.LessonPlanService
}

// NewLessonPlanHandler constructs LessonPlanHandler.
func NewLessonPlanHandler(plans *service.LessonPlanService) *LessonPlanHandler {
	return &LessonPlanHandler{plans: plans}
}

// List godoc
// @Summary List lesson plans
// @Tags LessonPlans
// @Produce json
// @Param classId query string false "Filter by class"
// @Param from query string false "Start date (RFC 3339)"
// @Param to query string false "End date (RFC 3339)"
// @Success 200 {object} response.Envelope
// @Router /lesson-plans [get]
func (h *LessonPlanHandler) List(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.LessonPlanFilter{ClassID: c.Query("classId")}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filter.StartDate = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.EndDate = &t
		}
	}
	plans, err := h.plans.List(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plans, nil)
}

// Get godoc
// @Summary Get lesson plan detail
// @Tags LessonPlans
// @Produce json
// @Param id path string true "Lesson plan ID"
// @Success 200 {object} response.Envelope
// @Router /lesson-plans/{id} [get]
func (h *LessonPlanHandler) Get(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	plan, err := h.plans.Get(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Create godoc
// @Summary Create lesson plan
// @Tags LessonPlans
// @Accept json
// @Produce json
// @Param payload body service.CreateLessonPlanRequest true "Lesson plan payload"
// @Success 201 {object} response.Envelope
// @Router /lesson-plans [post]
func (h *LessonPlanHandler) Create(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateLessonPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	plan, err := h.plans.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, plan)
}

// Update godoc
// @Summary Update lesson plan
// @Tags LessonPlans
// @Accept json
// @Produce json
// @Param id path string true "Lesson plan ID"
// @Param payload body service.UpdateLessonPlanRequest true "Lesson plan payload"
// @Success 200 {object} response.Envelope
// @Router /lesson-plans/{id} [put]
func (h *LessonPlanHandler) Update(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateLessonPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	plan, err := h.plans.Update(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Delete godoc
// @Summary Delete lesson plan
// @Tags LessonPlans
// @Param id path string true "Lesson plan ID"
// @Success 204 "No Content"
// @Router /lesson-plans/{id} [delete]
func (h *LessonPlanHandler) Delete(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.plans.Delete(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
