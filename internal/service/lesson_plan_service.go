package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classdesk/classdesk-api/internal/models"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
)

type lessonPlanRepository interface {
	List(ctx context.Context, teacherID string, filter models.LessonPlanFilter) ([]models.LessonPlan, error)
	FindByID(ctx context.Context, id, teacherID string) (*models.LessonPlan, error)
	Create(ctx context.Context, plan *models.LessonPlan) error
	Update(ctx context.Context, plan *models.LessonPlan) error
	Delete(ctx context.Context, id, teacherID string) error
}

// CreateLessonPlanRequest holds payload for creating lesson plans.
type CreateLessonPlanRequest struct {
	Title           string    `json:"title" validate:"required"`
	Objectives      []string  `json:"objectives" validate:"required,min=1,dive,required"`
	Content         string    `json:"content" validate:"required"`
	Date            time.Time `json:"date" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"gt=0"`
	ClassID         string    `json:"class_id" validate:"required,uuid4"`
}

// UpdateLessonPlanRequest holds a partial field set; nil fields are left as-is.
type UpdateLessonPlanRequest struct {
	Title           *string    `json:"title" validate:"omitempty,min=1"`
	Objectives      []string   `json:"objectives" validate:"omitempty,min=1,dive,required"`
	Content         *string    `json:"content" validate:"omitempty,min=1"`
	Date            *time.Time `json:"date"`
	DurationMinutes *int       `json:"duration_minutes" validate:"omitempty,gt=0"`
}

// LessonPlanService handles lesson planning use-cases.
type LessonPlanService struct {
	repo      lessonPlanRepository
	classes   classFinder
	plans     planResolver
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLessonPlanService constructs the lesson plan service.
func NewLessonPlanService(repo lessonPlanRepository, classes classFinder, plans planResolver, validate *validator.Validate, logger *zap.Logger) *LessonPlanService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonPlanService{repo: repo, classes: classes, plans: plans, validator: validate, logger: logger}
}

// List returns the teacher's lesson plans, optionally bounded by date.
func (s *LessonPlanService) List(ctx context.Context, teacherID string, filter models.LessonPlanFilter) ([]models.LessonPlan, error) {
	plans, err := s.repo.List(ctx, teacherID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lesson plans")
	}
	return plans, nil
}

// Get returns one lesson plan owned by the teacher.
func (s *LessonPlanService) Get(ctx context.Context, id, teacherID string) (*models.LessonPlan, error) {
	plan, err := s.repo.FindByID(ctx, id, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson plan")
	}
	return plan, nil
}

// Create registers a lesson plan for one of the teacher's classes. Lesson
// planning is gated by the subscription plan.
func (s *LessonPlanService) Create(ctx context.Context, teacherID string, req CreateLessonPlanRequest) (*models.LessonPlan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson plan payload")
	}

	if s.plans != nil {
		limits, err := s.plans.Limits(ctx, teacherID)
		if err != nil {
			return nil, err
		}
		if !limits.LessonPlans {
			return nil, appErrors.Clone(appErrors.ErrPlanLimit, "plan does not include lesson planning")
		}
	}

	if _, err := s.classes.FindByID(ctx, req.ClassID, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	plan := &models.LessonPlan{
		Title:           req.Title,
		Objectives:      req.Objectives,
		Content:         req.Content,
		Date:            req.Date,
		DurationMinutes: req.DurationMinutes,
		ClassID:         req.ClassID,
		TeacherID:       teacherID,
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson plan")
	}
	return plan, nil
}

// Update applies the provided fields to an existing lesson plan.
func (s *LessonPlanService) Update(ctx context.Context, id, teacherID string, req UpdateLessonPlanRequest) (*models.LessonPlan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson plan payload")
	}
	plan, err := s.repo.FindByID(ctx, id, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson plan")
	}

	if req.Title != nil {
		plan.Title = *req.Title
	}
	if req.Objectives != nil {
		plan.Objectives = req.Objectives
	}
	if req.Content != nil {
		plan.Content = *req.Content
	}
	if req.Date != nil {
		plan.Date = *req.Date
	}
	if req.DurationMinutes != nil {
		plan.DurationMinutes = *req.DurationMinutes
	}

	if err := s.repo.Update(ctx, plan); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson plan")
	}
	return plan, nil
}

// Delete removes a lesson plan and unlinks any calendar events pointing at it.
func (s *LessonPlanService) Delete(ctx context.Context, id, teacherID string) error {
	if err := s.repo.Delete(ctx, id, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "lesson plan not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lesson plan")
	}
	return nil
}
