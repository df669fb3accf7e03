package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classdesk/classdesk-api/internal/billing"
	"github.com/classdesk/classdesk-api/internal/models"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, teacherID string, filter models.ClassFilter) ([]models.Class, int, error)
	FindByID(ctx context.Context, id, teacherID string) (*models.Class, error)
	CountByTeacher(ctx context.Context, teacherID string) (int, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id, teacherID string) error
}

// planResolver exposes the capability table of a teacher's current plan.
type planResolver interface {
	Limits(ctx context.Context, teacherID string) (billing.PlanLimits, error)
}

// CreateClassRequest holds payload for creating classes.
type CreateClassRequest struct {
	Name         string  `json:"name" validate:"required"`
	Subject      string  `json:"subject" validate:"required"`
	GradeLevel   string  `json:"grade_level" validate:"required"`
	AcademicYear string  `json:"academic_year" validate:"required"`
	Schedule     *string `json:"schedule"`
	Room         *string `json:"room"`
	Capacity     *int    `json:"capacity" validate:"omitempty,gt=0"`
}

// UpdateClassRequest holds a partial field set; nil fields are left as-is.
type UpdateClassRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1"`
	Subject      *string `json:"subject" validate:"omitempty,min=1"`
	GradeLevel   *string `json:"grade_level" validate:"omitempty,min=1"`
	AcademicYear *string `json:"academic_year" validate:"omitempty,min=1"`
	Schedule     *string `json:"schedule"`
	Room         *string `json:"room"`
	Capacity     *int    `json:"capacity" validate:"omitempty,gt=0"`
	Active       *bool   `json:"active"`
}

// ClassService handles class use-cases.
type ClassService struct {
	repo      classRepository
	plans     planResolver
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs the class service.
func NewClassService(repo classRepository, plans planResolver, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, plans: plans, cache: cache, validator: validate, logger: logger}
}

// List returns the teacher's classes and pagination metadata.
func (s *ClassService) List(ctx context.Context, teacherID string, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, teacherID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return classes, pagination, nil
}

// Get returns one class owned by the teacher.
func (s *ClassService) Get(ctx context.Context, id, teacherID string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create registers a new class after checking the plan quota.
func (s *ClassService) Create(ctx context.Context, teacherID string, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	if s.plans != nil {
		limits, err := s.plans.Limits(ctx, teacherID)
		if err != nil {
			return nil, err
		}
		count, err := s.repo.CountByTeacher(ctx, teacherID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count classes")
		}
		if count >= limits.MaxClasses {
			return nil, appErrors.Clone(appErrors.ErrPlanLimit, fmt.Sprintf("plan allows at most %d classes", limits.MaxClasses))
		}
	}

	class := &models.Class{
		Name:         req.Name,
		Subject:      req.Subject,
		GradeLevel:   req.GradeLevel,
		AcademicYear: req.AcademicYear,
		Schedule:     req.Schedule,
		Room:         req.Room,
		Capacity:     req.Capacity,
		Active:       true,
		TeacherID:    teacherID,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	s.invalidate(ctx, teacherID)
	return class, nil
}

// Update applies the provided fields to an existing class.
func (s *ClassService) Update(ctx context.Context, id, teacherID string, req UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := s.repo.FindByID(ctx, id, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	if req.Name != nil {
		class.Name = *req.Name
	}
	if req.Subject != nil {
		class.Subject = *req.Subject
	}
	if req.GradeLevel != nil {
		class.GradeLevel = *req.GradeLevel
	}
	if req.AcademicYear != nil {
		class.AcademicYear = *req.AcademicYear
	}
	if req.Schedule != nil {
		class.Schedule = req.Schedule
	}
	if req.Room != nil {
		class.Room = req.Room
	}
	if req.Capacity != nil {
		class.Capacity = req.Capacity
	}
	if req.Active != nil {
		class.Active = *req.Active
	}

	if err := s.repo.Update(ctx, class); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	s.invalidate(ctx, teacherID)
	return class, nil
}

// Delete removes a class and its dependent rows. Deleting an already-deleted
// class reports NotFound.
func (s *ClassService) Delete(ctx context.Context, id, teacherID string) error {
	if err := s.repo.Delete(ctx, id, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	s.invalidate(ctx, teacherID)
	return nil
}

func (s *ClassService) invalidate(ctx context.Context, teacherID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, "analytics:"+teacherID+":*")
	}
}
