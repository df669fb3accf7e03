package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classdesk/classdesk-api/internal/models"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, teacherID string, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error)
	FindByID(ctx context.Context, id, teacherID string) (*models.Enrollment, error)
	Exists(ctx context.Context, classID, studentID string) (bool, error)
	CountByClass(ctx context.Context, classID string) (int, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id, teacherID string) error
}

type classFinder interface {
	FindByID(ctx context.Context, id, teacherID string) (*models.Class, error)
}

type studentFinder interface {
	FindByID(ctx context.Context, id, teacherID string) (*models.Student, error)
}

// CreateEnrollmentRequest links a student to a class.
type CreateEnrollmentRequest struct {
	ClassID   string `json:"class_id" validate:"required,uuid4"`
	StudentID string `json:"student_id" validate:"required,uuid4"`
}

// EnrollmentService handles class membership.
type EnrollmentService struct {
	repo      enrollmentRepository
	classes   classFinder
	students  studentFinder
	plans     planResolver
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repo enrollmentRepository, classes classFinder, students studentFinder, plans planResolver, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		classes:   classes,
		students:  students,
		plans:     plans,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// List returns enrollments visible to the teacher.
func (s *EnrollmentService) List(ctx context.Context, teacherID string, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.repo.List(ctx, teacherID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// Create enrolls a student into a class. Both sides must belong to the
// teacher, the pair must not already exist, and both the class capacity and
// the plan's per-class student limit must leave room.
func (s *EnrollmentService) Create(ctx context.Context, teacherID string, req CreateEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	class, err := s.classes.FindByID(ctx, req.ClassID, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	exists, err := s.repo.Exists(ctx, req.ClassID, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this class")
	}

	count, err := s.repo.CountByClass(ctx, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if class.Capacity != nil && count >= *class.Capacity {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class is at capacity")
	}
	if s.plans != nil {
		limits, err := s.plans.Limits(ctx, teacherID)
		if err != nil {
			return nil, err
		}
		if count >= limits.MaxStudentsPerClass {
			return nil, appErrors.Clone(appErrors.ErrPlanLimit, fmt.Sprintf("plan allows at most %d students per class", limits.MaxStudentsPerClass))
		}
	}

	enrollment := &models.Enrollment{ClassID: req.ClassID, StudentID: req.StudentID}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	s.invalidate(ctx, teacherID)
	return enrollment, nil
}

// Delete removes an enrollment. The student's grades in the class are kept.
func (s *EnrollmentService) Delete(ctx context.Context, id, teacherID string) error {
	if err := s.repo.Delete(ctx, id, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	s.invalidate(ctx, teacherID)
	return nil
}

func (s *EnrollmentService) invalidate(ctx context.Context, teacherID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, "analytics:"+teacherID+":*")
	}
}
