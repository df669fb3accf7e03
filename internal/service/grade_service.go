package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classdesk/classdesk-api/internal/models"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
)

type gradeRepository interface {
	List(ctx context.Context, teacherID string, filter models.GradeFilter) ([]models.GradeDetail, error)
	FindByID(ctx context.Context, id, teacherID string) (*models.Grade, error)
	Exists(ctx context.Context, assignmentID, studentID string) (bool, error)
	Create(ctx context.Context, grade *models.Grade) error
	Update(ctx context.Context, grade *models.Grade) error
	Delete(ctx context.Context, id, teacherID string) error
}

type assignmentFinder interface {
	FindByID(ctx context.Context, id, teacherID string) (*models.Assignment, error)
}

type enrollmentChecker interface {
	Exists(ctx context.Context, classID, studentID string) (bool, error)
}

// CreateGradeRequest records a score for a student on an assignment.
type CreateGradeRequest struct {
	AssignmentID string  `json:"assignment_id" validate:"required,uuid4"`
	StudentID    string  `json:"student_id" validate:"required,uuid4"`
	Score        float64 `json:"score" validate:"gte=0"`
	MaxScore     float64 `json:"max_score" validate:"gt=0"`
	Feedback     *string `json:"feedback"`
}

// UpdateGradeRequest holds a partial field set; nil fields are left as-is.
type UpdateGradeRequest struct {
	Score    *float64 `json:"score" validate:"omitempty,gte=0"`
	MaxScore *float64 `json:"max_score" validate:"omitempty,gt=0"`
	Feedback *string  `json:"feedback"`
}

// GradeService handles grading use-cases.
type GradeService struct {
	repo        gradeRepository
	assignments assignmentFinder
	enrollments enrollmentChecker
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService constructs the grade service.
func NewGradeService(repo gradeRepository, assignments assignmentFinder, enrollments enrollmentChecker, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		repo:        repo,
		assignments: assignments,
		enrollments: enrollments,
		cache:       cache,
		validator:   validate,
		logger:      logger,
	}
}

// List returns grades visible to the teacher.
func (s *GradeService) List(ctx context.Context, teacherID string, filter models.GradeFilter) ([]models.GradeDetail, error) {
	grades, err := s.repo.List(ctx, teacherID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

// Get returns one grade owned by the teacher.
func (s *GradeService) Get(ctx context.Context, id, teacherID string) (*models.Grade, error) {
	grade, err := s.repo.FindByID(ctx, id, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	return grade, nil
}

// Create records a score. The assignment must belong to the teacher, the
// student must be enrolled in its class, the (assignment, student) pair must
// be new, and the score must not exceed the max score.
func (s *GradeService) Create(ctx context.Context, teacherID string, req CreateGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if req.Score > req.MaxScore {
		return nil, appErrors.Clone(appErrors.ErrValidation, "score cannot exceed max score")
	}

	assignment, err := s.assignments.FindByID(ctx, req.AssignmentID, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	enrolled, err := s.enrollments.Exists(ctx, assignment.ClassID, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is not enrolled in the assignment's class")
	}

	exists, err := s.repo.Exists(ctx, req.AssignmentID, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check grade")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already has a grade for this assignment")
	}

	grade := &models.Grade{
		AssignmentID: req.AssignmentID,
		StudentID:    req.StudentID,
		Score:        req.Score,
		MaxScore:     req.MaxScore,
		Feedback:     req.Feedback,
		TeacherID:    teacherID,
	}
	if err := s.repo.Create(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grade")
	}
	s.invalidate(ctx, teacherID)
	return grade, nil
}

// Update applies the provided fields to an existing grade, re-checking the
// score bound against whichever max score ends up in effect.
func (s *GradeService) Update(ctx context.Context, id, teacherID string, req UpdateGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	grade, err := s.repo.FindByID(ctx, id, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}

	if req.Score != nil {
		grade.Score = *req.Score
	}
	if req.MaxScore != nil {
		grade.MaxScore = *req.MaxScore
	}
	if req.Feedback != nil {
		grade.Feedback = req.Feedback
	}
	if grade.Score > grade.MaxScore {
		return nil, appErrors.Clone(appErrors.ErrValidation, "score cannot exceed max score")
	}

	if err := s.repo.Update(ctx, grade); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade")
	}
	s.invalidate(ctx, teacherID)
	return grade, nil
}

// Delete removes a grade.
func (s *GradeService) Delete(ctx context.Context, id, teacherID string) error {
	if err := s.repo.Delete(ctx, id, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade")
	}
	s.invalidate(ctx, teacherID)
	return nil
}

func (s *GradeService) invalidate(ctx context.Context, teacherID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, "analytics:"+teacherID+":*")
	}
}
