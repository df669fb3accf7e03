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

type assignmentRepository interface {
	List(ctx context.Context, teacherID string, filter models.AssignmentFilter) ([]models.Assignment, int, error)
	FindByID(ctx context.Context, id, teacherID string) (*models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id, teacherID string) error
}

// CreateAssignmentRequest holds payload for creating assignments.
type CreateAssignmentRequest struct {
	Title       string    `json:"title" validate:"required"`
	Type        string    `json:"type" validate:"required"`
	Description *string   `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	TotalPoints float64   `json:"total_points" validate:"gt=0"`
	Status      string    `json:"status"`
	ClassID     string    `json:"class_id" validate:"required,uuid4"`
}

// UpdateAssignmentRequest holds a partial field set; nil fields are left as-is.
type UpdateAssignmentRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1"`
	Type        *string    `json:"type" validate:"omitempty,min=1"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	TotalPoints *float64   `json:"total_points" validate:"omitempty,gt=0"`
	Status      *string    `json:"status"`
}

// AssignmentService handles assignment use-cases.
type AssignmentService struct {
	repo      assignmentRepository
	classes   classFinder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs the assignment service.
func NewAssignmentService(repo assignmentRepository, classes classFinder, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, classes: classes, validator: validate, logger: logger}
}

// List returns the teacher's assignments and pagination metadata.
func (s *AssignmentService) List(ctx context.Context, teacherID string, filter models.AssignmentFilter) ([]models.Assignment, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown assignment status")
	}
	assignments, total, err := s.repo.List(ctx, teacherID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return assignments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one assignment owned by the teacher.
func (s *AssignmentService) Get(ctx context.Context, id, teacherID string) (*models.Assignment, error) {
	assignment, err := s.repo.FindByID(ctx, id, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

// Create registers an assignment in one of the teacher's classes.
func (s *AssignmentService) Create(ctx context.Context, teacherID string, req CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	status := models.AssignmentStatus(req.Status)
	if req.Status == "" {
		status = models.AssignmentStatusDraft
	}
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown assignment status")
	}

	if _, err := s.classes.FindByID(ctx, req.ClassID, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	assignment := &models.Assignment{
		Title:       req.Title,
		Type:        req.Type,
		Description: req.Description,
		DueDate:     req.DueDate,
		TotalPoints: req.TotalPoints,
		Status:      status,
		ClassID:     req.ClassID,
		TeacherID:   teacherID,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	return assignment, nil
}

// Update applies the provided fields to an existing assignment. The owning
// class cannot be changed after creation.
func (s *AssignmentService) Update(ctx context.Context, id, teacherID string, req UpdateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	assignment, err := s.repo.FindByID(ctx, id, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	if req.Title != nil {
		assignment.Title = *req.Title
	}
	if req.Type != nil {
		assignment.Type = *req.Type
	}
	if req.Description != nil {
		assignment.Description = req.Description
	}
	if req.DueDate != nil {
		assignment.DueDate = *req.DueDate
	}
	if req.TotalPoints != nil {
		assignment.TotalPoints = *req.TotalPoints
	}
	if req.Status != nil {
		status := models.AssignmentStatus(*req.Status)
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown assignment status")
		}
		assignment.Status = status
	}

	if err := s.repo.Update(ctx, assignment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	return assignment, nil
}

// Delete removes an assignment and its grades.
func (s *AssignmentService) Delete(ctx context.Context, id, teacherID string) error {
	if err := s.repo.Delete(ctx, id, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}
