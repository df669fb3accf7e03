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

type studentRepository interface {
	List(ctx context.Context, teacherID string, filter models.StudentFilter) ([]models.Student, int, error)
	ListByClass(ctx context.Context, classID, teacherID string) ([]models.Student, error)
	FindByID(ctx context.Context, id, teacherID string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id, teacherID string) error
}

// CreateStudentRequest holds payload for registering a student.
type CreateStudentRequest struct {
	FirstName       string     `json:"first_name" validate:"required"`
	LastName        string     `json:"last_name" validate:"required"`
	Email           *string    `json:"email" validate:"omitempty,email"`
	GradeLevel      string     `json:"grade_level" validate:"required"`
	BirthDate       *time.Time `json:"birth_date"`
	GuardianName    *string    `json:"guardian_name"`
	GuardianContact *string    `json:"guardian_contact"`
	Notes           *string    `json:"notes"`
}

// UpdateStudentRequest holds a partial field set; nil fields are left as-is.
type UpdateStudentRequest struct {
	FirstName       *string    `json:"first_name" validate:"omitempty,min=1"`
	LastName        *string    `json:"last_name" validate:"omitempty,min=1"`
	Email           *string    `json:"email" validate:"omitempty,email"`
	GradeLevel      *string    `json:"grade_level" validate:"omitempty,min=1"`
	BirthDate       *time.Time `json:"birth_date"`
	GuardianName    *string    `json:"guardian_name"`
	GuardianContact *string    `json:"guardian_contact"`
	Notes           *string    `json:"notes"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns the teacher's students, optionally restricted to one class.
func (s *StudentService) List(ctx context.Context, teacherID string, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, teacherID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListByClass returns every student enrolled in one of the teacher's classes.
func (s *StudentService) ListByClass(ctx context.Context, classID, teacherID string) ([]models.Student, error) {
	students, err := s.repo.ListByClass(ctx, classID, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class roster")
	}
	return students, nil
}

// Get returns one student owned by the teacher.
func (s *StudentService) Get(ctx context.Context, id, teacherID string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student record for the teacher.
func (s *StudentService) Create(ctx context.Context, teacherID string, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student := &models.Student{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		GradeLevel:      req.GradeLevel,
		BirthDate:       req.BirthDate,
		GuardianName:    req.GuardianName,
		GuardianContact: req.GuardianContact,
		Notes:           req.Notes,
		TeacherID:       teacherID,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update applies the provided fields to an existing student.
func (s *StudentService) Update(ctx context.Context, id, teacherID string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.repo.FindByID(ctx, id, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if req.FirstName != nil {
		student.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		student.LastName = *req.LastName
	}
	if req.Email != nil {
		student.Email = req.Email
	}
	if req.GradeLevel != nil {
		student.GradeLevel = *req.GradeLevel
	}
	if req.BirthDate != nil {
		student.BirthDate = req.BirthDate
	}
	if req.GuardianName != nil {
		student.GuardianName = req.GuardianName
	}
	if req.GuardianContact != nil {
		student.GuardianContact = req.GuardianContact
	}
	if req.Notes != nil {
		student.Notes = req.Notes
	}

	if err := s.repo.Update(ctx, student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes a student together with their enrollments and grades.
func (s *StudentService) Delete(ctx context.Context, id, teacherID string) error {
	if err := s.repo.Delete(ctx, id, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, "analytics:"+teacherID+":*")
	}
	return nil
}
