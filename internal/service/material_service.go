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

type materialRepository interface {
	List(ctx context.Context, teacherID string, filter models.MaterialFilter) ([]models.Material, error)
	FindByID(ctx context.Context, id, teacherID string) (*models.Material, error)
	Create(ctx context.Context, material *models.Material) error
	Update(ctx context.Context, material *models.Material) error
	Delete(ctx context.Context, id, teacherID string) error
}

// CreateMaterialRequest holds payload for attaching a resource to a class.
// Exactly one of URL or FileKey must be provided.
type CreateMaterialRequest struct {
	Title   string  `json:"title" validate:"required"`
	Type    string  `json:"type" validate:"required"`
	URL     *string `json:"url" validate:"omitempty,url"`
	FileKey *string `json:"file_key"`
	ClassID string  `json:"class_id" validate:"required,uuid4"`
}

// UpdateMaterialRequest holds a partial field set; nil fields are left as-is.
type UpdateMaterialRequest struct {
	Title   *string `json:"title" validate:"omitempty,min=1"`
	Type    *string `json:"type" validate:"omitempty,min=1"`
	URL     *string `json:"url" validate:"omitempty,url"`
	FileKey *string `json:"file_key"`
}

// MaterialService handles teaching-resource use-cases.
type MaterialService struct {
	repo      materialRepository
	classes   classFinder
	plans     planResolver
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMaterialService constructs the material service.
func NewMaterialService(repo materialRepository, classes classFinder, plans planResolver, validate *validator.Validate, logger *zap.Logger) *MaterialService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaterialService{repo: repo, classes: classes, plans: plans, validator: validate, logger: logger}
}

// List returns the teacher's materials.
func (s *MaterialService) List(ctx context.Context, teacherID string, filter models.MaterialFilter) ([]models.Material, error) {
	materials, err := s.repo.List(ctx, teacherID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list materials")
	}
	return materials, nil
}

// Get returns one material owned by the teacher.
func (s *MaterialService) Get(ctx context.Context, id, teacherID string) (*models.Material, error) {
	material, err := s.repo.FindByID(ctx, id, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load material")
	}
	return material, nil
}

// Create attaches a resource to one of the teacher's classes. File-backed
// materials require a plan with file storage.
func (s *MaterialService) Create(ctx context.Context, teacherID string, req CreateMaterialRequest) (*models.Material, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid material payload")
	}
	if (req.URL == nil) == (req.FileKey == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exactly one of url or file_key is required")
	}

	if _, err := s.classes.FindByID(ctx, req.ClassID, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	if req.FileKey != nil && s.plans != nil {
		limits, err := s.plans.Limits(ctx, teacherID)
		if err != nil {
			return nil, err
		}
		if !limits.FileStorage {
			return nil, appErrors.Clone(appErrors.ErrPlanLimit, "plan does not include file storage")
		}
	}

	material := &models.Material{
		Title:     req.Title,
		Type:      req.Type,
		URL:       req.URL,
		FileKey:   req.FileKey,
		ClassID:   req.ClassID,
		TeacherID: teacherID,
	}
	if err := s.repo.Create(ctx, material); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create material")
	}
	return material, nil
}

// Update applies the provided fields to an existing material. Setting a URL
// clears the file key and vice versa.
func (s *MaterialService) Update(ctx context.Context, id, teacherID string, req UpdateMaterialRequest) (*models.Material, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid material payload")
	}
	if req.URL != nil && req.FileKey != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "url and file_key are mutually exclusive")
	}
	material, err := s.repo.FindByID(ctx, id, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load material")
	}

	if req.Title != nil {
		material.Title = *req.Title
	}
	if req.Type != nil {
		material.Type = *req.Type
	}
	if req.URL != nil {
		material.URL = req.URL
		material.FileKey = nil
	}
	if req.FileKey != nil {
		material.FileKey = req.FileKey
		material.URL = nil
	}

	if err := s.repo.Update(ctx, material); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update material")
	}
	return material, nil
}

// Delete removes a material record. Stored files are cleaned up separately
// through the storage endpoints.
func (s *MaterialService) Delete(ctx context.Context, id, teacherID string) error {
	if err := s.repo.Delete(ctx, id, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete material")
	}
	return nil
}
