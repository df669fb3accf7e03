package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classdesk/classdesk-api/internal/billing"
	"github.com/classdesk/classdesk-api/internal/models"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
)

type mockMaterialRepo struct {
	materials map[string]*models.Material
}

func (m *mockMaterialRepo) List(ctx context.Context, teacherID string, filter models.MaterialFilter) ([]models.Material, error) {
	var result []models.Material
	for _, mat := range m.materials {
		if mat.TeacherID == teacherID {
			result = append(result, *mat)
		}
	}
	return result, nil
}

func (m *mockMaterialRepo) FindByID(ctx context.Context, id, teacherID string) (*models.Material, error) {
	if mat, ok := m.materials[id]; ok && mat.TeacherID == teacherID {
		copied := *mat
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockMaterialRepo) Create(ctx context.Context, material *models.Material) error {
	if m.materials == nil {
		m.materials = make(map[string]*models.Material)
	}
	material.ID = uuid.NewString()
	copied := *material
	m.materials[material.ID] = &copied
	return nil
}

func (m *mockMaterialRepo) Update(ctx context.Context, material *models.Material) error {
	if _, ok := m.materials[material.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *material
	m.materials[material.ID] = &copied
	return nil
}

func (m *mockMaterialRepo) Delete(ctx context.Context, id, teacherID string) error {
	if mat, ok := m.materials[id]; ok && mat.TeacherID == teacherID {
		delete(m.materials, id)
		return nil
	}
	return sql.ErrNoRows
}

type materialFixture struct {
	svc     *MaterialService
	repo    *mockMaterialRepo
	classID string
}

func newMaterialFixture(plan models.Plan) materialFixture {
	classID := uuid.NewString()
	repo := &mockMaterialRepo{}
	classes := &mockClassRepo{classes: map[string]*models.Class{
		classID: {ID: classID, Name: "Algebra I", TeacherID: "t1", Active: true},
	}}
	plans := &mockPlanResolver{limits: billing.LimitsFor(plan)}
	svc := NewMaterialService(repo, classes, plans, nil, nil)
	return materialFixture{svc: svc, repo: repo, classID: classID}
}

func TestMaterialCreateWithURL(t *testing.T) {
	fx := newMaterialFixture(models.PlanStarter)
	url := "https://example.com/syllabus.pdf"

	material, err := fx.svc.Create(context.Background(), "t1", CreateMaterialRequest{
		Title:   "Syllabus",
		Type:    "document",
		URL:     &url,
		ClassID: fx.classID,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, material.ID)
	assert.Nil(t, material.FileKey)
}

func TestMaterialCreateRequiresExactlyOneSource(t *testing.T) {
	fx := newMaterialFixture(models.PlanProfessional)
	url := "https://example.com/syllabus.pdf"
	fileKey := "users/t1/syllabus.pdf"

	// Neither source.
	_, err := fx.svc.Create(context.Background(), "t1", CreateMaterialRequest{
		Title:   "Syllabus",
		Type:    "document",
		ClassID: fx.classID,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	// Both sources.
	_, err = fx.svc.Create(context.Background(), "t1", CreateMaterialRequest{
		Title:   "Syllabus",
		Type:    "document",
		URL:     &url,
		FileKey: &fileKey,
		ClassID: fx.classID,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestMaterialCreateFileBackedNeedsStoragePlan(t *testing.T) {
	fx := newMaterialFixture(models.PlanStarter)
	fileKey := "users/t1/worksheet.pdf"

	_, err := fx.svc.Create(context.Background(), "t1", CreateMaterialRequest{
		Title:   "Worksheet",
		Type:    "worksheet",
		FileKey: &fileKey,
		ClassID: fx.classID,
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPlanLimit.Code, appErrors.FromError(err).Code)
}

func TestMaterialCreateFileBackedWithStoragePlan(t *testing.T) {
	fx := newMaterialFixture(models.PlanProfessional)
	fileKey := "users/t1/worksheet.pdf"

	material, err := fx.svc.Create(context.Background(), "t1", CreateMaterialRequest{
		Title:   "Worksheet",
		Type:    "worksheet",
		FileKey: &fileKey,
		ClassID: fx.classID,
	})

	require.NoError(t, err)
	require.NotNil(t, material.FileKey)
	assert.Equal(t, fileKey, *material.FileKey)
}

func TestMaterialUpdateSwitchingSourceClearsTheOther(t *testing.T) {
	fx := newMaterialFixture(models.PlanProfessional)
	url := "https://example.com/syllabus.pdf"
	material, err := fx.svc.Create(context.Background(), "t1", CreateMaterialRequest{
		Title:   "Syllabus",
		Type:    "document",
		URL:     &url,
		ClassID: fx.classID,
	})
	require.NoError(t, err)

	fileKey := "users/t1/syllabus-v2.pdf"
	updated, err := fx.svc.Update(context.Background(), material.ID, "t1", UpdateMaterialRequest{FileKey: &fileKey})

	require.NoError(t, err)
	assert.Nil(t, updated.URL)
	require.NotNil(t, updated.FileKey)
	assert.Equal(t, fileKey, *updated.FileKey)
}
