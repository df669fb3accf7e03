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

type mockClassRepo struct {
	classes map[string]*models.Class
}

func (m *mockClassRepo) List(ctx context.Context, teacherID string, filter models.ClassFilter) ([]models.Class, int, error) {
	var result []models.Class
	for _, c := range m.classes {
		if c.TeacherID != teacherID {
			continue
		}
		if !filter.IncludeInactive && !c.Active {
			continue
		}
		result = append(result, *c)
	}
	return result, len(result), nil
}

func (m *mockClassRepo) FindByID(ctx context.Context, id, teacherID string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok && c.TeacherID == teacherID {
		copied := *c
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) CountByTeacher(ctx context.Context, teacherID string) (int, error) {
	count := 0
	for _, c := range m.classes {
		if c.TeacherID == teacherID {
			count++
		}
	}
	return count, nil
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.Class) error {
	if m.classes == nil {
		m.classes = make(map[string]*models.Class)
	}
	class.ID = uuid.NewString()
	copied := *class
	m.classes[class.ID] = &copied
	return nil
}

func (m *mockClassRepo) Update(ctx context.Context, class *models.Class) error {
	if _, ok := m.classes[class.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *class
	m.classes[class.ID] = &copied
	return nil
}

func (m *mockClassRepo) Delete(ctx context.Context, id, teacherID string) error {
	if c, ok := m.classes[id]; ok && c.TeacherID == teacherID {
		delete(m.classes, id)
		return nil
	}
	return sql.ErrNoRows
}

type mockPlanResolver struct {
	limits billing.PlanLimits
}

func (m *mockPlanResolver) Limits(ctx context.Context, teacherID string) (billing.PlanLimits, error) {
	return m.limits, nil
}

func starterPlans() *mockPlanResolver {
	return &mockPlanResolver{limits: billing.LimitsFor(models.PlanStarter)}
}

func TestClassCreateSetsOwnerAndActive(t *testing.T) {
	repo := &mockClassRepo{}
	svc := NewClassService(repo, starterPlans(), nil, nil, nil)

	class, err := svc.Create(context.Background(), "t1", CreateClassRequest{
		Name:         "Algebra I",
		Subject:      "Math",
		GradeLevel:   "9",
		AcademicYear: "2026-2027",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, class.ID)
	assert.Equal(t, "t1", class.TeacherID)
	assert.True(t, class.Active)
}

func TestClassCreateStopsAtPlanLimit(t *testing.T) {
	repo := &mockClassRepo{}
	svc := NewClassService(repo, starterPlans(), nil, nil, nil)

	limit := billing.LimitsFor(models.PlanStarter).MaxClasses
	for i := 0; i < limit; i++ {
		_, err := svc.Create(context.Background(), "t1", CreateClassRequest{
			Name:         "Class",
			Subject:      "Math",
			GradeLevel:   "9",
			AcademicYear: "2026-2027",
		})
		require.NoError(t, err)
	}

	_, err := svc.Create(context.Background(), "t1", CreateClassRequest{
		Name:         "One too many",
		Subject:      "Math",
		GradeLevel:   "9",
		AcademicYear: "2026-2027",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPlanLimit.Code, appErrors.FromError(err).Code)
}

func TestClassPlanLimitCountsPerTeacher(t *testing.T) {
	repo := &mockClassRepo{}
	svc := NewClassService(repo, starterPlans(), nil, nil, nil)

	limit := billing.LimitsFor(models.PlanStarter).MaxClasses
	for i := 0; i < limit; i++ {
		_, err := svc.Create(context.Background(), "t1", CreateClassRequest{
			Name:         "Class",
			Subject:      "Math",
			GradeLevel:   "9",
			AcademicYear: "2026-2027",
		})
		require.NoError(t, err)
	}

	// Another teacher's quota is unaffected.
	_, err := svc.Create(context.Background(), "t2", CreateClassRequest{
		Name:         "Biology",
		Subject:      "Science",
		GradeLevel:   "10",
		AcademicYear: "2026-2027",
	})
	require.NoError(t, err)
}

func TestClassUpdateAppliesOnlyProvidedFields(t *testing.T) {
	repo := &mockClassRepo{}
	svc := NewClassService(repo, starterPlans(), nil, nil, nil)

	class, err := svc.Create(context.Background(), "t1", CreateClassRequest{
		Name:         "Algebra I",
		Subject:      "Math",
		GradeLevel:   "9",
		AcademicYear: "2026-2027",
	})
	require.NoError(t, err)

	room := "B204"
	inactive := false
	updated, err := svc.Update(context.Background(), class.ID, "t1", UpdateClassRequest{
		Room:   &room,
		Active: &inactive,
	})

	require.NoError(t, err)
	assert.Equal(t, "Algebra I", updated.Name)
	require.NotNil(t, updated.Room)
	assert.Equal(t, "B204", *updated.Room)
	assert.False(t, updated.Active)
}

func TestClassGetForeignOwnerIsNotFound(t *testing.T) {
	repo := &mockClassRepo{}
	svc := NewClassService(repo, starterPlans(), nil, nil, nil)

	class, err := svc.Create(context.Background(), "t1", CreateClassRequest{
		Name:         "Algebra I",
		Subject:      "Math",
		GradeLevel:   "9",
		AcademicYear: "2026-2027",
	})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), class.ID, "t2")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassListDefaultsPagination(t *testing.T) {
	repo := &mockClassRepo{}
	svc := NewClassService(repo, starterPlans(), nil, nil, nil)

	_, pagination, err := svc.List(context.Background(), "t1", models.ClassFilter{})

	require.NoError(t, err)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
}
