package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classdesk/classdesk-api/internal/models"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
)

type mockCalendarRepo struct {
	events map[string]*models.CalendarEvent
}

func (m *mockCalendarRepo) List(ctx context.Context, teacherID string, filter models.CalendarFilter) ([]models.CalendarEventDetail, error) {
	var result []models.CalendarEventDetail
	for _, e := range m.events {
		if e.TeacherID == teacherID {
			result = append(result, models.CalendarEventDetail{CalendarEvent: *e})
		}
	}
	return result, nil
}

func (m *mockCalendarRepo) ListByClass(ctx context.Context, classID, teacherID string) ([]models.CalendarEventDetail, error) {
	var result []models.CalendarEventDetail
	for _, e := range m.events {
		if e.TeacherID == teacherID && e.ClassID != nil && *e.ClassID == classID {
			result = append(result, models.CalendarEventDetail{CalendarEvent: *e})
		}
	}
	return result, nil
}

func (m *mockCalendarRepo) FindByID(ctx context.Context, id, teacherID string) (*models.CalendarEventDetail, error) {
	if e, ok := m.events[id]; ok && e.TeacherID == teacherID {
		return &models.CalendarEventDetail{CalendarEvent: *e}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCalendarRepo) Create(ctx context.Context, event *models.CalendarEvent) error {
	if m.events == nil {
		m.events = make(map[string]*models.CalendarEvent)
	}
	event.ID = uuid.NewString()
	copied := *event
	m.events[event.ID] = &copied
	return nil
}

func (m *mockCalendarRepo) Update(ctx context.Context, event *models.CalendarEvent) error {
	if _, ok := m.events[event.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *event
	m.events[event.ID] = &copied
	return nil
}

func (m *mockCalendarRepo) Delete(ctx context.Context, id, teacherID string) error {
	if e, ok := m.events[id]; ok && e.TeacherID == teacherID {
		delete(m.events, id)
		return nil
	}
	return sql.ErrNoRows
}

type mockLessonPlanFinder struct {
	plans map[string]*models.LessonPlan
}

func (m *mockLessonPlanFinder) FindByID(ctx context.Context, id, teacherID string) (*models.LessonPlan, error) {
	if p, ok := m.plans[id]; ok && p.TeacherID == teacherID {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

type calendarFixture struct {
	svc     *CalendarService
	repo    *mockCalendarRepo
	classID string
}

func newCalendarFixture() calendarFixture {
	classID := uuid.NewString()
	repo := &mockCalendarRepo{}
	classes := &mockClassRepo{classes: map[string]*models.Class{
		classID: {ID: classID, Name: "Algebra I", TeacherID: "t1", Active: true},
	}}
	svc := NewCalendarService(repo, classes, &mockAssignmentFinder{}, &mockLessonPlanFinder{}, nil, nil)
	return calendarFixture{svc: svc, repo: repo, classID: classID}
}

func eventWindow() (time.Time, time.Time) {
	start := time.Date(2026, time.September, 1, 9, 0, 0, 0, time.UTC)
	return start, start.Add(time.Hour)
}

func TestCalendarCreateStoresEvent(t *testing.T) {
	fx := newCalendarFixture()
	start, end := eventWindow()

	event, err := fx.svc.Create(context.Background(), "t1", CreateCalendarEventRequest{
		Title:   "Unit 3 exam",
		Type:    "exam",
		StartAt: start,
		EndAt:   end,
		ClassID: &fx.classID,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, models.EventTypeExam, event.Type)
	assert.Equal(t, "t1", event.TeacherID)
}

func TestCalendarCreateRejectsInvertedInterval(t *testing.T) {
	fx := newCalendarFixture()
	start, end := eventWindow()

	_, err := fx.svc.Create(context.Background(), "t1", CreateCalendarEventRequest{
		Title:   "Backwards",
		Type:    "meeting",
		StartAt: end,
		EndAt:   start,
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCalendarCreateRejectsZeroLengthInterval(t *testing.T) {
	fx := newCalendarFixture()
	start, _ := eventWindow()

	_, err := fx.svc.Create(context.Background(), "t1", CreateCalendarEventRequest{
		Title:   "Instant",
		Type:    "meeting",
		StartAt: start,
		EndAt:   start,
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCalendarCreateRejectsUnknownType(t *testing.T) {
	fx := newCalendarFixture()
	start, end := eventWindow()

	_, err := fx.svc.Create(context.Background(), "t1", CreateCalendarEventRequest{
		Title:   "Mystery",
		Type:    "holiday",
		StartAt: start,
		EndAt:   end,
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCalendarCreateForeignLinkIsNotFound(t *testing.T) {
	fx := newCalendarFixture()
	start, end := eventWindow()

	// The class exists but belongs to a different teacher.
	_, err := fx.svc.Create(context.Background(), "t2", CreateCalendarEventRequest{
		Title:   "Trespass",
		Type:    "class",
		StartAt: start,
		EndAt:   end,
		ClassID: &fx.classID,
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCalendarListByClassForeignOwnerIsNotFound(t *testing.T) {
	fx := newCalendarFixture()

	_, err := fx.svc.ListByClass(context.Background(), fx.classID, "t2")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCalendarListRejectsInvertedRange(t *testing.T) {
	fx := newCalendarFixture()
	start, end := eventWindow()

	_, err := fx.svc.List(context.Background(), "t1", models.CalendarFilter{
		StartDate: &end,
		EndDate:   &start,
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCalendarUpdateRevalidatesInterval(t *testing.T) {
	fx := newCalendarFixture()
	start, end := eventWindow()
	event, err := fx.svc.Create(context.Background(), "t1", CreateCalendarEventRequest{
		Title:   "Staff meeting",
		Type:    "meeting",
		StartAt: start,
		EndAt:   end,
	})
	require.NoError(t, err)

	// Moving the start past the stored end is invalid.
	badStart := end.Add(time.Hour)
	_, err = fx.svc.Update(context.Background(), event.ID, "t1", UpdateCalendarEventRequest{StartAt: &badStart})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	newEnd := end.Add(2 * time.Hour)
	updated, err := fx.svc.Update(context.Background(), event.ID, "t1", UpdateCalendarEventRequest{StartAt: &badStart, EndAt: &newEnd})
	require.NoError(t, err)
	assert.Equal(t, badStart, updated.StartAt)
	assert.Equal(t, newEnd, updated.EndAt)
}
