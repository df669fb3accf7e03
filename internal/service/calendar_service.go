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

type calendarRepository interface {
	List(ctx context.Context, teacherID string, filter models.CalendarFilter) ([]models.CalendarEventDetail, error)
	ListByClass(ctx context.Context, classID, teacherID string) ([]models.CalendarEventDetail, error)
	FindByID(ctx context.Context, id, teacherID string) (*models.CalendarEventDetail, error)
	Create(ctx context.Context, event *models.CalendarEvent) error
	Update(ctx context.Context, event *models.CalendarEvent) error
	Delete(ctx context.Context, id, teacherID string) error
}

type lessonPlanFinder interface {
	FindByID(ctx context.Context, id, teacherID string) (*models.LessonPlan, error)
}

// CreateCalendarEventRequest holds payload for creating events.
type CreateCalendarEventRequest struct {
	Title        string    `json:"title" validate:"required"`
	Type         string    `json:"type" validate:"required"`
	StartAt      time.Time `json:"start_at" validate:"required"`
	EndAt        time.Time `json:"end_at" validate:"required"`
	Description  *string   `json:"description"`
	Location     *string   `json:"location"`
	ClassID      *string   `json:"class_id" validate:"omitempty,uuid4"`
	AssignmentID *string   `json:"assignment_id" validate:"omitempty,uuid4"`
	LessonPlanID *string   `json:"lesson_plan_id" validate:"omitempty,uuid4"`
}

// UpdateCalendarEventRequest holds a partial field set; nil fields are left
// as-is.
type UpdateCalendarEventRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1"`
	Type        *string    `json:"type"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
}

// CalendarService handles the teacher's merged calendar.
type CalendarService struct {
	repo        calendarRepository
	classes     classFinder
	assignments assignmentFinder
	lessonPlans lessonPlanFinder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCalendarService constructs the calendar service.
func NewCalendarService(repo calendarRepository, classes classFinder, assignments assignmentFinder, lessonPlans lessonPlanFinder, validate *validator.Validate, logger *zap.Logger) *CalendarService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{
		repo:        repo,
		classes:     classes,
		assignments: assignments,
		lessonPlans: lessonPlans,
		validator:   validate,
		logger:      logger,
	}
}

// List returns events intersecting the filter range, with linked titles.
func (s *CalendarService) List(ctx context.Context, teacherID string, filter models.CalendarFilter) ([]models.CalendarEventDetail, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown event type")
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date is before start date")
	}
	events, err := s.repo.List(ctx, teacherID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	return events, nil
}

// ListByClass returns events linked to one of the teacher's classes. A class
// owned by someone else reports NotFound like any other missing class.
func (s *CalendarService) ListByClass(ctx context.Context, classID, teacherID string) ([]models.CalendarEventDetail, error) {
	if _, err := s.classes.FindByID(ctx, classID, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	events, err := s.repo.ListByClass(ctx, classID, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class events")
	}
	return events, nil
}

// Get returns one event owned by the teacher.
func (s *CalendarService) Get(ctx context.Context, id, teacherID string) (*models.CalendarEventDetail, error) {
	event, err := s.repo.FindByID(ctx, id, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// Create registers an event. Linked records must belong to the same teacher.
func (s *CalendarService) Create(ctx context.Context, teacherID string, req CreateCalendarEventRequest) (*models.CalendarEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	eventType := models.EventType(req.Type)
	if !eventType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown event type")
	}
	if !req.EndAt.After(req.StartAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end must be after start")
	}
	if err := s.checkLinks(ctx, teacherID, req.ClassID, req.AssignmentID, req.LessonPlanID); err != nil {
		return nil, err
	}

	event := &models.CalendarEvent{
		Title:        req.Title,
		Type:         eventType,
		StartAt:      req.StartAt,
		EndAt:        req.EndAt,
		Description:  req.Description,
		Location:     req.Location,
		ClassID:      req.ClassID,
		AssignmentID: req.AssignmentID,
		LessonPlanID: req.LessonPlanID,
		TeacherID:    teacherID,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	return event, nil
}

// Update applies the provided fields to an existing event. Links to other
// records cannot be changed after creation.
func (s *CalendarService) Update(ctx context.Context, id, teacherID string, req UpdateCalendarEventRequest) (*models.CalendarEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	detail, err := s.repo.FindByID(ctx, id, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	event := detail.CalendarEvent

	if req.Title != nil {
		event.Title = *req.Title
	}
	if req.Type != nil {
		eventType := models.EventType(*req.Type)
		if !eventType.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown event type")
		}
		event.Type = eventType
	}
	if req.StartAt != nil {
		event.StartAt = *req.StartAt
	}
	if req.EndAt != nil {
		event.EndAt = *req.EndAt
	}
	if req.Description != nil {
		event.Description = req.Description
	}
	if req.Location != nil {
		event.Location = req.Location
	}
	if !event.EndAt.After(event.StartAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end must be after start")
	}

	if err := s.repo.Update(ctx, &event); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	return &event, nil
}

// Delete removes an event.
func (s *CalendarService) Delete(ctx context.Context, id, teacherID string) error {
	if err := s.repo.Delete(ctx, id, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	return nil
}

func (s *CalendarService) checkLinks(ctx context.Context, teacherID string, classID, assignmentID, lessonPlanID *string) error {
	if classID != nil {
		if _, err := s.classes.FindByID(ctx, *classID, teacherID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "class not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
		}
	}
	if assignmentID != nil {
		if _, err := s.assignments.FindByID(ctx, *assignmentID, teacherID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
		}
	}
	if lessonPlanID != nil {
		if _, err := s.lessonPlans.FindByID(ctx, *lessonPlanID, teacherID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "lesson plan not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson plan")
		}
	}
	return nil
}
