package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classdesk/classdesk-api/internal/models"
)

// CalendarRepository manages calendar events and their merge view: events
// outer-joined with the class, assignment, or lesson plan they reference.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository constructs a CalendarRepository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

const calendarDetailColumns = `ev.id, ev.title, ev.type, ev.start_at, ev.end_at, ev.description, ev.location,
        ev.class_id, ev.assignment_id, ev.lesson_plan_id, ev.teacher_id, ev.created_at, ev.updated_at,
        c.name AS class_name, a.title AS assignment_title, lp.title AS lesson_plan_title`

const calendarDetailJoins = `FROM calendar_events ev
        LEFT JOIN classes c ON c.id = ev.class_id
        LEFT JOIN assignments a ON a.id = ev.assignment_id
        LEFT JOIN lesson_plans lp ON lp.id = ev.lesson_plan_id`

// List returns the teacher's events with linked titles. With both range
// bounds set, only events whose interval intersects [start, end] are
// returned.
func (r *CalendarRepository) List(ctx context.Context, teacherID string, filter models.CalendarFilter) ([]models.CalendarEventDetail, error) {
	base := calendarDetailJoins + " WHERE ev.teacher_id = $1"
	args := []interface{}{teacherID}

	if filter.StartDate != nil && filter.EndDate != nil {
		base += fmt.Sprintf(" AND ev.start_at <= $%d AND ev.end_at >= $%d", len(args)+1, len(args)+2)
		args = append(args, *filter.EndDate, *filter.StartDate)
	}
	if filter.Type != "" {
		base += fmt.Sprintf(" AND ev.type = $%d", len(args)+1)
		args = append(args, filter.Type)
	}

	query := "SELECT " + calendarDetailColumns + " " + base + " ORDER BY ev.start_at ASC"

	events := make([]models.CalendarEventDetail, 0)
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// ListByClass returns events linked to a class. The owner scope is part of
// the query itself so a foreign classID can never surface another tenant's
// events.
func (r *CalendarRepository) ListByClass(ctx context.Context, classID, teacherID string) ([]models.CalendarEventDetail, error) {
	query := "SELECT " + calendarDetailColumns + " " + calendarDetailJoins +
		" WHERE ev.class_id = $1 AND ev.teacher_id = $2 ORDER BY ev.start_at ASC"

	events := make([]models.CalendarEventDetail, 0)
	if err := r.db.SelectContext(ctx, &events, query, classID, teacherID); err != nil {
		return nil, fmt.Errorf("list class events: %w", err)
	}
	return events, nil
}

// FindByID fetches an event only when both id and owner match.
func (r *CalendarRepository) FindByID(ctx context.Context, id, teacherID string) (*models.CalendarEventDetail, error) {
	query := "SELECT " + calendarDetailColumns + " " + calendarDetailJoins +
		" WHERE ev.id = $1 AND ev.teacher_id = $2"
	var event models.CalendarEventDetail
	if err := r.db.GetContext(ctx, &event, query, id, teacherID); err != nil {
		return nil, err
	}
	return &event, nil
}

// Create inserts a new event record.
func (r *CalendarRepository) Create(ctx context.Context, event *models.CalendarEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	const query = `INSERT INTO calendar_events (id, title, type, start_at, end_at, description, location, class_id, assignment_id, lesson_plan_id, teacher_id, created_at, updated_at)
        VALUES (:id, :title, :type, :start_at, :end_at, :description, :location, :class_id, :assignment_id, :lesson_plan_id, :teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update modifies an existing event scoped by id and owner.
func (r *CalendarRepository) Update(ctx context.Context, event *models.CalendarEvent) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE calendar_events SET title = :title, type = :type, start_at = :start_at, end_at = :end_at,
        description = :description, location = :location, class_id = :class_id, assignment_id = :assignment_id,
        lesson_plan_id = :lesson_plan_id, updated_at = :updated_at
        WHERE id = :id AND teacher_id = :teacher_id`
	result, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update event result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an event scoped by id and owner.
func (r *CalendarRepository) Delete(ctx context.Context, id, teacherID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM calendar_events WHERE id = $1 AND teacher_id = $2", id, teacherID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
