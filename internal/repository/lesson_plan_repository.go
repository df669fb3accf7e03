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

// LessonPlanRepository manages persistence for lesson plans.
type LessonPlanRepository struct {
	db *sqlx.DB
}

// NewLessonPlanRepository constructs a LessonPlanRepository.
func NewLessonPlanRepository(db *sqlx.DB) *LessonPlanRepository {
	return &LessonPlanRepository{db: db}
}

// List returns the teacher's lesson plans ordered by date.
func (r *LessonPlanRepository) List(ctx context.Context, teacherID string, filter models.LessonPlanFilter) ([]models.LessonPlan, error) {
	base := "FROM lesson_plans WHERE teacher_id = $1"
	args := []interface{}{teacherID}

	if filter.ClassID != "" {
		base += fmt.Sprintf(" AND class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.StartDate != nil {
		base += fmt.Sprintf(" AND date >= $%d", len(args)+1)
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		base += fmt.Sprintf(" AND date <= $%d", len(args)+1)
		args = append(args, *filter.EndDate)
	}

	query := `SELECT id, title, objectives, content, date, duration_minutes, class_id, teacher_id, created_at, updated_at ` +
		base + " ORDER BY date DESC"

	plans := make([]models.LessonPlan, 0)
	if err := r.db.SelectContext(ctx, &plans, query, args...); err != nil {
		return nil, fmt.Errorf("list lesson plans: %w", err)
	}
	return plans, nil
}

// FindByID fetches a lesson plan only when both id and owner match.
func (r *LessonPlanRepository) FindByID(ctx context.Context, id, teacherID string) (*models.LessonPlan, error) {
	const query = `SELECT id, title, objectives, content, date, duration_minutes, class_id, teacher_id, created_at, updated_at
        FROM lesson_plans WHERE id = $1 AND teacher_id = $2`
	var plan models.LessonPlan
	if err := r.db.GetContext(ctx, &plan, query, id, teacherID); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Create inserts a new lesson plan record.
func (r *LessonPlanRepository) Create(ctx context.Context, plan *models.LessonPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	const query = `INSERT INTO lesson_plans (id, title, objectives, content, date, duration_minutes, class_id, teacher_id, created_at, updated_at)
        VALUES (:id, :title, :objectives, :content, :date, :duration_minutes, :class_id, :teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, plan); err != nil {
		return fmt.Errorf("create lesson plan: %w", err)
	}
	return nil
}

// Update modifies an existing lesson plan scoped by id and owner.
func (r *LessonPlanRepository) Update(ctx context.Context, plan *models.LessonPlan) error {
	plan.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lesson_plans SET title = :title, objectives = :objectives, content = :content, date = :date,
        duration_minutes = :duration_minutes, updated_at = :updated_at
        WHERE id = :id AND teacher_id = :teacher_id`
	result, err := r.db.NamedExecContext(ctx, query, plan)
	if err != nil {
		return fmt.Errorf("update lesson plan: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update lesson plan result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a lesson plan, dropping dangling calendar references first.
func (r *LessonPlanRepository) Delete(ctx context.Context, id, teacherID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin lesson plan delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE calendar_events SET lesson_plan_id = NULL WHERE lesson_plan_id = $1 AND teacher_id = $2`, id, teacherID); err != nil {
		return fmt.Errorf("unlink lesson plan events: %w", err)
	}

	var result sql.Result
	result, err = tx.ExecContext(ctx, `DELETE FROM lesson_plans WHERE id = $1 AND teacher_id = $2`, id, teacherID)
	if err != nil {
		return fmt.Errorf("delete lesson plan: %w", err)
	}
	var affected int64
	affected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete lesson plan result: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit lesson plan delete: %w", err)
	}
	return nil
}
