package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classdesk/classdesk-api/internal/models"
)

// ClassRepository manages persistence for classes. Every query is scoped by
// the owning teacher; a row that exists under another teacher behaves exactly
// like a missing row.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns the teacher's classes ordered by name. Inactive classes are
// excluded unless the filter asks for them.
func (r *ClassRepository) List(ctx context.Context, teacherID string, filter models.ClassFilter) ([]models.Class, int, error) {
	base := "FROM classes WHERE teacher_id = $1"
	args := []interface{}{teacherID}

	if !filter.IncludeInactive {
		base += " AND active = true"
	}
	if filter.Subject != "" {
		base += fmt.Sprintf(" AND subject = $%d", len(args)+1)
		args = append(args, filter.Subject)
	}
	if filter.AcademicYear != "" {
		base += fmt.Sprintf(" AND academic_year = $%d", len(args)+1)
		args = append(args, filter.AcademicYear)
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND LOWER(name) LIKE $%d", len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, name, subject, grade_level, academic_year, schedule, room, capacity, active, teacher_id, created_at, updated_at
        %s ORDER BY name ASC LIMIT %d OFFSET %d`, base, size, offset)

	classes := make([]models.Class, 0)
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID fetches a class only when both id and owner match.
func (r *ClassRepository) FindByID(ctx context.Context, id, teacherID string) (*models.Class, error) {
	const query = `SELECT id, name, subject, grade_level, academic_year, schedule, room, capacity, active, teacher_id, created_at, updated_at
        FROM classes WHERE id = $1 AND teacher_id = $2`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id, teacherID); err != nil {
		return nil, err
	}
	return &class, nil
}

// CountByTeacher returns the number of active classes a teacher owns.
func (r *ClassRepository) CountByTeacher(ctx context.Context, teacherID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM classes WHERE teacher_id = $1 AND active = true", teacherID); err != nil {
		return 0, fmt.Errorf("count teacher classes: %w", err)
	}
	return count, nil
}

// Create inserts a new class record.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, name, subject, grade_level, academic_year, schedule, room, capacity, active, teacher_id, created_at, updated_at)
        VALUES (:id, :name, :subject, :grade_level, :academic_year, :schedule, :room, :capacity, :active, :teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update modifies an existing class scoped by id and owner.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, subject = :subject, grade_level = :grade_level, academic_year = :academic_year,
        schedule = :schedule, room = :room, capacity = :capacity, active = :active, updated_at = :updated_at
        WHERE id = :id AND teacher_id = :teacher_id`
	result, err := r.db.NamedExecContext(ctx, query, class)
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update class result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a class and everything that exists only through it:
// enrollments, assignments with their grades, materials, and lesson plans.
// Calendar events keep their row but drop the dangling references. The whole
// cascade runs in one transaction.
func (r *ClassRepository) Delete(ctx context.Context, id, teacherID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin class delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM grades WHERE assignment_id IN (SELECT id FROM assignments WHERE class_id = $1 AND teacher_id = $2)`, id, teacherID); err != nil {
		return fmt.Errorf("delete class grades: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM assignments WHERE class_id = $1 AND teacher_id = $2`, id, teacherID); err != nil {
		return fmt.Errorf("delete class assignments: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM enrollments WHERE class_id = $1`, id); err != nil {
		return fmt.Errorf("delete class enrollments: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM materials WHERE class_id = $1 AND teacher_id = $2`, id, teacherID); err != nil {
		return fmt.Errorf("delete class materials: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM lesson_plans WHERE class_id = $1 AND teacher_id = $2`, id, teacherID); err != nil {
		return fmt.Errorf("delete class lesson plans: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE calendar_events SET class_id = NULL WHERE class_id = $1 AND teacher_id = $2`, id, teacherID); err != nil {
		return fmt.Errorf("unlink class events: %w", err)
	}

	var result sql.Result
	result, err = tx.ExecContext(ctx, `DELETE FROM classes WHERE id = $1 AND teacher_id = $2`, id, teacherID)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	var affected int64
	affected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete class result: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit class delete: %w", err)
	}
	return nil
}
