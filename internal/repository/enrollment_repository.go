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

// EnrollmentRepository handles persistence of class-student links. Rows are
// not owned directly: scoping goes through the class, which must belong to
// the caller.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments for the teacher's classes with display context.
func (r *EnrollmentRepository) List(ctx context.Context, teacherID string, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	base := `FROM enrollments e
        JOIN classes c ON c.id = e.class_id
        JOIN students s ON s.id = e.student_id
        WHERE c.teacher_id = $1`
	args := []interface{}{teacherID}

	if filter.ClassID != "" {
		base += fmt.Sprintf(" AND e.class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.StudentID != "" {
		base += fmt.Sprintf(" AND e.student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}

	query := `SELECT e.id, e.class_id, e.student_id, e.enrolled_at, e.created_at,
        s.first_name AS student_first_name, s.last_name AS student_last_name, c.name AS class_name ` +
		base + " ORDER BY e.enrolled_at DESC"

	enrollments := make([]models.EnrollmentDetail, 0)
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// FindByID returns an enrollment only when the class belongs to the teacher.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id, teacherID string) (*models.Enrollment, error) {
	const query = `SELECT e.id, e.class_id, e.student_id, e.enrolled_at, e.created_at
        FROM enrollments e
        JOIN classes c ON c.id = e.class_id
        WHERE e.id = $1 AND c.teacher_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id, teacherID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Exists checks whether the (class, student) pair is already linked.
func (r *EnrollmentRepository) Exists(ctx context.Context, classID, studentID string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM enrollments WHERE class_id = $1 AND student_id = $2 LIMIT 1", classID, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// CountByClass returns the number of students enrolled in a class.
func (r *EnrollmentRepository) CountByClass(ctx context.Context, classID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM enrollments WHERE class_id = $1", classID); err != nil {
		return 0, fmt.Errorf("count class enrollments: %w", err)
	}
	return count, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = now
	}
	enrollment.CreatedAt = now
	const query = `INSERT INTO enrollments (id, class_id, student_id, enrolled_at, created_at)
        VALUES (:id, :class_id, :student_id, :enrolled_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Delete removes an enrollment scoped through class ownership.
func (r *EnrollmentRepository) Delete(ctx context.Context, id, teacherID string) error {
	const query = `DELETE FROM enrollments e USING classes c
        WHERE e.class_id = c.id AND e.id = $1 AND c.teacher_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, teacherID)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete enrollment result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
