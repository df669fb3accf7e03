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

// GradeRepository manages persistence for grade records.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs a GradeRepository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// List returns the teacher's grades with assignment and student context.
func (r *GradeRepository) List(ctx context.Context, teacherID string, filter models.GradeFilter) ([]models.GradeDetail, error) {
	base := `FROM grades g
        JOIN assignments a ON a.id = g.assignment_id
        JOIN students s ON s.id = g.student_id
        WHERE g.teacher_id = $1`
	args := []interface{}{teacherID}

	if filter.AssignmentID != "" {
		base += fmt.Sprintf(" AND g.assignment_id = $%d", len(args)+1)
		args = append(args, filter.AssignmentID)
	}
	if filter.StudentID != "" {
		base += fmt.Sprintf(" AND g.student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.ClassID != "" {
		base += fmt.Sprintf(" AND a.class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}

	query := `SELECT g.id, g.assignment_id, g.student_id, g.score, g.max_score, g.feedback, g.teacher_id, g.created_at, g.updated_at,
        a.title AS assignment_title, s.first_name AS student_first_name, s.last_name AS student_last_name ` +
		base + " ORDER BY g.created_at DESC"

	grades := make([]models.GradeDetail, 0)
	if err := r.db.SelectContext(ctx, &grades, query, args...); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// FindByID fetches a grade only when both id and owner match.
func (r *GradeRepository) FindByID(ctx context.Context, id, teacherID string) (*models.Grade, error) {
	const query = `SELECT id, assignment_id, student_id, score, max_score, feedback, teacher_id, created_at, updated_at
        FROM grades WHERE id = $1 AND teacher_id = $2`
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, id, teacherID); err != nil {
		return nil, err
	}
	return &grade, nil
}

// Exists checks whether the (assignment, student) pair is already graded.
func (r *GradeRepository) Exists(ctx context.Context, assignmentID, studentID string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM grades WHERE assignment_id = $1 AND student_id = $2 LIMIT 1", assignmentID, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check grade: %w", err)
	}
	return true, nil
}

// Create inserts a new grade record.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	grade.CreatedAt = now
	grade.UpdatedAt = now
	const query = `INSERT INTO grades (id, assignment_id, student_id, score, max_score, feedback, teacher_id, created_at, updated_at)
        VALUES (:id, :assignment_id, :student_id, :score, :max_score, :feedback, :teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}

// Update modifies an existing grade scoped by id and owner.
func (r *GradeRepository) Update(ctx context.Context, grade *models.Grade) error {
	grade.UpdatedAt = time.Now().UTC()
	const query = `UPDATE grades SET score = :score, max_score = :max_score, feedback = :feedback, updated_at = :updated_at
        WHERE id = :id AND teacher_id = :teacher_id`
	result, err := r.db.NamedExecContext(ctx, query, grade)
	if err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update grade result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a grade scoped by id and owner.
func (r *GradeRepository) Delete(ctx context.Context, id, teacherID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM grades WHERE id = $1 AND teacher_id = $2", id, teacherID)
	if err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete grade result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
