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

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns the teacher's students ordered by name.
func (r *StudentRepository) List(ctx context.Context, teacherID string, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students s WHERE s.teacher_id = $1"
	args := []interface{}{teacherID}

	if filter.ClassID != "" {
		base += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM enrollments e WHERE e.student_id = s.id AND e.class_id = $%d)", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.GradeLevel != "" {
		base += fmt.Sprintf(" AND s.grade_level = $%d", len(args)+1)
		args = append(args, filter.GradeLevel)
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (LOWER(s.first_name) LIKE $%d OR LOWER(s.last_name) LIKE $%d)", len(args)+1, len(args)+1)
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

	query := fmt.Sprintf(`SELECT s.id, s.first_name, s.last_name, s.email, s.grade_level, s.birth_date, s.guardian_name, s.guardian_contact, s.notes, s.teacher_id, s.created_at, s.updated_at
        %s ORDER BY s.last_name ASC, s.first_name ASC LIMIT %d OFFSET %d`, base, size, offset)

	students := make([]models.Student, 0)
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListByClass returns students enrolled in a class, scoped by owner.
func (r *StudentRepository) ListByClass(ctx context.Context, classID, teacherID string) ([]models.Student, error) {
	const query = `SELECT s.id, s.first_name, s.last_name, s.email, s.grade_level, s.birth_date, s.guardian_name, s.guardian_contact, s.notes, s.teacher_id, s.created_at, s.updated_at
        FROM students s
        JOIN enrollments e ON e.student_id = s.id
        WHERE e.class_id = $1 AND s.teacher_id = $2
        ORDER BY s.last_name ASC, s.first_name ASC`
	students := make([]models.Student, 0)
	if err := r.db.SelectContext(ctx, &students, query, classID, teacherID); err != nil {
		return nil, fmt.Errorf("list class students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student only when both id and owner match.
func (r *StudentRepository) FindByID(ctx context.Context, id, teacherID string) (*models.Student, error) {
	const query = `SELECT id, first_name, last_name, email, grade_level, birth_date, guardian_name, guardian_contact, notes, teacher_id, created_at, updated_at
        FROM students WHERE id = $1 AND teacher_id = $2`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id, teacherID); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, first_name, last_name, email, grade_level, birth_date, guardian_name, guardian_contact, notes, teacher_id, created_at, updated_at)
        VALUES (:id, :first_name, :last_name, :email, :grade_level, :birth_date, :guardian_name, :guardian_contact, :notes, :teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student scoped by id and owner.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET first_name = :first_name, last_name = :last_name, email = :email, grade_level = :grade_level,
        birth_date = :birth_date, guardian_name = :guardian_name, guardian_contact = :guardian_contact, notes = :notes, updated_at = :updated_at
        WHERE id = :id AND teacher_id = :teacher_id`
	result, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a student with its grades and enrollments in one
// transaction. A repeat delete reports sql.ErrNoRows.
func (r *StudentRepository) Delete(ctx context.Context, id, teacherID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM grades WHERE student_id = $1 AND teacher_id = $2`, id, teacherID); err != nil {
		return fmt.Errorf("delete student grades: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM enrollments WHERE student_id = $1`, id); err != nil {
		return fmt.Errorf("delete student enrollments: %w", err)
	}

	var result sql.Result
	result, err = tx.ExecContext(ctx, `DELETE FROM students WHERE id = $1 AND teacher_id = $2`, id, teacherID)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	var affected int64
	affected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student result: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit student delete: %w", err)
	}
	return nil
}
