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

// AssignmentRepository manages persistence for assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// List returns the teacher's assignments ordered by due date.
func (r *AssignmentRepository) List(ctx context.Context, teacherID string, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	base := "FROM assignments WHERE teacher_id = $1"
	args := []interface{}{teacherID}

	if filter.ClassID != "" {
		base += fmt.Sprintf(" AND class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.Status != "" {
		base += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
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

	query := fmt.Sprintf(`SELECT id, title, type, description, due_date, total_points, status, class_id, teacher_id, created_at, updated_at
        %s ORDER BY due_date ASC LIMIT %d OFFSET %d`, base, size, offset)

	assignments := make([]models.Assignment, 0)
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}
	return assignments, total, nil
}

// FindByID fetches an assignment only when both id and owner match.
func (r *AssignmentRepository) FindByID(ctx context.Context, id, teacherID string) (*models.Assignment, error) {
	const query = `SELECT id, title, type, description, due_date, total_points, status, class_id, teacher_id, created_at, updated_at
        FROM assignments WHERE id = $1 AND teacher_id = $2`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id, teacherID); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Create inserts a new assignment record.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	const query = `INSERT INTO assignments (id, title, type, description, due_date, total_points, status, class_id, teacher_id, created_at, updated_at)
        VALUES (:id, :title, :type, :description, :due_date, :total_points, :status, :class_id, :teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Update modifies an existing assignment scoped by id and owner.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assignments SET title = :title, type = :type, description = :description, due_date = :due_date,
        total_points = :total_points, status = :status, updated_at = :updated_at
        WHERE id = :id AND teacher_id = :teacher_id`
	result, err := r.db.NamedExecContext(ctx, query, assignment)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update assignment result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an assignment and its grades in one transaction, dropping
// dangling calendar references along the way.
func (r *AssignmentRepository) Delete(ctx context.Context, id, teacherID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assignment delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM grades WHERE assignment_id = $1 AND teacher_id = $2`, id, teacherID); err != nil {
		return fmt.Errorf("delete assignment grades: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE calendar_events SET assignment_id = NULL WHERE assignment_id = $1 AND teacher_id = $2`, id, teacherID); err != nil {
		return fmt.Errorf("unlink assignment events: %w", err)
	}

	var result sql.Result
	result, err = tx.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1 AND teacher_id = $2`, id, teacherID)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	var affected int64
	affected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete assignment result: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit assignment delete: %w", err)
	}
	return nil
}
