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

// MaterialRepository manages persistence for class materials.
type MaterialRepository struct {
	db *sqlx.DB
}

// NewMaterialRepository constructs a MaterialRepository.
func NewMaterialRepository(db *sqlx.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

// List returns the teacher's materials ordered by title.
func (r *MaterialRepository) List(ctx context.Context, teacherID string, filter models.MaterialFilter) ([]models.Material, error) {
	base := "FROM materials WHERE teacher_id = $1"
	args := []interface{}{teacherID}

	if filter.ClassID != "" {
		base += fmt.Sprintf(" AND class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.Type != "" {
		base += fmt.Sprintf(" AND type = $%d", len(args)+1)
		args = append(args, filter.Type)
	}

	query := `SELECT id, title, type, url, file_key, class_id, teacher_id, created_at, updated_at ` + base + " ORDER BY title ASC"

	materials := make([]models.Material, 0)
	if err := r.db.SelectContext(ctx, &materials, query, args...); err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return materials, nil
}

// FindByID fetches a material only when both id and owner match.
func (r *MaterialRepository) FindByID(ctx context.Context, id, teacherID string) (*models.Material, error) {
	const query = `SELECT id, title, type, url, file_key, class_id, teacher_id, created_at, updated_at
        FROM materials WHERE id = $1 AND teacher_id = $2`
	var material models.Material
	if err := r.db.GetContext(ctx, &material, query, id, teacherID); err != nil {
		return nil, err
	}
	return &material, nil
}

// Create inserts a new material record.
func (r *MaterialRepository) Create(ctx context.Context, material *models.Material) error {
	if material.ID == "" {
		material.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	material.CreatedAt = now
	material.UpdatedAt = now
	const query = `INSERT INTO materials (id, title, type, url, file_key, class_id, teacher_id, created_at, updated_at)
        VALUES (:id, :title, :type, :url, :file_key, :class_id, :teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, material); err != nil {
		return fmt.Errorf("create material: %w", err)
	}
	return nil
}

// Update modifies an existing material scoped by id and owner.
func (r *MaterialRepository) Update(ctx context.Context, material *models.Material) error {
	material.UpdatedAt = time.Now().UTC()
	const query = `UPDATE materials SET title = :title, type = :type, url = :url, file_key = :file_key, updated_at = :updated_at
        WHERE id = :id AND teacher_id = :teacher_id`
	result, err := r.db.NamedExecContext(ctx, query, material)
	if err != nil {
		return fmt.Errorf("update material: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update material result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a material scoped by id and owner.
func (r *MaterialRepository) Delete(ctx context.Context, id, teacherID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM materials WHERE id = $1 AND teacher_id = $2", id, teacherID)
	if err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete material result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
