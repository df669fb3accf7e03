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

// ReportRepository tracks asynchronous export jobs.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs a ReportRepository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, teacher_id, type, class_id, student_id, status, file_key, error, created_at, updated_at, completed_at`

// FindByID fetches a report job only when both id and owner match.
func (r *ReportRepository) FindByID(ctx context.Context, id, teacherID string) (*models.ReportJob, error) {
	query := "SELECT " + reportColumns + " FROM report_jobs WHERE id = $1 AND teacher_id = $2"
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id, teacherID); err != nil {
		return nil, err
	}
	return &job, nil
}

// Create inserts a new pending report job.
func (r *ReportRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = models.ReportStatusPending
	}
	const query = `INSERT INTO report_jobs (id, teacher_id, type, class_id, student_id, status, file_key, error, created_at, updated_at, completed_at)
        VALUES (:id, :teacher_id, :type, :class_id, :student_id, :status, :file_key, :error, :created_at, :updated_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// MarkProcessing transitions a job into the processing state.
func (r *ReportRepository) MarkProcessing(ctx context.Context, id string) error {
	return r.transition(ctx, id, `UPDATE report_jobs SET status = $2, updated_at = $3 WHERE id = $1`, models.ReportStatusProcessing)
}

// MarkCompleted records the generated file key.
func (r *ReportRepository) MarkCompleted(ctx context.Context, id, fileKey string) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE report_jobs SET status = $2, file_key = $3, error = NULL, updated_at = $4, completed_at = $4 WHERE id = $1`,
		id, models.ReportStatusCompleted, fileKey, now)
	if err != nil {
		return fmt.Errorf("complete report job: %w", err)
	}
	return checkAffected(result)
}

// MarkFailed records a terminal failure message.
func (r *ReportRepository) MarkFailed(ctx context.Context, id, message string) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE report_jobs SET status = $2, error = $3, updated_at = $4 WHERE id = $1`,
		id, models.ReportStatusFailed, message, now)
	if err != nil {
		return fmt.Errorf("fail report job: %w", err)
	}
	return checkAffected(result)
}

func (r *ReportRepository) transition(ctx context.Context, id, query string, status models.ReportStatus) error {
	result, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("transition report job: %w", err)
	}
	return checkAffected(result)
}

func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("report job result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
