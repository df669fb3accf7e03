package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/classdesk/classdesk-api/internal/models"
)

// AnalyticsRepository serves the aggregation queries behind derived views.
// Counting happens in SQL; only score/max pairs are loaded for percentage
// math, which the service performs in floating point.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository constructs an AnalyticsRepository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// StudentGrades returns the score/max pairs of one student's grades.
func (r *AnalyticsRepository) StudentGrades(ctx context.Context, studentID, teacherID string) ([]models.GradeRatio, error) {
	const query = `SELECT score, max_score FROM grades WHERE student_id = $1 AND teacher_id = $2`
	ratios := make([]models.GradeRatio, 0)
	if err := r.db.SelectContext(ctx, &ratios, query, studentID, teacherID); err != nil {
		return nil, fmt.Errorf("load student grades: %w", err)
	}
	return ratios, nil
}

// ClassGrades returns the score/max pairs of all grades in a class.
func (r *AnalyticsRepository) ClassGrades(ctx context.Context, classID, teacherID string) ([]models.GradeRatio, error) {
	const query = `SELECT g.score, g.max_score
        FROM grades g
        JOIN assignments a ON a.id = g.assignment_id
        WHERE a.class_id = $1 AND g.teacher_id = $2`
	ratios := make([]models.GradeRatio, 0)
	if err := r.db.SelectContext(ctx, &ratios, query, classID, teacherID); err != nil {
		return nil, fmt.Errorf("load class grades: %w", err)
	}
	return ratios, nil
}

// RosterCounts returns per-class distinct student and assignment counts for
// a teacher without loading related rows.
func (r *AnalyticsRepository) RosterCounts(ctx context.Context, teacherID string) ([]models.RosterCount, error) {
	const query = `SELECT c.id AS class_id, c.name AS class_name,
        COUNT(DISTINCT e.student_id) AS student_count,
        COUNT(DISTINCT a.id) AS assignment_count
        FROM classes c
        LEFT JOIN enrollments e ON e.class_id = c.id
        LEFT JOIN assignments a ON a.class_id = c.id
        WHERE c.teacher_id = $1 AND c.active = true
        GROUP BY c.id, c.name
        ORDER BY c.name ASC`
	counts := make([]models.RosterCount, 0)
	if err := r.db.SelectContext(ctx, &counts, query, teacherID); err != nil {
		return nil, fmt.Errorf("load roster counts: %w", err)
	}
	return counts, nil
}
