package models

import (
	"time"

	"github.com/lib/pq"
)

// LessonPlan describes a dated teaching plan for a class. Objectives keep
// their authoring order (stored as a Postgres text array).
type LessonPlan struct {
	ID              string         `db:"id" json:"id"`
	Title           string         `db:"title" json:"title"`
	Objectives      pq.StringArray `db:"objectives" json:"objectives"`
	Content         string         `db:"content" json:"content"`
	Date            time.Time      `db:"date" json:"date"`
	DurationMinutes int            `db:"duration_minutes" json:"duration_minutes"`
	ClassID         string         `db:"class_id" json:"class_id"`
	TeacherID       string         `db:"teacher_id" json:"teacher_id"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// LessonPlanFilter narrows down lesson plan listings.
type LessonPlanFilter struct {
	ClassID   string
	StartDate *time.Time
	EndDate   *time.Time
}
