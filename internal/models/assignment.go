package models

import "time"

// AssignmentStatus tracks the assignment lifecycle.
type AssignmentStatus string

const (
	AssignmentStatusDraft     AssignmentStatus = "draft"
	AssignmentStatusPublished AssignmentStatus = "published"
	AssignmentStatusGraded    AssignmentStatus = "graded"
	AssignmentStatusArchived  AssignmentStatus = "archived"
)

// Valid reports whether the status is a recognised value.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentStatusDraft, AssignmentStatusPublished, AssignmentStatusGraded, AssignmentStatusArchived:
		return true
	default:
		return false
	}
}

// Assignment belongs to exactly one class and one teacher.
type Assignment struct {
	ID          string           `db:"id" json:"id"`
	Title       string           `db:"title" json:"title"`
	Type        string           `db:"type" json:"type"`
	Description *string          `db:"description" json:"description,omitempty"`
	DueDate     time.Time        `db:"due_date" json:"due_date"`
	TotalPoints float64          `db:"total_points" json:"total_points"`
	Status      AssignmentStatus `db:"status" json:"status"`
	ClassID     string           `db:"class_id" json:"class_id"`
	TeacherID   string           `db:"teacher_id" json:"teacher_id"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// AssignmentFilter narrows down assignment listings.
type AssignmentFilter struct {
	ClassID  string
	Status   AssignmentStatus
	Page     int
	PageSize int
}
