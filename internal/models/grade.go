package models

import "time"

// Grade records a student's score on an assignment.
// Invariant: 0 <= Score <= MaxScore. Scores are stored as NUMERIC and
// scanned into float64 before any arithmetic.
type Grade struct {
	ID           string    `db:"id" json:"id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	Score        float64   `db:"score" json:"score"`
	MaxScore     float64   `db:"max_score" json:"max_score"`
	Feedback     *string   `db:"feedback" json:"feedback,omitempty"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// GradeDetail adds display context for list endpoints.
type GradeDetail struct {
	Grade
	AssignmentTitle  string `db:"assignment_title" json:"assignment_title"`
	StudentFirstName string `db:"student_first_name" json:"student_first_name"`
	StudentLastName  string `db:"student_last_name" json:"student_last_name"`
}

// GradeFilter narrows down grade listings.
type GradeFilter struct {
	AssignmentID string
	StudentID    string
	ClassID      string
}
