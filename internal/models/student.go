package models

import "time"

// Student represents a learner owned by a teacher. A student is independent
// of any class until linked through an enrollment.
type Student struct {
	ID              string     `db:"id" json:"id"`
	FirstName       string     `db:"first_name" json:"first_name"`
	LastName        string     `db:"last_name" json:"last_name"`
	Email           *string    `db:"email" json:"email,omitempty"`
	GradeLevel      string     `db:"grade_level" json:"grade_level"`
	BirthDate       *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	GuardianName    *string    `db:"guardian_name" json:"guardian_name,omitempty"`
	GuardianContact *string    `db:"guardian_contact" json:"guardian_contact,omitempty"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`
	TeacherID       string     `db:"teacher_id" json:"teacher_id"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentFilter narrows down student listings.
type StudentFilter struct {
	Search     string
	ClassID    string
	GradeLevel string
	Page       int
	PageSize   int
}
