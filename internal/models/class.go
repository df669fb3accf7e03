package models

import "time"

// Class represents a group of students taught by one teacher.
// Capacity is nil for unbounded classes and must be positive otherwise.
type Class struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Subject      string    `db:"subject" json:"subject"`
	GradeLevel   string    `db:"grade_level" json:"grade_level"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	Schedule     *string   `db:"schedule" json:"schedule,omitempty"`
	Room         *string   `db:"room" json:"room,omitempty"`
	Capacity     *int      `db:"capacity" json:"capacity,omitempty"`
	Active       bool      `db:"active" json:"active"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ClassFilter narrows down class listings.
type ClassFilter struct {
	Search          string
	Subject         string
	AcademicYear    string
	IncludeInactive bool
	Page            int
	PageSize        int
}

// ClassSummary decorates a class with roster counts.
type ClassSummary struct {
	Class
	StudentCount    int `db:"student_count" json:"student_count"`
	AssignmentCount int `db:"assignment_count" json:"assignment_count"`
}
