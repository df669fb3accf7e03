package models

import "time"

// Enrollment links a student to a class. The (class, student) pair is unique
// and enrollment rows have no independent existence: they are removed when
// either side is deleted.
type Enrollment struct {
	ID         string    `db:"id" json:"id"`
	ClassID    string    `db:"class_id" json:"class_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// EnrollmentDetail adds display context for list endpoints.
type EnrollmentDetail struct {
	Enrollment
	StudentFirstName string `db:"student_first_name" json:"student_first_name"`
	StudentLastName  string `db:"student_last_name" json:"student_last_name"`
	ClassName        string `db:"class_name" json:"class_name"`
}

// EnrollmentFilter narrows down enrollment listings.
type EnrollmentFilter struct {
	ClassID   string
	StudentID string
}
