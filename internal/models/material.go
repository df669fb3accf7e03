package models

import "time"

// Material is a teaching resource attached to a class. Exactly one of URL or
// FileKey is typically set; FileKey references the teacher's file storage.
type Material struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Type      string    `db:"type" json:"type"`
	URL       *string   `db:"url" json:"url,omitempty"`
	FileKey   *string   `db:"file_key" json:"file_key,omitempty"`
	ClassID   string    `db:"class_id" json:"class_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// MaterialFilter narrows down material listings.
type MaterialFilter struct {
	ClassID string
	Type    string
}
