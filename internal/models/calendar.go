package models

import "time"

// EventType classifies calendar entries.
type EventType string

const (
	EventTypeClass      EventType = "class"
	EventTypeAssignment EventType = "assignment"
	EventTypeExam       EventType = "exam"
	EventTypeMeeting    EventType = "meeting"
	EventTypePersonal   EventType = "personal"
)

// Valid reports whether the event type is a recognised value.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeClass, EventTypeAssignment, EventTypeExam, EventTypeMeeting, EventTypePersonal:
		return true
	default:
		return false
	}
}

// CalendarEvent is a dated entry optionally linked to a class, assignment,
// or lesson plan owned by the same teacher.
type CalendarEvent struct {
	ID           string    `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Type         EventType `db:"type" json:"type"`
	StartAt      time.Time `db:"start_at" json:"start_at"`
	EndAt        time.Time `db:"end_at" json:"end_at"`
	Description  *string   `db:"description" json:"description,omitempty"`
	Location     *string   `db:"location" json:"location,omitempty"`
	ClassID      *string   `db:"class_id" json:"class_id,omitempty"`
	AssignmentID *string   `db:"assignment_id" json:"assignment_id,omitempty"`
	LessonPlanID *string   `db:"lesson_plan_id" json:"lesson_plan_id,omitempty"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CalendarEventDetail is the merge view: an event denormalised with the
// titles of whatever it links to.
type CalendarEventDetail struct {
	CalendarEvent
	ClassName       *string `db:"class_name" json:"class_name,omitempty"`
	AssignmentTitle *string `db:"assignment_title" json:"assignment_title,omitempty"`
	LessonPlanTitle *string `db:"lesson_plan_title" json:"lesson_plan_title,omitempty"`
}

// CalendarFilter narrows down event listings. When both bounds are set, an
// event is included if its interval intersects [StartDate, EndDate].
type CalendarFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Type      EventType
}
