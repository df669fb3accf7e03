package models

import "time"

// ReportType identifies the export a job produces.
type ReportType string

const (
	ReportTypeClassGradesCSV ReportType = "class_grades_csv"
	ReportTypeReportCardPDF  ReportType = "report_card_pdf"
)

// Valid reports whether the report type is recognised.
func (t ReportType) Valid() bool {
	return t == ReportTypeClassGradesCSV || t == ReportTypeReportCardPDF
}

// ReportStatus tracks the job lifecycle.
type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "pending"
	ReportStatusProcessing ReportStatus = "processing"
	ReportStatusCompleted  ReportStatus = "completed"
	ReportStatusFailed     ReportStatus = "failed"
)

// ReportJob tracks an asynchronous export request.
type ReportJob struct {
	ID          string       `db:"id" json:"id"`
	TeacherID   string       `db:"teacher_id" json:"teacher_id"`
	Type        ReportType   `db:"type" json:"type"`
	ClassID     *string      `db:"class_id" json:"class_id,omitempty"`
	StudentID   *string      `db:"student_id" json:"student_id,omitempty"`
	Status      ReportStatus `db:"status" json:"status"`
	FileKey     *string      `db:"file_key" json:"file_key,omitempty"`
	Error       *string      `db:"error" json:"error,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
	CompletedAt *time.Time   `db:"completed_at" json:"completed_at,omitempty"`
}
