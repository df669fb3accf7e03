package models

// GradeRatio is a single score/max pair used by aggregation queries.
type GradeRatio struct {
	Score    float64 `db:"score"`
	MaxScore float64 `db:"max_score"`
}

// DistributionBand labels one of the five fixed percentage ranges.
type DistributionBand string

const (
	Band90To100 DistributionBand = "90-100"
	Band80To89  DistributionBand = "80-89"
	Band70To79  DistributionBand = "70-79"
	Band60To69  DistributionBand = "60-69"
	Band0To59   DistributionBand = "0-59"
)

// DistributionBands lists the bands in presentation order. Every histogram
// contains all five, zero-filled when empty.
var DistributionBands = []DistributionBand{Band90To100, Band80To89, Band70To79, Band60To69, Band0To59}

// ClassOverview summarises grading for one class.
type ClassOverview struct {
	ClassID      string                   `json:"class_id"`
	GradeCount   int                      `json:"grade_count"`
	Average      int                      `json:"average"`
	Distribution map[DistributionBand]int `json:"distribution,omitempty"`
}

// StudentPerformance is the rounded average percentage for one student.
type StudentPerformance struct {
	StudentID   string `json:"student_id"`
	GradeCount  int    `json:"grade_count"`
	Performance int    `json:"performance"`
}

// RosterCount pairs a class with its distinct student and assignment counts.
type RosterCount struct {
	ClassID         string `db:"class_id" json:"class_id"`
	ClassName       string `db:"class_name" json:"class_name"`
	StudentCount    int    `db:"student_count" json:"student_count"`
	AssignmentCount int    `db:"assignment_count" json:"assignment_count"`
}
