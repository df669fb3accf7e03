package service

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classdesk/classdesk-api/internal/billing"
	"github.com/classdesk/classdesk-api/internal/models"
	"github.com/classdesk/classdesk-api/pkg/config"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
	"github.com/classdesk/classdesk-api/pkg/storage"
)

type mockReportRepo struct {
	mu   sync.Mutex
	jobs map[string]*models.ReportJob
}

func (m *mockReportRepo) FindByID(ctx context.Context, id, teacherID string) (*models.ReportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok && job.TeacherID == teacherID {
		copied := *job
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReportRepo) Create(ctx context.Context, job *models.ReportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.jobs == nil {
		m.jobs = make(map[string]*models.ReportJob)
	}
	job.ID = uuid.NewString()
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *mockReportRepo) MarkProcessing(ctx context.Context, id string) error {
	return m.setStatus(id, models.ReportStatusProcessing, nil, nil)
}

func (m *mockReportRepo) MarkCompleted(ctx context.Context, id, fileKey string) error {
	return m.setStatus(id, models.ReportStatusCompleted, &fileKey, nil)
}

func (m *mockReportRepo) MarkFailed(ctx context.Context, id, message string) error {
	return m.setStatus(id, models.ReportStatusFailed, nil, &message)
}

func (m *mockReportRepo) setStatus(id string, status models.ReportStatus, fileKey, message *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	job.Status = status
	if fileKey != nil {
		job.FileKey = fileKey
	}
	job.Error = message
	return nil
}

func (m *mockReportRepo) status(id string) models.ReportStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		return job.Status
	}
	return ""
}

type mockGradeLister struct {
	grades []models.GradeDetail
}

func (m *mockGradeLister) List(ctx context.Context, teacherID string, filter models.GradeFilter) ([]models.GradeDetail, error) {
	return m.grades, nil
}

type mockPerformanceSource struct {
	perf models.StudentPerformance
}

func (m *mockPerformanceSource) StudentPerformance(ctx context.Context, studentID, teacherID string) (*models.StudentPerformance, error) {
	copied := m.perf
	copied.StudentID = studentID
	return &copied, nil
}

type mockStudentFinder struct {
	students map[string]*models.Student
}

func (m *mockStudentFinder) FindByID(ctx context.Context, id, teacherID string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type reportFixture struct {
	svc       *ReportService
	repo      *mockReportRepo
	classID   string
	studentID string
}

func newReportFixture(t *testing.T) reportFixture {
	t.Helper()
	classID := uuid.NewString()
	studentID := uuid.NewString()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("report-secret", time.Hour)

	repo := &mockReportRepo{}
	grades := &mockGradeLister{grades: []models.GradeDetail{
		{
			Grade:            models.Grade{Score: 45, MaxScore: 90, TeacherID: "t1"},
			AssignmentTitle:  "Quiz 1",
			StudentFirstName: "Ada",
			StudentLastName:  "Lovelace",
		},
	}}
	analytics := &mockPerformanceSource{perf: models.StudentPerformance{GradeCount: 1, Performance: 50}}
	classes := &mockClassRepo{classes: map[string]*models.Class{
		classID: {ID: classID, Name: "Algebra I", TeacherID: "t1", Active: true},
	}}
	students := &mockStudentFinder{students: map[string]*models.Student{
		studentID: {ID: studentID, FirstName: "Ada", LastName: "Lovelace"},
	}}
	plans := &mockPlanResolver{limits: billing.LimitsFor(models.PlanProfessional)}

	cfg := config.ReportsConfig{
		SignedURLTTL:      time.Hour,
		WorkerConcurrency: 1,
		WorkerRetries:     1,
	}
	svc := NewReportService(repo, grades, analytics, classes, students, plans, store, signer, cfg, nil, nil)
	return reportFixture{svc: svc, repo: repo, classID: classID, studentID: studentID}
}

func waitForStatus(t *testing.T, repo *mockReportRepo, id string, want models.ReportStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		return repo.status(id) == want
	}, 5*time.Second, 10*time.Millisecond)
}

func TestReportCSVExportEndToEnd(t *testing.T) {
	fx := newReportFixture(t)
	ctx := context.Background()
	fx.svc.Start(ctx)
	defer fx.svc.Stop()

	job, err := fx.svc.Create(ctx, "t1", CreateReportRequest{
		Type:    string(models.ReportTypeClassGradesCSV),
		ClassID: &fx.classID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, job.Status)

	waitForStatus(t, fx.repo, job.ID, models.ReportStatusCompleted)

	status, err := fx.svc.Get(ctx, job.ID, "t1")
	require.NoError(t, err)
	require.NotNil(t, status.DownloadURL)
	assert.Contains(t, *status.DownloadURL, "/api/v1/reports/download?token=")

	token := strings.TrimPrefix(*status.DownloadURL, "/api/v1/reports/download?token=")
	reader, filename, err := fx.svc.Download(ctx, token)
	require.NoError(t, err)
	defer reader.Close()

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Contains(t, filename, "class_grades.csv")
	assert.Contains(t, string(content), "Ada Lovelace")
	assert.Contains(t, string(content), "Quiz 1")
	assert.Contains(t, string(content), "50")
}

func TestReportCardPDFCompletes(t *testing.T) {
	fx := newReportFixture(t)
	ctx := context.Background()
	fx.svc.Start(ctx)
	defer fx.svc.Stop()

	job, err := fx.svc.Create(ctx, "t1", CreateReportRequest{
		Type:      string(models.ReportTypeReportCardPDF),
		StudentID: &fx.studentID,
	})
	require.NoError(t, err)

	waitForStatus(t, fx.repo, job.ID, models.ReportStatusCompleted)

	status, err := fx.svc.Get(ctx, job.ID, "t1")
	require.NoError(t, err)
	require.NotNil(t, status.FileKey)
	assert.Contains(t, *status.FileKey, "report_card.pdf")
}

func TestReportCreateRequiresReportsPlan(t *testing.T) {
	fx := newReportFixture(t)
	starter := NewReportService(
		fx.repo, &mockGradeLister{}, &mockPerformanceSource{},
		&mockClassRepo{}, &mockStudentFinder{},
		&mockPlanResolver{limits: billing.LimitsFor(models.PlanStarter)},
		nil, nil, config.ReportsConfig{}, nil, nil,
	)

	_, err := starter.Create(context.Background(), "t1", CreateReportRequest{
		Type:    string(models.ReportTypeClassGradesCSV),
		ClassID: &fx.classID,
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPlanLimit.Code, appErrors.FromError(err).Code)
}

func TestReportCreateRejectsUnknownType(t *testing.T) {
	fx := newReportFixture(t)

	_, err := fx.svc.Create(context.Background(), "t1", CreateReportRequest{Type: "spreadsheet"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportCreateForeignClassIsNotFound(t *testing.T) {
	fx := newReportFixture(t)
	foreign := uuid.NewString()

	_, err := fx.svc.Create(context.Background(), "t1", CreateReportRequest{
		Type:    string(models.ReportTypeClassGradesCSV),
		ClassID: &foreign,
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReportDownloadRejectsTamperedToken(t *testing.T) {
	fx := newReportFixture(t)

	_, _, err := fx.svc.Download(context.Background(), "job.123.bm9wZQ.deadbeef")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
