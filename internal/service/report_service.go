package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classdesk/classdesk-api/internal/models"
	"github.com/classdesk/classdesk-api/pkg/config"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
	"github.com/classdesk/classdesk-api/pkg/export"
	"github.com/classdesk/classdesk-api/pkg/jobs"
	"github.com/classdesk/classdesk-api/pkg/storage"
)

type reportRepository interface {
	FindByID(ctx context.Context, id, teacherID string) (*models.ReportJob, error)
	Create(ctx context.Context, job *models.ReportJob) error
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, fileKey string) error
	MarkFailed(ctx context.Context, id, message string) error
}

type gradeLister interface {
	List(ctx context.Context, teacherID string, filter models.GradeFilter) ([]models.GradeDetail, error)
}

type performanceSource interface {
	StudentPerformance(ctx context.Context, studentID, teacherID string) (*models.StudentPerformance, error)
}

// CreateReportRequest asks for an asynchronous export.
type CreateReportRequest struct {
	Type      string  `json:"type" validate:"required"`
	ClassID   *string `json:"class_id" validate:"omitempty,uuid4"`
	StudentID *string `json:"student_id" validate:"omitempty,uuid4"`
}

// ReportStatusResponse is a job snapshot plus a download URL once completed.
type ReportStatusResponse struct {
	models.ReportJob
	DownloadURL *string    `json:"download_url,omitempty"`
	URLExpires  *time.Time `json:"url_expires,omitempty"`
}

type reportPayload struct {
	JobID     string
	TeacherID string
}

// ReportService produces CSV and PDF exports asynchronously. Jobs run on an
// in-process worker pool; completed files live on local disk and are served
// through expiring signed URLs.
type ReportService struct {
	repo      reportRepository
	grades    gradeLister
	analytics performanceSource
	classes   classFinder
	students  studentFinder
	plans     planResolver

	store  *storage.LocalStorage
	signer *storage.SignedURLSigner
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	queue  *jobs.Queue

	retention time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService constructs the report service and its worker queue. Call
// Start before enqueueing and Stop on shutdown.
func NewReportService(
	repo reportRepository,
	grades gradeLister,
	analytics performanceSource,
	classes classFinder,
	students studentFinder,
	plans planResolver,
	store *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	cfg config.ReportsConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReportService{
		repo:      repo,
		grades:    grades,
		analytics: analytics,
		classes:   classes,
		students:  students,
		plans:     plans,
		store:     store,
		signer:    signer,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		retention: cfg.SignedURLTTL,
		validator: validate,
		logger:    logger,
	}
	s.queue = jobs.NewQueue("reports", s.process, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the report workers.
func (s *ReportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the report workers.
func (s *ReportService) Stop() {
	s.queue.Stop()
}

// Create validates the request, records a pending job, and enqueues it.
func (s *ReportService) Create(ctx context.Context, teacherID string, req CreateReportRequest) (*models.ReportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	reportType := models.ReportType(req.Type)
	if !reportType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown report type")
	}

	if s.plans != nil {
		limits, err := s.plans.Limits(ctx, teacherID)
		if err != nil {
			return nil, err
		}
		if !limits.Reports {
			return nil, appErrors.Clone(appErrors.ErrPlanLimit, "plan does not include report exports")
		}
	}

	switch reportType {
	case models.ReportTypeClassGradesCSV:
		if req.ClassID == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "class_id is required for class grade exports")
		}
		if _, err := s.classes.FindByID(ctx, *req.ClassID, teacherID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
		}
	case models.ReportTypeReportCardPDF:
		if req.StudentID == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student_id is required for report cards")
		}
		if _, err := s.students.FindByID(ctx, *req.StudentID, teacherID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
	}

	job := &models.ReportJob{
		TeacherID: teacherID,
		Type:      reportType,
		ClassID:   req.ClassID,
		StudentID: req.StudentID,
		Status:    models.ReportStatusPending,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report job")
	}

	if err := s.queue.Enqueue(jobs.Job{
		ID:      job.ID,
		Type:    string(reportType),
		Payload: reportPayload{JobID: job.ID, TeacherID: teacherID},
	}); err != nil {
		if markErr := s.repo.MarkFailed(ctx, job.ID, "worker queue unavailable"); markErr != nil {
			s.logger.Error("failed to mark report job", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return job, nil
}

// Get returns the job status. Completed jobs include a fresh signed download
// URL.
func (s *ReportService) Get(ctx context.Context, id, teacherID string) (*ReportStatusResponse, error) {
	job, err := s.repo.FindByID(ctx, id, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}

	resp := &ReportStatusResponse{ReportJob: *job}
	if job.Status == models.ReportStatusCompleted && job.FileKey != nil {
		token, expires, err := s.signer.Generate(job.ID, *job.FileKey)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
		}
		url := "/api/v1/reports/download?token=" + token
		resp.DownloadURL = &url
		resp.URLExpires = &expires
	}
	return resp, nil
}

// Download resolves a signed token to the report file. Expired or tampered
// tokens report NotFound.
func (s *ReportService) Download(ctx context.Context, token string) (io.ReadCloser, string, error) {
	_, key, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "download link is invalid or expired")
	}
	f, err := s.store.Open(key)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report file no longer exists")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open report file")
	}
	return f, path.Base(key), nil
}

// Cleanup removes report files older than the retention window. Wired to the
// cron scheduler at startup.
func (s *ReportService) Cleanup(ctx context.Context) {
	removed, err := s.store.CleanupOlderThan(s.retention)
	if err != nil {
		s.logger.Error("report cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("report cleanup finished", zap.Int("removed", len(removed)))
	}
}

func (s *ReportService) process(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(reportPayload)
	if !ok {
		return fmt.Errorf("report job %s has unexpected payload %T", job.ID, job.Payload)
	}

	record, err := s.repo.FindByID(ctx, payload.JobID, payload.TeacherID)
	if err != nil {
		return fmt.Errorf("load report job %s: %w", payload.JobID, err)
	}
	if err := s.repo.MarkProcessing(ctx, record.ID); err != nil {
		return fmt.Errorf("mark report job %s processing: %w", record.ID, err)
	}

	data, filename, renderErr := s.render(ctx, record)
	if renderErr != nil {
		if markErr := s.repo.MarkFailed(ctx, record.ID, renderErr.Error()); markErr != nil {
			s.logger.Error("failed to mark report job", zap.String("job_id", record.ID), zap.Error(markErr))
		}
		return fmt.Errorf("render report %s: %w", record.ID, renderErr)
	}

	key := path.Join(payload.TeacherID, record.ID+"_"+filename)
	if _, err := s.store.Save(key, data); err != nil {
		if markErr := s.repo.MarkFailed(ctx, record.ID, "failed to store report file"); markErr != nil {
			s.logger.Error("failed to mark report job", zap.String("job_id", record.ID), zap.Error(markErr))
		}
		return fmt.Errorf("store report %s: %w", record.ID, err)
	}
	if err := s.repo.MarkCompleted(ctx, record.ID, key); err != nil {
		return fmt.Errorf("mark report job %s completed: %w", record.ID, err)
	}
	s.logger.Info("report generated",
		zap.String("job_id", record.ID),
		zap.String("type", string(record.Type)),
		zap.String("file_key", key))
	return nil
}

func (s *ReportService) render(ctx context.Context, job *models.ReportJob) ([]byte, string, error) {
	switch job.Type {
	case models.ReportTypeClassGradesCSV:
		return s.renderClassGrades(ctx, job)
	case models.ReportTypeReportCardPDF:
		return s.renderReportCard(ctx, job)
	default:
		return nil, "", fmt.Errorf("unknown report type %q", job.Type)
	}
}

func (s *ReportService) renderClassGrades(ctx context.Context, job *models.ReportJob) ([]byte, string, error) {
	grades, err := s.grades.List(ctx, job.TeacherID, models.GradeFilter{ClassID: *job.ClassID})
	if err != nil {
		return nil, "", fmt.Errorf("load class grades: %w", err)
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Assignment", "Score", "Max Score", "Percent"},
	}
	for _, g := range grades {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":    g.StudentFirstName + " " + g.StudentLastName,
			"Assignment": g.AssignmentTitle,
			"Score":      fmt.Sprintf("%.2f", g.Score),
			"Max Score":  fmt.Sprintf("%.2f", g.MaxScore),
			"Percent":    fmt.Sprintf("%d", percentageInt(g.Score, g.MaxScore)),
		})
	}

	data, err := s.csv.Render(dataset)
	if err != nil {
		return nil, "", fmt.Errorf("render csv: %w", err)
	}
	return data, "class_grades.csv", nil
}

func (s *ReportService) renderReportCard(ctx context.Context, job *models.ReportJob) ([]byte, string, error) {
	grades, err := s.grades.List(ctx, job.TeacherID, models.GradeFilter{StudentID: *job.StudentID})
	if err != nil {
		return nil, "", fmt.Errorf("load student grades: %w", err)
	}
	performance, err := s.analytics.StudentPerformance(ctx, *job.StudentID, job.TeacherID)
	if err != nil {
		return nil, "", fmt.Errorf("load student performance: %w", err)
	}

	var studentName string
	dataset := export.Dataset{
		Headers: []string{"Assignment", "Score", "Max Score", "Feedback"},
	}
	for _, g := range grades {
		if studentName == "" {
			studentName = g.StudentFirstName + " " + g.StudentLastName
		}
		feedback := ""
		if g.Feedback != nil {
			feedback = *g.Feedback
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Assignment": g.AssignmentTitle,
			"Score":      fmt.Sprintf("%.2f", g.Score),
			"Max Score":  fmt.Sprintf("%.2f", g.MaxScore),
			"Feedback":   feedback,
		})
	}
	if studentName == "" {
		studentName = "Student"
	}

	summary := []string{
		fmt.Sprintf("Graded assignments: %d", performance.GradeCount),
		fmt.Sprintf("Overall performance: %d%%", performance.Performance),
	}
	data, err := s.pdf.RenderReportCard(dataset, "Report Card: "+studentName, summary)
	if err != nil {
		return nil, "", fmt.Errorf("render pdf: %w", err)
	}
	return data, "report_card.pdf", nil
}

func percentageInt(score, maxScore float64) int {
	if maxScore <= 0 {
		return 0
	}
	return int(score/maxScore*100 + 0.5)
}
