package service

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/classdesk/classdesk-api/internal/models"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
)

type analyticsRepository interface {
	StudentGrades(ctx context.Context, studentID, teacherID string) ([]models.GradeRatio, error)
	ClassGrades(ctx context.Context, classID, teacherID string) ([]models.GradeRatio, error)
	RosterCounts(ctx context.Context, teacherID string) ([]models.RosterCount, error)
}

// AnalyticsService computes grading aggregates. Results are cached per
// teacher and invalidated whenever grades, enrollments, or classes change.
type AnalyticsService struct {
	repo   analyticsRepository
	cache  *CacheService
	logger *zap.Logger
}

// NewAnalyticsService constructs the analytics service.
func NewAnalyticsService(repo analyticsRepository, cache *CacheService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{repo: repo, cache: cache, logger: logger}
}

// StudentPerformance returns the student's average percentage across all of
// their grades, rounded half up. A student with no grades scores 0.
func (s *AnalyticsService) StudentPerformance(ctx context.Context, studentID, teacherID string) (*models.StudentPerformance, error) {
	key := "analytics:" + teacherID + ":student:" + studentID
	var cached models.StudentPerformance
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	grades, err := s.repo.StudentGrades(ctx, studentID, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student grades")
	}

	result := &models.StudentPerformance{
		StudentID:   studentID,
		GradeCount:  len(grades),
		Performance: averagePercentage(grades),
	}
	s.cacheSet(ctx, key, result)
	return result, nil
}

// ClassOverview returns the class average and the five-band distribution of
// individual grade percentages. All five bands are always present.
func (s *AnalyticsService) ClassOverview(ctx context.Context, classID, teacherID string) (*models.ClassOverview, error) {
	key := "analytics:" + teacherID + ":class:" + classID
	var cached models.ClassOverview
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	grades, err := s.repo.ClassGrades(ctx, classID, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class grades")
	}

	distribution := make(map[models.DistributionBand]int, len(models.DistributionBands))
	for _, band := range models.DistributionBands {
		distribution[band] = 0
	}
	for _, g := range grades {
		distribution[bandFor(percentage(g))]++
	}

	result := &models.ClassOverview{
		ClassID:      classID,
		GradeCount:   len(grades),
		Average:      averagePercentage(grades),
		Distribution: distribution,
	}
	s.cacheSet(ctx, key, result)
	return result, nil
}

// RosterCounts returns distinct student and assignment counts per active
// class.
func (s *AnalyticsService) RosterCounts(ctx context.Context, teacherID string) ([]models.RosterCount, error) {
	key := "analytics:" + teacherID + ":roster"
	var cached []models.RosterCount
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	counts, err := s.repo.RosterCounts(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster counts")
	}
	s.cacheSet(ctx, key, counts)
	return counts, nil
}

func (s *AnalyticsService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Debug("analytics served from source after cache error", zap.String("key", key))
		return false
	}
	return hit
}

func (s *AnalyticsService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache != nil {
		s.cache.Set(ctx, key, value, 0)
	}
}

// percentage converts one grade to 0-100. Grades with a non-positive max
// score contribute 0 rather than dividing by zero.
func percentage(g models.GradeRatio) float64 {
	if g.MaxScore <= 0 {
		return 0
	}
	return g.Score / g.MaxScore * 100
}

// averagePercentage rounds half up, so 49.5 reports 50.
func averagePercentage(grades []models.GradeRatio) int {
	if len(grades) == 0 {
		return 0
	}
	var sum float64
	for _, g := range grades {
		sum += percentage(g)
	}
	return int(math.Floor(sum/float64(len(grades)) + 0.5))
}

func bandFor(pct float64) models.DistributionBand {
	switch {
	case pct >= 90:
		return models.Band90To100
	case pct >= 80:
		return models.Band80To89
	case pct >= 70:
		return models.Band70To79
	case pct >= 60:
		return models.Band60To69
	default:
		return models.Band0To59
	}
}
