// Package pipeline orchestrates the per-activity analytics run: normalize
// samples, derive metrics, update personal records, regenerate insights, and
// roll up daily stats.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"example.com/analytics/internal/analysis"
	"example.com/analytics/internal/domain"
	"example.com/analytics/internal/insight"
	"example.com/analytics/internal/observability"
	"example.com/analytics/internal/records"
)

// Service runs the processing pipeline against a repository.
type Service struct {
	repo         domain.Repository
	defaultMaxHR float64
	logger       *log.Logger
}

// Option configures optional Service behaviour.
type Option func(*Service)

// WithDefaultMaxHeartRate overrides the max heart rate assumed for users
// without a configured one.
func WithDefaultMaxHeartRate(maxHR float64) Option {
	return func(s *Service) {
		if maxHR > 0 {
			s.defaultMaxHR = maxHR
		}
	}
}

// WithLogger overrides the logger used for per-stage reporting.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService constructs a Service.
func NewService(repo domain.Repository, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		defaultMaxHR: analysis.DefaultMaxHeartRate,
		logger:       log.New(log.Writer(), "[pipeline] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessResult summarises one pipeline run.
type ProcessResult struct {
	ActivityID   string
	UserID       string
	SampleCount  int
	InsightCount int
	NewRecords   []domain.UserRecord
}

// ProcessActivity runs the full pipeline for one activity id. It is
// idempotent: metrics and insights are replaced wholesale, record and daily
// writes re-derive from stored state. A failed daily rollup is reported via
// domain.ErrAggregationFailed without undoing the already-committed
// metrics and insights.
func (s *Service) ProcessActivity(ctx context.Context, activityID string) (*ProcessResult, error) {
	start := time.Now()

	activity, err := s.repo.GetActivity(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}
	if activity == nil {
		recordProcessed("not_found", time.Since(start))
		return nil, domain.ErrActivityNotFound
	}

	user, err := s.repo.GetUser(ctx, activity.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	rows, err := s.repo.ListActivityRecords(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	samples := analysis.Normalize(rows)
	zones := analysis.NewZoneSet(s.maxHeartRateFor(user))
	metrics := analysis.Compute(*activity, samples, zones)

	var newRecords []domain.UserRecord
	for _, candidate := range records.Candidates(*activity) {
		updated, err := s.repo.UpsertUserRecord(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("upsert record %s: %w", candidate.RecordType, err)
		}
		if updated {
			newRecords = append(newRecords, candidate)
		}
	}
	recordRecordsUpdated(len(newRecords))

	insights := insight.Generate(insight.Context{
		Activity:   *activity,
		Metrics:    metrics,
		NewRecords: newRecords,
	})

	if err := s.repo.ReplaceDerived(ctx, *activity, metrics, insights, recordTypes(newRecords)); err != nil {
		recordProcessed("error", time.Since(start))
		return nil, fmt.Errorf("replace derived rows: %w", err)
	}
	recordInsightsGenerated(len(insights))

	result := &ProcessResult{
		ActivityID:   activity.ID,
		UserID:       activity.UserID,
		SampleCount:  len(samples),
		InsightCount: len(insights),
		NewRecords:   newRecords,
	}

	observability.RecordActivityProcessed(time.Now())

	date, tz := s.localDate(activity.StartTime, user)
	if err := s.repo.RecomputeDailyStats(ctx, activity.UserID, date, tz); err != nil {
		recordProcessed("aggregation_failed", time.Since(start))
		return result, fmt.Errorf("%w: %v", domain.ErrAggregationFailed, err)
	}
	observability.RecordRollupRecomputed(time.Now())

	s.logger.Printf("processed activity %s (samples=%d, insights=%d, new_records=%d)",
		activity.ID, len(samples), len(insights), len(newRecords))
	recordProcessed("ok", time.Since(start))
	return result, nil
}

// GetMetrics returns the stored metrics row, or nil when the activity has
// not been processed yet.
func (s *Service) GetMetrics(ctx context.Context, activityID string) (*domain.ActivityMetrics, error) {
	return s.repo.GetActivityMetrics(ctx, activityID)
}

// ListInsights returns the activity's current insight set.
func (s *Service) ListInsights(ctx context.Context, activityID string) ([]domain.ActivityInsight, error) {
	return s.repo.ListActivityInsights(ctx, activityID)
}

// ListRecords returns a user's personal records, optionally narrowed to a
// sport.
func (s *Service) ListRecords(ctx context.Context, userID, sport string) ([]domain.UserRecord, error) {
	return s.repo.ListUserRecords(ctx, userID, sport)
}

// ListDailyStats returns a user's daily rollups for a date range.
func (s *Service) ListDailyStats(ctx context.Context, userID string, from, to time.Time) ([]domain.UserStatsDaily, error) {
	return s.repo.ListDailyStats(ctx, userID, from, to)
}

// ListActivities returns a user's activities with keyset pagination.
func (s *Service) ListActivities(ctx context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.Activity, *domain.Cursor, error) {
	return s.repo.ListActivitiesByUser(ctx, userID, cursor, limit)
}

func (s *Service) maxHeartRateFor(user *domain.User) float64 {
	if user != nil && user.MaxHeartRate != nil && *user.MaxHeartRate > 0 {
		return float64(*user.MaxHeartRate)
	}
	return s.defaultMaxHR
}

// localDate resolves the calendar date of a start time in the user's
// timezone. Unknown or invalid timezones fall back to UTC.
func (s *Service) localDate(startTime time.Time, user *domain.User) (time.Time, string) {
	tz := "UTC"
	if user != nil && user.Timezone != "" {
		tz = user.Timezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		tz = "UTC"
		loc = time.UTC
	}
	local := startTime.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC), tz
}

func recordTypes(recs []domain.UserRecord) []string {
	out := make([]string, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.RecordType)
	}
	return out
}
