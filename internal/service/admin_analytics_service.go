package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/models"
	"github.com/noah-isme/testseries-api/internal/repository"
)

const analyticsCacheKey = "analytics:review-summary"

// AnalyticsOptions tunes a summary request. Fresh skips the cached copy and rebuilds it.
type AnalyticsOptions struct {
	Fresh bool
}

// AdminAnalyticsService aggregates review workload figures for the admin dashboard.
type AdminAnalyticsService interface {
	GetSummary(ctx context.Context, actor Actor, opts AnalyticsOptions) (dto.ReviewAnalyticsResponse, error)
}

type adminAnalyticsService struct {
	repo     repository.AdminAnalyticsRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewAdminAnalyticsService constructs the analytics service. A nil cache disables caching.
func NewAdminAnalyticsService(repo repository.AdminAnalyticsRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) AdminAnalyticsService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &adminAnalyticsService{
		repo:     repo,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "admin_analytics_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/testseries-api/internal/service/admin_analytics"),
		now:      time.Now,
	}
}

func (s *adminAnalyticsService) GetSummary(ctx context.Context, actor Actor, opts AnalyticsOptions) (dto.ReviewAnalyticsResponse, error) {
	if err := requireRole(actor, RoleAdmin); err != nil {
		return dto.ReviewAnalyticsResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "analytics.summary", trace.WithAttributes(
		attribute.Bool("analytics.fresh", opts.Fresh),
	))
	defer span.End()

	if !opts.Fresh {
		if cached, ok := s.cached(ctx); ok {
			span.SetAttributes(attribute.Bool("analytics.cache_hit", true))
			return cached, nil
		}
	}

	summary, err := s.aggregate(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate_failed")
		return dto.ReviewAnalyticsResponse{}, err
	}
	s.store(ctx, summary)
	return summary, nil
}

func (s *adminAnalyticsService) aggregate(ctx context.Context) (dto.ReviewAnalyticsResponse, error) {
	now := s.now().UTC()

	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return dto.ReviewAnalyticsResponse{}, storageError("count submissions", err)
	}
	active, err := s.repo.CountActiveStudents(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		return dto.ReviewAnalyticsResponse{}, storageError("count students", err)
	}
	// Eight weeks feed the weekly series and the marks histogram.
	submissions, err := s.repo.ListSubmissionsSince(ctx, now.AddDate(0, 0, -56))
	if err != nil {
		return dto.ReviewAnalyticsResponse{}, storageError("list submissions", err)
	}

	return buildReviewSummary(now, counts, active, submissions), nil
}

func (s *adminAnalyticsService) cached(ctx context.Context) (dto.ReviewAnalyticsResponse, bool) {
	if s.cache == nil {
		return dto.ReviewAnalyticsResponse{}, false
	}
	raw, err := s.cache.Get(ctx, analyticsCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("analytics cache read failed")
		}
		return dto.ReviewAnalyticsResponse{}, false
	}

	var summary dto.ReviewAnalyticsResponse
	if err := json.Unmarshal(raw, &summary); err != nil {
		s.logger.Warn().Err(err).Msg("discarding unreadable analytics cache entry")
		return dto.ReviewAnalyticsResponse{}, false
	}
	summary.CacheHit = true
	return summary, true
}

func (s *adminAnalyticsService) store(ctx context.Context, summary dto.ReviewAnalyticsResponse) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, analyticsCacheKey, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("analytics cache write failed")
	}
}

func buildReviewSummary(now time.Time, counts map[models.SubmissionStatus]int64, active int64, submissions []models.Submission) dto.ReviewAnalyticsResponse {
	distribution := dto.MarksDistribution{
		"90-100": 0,
		"75-89":  0,
		"60-74":  0,
		"0-59":   0,
	}

	weekly := map[time.Time]int64{}
	var turnaround time.Duration
	var approved int

	for _, submission := range submissions {
		weekly[startOfWeek(submission.SubmittedAt)]++

		if submission.Status != models.SubmissionStatusEvaluated {
			continue
		}
		if submission.Marks != nil {
			if obtained, total, err := ParseMarks(*submission.Marks); err == nil {
				percent := obtained / total * 100
				switch {
				case percent >= 90:
					distribution["90-100"]++
				case percent >= 75:
					distribution["75-89"]++
				case percent >= 60:
					distribution["60-74"]++
				default:
					distribution["0-59"]++
				}
			}
		}
		if submission.ApprovedAt != nil && submission.ApprovedAt.After(submission.SubmittedAt) {
			turnaround += submission.ApprovedAt.Sub(submission.SubmittedAt)
			approved++
		}
	}

	weeks := make([]time.Time, 0, len(weekly))
	for week := range weekly {
		weeks = append(weeks, week)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })

	points := make([]dto.WeeklySubmissionPoint, 0, len(weeks))
	for _, week := range weeks {
		points = append(points, dto.WeeklySubmissionPoint{WeekStart: week, Submissions: weekly[week]})
	}

	response := dto.ReviewAnalyticsResponse{
		PendingQueue:      counts[models.SubmissionStatusPending],
		ReviewQueue:       counts[models.SubmissionStatusReview],
		Evaluated:         counts[models.SubmissionStatusEvaluated],
		ActiveStudents:    active,
		MarksDistribution: distribution,
		WeeklySubmissions: points,
		GeneratedAt:       now,
	}
	if approved > 0 {
		response.AverageTurnaroundHours = turnaround.Hours() / float64(approved)
	}
	return response
}

func startOfWeek(t time.Time) time.Time {
	utc := t.UTC()
	weekday := int(utc.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	start := utc.AddDate(0, 0, -(weekday - 1))
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
}
