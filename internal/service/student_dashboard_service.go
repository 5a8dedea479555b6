package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/models"
	"github.com/noah-isme/testseries-api/internal/repository"
)

const dashboardRecentLimit = 5

var errDashboardChanged = errors.New("dashboard changed while it was built")

// StudentDashboardService produces the cached per-student landing page summary.
type StudentDashboardService interface {
	GetDashboard(ctx context.Context, actor Actor) (dto.StudentDashboardResponse, error)
	Invalidate(ctx context.Context, studentID string)
	Run(ctx context.Context, hub EventHub)
}

type studentDashboardService struct {
	submissions repository.SubmissionRepository
	bookings    repository.BookingRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewStudentDashboardService builds the dashboard aggregator. The cache is optional.
func NewStudentDashboardService(submissions repository.SubmissionRepository, bookings repository.BookingRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StudentDashboardService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &studentDashboardService{
		submissions: submissions,
		bookings:    bookings,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "student_dashboard_service").Logger(),
		now:         time.Now,
	}
}

func dashboardCacheKey(studentID string) string {
	return fmt.Sprintf("dashboard:student:%s", studentID)
}

// dashboardVersionKey counts invalidations per student. It never expires so a counter
// cannot restart underneath an in-flight build.
func dashboardVersionKey(studentID string) string {
	return fmt.Sprintf("dashboard:student:%s:version", studentID)
}

func (s *studentDashboardService) GetDashboard(ctx context.Context, actor Actor) (dto.StudentDashboardResponse, error) {
	if err := requireRole(actor, RoleStudent); err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	cacheKey := dashboardCacheKey(actor.ID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StudentDashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Str("student_id", actor.ID).Msg("dashboard cache hit")
				response.CacheHit = true
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	version, cacheable := s.cacheVersion(ctx, actor.ID)

	counts, err := s.submissions.CountByStatus(ctx, actor.ID)
	if err != nil {
		return dto.StudentDashboardResponse{}, storageError("count submissions", err)
	}

	studentID := actor.ID
	recent, err := s.submissions.List(ctx, repository.SubmissionFilter{StudentID: &studentID, Limit: dashboardRecentLimit})
	if err != nil {
		return dto.StudentDashboardResponse{}, storageError("list submissions", err)
	}

	bookings, err := s.bookings.List(ctx, repository.BookingFilter{StudentID: &studentID})
	if err != nil {
		return dto.StudentDashboardResponse{}, storageError("list bookings", err)
	}
	if len(bookings) > dashboardRecentLimit {
		bookings = bookings[:dashboardRecentLimit]
	}

	summary := dto.StudentDashboardSummary{
		Pending:   counts[models.SubmissionStatusPending],
		InReview:  counts[models.SubmissionStatusReview],
		Evaluated: counts[models.SubmissionStatusEvaluated],
	}
	summary.Total = summary.Pending + summary.InReview + summary.Evaluated

	response := dto.StudentDashboardResponse{
		Summary:     summary,
		Recent:      ProjectSubmissions(actor, recent),
		Bookings:    dto.NewBookingResponseSlice(bookings),
		GeneratedAt: s.now().UTC(),
	}

	if cacheable {
		s.store(ctx, actor.ID, version, response)
	}

	return response, nil
}

// cacheVersion reads the invalidation counter before the database is queried. The
// snapshot is only cached when the counter still holds this value afterwards.
func (s *studentDashboardService) cacheVersion(ctx context.Context, studentID string) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	version, err := s.cache.Get(ctx, dashboardVersionKey(studentID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn().Err(err).Str("student_id", studentID).Msg("failed to read dashboard cache version")
		return 0, false
	}
	return version, true
}

func (s *studentDashboardService) store(ctx context.Context, studentID string, version int64, response dto.StudentDashboardResponse) {
	payload, err := json.Marshal(response)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode dashboard cache")
		return
	}

	versionKey := dashboardVersionKey(studentID)
	err = s.cache.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errDashboardChanged
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, dashboardCacheKey(studentID), payload, s.cacheTTL)
			return nil
		})
		return err
	}, versionKey)

	switch {
	case err == nil:
	case errors.Is(err, errDashboardChanged), errors.Is(err, redis.TxFailedErr):
		s.logger.Debug().Str("student_id", studentID).Msg("dashboard invalidated while building, not cached")
	default:
		s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
	}
}

// Invalidate bumps the student's version and drops the cached snapshot in one transaction.
func (s *studentDashboardService) Invalidate(ctx context.Context, studentID string) {
	if s.cache == nil || studentID == "" {
		return
	}
	_, err := s.cache.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, dashboardVersionKey(studentID))
		pipe.Del(ctx, dashboardCacheKey(studentID))
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("student_id", studentID).Msg("failed to invalidate dashboard cache")
	}
}

// Run drops cached dashboards whenever a change event touches the student. It blocks until ctx ends.
func (s *studentDashboardService) Run(ctx context.Context, hub EventHub) {
	if s.cache == nil || hub == nil {
		return
	}

	events, stop := hub.Subscribe(EventFilter{})
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.Invalidate(ctx, event.StudentID)
		}
	}
}
