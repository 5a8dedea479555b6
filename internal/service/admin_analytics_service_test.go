package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/testseries-api/internal/models"
)

type fakeAnalyticsRepo struct {
	counts      map[models.SubmissionStatus]int64
	activeCount int64
	submissions []models.Submission
	calls       int
}

func (f *fakeAnalyticsRepo) CountByStatus(ctx context.Context) (map[models.SubmissionStatus]int64, error) {
	f.calls++
	return f.counts, nil
}

func (f *fakeAnalyticsRepo) CountActiveStudents(ctx context.Context, since time.Time) (int64, error) {
	return f.activeCount, nil
}

func (f *fakeAnalyticsRepo) ListSubmissionsSince(ctx context.Context, since time.Time) ([]models.Submission, error) {
	return append([]models.Submission(nil), f.submissions...), nil
}

func TestAdminAnalyticsServiceCaching(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	approvedAt := now.Add(-24 * time.Hour)
	high := "92/100"
	low := "30/50"
	pending := "10/100"
	repo := &fakeAnalyticsRepo{
		counts:      map[models.SubmissionStatus]int64{models.SubmissionStatusPending: 3, models.SubmissionStatusReview: 1, models.SubmissionStatusEvaluated: 2},
		activeCount: 4,
		submissions: []models.Submission{
			{ID: "a", Status: models.SubmissionStatusEvaluated, Marks: &high, SubmittedAt: approvedAt.Add(-48 * time.Hour), ApprovedAt: &approvedAt},
			{ID: "b", Status: models.SubmissionStatusEvaluated, Marks: &low, SubmittedAt: approvedAt.Add(-24 * time.Hour), ApprovedAt: &approvedAt},
			{ID: "c", Status: models.SubmissionStatusReview, Marks: &pending, SubmittedAt: now.Add(-time.Hour)},
		},
	}

	svc := NewAdminAnalyticsService(repo, client, time.Minute, testLogger())
	svc.(*adminAnalyticsService).now = func() time.Time { return now }

	first, err := svc.GetSummary(context.Background(), adminA1, AnalyticsOptions{})
	require.NoError(t, err)
	require.False(t, first.CacheHit)
	require.EqualValues(t, 3, first.PendingQueue)
	require.EqualValues(t, 1, first.ReviewQueue)
	require.EqualValues(t, 4, first.ActiveStudents)
	require.EqualValues(t, 1, first.MarksDistribution["90-100"])
	require.EqualValues(t, 1, first.MarksDistribution["60-74"])
	require.Zero(t, first.MarksDistribution["0-59"])
	require.InDelta(t, 36.0, first.AverageTurnaroundHours, 0.001)
	require.NotEmpty(t, first.WeeklySubmissions)

	second, err := svc.GetSummary(context.Background(), adminA1, AnalyticsOptions{})
	require.NoError(t, err)
	require.True(t, second.CacheHit)
	require.Equal(t, 1, repo.calls)

	fresh, err := svc.GetSummary(context.Background(), adminA1, AnalyticsOptions{Fresh: true})
	require.NoError(t, err)
	require.False(t, fresh.CacheHit)
	require.Equal(t, 2, repo.calls)

	_, err = svc.GetSummary(context.Background(), teacherT1, AnalyticsOptions{})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestStartOfWeekUsesMonday(t *testing.T) {
	sunday := time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), startOfWeek(sunday))
}
