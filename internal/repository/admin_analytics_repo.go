package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/testseries-api/internal/models"
)

// AdminAnalyticsRepository supplies data for the administrator review overview.
type AdminAnalyticsRepository interface {
	CountByStatus(ctx context.Context) (map[models.SubmissionStatus]int64, error)
	CountActiveStudents(ctx context.Context, since time.Time) (int64, error)
	ListSubmissionsSince(ctx context.Context, since time.Time) ([]models.Submission, error)
}

type adminAnalyticsRepository struct {
	db *gorm.DB
}

// NewAdminAnalyticsRepository constructs the analytics repository.
func NewAdminAnalyticsRepository(db *gorm.DB) AdminAnalyticsRepository {
	return &adminAnalyticsRepository{db: db}
}

func (r *adminAnalyticsRepository) CountByStatus(ctx context.Context) (map[models.SubmissionStatus]int64, error) {
	var rows []struct {
		Status models.SubmissionStatus
		Total  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.SubmissionStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// CountActiveStudents counts distinct students who submitted since the given time.
func (r *adminAnalyticsRepository) CountActiveStudents(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("submitted_at >= ?", since).
		Distinct("student_id").
		Count(&count).Error
	return count, err
}

func (r *adminAnalyticsRepository) ListSubmissionsSince(ctx context.Context, since time.Time) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Where("submitted_at >= ?", since).
		Order("submitted_at ASC").
		Find(&submissions).Error
	return submissions, err
}
