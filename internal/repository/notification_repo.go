package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/testseries-api/internal/models"
)

const (
	defaultNotificationPage = 50
	maxNotificationPage     = 100
)

// NotificationFilter selects a recipient's notifications, newest first.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Limit      int
	Offset     int
}

// NotificationRepository stores per-recipient messages such as published results.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, filter NotificationFilter) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id uint, userID string, at time.Time) (models.Notification, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository constructs a repository backed by GORM.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) List(ctx context.Context, filter NotificationFilter) ([]models.Notification, error) {
	if filter.Limit <= 0 || filter.Limit > maxNotificationPage {
		filter.Limit = defaultNotificationPage
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	query := r.db.WithContext(ctx).Where("user_id = ?", filter.UserID)
	if filter.UnreadOnly {
		query = query.Where("read = ?", false)
	}

	var notifications []models.Notification
	err := query.Order("created_at DESC").Order("id DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&notifications).Error
	return notifications, err
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flags the notification as read when it belongs to userID. A notification
// addressed to someone else reports gorm.ErrRecordNotFound. Repeated calls keep the
// first read timestamp.
func (r *notificationRepository) MarkRead(ctx context.Context, id uint, userID string, at time.Time) (models.Notification, error) {
	var notification models.Notification
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Notification{}).
			Where("id = ? AND user_id = ? AND read = ?", id, userID, false).
			Updates(map[string]interface{}{"read": true, "read_at": at})
		if result.Error != nil {
			return result.Error
		}
		return tx.Where("id = ? AND user_id = ?", id, userID).First(&notification).Error
	})
	if err != nil {
		return models.Notification{}, err
	}
	return notification, nil
}
