package dto

import (
	"time"

	"github.com/samber/lo"

	"github.com/noah-isme/testseries-api/internal/models"
)

// NotificationResponse serialises a user notification.
type NotificationResponse struct {
	ID        uint       `json:"id"`
	UserID    string     `json:"user_id"`
	Type      string     `json:"type"`
	Message   string     `json:"message"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NotificationQuery is the query string accepted by the notification list.
type NotificationQuery struct {
	Limit  int  `query:"limit"`
	Offset int  `query:"offset"`
	Unread bool `query:"unread"`
}

// NotificationListMeta accompanies a notification page.
type NotificationListMeta struct {
	Unread int64 `json:"unread"`
	Count  int   `json:"count"`
}

// NewNotificationResponse converts a notification model into its DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		Type:      model.Type,
		Message:   model.Message,
		Read:      model.Read,
		ReadAt:    model.ReadAt,
		CreatedAt: model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts notification models into DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	return lo.Map(items, func(item models.Notification, _ int) NotificationResponse {
		return NewNotificationResponse(item)
	})
}
