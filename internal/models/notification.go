package models

import "time"

// Notification is a message addressed to a single user, e.g. a published result.
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    string     `gorm:"size:64;index:idx_notifications_user_read,priority:1" json:"user_id"`
	Type      string     `gorm:"size:64" json:"type"`
	Message   string     `gorm:"type:text" json:"message"`
	Read      bool       `gorm:"not null;default:false;index:idx_notifications_user_read,priority:2" json:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
