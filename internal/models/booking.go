package models

import "time"

// BookingStatus enumerates mentorship booking states.
type BookingStatus string

const (
	// BookingStatusPending indicates the request awaits confirmation.
	BookingStatusPending BookingStatus = "Pending"
	// BookingStatusConfirmed indicates the mentor slot is confirmed.
	BookingStatusConfirmed BookingStatus = "Confirmed"
)

// Booking is a mentorship session request made by a student.
type Booking struct {
	ID          string        `gorm:"primaryKey;size:36" json:"id"`
	StudentID   string        `gorm:"size:64;not null;index" json:"student_id"`
	MentorID    string        `gorm:"size:64;not null;index" json:"mentor_id"`
	MentorName  string        `gorm:"size:255;not null" json:"mentor_name"`
	Date        string        `gorm:"size:10;not null" json:"date"`
	Slot        string        `gorm:"size:64;not null" json:"slot"`
	Reason      string        `gorm:"type:text" json:"reason"`
	Status      BookingStatus `gorm:"size:16;not null;index" json:"status"`
	RequestedAt time.Time     `gorm:"not null;index" json:"requested_at"`
	ConfirmedBy *string       `gorm:"size:64" json:"confirmed_by"`
	ConfirmedAt *time.Time    `json:"confirmed_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
