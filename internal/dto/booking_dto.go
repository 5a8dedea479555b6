package dto

import (
	"time"

	"github.com/samber/lo"

	"github.com/noah-isme/testseries-api/internal/models"
)

// BookingCreateRequest is submitted by a student asking for a mentorship slot.
type BookingCreateRequest struct {
	MentorID   string `json:"mentor_id" validate:"required,max=64"`
	MentorName string `json:"mentor_name" validate:"required,max=255"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	Slot       string `json:"slot" validate:"required,max=64"`
	Reason     string `json:"reason" validate:"omitempty,max=2000"`
}

// BookingQueueQuery filters staff booking listings.
type BookingQueueQuery struct {
	Status string `query:"status" validate:"omitempty,oneof=Pending Confirmed"`
}

// BookingResponse is returned to API clients.
type BookingResponse struct {
	ID          string     `json:"id"`
	StudentID   string     `json:"student_id"`
	MentorID    string     `json:"mentor_id"`
	MentorName  string     `json:"mentor_name"`
	Date        string     `json:"date"`
	Slot        string     `json:"slot"`
	Reason      string     `json:"reason"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	ConfirmedBy *string    `json:"confirmed_by,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

// NewBookingResponse converts a booking model into its DTO.
func NewBookingResponse(model models.Booking) BookingResponse {
	return BookingResponse{
		ID:          model.ID,
		StudentID:   model.StudentID,
		MentorID:    model.MentorID,
		MentorName:  model.MentorName,
		Date:        model.Date,
		Slot:        model.Slot,
		Reason:      model.Reason,
		Status:      string(model.Status),
		RequestedAt: model.RequestedAt,
		ConfirmedBy: model.ConfirmedBy,
		ConfirmedAt: model.ConfirmedAt,
	}
}

// NewBookingResponseSlice converts booking models into DTOs.
func NewBookingResponseSlice(items []models.Booking) []BookingResponse {
	return lo.Map(items, func(item models.Booking, _ int) BookingResponse {
		return NewBookingResponse(item)
	})
}
