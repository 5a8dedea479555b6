package dto

import "time"

// StreamQuery narrows a change-event subscription.
type StreamQuery struct {
	Entity string `query:"entity" validate:"omitempty,oneof=submission booking"`
	Status string `query:"status" validate:"omitempty,oneof=Pending Review Evaluated Confirmed"`
}

// ChangeEventResponse is the payload delivered to stream subscribers.
type ChangeEventResponse struct {
	ID         string           `json:"id"`
	Entity     string           `json:"entity"`
	Type       string           `json:"type"`
	RecordID   string           `json:"record_id"`
	FromStatus string           `json:"from_status,omitempty"`
	ToStatus   string           `json:"to_status"`
	OccurredAt time.Time        `json:"occurred_at"`
	Submission *SubmissionView  `json:"submission,omitempty"`
	Booking    *BookingResponse `json:"booking,omitempty"`
}
