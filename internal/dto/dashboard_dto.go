package dto

import "time"

// StudentDashboardSummary counts a student's submissions per state.
type StudentDashboardSummary struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	InReview  int64 `json:"in_review"`
	Evaluated int64 `json:"evaluated"`
}

// StudentDashboardResponse aggregates what the student portal shows on its landing page.
type StudentDashboardResponse struct {
	Summary     StudentDashboardSummary `json:"summary"`
	Recent      []SubmissionView        `json:"recent"`
	Bookings    []BookingResponse       `json:"bookings"`
	GeneratedAt time.Time               `json:"generated_at"`
	CacheHit    bool                    `json:"cache_hit"`
}
