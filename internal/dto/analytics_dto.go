package dto

import "time"

// MarksDistribution buckets evaluated submissions by percentage score.
type MarksDistribution map[string]int64

// WeeklySubmissionPoint counts submissions received in one ISO week.
type WeeklySubmissionPoint struct {
	WeekStart   time.Time `json:"week_start"`
	Submissions int64     `json:"submissions"`
}

// ReviewAnalyticsResponse aggregates review workload metrics for administrators.
type ReviewAnalyticsResponse struct {
	PendingQueue           int64                   `json:"pending_queue"`
	ReviewQueue            int64                   `json:"review_queue"`
	Evaluated              int64                   `json:"evaluated"`
	ActiveStudents         int64                   `json:"active_students"`
	MarksDistribution      MarksDistribution       `json:"marks_distribution"`
	WeeklySubmissions      []WeeklySubmissionPoint `json:"weekly_submissions"`
	AverageTurnaroundHours float64                 `json:"average_turnaround_hours"`
	GeneratedAt            time.Time               `json:"generated_at"`
	CacheHit               bool                    `json:"cache_hit"`
}
