package models

import "time"

// SubmissionStatus enumerates the review lifecycle states of an answer sheet.
type SubmissionStatus string

const (
	// SubmissionStatusPending indicates the sheet is waiting in the teacher queue.
	SubmissionStatusPending SubmissionStatus = "Pending"
	// SubmissionStatusReview indicates a teacher graded the sheet and it awaits admin approval.
	SubmissionStatusReview SubmissionStatus = "Review"
	// SubmissionStatusEvaluated indicates the grade has been approved and published to the student.
	SubmissionStatusEvaluated SubmissionStatus = "Evaluated"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionStatusPending, SubmissionStatusReview, SubmissionStatusEvaluated:
		return true
	default:
		return false
	}
}

// Submission is one student's answer sheet for one test attempt together with its grading record.
type Submission struct {
	ID                string           `gorm:"primaryKey;size:36" json:"id"`
	StudentID         string           `gorm:"size:64;not null;index:idx_submissions_student" json:"student_id"`
	TestID            string           `gorm:"size:64;not null;index" json:"test_id"`
	TestTitle         string           `gorm:"size:255;not null" json:"test_title"`
	SubmittedAt       time.Time        `gorm:"not null;index" json:"submitted_at"`
	AnswerSheetURL    string           `gorm:"size:512;not null" json:"answer_sheet_url"`
	Status            SubmissionStatus `gorm:"size:16;not null;index" json:"status"`
	Marks             *string          `gorm:"size:32" json:"marks"`
	EvaluatedSheetURL *string          `gorm:"size:512" json:"evaluated_sheet_url"`
	EvaluatorID       *string          `gorm:"size:64" json:"evaluator_id"`
	EvaluatorName     *string          `gorm:"size:255" json:"evaluator_name"`
	EvaluatedAt       *time.Time       `json:"evaluated_at"`
	ApprovedBy        *string          `gorm:"size:64" json:"approved_by"`
	ApprovedAt        *time.Time       `json:"approved_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// IsGraded reports whether a teacher has attached marks and an annotated sheet.
func (s Submission) IsGraded() bool {
	return s.Marks != nil && s.EvaluatedSheetURL != nil && s.EvaluatorID != nil
}

// IsPublished reports whether the grade is visible to the owning student.
func (s Submission) IsPublished() bool {
	return s.Status == SubmissionStatusEvaluated
}
