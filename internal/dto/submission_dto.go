package dto

import (
	"time"

	"github.com/samber/lo"

	"github.com/noah-isme/testseries-api/internal/models"
)

// SubmissionCreateRequest describes the multipart payload for an answer sheet upload.
type SubmissionCreateRequest struct {
	TestID string `form:"test_id" validate:"required,max=64"`
}

// GradeRequest carries the teacher's marks for a pending submission.
type GradeRequest struct {
	Marks string `form:"marks" json:"marks" validate:"required,max=32"`
}

// SubmissionQueueQuery filters staff queues.
type SubmissionQueueQuery struct {
	Status string `query:"status" validate:"omitempty,oneof=Pending Review Evaluated"`
	Limit  int    `query:"limit" validate:"omitempty,gte=0,lte=200"`
	Offset int    `query:"offset" validate:"omitempty,gte=0"`
}

// SubmissionView is the representation of a submission returned to a caller.
// Grading fields are omitted when the caller may not see them.
type SubmissionView struct {
	ID                string     `json:"id"`
	StudentID         string     `json:"student_id"`
	TestID            string     `json:"test_id"`
	TestTitle         string     `json:"test_title"`
	SubmittedAt       time.Time  `json:"submitted_at"`
	AnswerSheetURL    string     `json:"answer_sheet_url"`
	Status            string     `json:"status"`
	Marks             *string    `json:"marks,omitempty"`
	EvaluatedSheetURL *string    `json:"evaluated_sheet_url,omitempty"`
	EvaluatorID       *string    `json:"evaluator_id,omitempty"`
	EvaluatorName     *string    `json:"evaluator_name,omitempty"`
	EvaluatedAt       *time.Time `json:"evaluated_at,omitempty"`
	ApprovedBy        *string    `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
}

// NewSubmissionView converts a Submission model into its full view.
func NewSubmissionView(model models.Submission) SubmissionView {
	return SubmissionView{
		ID:                model.ID,
		StudentID:         model.StudentID,
		TestID:            model.TestID,
		TestTitle:         model.TestTitle,
		SubmittedAt:       model.SubmittedAt,
		AnswerSheetURL:    model.AnswerSheetURL,
		Status:            string(model.Status),
		Marks:             model.Marks,
		EvaluatedSheetURL: model.EvaluatedSheetURL,
		EvaluatorID:       model.EvaluatorID,
		EvaluatorName:     model.EvaluatorName,
		EvaluatedAt:       model.EvaluatedAt,
		ApprovedBy:        model.ApprovedBy,
		ApprovedAt:        model.ApprovedAt,
	}
}

// NewSubmissionViewSlice converts submission models into full views.
func NewSubmissionViewSlice(items []models.Submission) []SubmissionView {
	return lo.Map(items, func(item models.Submission, _ int) SubmissionView {
		return NewSubmissionView(item)
	})
}

// WithoutGrading strips every field written by the grading transition.
func (v SubmissionView) WithoutGrading() SubmissionView {
	v.Marks = nil
	v.EvaluatedSheetURL = nil
	v.EvaluatorID = nil
	v.EvaluatorName = nil
	v.EvaluatedAt = nil
	v.ApprovedBy = nil
	v.ApprovedAt = nil
	return v
}
