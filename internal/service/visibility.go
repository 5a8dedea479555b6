package service

import (
	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/models"
)

// ProjectSubmission decides what a viewer may see of a submission.
//
// Students only ever see their own submissions, and only see grading details once an
// admin has approved them. Staff see the stored record unchanged. The check runs on the
// server for every student read path so an unapproved grade never leaves the process.
func ProjectSubmission(viewer Actor, submission models.Submission) (dto.SubmissionView, error) {
	view := dto.NewSubmissionView(submission)

	switch {
	case viewer.IsStaff():
		return view, nil
	case viewer.Is(RoleStudent):
		if viewer.ID == "" || submission.StudentID != viewer.ID {
			return dto.SubmissionView{}, ErrForbidden
		}
		if submission.Status != models.SubmissionStatusEvaluated {
			return view.WithoutGrading(), nil
		}
		// Approval metadata is internal to the staff workflow.
		view.ApprovedBy = nil
		return view, nil
	default:
		return dto.SubmissionView{}, ErrForbidden
	}
}

// ProjectSubmissions applies ProjectSubmission to a list, skipping records the viewer may not see.
func ProjectSubmissions(viewer Actor, submissions []models.Submission) []dto.SubmissionView {
	views := make([]dto.SubmissionView, 0, len(submissions))
	for _, submission := range submissions {
		view, err := ProjectSubmission(viewer, submission)
		if err != nil {
			continue
		}
		views = append(views, view)
	}
	return views
}

func canSeeBooking(viewer Actor, booking models.Booking) bool {
	switch {
	case viewer.Is(RoleAdmin):
		return true
	case viewer.Is(RoleTeacher):
		return booking.MentorID == viewer.ID
	case viewer.Is(RoleStudent):
		return booking.StudentID == viewer.ID
	default:
		return false
	}
}
