package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/models"
	"github.com/noah-isme/testseries-api/internal/observability"
	"github.com/noah-isme/testseries-api/internal/repository"
)

// ApprovalService publishes reviewed grades to students.
type ApprovalService interface {
	Approve(ctx context.Context, actor Actor, id string) (dto.SubmissionView, error)
}

type approvalService struct {
	submissions   repository.SubmissionRepository
	events        EventPublisher
	activity      ActivityRecorder
	notifications NotificationService
	logger        zerolog.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

// NewApprovalService constructs the admin approval service.
func NewApprovalService(subRepo repository.SubmissionRepository, events EventPublisher, activity ActivityRecorder, notifications NotificationService, logger zerolog.Logger) ApprovalService {
	return &approvalService{
		submissions:   subRepo,
		events:        events,
		activity:      activity,
		notifications: notifications,
		logger:        logger.With().Str("component", "approval_service").Logger(),
		tracer:        otel.Tracer("github.com/noah-isme/testseries-api/internal/service/approval"),
		now:           time.Now,
	}
}

func (s *approvalService) Approve(ctx context.Context, actor Actor, id string) (dto.SubmissionView, error) {
	ctx, span := s.tracer.Start(ctx, "approval.approve")
	defer span.End()
	span.SetAttributes(
		attribute.String("approval.submission_id", id),
		attribute.String("approval.actor_id", actor.ID),
	)

	if err := requireRole(actor, RoleAdmin); err != nil {
		span.SetStatus(codes.Error, "forbidden")
		return dto.SubmissionView{}, err
	}

	approvedBy := actor.ID
	approvedAt := s.now().UTC()

	updated, err := s.submissions.Transition(ctx, strings.TrimSpace(id), models.SubmissionStatusReview, models.SubmissionStatusEvaluated, repository.SubmissionPatch{
		ApprovedBy: &approvedBy,
		ApprovedAt: &approvedAt,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition_failed")
		return dto.SubmissionView{}, submissionTransitionError(err, models.SubmissionStatusReview, models.SubmissionStatusEvaluated)
	}

	observability.Transitions().WithLabelValues(EntitySubmission, string(models.SubmissionStatusReview), string(models.SubmissionStatusEvaluated)).Inc()
	s.logger.Info().Str("submission_id", updated.ID).Str("approved_by", approvedBy).Msg("submission approved")

	s.events.Publish(ctx, ChangeEvent{
		Entity:     EntitySubmission,
		Type:       EventTransitioned,
		RecordID:   updated.ID,
		StudentID:  updated.StudentID,
		FromStatus: string(models.SubmissionStatusReview),
		ToStatus:   string(updated.Status),
		Submission: &updated,
	})
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     ActionSubmissionApproved,
		EntityType: EntitySubmission,
		EntityID:   updated.ID,
		Metadata: map[string]interface{}{
			"student_id": updated.StudentID,
			"test_id":    updated.TestID,
		},
	})

	if s.notifications != nil {
		message := fmt.Sprintf("Your result for %s has been published.", updated.TestTitle)
		if _, err := s.notifications.Notify(ctx, updated.StudentID, NotificationResultPublished, message); err != nil {
			s.logger.Warn().Err(err).Str("submission_id", updated.ID).Msg("failed to notify student")
		}
	}

	span.SetStatus(codes.Ok, "approved")
	return ProjectSubmission(actor, updated)
}
