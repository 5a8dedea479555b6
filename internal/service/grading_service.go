package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/models"
	"github.com/noah-isme/testseries-api/internal/observability"
	"github.com/noah-isme/testseries-api/internal/repository"
)

var marksPattern = regexp.MustCompile(`^\d+(\.\d+)?/\d+(\.\d+)?$`)

// GradingService moves a pending submission into review with the teacher's marks.
type GradingService interface {
	Grade(ctx context.Context, actor Actor, id string, req dto.GradeRequest, file FileObject) (dto.SubmissionView, error)
}

type gradingService struct {
	submissions repository.SubmissionRepository
	deposit     FileDeposit
	events      EventPublisher
	activity    ActivityRecorder
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewGradingService constructs the teacher grading service.
func NewGradingService(subRepo repository.SubmissionRepository, deposit FileDeposit, events EventPublisher, activity ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) GradingService {
	return &gradingService{
		submissions: subRepo,
		deposit:     deposit,
		events:      events,
		activity:    activity,
		validator:   validate,
		logger:      logger.With().Str("component", "grading_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/testseries-api/internal/service/grading"),
		now:         time.Now,
	}
}

func (s *gradingService) Grade(ctx context.Context, actor Actor, id string, req dto.GradeRequest, file FileObject) (dto.SubmissionView, error) {
	ctx, span := s.tracer.Start(ctx, "grading.grade")
	defer span.End()
	span.SetAttributes(
		attribute.String("grading.submission_id", id),
		attribute.String("grading.actor_id", actor.ID),
	)

	if err := requireRole(actor, RoleTeacher); err != nil {
		span.SetStatus(codes.Error, "forbidden")
		return dto.SubmissionView{}, err
	}

	req.Marks = strings.TrimSpace(req.Marks)
	if err := s.validator.Struct(req); err != nil {
		span.SetStatus(codes.Error, "validation_failed")
		return dto.SubmissionView{}, validationError(err)
	}
	if _, _, err := ParseMarks(req.Marks); err != nil {
		span.SetStatus(codes.Error, "invalid_marks")
		return dto.SubmissionView{}, err
	}
	if len(file.Data) == 0 {
		span.SetStatus(codes.Error, "file_missing")
		return dto.SubmissionView{}, ErrFileRequired
	}

	current, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "submission_not_found")
			return dto.SubmissionView{}, ErrSubmissionNotFound
		}
		span.SetStatus(codes.Error, "submission_lookup_failed")
		return dto.SubmissionView{}, storageError("get submission", err)
	}
	if current.Status != models.SubmissionStatusPending {
		observability.TransitionConflicts().WithLabelValues(EntitySubmission, string(models.SubmissionStatusPending), string(models.SubmissionStatusReview)).Inc()
		span.SetStatus(codes.Error, "status_conflict")
		return dto.SubmissionView{}, ErrSubmissionConflict
	}

	file.OwnerID = actor.ID
	file.Kind = models.FileKindEvaluatedSheet
	file.SubmissionID = &current.ID

	stored, err := s.deposit.Put(ctx, file)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "deposit_failed")
		return dto.SubmissionView{}, err
	}

	evaluatorID := actor.ID
	evaluatorName := actor.DisplayName()
	evaluatedAt := s.now().UTC()
	marks := req.Marks
	sheetURL := stored.URL

	updated, err := s.submissions.Transition(ctx, current.ID, models.SubmissionStatusPending, models.SubmissionStatusReview, repository.SubmissionPatch{
		Marks:             &marks,
		EvaluatedSheetURL: &sheetURL,
		EvaluatorID:       &evaluatorID,
		EvaluatorName:     &evaluatorName,
		EvaluatedAt:       &evaluatedAt,
	})
	if err != nil {
		purgeQuietly(ctx, s.deposit, s.logger, stored.URL)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition_failed")
		return dto.SubmissionView{}, submissionTransitionError(err, models.SubmissionStatusPending, models.SubmissionStatusReview)
	}

	observability.Transitions().WithLabelValues(EntitySubmission, string(models.SubmissionStatusPending), string(models.SubmissionStatusReview)).Inc()
	s.logger.Info().
		Str("submission_id", updated.ID).
		Str("evaluator_id", evaluatorID).
		Str("marks", marks).
		Msg("submission graded")

	s.events.Publish(ctx, ChangeEvent{
		Entity:     EntitySubmission,
		Type:       EventTransitioned,
		RecordID:   updated.ID,
		StudentID:  updated.StudentID,
		FromStatus: string(models.SubmissionStatusPending),
		ToStatus:   string(updated.Status),
		Submission: &updated,
	})
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     ActionSubmissionGraded,
		EntityType: EntitySubmission,
		EntityID:   updated.ID,
		Metadata: map[string]interface{}{
			"marks":      marks,
			"student_id": updated.StudentID,
			"test_id":    updated.TestID,
		},
	})

	span.SetAttributes(attribute.String("grading.marks", marks))
	span.SetStatus(codes.Ok, "graded")

	return ProjectSubmission(actor, updated)
}

// ParseMarks splits an "<obtained>/<total>" string. The total must be positive and the
// obtained marks may not exceed it.
func ParseMarks(raw string) (float64, float64, error) {
	raw = strings.TrimSpace(raw)
	if !marksPattern.MatchString(raw) {
		return 0, 0, ErrInvalidMarks
	}

	parts := strings.SplitN(raw, "/", 2)
	obtained, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, ErrInvalidMarks
	}
	total, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, ErrInvalidMarks
	}
	if total <= 0 || obtained > total {
		return 0, 0, ErrInvalidMarks
	}
	return obtained, total, nil
}

func submissionTransitionError(err error, from, to models.SubmissionStatus) error {
	switch {
	case errors.Is(err, repository.ErrStatusConflict):
		observability.TransitionConflicts().WithLabelValues(EntitySubmission, string(from), string(to)).Inc()
		return ErrSubmissionConflict
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrSubmissionNotFound
	default:
		return storageError(fmt.Sprintf("transition submission %s->%s", from, to), err)
	}
}
