package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/models"
	"github.com/noah-isme/testseries-api/internal/repository"
)

// SubmissionService orchestrates answer sheet submissions and the staff queues.
type SubmissionService interface {
	Create(ctx context.Context, actor Actor, req dto.SubmissionCreateRequest, file FileObject) (dto.SubmissionView, error)
	ListMine(ctx context.Context, actor Actor) ([]dto.SubmissionView, error)
	Queue(ctx context.Context, actor Actor, query dto.SubmissionQueueQuery) ([]dto.SubmissionView, error)
	Get(ctx context.Context, actor Actor, id string) (dto.SubmissionView, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	tests       repository.TestRepository
	deposit     FileDeposit
	events      EventPublisher
	activity    ActivityRecorder
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(subRepo repository.SubmissionRepository, testRepo repository.TestRepository, deposit FileDeposit, events EventPublisher, activity ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: subRepo,
		tests:       testRepo,
		deposit:     deposit,
		events:      events,
		activity:    activity,
		validator:   validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) Create(ctx context.Context, actor Actor, req dto.SubmissionCreateRequest, file FileObject) (dto.SubmissionView, error) {
	if strings.TrimSpace(actor.ID) == "" {
		return dto.SubmissionView{}, ErrStudentRequired
	}
	if err := requireRole(actor, RoleStudent); err != nil {
		return dto.SubmissionView{}, err
	}

	req.TestID = strings.TrimSpace(req.TestID)
	if err := s.validator.Struct(req); err != nil {
		return dto.SubmissionView{}, validationError(err)
	}
	if len(file.Data) == 0 {
		return dto.SubmissionView{}, ErrFileRequired
	}

	test, err := s.tests.GetByID(ctx, req.TestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionView{}, ErrTestNotFound
		}
		return dto.SubmissionView{}, storageError("lookup test", err)
	}

	id := uuid.NewString()
	file.OwnerID = actor.ID
	file.Kind = models.FileKindAnswerSheet
	file.SubmissionID = &id

	stored, err := s.deposit.Put(ctx, file)
	if err != nil {
		return dto.SubmissionView{}, err
	}

	if err := ctx.Err(); err != nil {
		purgeQuietly(ctx, s.deposit, s.logger, stored.URL)
		return dto.SubmissionView{}, err
	}

	submission := models.Submission{
		ID:             id,
		StudentID:      actor.ID,
		TestID:         test.ID,
		TestTitle:      test.Title,
		SubmittedAt:    s.now().UTC(),
		AnswerSheetURL: stored.URL,
		Status:         models.SubmissionStatusPending,
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		purgeQuietly(ctx, s.deposit, s.logger, stored.URL)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return dto.SubmissionView{}, ctxErr
		}
		return dto.SubmissionView{}, storageError("create submission", err)
	}

	s.logger.Info().
		Str("submission_id", submission.ID).
		Str("student_id", submission.StudentID).
		Str("test_id", submission.TestID).
		Msg("answer sheet submitted")

	s.events.Publish(ctx, ChangeEvent{
		Entity:     EntitySubmission,
		Type:       EventCreated,
		RecordID:   submission.ID,
		StudentID:  submission.StudentID,
		ToStatus:   string(submission.Status),
		Submission: &submission,
	})
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     ActionSubmissionCreated,
		EntityType: EntitySubmission,
		EntityID:   submission.ID,
		Metadata: map[string]interface{}{
			"test_id":    submission.TestID,
			"test_title": submission.TestTitle,
		},
	})

	return ProjectSubmission(actor, submission)
}

func (s *submissionService) ListMine(ctx context.Context, actor Actor) ([]dto.SubmissionView, error) {
	if err := requireRole(actor, RoleStudent); err != nil {
		return nil, err
	}

	studentID := actor.ID
	items, err := s.submissions.List(ctx, repository.SubmissionFilter{StudentID: &studentID})
	if err != nil {
		return nil, storageError("list submissions", err)
	}

	return ProjectSubmissions(actor, items), nil
}

// Queue lists submissions for staff. Teachers default to the Pending queue, admins to Review.
func (s *submissionService) Queue(ctx context.Context, actor Actor, query dto.SubmissionQueueQuery) ([]dto.SubmissionView, error) {
	if err := requireRole(actor, RoleTeacher, RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err)
	}

	status := models.SubmissionStatus(query.Status)
	if status == "" {
		status = models.SubmissionStatusPending
		if actor.Is(RoleAdmin) {
			status = models.SubmissionStatusReview
		}
	}

	items, err := s.submissions.List(ctx, repository.SubmissionFilter{
		Status: &status,
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if err != nil {
		return nil, storageError("list queue", err)
	}

	return ProjectSubmissions(actor, items), nil
}

func (s *submissionService) Get(ctx context.Context, actor Actor, id string) (dto.SubmissionView, error) {
	if err := requireRole(actor, RoleStudent, RoleTeacher, RoleAdmin); err != nil {
		return dto.SubmissionView{}, err
	}

	submission, err := s.submissions.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Students get the same answer for missing and foreign ids.
			if actor.Is(RoleStudent) {
				return dto.SubmissionView{}, ErrForbidden
			}
			return dto.SubmissionView{}, ErrSubmissionNotFound
		}
		return dto.SubmissionView{}, storageError("get submission", err)
	}

	return ProjectSubmission(actor, submission)
}
