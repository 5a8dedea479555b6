package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/models"
	"github.com/noah-isme/testseries-api/internal/repository"
)

// Audit actions recorded by the workflow services.
const (
	ActionSubmissionCreated  = "submission.created"
	ActionSubmissionGraded   = "submission.graded"
	ActionSubmissionApproved = "submission.approved"
	ActionBookingCreated     = "booking.created"
	ActionBookingConfirmed   = "booking.confirmed"
	ActionCatalogSeeded      = "catalog.seeded"
)

// ActivityEntry captures the details required to persist an audit entry.
type ActivityEntry struct {
	Actor      Actor
	Action     string
	EntityType string
	EntityID   string
	Metadata   map[string]interface{}
}

// ActivityRecorder defines behaviour for recording activity logs.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error)
}

// ActivityService exposes methods to query and persist activity logs.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, actor Actor, req dto.ActivityListRequest) (dto.ActivityListResponse, error)
	Trail(ctx context.Context, actor Actor, entityType, entityID string) ([]dto.ActivityResponse, error)
}

type activityService struct {
	repo      repository.ActivityRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewActivityService constructs the activity log service.
func NewActivityService(repo repository.ActivityRepository, validator *validator.Validate, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:      repo,
		validator: validator,
		logger:    logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	if strings.TrimSpace(entry.Action) == "" {
		return dto.ActivityResponse{}, validationError(fmt.Errorf("action is required"))
	}
	if strings.TrimSpace(entry.EntityType) == "" {
		return dto.ActivityResponse{}, validationError(fmt.Errorf("entity type is required"))
	}

	actorID := strings.TrimSpace(entry.Actor.ID)
	if actorID == "" {
		actorID = "system"
	}
	actorRole := normalizeRole(entry.Actor.Role)
	if actorRole == "" {
		actorRole = "system"
	}

	model := models.AuditEntry{
		ActorID:    actorID,
		ActorRole:  actorRole,
		Action:     strings.ToLower(strings.TrimSpace(entry.Action)),
		EntityType: strings.ToLower(strings.TrimSpace(entry.EntityType)),
		EntityID:   strings.TrimSpace(entry.EntityID),
		Metadata:   sanitizeMetadata(entry.Metadata),
	}

	if err := s.repo.Append(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("action", model.Action).Msg("failed to persist activity log")
		return dto.ActivityResponse{}, storageError("record activity", err)
	}

	return dto.NewActivityResponse(model), nil
}

func (s *activityService) List(ctx context.Context, actor Actor, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	if err := requireRole(actor, RoleAdmin); err != nil {
		return dto.ActivityListResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.ActivityListResponse{}, validationError(err)
	}

	from, err := parseWindowBound(req.From)
	if err != nil {
		return dto.ActivityListResponse{}, validationError(err)
	}
	to, err := parseWindowBound(req.To)
	if err != nil {
		return dto.ActivityListResponse{}, validationError(err)
	}
	if from != nil && to != nil && !from.Before(*to) {
		return dto.ActivityListResponse{}, validationError(fmt.Errorf("from must be before to"))
	}

	if req.PageSize == 0 {
		req.PageSize = 20
	}

	entries, total, err := s.repo.List(ctx, repository.ActivityFilter{
		Page:       req.Page,
		PageSize:   req.PageSize,
		ActorID:    strings.TrimSpace(req.ActorID),
		Action:     strings.ToLower(strings.TrimSpace(req.Action)),
		EntityType: strings.ToLower(strings.TrimSpace(req.EntityType)),
		EntityID:   strings.TrimSpace(req.EntityID),
		From:       from,
		To:         to,
	})
	if err != nil {
		return dto.ActivityListResponse{}, storageError("list activity", err)
	}

	return dto.ActivityListResponse{
		Items: dto.NewActivityResponseSlice(entries),
		Pagination: dto.PaginationMeta{
			Page:       maxInt(req.Page, 1),
			PageSize:   req.PageSize,
			TotalItems: total,
		},
	}, nil
}

func (s *activityService) Trail(ctx context.Context, actor Actor, entityType, entityID string) ([]dto.ActivityResponse, error) {
	if err := requireRole(actor, RoleAdmin); err != nil {
		return nil, err
	}
	entityType = strings.ToLower(strings.TrimSpace(entityType))
	entityID = strings.TrimSpace(entityID)
	if entityType == "" || entityID == "" {
		return nil, validationError(fmt.Errorf("entity type and id are required"))
	}

	entries, err := s.repo.Trail(ctx, entityType, entityID)
	if err != nil {
		return nil, storageError("load activity trail", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s %s has no recorded activity: %w", entityType, entityID, ErrNotFound)
	}
	return dto.NewActivityResponseSlice(entries), nil
}

func parseWindowBound(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("%q is not an RFC3339 timestamp", value)
	}
	parsed = parsed.UTC()
	return &parsed, nil
}

// recordActivity writes an audit entry after a committed change. Failures are logged only;
// the change itself already happened.
func recordActivity(ctx context.Context, recorder ActivityRecorder, logger zerolog.Logger, entry ActivityEntry) {
	if recorder == nil {
		return
	}
	if _, err := recorder.Record(ctx, entry); err != nil {
		logger.Warn().Err(err).Str("action", entry.Action).Str("entity_id", entry.EntityID).Msg("failed to record activity")
	}
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	if metadata == nil {
		return datatypes.JSONMap{}
	}

	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "phone") || strings.Contains(lower, "token") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
