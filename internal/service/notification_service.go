package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/models"
	"github.com/noah-isme/testseries-api/internal/repository"
)

// Notification types.
const (
	NotificationResultPublished  = "result.published"
	NotificationBookingConfirmed = "booking.confirmed"
)

var errNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)

// NotificationService stores messages for students and lets them read them back.
type NotificationService interface {
	Notify(ctx context.Context, userID, kind, message string) (dto.NotificationResponse, error)
	List(ctx context.Context, actor Actor, query dto.NotificationQuery) ([]dto.NotificationResponse, dto.NotificationListMeta, error)
	MarkRead(ctx context.Context, actor Actor, id uint) (dto.NotificationResponse, error)
}

type notificationService struct {
	repo      repository.NotificationRepository
	logger    zerolog.Logger
	tracer    trace.Tracer
	sanitizer *bluemonday.Policy
}

// NewNotificationService constructs a notification service.
func NewNotificationService(repo repository.NotificationRepository, logger zerolog.Logger) NotificationService {
	return &notificationService{
		repo:      repo,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/testseries-api/internal/service/notification"),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *notificationService) Notify(ctx context.Context, userID, kind, message string) (dto.NotificationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "notification.notify")
	defer span.End()

	userID = strings.TrimSpace(userID)
	message = strings.TrimSpace(s.sanitizer.Sanitize(message))
	if userID == "" || message == "" {
		return dto.NotificationResponse{}, validationError(fmt.Errorf("recipient and message are required"))
	}

	span.SetAttributes(attribute.String("notification.type", kind))

	model := models.Notification{
		UserID:  userID,
		Type:    strings.TrimSpace(kind),
		Message: message,
	}
	if err := s.repo.Create(ctx, &model); err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, storageError("create notification", err)
	}

	s.logger.Debug().Str("user_id", userID).Str("type", model.Type).Msg("notification stored")
	return dto.NewNotificationResponse(model), nil
}

func (s *notificationService) List(ctx context.Context, actor Actor, query dto.NotificationQuery) ([]dto.NotificationResponse, dto.NotificationListMeta, error) {
	if err := requireRole(actor, RoleStudent, RoleTeacher, RoleAdmin); err != nil {
		return nil, dto.NotificationListMeta{}, err
	}
	if query.Limit < 0 || query.Offset < 0 {
		return nil, dto.NotificationListMeta{}, validationError(fmt.Errorf("limit and offset must not be negative"))
	}

	items, err := s.repo.List(ctx, repository.NotificationFilter{
		UserID:     actor.ID,
		UnreadOnly: query.Unread,
		Limit:      query.Limit,
		Offset:     query.Offset,
	})
	if err != nil {
		return nil, dto.NotificationListMeta{}, storageError("list notifications", err)
	}
	unread, err := s.repo.CountUnread(ctx, actor.ID)
	if err != nil {
		return nil, dto.NotificationListMeta{}, storageError("count unread notifications", err)
	}

	return dto.NewNotificationResponseSlice(items), dto.NotificationListMeta{Unread: unread, Count: len(items)}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, actor Actor, id uint) (dto.NotificationResponse, error) {
	if err := requireRole(actor, RoleStudent, RoleTeacher, RoleAdmin); err != nil {
		return dto.NotificationResponse{}, err
	}

	item, err := s.repo.MarkRead(ctx, id, actor.ID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.NotificationResponse{}, errNotificationNotFound
		}
		return dto.NotificationResponse{}, storageError("mark notification read", err)
	}
	return dto.NewNotificationResponse(item), nil
}
