package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/models"
	"github.com/noah-isme/testseries-api/internal/observability"
	"github.com/noah-isme/testseries-api/internal/repository"
)

// BookingService manages mentorship session requests.
type BookingService interface {
	Create(ctx context.Context, actor Actor, req dto.BookingCreateRequest) (dto.BookingResponse, error)
	ListMine(ctx context.Context, actor Actor) ([]dto.BookingResponse, error)
	Queue(ctx context.Context, actor Actor, query dto.BookingQueueQuery) ([]dto.BookingResponse, error)
	Confirm(ctx context.Context, actor Actor, id string) (dto.BookingResponse, error)
}

type bookingService struct {
	bookings      repository.BookingRepository
	events        EventPublisher
	activity      ActivityRecorder
	notifications NotificationService
	validator     *validator.Validate
	sanitizer     *bluemonday.Policy
	logger        zerolog.Logger
	now           func() time.Time
}

// NewBookingService constructs the booking service.
func NewBookingService(repo repository.BookingRepository, events EventPublisher, activity ActivityRecorder, notifications NotificationService, validate *validator.Validate, logger zerolog.Logger) BookingService {
	return &bookingService{
		bookings:      repo,
		events:        events,
		activity:      activity,
		notifications: notifications,
		validator:     validate,
		sanitizer:     bluemonday.StrictPolicy(),
		logger:        logger.With().Str("component", "booking_service").Logger(),
		now:           time.Now,
	}
}

func (s *bookingService) Create(ctx context.Context, actor Actor, req dto.BookingCreateRequest) (dto.BookingResponse, error) {
	if err := requireRole(actor, RoleStudent); err != nil {
		return dto.BookingResponse{}, err
	}

	req.MentorID = strings.TrimSpace(req.MentorID)
	req.MentorName = strings.TrimSpace(s.sanitizer.Sanitize(req.MentorName))
	req.Date = strings.TrimSpace(req.Date)
	req.Slot = strings.TrimSpace(s.sanitizer.Sanitize(req.Slot))
	req.Reason = strings.TrimSpace(s.sanitizer.Sanitize(req.Reason))

	if err := s.validator.Struct(req); err != nil {
		return dto.BookingResponse{}, validationError(err)
	}

	booking := models.Booking{
		ID:          uuid.NewString(),
		StudentID:   actor.ID,
		MentorID:    req.MentorID,
		MentorName:  req.MentorName,
		Date:        req.Date,
		Slot:        req.Slot,
		Reason:      req.Reason,
		Status:      models.BookingStatusPending,
		RequestedAt: s.now().UTC(),
	}

	if err := s.bookings.Create(ctx, &booking); err != nil {
		return dto.BookingResponse{}, storageError("create booking", err)
	}

	s.logger.Info().Str("booking_id", booking.ID).Str("mentor_id", booking.MentorID).Msg("booking requested")

	s.events.Publish(ctx, ChangeEvent{
		Entity:    EntityBooking,
		Type:      EventCreated,
		RecordID:  booking.ID,
		StudentID: booking.StudentID,
		MentorID:  booking.MentorID,
		ToStatus:  string(booking.Status),
		Booking:   &booking,
	})
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     ActionBookingCreated,
		EntityType: EntityBooking,
		EntityID:   booking.ID,
		Metadata: map[string]interface{}{
			"mentor_id": booking.MentorID,
			"date":      booking.Date,
			"slot":      booking.Slot,
		},
	})

	return dto.NewBookingResponse(booking), nil
}

func (s *bookingService) ListMine(ctx context.Context, actor Actor) ([]dto.BookingResponse, error) {
	if err := requireRole(actor, RoleStudent); err != nil {
		return nil, err
	}

	studentID := actor.ID
	items, err := s.bookings.List(ctx, repository.BookingFilter{StudentID: &studentID})
	if err != nil {
		return nil, storageError("list bookings", err)
	}
	return dto.NewBookingResponseSlice(items), nil
}

// Queue lists bookings for staff. Teachers only see their own pending requests by default.
func (s *bookingService) Queue(ctx context.Context, actor Actor, query dto.BookingQueueQuery) ([]dto.BookingResponse, error) {
	if err := requireRole(actor, RoleTeacher, RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err)
	}

	filter := repository.BookingFilter{}
	if query.Status != "" {
		status := models.BookingStatus(query.Status)
		filter.Status = &status
	}
	if actor.Is(RoleTeacher) {
		mentorID := actor.ID
		filter.MentorID = &mentorID
		if filter.Status == nil {
			status := models.BookingStatusPending
			filter.Status = &status
		}
	}

	items, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, storageError("list bookings", err)
	}
	return dto.NewBookingResponseSlice(items), nil
}

func (s *bookingService) Confirm(ctx context.Context, actor Actor, id string) (dto.BookingResponse, error) {
	if err := requireRole(actor, RoleTeacher, RoleAdmin); err != nil {
		return dto.BookingResponse{}, err
	}

	current, err := s.bookings.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.BookingResponse{}, ErrBookingNotFound
		}
		return dto.BookingResponse{}, storageError("get booking", err)
	}
	if !canSeeBooking(actor, current) {
		return dto.BookingResponse{}, ErrForbidden
	}

	confirmedBy := actor.ID
	confirmedAt := s.now().UTC()
	updated, err := s.bookings.Transition(ctx, current.ID, models.BookingStatusPending, models.BookingStatusConfirmed, repository.BookingPatch{
		ConfirmedBy: &confirmedBy,
		ConfirmedAt: &confirmedAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			observability.TransitionConflicts().WithLabelValues(EntityBooking, string(models.BookingStatusPending), string(models.BookingStatusConfirmed)).Inc()
			return dto.BookingResponse{}, ErrBookingConflict
		case errors.Is(err, gorm.ErrRecordNotFound):
			return dto.BookingResponse{}, ErrBookingNotFound
		default:
			return dto.BookingResponse{}, storageError("confirm booking", err)
		}
	}

	observability.Transitions().WithLabelValues(EntityBooking, string(models.BookingStatusPending), string(models.BookingStatusConfirmed)).Inc()
	s.logger.Info().Str("booking_id", updated.ID).Str("confirmed_by", confirmedBy).Msg("booking confirmed")

	s.events.Publish(ctx, ChangeEvent{
		Entity:     EntityBooking,
		Type:       EventTransitioned,
		RecordID:   updated.ID,
		StudentID:  updated.StudentID,
		MentorID:   updated.MentorID,
		FromStatus: string(models.BookingStatusPending),
		ToStatus:   string(updated.Status),
		Booking:    &updated,
	})
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     ActionBookingConfirmed,
		EntityType: EntityBooking,
		EntityID:   updated.ID,
		Metadata:   map[string]interface{}{"student_id": updated.StudentID},
	})

	if s.notifications != nil {
		message := fmt.Sprintf("Your session with %s on %s (%s) is confirmed.", updated.MentorName, updated.Date, updated.Slot)
		if _, err := s.notifications.Notify(ctx, updated.StudentID, NotificationBookingConfirmed, message); err != nil {
			s.logger.Warn().Err(err).Str("booking_id", updated.ID).Msg("failed to notify student")
		}
	}

	return dto.NewBookingResponse(updated), nil
}
