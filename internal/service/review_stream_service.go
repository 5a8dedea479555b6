package service

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/observability"
)

// ReviewStreamService turns hub events into payloads a specific caller is allowed to see.
type ReviewStreamService interface {
	Subscribe(ctx context.Context, actor Actor, query dto.StreamQuery) (<-chan dto.ChangeEventResponse, func(), error)
}

type reviewStreamService struct {
	hub       EventHub
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewReviewStreamService constructs the stream gate on top of the event hub.
func NewReviewStreamService(hub EventHub, validate *validator.Validate, logger zerolog.Logger) ReviewStreamService {
	return &reviewStreamService{
		hub:       hub,
		validator: validate,
		logger:    logger.With().Str("component", "review_stream_service").Logger(),
	}
}

func (s *reviewStreamService) Subscribe(ctx context.Context, actor Actor, query dto.StreamQuery) (<-chan dto.ChangeEventResponse, func(), error) {
	if err := requireRole(actor, RoleStudent, RoleTeacher, RoleAdmin); err != nil {
		return nil, nil, err
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationError(err)
	}

	filter := EventFilter{Entity: query.Entity, Status: query.Status}
	switch {
	case actor.Is(RoleStudent):
		filter.StudentID = actor.ID
	case actor.Is(RoleTeacher):
		filter.MentorID = actor.ID
	}

	events, unsubscribe := s.hub.Subscribe(filter)
	out := make(chan dto.ChangeEventResponse, eventBufferSize)
	done := make(chan struct{})

	observability.StreamClientsActive().Inc()
	s.logger.Debug().Str("actor_id", actor.ID).Str("role", actor.Role).Msg("stream client subscribed")

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				payload, visible := projectEvent(actor, event)
				if !visible {
					continue
				}
				select {
				case out <- payload:
				default:
					s.logger.Debug().Str("actor_id", actor.ID).Msg("dropping change event for slow stream client")
				}
			}
		}
	}()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			close(done)
			unsubscribe()
			observability.StreamClientsActive().Dec()
		})
	}

	return out, cleanup, nil
}

// projectEvent applies the same visibility rules as the read endpoints to a change event.
func projectEvent(viewer Actor, event ChangeEvent) (dto.ChangeEventResponse, bool) {
	payload := dto.ChangeEventResponse{
		ID:         event.ID,
		Entity:     event.Entity,
		Type:       event.Type,
		RecordID:   event.RecordID,
		FromStatus: event.FromStatus,
		ToStatus:   event.ToStatus,
		OccurredAt: event.OccurredAt,
	}

	switch event.Entity {
	case EntitySubmission:
		if event.Submission == nil {
			return dto.ChangeEventResponse{}, false
		}
		view, err := ProjectSubmission(viewer, *event.Submission)
		if err != nil {
			return dto.ChangeEventResponse{}, false
		}
		payload.Submission = &view
		return payload, true
	case EntityBooking:
		if event.Booking == nil || !canSeeBooking(viewer, *event.Booking) {
			return dto.ChangeEventResponse{}, false
		}
		booking := dto.NewBookingResponse(*event.Booking)
		payload.Booking = &booking
		return payload, true
	default:
		return dto.ChangeEventResponse{}, false
	}
}
