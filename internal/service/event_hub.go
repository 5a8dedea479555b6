package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/testseries-api/internal/models"
	"github.com/noah-isme/testseries-api/internal/observability"
)

const eventBufferSize = 32

// Entities and event types carried by ChangeEvent.
const (
	EntitySubmission = "submission"
	EntityBooking    = "booking"

	EventCreated      = "created"
	EventTransitioned = "transitioned"
)

// ChangeEvent describes one committed write to the submission or booking store.
type ChangeEvent struct {
	ID         string             `json:"id"`
	Entity     string             `json:"entity"`
	Type       string             `json:"type"`
	RecordID   string             `json:"record_id"`
	StudentID  string             `json:"student_id"`
	MentorID   string             `json:"mentor_id,omitempty"`
	FromStatus string             `json:"from_status,omitempty"`
	ToStatus   string             `json:"to_status"`
	Submission *models.Submission `json:"submission,omitempty"`
	Booking    *models.Booking    `json:"booking,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// EventFilter selects which change events a subscriber receives. Empty fields match anything.
type EventFilter struct {
	Entity    string
	Status    string
	StudentID string
	MentorID  string
}

// Matches reports whether the event passes the filter. A status filter matches both the
// state an event leaves and the state it enters, so a queue view learns about arrivals and departures.
func (f EventFilter) Matches(event ChangeEvent) bool {
	if f.Entity != "" && f.Entity != event.Entity {
		return false
	}
	if f.Status != "" && f.Status != event.FromStatus && f.Status != event.ToStatus {
		return false
	}
	if f.StudentID != "" && f.StudentID != event.StudentID {
		return false
	}
	if f.MentorID != "" && event.Entity == EntityBooking && f.MentorID != event.MentorID {
		return false
	}
	return true
}

// EventPublisher is the write side of the hub used by workflow services.
type EventPublisher interface {
	Publish(ctx context.Context, event ChangeEvent)
}

// EventHub fans committed store changes out to subscribers on this node and, through
// Redis and NATS, to subscribers on other nodes.
type EventHub interface {
	EventPublisher
	Subscribe(filter EventFilter) (<-chan ChangeEvent, func())
	Start(ctx context.Context)
}

type eventHub struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	broker       *eventBroker
	seen         *recentEvents
	nodeID       string
}

// recentEvents remembers the last few remote event ids so an event relayed by both
// Redis and NATS is delivered once.
type recentEvents struct {
	mu    sync.Mutex
	ids   map[string]struct{}
	order []string
	size  int
}

type eventEnvelope struct {
	Source string      `json:"source"`
	Event  ChangeEvent `json:"event"`
}

type eventBroker struct {
	mu          sync.RWMutex
	subscribers map[chan ChangeEvent]EventFilter
}

// NewEventHub constructs the change event hub. Redis and NATS are optional.
func NewEventHub(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) EventHub {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":changes"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".changes"
	}

	return &eventHub{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "event_hub").Logger(),
		broker: &eventBroker{
			subscribers: make(map[chan ChangeEvent]EventFilter),
		},
		seen:   &recentEvents{ids: make(map[string]struct{}), size: 512},
		nodeID: uuid.NewString(),
	}
}

func (h *eventHub) Start(ctx context.Context) {
	if h.redis != nil && h.redisChannel != "" {
		go h.consumeRedis(ctx)
	}
	if h.nats != nil && h.natsSubject != "" {
		go h.consumeNATS(ctx)
	}
}

func (h *eventHub) Publish(ctx context.Context, event ChangeEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	h.deliver(event)
	observability.ChangeEventsPublished().WithLabelValues(event.Entity, event.Type).Inc()

	if err := h.forward(ctx, event); err != nil {
		h.logger.Warn().Err(err).Str("event_id", event.ID).Msg("failed to forward change event to broker")
	}
}

func (h *eventHub) Subscribe(filter EventFilter) (<-chan ChangeEvent, func()) {
	channel := make(chan ChangeEvent, eventBufferSize)
	h.broker.subscribe(channel, filter)

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.broker.unsubscribe(channel)
		})
	}

	return channel, cleanup
}

func (h *eventHub) forward(ctx context.Context, event ChangeEvent) error {
	if (h.redis == nil || h.redisChannel == "") && (h.nats == nil || h.natsSubject == "") {
		return nil
	}

	payload, err := json.Marshal(eventEnvelope{Source: h.nodeID, Event: event})
	if err != nil {
		return err
	}

	var errs []error
	if h.redis != nil && h.redisChannel != "" {
		if err := h.redis.Publish(ctx, h.redisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}

	if h.nats != nil && h.natsSubject != "" {
		if err := h.nats.Publish(h.natsSubject, payload); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (h *eventHub) consumeRedis(ctx context.Context) {
	pubsub := h.redis.Subscribe(ctx, h.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			h.logger.Error().Err(err).Msg("change event redis subscription closed")
			return
		}
		h.handleRemote([]byte(msg.Payload))
	}
}

func (h *eventHub) consumeNATS(ctx context.Context) {
	// Every node needs every event, so this is a plain subscription rather than a queue group.
	sub, err := h.nats.Subscribe(h.natsSubject, func(msg *nats.Msg) {
		h.handleRemote(msg.Data)
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to subscribe to nats change subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			h.logger.Warn().Err(err).Msg("failed to drain change event nats subscription")
		}
	}()
}

func (h *eventHub) handleRemote(payload []byte) {
	var envelope eventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		h.logger.Warn().Err(err).Msg("invalid change event payload")
		return
	}

	if envelope.Source == h.nodeID || h.seen.seenBefore(envelope.Event.ID) {
		return
	}

	h.deliver(envelope.Event)
}

func (h *eventHub) deliver(event ChangeEvent) {
	dropped := h.broker.broadcast(event)
	if dropped == 0 {
		return
	}
	observability.ChangeEventsDropped().WithLabelValues(event.Entity).Add(float64(dropped))
	h.logger.Warn().
		Str("event_id", event.ID).
		Str("entity", event.Entity).
		Str("student_id", event.StudentID).
		Int("dropped", dropped).
		Msg("subscriber buffer full, change event dropped")
}

func (b *eventBroker) subscribe(ch chan ChangeEvent, filter EventFilter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[ch] = filter
}

func (b *eventBroker) unsubscribe(ch chan ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

// broadcast delivers without blocking and returns how many subscribers missed the event.
func (b *eventBroker) broadcast(event ChangeEvent) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	dropped := 0
	for ch, filter := range b.subscribers {
		if !filter.Matches(event) {
			continue
		}
		select {
		case ch <- event:
		default:
			// Slow consumer; it will resynchronise from the list endpoints.
			dropped++
		}
	}
	return dropped
}

func (r *recentEvents) seenBefore(id string) bool {
	if id == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[id]; ok {
		return true
	}

	r.ids[id] = struct{}{}
	r.order = append(r.order, id)
	if len(r.order) > r.size {
		delete(r.ids, r.order[0])
		r.order = r.order[1:]
	}
	return false
}
