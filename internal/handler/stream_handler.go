package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/service"
	"github.com/noah-isme/testseries-api/internal/utils"
)

const (
	localStreamActor = "stream_actor"
	localStreamQuery = "stream_query"
)

// StreamHandler pushes review and booking change events over SSE and websockets.
type StreamHandler struct {
	service   service.ReviewStreamService
	logger    zerolog.Logger
	keepAlive time.Duration
}

// NewStreamHandler constructs a stream handler.
func NewStreamHandler(service service.ReviewStreamService, logger zerolog.Logger, keepAlive time.Duration) *StreamHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &StreamHandler{
		service:   service,
		logger:    logger.With().Str("component", "stream_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// Register binds the SSE and websocket endpoints.
func (h *StreamHandler) Register(router fiber.Router) {
	router.Get("/stream", h.stream)

	router.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return utils.SendError(c, fiber.StatusUpgradeRequired, "websocket upgrade required")
		}
		var query dto.StreamQuery
		if err := c.QueryParser(&query); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid query")
		}
		c.Locals(localStreamActor, actorFromContext(c))
		c.Locals(localStreamQuery, query)
		return c.Next()
	})
	router.Get("/ws", websocket.New(h.serveSocket))
}

func (h *StreamHandler) stream(c *fiber.Ctx) error {
	var query dto.StreamQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query")
	}

	ctx, cancel := context.WithCancel(requestContext(c))
	events, cleanup, err := h.service.Subscribe(ctx, actorFromContext(c), query)
	if err != nil {
		cancel()
		return respondError(c, h.logger, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	logger := requestLogger(h.logger, c)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			cleanup()
			cancel()
		}()

		// Flush headers so the client sees the stream open before the first event.
		if err := writeComment(w, "connected"); err != nil {
			return
		}

		ticker := time.NewTicker(h.keepAlive)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				if err := writeChangeEvent(w, event); err != nil {
					logger.Debug().Err(err).Msg("stream client went away")
					return
				}
			case <-ticker.C:
				if err := writeComment(w, "keep-alive "+time.Now().UTC().Format(time.RFC3339)); err != nil {
					logger.Debug().Err(err).Msg("stream keepalive failed")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

func (h *StreamHandler) serveSocket(conn *websocket.Conn) {
	actor, _ := conn.Locals(localStreamActor).(service.Actor)
	query, _ := conn.Locals(localStreamQuery).(dto.StreamQuery)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, cleanup, err := h.service.Subscribe(ctx, actor, query)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, socketCloseReason(err)))
		_ = conn.Close()
		return
	}
	defer cleanup()

	if err := conn.WriteJSON(fiber.Map{"type": "connected", "role": actor.Role}); err != nil {
		return
	}

	// Reads only detect the peer closing; clients do not send anything meaningful.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	h.logger.Info().Str("actor_id", actor.ID).Str("role", actor.Role).Msg("event websocket connected")
	defer h.logger.Info().Str("actor_id", actor.ID).Msg("event websocket disconnected")

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func socketCloseReason(err error) string {
	switch {
	case errors.Is(err, service.ErrForbidden):
		return service.ErrForbidden.Error()
	case errors.Is(err, service.ErrValidation):
		return "invalid stream filter"
	default:
		return "stream unavailable"
	}
}

func writeChangeEvent(w *bufio.Writer, event dto.ChangeEventResponse) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "id: %s\nevent: %s.%s\ndata: %s\n\n", event.ID, event.Entity, event.Type, payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeComment(w *bufio.Writer, comment string) error {
	if _, err := fmt.Fprintf(w, ": %s\n\n", comment); err != nil {
		return err
	}
	return w.Flush()
}
