package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestCorrelationIDPropagatesIncomingHeader(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		require.Equal(t, "abc-123", CorrelationIDFromContext(c.UserContext()))
		return c.SendString(GetCorrelationID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "abc-123", resp.Header.Get("X-Correlation-ID"))
}

func TestCorrelationIDReplacesUnsafeValues(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(GetCorrelationID(c)) })

	for _, incoming := range []string{"abc 123", "id\"quoted", strings.Repeat("a", 129)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderCorrelationID, incoming)
		resp, err := app.Test(req)
		require.NoError(t, err)
		got := resp.Header.Get(HeaderCorrelationID)
		require.NotEqual(t, incoming, got)
		require.Len(t, got, 36)
	}
}

func TestCorrelationIDGeneratesWhenMissing(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Len(t, resp.Header.Get("X-Correlation-ID"), 36)
}

func TestObservabilityLogsApiRequests(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	app := fiber.New()
	app.Use(CorrelationID())
	app.Use(Observability(logger))
	app.Get("/api/v1/teacher/queue", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusConflict)
	})
	app.Get("/metrics", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/teacher/queue", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], `"route":"/api/v1/teacher/queue"`)
	require.Contains(t, lines[0], `"status":409`)
}

func TestRateLimitKeysByUser(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(LocalUserID, c.Get("X-User"))
		return c.Next()
	})
	app.Use(RateLimit("upload", 1, time.Minute))
	app.Post("/upload", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })

	send := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/upload", nil)
		req.Header.Set("X-User", user)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	require.Equal(t, fiber.StatusCreated, send("S1"))
	require.Equal(t, fiber.StatusTooManyRequests, send("S1"))
	require.Equal(t, fiber.StatusCreated, send("S2"))
	require.Equal(t, fiber.StatusTooManyRequests, send("S2"))
}

func TestObservabilityLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)

	app := fiber.New()
	app.Use(Observability(logger))
	app.Get("/api/v1/health", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/api/v1/boom", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusServiceUnavailable, "down") })

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.NoError(t, err)
	require.Empty(t, buf.String())

	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/boom", nil))
	require.NoError(t, err)
	require.Contains(t, buf.String(), `"level":"error"`)
	require.Contains(t, buf.String(), `"status":503`)
}
