package handler_test

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/testseries-api/internal/handler"
	"github.com/noah-isme/testseries-api/internal/testutil"
)

func TestHealthCheckReportsProbes(t *testing.T) {
	h := testutil.NewHarness(t)

	resp := h.Do(t, testutil.Identity{}, http.MethodGet, "/api/v1/health", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, h.Config.AppName, resp.Header.Get("X-Application"))

	var payload handler.HealthResponse
	testutil.DecodeData(t, resp, &payload)
	require.Equal(t, "ok", payload.Status)
	require.Equal(t, "test", payload.Environment)
	require.Equal(t, "ok", payload.Checks["database"])
	require.Equal(t, "ok", payload.Checks["redis"])
}

func TestHealthCheckDegradesWhenRedisFails(t *testing.T) {
	h := testutil.NewHarness(t)
	h.Redis.SetError("ERR forced failure")
	t.Cleanup(func() { h.Redis.SetError("") })

	resp := h.Do(t, testutil.Identity{}, http.MethodGet, "/api/v1/health", nil, "")
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	envelope := testutil.Decode(t, resp)
	require.Equal(t, "service degraded", envelope.Message)
	require.Contains(t, string(envelope.Data), `"status":"degraded"`)
	require.Contains(t, string(envelope.Data), `"database":"ok"`)
}
