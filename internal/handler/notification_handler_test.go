package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/testutil"
)

func TestNotificationHandlerListAndMarkRead(t *testing.T) {
	h := testutil.NewHarness(t)
	id := h.Submit(t, testutil.StudentS1, testutil.AuditTestID)
	h.Grade(t, id, "72/100")
	h.Approve(t, id)

	resp := h.Do(t, testutil.StudentS1, http.MethodGet, "/api/v1/student/notifications", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var items []dto.NotificationResponse
	testutil.DecodeData(t, resp, &items)
	require.Len(t, items, 1)
	require.Equal(t, "result.published", items[0].Type)
	require.Contains(t, items[0].Message, testutil.AuditTestTitle)
	require.False(t, items[0].Read)

	path := fmt.Sprintf("/api/v1/student/notifications/%d/read", items[0].ID)

	// Another student cannot acknowledge it and learns nothing about it.
	resp = h.Do(t, testutil.StudentS2, http.MethodPatch, path, nil, "")
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = h.Do(t, testutil.StudentS1, http.MethodPatch, path, nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var updated dto.NotificationResponse
	testutil.DecodeData(t, resp, &updated)
	require.True(t, updated.Read)

	require.NotNil(t, updated.ReadAt)

	resp = h.Do(t, testutil.StudentS1, http.MethodGet, "/api/v1/student/notifications?unread=true", nil, "")
	envelope := testutil.DecodeData(t, resp, &items)
	require.Empty(t, items)
	var meta dto.NotificationListMeta
	require.NoError(t, json.Unmarshal(envelope.Meta, &meta))
	require.Zero(t, meta.Unread)

	resp = h.Do(t, testutil.StudentS2, http.MethodGet, "/api/v1/student/notifications", nil, "")
	testutil.DecodeData(t, resp, &items)
	require.Empty(t, items)
}

func TestNotificationHandlerRejectsBadInput(t *testing.T) {
	h := testutil.NewHarness(t)

	for _, path := range []string{
		"/api/v1/student/notifications/abc/read",
		"/api/v1/student/notifications/0/read",
	} {
		resp := h.Do(t, testutil.StudentS1, http.MethodPatch, path, nil, "")
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, path)
		resp.Body.Close()
	}

	resp := h.Do(t, testutil.StudentS1, http.MethodGet, "/api/v1/student/notifications?limit=many", nil, "")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
