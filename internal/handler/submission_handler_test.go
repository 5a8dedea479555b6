package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/testutil"
)

func TestSubmissionHandlerCreateAndRead(t *testing.T) {
	h := testutil.NewHarness(t)

	resp := h.Upload(t, testutil.StudentS1, "/api/v1/student/submissions",
		map[string]string{"test_id": testutil.AuditTestID}, "answers.pdf", testutil.PDF("my answers"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created dto.SubmissionView
	envelope := testutil.DecodeData(t, resp, &created)
	require.Equal(t, "submission received", envelope.Message)
	require.Equal(t, "S1", created.StudentID)
	require.Equal(t, testutil.AuditTestTitle, created.TestTitle)
	require.Equal(t, "Pending", created.Status)
	require.Contains(t, created.AnswerSheetURL, "/api/v1/files/")
	require.Nil(t, created.Marks)

	resp = h.Do(t, testutil.StudentS1, http.MethodGet, "/api/v1/student/submissions", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var listed []dto.SubmissionView
	envelope = testutil.DecodeData(t, resp, &listed)
	require.Len(t, listed, 1)

	var meta map[string]int
	require.NoError(t, json.Unmarshal(envelope.Meta, &meta))
	require.Equal(t, 1, meta["count"])

	resp = h.Do(t, testutil.StudentS1, http.MethodGet, "/api/v1/student/submissions/"+created.ID, nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var fetched dto.SubmissionView
	testutil.DecodeData(t, resp, &fetched)
	require.Equal(t, created.ID, fetched.ID)
}

func TestSubmissionHandlerRejectsInvalidUploads(t *testing.T) {
	h := testutil.NewHarness(t)

	cases := []struct {
		name     string
		fields   map[string]string
		fileName string
		content  []byte
		status   int
	}{
		{name: "missing file", fields: map[string]string{"test_id": testutil.AuditTestID}, status: fiber.StatusBadRequest},
		{name: "missing test id", fileName: "answers.pdf", content: testutil.PDF("x"), status: fiber.StatusBadRequest},
		{name: "unknown test", fields: map[string]string{"test_id": "T-NOPE"}, fileName: "answers.pdf", content: testutil.PDF("x"), status: fiber.StatusNotFound},
		{name: "executable", fields: map[string]string{"test_id": testutil.AuditTestID}, fileName: "answers.exe", content: []byte("MZ\x90\x00binary"), status: fiber.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := h.Upload(t, testutil.StudentS1, "/api/v1/student/submissions", tc.fields, tc.fileName, tc.content)
			require.Equal(t, tc.status, resp.StatusCode)
			envelope := testutil.Decode(t, resp)
			require.False(t, envelope.Success)
		})
	}

	require.Zero(t, h.CountFiles(t))
}

func TestSubmissionHandlerRoleAndOwnershipGates(t *testing.T) {
	h := testutil.NewHarness(t)
	id := h.Submit(t, testutil.StudentS1, testutil.AuditTestID)

	resp := h.Do(t, testutil.Identity{}, http.MethodGet, "/api/v1/student/submissions", nil, "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = h.Upload(t, testutil.TeacherT1, "/api/v1/student/submissions",
		map[string]string{"test_id": testutil.AuditTestID}, "answers.pdf", testutil.PDF("x"))
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = h.Do(t, testutil.StudentS2, http.MethodGet, "/api/v1/student/submissions/"+id, nil, "")
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Equal(t, "access denied", testutil.Decode(t, resp).Message)

	// An unknown id looks exactly like someone else's submission.
	resp = h.Do(t, testutil.StudentS2, http.MethodGet, "/api/v1/student/submissions/does-not-exist", nil, "")
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = h.Do(t, testutil.StudentS2, http.MethodGet, "/api/v1/student/submissions", nil, "")
	var listed []dto.SubmissionView
	testutil.DecodeData(t, resp, &listed)
	require.Empty(t, listed)
}
