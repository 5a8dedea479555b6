package handler_test

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/testutil"
)

const catalogDocument = `{"tests":[{"id":"T-LAW-1","title":"Law Mock Test 1","level":"CAP-II","subject":"Law"}]}`

func seedRequest(t *testing.T, h *testutil.Harness, who testutil.Identity, token, body string) *http.Response {
	t.Helper()
	req := bytes.NewBufferString(body)
	resp := h.DoWithHeaders(t, who, http.MethodPost, "/api/v1/admin/tests/seed", req, map[string]string{
		fiber.HeaderContentType: fiber.MIMEApplicationJSON,
		"X-Seed-Token":          token,
	})
	return resp
}

func TestCatalogHandlerListAndGet(t *testing.T) {
	h := testutil.NewHarness(t)

	resp := h.Do(t, testutil.StudentS1, http.MethodGet, "/api/v1/tests?subject=Audit", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var tests []dto.TestResponse
	testutil.DecodeData(t, resp, &tests)
	require.Len(t, tests, 1)
	require.Equal(t, testutil.AuditTestTitle, tests[0].Title)

	resp = h.Do(t, testutil.TeacherT1, http.MethodGet, "/api/v1/tests/"+testutil.TaxTestID, nil, "")
	var test dto.TestResponse
	testutil.DecodeData(t, resp, &test)
	require.Equal(t, "free", test.AccessType)

	resp = h.Do(t, testutil.StudentS1, http.MethodGet, "/api/v1/tests/T-NOPE", nil, "")
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = h.Do(t, testutil.Identity{}, http.MethodGet, "/api/v1/tests", nil, "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestCatalogHandlerSeed(t *testing.T) {
	h := testutil.NewHarness(t)

	resp := seedRequest(t, h, testutil.AdminA1, testutil.SeedToken, catalogDocument)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var result dto.CatalogSeedResponse
	testutil.DecodeData(t, resp, &result)
	require.Equal(t, int64(1), result.Affected)

	resp = h.Do(t, testutil.StudentS1, http.MethodGet, "/api/v1/tests/T-LAW-1", nil, "")
	var test dto.TestResponse
	testutil.DecodeData(t, resp, &test)
	require.Equal(t, "free", test.AccessType)

	cases := []struct {
		name   string
		who    testutil.Identity
		token  string
		body   string
		status int
	}{
		{name: "wrong token", who: testutil.AdminA1, token: "nope", body: catalogDocument, status: fiber.StatusForbidden},
		{name: "teacher", who: testutil.TeacherT1, token: testutil.SeedToken, body: catalogDocument, status: fiber.StatusForbidden},
		{name: "schema violation", who: testutil.AdminA1, token: testutil.SeedToken, body: `{"tests":[{"id":"T-1"}]}`, status: fiber.StatusBadRequest},
		{name: "not json", who: testutil.AdminA1, token: testutil.SeedToken, body: `tests`, status: fiber.StatusBadRequest},
		{name: "empty", who: testutil.AdminA1, token: testutil.SeedToken, body: ``, status: fiber.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := seedRequest(t, h, tc.who, tc.token, tc.body)
			require.Equal(t, tc.status, resp.StatusCode)
			resp.Body.Close()
		})
	}
}
