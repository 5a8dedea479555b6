package contract_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/testseries-api/internal/testutil"
)

func TestSubmissionViewContractAcrossLifecycle(t *testing.T) {
	staffSchema := compileSchema(t, "submission_view.schema.json")
	studentSchema := compileSchema(t, "student_submission_view.schema.json")

	h := testutil.NewHarness(t)
	id := h.Submit(t, testutil.StudentS1, testutil.AuditTestID)

	check := func(stage string) {
		t.Helper()
		resp := h.Do(t, testutil.StudentS1, http.MethodGet, "/api/v1/student/submissions/"+id, nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, stage)
		require.NoError(t, studentSchema.Validate(envelopeData(t, readJSON(t, resp))), stage)

		resp = h.Do(t, testutil.AdminA1, http.MethodGet, "/api/v1/admin/submissions/"+id, nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, stage)
		require.NoError(t, staffSchema.Validate(envelopeData(t, readJSON(t, resp))), stage)
	}

	check("pending")
	h.Grade(t, id, "72/100")
	check("review")
	h.Approve(t, id)
	check("evaluated")
}

func TestStudentSchemaRejectsLeakedGrade(t *testing.T) {
	studentSchema := compileSchema(t, "student_submission_view.schema.json")

	h := testutil.NewHarness(t)
	id := h.Submit(t, testutil.StudentS1, testutil.AuditTestID)
	h.Grade(t, id, "72/100")

	// The staff view of a graded submission must not pass as something a student may receive.
	resp := h.Do(t, testutil.TeacherT1, http.MethodGet, "/api/v1/teacher/submissions/"+id, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Error(t, studentSchema.Validate(envelopeData(t, readJSON(t, resp))))
}

func TestQueueItemsMatchSubmissionContract(t *testing.T) {
	schema := compileSchema(t, "submission_view.schema.json")

	h := testutil.NewHarness(t)
	h.Submit(t, testutil.StudentS1, testutil.AuditTestID)
	h.Submit(t, testutil.StudentS2, testutil.TaxTestID)

	resp := h.Do(t, testutil.TeacherT1, http.MethodGet, "/api/v1/teacher/queue?status=Pending", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	items, ok := envelopeData(t, readJSON(t, resp)).([]interface{})
	require.True(t, ok)
	require.Len(t, items, 2)
	for _, item := range items {
		require.NoError(t, schema.Validate(item))
	}
}
