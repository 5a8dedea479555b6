package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/testseries-api/internal/database"
	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/models"
	"github.com/noah-isme/testseries-api/internal/repository"
	"github.com/noah-isme/testseries-api/pkg/localstore"
)

var (
	studentS1 = Actor{ID: "S1", Name: "Asha", Role: RoleStudent}
	studentS2 = Actor{ID: "S2", Name: "Bikash", Role: RoleStudent}
	teacherT1 = Actor{ID: "T1", Name: "Mr. Thapa", Role: RoleTeacher}
	teacherT2 = Actor{ID: "T2", Name: "Ms. Rai", Role: RoleTeacher}
	adminA1   = Actor{ID: "A1", Name: "Admin", Role: RoleAdmin}
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.ConnectSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func pdfBytes(body string) []byte {
	return []byte("%PDF-1.4\n" + body + "\n%%EOF")
}

func newMemoryStore(t *testing.T) *localstore.Store {
	t.Helper()
	store, err := localstore.New(afero.NewMemMapFs(), "/deposit", "/api/v1", testLogger())
	require.NoError(t, err)
	return store
}

// workflowFixture wires the workflow services against one in-memory database.
type workflowFixture struct {
	db            *gorm.DB
	submissions   repository.SubmissionRepository
	files         repository.UploadRepository
	deposit       FileDeposit
	hub           EventHub
	activity      ActivityService
	notifications NotificationService
	submissionSvc SubmissionService
	grading       GradingService
	approval      ApprovalService
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	db := setupServiceDB(t)
	validate := newValidator()

	f := &workflowFixture{db: db}
	f.submissions = repository.NewSubmissionRepository(db)
	f.files = repository.NewUploadRepository(db)
	f.deposit = NewFileDeposit(newMemoryStore(t), f.files, f.submissions, 1, testLogger())
	f.hub = NewEventHub(nil, "", nil, testLogger())
	f.activity = NewActivityService(repository.NewActivityRepository(db), validate, testLogger())
	f.notifications = NewNotificationService(repository.NewNotificationRepository(db), testLogger())
	tests := repository.NewTestRepository(db)
	f.submissionSvc = NewSubmissionService(f.submissions, tests, f.deposit, f.hub, f.activity, validate, testLogger())
	f.grading = NewGradingService(f.submissions, f.deposit, f.hub, f.activity, validate, testLogger())
	f.approval = NewApprovalService(f.submissions, f.hub, f.activity, f.notifications, testLogger())

	_, err := tests.UpsertBatch(context.Background(), []models.Test{
		{ID: "T-AUDIT-1", Title: "Audit Mock Test 1", Level: "CAP-III", Subject: "Audit", AccessType: "paid"},
		{ID: "T-TAX-1", Title: "Tax Mock Test 1", Level: "CAP-III", Subject: "Tax", AccessType: "free"},
	})
	require.NoError(t, err)
	return f
}

func (f *workflowFixture) submit(t *testing.T, actor Actor, testID string) string {
	t.Helper()
	view, err := f.submissionSvc.Create(context.Background(), actor, dto.SubmissionCreateRequest{TestID: testID}, FileObject{Data: pdfBytes("answers " + uuid.NewString()), Name: "answers.pdf"})
	require.NoError(t, err)
	return view.ID
}

func (f *workflowFixture) grade(t *testing.T, id, marks string) {
	t.Helper()
	_, err := f.grading.Grade(context.Background(), teacherT1, id, dto.GradeRequest{Marks: marks}, FileObject{Data: pdfBytes("annotated " + uuid.NewString()), Name: "checked.pdf"})
	require.NoError(t, err)
}

func (f *workflowFixture) countFiles(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.StoredFile{}).Count(&count).Error)
	return count
}
