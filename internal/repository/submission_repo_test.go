package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/testseries-api/internal/models"
)

func seedSubmission(t *testing.T, repo SubmissionRepository, studentID string, submittedAt time.Time) models.Submission {
	t.Helper()
	submission := models.Submission{
		ID:             uuid.NewString(),
		StudentID:      studentID,
		TestID:         "audit-1",
		TestTitle:      "Audit Mock Test 1",
		SubmittedAt:    submittedAt,
		AnswerSheetURL: "https://files.test/" + uuid.NewString() + ".pdf",
		Status:         models.SubmissionStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), &submission))
	return submission
}

func TestSubmissionRepositoryListOrdersNewestFirst(t *testing.T) {
	repo := NewSubmissionRepository(setupTestDB(t))
	now := time.Now().UTC()

	older := seedSubmission(t, repo, "9990001111", now.Add(-2*time.Hour))
	newer := seedSubmission(t, repo, "9990001111", now.Add(-time.Hour))
	seedSubmission(t, repo, "9990002222", now)

	items, err := repo.List(context.Background(), SubmissionFilter{StudentID: strPtr("9990001111")})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, newer.ID, items[0].ID)
	require.Equal(t, older.ID, items[1].ID)

	pending := models.SubmissionStatusPending
	queue, err := repo.List(context.Background(), SubmissionFilter{Status: &pending})
	require.NoError(t, err)
	require.Len(t, queue, 3)
	require.Equal(t, "9990002222", queue[0].StudentID)
}

func TestSubmissionRepositoryTransitionAppliesPatch(t *testing.T) {
	repo := NewSubmissionRepository(setupTestDB(t))
	created := seedSubmission(t, repo, "s1", time.Now().UTC())

	evaluatedAt := time.Now().UTC()
	updated, err := repo.Transition(context.Background(), created.ID, models.SubmissionStatusPending, models.SubmissionStatusReview, SubmissionPatch{
		Marks:             strPtr("72/100"),
		EvaluatedSheetURL: strPtr("https://files.test/graded.pdf"),
		EvaluatorID:       strPtr("t1"),
		EvaluatorName:     strPtr("T1"),
		EvaluatedAt:       &evaluatedAt,
	})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusReview, updated.Status)
	require.Equal(t, "72/100", *updated.Marks)
	require.Equal(t, "T1", *updated.EvaluatorName)
	require.Equal(t, created.AnswerSheetURL, updated.AnswerSheetURL)
	require.WithinDuration(t, created.SubmittedAt, updated.SubmittedAt, time.Second)
}

func TestSubmissionRepositoryTransitionConflictAndNotFound(t *testing.T) {
	repo := NewSubmissionRepository(setupTestDB(t))
	created := seedSubmission(t, repo, "s1", time.Now().UTC())

	_, err := repo.Transition(context.Background(), created.ID, models.SubmissionStatusReview, models.SubmissionStatusEvaluated, SubmissionPatch{})
	require.ErrorIs(t, err, ErrStatusConflict)

	stored, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusPending, stored.Status)

	_, err = repo.Transition(context.Background(), "missing", models.SubmissionStatusPending, models.SubmissionStatusReview, SubmissionPatch{})
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestSubmissionRepositoryConcurrentTransitionHasSingleWinner(t *testing.T) {
	repo := NewSubmissionRepository(setupTestDB(t))
	created := seedSubmission(t, repo, "s1", time.Now().UTC())

	graders := []string{"t1", "t2"}
	errs := make([]error, len(graders))

	var wg sync.WaitGroup
	for i, grader := range graders {
		wg.Add(1)
		go func(i int, grader string) {
			defer wg.Done()
			_, errs[i] = repo.Transition(context.Background(), created.ID, models.SubmissionStatusPending, models.SubmissionStatusReview, SubmissionPatch{
				Marks:             strPtr("50/100"),
				EvaluatedSheetURL: strPtr("https://files.test/" + grader + ".pdf"),
				EvaluatorID:       strPtr(grader),
				EvaluatorName:     strPtr(grader),
			})
		}(i, grader)
	}
	wg.Wait()

	winner := -1
	conflicts := 0
	for i, err := range errs {
		if err == nil {
			winner = i
			continue
		}
		require.ErrorIs(t, err, ErrStatusConflict)
		conflicts++
	}
	require.NotEqual(t, -1, winner)
	require.Equal(t, 1, conflicts)

	stored, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, graders[winner], *stored.EvaluatorID)
	require.Equal(t, "https://files.test/"+graders[winner]+".pdf", *stored.EvaluatedSheetURL)
}

func TestSubmissionRepositoryCountByStatus(t *testing.T) {
	repo := NewSubmissionRepository(setupTestDB(t))
	first := seedSubmission(t, repo, "s1", time.Now().UTC())
	seedSubmission(t, repo, "s1", time.Now().UTC())
	seedSubmission(t, repo, "s2", time.Now().UTC())

	_, err := repo.Transition(context.Background(), first.ID, models.SubmissionStatusPending, models.SubmissionStatusReview, SubmissionPatch{Marks: strPtr("1/2")})
	require.NoError(t, err)

	counts, err := repo.CountByStatus(context.Background(), "s1")
	require.NoError(t, err)
	require.Equal(t, int64(1), counts[models.SubmissionStatusPending])
	require.Equal(t, int64(1), counts[models.SubmissionStatusReview])
	require.Zero(t, counts[models.SubmissionStatusEvaluated])
}
