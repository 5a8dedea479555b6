package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/testseries-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	StudentID *string
	TestID    *string
	Status    *models.SubmissionStatus
	Limit     int
	Offset    int
}

// SubmissionPatch carries the fields written alongside a status transition.
type SubmissionPatch struct {
	Marks             *string
	EvaluatedSheetURL *string
	EvaluatorID       *string
	EvaluatorName     *string
	EvaluatedAt       *time.Time
	ApprovedBy        *string
	ApprovedAt        *time.Time
}

func (p SubmissionPatch) columns() map[string]interface{} {
	columns := map[string]interface{}{}
	if p.Marks != nil {
		columns["marks"] = *p.Marks
	}
	if p.EvaluatedSheetURL != nil {
		columns["evaluated_sheet_url"] = *p.EvaluatedSheetURL
	}
	if p.EvaluatorID != nil {
		columns["evaluator_id"] = *p.EvaluatorID
	}
	if p.EvaluatorName != nil {
		columns["evaluator_name"] = *p.EvaluatorName
	}
	if p.EvaluatedAt != nil {
		columns["evaluated_at"] = *p.EvaluatedAt
	}
	if p.ApprovedBy != nil {
		columns["approved_by"] = *p.ApprovedBy
	}
	if p.ApprovedAt != nil {
		columns["approved_at"] = *p.ApprovedAt
	}
	return columns
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id string) (models.Submission, error)
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	Transition(ctx context.Context, id string, from, to models.SubmissionStatus, patch SubmissionPatch) (models.Submission, error)
	CountByStatus(ctx context.Context, studentID string) (map[models.SubmissionStatus]int64, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, "id = ?", id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{})

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.TestID != nil {
		query = query.Where("test_id = ?", *filter.TestID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var submissions []models.Submission
	if err := query.Order("submitted_at DESC").Order("id DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

// Transition moves a submission from one status to another in a single conditional update.
// The patch is only applied when the stored status still equals from.
func (r *submissionRepository) Transition(ctx context.Context, id string, from, to models.SubmissionStatus, patch SubmissionPatch) (models.Submission, error) {
	var updated models.Submission

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := patch.columns()
		updates["status"] = to
		updates["updated_at"] = time.Now().UTC()

		result := tx.Model(&models.Submission{}).
			Where("id = ? AND status = ?", id, from).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			var current models.Submission
			if err := tx.Select("id", "status").First(&current, "id = ?", id).Error; err != nil {
				return err
			}
			return ErrStatusConflict
		}

		return tx.First(&updated, "id = ?", id).Error
	})
	if err != nil {
		return models.Submission{}, err
	}

	return updated, nil
}

func (r *submissionRepository) CountByStatus(ctx context.Context, studentID string) (map[models.SubmissionStatus]int64, error) {
	var rows []struct {
		Status models.SubmissionStatus
		Total  int64
	}

	if err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Select("status, COUNT(*) AS total").
		Where("student_id = ?", studentID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.SubmissionStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}

	return counts, nil
}
