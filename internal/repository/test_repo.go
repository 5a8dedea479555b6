package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/testseries-api/internal/models"
)

// TestFilter narrows catalog listings.
type TestFilter struct {
	Level   string
	Subject string
}

// TestRepository exposes the read-mostly test catalog.
type TestRepository interface {
	GetByID(ctx context.Context, id string) (models.Test, error)
	List(ctx context.Context, filter TestFilter) ([]models.Test, error)
	UpsertBatch(ctx context.Context, items []models.Test) (int64, error)
}

type testRepository struct {
	db *gorm.DB
}

// NewTestRepository constructs the catalog repository.
func NewTestRepository(db *gorm.DB) TestRepository {
	return &testRepository{db: db}
}

func (r *testRepository) GetByID(ctx context.Context, id string) (models.Test, error) {
	var test models.Test
	if err := r.db.WithContext(ctx).First(&test, "id = ?", id).Error; err != nil {
		return models.Test{}, err
	}
	return test, nil
}

func (r *testRepository) List(ctx context.Context, filter TestFilter) ([]models.Test, error) {
	query := r.db.WithContext(ctx).Model(&models.Test{})
	if filter.Level != "" {
		query = query.Where("level = ?", filter.Level)
	}
	if filter.Subject != "" {
		query = query.Where("subject = ?", filter.Subject)
	}

	var tests []models.Test
	if err := query.Order("level ASC").Order("title ASC").Find(&tests).Error; err != nil {
		return nil, err
	}
	return tests, nil
}

func (r *testRepository) UpsertBatch(ctx context.Context, items []models.Test) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "level", "subject", "access_type", "pdf_link", "updated_at"}),
	})

	result := tx.Create(&items)
	return result.RowsAffected, result.Error
}
