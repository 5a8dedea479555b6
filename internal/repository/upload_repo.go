package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/testseries-api/internal/models"
)

// UploadRepository persists metadata about deposited files.
type UploadRepository interface {
	Create(ctx context.Context, record *models.StoredFile) error
	GetByURL(ctx context.Context, url string) (models.StoredFile, error)
	GetByKey(ctx context.Context, key string) (models.StoredFile, error)
	Delete(ctx context.Context, id uint) error
}

type uploadRepository struct {
	db *gorm.DB
}

// NewUploadRepository constructs a repository for deposited file records.
func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) Create(ctx context.Context, record *models.StoredFile) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *uploadRepository) GetByURL(ctx context.Context, url string) (models.StoredFile, error) {
	var record models.StoredFile
	if err := r.db.WithContext(ctx).First(&record, "url = ?", url).Error; err != nil {
		return models.StoredFile{}, err
	}
	return record, nil
}

func (r *uploadRepository) GetByKey(ctx context.Context, key string) (models.StoredFile, error) {
	var record models.StoredFile
	if err := r.db.WithContext(ctx).First(&record, "object_key = ?", key).Error; err != nil {
		return models.StoredFile{}, err
	}
	return record, nil
}

// Delete soft-deletes the record so later lookups report the file as purged.
func (r *uploadRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.StoredFile{}, id).Error
}
