package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/testseries-api/internal/models"
)

// ActivityFilter narrows the audit trail. Zero values match everything.
type ActivityFilter struct {
	Page       int
	PageSize   int
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	From       *time.Time
	To         *time.Time
}

// ActivityRepository appends and reads audit entries. Entries are never updated.
type ActivityRepository interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	List(ctx context.Context, filter ActivityFilter) ([]models.AuditEntry, int64, error)
	Trail(ctx context.Context, entityType, entityID string) ([]models.AuditEntry, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository constructs the audit trail repository.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityRepository) List(ctx context.Context, filter ActivityFilter) ([]models.AuditEntry, int64, error) {
	scoped := r.db.WithContext(ctx).Model(&models.AuditEntry{}).Scopes(
		whereEquals("actor_id", filter.ActorID),
		whereEquals("action", filter.Action),
		whereEquals("entity_type", filter.EntityType),
		whereEquals("entity_id", filter.EntityID),
		createdWithin(filter.From, filter.To),
	)

	var total int64
	if err := scoped.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.AuditEntry
	err := scoped.Scopes(paginate(filter.Page, filter.PageSize)).
		Order("created_at DESC").Order("id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Trail returns every entry for one record in the order it happened.
func (r *activityRepository) Trail(ctx context.Context, entityType, entityID string) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC").Order("id ASC").
		Find(&entries).Error
	return entries, err
}

func whereEquals(column, value string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if value == "" {
			return db
		}
		return db.Where(column+" = ?", value)
	}
}

func createdWithin(from, to *time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if from != nil {
			db = db.Where("created_at >= ?", *from)
		}
		if to != nil {
			db = db.Where("created_at < ?", *to)
		}
		return db
	}
}

func paginate(page, size int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if size <= 0 {
			return db
		}
		if page <= 0 {
			page = 1
		}
		return db.Offset((page - 1) * size).Limit(size)
	}
}
