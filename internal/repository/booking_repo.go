package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/testseries-api/internal/models"
)

// BookingFilter narrows booking queries.
type BookingFilter struct {
	StudentID *string
	MentorID  *string
	Status    *models.BookingStatus
}

// BookingPatch carries the fields written alongside a booking transition.
type BookingPatch struct {
	ConfirmedBy *string
	ConfirmedAt *time.Time
}

// BookingRepository persists mentorship bookings.
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (models.Booking, error)
	List(ctx context.Context, filter BookingFilter) ([]models.Booking, error)
	Transition(ctx context.Context, id string, from, to models.BookingStatus, patch BookingPatch) (models.Booking, error)
}

type bookingRepository struct {
	db *gorm.DB
}

// NewBookingRepository constructs a GORM-backed booking repository.
func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, "id = ?", id).Error; err != nil {
		return models.Booking{}, err
	}
	return booking, nil
}

func (r *bookingRepository) List(ctx context.Context, filter BookingFilter) ([]models.Booking, error) {
	query := r.db.WithContext(ctx).Model(&models.Booking{})

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.MentorID != nil {
		query = query.Where("mentor_id = ?", *filter.MentorID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var bookings []models.Booking
	if err := query.Order("requested_at DESC").Order("id DESC").Find(&bookings).Error; err != nil {
		return nil, err
	}

	return bookings, nil
}

func (r *bookingRepository) Transition(ctx context.Context, id string, from, to models.BookingStatus, patch BookingPatch) (models.Booking, error) {
	var updated models.Booking

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
		}
		if patch.ConfirmedBy != nil {
			updates["confirmed_by"] = *patch.ConfirmedBy
		}
		if patch.ConfirmedAt != nil {
			updates["confirmed_at"] = *patch.ConfirmedAt
		}

		result := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", id, from).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			var current models.Booking
			if err := tx.Select("id", "status").First(&current, "id = ?", id).Error; err != nil {
				return err
			}
			return ErrStatusConflict
		}

		return tx.First(&updated, "id = ?", id).Error
	})
	if err != nil {
		return models.Booking{}, err
	}

	return updated, nil
}
