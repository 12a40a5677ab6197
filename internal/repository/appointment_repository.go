package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"constitution-gpt/internal/model"
)

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	if err := r.db.WithContext(ctx).Create(appt).Error; err != nil {
		return fmt.Errorf("create appointment failed: %w", err)
	}
	return nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uint) (*model.Appointment, error) {
	var appt model.Appointment
	if err := r.db.WithContext(ctx).First(&appt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment failed: %w", err)
	}
	return &appt, nil
}

func (r *AppointmentRepository) ListByUserID(ctx context.Context, userID uint) ([]model.Appointment, error) {
	return r.list(ctx, "user_id = ?", userID)
}

func (r *AppointmentRepository) ListByLawyerID(ctx context.Context, lawyerID uint) ([]model.Appointment, error) {
	return r.list(ctx, "lawyer_id = ?", lawyerID)
}

// TransitionStatus moves the appointment from one status to another only if it
// is still in the expected state. It reports whether the row changed.
func (r *AppointmentRepository) TransitionStatus(ctx context.Context, id uint, from, to model.AppointmentStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Appointment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, fmt.Errorf("update appointment status failed: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *AppointmentRepository) list(ctx context.Context, query string, arg any) ([]model.Appointment, error) {
	var list []model.Appointment
	if err := r.db.WithContext(ctx).Where(query, arg).Order("date DESC, time_slot DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list appointments failed: %w", err)
	}
	return list, nil
}
