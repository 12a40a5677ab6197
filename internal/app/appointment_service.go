package app

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"constitution-gpt/internal/model"
)

const appointmentDateLayout = "2006-01-02"

type AppointmentStore interface {
	Create(ctx context.Context, appt *model.Appointment) error
	GetByID(ctx context.Context, id uint) (*model.Appointment, error)
	ListByUserID(ctx context.Context, userID uint) ([]model.Appointment, error)
	ListByLawyerID(ctx context.Context, lawyerID uint) ([]model.Appointment, error)
	TransitionStatus(ctx context.Context, id uint, from, to model.AppointmentStatus) (bool, error)
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uint
	Role   model.Role
}

type AppointmentService struct {
	store   AppointmentStore
	lawyers *LawyerService
	now     func() time.Time
	logger  *zap.Logger
}

type BookInput struct {
	UserID   uint
	LawyerID uint
	Date     string
	TimeSlot string
	Notes    string
}

func NewAppointmentService(store AppointmentStore, lawyers *LawyerService, now func() time.Time, logger *zap.Logger) *AppointmentService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppointmentService{store: store, lawyers: lawyers, now: now, logger: logger}
}

// Book creates a pending appointment with a verified lawyer. Date is a
// calendar day (YYYY-MM-DD) that must not be in the past.
func (s *AppointmentService) Book(ctx context.Context, input BookInput) (*model.Appointment, error) {
	if input.UserID == 0 || input.LawyerID == 0 {
		return nil, ErrInvalidInput
	}
	day, err := time.Parse(appointmentDateLayout, strings.TrimSpace(input.Date))
	if err != nil {
		return nil, invalidField("date", "must be formatted as YYYY-MM-DD")
	}
	today, _ := time.Parse(appointmentDateLayout, s.now().Format(appointmentDateLayout))
	if day.Before(today) {
		return nil, invalidField("date", "must not be in the past")
	}
	slot := strings.TrimSpace(input.TimeSlot)
	if slot == "" {
		return nil, invalidField("time_slot", "must not be empty")
	}
	if input.UserID == input.LawyerID {
		return nil, ErrForbidden
	}
	if _, err := s.lawyers.Get(ctx, input.LawyerID); err != nil {
		return nil, err
	}

	appt := &model.Appointment{
		UserID:   input.UserID,
		LawyerID: input.LawyerID,
		Date:     day.Format(appointmentDateLayout),
		TimeSlot: slot,
		Notes:    strings.TrimSpace(input.Notes),
		Status:   model.AppointmentPending,
	}
	if err := s.store.Create(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *AppointmentService) ListForUser(ctx context.Context, userID uint) ([]model.Appointment, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.store.ListByUserID(ctx, userID)
}

func (s *AppointmentService) ListForLawyer(ctx context.Context, lawyerID uint) ([]model.Appointment, error) {
	if lawyerID == 0 {
		return nil, ErrInvalidInput
	}
	return s.store.ListByLawyerID(ctx, lawyerID)
}

// UpdateStatus moves an appointment to status. The booking user may cancel a
// pending appointment; the lawyer may confirm or cancel a pending one and
// complete a confirmed one.
func (s *AppointmentService) UpdateStatus(ctx context.Context, actor Actor, id uint, status model.AppointmentStatus) (*model.Appointment, error) {
	if actor.UserID == 0 || id == 0 {
		return nil, ErrInvalidInput
	}
	if !status.Valid() {
		return nil, invalidField("status", "unknown appointment status")
	}
	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, ErrNotFound
	}

	var allowed bool
	switch {
	case actor.UserID == appt.LawyerID && actor.Role == model.RoleLawyer:
		allowed = lawyerMayMove(appt.Status, status)
	case actor.UserID == appt.UserID:
		allowed = appt.Status == model.AppointmentPending && status == model.AppointmentCancelled
	default:
		return nil, ErrNotFound
	}
	if !allowed {
		return nil, ErrForbidden
	}

	ok, err := s.store.TransitionStatus(ctx, id, appt.Status, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	s.logger.Info("appointment status changed",
		zap.Uint("appointment_id", id),
		zap.String("from", string(appt.Status)),
		zap.String("to", string(status)),
		zap.Uint("actor_id", actor.UserID),
	)
	appt.Status = status
	return appt, nil
}

func lawyerMayMove(from, to model.AppointmentStatus) bool {
	switch from {
	case model.AppointmentPending:
		return to == model.AppointmentConfirmed || to == model.AppointmentCancelled
	case model.AppointmentConfirmed:
		return to == model.AppointmentCompleted
	}
	return false
}
