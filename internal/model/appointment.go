package model

import "time"

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentCompleted AppointmentStatus = "completed"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentCancelled, AppointmentCompleted:
		return true
	}
	return false
}

type Appointment struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    uint              `gorm:"not null;index" json:"user_id"`
	LawyerID  uint              `gorm:"not null;index" json:"lawyer_id"`
	Date      string            `gorm:"size:10;not null" json:"date"`
	TimeSlot  string            `gorm:"size:32;not null" json:"time_slot"`
	Notes     string            `gorm:"type:text" json:"notes"`
	Status    AppointmentStatus `gorm:"size:16;not null;index" json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LawyerID  uint      `gorm:"not null;uniqueIndex:idx_review_pair" json:"lawyer_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_review_pair" json:"user_id"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}
