package model

import "time"

type DirectMessage struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SenderID       uint      `gorm:"not null;index" json:"sender_id"`
	ReceiverID     uint      `gorm:"not null;index" json:"receiver_id"`
	Body           string    `gorm:"type:text" json:"message"`
	AttachmentKey  string    `gorm:"size:255" json:"-"`
	AttachmentName string    `gorm:"size:255" json:"attachment_name,omitempty"`
	AttachmentSize int64     `json:"attachment_size,omitempty"`
	AttachmentType string    `gorm:"size:128" json:"attachment_type,omitempty"`
	IsRead         bool      `gorm:"not null" json:"is_read"`
	CreatedAt      time.Time `gorm:"index" json:"timestamp"`
}

func (m *DirectMessage) HasAttachment() bool {
	return m.AttachmentKey != ""
}

// InboxEntry summarises one conversation from the point of view of a user.
type InboxEntry struct {
	UserID      uint      `json:"user_id"`
	Username    string    `json:"username"`
	Role        Role      `json:"role"`
	LastMessage string    `json:"last_message"`
	Timestamp   time.Time `json:"timestamp"`
	UnreadCount int       `json:"unread_count"`
}
