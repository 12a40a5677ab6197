package model

import "time"

// RefreshSession is the server-side record of an issued refresh token.
// A token is usable only while its row exists.
type RefreshSession struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"size:512;not null;uniqueIndex" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}
