package model

import "time"

type ChatExchange struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	Message      string    `gorm:"type:text;not null" json:"message"`
	Response     string    `gorm:"type:text;not null" json:"response"`
	ContextCount int       `gorm:"not null;default:0" json:"context_count"`
	CreatedAt    time.Time `gorm:"index" json:"timestamp"`
}

// HistorySnapshot is a user's newest exchanges as read with Limit. A snapshot
// holding fewer than Limit exchanges is the user's complete history.
type HistorySnapshot struct {
	Limit     int            `json:"limit"`
	Exchanges []ChatExchange `json:"exchanges"`
}

// Covers reports whether the snapshot can answer a request for limit exchanges.
func (s HistorySnapshot) Covers(limit int) bool {
	return limit <= s.Limit || len(s.Exchanges) < s.Limit
}

// Newest returns at most limit exchanges from the snapshot.
func (s HistorySnapshot) Newest(limit int) []ChatExchange {
	if limit < len(s.Exchanges) {
		return s.Exchanges[:limit]
	}
	return s.Exchanges
}
