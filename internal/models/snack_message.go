package models

import "time"

// SnackMessage belongs to exactly one session and is immutable once created.
// Chat history order is insertion order; the realtime push is a notification,
// not the source of truth.
type SnackMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"not null;index" json:"sessionId"`
	SenderID  uint      `gorm:"not null" json:"senderId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
