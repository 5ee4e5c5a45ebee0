package models

import "time"

// SnackBlock is a directed block relationship. For matching purposes it is
// bidirectional: neither side sees the other. Inserts are idempotent.
type SnackBlock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BlockerID uint      `gorm:"not null;uniqueIndex:idx_snack_blocks_pair" json:"blockerId"`
	BlockedID uint      `gorm:"not null;uniqueIndex:idx_snack_blocks_pair" json:"blockedId"`
	CreatedAt time.Time `json:"createdAt"`
}

// SnackReport is an accusation filed by one user against another, optionally
// tied to a session. Reports are never deduplicated; repeat reports
// accumulate. The reported user is excluded from matching with the reporter
// from then on.
type SnackReport struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ReporterID  uint      `gorm:"not null;index" json:"reporterId"`
	ReportedID  uint      `gorm:"not null;index" json:"reportedId"`
	SessionID   *uint     `json:"sessionId"`
	Reason      string    `gorm:"not null" json:"reason"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}
