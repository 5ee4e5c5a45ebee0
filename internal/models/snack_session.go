package models

import "time"

// SessionStatus is the lifecycle state of a snack session.
// active -> extended (repeatable) -> ended; active -> ended is also valid.
type SessionStatus string

const (
	SessionActive   SessionStatus = "active"
	SessionExtended SessionStatus = "extended"
	SessionEnded    SessionStatus = "ended"
)

// SnackSession is a paired, time-boxed conversation created from two matched
// requests. The participant order carries no meaning.
type SnackSession struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	User1ID    uint      `gorm:"not null;index" json:"user1Id"`
	User2ID    uint      `gorm:"not null;index" json:"user2Id"`
	Request1ID uint      `gorm:"not null" json:"requestId1"`
	Request2ID uint      `gorm:"not null" json:"requestId2"`
	SnackType  SnackType `gorm:"type:text;not null" json:"snackType"`
	Topic      *string   `json:"topic"`
	// Duration in minutes. ExpiresAt is always StartedAt plus Duration at
	// creation; each extension adds to both.
	Duration  int           `gorm:"not null" json:"duration"`
	StartedAt time.Time     `json:"startedAt"`
	ExpiresAt time.Time     `gorm:"index" json:"expiresAt"`
	Status    SessionStatus `gorm:"type:text;not null;default:'active';index" json:"status"`

	RatingUser1 *int       `json:"ratingUser1"`
	RatingUser2 *int       `json:"ratingUser2"`
	EndedAt     *time.Time `json:"endedAt"`
}

// HasParticipant reports whether userID is one of the two participants.
func (s *SnackSession) HasParticipant(userID uint) bool {
	return s.User1ID == userID || s.User2ID == userID
}

// OtherParticipant returns the counterpart of userID, or 0 if userID is not
// a participant.
func (s *SnackSession) OtherParticipant(userID uint) uint {
	switch userID {
	case s.User1ID:
		return s.User2ID
	case s.User2ID:
		return s.User1ID
	}
	return 0
}

// Expired reports whether the session's wall-clock deadline has passed.
// Computed from persisted state only, so a restarted process answers
// correctly.
func (s *SnackSession) Expired(now time.Time) bool {
	return s.Status != SessionEnded && now.After(s.ExpiresAt)
}

// SessionView is the read-side projection handed to clients: the session
// plus both participants. The user records are joined at read time, never
// stored on the session row.
type SessionView struct {
	SnackSession
	User1 User `json:"user1"`
	User2 User `json:"user2"`
}
