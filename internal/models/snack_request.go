package models

import "time"

// SnackType is the category of interaction a user is asking for.
type SnackType string

const (
	SnackStudy    SnackType = "study"
	SnackChill    SnackType = "chill"
	SnackDebate   SnackType = "debate"
	SnackGame     SnackType = "game"
	SnackActivity SnackType = "activity"
	SnackCampus   SnackType = "campus"
)

// RequestStatus is the lifecycle state of a snack request.
type RequestStatus string

const (
	RequestWaiting   RequestStatus = "waiting"
	RequestMatched   RequestStatus = "matched"
	RequestCancelled RequestStatus = "cancelled"
)

// SnackRequest is a user's pending ask to be paired. A user has at most one
// request in waiting status at any time; once it leaves waiting it is never
// mutated again except for MatchedAt.
type SnackRequest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedBy uint      `gorm:"not null;index" json:"createdBy"`
	SnackType SnackType `gorm:"type:text;not null;index:idx_snack_requests_pool" json:"snackType"`
	Topic     *string   `json:"topic"`
	// Duration in minutes, one of 10/15/30.
	Duration int `gorm:"not null" json:"duration"`
	// Tags are stored as a JSON text column so the same model works on
	// postgres in production and sqlite in tests.
	Tags     []string      `gorm:"serializer:json;type:text" json:"tags"`
	Location *string       `json:"location"`
	Status   RequestStatus `gorm:"type:text;not null;default:'waiting';index:idx_snack_requests_pool" json:"status"`

	CreatedAt time.Time  `json:"createdAt"`
	MatchedAt *time.Time `json:"matchedAt"`
}

// ValidSnackType reports whether t is one of the enumerated categories.
func ValidSnackType(t SnackType) bool {
	switch t {
	case SnackStudy, SnackChill, SnackDebate, SnackGame, SnackActivity, SnackCampus:
		return true
	}
	return false
}
