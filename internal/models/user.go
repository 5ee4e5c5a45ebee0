package models

import (
	"math"
	"time"
)

// User carries the columns the snack subsystem reads or writes. Account
// management, profiles and the rest of the user record live in another
// service; the matcher only needs the community scope and the reputation
// aggregate.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	UniversityID uint   `gorm:"not null;index" json:"universityId"`
	// SnackScore is the rounded rolling mean of ratings received across
	// completed sessions. SnackCount is how many sessions fed into it.
	SnackScore int  `gorm:"not null;default:0" json:"snackScore"`
	SnackCount int  `gorm:"not null;default:0" json:"snackCount"`
	Suspended  bool `gorm:"not null;default:false" json:"suspended"`

	CreatedAt time.Time `json:"createdAt"`
}

// NextSnackScore folds one more rating into a user's rolling mean:
// round((score*count + rating) / (count+1)).
func NextSnackScore(score, count, rating int) int {
	total := float64(score*count + rating)
	return int(math.Round(total / float64(count+1)))
}
