package storage

import (
	"errors"
	"time"

	"snackbox/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockForUpdate takes a row lock on dialects that support it. The sqlite
// test database serializes writes on its own and rejects FOR UPDATE.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (s *Service) GetSessionByID(id uint) (*models.SnackSession, error) {
	var session models.SnackSession
	err := s.DB.First(&session, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ActiveSessionForUser returns the user's non-ended session, or (nil, nil)
// when there is none. The one-active-session invariant means there is at
// most one.
func (s *Service) ActiveSessionForUser(userID uint) (*models.SnackSession, error) {
	var session models.SnackSession
	err := s.DB.
		Where("status <> ?", models.SessionEnded).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("started_at DESC").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// SessionView joins both participants onto the session at read time.
func (s *Service) SessionView(id uint) (*models.SessionView, error) {
	session, err := s.GetSessionByID(id)
	if err != nil {
		return nil, err
	}
	user1, err := s.GetUserByID(session.User1ID)
	if err != nil {
		return nil, err
	}
	user2, err := s.GetUserByID(session.User2ID)
	if err != nil {
		return nil, err
	}
	return &models.SessionView{SnackSession: *session, User1: *user1, User2: *user2}, nil
}

// ExtendSession advances duration and expiry by extend and marks the session
// extended. Rejects ended sessions with ErrConflict; expires_at never moves
// on failure.
func (s *Service) ExtendSession(id uint, extend time.Duration) (*models.SnackSession, error) {
	var session models.SnackSession
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&session, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if session.Status == models.SessionEnded {
			return ErrConflict
		}
		session.Duration += int(extend.Minutes())
		session.ExpiresAt = session.ExpiresAt.Add(extend)
		session.Status = models.SessionExtended
		return tx.Save(&session).Error
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// EndSession moves the session to its terminal state. Ending an already
// ended session reports ErrConflict without mutating anything.
func (s *Service) EndSession(id uint) (*models.SnackSession, error) {
	var session models.SnackSession
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&session, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if session.Status == models.SessionEnded {
			return ErrConflict
		}
		now := time.Now()
		session.Status = models.SessionEnded
		session.EndedAt = &now
		return tx.Save(&session).Error
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// SubmitRating sets the rater's side of the session rating. When this call
// completes the pair (the rater's side was empty and the other side is
// already set), both users' snack scores are recomputed from the other
// participant's rating and their completed-session counts incremented, all
// inside the same transaction under row locks so two concurrent raters
// cannot read a stale baseline. Overwrites after finalization never count
// twice. The bool result reports whether this call finalized the pair.
func (s *Service) SubmitRating(sessionID, raterID uint, rating int) (*models.SnackSession, bool, error) {
	var session models.SnackSession
	finalized := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&session, sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !session.HasParticipant(raterID) {
			return ErrNotParticipant
		}

		var mine, other **int
		if raterID == session.User1ID {
			mine, other = &session.RatingUser1, &session.RatingUser2
		} else {
			mine, other = &session.RatingUser2, &session.RatingUser1
		}
		firstSubmission := *mine == nil
		r := rating
		*mine = &r
		if err := tx.Save(&session).Error; err != nil {
			return err
		}

		if firstSubmission && *other != nil {
			finalized = true
			// Each participant's score absorbs the rating given by the
			// other side.
			if err := applyRating(tx, session.User1ID, *session.RatingUser2); err != nil {
				return err
			}
			if err := applyRating(tx, session.User2ID, *session.RatingUser1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &session, finalized, nil
}

func applyRating(tx *gorm.DB, userID uint, rating int) error {
	var user models.User
	if err := lockForUpdate(tx).First(&user, userID).Error; err != nil {
		return err
	}
	user.SnackScore = models.NextSnackScore(user.SnackScore, user.SnackCount, rating)
	user.SnackCount++
	return tx.Save(&user).Error
}

// EndExpiredSessions transitions every session whose wall-clock deadline has
// passed, returning the sessions it ended so callers can notify
// participants. Each row is ended conditionally on still being past its
// deadline; a session extended or ended by a concurrent writer between the
// scan and the update is left alone and omitted from the result.
func (s *Service) EndExpiredSessions(now time.Time) ([]models.SnackSession, error) {
	var ended []models.SnackSession
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var expired []models.SnackSession
		if err := tx.
			Where("status <> ? AND expires_at < ?", models.SessionEnded, now).
			Find(&expired).Error; err != nil {
			return err
		}
		for i := range expired {
			res := tx.Model(&models.SnackSession{}).
				Where("id = ? AND status <> ? AND expires_at < ?",
					expired[i].ID, models.SessionEnded, now).
				Updates(map[string]interface{}{
					"status":   models.SessionEnded,
					"ended_at": now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			endedAt := now
			expired[i].Status = models.SessionEnded
			expired[i].EndedAt = &endedAt
			ended = append(ended, expired[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ended, nil
}
