// Package lifecycle owns snack session state transitions: creation from two
// matched requests, extension, ending, ratings and the reputation update,
// plus the expiry sweep.
package lifecycle

import (
	"errors"
	"time"

	"snackbox/backend/internal/config"
	"snackbox/backend/internal/models"
	"snackbox/backend/internal/storage"

	"go.uber.org/zap"
)

// ErrInvalidRating is returned for ratings outside 1..5.
var ErrInvalidRating = errors.New("lifecycle: rating must be between 1 and 5")

// EndReasonCompleted and EndReasonExpired tag the session-ended broadcast.
const (
	EndReasonCompleted = "completed"
	EndReasonExpired   = "expired"
)

// Service drives session state transitions on top of storage.
type Service struct {
	Storage storage.Storage
}

// NewService creates a lifecycle service.
func NewService(s storage.Storage) *Service {
	return &Service{Storage: s}
}

// CreateSession builds a session from two matched requests and persists it
// atomically with the requests' waiting -> matched transition. The session
// takes the requester's own duration and the first non-nil topic.
func (l *Service) CreateSession(request, matched *models.SnackRequest) (*models.SnackSession, error) {
	now := time.Now()
	topic := request.Topic
	if topic == nil {
		topic = matched.Topic
	}
	session := &models.SnackSession{
		User1ID:    request.CreatedBy,
		User2ID:    matched.CreatedBy,
		Request1ID: request.ID,
		Request2ID: matched.ID,
		SnackType:  request.SnackType,
		Topic:      topic,
		Duration:   request.Duration,
		StartedAt:  now,
		ExpiresAt:  now.Add(time.Duration(request.Duration) * time.Minute),
		Status:     models.SessionActive,
	}
	if err := l.Storage.CreateMatchedSession(request, matched, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Extend adds the fixed increment to the session's duration and expiry.
// Either participant's call succeeds on its own; the extend-request
// notification flow is advisory only and the server enforces no mutual
// consent. Fails with ErrConflict once the session has ended.
func (l *Service) Extend(sessionID uint) (*models.SnackSession, error) {
	return l.Storage.ExtendSession(sessionID, config.ExtensionIncrement)
}

// End transitions the session to its terminal state and notifies the
// session group. Re-ending reports ErrConflict and broadcasts nothing.
func (l *Service) End(sessionID uint, reason string) (*models.SnackSession, error) {
	session, err := l.Storage.EndSession(sessionID)
	if err != nil {
		return nil, err
	}
	l.broadcastEnded(session.ID, reason)
	return session, nil
}

// EndIfExpired lazily ends a session whose wall-clock deadline has passed,
// returning the refreshed session. Used on read paths so a restarted
// process reports expired sessions correctly even between sweeps.
func (l *Service) EndIfExpired(session *models.SnackSession) (*models.SnackSession, error) {
	if session == nil || !session.Expired(time.Now()) {
		return session, nil
	}
	ended, err := l.End(session.ID, EndReasonExpired)
	if errors.Is(err, storage.ErrConflict) {
		// Someone else ended it first; reload the terminal state.
		return l.Storage.GetSessionByID(session.ID)
	}
	if err != nil {
		return nil, err
	}
	return ended, nil
}

// SubmitRating records the rater's 1..5 rating for the session. Each
// participant sets only their own side; a resubmission overwrites but never
// re-triggers the reputation update. When the pair completes, both users'
// rolling means and completed-session counts are updated inside the storage
// transaction.
func (l *Service) SubmitRating(sessionID, raterID uint, rating int) (*models.SnackSession, error) {
	if rating < config.MinRating || rating > config.MaxRating {
		return nil, ErrInvalidRating
	}
	session, finalized, err := l.Storage.SubmitRating(sessionID, raterID, rating)
	if err != nil {
		return nil, err
	}
	if finalized {
		zap.L().Info("session ratings finalized",
			zap.Uint("sessionId", session.ID),
			zap.Uint("user1", session.User1ID),
			zap.Uint("user2", session.User2ID))
	}
	return session, nil
}

// SweepExpired ends every session past its deadline and notifies the
// participants. Returns how many sessions were ended.
func (l *Service) SweepExpired(now time.Time) (int, error) {
	expired, err := l.Storage.EndExpiredSessions(now)
	if err != nil {
		return 0, err
	}
	for i := range expired {
		l.broadcastEnded(expired[i].ID, EndReasonExpired)
	}
	return len(expired), nil
}

func (l *Service) broadcastEnded(sessionID uint, reason string) {
	ev, err := models.NewEvent(models.EventSessionEnded, models.SessionEndedPayload{
		SessionID: sessionID,
		Reason:    reason,
	})
	if err != nil {
		return
	}
	if err := l.Storage.PublishBroadcast(models.Broadcast{SessionID: sessionID, Event: ev}); err != nil {
		zap.L().Warn("failed to publish session-ended",
			zap.Uint("sessionId", sessionID), zap.Error(err))
	}
}
