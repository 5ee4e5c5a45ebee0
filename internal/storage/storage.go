// Package storage is the only layer that touches postgres and redis. It
// exposes an interface so services and the realtime gateway can be tested
// against mocks or an in-memory database.
package storage

import (
	"context"
	"errors"
	"time"

	"snackbox/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Sentinel errors mapped to HTTP statuses / error events at the boundary.
var (
	// ErrNotFound: the row does not exist (distinct from state conflicts).
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict: the row exists but is in a state that forbids the
	// operation (already matched, already ended, not waiting anymore).
	ErrConflict = errors.New("storage: state conflict")
	// ErrNotParticipant: the acting user is not part of the session.
	ErrNotParticipant = errors.New("storage: not a session participant")
)

// Storage is everything the snack subsystem needs from persistence.
type Storage interface {
	// Users.
	GetUserByID(id uint) (*models.User, error)
	SetUserSuspended(id uint, suspended bool) error

	// Requests.
	CreateRequest(req *models.SnackRequest) error
	GetRequestByID(id uint) (*models.SnackRequest, error)
	WaitingRequestForUser(userID uint) (*models.SnackRequest, error)
	WaitingCandidates(snackType models.SnackType, excludeRequestID, universityID uint, excludedUserIDs []uint) ([]models.SnackRequest, error)
	CancelRequest(requestID, userID uint) error

	// Sessions and messages.
	CreateMatchedSession(req1, req2 *models.SnackRequest, session *models.SnackSession) error
	GetSessionByID(id uint) (*models.SnackSession, error)
	ActiveSessionForUser(userID uint) (*models.SnackSession, error)
	SessionView(id uint) (*models.SessionView, error)
	ExtendSession(id uint, extend time.Duration) (*models.SnackSession, error)
	EndSession(id uint) (*models.SnackSession, error)
	SubmitRating(sessionID, raterID uint, rating int) (*models.SnackSession, bool, error)
	EndExpiredSessions(now time.Time) ([]models.SnackSession, error)
	CreateMessage(msg *models.SnackMessage) error
	MessagesForSession(sessionID uint) ([]models.SnackMessage, error)

	// Safety registry.
	CreateBlock(blockerID, blockedID uint) error
	CreateReport(report *models.SnackReport) error
	ExclusionSet(userID uint) ([]uint, error)
	DistinctReporterCount(reportedID uint, since time.Time) (int64, error)
	ReportsAgainst(reportedID uint) ([]models.SnackReport, error)

	// Realtime fanout.
	PublishBroadcast(b models.Broadcast) error
	SubscribeBroadcasts() *redis.PubSub
}

// Service implements Storage on gorm + go-redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewService wraps live connections. redis may be nil for CLI use.
func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// Migrate creates or updates every table the subsystem owns.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(
		&models.User{},
		&models.SnackRequest{},
		&models.SnackSession{},
		&models.SnackMessage{},
		&models.SnackBlock{},
		&models.SnackReport{},
	)
}
