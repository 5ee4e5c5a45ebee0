package storage_test

import (
	"testing"
	"time"

	"snackbox/backend/internal/models"
	"snackbox/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setup in-memory DB; redis stays nil.
func setupStorage(t *testing.T) *storage.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	s := storage.NewService(db, nil)
	if err := s.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return s
}

func seedUser(t *testing.T, s *storage.Service, username string, universityID uint) *models.User {
	t.Helper()
	user := &models.User{Username: username, UniversityID: universityID}
	require.NoError(t, s.DB.Create(user).Error)
	return user
}

func waitingRequest(t *testing.T, s *storage.Service, userID uint) *models.SnackRequest {
	t.Helper()
	req := &models.SnackRequest{
		CreatedBy: userID,
		SnackType: models.SnackStudy,
		Duration:  15,
		Tags:      []string{"math"},
	}
	require.NoError(t, s.CreateRequest(req))
	return req
}

// TestWaitingRequestForUser verifies only the waiting request is surfaced.
func TestWaitingRequestForUser(t *testing.T) {
	s := setupStorage(t)
	alice := seedUser(t, s, "alice", 1)

	got, err := s.WaitingRequestForUser(alice.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	req := waitingRequest(t, s, alice.ID)
	got, err = s.WaitingRequestForUser(alice.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, req.ID, got.ID)
	assert.Equal(t, []string{"math"}, got.Tags)

	require.NoError(t, s.CancelRequest(req.ID, alice.ID))
	got, err = s.WaitingRequestForUser(alice.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

// TestCancelRequestErrors distinguishes unknown/foreign requests from ones
// that already left the waiting pool.
func TestCancelRequestErrors(t *testing.T) {
	s := setupStorage(t)
	alice := seedUser(t, s, "alice", 1)
	bob := seedUser(t, s, "bob", 1)

	req := waitingRequest(t, s, alice.ID)

	assert.ErrorIs(t, s.CancelRequest(9999, alice.ID), storage.ErrNotFound)
	assert.ErrorIs(t, s.CancelRequest(req.ID, bob.ID), storage.ErrNotFound)

	require.NoError(t, s.DB.Model(req).Update("status", models.RequestMatched).Error)
	assert.ErrorIs(t, s.CancelRequest(req.ID, alice.ID), storage.ErrConflict)
}

// TestCreateMatchedSessionAtomicity verifies the waiting -> matched
// transition is all-or-nothing: if either request already left the pool the
// whole pairing rolls back.
func TestCreateMatchedSessionAtomicity(t *testing.T) {
	s := setupStorage(t)
	alice := seedUser(t, s, "alice", 1)
	bob := seedUser(t, s, "bob", 1)

	req1 := waitingRequest(t, s, alice.ID)
	req2 := waitingRequest(t, s, bob.ID)
	require.NoError(t, s.DB.Model(req2).Update("status", models.RequestMatched).Error)

	session := &models.SnackSession{
		User1ID: alice.ID, User2ID: bob.ID,
		Request1ID: req1.ID, Request2ID: req2.ID,
		SnackType: models.SnackStudy, Duration: 15,
		StartedAt: time.Now(), ExpiresAt: time.Now().Add(15 * time.Minute),
		Status: models.SessionActive,
	}
	err := s.CreateMatchedSession(req1, req2, session)
	assert.ErrorIs(t, err, storage.ErrConflict)

	// Nothing was committed: req1 is still waiting and no session exists.
	fresh, err := s.GetRequestByID(req1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestWaiting, fresh.Status)

	var count int64
	require.NoError(t, s.DB.Model(&models.SnackSession{}).Count(&count).Error)
	assert.Zero(t, count)
}

// TestWaitingCandidatesOrdering verifies the pool comes back newest first.
func TestWaitingCandidatesOrdering(t *testing.T) {
	s := setupStorage(t)
	alice := seedUser(t, s, "alice", 1)
	bob := seedUser(t, s, "bob", 1)
	carol := seedUser(t, s, "carol", 1)

	mine := waitingRequest(t, s, alice.ID)
	older := waitingRequest(t, s, bob.ID)
	require.NoError(t, s.DB.Model(older).Update("created_at", time.Now().Add(-time.Hour)).Error)
	newer := waitingRequest(t, s, carol.ID)

	candidates, err := s.WaitingCandidates(models.SnackStudy, mine.ID, 1, []uint{alice.ID})
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, newer.ID, candidates[0].ID)
	assert.Equal(t, older.ID, candidates[1].ID)
}

// TestExclusionSet verifies self, blocks in both directions and filed
// reports all land in the set exactly once.
func TestExclusionSet(t *testing.T) {
	s := setupStorage(t)
	alice := seedUser(t, s, "alice", 1)
	bob := seedUser(t, s, "bob", 1)
	carol := seedUser(t, s, "carol", 1)
	dave := seedUser(t, s, "dave", 1)

	require.NoError(t, s.CreateBlock(alice.ID, bob.ID))   // alice blocked bob
	require.NoError(t, s.CreateBlock(carol.ID, alice.ID)) // carol blocked alice
	require.NoError(t, s.CreateReport(&models.SnackReport{
		ReporterID: alice.ID, ReportedID: dave.ID, Reason: "spam",
	}))
	// Duplicate paths must not duplicate entries.
	require.NoError(t, s.CreateReport(&models.SnackReport{
		ReporterID: alice.ID, ReportedID: bob.ID, Reason: "spam",
	}))

	excluded, err := s.ExclusionSet(alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{alice.ID, bob.ID, carol.ID, dave.ID}, excluded)
}

// TestCreateBlockIdempotent verifies repeat blocks do not error or multiply.
func TestCreateBlockIdempotent(t *testing.T) {
	s := setupStorage(t)
	alice := seedUser(t, s, "alice", 1)
	bob := seedUser(t, s, "bob", 1)

	require.NoError(t, s.CreateBlock(alice.ID, bob.ID))
	require.NoError(t, s.CreateBlock(alice.ID, bob.ID))

	var count int64
	require.NoError(t, s.DB.Model(&models.SnackBlock{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

// TestDistinctReporterCount verifies the suspension counter collapses
// repeat reports from the same reporter and respects the window.
func TestDistinctReporterCount(t *testing.T) {
	s := setupStorage(t)
	target := seedUser(t, s, "target", 1)
	r1 := seedUser(t, s, "r1", 1)
	r2 := seedUser(t, s, "r2", 1)
	r3 := seedUser(t, s, "r3", 1)

	for _, reporter := range []uint{r1.ID, r1.ID, r2.ID} {
		require.NoError(t, s.CreateReport(&models.SnackReport{
			ReporterID: reporter, ReportedID: target.ID, Reason: "spam",
		}))
	}
	// An old report outside the window.
	old := &models.SnackReport{ReporterID: r3.ID, ReportedID: target.ID, Reason: "spam"}
	require.NoError(t, s.CreateReport(old))
	require.NoError(t, s.DB.Model(old).Update("created_at", time.Now().Add(-30*24*time.Hour)).Error)

	count, err := s.DistinctReporterCount(target.ID, time.Now().Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}
