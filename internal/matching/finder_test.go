package matching_test

import (
	"testing"
	"time"

	"snackbox/backend/internal/lifecycle"
	"snackbox/backend/internal/matching"
	"snackbox/backend/internal/models"
	"snackbox/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setup in-memory DB; redis stays nil, so broadcasts are skipped.
func setupFinder(t *testing.T) (*matching.Finder, *storage.Service) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	s := storage.NewService(db, nil)
	if err := s.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return matching.NewFinder(s, lifecycle.NewService(s)), s
}

func seedUser(t *testing.T, s *storage.Service, username string, universityID uint) *models.User {
	t.Helper()
	user := &models.User{Username: username, UniversityID: universityID}
	require.NoError(t, s.DB.Create(user).Error)
	return user
}

func seedRequest(t *testing.T, s *storage.Service, userID uint, req models.SnackRequest) *models.SnackRequest {
	t.Helper()
	req.CreatedBy = userID
	if req.SnackType == "" {
		req.SnackType = models.SnackStudy
	}
	if req.Duration == 0 {
		req.Duration = 30
	}
	req.Status = models.RequestWaiting
	require.NoError(t, s.DB.Create(&req).Error)
	return &req
}

// TestAttemptMatchPicksHighestScore seeds two candidates and verifies the
// one sharing tags and duration wins over the merely-present one.
func TestAttemptMatchPicksHighestScore(t *testing.T) {
	finder, s := setupFinder(t)

	alice := seedUser(t, s, "alice", 1)
	bob := seedUser(t, s, "bob", 1)
	carol := seedUser(t, s, "carol", 1)

	seedRequest(t, s, bob.ID, models.SnackRequest{Tags: []string{"golf"}, Duration: 10})
	good := seedRequest(t, s, carol.ID, models.SnackRequest{Tags: []string{"math", "coffee"}, Duration: 30})
	mine := seedRequest(t, s, alice.ID, models.SnackRequest{Tags: []string{"math", "coffee"}, Duration: 30})

	view, err := finder.AttemptMatch(mine.ID)
	require.NoError(t, err)
	require.NotNil(t, view)

	assert.True(t, view.HasParticipant(alice.ID))
	assert.True(t, view.HasParticipant(carol.ID))
	assert.Equal(t, models.SessionActive, view.Status)
	assert.Equal(t, 30, view.Duration)
	assert.WithinDuration(t, view.StartedAt.Add(30*time.Minute), view.ExpiresAt, time.Second)

	// Both requests left the waiting pool.
	for _, id := range []uint{mine.ID, good.ID} {
		req, err := s.GetRequestByID(id)
		require.NoError(t, err)
		assert.Equal(t, models.RequestMatched, req.Status)
		assert.NotNil(t, req.MatchedAt)
	}
}

// TestAttemptMatchFallsBackToNewest verifies that when no candidate clears
// the threshold, the newest waiting one is taken anyway so the requester
// still makes progress.
func TestAttemptMatchFallsBackToNewest(t *testing.T) {
	finder, s := setupFinder(t)

	alice := seedUser(t, s, "alice", 1)
	bob := seedUser(t, s, "bob", 1)
	carol := seedUser(t, s, "carol", 1)

	old := seedRequest(t, s, bob.ID, models.SnackRequest{Tags: []string{"golf"}, Duration: 10})
	require.NoError(t, s.DB.Model(old).Update("created_at", time.Now().Add(-time.Hour)).Error)
	newest := seedRequest(t, s, carol.ID, models.SnackRequest{Tags: []string{"tennis"}, Duration: 15})

	mine := seedRequest(t, s, alice.ID, models.SnackRequest{Tags: []string{"math"}, Duration: 30})

	view, err := finder.AttemptMatch(mine.ID)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.True(t, view.HasParticipant(carol.ID), "newest candidate should win the fallback")

	req, err := s.GetRequestByID(newest.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestMatched, req.Status)
}

// TestAttemptMatchEmptyPool verifies an unmatched request stays waiting and
// no error is reported.
func TestAttemptMatchEmptyPool(t *testing.T) {
	finder, s := setupFinder(t)

	alice := seedUser(t, s, "alice", 1)
	mine := seedRequest(t, s, alice.ID, models.SnackRequest{Tags: []string{"math"}})

	view, err := finder.AttemptMatch(mine.ID)
	assert.NoError(t, err)
	assert.Nil(t, view)

	req, err := s.GetRequestByID(mine.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestWaiting, req.Status)
}

// TestAttemptMatchSameUniversityOnly verifies cross-university requests are
// never paired.
func TestAttemptMatchSameUniversityOnly(t *testing.T) {
	finder, s := setupFinder(t)

	alice := seedUser(t, s, "alice", 1)
	remote := seedUser(t, s, "remote", 2)
	seedRequest(t, s, remote.ID, models.SnackRequest{Tags: []string{"math"}})

	mine := seedRequest(t, s, alice.ID, models.SnackRequest{Tags: []string{"math"}})

	view, err := finder.AttemptMatch(mine.ID)
	assert.NoError(t, err)
	assert.Nil(t, view)
}

// TestAttemptMatchSameTypeOnly verifies the pool is partitioned by snack
// type.
func TestAttemptMatchSameTypeOnly(t *testing.T) {
	finder, s := setupFinder(t)

	alice := seedUser(t, s, "alice", 1)
	bob := seedUser(t, s, "bob", 1)
	seedRequest(t, s, bob.ID, models.SnackRequest{SnackType: models.SnackChill, Tags: []string{"math"}})

	mine := seedRequest(t, s, alice.ID, models.SnackRequest{SnackType: models.SnackStudy, Tags: []string{"math"}})

	view, err := finder.AttemptMatch(mine.ID)
	assert.NoError(t, err)
	assert.Nil(t, view)
}

// TestAttemptMatchHonorsBlocks verifies a block in either direction keeps
// the pair apart.
func TestAttemptMatchHonorsBlocks(t *testing.T) {
	finder, s := setupFinder(t)

	alice := seedUser(t, s, "alice", 1)
	bob := seedUser(t, s, "bob", 1)
	require.NoError(t, s.CreateBlock(bob.ID, alice.ID)) // bob blocked alice

	seedRequest(t, s, bob.ID, models.SnackRequest{Tags: []string{"math"}})
	mine := seedRequest(t, s, alice.ID, models.SnackRequest{Tags: []string{"math"}})

	view, err := finder.AttemptMatch(mine.ID)
	assert.NoError(t, err)
	assert.Nil(t, view)
}

// TestAttemptMatchHonorsReports verifies a reporter is never re-paired with
// the user they reported.
func TestAttemptMatchHonorsReports(t *testing.T) {
	finder, s := setupFinder(t)

	alice := seedUser(t, s, "alice", 1)
	bob := seedUser(t, s, "bob", 1)
	require.NoError(t, s.CreateReport(&models.SnackReport{
		ReporterID: alice.ID,
		ReportedID: bob.ID,
		Reason:     "spam",
	}))

	seedRequest(t, s, bob.ID, models.SnackRequest{Tags: []string{"math"}})
	mine := seedRequest(t, s, alice.ID, models.SnackRequest{Tags: []string{"math"}})

	view, err := finder.AttemptMatch(mine.ID)
	assert.NoError(t, err)
	assert.Nil(t, view)
}

// TestAttemptMatchSkipsSuspended verifies suspended users never appear in
// the candidate pool.
func TestAttemptMatchSkipsSuspended(t *testing.T) {
	finder, s := setupFinder(t)

	alice := seedUser(t, s, "alice", 1)
	bob := seedUser(t, s, "bob", 1)
	require.NoError(t, s.SetUserSuspended(bob.ID, true))

	seedRequest(t, s, bob.ID, models.SnackRequest{Tags: []string{"math"}})
	mine := seedRequest(t, s, alice.ID, models.SnackRequest{Tags: []string{"math"}})

	view, err := finder.AttemptMatch(mine.ID)
	assert.NoError(t, err)
	assert.Nil(t, view)
}

// TestAttemptMatchTopicFromEitherSide verifies the session topic falls back
// to the candidate's topic when the requester set none.
func TestAttemptMatchTopicFromEitherSide(t *testing.T) {
	finder, s := setupFinder(t)

	alice := seedUser(t, s, "alice", 1)
	bob := seedUser(t, s, "bob", 1)

	topic := "group theory"
	seedRequest(t, s, bob.ID, models.SnackRequest{Tags: []string{"math"}, Topic: &topic})
	mine := seedRequest(t, s, alice.ID, models.SnackRequest{Tags: []string{"math"}})

	view, err := finder.AttemptMatch(mine.ID)
	require.NoError(t, err)
	require.NotNil(t, view)
	require.NotNil(t, view.Topic)
	assert.Equal(t, topic, *view.Topic)
}

// TestAttemptMatchAlreadyMatched verifies a request that already left the
// waiting pool is not matched again.
func TestAttemptMatchAlreadyMatched(t *testing.T) {
	finder, s := setupFinder(t)

	alice := seedUser(t, s, "alice", 1)
	mine := seedRequest(t, s, alice.ID, models.SnackRequest{Tags: []string{"math"}})
	require.NoError(t, s.DB.Model(mine).Update("status", models.RequestCancelled).Error)

	view, err := finder.AttemptMatch(mine.ID)
	assert.NoError(t, err)
	assert.Nil(t, view)
}
