package matching

import (
	"errors"

	"snackbox/backend/internal/config"
	"snackbox/backend/internal/lifecycle"
	"snackbox/backend/internal/models"
	"snackbox/backend/internal/storage"

	"go.uber.org/zap"
)

// Finder pairs a newly created waiting request with the best eligible
// candidate and consummates the match through the lifecycle service.
type Finder struct {
	Storage   storage.Storage
	Lifecycle *lifecycle.Service
}

// NewFinder creates a Finder.
func NewFinder(s storage.Storage, lc *lifecycle.Service) *Finder {
	return &Finder{Storage: s, Lifecycle: lc}
}

// AttemptMatch tries to pair the given request. Returns (nil, nil) when no
// eligible candidate exists — the request simply stays waiting; that is a
// normal outcome, not an error. On success the returned view carries the
// created session with both participants joined in.
func (f *Finder) AttemptMatch(requestID uint) (*models.SessionView, error) {
	request, err := f.Storage.GetRequestByID(requestID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if request.Status != models.RequestWaiting {
		return nil, nil
	}

	candidate, err := f.findBestCandidate(request)
	if err != nil || candidate == nil {
		return nil, err
	}

	session, err := f.Lifecycle.CreateSession(request, candidate)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// A concurrent match consumed one of the requests first. The
			// transaction rolled back, so this request is still waiting
			// and a later attempt can pick it up.
			zap.L().Info("match attempt lost the race",
				zap.Uint("requestId", request.ID),
				zap.Uint("candidateId", candidate.ID))
			return nil, nil
		}
		return nil, err
	}

	view, err := f.Storage.SessionView(session.ID)
	if err != nil {
		return nil, err
	}

	// Tell the counterpart they were matched; the requester learns from the
	// HTTP response. Delivery is fire-and-forget.
	if ev, err := models.NewEvent(models.EventMatched, models.MatchedPayload{Session: *view}); err == nil {
		if err := f.Storage.PublishBroadcast(models.Broadcast{
			TargetUserID: candidate.CreatedBy,
			Event:        ev,
		}); err != nil {
			zap.L().Warn("failed to publish matched event", zap.Error(err))
		}
	}

	return view, nil
}

// findBestCandidate queries the eligible waiting pool and picks a winner:
// the highest-scoring candidate if it clears the threshold, otherwise the
// newest eligible candidate so the requester still makes progress.
func (f *Finder) findBestCandidate(request *models.SnackRequest) (*models.SnackRequest, error) {
	creator, err := f.Storage.GetUserByID(request.CreatedBy)
	if err != nil {
		return nil, err
	}

	excluded, err := f.Storage.ExclusionSet(request.CreatedBy)
	if err != nil {
		return nil, err
	}

	candidates, err := f.Storage.WaitingCandidates(request.SnackType, request.ID, creator.UniversityID, excluded)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	best := &candidates[0]
	bestScore := Score(request, best)
	for i := 1; i < len(candidates); i++ {
		if s := Score(request, &candidates[i]); s > bestScore {
			best = &candidates[i]
			bestScore = s
		}
	}

	if bestScore >= config.MatchThreshold {
		return best, nil
	}
	// FIFO fallback: candidates are ordered newest first.
	return &candidates[0], nil
}
