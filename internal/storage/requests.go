package storage

import (
	"errors"
	"time"

	"snackbox/backend/internal/models"

	"gorm.io/gorm"
)

func (s *Service) CreateRequest(req *models.SnackRequest) error {
	if req.Status == "" {
		req.Status = models.RequestWaiting
	}
	return s.DB.Create(req).Error
}

func (s *Service) GetRequestByID(id uint) (*models.SnackRequest, error) {
	var req models.SnackRequest
	err := s.DB.First(&req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// WaitingRequestForUser returns the user's request in waiting status, or
// (nil, nil) when there is none.
func (s *Service) WaitingRequestForUser(userID uint) (*models.SnackRequest, error) {
	var req models.SnackRequest
	err := s.DB.
		Where("created_by = ? AND status = ?", userID, models.RequestWaiting).
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// WaitingCandidates returns every waiting request of the same snack type
// whose creator is in the given university, is not suspended, and is not in
// the exclusion set. Newest first, which also serves as the FIFO fallback
// order.
func (s *Service) WaitingCandidates(snackType models.SnackType, excludeRequestID, universityID uint, excludedUserIDs []uint) ([]models.SnackRequest, error) {
	var candidates []models.SnackRequest
	q := s.DB.
		Joins("JOIN users ON users.id = snack_requests.created_by").
		Where("snack_requests.snack_type = ? AND snack_requests.status = ?", snackType, models.RequestWaiting).
		Where("snack_requests.id <> ?", excludeRequestID).
		Where("users.university_id = ? AND users.suspended = ?", universityID, false)
	if len(excludedUserIDs) > 0 {
		q = q.Where("snack_requests.created_by NOT IN ?", excludedUserIDs)
	}
	err := q.Order("snack_requests.created_at DESC").Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// CancelRequest cancels the user's own waiting request. Returns ErrNotFound
// for unknown ids or requests owned by someone else, ErrConflict once the
// request has left waiting status.
func (s *Service) CancelRequest(requestID, userID uint) error {
	req, err := s.GetRequestByID(requestID)
	if err != nil {
		return err
	}
	if req.CreatedBy != userID {
		return ErrNotFound
	}
	if req.Status != models.RequestWaiting {
		return ErrConflict
	}

	// Conditional update so a concurrent match between the read above and
	// this write cannot cancel an already-matched request.
	res := s.DB.Model(&models.SnackRequest{}).
		Where("id = ? AND status = ?", requestID, models.RequestWaiting).
		Update("status", models.RequestCancelled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// CreateMatchedSession is the consummation step: both requests move from
// waiting to matched and the session row is inserted, all in one
// transaction. The update is conditional on both rows still being in
// waiting status; anything else aborts with ErrConflict and no partial
// state is left behind.
func (s *Service) CreateMatchedSession(req1, req2 *models.SnackRequest, session *models.SnackSession) error {
	now := time.Now()
	return s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.SnackRequest{}).
			Where("id IN ? AND status = ?", []uint{req1.ID, req2.ID}, models.RequestWaiting).
			Updates(map[string]interface{}{
				"status":     models.RequestMatched,
				"matched_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 2 {
			return ErrConflict
		}
		return tx.Create(session).Error
	})
}
