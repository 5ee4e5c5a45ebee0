package storage

import (
	"time"

	"snackbox/backend/internal/models"

	"gorm.io/gorm/clause"
)

// CreateBlock inserts a block relationship. Duplicate blocks are silently
// ignored.
func (s *Service) CreateBlock(blockerID, blockedID uint) error {
	block := models.SnackBlock{BlockerID: blockerID, BlockedID: blockedID}
	return s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&block).Error
}

// CreateReport always inserts; repeat reports accumulate on purpose.
func (s *Service) CreateReport(report *models.SnackReport) error {
	return s.DB.Create(report).Error
}

// ExclusionSet is everyone userID must never be paired with: the user
// themselves, anyone blocked in either direction, and anyone the user has
// reported.
func (s *Service) ExclusionSet(userID uint) ([]uint, error) {
	seen := map[uint]bool{userID: true}

	var blocked []uint
	if err := s.DB.Model(&models.SnackBlock{}).
		Where("blocker_id = ?", userID).
		Pluck("blocked_id", &blocked).Error; err != nil {
		return nil, err
	}
	var blockers []uint
	if err := s.DB.Model(&models.SnackBlock{}).
		Where("blocked_id = ?", userID).
		Pluck("blocker_id", &blockers).Error; err != nil {
		return nil, err
	}
	var reported []uint
	if err := s.DB.Model(&models.SnackReport{}).
		Where("reporter_id = ?", userID).
		Pluck("reported_id", &reported).Error; err != nil {
		return nil, err
	}

	excluded := []uint{userID}
	for _, group := range [][]uint{blocked, blockers, reported} {
		for _, id := range group {
			if !seen[id] {
				seen[id] = true
				excluded = append(excluded, id)
			}
		}
	}
	return excluded, nil
}

// DistinctReporterCount counts how many different users reported reportedID
// since the given time. Feeds the suspension threshold.
func (s *Service) DistinctReporterCount(reportedID uint, since time.Time) (int64, error) {
	var count int64
	err := s.DB.Model(&models.SnackReport{}).
		Where("reported_id = ? AND created_at >= ?", reportedID, since).
		Distinct("reporter_id").
		Count(&count).Error
	return count, err
}

// ReportsAgainst lists every report filed against a user, newest first.
func (s *Service) ReportsAgainst(reportedID uint) ([]models.SnackReport, error) {
	var reports []models.SnackReport
	err := s.DB.
		Where("reported_id = ?", reportedID).
		Order("created_at DESC").
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}
