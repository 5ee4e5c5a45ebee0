package storage

import "snackbox/backend/internal/models"

func (s *Service) CreateMessage(msg *models.SnackMessage) error {
	return s.DB.Create(msg).Error
}

// MessagesForSession returns the persisted chat history in insertion order.
func (s *Service) MessagesForSession(sessionID uint) ([]models.SnackMessage, error) {
	var messages []models.SnackMessage
	err := s.DB.
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}
