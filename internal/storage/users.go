package storage

import (
	"errors"

	"snackbox/backend/internal/models"

	"gorm.io/gorm"
)

func (s *Service) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) SetUserSuspended(id uint, suspended bool) error {
	res := s.DB.Model(&models.User{}).Where("id = ?", id).Update("suspended", suspended)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
