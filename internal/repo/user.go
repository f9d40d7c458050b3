package repo

import (
	"tablechat/pkg/models"

	"gorm.io/gorm"
)

// UserRepository handles user data access
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID gets a user by Google subject id
func (r *UserRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Upsert creates the user on first login and refreshes profile fields on
// subsequent logins, so the local copy tracks the Google account data.
func (r *UserRepository) Upsert(user *models.User) (*models.User, error) {
	var existing models.User
	err := r.db.Where("id = ?", user.ID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		if err := r.db.Create(user).Error; err != nil {
			return nil, err
		}
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	existing.Email = user.Email
	existing.Name = user.Name
	existing.Picture = user.Picture
	if err := r.db.Save(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}
