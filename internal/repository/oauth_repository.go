package repository

import (
	"errors"

	"authflow/internal/domain"

	"gorm.io/gorm"
)

var ErrOAuthAccountNotFound = errors.New("oauth account not found")

type OAuthRepository interface {
	Create(account *domain.OAuthAccount) error
	FindByProvider(provider, providerUserID string) (*domain.OAuthAccount, error)
	FindByUserID(userID uint) (*domain.OAuthAccount, error)
}

type GormOAuthRepository struct{ db *gorm.DB }

func NewOAuthRepository(db *gorm.DB) OAuthRepository { return &GormOAuthRepository{db: db} }

func (r *GormOAuthRepository) Create(account *domain.OAuthAccount) error {
	return r.db.Create(account).Error
}

func (r *GormOAuthRepository) FindByProvider(provider, providerUserID string) (*domain.OAuthAccount, error) {
	var a domain.OAuthAccount
	err := r.db.Where("provider = ? AND provider_user_id = ?", provider, providerUserID).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOAuthAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *GormOAuthRepository) FindByUserID(userID uint) (*domain.OAuthAccount, error) {
	var a domain.OAuthAccount
	err := r.db.Where("user_id = ?", userID).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOAuthAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}
