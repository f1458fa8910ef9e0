package repository

import (
	"errors"

	"authflow/internal/domain"

	"gorm.io/gorm"
)

var ErrLoginTokenNotFound = errors.New("login token not found")

// LoginTokenRepository backs one of the three token tables. The OTP,
// email-verification and password-reset managers each get their own
// instance pointed at a different table.
type LoginTokenRepository interface {
	// Replace deletes every token for the email and inserts the new one in a
	// single transaction, enforcing the single-live-token invariant.
	Replace(token *domain.LoginToken) error
	FindByToken(value string) (*domain.LoginToken, error)
	FindLatestByEmail(email string) (*domain.LoginToken, error)
	DeleteByEmail(email string) (int64, error)
}

type GormLoginTokenRepository struct {
	db    *gorm.DB
	table string
}

func NewLoginTokenRepository(db *gorm.DB, table string) LoginTokenRepository {
	return &GormLoginTokenRepository{db: db, table: table}
}

func (r *GormLoginTokenRepository) Replace(token *domain.LoginToken) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(r.table).Where("email = ?", token.Email).Delete(&domain.LoginToken{}).Error; err != nil {
			return err
		}
		return tx.Table(r.table).Create(token).Error
	})
}

func (r *GormLoginTokenRepository) FindByToken(value string) (*domain.LoginToken, error) {
	var t domain.LoginToken
	err := r.db.Table(r.table).Where("token = ?", value).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoginTokenNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *GormLoginTokenRepository) FindLatestByEmail(email string) (*domain.LoginToken, error) {
	var t domain.LoginToken
	err := r.db.Table(r.table).Where("email = ?", email).Order("created_at DESC").First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoginTokenNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *GormLoginTokenRepository) DeleteByEmail(email string) (int64, error) {
	res := r.db.Table(r.table).Where("email = ?", email).Delete(&domain.LoginToken{})
	return res.RowsAffected, res.Error
}
