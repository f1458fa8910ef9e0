package database

import (
	"authflow/internal/domain"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.OAuthAccount{},
	); err != nil {
		return err
	}
	// The three token kinds share one row shape but live in separate tables.
	for _, table := range []string{
		domain.TableEmailOTPTokens,
		domain.TableEmailVerificationTokens,
		domain.TablePasswordResetTokens,
	} {
		if err := db.Table(table).AutoMigrate(&domain.LoginToken{}); err != nil {
			return err
		}
	}
	return nil
}
