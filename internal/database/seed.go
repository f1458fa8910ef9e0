package database

import (
	"fmt"
	"strings"
	"time"

	"authflow/internal/domain"
	"authflow/internal/security"

	"gorm.io/gorm"
)

type SeedReport struct {
	CreatedUsers  int  `json:"created_users"`
	PromotedAdmin bool `json:"promoted_admin"`
	Noop          bool `json:"noop"`
}

// Seed provisions a verified demo user and optionally promotes the
// bootstrap admin. Both operations are idempotent.
func Seed(db *gorm.DB, demoEmail, demoPassword, bootstrapAdminEmail string) (*SeedReport, error) {
	report := &SeedReport{}

	email := strings.TrimSpace(strings.ToLower(demoEmail))
	if email != "" && demoPassword != "" {
		hash, err := security.HashPassword(demoPassword)
		if err != nil {
			return nil, fmt.Errorf("hash demo password: %w", err)
		}
		name := "Demo User"
		verified := time.Now().UTC()
		demo := domain.User{
			Name:            &name,
			Email:           &email,
			EmailVerifiedAt: &verified,
			PasswordHash:    &hash,
			Role:            domain.RoleUser,
		}
		res := db.Where("email = ?", email).FirstOrCreate(&demo)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected > 0 {
			report.CreatedUsers++
		}
	}

	adminEmail := strings.TrimSpace(strings.ToLower(bootstrapAdminEmail))
	if adminEmail != "" {
		res := db.Model(&domain.User{}).
			Where("email = ? AND role <> ?", adminEmail, domain.RoleAdmin).
			Update("role", domain.RoleAdmin)
		if res.Error != nil {
			return nil, res.Error
		}
		report.PromotedAdmin = res.RowsAffected > 0
	}

	report.Noop = report.CreatedUsers == 0 && !report.PromotedAdmin
	return report, nil
}
