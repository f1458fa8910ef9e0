package domain

import "time"

type UserRole string

const (
	RoleAdmin UserRole = "ADMIN"
	RoleUser  UserRole = "USER"
)

// User is the identity record. An account with a non-empty PasswordHash is a
// credentials account; OAuth-only accounts keep it empty and are not eligible
// for password reset or OTP two-factor.
type User struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Name               *string    `gorm:"size:255" json:"name,omitempty"`
	Email              *string    `gorm:"uniqueIndex;size:255" json:"email,omitempty"`
	EmailVerifiedAt    *time.Time `json:"email_verified_at,omitempty"`
	ImageURL           string     `gorm:"size:1024" json:"image_url,omitempty"`
	PasswordHash       *string    `gorm:"size:255" json:"-"`
	IsTwoFactorEnabled bool       `gorm:"not null;default:false" json:"is_two_factor_enabled"`
	Role               UserRole   `gorm:"size:16;not null;default:USER" json:"role"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

func (u *User) EmailVerified() bool {
	return u.EmailVerifiedAt != nil
}
