package domain

import "time"

// Login token table names. All three tables share the LoginToken shape but
// hold independent token populations with their own TTL and cooldown.
const (
	TableEmailOTPTokens          = "email_otp_tokens"
	TableEmailVerificationTokens = "email_verification_tokens"
	TablePasswordResetTokens     = "password_reset_tokens"
)

// LoginToken is a short-lived single-use token tied to an email address:
// a 6-digit OTP code or a UUID verification/reset token depending on the
// table it lives in. At most one live token exists per email per table.
type LoginToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"index;size:255;not null" json:"email"`
	Token     string    `gorm:"uniqueIndex;size:64;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (t *LoginToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
