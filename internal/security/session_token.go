package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the authorization-relevant snapshot carried by the signed
// session token: a 1:1 shadow of the user's security fields at the time of
// sign-in or last explicit settings update.
type SessionClaims struct {
	Role               string `json:"role"`
	IsTwoFactorEnabled bool   `json:"is_two_factor_enabled"`
	Provider           string `json:"provider,omitempty"`
	IsOAuth            bool   `json:"is_oauth"`
	jwt.RegisteredClaims
}

type SessionTokenManager struct {
	issuer   string
	audience string
	secret   []byte
	ttl      time.Duration
}

func NewSessionTokenManager(issuer, audience, secret string, ttl time.Duration) *SessionTokenManager {
	return &SessionTokenManager{issuer: issuer, audience: audience, secret: []byte(secret), ttl: ttl}
}

func (m *SessionTokenManager) TTL() time.Duration { return m.ttl }

// Sign stamps issuer/audience/expiry onto claims and returns the signed
// token. The caller owns subject, role and the OAuth fields.
func (m *SessionTokenManager) Sign(claims SessionClaims) (string, error) {
	now := time.Now()
	claims.Issuer = m.issuer
	claims.Audience = jwt.ClaimStrings{m.audience}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.ttl))
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *SessionTokenManager) Parse(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithAudience(m.audience), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}
