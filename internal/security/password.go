package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Work factor 14 keeps a single hash in the hundreds of milliseconds on
// current hardware, which is the intended brute-force cost for this app.
const bcryptCost = 14

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored bcrypt hash.
// The comparison is constant-time inside bcrypt. A malformed hash is an
// error, not a mismatch.
func VerifyPassword(encoded, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}
