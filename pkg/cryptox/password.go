package cryptox

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// hashCost is the bcrypt work factor. Fixed rather than configurable so every
// record in the database carries the same cost.
const hashCost = 12

var ErrPasswordMismatch = errors.New("cryptox: password does not match")

// PasswordHasher hashes and verifies passwords with bcrypt, mixing in a
// server-wide pepper before hashing. The pepper is distinct from bcrypt's
// per-record salt: the salt lives inside the stored hash, the pepper only in
// server configuration, so a leaked database alone is not enough to mount an
// offline attack.
type PasswordHasher struct {
	pepper string
}

func NewPasswordHasher(pepper string) *PasswordHasher {
	return &PasswordHasher{pepper: pepper}
}

// Hash returns the bcrypt hash of password+pepper.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password+h.pepper), hashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare checks password+pepper against a stored hash. Returns
// ErrPasswordMismatch when they do not match; bcrypt's comparison is
// constant-time.
func (h *PasswordHasher) Compare(hashed, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password+h.pepper))
	if err != nil {
		return ErrPasswordMismatch
	}
	return nil
}
