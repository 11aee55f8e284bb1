package service

import (
	"context"
	"errors"
	"strings"

	"github.com/opkit/authd/internal/auth/domain"
	"github.com/opkit/authd/internal/auth/store"
	"github.com/opkit/authd/pkg/cryptox"
)

// CredentialService checks email/password pairs against the user store.
type CredentialService struct {
	Store  store.Store
	Hasher *cryptox.PasswordHasher
}

// Authenticate verifies a local login. Unknown email, a social-only account,
// a wrong password, and a disabled account all collapse into
// ErrInvalidCredentials so a caller cannot probe which part failed.
func (s *CredentialService) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	email = NormalizeEmail(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if user.PasswordHash == "" {
		// Social-only account; there is no password to check.
		return domain.User{}, ErrInvalidCredentials
	}

	if err := s.Hasher.Compare(user.PasswordHash, password); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}

	if !user.Enabled() {
		return domain.User{}, ErrInvalidCredentials
	}

	return user, nil
}

// NormalizeEmail lowercases and trims an email address. Every store lookup
// and insert goes through this so casing can never split one mailbox into
// two accounts.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
