package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/opkit/authd/internal/auth/domain"
	"github.com/opkit/authd/internal/auth/store"
	"github.com/opkit/authd/pkg/cryptox"
	"github.com/opkit/authd/pkg/idx"
	"github.com/opkit/authd/pkg/jwtx"
	"github.com/opkit/authd/pkg/slogx"
)

// AccountService owns the user lifecycle: registration, login, verification,
// password changes and deletion. Token issuance is delegated to the
// SessionService.
type AccountService struct {
	Store       store.Store
	Hasher      *cryptox.PasswordHasher
	Credentials *CredentialService
	Sessions    *SessionService
	Bus         *Bus

	// PreDelete runs before an account is deleted. It can veto the deletion
	// by returning an error. Nil means no checks.
	PreDelete func(ctx context.Context, user domain.User) error

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (s *AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Register creates a local account and signs it straight in. The new user
// starts in pending_verification; verification is driven by the
// user.registered event. An email already taken by any account, local or
// social, is a conflict.
func (s *AccountService) Register(ctx context.Context, email, password string, meta Metadata) (domain.User, *domain.TokenPair, error) {
	now := s.now()
	email = NormalizeEmail(email)

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return domain.User{}, nil, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		Provider:     domain.ProviderLocal,
		Status:       domain.StatusPendingVerification,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The unique index on email is the source of truth for collisions,
	// including the cross-provider case. No pre-read: that would just race.
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, nil, ErrAccountExists
		}
		return domain.User{}, nil, err
	}

	pair, err := s.Sessions.IssueSession(ctx, user, meta)
	if err != nil {
		return domain.User{}, nil, err
	}

	s.Bus.Publish(ctx, domain.UserRegistered{
		UserID:     user.ID,
		Email:      user.Email,
		Provider:   user.Provider,
		OccurredAt: now,
	})

	return user, pair, nil
}

// Login authenticates a local account and issues a fresh session.
func (s *AccountService) Login(ctx context.Context, email, password string, meta Metadata) (domain.User, *domain.TokenPair, error) {
	now := s.now()

	user, err := s.Credentials.Authenticate(ctx, email, password)
	if err != nil {
		return domain.User{}, nil, err
	}

	pair, err := s.Sessions.IssueSession(ctx, user, meta)
	if err != nil {
		return domain.User{}, nil, err
	}

	if err := s.Store.Users().UpdateLastLogin(ctx, user.ID, now); err != nil {
		slogx.FromContext(ctx).Warn("failed to stamp last login",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	s.Bus.Publish(ctx, domain.UserLoggedIn{
		UserID:     user.ID,
		Email:      user.Email,
		Provider:   user.Provider,
		IPAddress:  meta.IPAddress,
		OccurredAt: now,
	})

	return user, pair, nil
}

// CurrentUser loads the account behind an authenticated request.
func (s *AccountService) CurrentUser(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// VerificationToken mints the short-lived signed token mailed to a new user.
func (s *AccountService) VerificationToken(userID, email string) (string, error) {
	return s.Sessions.Codec.IssueVerification(userID, email)
}

// VerifyEmail redeems a verification token, marking the address verified and
// promoting a pending_verification account to active. Only tokens minted by
// VerificationToken qualify; a login access token is the wrong kind.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.Sessions.Codec.Verify(token, jwtx.KindVerify)
	if err != nil {
		return ErrInvalidAccess
	}

	if err := s.Store.Users().MarkEmailVerified(ctx, claims.Subject); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// ChangePassword rotates a local account's password after verifying the
// current one, then logs the user out everywhere. Social-only accounts have
// no password to change.
func (s *AccountService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if user.PasswordHash == "" {
		return ErrPasswordUnset
	}
	if err := s.Hasher.Compare(user.PasswordHash, currentPassword); err != nil {
		return ErrInvalidCredentials
	}

	newHash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, newHash); err != nil {
		return err
	}

	return s.Sessions.LogoutAll(ctx, userID)
}

// DeleteAccount soft-deletes the user and revokes everything they hold. The
// record mutation and the session purge are two separate store calls; a crash
// in between leaves sessions that fail on next refresh anyway, since the user
// lookup no longer returns the deleted row.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) error {
	now := s.now()

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if s.PreDelete != nil {
		if err := s.PreDelete(ctx, user); err != nil {
			return err
		}
	}

	if err := s.Store.Users().SoftDeleteUser(ctx, userID, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.Sessions.PurgeUserSessions(ctx, userID); err != nil {
		return err
	}

	s.Bus.Publish(ctx, domain.UserDeleted{
		UserID:     user.ID,
		Email:      user.Email,
		OccurredAt: now,
	})

	return nil
}
