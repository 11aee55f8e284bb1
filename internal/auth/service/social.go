package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/opkit/authd/internal/auth/domain"
	"github.com/opkit/authd/internal/auth/provider"
	"github.com/opkit/authd/internal/auth/store"
	"github.com/opkit/authd/pkg/idx"
	"github.com/opkit/authd/pkg/slogx"
)

// SocialService signs users in through external identity providers and
// manages linking a social identity to an existing account.
type SocialService struct {
	Store     store.Store
	Sessions  *SessionService
	Resolvers provider.Registry
	Bus       *Bus

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (s *SocialService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// LinkedAccount describes one way a user can authenticate.
type LinkedAccount struct {
	Provider   domain.Provider `json:"provider"`
	ExternalID string          `json:"external_id,omitempty"`
}

// AuthURL returns the provider's authorization endpoint for the client to
// redirect the user to. The state value is passed through untouched.
func (s *SocialService) AuthURL(name domain.Provider, state string) (string, error) {
	res, ok := s.Resolvers.Lookup(name)
	if !ok {
		return "", ErrUnsupportedProvider
	}
	return res.AuthURL(state), nil
}

// Login exchanges a provider authorization code and signs the attested user
// in. A first-time social identity creates a fresh account, born active
// since the provider vouches for the email. If the email already belongs to
// a different account the login is a conflict, never a silent merge; linking
// is a separate, authenticated operation.
func (s *SocialService) Login(ctx context.Context, name domain.Provider, code string, meta Metadata) (domain.User, *domain.TokenPair, error) {
	now := s.now()
	l := slogx.FromContext(ctx)

	res, ok := s.Resolvers.Lookup(name)
	if !ok {
		return domain.User{}, nil, ErrUnsupportedProvider
	}

	profile, err := res.Resolve(ctx, code)
	if err != nil {
		l.Info("social code exchange failed",
			slog.String("provider", string(name)),
			slog.Any("error", err),
		)
		return domain.User{}, nil, ErrInvalidCredentials
	}

	user, err := s.Store.Users().GetUserByProviderID(ctx, name, profile.ExternalID)
	switch {
	case err == nil:
		if !user.Enabled() {
			return domain.User{}, nil, ErrInvalidCredentials
		}
	case errors.Is(err, store.ErrNotFound):
		user, err = s.createSocialUser(ctx, name, profile, now)
		if err != nil {
			return domain.User{}, nil, err
		}
	default:
		return domain.User{}, nil, err
	}

	pair, err := s.Sessions.IssueSession(ctx, user, meta)
	if err != nil {
		return domain.User{}, nil, err
	}

	if err := s.Store.Users().UpdateLastLogin(ctx, user.ID, now); err != nil {
		l.Warn("failed to stamp last login",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	s.Bus.Publish(ctx, domain.UserLoggedIn{
		UserID:     user.ID,
		Email:      user.Email,
		Provider:   name,
		IPAddress:  meta.IPAddress,
		OccurredAt: now,
	})

	return user, pair, nil
}

func (s *SocialService) createSocialUser(ctx context.Context, name domain.Provider, profile provider.Profile, now time.Time) (domain.User, error) {
	email := NormalizeEmail(profile.Email)

	// An existing account under this email, local or another provider, must
	// not be silently taken over.
	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
		return domain.User{}, ErrAccountExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	user := domain.User{
		ID:            idx.New().String(),
		Email:         email,
		Provider:      name,
		ProviderID:    profile.ExternalID,
		Status:        domain.StatusActive,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrAccountExists
		}
		return domain.User{}, err
	}

	s.Bus.Publish(ctx, domain.UserRegistered{
		UserID:     user.ID,
		Email:      user.Email,
		Provider:   name,
		OccurredAt: now,
	})

	return user, nil
}

// LinkAccount attaches a social identity to the authenticated user's
// account. It fails if the account already carries a provider, or if the
// identity is already linked to someone else.
func (s *SocialService) LinkAccount(ctx context.Context, userID string, name domain.Provider, code string) error {
	res, ok := s.Resolvers.Lookup(name)
	if !ok {
		return ErrUnsupportedProvider
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.IsSocial() {
		return ErrProviderLinked
	}

	profile, err := res.Resolve(ctx, code)
	if err != nil {
		return ErrInvalidCredentials
	}

	// The partial unique index on (provider, provider_id) arbitrates
	// concurrent link attempts for the same identity.
	if err := s.Store.Users().LinkProvider(ctx, userID, name, profile.ExternalID); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return ErrIdentityTaken
		}
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// UnlinkAccount detaches the account's social identity, reverting it to a
// local account. It refuses to strand the user with no way to sign in.
func (s *SocialService) UnlinkAccount(ctx context.Context, userID string, name domain.Provider) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if !user.IsSocial() || user.Provider != name {
		return ErrNotSocialAccount
	}
	if user.PasswordHash == "" {
		return ErrLastAuthMethod
	}

	return s.Store.Users().UnlinkProvider(ctx, userID)
}

// LinkedAccounts lists the authentication methods the user holds.
func (s *SocialService) LinkedAccounts(ctx context.Context, userID string) ([]LinkedAccount, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var out []LinkedAccount
	if user.PasswordHash != "" {
		out = append(out, LinkedAccount{Provider: domain.ProviderLocal})
	}
	if user.IsSocial() {
		out = append(out, LinkedAccount{Provider: user.Provider, ExternalID: user.ProviderID})
	}
	return out, nil
}
