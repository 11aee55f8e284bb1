package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opkit/authd/internal/auth/domain"
	"github.com/opkit/authd/internal/auth/provider"
)

func googleResolver(profile provider.Profile) *fakeResolver {
	return &fakeResolver{name: domain.ProviderGoogle, profile: profile}
}

func TestSocialLoginCreatesActiveUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.withResolver(googleResolver(provider.Profile{
		ExternalID: "goog-123",
		Email:      "Social@X.com",
	}))

	user, pair, err := env.social.Login(ctx, domain.ProviderGoogle, "auth-code", Metadata{})
	require.NoError(t, err)
	require.Equal(t, "social@x.com", user.Email)
	require.Equal(t, domain.ProviderGoogle, user.Provider)
	require.Equal(t, "goog-123", user.ProviderID)
	require.Equal(t, domain.StatusActive, user.Status)
	require.True(t, user.EmailVerified)
	require.NotEmpty(t, pair.RefreshToken)
}

func TestSocialLoginReusesExistingIdentity(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.withResolver(googleResolver(provider.Profile{
		ExternalID: "goog-reuse",
		Email:      "reuse@x.com",
	}))

	first, _, err := env.social.Login(ctx, domain.ProviderGoogle, "code-1", Metadata{})
	require.NoError(t, err)

	second, _, err := env.social.Login(ctx, domain.ProviderGoogle, "code-2", Metadata{})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestSocialLoginEmailCollision(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.register(t, "taken@x.com", "Passw0rd!")

	env.withResolver(googleResolver(provider.Profile{
		ExternalID: "goog-collide",
		Email:      "taken@x.com",
	}))

	_, _, err := env.social.Login(ctx, domain.ProviderGoogle, "code", Metadata{})
	require.ErrorIs(t, err, ErrAccountExists)
}

func TestSocialLoginUnsupportedProvider(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.social.Login(context.Background(), domain.ProviderGoogle, "code", Metadata{})
	require.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestSocialLoginResolverFailureIsOpaque(t *testing.T) {
	env := newTestEnv(t)
	env.withResolver(&fakeResolver{
		name: domain.ProviderGoogle,
		err:  errors.New("exchange blew up"),
	})

	_, _, err := env.social.Login(context.Background(), domain.ProviderGoogle, "bad-code", Metadata{})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSocialLoginDisabledUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.withResolver(googleResolver(provider.Profile{
		ExternalID: "goog-disabled",
		Email:      "disabled-social@x.com",
	}))

	user, _, err := env.social.Login(ctx, domain.ProviderGoogle, "code", Metadata{})
	require.NoError(t, err)

	require.NoError(t, env.store.Users().UpdateStatus(ctx, user.ID, domain.StatusSuspended))

	_, _, err = env.social.Login(ctx, domain.ProviderGoogle, "code", Metadata{})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSocialAuthURL(t *testing.T) {
	env := newTestEnv(t)
	env.withResolver(googleResolver(provider.Profile{}))

	url, err := env.social.AuthURL(domain.ProviderGoogle, "xyz")
	require.NoError(t, err)
	require.Equal(t, "https://idp.test/authorize?state=xyz", url)

	_, err = env.social.AuthURL(domain.ProviderApple, "xyz")
	require.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestLinkAccount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.withResolver(googleResolver(provider.Profile{
		ExternalID: "goog-link",
		Email:      "linker@x.com",
	}))

	user, _ := env.register(t, "linker@x.com", "Passw0rd!")

	require.NoError(t, env.social.LinkAccount(ctx, user.ID, domain.ProviderGoogle, "code"))

	linked, err := env.social.LinkedAccounts(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, linked, 2)
	require.Equal(t, domain.ProviderLocal, linked[0].Provider)
	require.Equal(t, domain.ProviderGoogle, linked[1].Provider)
	require.Equal(t, "goog-link", linked[1].ExternalID)
}

func TestLinkAccountIdentityTaken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.withResolver(googleResolver(provider.Profile{
		ExternalID: "goog-claimed",
		Email:      "owner@x.com",
	}))

	// The identity already belongs to a social-born account.
	_, _, err := env.social.Login(ctx, domain.ProviderGoogle, "code", Metadata{})
	require.NoError(t, err)

	user, _ := env.register(t, "claimant@x.com", "Passw0rd!")

	err = env.social.LinkAccount(ctx, user.ID, domain.ProviderGoogle, "code")
	require.ErrorIs(t, err, ErrIdentityTaken)
}

func TestLinkAccountAlreadyLinked(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.withResolver(googleResolver(provider.Profile{
		ExternalID: "goog-double",
		Email:      "double@x.com",
	}))

	user, _, err := env.social.Login(ctx, domain.ProviderGoogle, "code", Metadata{})
	require.NoError(t, err)

	err = env.social.LinkAccount(ctx, user.ID, domain.ProviderGoogle, "code")
	require.ErrorIs(t, err, ErrProviderLinked)
}

func TestUnlinkAccount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.withResolver(googleResolver(provider.Profile{
		ExternalID: "goog-unlink",
		Email:      "unlinker@x.com",
	}))

	user, _ := env.register(t, "unlinker@x.com", "Passw0rd!")
	require.NoError(t, env.social.LinkAccount(ctx, user.ID, domain.ProviderGoogle, "code"))

	require.NoError(t, env.social.UnlinkAccount(ctx, user.ID, domain.ProviderGoogle))

	linked, err := env.social.LinkedAccounts(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	require.Equal(t, domain.ProviderLocal, linked[0].Provider)

	// Password login still works after the unlink.
	_, _, err = env.accounts.Login(ctx, "unlinker@x.com", "Passw0rd!", Metadata{})
	require.NoError(t, err)
}

func TestUnlinkAccountLastAuthMethod(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.withResolver(googleResolver(provider.Profile{
		ExternalID: "goog-only",
		Email:      "social-only@x.com",
	}))

	// A social-born account has no password to fall back on.
	user, _, err := env.social.Login(ctx, domain.ProviderGoogle, "code", Metadata{})
	require.NoError(t, err)

	err = env.social.UnlinkAccount(ctx, user.ID, domain.ProviderGoogle)
	require.ErrorIs(t, err, ErrLastAuthMethod)
}

func TestUnlinkAccountNotSocial(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	user, _ := env.register(t, "plain-local@x.com", "Passw0rd!")

	err := env.social.UnlinkAccount(ctx, user.ID, domain.ProviderGoogle)
	require.ErrorIs(t, err, ErrNotSocialAccount)
}

func TestUnlinkAccountWrongProvider(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.withResolver(googleResolver(provider.Profile{
		ExternalID: "goog-wrongp",
		Email:      "wrongp@x.com",
	}))

	user, _ := env.register(t, "wrongp@x.com", "Passw0rd!")
	require.NoError(t, env.social.LinkAccount(ctx, user.ID, domain.ProviderGoogle, "code"))

	err := env.social.UnlinkAccount(ctx, user.ID, domain.ProviderApple)
	require.ErrorIs(t, err, ErrNotSocialAccount)
}
