package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opkit/authd/internal/auth/domain"
	"github.com/opkit/authd/internal/auth/provider"
	"github.com/opkit/authd/internal/auth/store/drivers/sqlite"
	"github.com/opkit/authd/pkg/cryptox"
	"github.com/opkit/authd/pkg/jwtx"
)

// testClock is a mutable time source shared by the codec and the services so
// expiry behavior is deterministic.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type testEnv struct {
	store    *sqlite.Store
	clock    *testClock
	codec    *jwtx.Codec
	bus      *Bus
	sessions *SessionService
	creds    *CredentialService
	accounts *AccountService
	social   *SocialService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	codec, err := jwtx.NewCodec(jwtx.Config{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "authd-test",
		Audience:      "authd-test-client",
		Now:           clock.Now,
	})
	require.NoError(t, err)

	hasher := cryptox.NewPasswordHasher("test-pepper")
	bus := NewBus()

	sessions := &SessionService{
		Codec:       codec,
		Store:       st,
		MaxSessions: 0,
		Now:         clock.Now,
	}
	creds := &CredentialService{Store: st, Hasher: hasher}
	accounts := &AccountService{
		Store:       st,
		Hasher:      hasher,
		Credentials: creds,
		Sessions:    sessions,
		Bus:         bus,
		Now:         clock.Now,
	}
	social := &SocialService{
		Store:    st,
		Sessions: sessions,
		Bus:      bus,
		Now:      clock.Now,
	}

	return &testEnv{
		store:    st,
		clock:    clock,
		codec:    codec,
		bus:      bus,
		sessions: sessions,
		creds:    creds,
		accounts: accounts,
		social:   social,
	}
}

func (e *testEnv) register(t *testing.T, email, password string) (domain.User, *domain.TokenPair) {
	t.Helper()

	user, pair, err := e.accounts.Register(context.Background(), email, password, Metadata{
		DeviceInfo: "test-agent",
		IPAddress:  "127.0.0.1",
	})
	require.NoError(t, err)
	require.NotNil(t, pair)
	return user, pair
}

// fakeResolver satisfies provider.Resolver without talking to a real
// identity provider.
type fakeResolver struct {
	name    domain.Provider
	profile provider.Profile
	err     error
}

func (f *fakeResolver) Name() domain.Provider { return f.name }

func (f *fakeResolver) AuthURL(state string) string {
	return "https://idp.test/authorize?state=" + state
}

func (f *fakeResolver) Resolve(ctx context.Context, code string) (provider.Profile, error) {
	if f.err != nil {
		return provider.Profile{}, f.err
	}
	return f.profile, nil
}

func (e *testEnv) withResolver(r *fakeResolver) {
	e.social.Resolvers = provider.NewRegistry(r)
}
