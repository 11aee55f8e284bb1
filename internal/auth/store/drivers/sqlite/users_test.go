package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opkit/authd/internal/auth/domain"
	"github.com/opkit/authd/internal/auth/store"
	"github.com/opkit/authd/pkg/idx"
)

func TestUsersCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	user := newTestUser(t, st, "alice@x.com")

	byID, err := st.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Email, byID.Email)
	require.Equal(t, domain.ProviderLocal, byID.Provider)

	byEmail, err := st.Users().GetUserByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, byEmail.ID)

	_, err = st.Users().GetUserByID(ctx, idx.New().String())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsersEmailUniqueAcrossProviders(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	newTestUser(t, st, "taken@x.com")

	// A social account with the same email collides with the local one.
	err := st.Users().CreateUser(ctx, domain.User{
		ID:         idx.New().String(),
		Email:      "taken@x.com",
		Provider:   domain.ProviderGoogle,
		ProviderID: "google-sub-1",
		Status:     domain.StatusActive,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestUsersProviderIdentityLookup(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	social := domain.User{
		ID:            idx.New().String(),
		Email:         "bob@x.com",
		Provider:      domain.ProviderGoogle,
		ProviderID:    "google-sub-42",
		Status:        domain.StatusActive,
		EmailVerified: true,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	require.NoError(t, st.Users().CreateUser(ctx, social))

	found, err := st.Users().GetUserByProviderID(ctx, domain.ProviderGoogle, "google-sub-42")
	require.NoError(t, err)
	require.Equal(t, social.ID, found.ID)

	_, err = st.Users().GetUserByProviderID(ctx, domain.ProviderApple, "google-sub-42")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsersMarkEmailVerifiedPromotesPending(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	pending := domain.User{
		ID:           idx.New().String(),
		Email:        "pending@x.com",
		PasswordHash: "hash",
		Provider:     domain.ProviderLocal,
		Status:       domain.StatusPendingVerification,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, st.Users().CreateUser(ctx, pending))

	require.NoError(t, st.Users().MarkEmailVerified(ctx, pending.ID))

	got, err := st.Users().GetUserByID(ctx, pending.ID)
	require.NoError(t, err)
	require.True(t, got.EmailVerified)
	require.Equal(t, domain.StatusActive, got.Status)

	// A suspended account gets its flag set but keeps its status.
	require.NoError(t, st.Users().UpdateStatus(ctx, pending.ID, domain.StatusSuspended))
	require.NoError(t, st.Users().MarkEmailVerified(ctx, pending.ID))
	got, err = st.Users().GetUserByID(ctx, pending.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusSuspended, got.Status)
}

func TestUsersLinkAndUnlinkProvider(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	user := newTestUser(t, st, "linker@x.com")

	require.NoError(t, st.Users().LinkProvider(ctx, user.ID, domain.ProviderGoogle, "google-sub-7"))

	got, err := st.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ProviderGoogle, got.Provider)
	require.Equal(t, "google-sub-7", got.ProviderID)

	// The identity is now taken; a second user cannot link it.
	other := newTestUser(t, st, "other@x.com")
	err = st.Users().LinkProvider(ctx, other.ID, domain.ProviderGoogle, "google-sub-7")
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	require.NoError(t, st.Users().UnlinkProvider(ctx, user.ID))
	got, err = st.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ProviderLocal, got.Provider)
	require.Empty(t, got.ProviderID)

	// Identity freed up again.
	require.NoError(t, st.Users().LinkProvider(ctx, other.ID, domain.ProviderGoogle, "google-sub-7"))
}

func TestUsersSoftDeleteHidesRow(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	user := newTestUser(t, st, "gone@x.com")

	require.NoError(t, st.Users().SoftDeleteUser(ctx, user.ID, time.Now()))

	_, err := st.Users().GetUserByID(ctx, user.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Users().GetUserByEmail(ctx, "gone@x.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Mutations treat the deleted row as missing too.
	require.ErrorIs(t, st.Users().UpdatePasswordHash(ctx, user.ID, "new"), store.ErrNotFound)
	require.ErrorIs(t, st.Users().SoftDeleteUser(ctx, user.ID, time.Now()), store.ErrNotFound)
}

func TestUsersUpdateLastLogin(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	user := newTestUser(t, st, "lastlogin@x.com")
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, st.Users().UpdateLastLogin(ctx, user.ID, at))

	got, err := st.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	require.True(t, got.LastLoginAt.Equal(at))
}
