package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPruneExpiredSessions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	user, stale := env.register(t, "prune@x.com", "Passw0rd!")

	env.clock.Advance(12 * time.Hour)
	_, fresh, err := env.accounts.Login(ctx, "prune@x.com", "Passw0rd!", Metadata{})
	require.NoError(t, err)

	// Past the first session's 24h expiry, short of the second's.
	env.clock.Advance(13 * time.Hour)

	hk := NewHousekeepingService(env.store, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour)
	hk.Now = env.clock.Now

	require.Equal(t, int64(1), hk.PruneExpiredSessions(ctx))
	require.Equal(t, int64(0), hk.PruneExpiredSessions(ctx))

	// The pruned token is gone entirely, the live one still rotates.
	_, err = env.sessions.Refresh(ctx, stale.RefreshToken, Metadata{})
	require.ErrorIs(t, err, ErrInvalidRefresh)
	_, err = env.sessions.Refresh(ctx, fresh.RefreshToken, Metadata{})
	require.NoError(t, err)

	active, err := env.sessions.ActiveSessions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
}
