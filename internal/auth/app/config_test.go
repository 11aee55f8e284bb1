package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("AUTH_ACCESS_SECRET", "access-secret")
	t.Setenv("AUTH_REFRESH_SECRET", "refresh-secret")
	t.Setenv("AUTH_PEPPER", "pepper")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, time.Hour, cfg.AccessTTL)
	require.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	require.Equal(t, "authd", cfg.Issuer)
	require.Equal(t, "authd-client", cfg.Audience)
	require.Equal(t, 5, cfg.MaxSessionsPerUser)
	require.Equal(t, "authd.db", cfg.DatabaseFile)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 10*time.Second, cfg.ShutdownGracePeriod)
	require.Equal(t, time.Hour, cfg.HousekeepingInterval)
}

func TestLoadConfigMissingSecrets(t *testing.T) {
	t.Setenv("AUTH_ACCESS_SECRET", "")
	t.Setenv("AUTH_REFRESH_SECRET", "")
	t.Setenv("AUTH_PEPPER", "pepper")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigIdenticalSecrets(t *testing.T) {
	t.Setenv("AUTH_ACCESS_SECRET", "same-secret")
	t.Setenv("AUTH_REFRESH_SECRET", "same-secret")
	t.Setenv("AUTH_PEPPER", "pepper")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "must differ")
}

func TestLoadConfigMissingPepper(t *testing.T) {
	t.Setenv("AUTH_ACCESS_SECRET", "access-secret")
	t.Setenv("AUTH_REFRESH_SECRET", "refresh-secret")
	t.Setenv("AUTH_PEPPER", "")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "AUTH_PEPPER")
}

func TestLoadConfigTTLOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUTH_ACCESS_TTL", "15m")
	t.Setenv("AUTH_REFRESH_TTL", "30d")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 15*time.Minute, cfg.AccessTTL)
	require.Equal(t, 30*24*time.Hour, cfg.RefreshTTL)
}

func TestLoadConfigMalformedTTLFails(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUTH_ACCESS_TTL", "soon")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "AUTH_ACCESS_TTL")
}
