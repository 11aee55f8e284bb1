package provider

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGoogleAuthURL(t *testing.T) {
	g := &Google{
		ClientID:    "client-123",
		RedirectURI: "https://app.example/callback",
	}

	raw := g.AuthURL("state-abc")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "accounts.google.com", parsed.Host)

	q := parsed.Query()
	require.Equal(t, "client-123", q.Get("client_id"))
	require.Equal(t, "https://app.example/callback", q.Get("redirect_uri"))
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "state-abc", q.Get("state"))
	require.Contains(t, q.Get("scope"), "email")
}

func TestAppleAuthURL(t *testing.T) {
	a := &Apple{
		ClientID:    "com.example.app",
		RedirectURI: "https://app.example/callback",
	}

	raw := a.AuthURL("state-xyz")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "appleid.apple.com", parsed.Host)

	q := parsed.Query()
	require.Equal(t, "com.example.app", q.Get("client_id"))
	require.Equal(t, "form_post", q.Get("response_mode"))
	require.Equal(t, "state-xyz", q.Get("state"))
}
