package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/opkit/authd/internal/auth/domain"
)

const (
	appleAuthURL  = "https://appleid.apple.com/auth/authorize"
	appleTokenURL = "https://appleid.apple.com/auth/token"
)

// Apple resolves Sign in with Apple authorization codes. The identity comes
// from the id_token Apple returns alongside the code exchange.
//
// TODO: verify the id_token signature against Apple's JWKS instead of
// trusting the TLS channel to appleid.apple.com.
type Apple struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	HTTPClient *http.Client
}

func (a *Apple) Name() domain.Provider { return domain.ProviderApple }

func (a *Apple) client() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// AuthURL uses form_post response mode; Apple requires it whenever scopes
// are requested.
func (a *Apple) AuthURL(state string) string {
	q := url.Values{
		"client_id":     {a.ClientID},
		"redirect_uri":  {a.RedirectURI},
		"response_type": {"code"},
		"response_mode": {"form_post"},
		"scope":         {"name email"},
		"state":         {state},
	}
	return appleAuthURL + "?" + q.Encode()
}

func (a *Apple) Resolve(ctx context.Context, code string) (Profile, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {a.ClientID},
		"client_secret": {a.ClientSecret},
		"redirect_uri":  {a.RedirectURI},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, appleTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Profile{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client().Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("%w: token endpoint returned %d", ErrExchangeFailed, resp.StatusCode)
	}

	var tok struct {
		IDToken string `json:"id_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil || tok.IDToken == "" {
		return Profile{}, fmt.Errorf("%w: bad token response", ErrExchangeFailed)
	}

	return a.profileFromIDToken(tok.IDToken)
}

type appleClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"` // Apple sends a bool or the string "true"
}

func (a *Apple) profileFromIDToken(idToken string) (Profile, error) {
	var claims appleClaims
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err != nil {
		return Profile{}, fmt.Errorf("%w: bad id_token", ErrExchangeFailed)
	}
	if claims.Subject == "" || claims.Email == "" {
		return Profile{}, fmt.Errorf("%w: id_token missing subject or email", ErrExchangeFailed)
	}

	verified := false
	switch v := claims.EmailVerified.(type) {
	case bool:
		verified = v
	case string:
		verified = v == "true"
	}

	return Profile{
		ExternalID:    claims.Subject,
		Email:         claims.Email,
		EmailVerified: verified,
	}, nil
}
