package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/opkit/authd/pkg/idx"
)

var (
	ErrInvalidToken = errors.New("jwtx: invalid token")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrKindMismatch = errors.New("jwtx: token kind mismatch")
)

const signingAlg = "HS256"

// Config carries everything the codec needs. Secrets are required; TTLs fall
// back to the package defaults when zero.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	Issuer   string
	Audience string

	// Now is the time source for issuing and expiry checks. Defaults to
	// time.Now. Tests inject a fixed clock here.
	Now func() time.Time
}

// Codec signs and verifies the access and refresh tokens the service hands
// out. Verification here is purely cryptographic: signature, issuer,
// audience, expiry and kind. Whether a refresh token's session is still live
// is the session store's business, not the codec's.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	audience      string
	now           func() time.Time
}

func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("jwtx: access and refresh secrets must not be empty")
	}

	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Codec{
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		audience:      cfg.Audience,
		now:           cfg.Now,
	}, nil
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess mints a signed access token for the user.
func (c *Codec) IssueAccess(userID, email string) (string, error) {
	now := c.now()
	claims := Claims{
		RegisteredClaims: c.registered(userID, now, c.accessTTL),
		Kind:             string(KindAccess),
		Email:            email,
	}
	return c.sign(claims, c.accessSecret)
}

// IssueVerification mints the token mailed to a user to prove address
// ownership. It only ever redeems against KindVerify.
func (c *Codec) IssueVerification(userID, email string) (string, error) {
	now := c.now()
	claims := Claims{
		RegisteredClaims: c.registered(userID, now, c.accessTTL),
		Kind:             string(KindVerify),
		Email:            email,
	}
	return c.sign(claims, c.accessSecret)
}

// IssueRefresh mints a signed refresh token for the user and returns it
// together with its fresh token identifier. The caller persists a session
// record keyed by that identifier.
func (c *Codec) IssueRefresh(userID string) (token string, tokenID string, err error) {
	now := c.now()
	tokenID = idx.New().String()

	claims := Claims{
		RegisteredClaims: c.registered(userID, now, c.refreshTTL),
		Kind:             string(KindRefresh),
		TokenID:          tokenID,
	}

	token, err = c.sign(claims, c.refreshSecret)
	if err != nil {
		return "", "", err
	}
	return token, tokenID, nil
}

// Verify checks the token's signature, issuer, audience, expiry and kind.
// Every failure surfaces as ErrInvalidToken (wrapping the precise cause) so
// callers cannot accidentally branch on why a token was bad.
func (c *Codec) Verify(token string, kind Kind) (Claims, error) {
	secret := c.accessSecret
	if kind == KindRefresh {
		secret = c.refreshSecret
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{signingAlg}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	// The library treats exp == now as still valid; our expiry boundary is
	// inclusive everywhere, so enforce it here too.
	if exp := claims.ExpiresAtTime(); exp.IsZero() || !c.now().Before(exp) {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, ErrExpired)
	}

	if claims.Kind != string(kind) {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, ErrKindMismatch)
	}

	return claims, nil
}

// DecodeUnsafe decodes a token without verifying its signature. It exists for
// best-effort introspection (expiry hints and the like) and must never feed
// an authorization decision.
func (c *Codec) DecodeUnsafe(token string) (Claims, bool) {
	var claims Claims
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil {
		return Claims{}, false
	}
	return claims, true
}

// RemainingTime reports how long until the token expires. Expired, malformed
// and exp-less tokens all report zero.
func (c *Codec) RemainingTime(token string) time.Duration {
	claims, ok := c.DecodeUnsafe(token)
	if !ok {
		return 0
	}
	exp := claims.ExpiresAtTime()
	if exp.IsZero() {
		return 0
	}
	remaining := exp.Sub(c.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ExpiringSoon reports whether the token is inside the refresh-hint window:
// still valid but with no more than threshold left. A token exactly at the
// threshold counts; a token with zero remaining is already expired and does
// not.
func (c *Codec) ExpiringSoon(token string, threshold time.Duration) bool {
	remaining := c.RemainingTime(token)
	return remaining > 0 && remaining <= threshold
}

func (c *Codec) registered(subject string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{c.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        NewJTI(),
	}
}

func (c *Codec) sign(claims Claims, secret []byte) (string, error) {
	t := jwt.NewWithClaims(jwt.GetSigningMethod(signingAlg), claims)
	signed, err := t.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: signing token: %w", err)
	}
	return signed, nil
}
