package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind discriminates what a signed token may be used for. Access and refresh
// tokens are signed with distinct secrets, so a token of one kind can never
// verify as the other even before the kind claim is checked.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"

	// KindVerify is for single-purpose email verification tokens. They
	// share the access secret but the kind claim keeps them from ever
	// passing as bearer credentials, and vice versa.
	KindVerify Kind = "verify"
)

// Default token TTLs, used when the config leaves them unset.
const (
	// DefaultAccessTTL is the default lifetime for access tokens.
	DefaultAccessTTL = 1 * time.Hour

	// DefaultRefreshTTL is the default lifetime for refresh tokens.
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Claims are the claims embedded in every token this codec issues.
// Access tokens carry the user's email; refresh tokens carry a TokenID
// correlating the token to its persisted session row.
type Claims struct {
	jwt.RegisteredClaims

	// Kind is "access" or "refresh".
	Kind string `json:"kind"`

	// Email of the subject. Access tokens only.
	Email string `json:"email,omitempty"`

	// TokenID correlates a refresh token to its session record.
	// Refresh tokens only.
	TokenID string `json:"token_id,omitempty"`
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ExpiresAtTime returns the exp claim as a time, or the zero time when the
// claim is absent.
func (c Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
