package domain

import "time"

// Session is the server-side record backing a refresh token. The raw token
// is never stored; TokenHash is its SHA-256 fingerprint.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time

	DeviceInfo string
	IPAddress  string

	Active     bool
	LastUsedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the session has reached its expiry. The boundary
// instant itself counts as expired.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Valid reports whether the session can still be redeemed.
func (s Session) Valid(now time.Time) bool {
	return s.Active && !s.Expired(now)
}
