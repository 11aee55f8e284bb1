package domain

import "time"

// Provider identifies how an account authenticates. An account carries at
// most one provider at a time.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
)

// IsSocial reports whether p is an external identity provider.
func (p Provider) IsSocial() bool {
	return p == ProviderGoogle || p == ProviderApple
}

// Valid reports whether p is a known provider value.
func (p Provider) Valid() bool {
	return p == ProviderLocal || p == ProviderGoogle || p == ProviderApple
}

// Status is the lifecycle state of a user account. Inactive and suspended
// accounts cannot authenticate; see User.Enabled.
type Status string

const (
	StatusActive              Status = "active"
	StatusInactive            Status = "inactive"
	StatusSuspended           Status = "suspended"
	StatusPendingVerification Status = "pending_verification"
)

// User is the account record. Local accounts carry a password hash; social
// accounts carry the provider-assigned external ID.
type User struct {
	ID           string
	Email        string // normalized lowercase, unique across all providers
	PasswordHash string // empty for social-only accounts
	Provider     Provider
	ProviderID   string // external ID assigned by the social provider
	Status       Status

	EmailVerified bool

	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt *time.Time
	DeletedAt   *time.Time
}

// IsActive reports whether the account has completed its lifecycle and is
// fully active.
func (u User) IsActive() bool { return u.Status == StatusActive }

// Enabled reports whether the account may authenticate. An account pending
// email verification is enabled; disabled means deactivated or suspended.
func (u User) Enabled() bool {
	return u.Status != StatusInactive && u.Status != StatusSuspended
}

// IsLocal reports whether the account authenticates with a password.
func (u User) IsLocal() bool { return u.Provider == ProviderLocal }

// IsSocial reports whether the account authenticates through an external
// provider.
func (u User) IsSocial() bool { return u.Provider.IsSocial() }
