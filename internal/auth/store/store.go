package store

import (
	"context"
	"errors"
	"time"

	"github.com/opkit/authd/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and to make it harder to accidentally open a transaction inside
// a transaction.
type Store interface {
	Users() Users
	Sessions() Sessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., refresh
	// rotation). The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists if the email is already taken.
	CreateUser(ctx context.Context, u domain.User) error

	// GetUserByID returns a user by id. Soft-deleted users are not returned.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks a user up by normalized email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByProviderID looks a user up by (provider, external id).
	GetUserByProviderID(ctx context.Context, provider domain.Provider, providerID string) (domain.User, error)

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// MarkEmailVerified flips email_verified and promotes a
	// pending_verification account to active.
	MarkEmailVerified(ctx context.Context, userID string) error

	// UpdateLastLogin stamps last_login_at.
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	// UpdateStatus sets the lifecycle status.
	UpdateStatus(ctx context.Context, userID string, status domain.Status) error

	// LinkProvider attaches a social identity to an existing account.
	// Returns ErrAlreadyExists if that identity already belongs to a user.
	LinkProvider(ctx context.Context, userID string, provider domain.Provider, providerID string) error

	// UnlinkProvider detaches the social identity and reverts the account
	// to local.
	UnlinkProvider(ctx context.Context, userID string) error

	// SoftDeleteUser stamps deleted_at and marks the account inactive.
	// Subsequent lookups treat the user as gone.
	SoftDeleteUser(ctx context.Context, userID string, at time.Time) error
}

type Sessions interface {
	// CreateSession stores a new refresh session record.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByTokenHash returns the session by its hashed token value.
	GetSessionByTokenHash(ctx context.Context, hash string) (domain.Session, error)

	// ListActiveSessionsByUser returns active sessions newest first.
	ListActiveSessionsByUser(ctx context.Context, userID string) ([]domain.Session, error)

	// ConsumeSession atomically flips a session from active to inactive.
	// Exactly one caller wins for a given id; losers get ErrNotFound.
	ConsumeSession(ctx context.Context, id string) error

	// DeactivateSession revokes by token hash. Idempotent: already-revoked
	// and unknown hashes both return nil.
	DeactivateSession(ctx context.Context, hash string) error

	// DeactivateAllUserSessions bulk revocation (logout everywhere,
	// password change).
	DeactivateAllUserSessions(ctx context.Context, userID string) error

	// DeleteAllUserSessions removes every session row for a user.
	DeleteAllUserSessions(ctx context.Context, userID string) error

	// DeleteExpiredSessions is housekeeping; returns rows removed.
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)

	// CapUserSessions deactivates the user's oldest active sessions so that
	// at most maxKept remain, never touching keepID. Returns rows evicted.
	CapUserSessions(ctx context.Context, userID string, maxKept int, keepID string) (int64, error)

	// UpdateLastUsed stamps last_used_at on redemption.
	UpdateLastUsed(ctx context.Context, id string, at time.Time) error
}
