package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/opkit/authd/internal/auth/domain"
	"github.com/opkit/authd/internal/auth/store"
)

type usersRepo struct {
	q querier
}

const userColumns = `id, email, password_hash, provider, provider_id, status,
	email_verified, created_at, updated_at, last_login_at, deleted_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u          domain.User
		providerID sql.NullString
		lastLogin  sql.NullTime
		deletedAt  sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Provider, &providerID, &u.Status,
		&u.EmailVerified, &u.CreatedAt, &u.UpdatedAt, &lastLogin, &deletedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.ProviderID = mapNullString(providerID)
	u.LastLoginAt = mapNullTimePtr(lastLogin)
	u.DeletedAt = mapNullTimePtr(deletedAt)
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, provider, provider_id, status,
			email_verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, string(u.Provider), mapStringNull(u.ProviderID),
		string(u.Status), u.EmailVerified, u.CreatedAt, u.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE id = ? AND deleted_at IS NULL`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE email = ? AND deleted_at IS NULL`, email)
	return scanUser(row)
}

func (r *usersRepo) GetUserByProviderID(
	ctx context.Context,
	provider domain.Provider,
	providerID string,
) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE provider = ? AND provider_id = ? AND deleted_at IS NULL`,
		string(provider), providerID)
	return scanUser(row)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	return r.exec(ctx, `
		UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND deleted_at IS NULL`, newHash, userID)
}

func (r *usersRepo) MarkEmailVerified(ctx context.Context, userID string) error {
	return r.exec(ctx, `
		UPDATE users SET email_verified = 1,
			status = CASE WHEN status = ? THEN ? ELSE status END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND deleted_at IS NULL`,
		string(domain.StatusPendingVerification), string(domain.StatusActive), userID)
}

func (r *usersRepo) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return r.exec(ctx, `
		UPDATE users SET last_login_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND deleted_at IS NULL`, at, userID)
}

func (r *usersRepo) UpdateStatus(ctx context.Context, userID string, status domain.Status) error {
	return r.exec(ctx, `
		UPDATE users SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND deleted_at IS NULL`, string(status), userID)
}

func (r *usersRepo) LinkProvider(
	ctx context.Context,
	userID string,
	provider domain.Provider,
	providerID string,
) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users SET provider = ?, provider_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND deleted_at IS NULL`,
		string(provider), providerID, userID)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *usersRepo) UnlinkProvider(ctx context.Context, userID string) error {
	return r.exec(ctx, `
		UPDATE users SET provider = ?, provider_id = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND deleted_at IS NULL`,
		string(domain.ProviderLocal), userID)
}

func (r *usersRepo) SoftDeleteUser(ctx context.Context, userID string, at time.Time) error {
	return r.exec(ctx, `
		UPDATE users SET deleted_at = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND deleted_at IS NULL`,
		at, string(domain.StatusInactive), userID)
}

// exec runs an update that must touch exactly one live row.
func (r *usersRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
