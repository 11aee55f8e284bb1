package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/opkit/authd/internal/auth/domain"
)

type sessionsRepo struct {
	q querier
}

const sessionColumns = `id, user_id, token_hash, expires_at, device_info,
	ip_address, active, last_used_at, created_at, updated_at`

func scanSession(scan func(dest ...any) error) (domain.Session, error) {
	var (
		s        domain.Session
		lastUsed sql.NullTime
	)
	err := scan(
		&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.DeviceInfo,
		&s.IPAddress, &s.Active, &lastUsed, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	s.LastUsedAt = mapNullTimePtr(lastUsed)
	return s, nil
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, expires_at, device_info,
			ip_address, active, last_used_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.TokenHash, s.ExpiresAt, s.DeviceInfo,
		s.IPAddress, s.Active, mapOptionalTime(s.LastUsedAt), s.CreatedAt, s.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *sessionsRepo) GetSessionByTokenHash(ctx context.Context, hash string) (domain.Session, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE token_hash = ?`, hash)
	return scanSession(row.Scan)
}

func (r *sessionsRepo) ListActiveSessionsByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = ? AND active = 1
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		s, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ConsumeSession is the single-use gate for refresh rotation. The WHERE
// active = 1 clause makes the flip a compare-and-swap: under concurrent
// redemption of the same token exactly one caller updates the row, every
// other caller sees zero rows affected and gets ErrNotFound.
func (r *sessionsRepo) ConsumeSession(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE sessions SET active = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND active = 1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *sessionsRepo) DeactivateSession(ctx context.Context, hash string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE sessions SET active = 0, updated_at = CURRENT_TIMESTAMP
		WHERE token_hash = ? AND active = 1`, hash)
	return err
}

func (r *sessionsRepo) DeactivateAllUserSessions(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE sessions SET active = 0, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND active = 1`, userID)
	return err
}

func (r *sessionsRepo) DeleteAllUserSessions(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CapUserSessions deactivates every active session beyond the newest maxKept,
// skipping keepID so a just-issued session cannot evict itself. Ordering ties
// on created_at break on id, which is a ULID and therefore time-sorted.
func (r *sessionsRepo) CapUserSessions(ctx context.Context, userID string, maxKept int, keepID string) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE sessions SET active = 0, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND active = 1 AND id != ?
		AND id NOT IN (
			SELECT id FROM sessions
			WHERE user_id = ? AND active = 1
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		)`, userID, keepID, userID, maxKept)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sessionsRepo) UpdateLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE sessions SET last_used_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, at, id)
	return err
}
