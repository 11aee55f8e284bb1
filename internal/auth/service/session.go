package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/opkit/authd/internal/auth/domain"
	"github.com/opkit/authd/internal/auth/store"
	"github.com/opkit/authd/pkg/cryptox"
	"github.com/opkit/authd/pkg/jwtx"
	"github.com/opkit/authd/pkg/slogx"
)

// DefaultMaxSessions caps concurrent refresh sessions per user unless
// configured otherwise. Zero disables the cap.
const DefaultMaxSessions = 5

// SessionService issues, refreshes, and revokes refresh sessions. Each
// refresh token is a JWT whose token_id claim doubles as the session row id;
// the raw token is never persisted, only its SHA-256 fingerprint.
type SessionService struct {
	Codec       *jwtx.Codec
	Store       store.Store
	MaxSessions int

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Metadata captures where a session was created from.
type Metadata struct {
	DeviceInfo string
	IPAddress  string
}

// IssueSession signs a fresh access/refresh pair for the user and records
// the refresh session. If the per-user cap is enabled, the oldest surplus
// sessions are revoked in the same transaction so the cap can never be
// raced past.
func (s *SessionService) IssueSession(ctx context.Context, user domain.User, meta Metadata) (*domain.TokenPair, error) {
	now := s.now()

	accessToken, err := s.Codec.IssueAccess(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	refreshToken, tokenID, err := s.Codec.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}

	session := domain.Session{
		ID:         tokenID,
		UserID:     user.ID,
		TokenHash:  cryptox.FingerprintToken(refreshToken),
		ExpiresAt:  now.Add(s.Codec.RefreshTTL()),
		DeviceInfo: meta.DeviceInfo,
		IPAddress:  meta.IPAddress,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().CreateSession(ctx, session); err != nil {
			return err
		}
		return s.capSessions(ctx, tx, user.ID, session.ID)
	})
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.Codec.AccessTTL().Seconds()),
	}, nil
}

// Refresh rotates a refresh token: the presented token is consumed and a
// brand new pair is issued. A token can be redeemed exactly once; replays
// and concurrent redemptions of the same token fail with ErrInvalidRefresh.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string, meta Metadata) (*domain.TokenPair, error) {
	now := s.now()
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.Verify(refreshToken, jwtx.KindRefresh)
	if err != nil {
		return nil, ErrInvalidRefresh
	}

	fp := cryptox.FingerprintToken(refreshToken)
	session, err := s.Store.Sessions().GetSessionByTokenHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if session.ID != claims.TokenID || !session.Valid(now) {
		return nil, ErrInvalidRefresh
	}

	user, err := s.Store.Users().GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if !user.Enabled() {
		return nil, ErrInvalidRefresh
	}

	accessToken, err := s.Codec.IssueAccess(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	newRefresh, newTokenID, err := s.Codec.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}

	next := domain.Session{
		ID:         newTokenID,
		UserID:     user.ID,
		TokenHash:  cryptox.FingerprintToken(newRefresh),
		ExpiresAt:  now.Add(s.Codec.RefreshTTL()),
		DeviceInfo: meta.DeviceInfo,
		IPAddress:  meta.IPAddress,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// Consume and re-issue atomically. ConsumeSession is a compare-and-swap
	// on active = 1, so of two concurrent redemptions only one commits; the
	// loser rolls back without creating its session.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().ConsumeSession(ctx, session.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				l.Info("refresh token replay detected",
					slog.String("session_id", session.ID),
					slog.String("user_id", user.ID),
				)
				return ErrInvalidRefresh
			}
			return err
		}
		if err := tx.Sessions().UpdateLastUsed(ctx, session.ID, now); err != nil {
			return err
		}
		if err := tx.Sessions().CreateSession(ctx, next); err != nil {
			return err
		}
		return s.capSessions(ctx, tx, user.ID, next.ID)
	})
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.Codec.AccessTTL().Seconds()),
	}, nil
}

// AuthenticateAccess verifies a bearer access token. Validation is stateless;
// revoking refresh sessions does not invalidate access tokens already issued.
func (s *SessionService) AuthenticateAccess(ctx context.Context, accessToken string) (jwtx.Claims, error) {
	claims, err := s.Codec.Verify(accessToken, jwtx.KindAccess)
	if err != nil {
		return jwtx.Claims{}, ErrInvalidAccess
	}
	return claims, nil
}

// Verify satisfies httpx.AccessVerifier.
func (s *SessionService) Verify(token string, kind jwtx.Kind) (jwtx.Claims, error) {
	return s.Codec.Verify(token, kind)
}

// Logout revokes the session behind the presented refresh token. Unknown and
// already-revoked tokens are not an error; logout is idempotent.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	fp := cryptox.FingerprintToken(refreshToken)
	return s.Store.Sessions().DeactivateSession(ctx, fp)
}

// LogoutAll revokes every active session the user holds.
func (s *SessionService) LogoutAll(ctx context.Context, userID string) error {
	return s.Store.Sessions().DeactivateAllUserSessions(ctx, userID)
}

// ActiveSessions lists the user's live sessions, newest first.
func (s *SessionService) ActiveSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	return s.Store.Sessions().ListActiveSessionsByUser(ctx, userID)
}

// PurgeUserSessions removes every session row for the user. Used on account
// deletion.
func (s *SessionService) PurgeUserSessions(ctx context.Context, userID string) error {
	return s.Store.Sessions().DeleteAllUserSessions(ctx, userID)
}

func (s *SessionService) capSessions(ctx context.Context, tx store.Tx, userID, keepID string) error {
	if s.MaxSessions <= 0 {
		return nil
	}
	evicted, err := tx.Sessions().CapUserSessions(ctx, userID, s.MaxSessions, keepID)
	if err != nil {
		return err
	}
	if evicted > 0 {
		slogx.FromContext(ctx).Info("session cap enforced",
			slog.String("user_id", userID),
			slog.Int64("evicted", evicted),
		)
	}
	return nil
}
