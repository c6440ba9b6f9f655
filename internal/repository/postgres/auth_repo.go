// internal/repository/postgres/auth_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"rollcall-service/internal/domain/auth"
	xerrors "rollcall-service/internal/pkg/errors"
)

type AuthRepository struct {
	db Conn
}

func NewAuthRepository(db Conn) *AuthRepository {
	return &AuthRepository{db: db}
}

// ========== Session Methods ==========

const sessionColumns = `id, user_id, jti, ip_address, user_agent, status,
	login_at, last_activity_at, expires_at, logout_at`

func scanSession(row scanner) (*auth.Session, error) {
	var s auth.Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.JTI, &s.IPAddress, &s.UserAgent, &s.Status,
		&s.LoginAt, &s.LastActivityAt, &s.ExpiresAt, &s.LogoutAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSession persists the durable copy of a login session
func (r *AuthRepository) CreateSession(ctx context.Context, s *auth.Session) error {
	query := `
		INSERT INTO user_sessions (user_id, jti, ip_address, user_agent, status, login_at, last_activity_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
		RETURNING id
	`

	if s.Status == "" {
		s.Status = auth.SessionActive
	}
	if s.LoginAt.IsZero() {
		s.LoginAt = time.Now()
	}
	s.LastActivityAt = s.LoginAt

	err := r.db.QueryRow(ctx, query, s.UserID, s.JTI, s.IPAddress, s.UserAgent, s.Status, s.LoginAt, s.ExpiresAt).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindSessionByJTI retrieves a session by token id
func (r *AuthRepository) FindSessionByJTI(ctx context.Context, jti string) (*auth.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM user_sessions WHERE jti = $1`

	s, err := scanSession(r.db.QueryRow(ctx, query, jti))
	if err != nil {
		return nil, xerrors.Wrap(notFound(err), "failed to find session")
	}
	return s, nil
}

// ListActiveSessions returns a user's unexpired active sessions, newest first
func (r *AuthRepository) ListActiveSessions(ctx context.Context, userID int64) ([]*auth.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM user_sessions
		WHERE user_id = $1 AND status = $2 AND expires_at > NOW()
		ORDER BY login_at DESC`

	rows, err := r.db.Query(ctx, query, userID, auth.SessionActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*auth.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// TouchSession bumps last_activity_at
func (r *AuthRepository) TouchSession(ctx context.Context, jti string) error {
	_, err := r.db.Exec(ctx, `UPDATE user_sessions SET last_activity_at = NOW() WHERE jti = $1`, jti)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// RevokeSession marks one session as logged out
func (r *AuthRepository) RevokeSession(ctx context.Context, jti string) error {
	query := `
		UPDATE user_sessions
		SET status = $2, logout_at = NOW()
		WHERE jti = $1 AND status = $3
	`
	_, err := r.db.Exec(ctx, query, jti, auth.SessionRevoked, auth.SessionActive)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// RevokeAllUserSessions logs out every active session of a user
func (r *AuthRepository) RevokeAllUserSessions(ctx context.Context, userID int64) error {
	query := `
		UPDATE user_sessions
		SET status = $2, logout_at = NOW()
		WHERE user_id = $1 AND status = $3
	`
	_, err := r.db.Exec(ctx, query, userID, auth.SessionRevoked, auth.SessionActive)
	if err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired before cutoff
func (r *AuthRepository) DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM user_sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ========== Password Reset Methods ==========

// CreateResetToken stores a new reset token
func (r *AuthRepository) CreateResetToken(ctx context.Context, t *auth.PasswordResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, t.UserID, t.Token, t.ExpiresAt).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}
	return nil
}

// FindResetToken retrieves a reset token by its value
func (r *AuthRepository) FindResetToken(ctx context.Context, token string) (*auth.PasswordResetToken, error) {
	query := `
		SELECT id, user_id, token, expires_at, used_at, created_at
		FROM password_reset_tokens
		WHERE token = $1
	`

	var t auth.PasswordResetToken
	err := r.db.QueryRow(ctx, query, token).Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	if err != nil {
		return nil, xerrors.Wrap(notFound(err), "failed to find reset token")
	}
	return &t, nil
}

// MarkResetTokenUsed consumes a token; it fails if the token was already used
func (r *AuthRepository) MarkResetTokenUsed(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE password_reset_tokens SET used_at = NOW() WHERE id = $1 AND used_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to mark reset token used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrInvalidResetToken
	}
	return nil
}

// InvalidateResetTokens burns every outstanding token of a user
func (r *AuthRepository) InvalidateResetTokens(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE password_reset_tokens SET used_at = NOW() WHERE user_id = $1 AND used_at IS NULL`, userID)
	if err != nil {
		return fmt.Errorf("failed to invalidate reset tokens: %w", err)
	}
	return nil
}
