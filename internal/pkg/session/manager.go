// internal/pkg/session/manager.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rollcall-service/internal/domain/auth"
	xerrors "rollcall-service/internal/pkg/errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store is the durable session table Redis falls back to
type Store interface {
	FindSessionByJTI(ctx context.Context, jti string) (*auth.Session, error)
	TouchSession(ctx context.Context, jti string) error
	RevokeSession(ctx context.Context, jti string) error
	RevokeAllUserSessions(ctx context.Context, userID int64) error
}

type Manager struct {
	client *redis.Client
	store  Store
	logger *zap.Logger
}

func NewManager(client *redis.Client, store Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		client: client,
		store:  store,
		logger: logger,
	}
}

// CreateSession stores a new session in Redis
func (m *Manager) CreateSession(ctx context.Context, session *SessionData) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	if err := m.client.Set(ctx, m.sessionKey(session.UserID, session.JTI), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session in redis: %w", err)
	}

	return nil
}

// GetSession retrieves a session from Redis with DB fallback
func (m *Manager) GetSession(ctx context.Context, userID int64, jti string) (*SessionData, error) {
	data, err := m.client.Get(ctx, m.sessionKey(userID, jti)).Bytes()
	if err == nil {
		var session SessionData
		if err := json.Unmarshal(data, &session); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session: %w", err)
		}
		return &session, nil
	}

	if !errors.Is(err, redis.Nil) {
		m.logger.Warn("redis session lookup failed, falling back to database", zap.Error(err))
	}

	if m.store == nil {
		return nil, xerrors.ErrSessionExpired
	}

	dbSession, err := m.store.FindSessionByJTI(ctx, jti)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrSessionExpired, err)
	}
	if dbSession.UserID != userID {
		return nil, fmt.Errorf("%w: session user mismatch", xerrors.ErrSessionExpired)
	}
	if dbSession.Status != auth.SessionActive || !time.Now().Before(dbSession.ExpiresAt) {
		return nil, xerrors.ErrSessionExpired
	}

	session := &SessionData{
		JTI:            jti,
		UserID:         dbSession.UserID,
		SessionID:      dbSession.ID,
		IPAddress:      dbSession.IPAddress,
		UserAgent:      dbSession.UserAgent,
		LoginAt:        dbSession.LoginAt,
		LastActivityAt: time.Now(),
		ExpiresAt:      dbSession.ExpiresAt,
		IsActive:       true,
	}

	if err := m.CreateSession(ctx, session); err != nil {
		m.logger.Warn("failed to restore session to redis", zap.Error(err))
	}
	if err := m.store.TouchSession(ctx, jti); err != nil {
		m.logger.Warn("failed to update session activity", zap.Error(err))
	}

	return session, nil
}

// InvalidateSession removes a session from Redis and DB
func (m *Manager) InvalidateSession(ctx context.Context, userID int64, jti string) error {
	if err := m.client.Del(ctx, m.sessionKey(userID, jti)).Err(); err != nil {
		m.logger.Warn("failed to delete session from redis", zap.String("jti", jti), zap.Error(err))
	}

	if m.store != nil {
		if err := m.store.RevokeSession(ctx, jti); err != nil && !errors.Is(err, xerrors.ErrNotFound) {
			return fmt.Errorf("failed to invalidate DB session: %w", err)
		}
	}

	return nil
}

// InvalidateAllUserSessions removes all sessions for a user and returns their jtis
func (m *Manager) InvalidateAllUserSessions(ctx context.Context, userID int64) ([]string, error) {
	var jtis []string
	prefix := fmt.Sprintf("session:%d:", userID)

	iter := m.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		jtis = append(jtis, key[len(prefix):])
		if err := m.client.Del(ctx, key).Err(); err != nil {
			m.logger.Warn("failed to delete session", zap.String("key", key), zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		return jtis, err
	}

	if m.store != nil {
		if err := m.store.RevokeAllUserSessions(ctx, userID); err != nil {
			return jtis, fmt.Errorf("failed to invalidate DB sessions: %w", err)
		}
	}

	return jtis, nil
}

// IsTokenBlacklisted checks if a token is blacklisted
func (m *Manager) IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	exists, err := m.client.Exists(ctx, m.blacklistKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return exists > 0, nil
}

// BlacklistToken adds a token to the blacklist
func (m *Manager) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return m.client.Set(ctx, m.blacklistKey(jti), "1", ttl).Err()
}

// GetUserActiveSessions returns all active sessions for a user
func (m *Manager) GetUserActiveSessions(ctx context.Context, userID int64) ([]*SessionData, error) {
	sessions := []*SessionData{}

	iter := m.client.Scan(ctx, 0, fmt.Sprintf("session:%d:*", userID), 0).Iterator()
	for iter.Next(ctx) {
		data, err := m.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}

		var session SessionData
		if err := json.Unmarshal(data, &session); err != nil {
			continue
		}

		sessions = append(sessions, &session)
	}

	return sessions, iter.Err()
}

func (m *Manager) sessionKey(userID int64, jti string) string {
	return fmt.Sprintf("session:%d:%s", userID, jti)
}

func (m *Manager) blacklistKey(jti string) string {
	return fmt.Sprintf("blacklist:%s", jti)
}
